package service

import (
	"context"

	apperrors "decepticon/internal/errors"
	"decepticon/internal/model"
	"decepticon/internal/repository"
)

// UserService exposes read operations over registered users.
type UserService interface {
	// ListUsers returns all users, newest first, without password hashes.
	ListUsers(ctx context.Context) ([]model.User, error)
}

type userService struct {
	repo repository.UserRepository
}

// NewUserService builds a UserService.
func NewUserService(repo repository.UserRepository) UserService {
	return &userService{repo: repo}
}

func (s *userService) ListUsers(ctx context.Context) ([]model.User, error) {
	users, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, apperrors.Storage("list users", err)
	}
	for i := range users {
		users[i].PasswordHash = ""
	}
	return users, nil
}
