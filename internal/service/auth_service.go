package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	apperrors "decepticon/internal/errors"
	"decepticon/internal/model"
	"decepticon/internal/repository"
	"decepticon/internal/session"
)

const (
	bcryptCost = 10
	// MaxPasswordBytes is the longest password bcrypt accepts.
	MaxPasswordBytes = 72
)

var (
	// ErrInvalidCredentials is returned when email or password is incorrect.
	// Both cases share it so callers cannot tell which one failed.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserAlreadyExists is returned when trying to register an existing email.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrPasswordTooLong is returned for passwords bcrypt cannot hash.
	ErrPasswordTooLong = errors.New("password too long")
)

// Flash texts set by the auth flow.
const (
	MsgRegisteredAdmin = "Registration successful! You are the first user (Administrator)."
	MsgRegisteredUser  = "Registration successful! Welcome to the system."
	MsgWelcomeBackFmt  = "Welcome back, %s!"
	MsgLoggedOut       = "Session closed successfully."
)

// dummyHash is compared against when the email is unknown, so a miss costs
// as much as a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("decepticon-timing-pad"), bcryptCost)

// AuthService handles registration, login and logout.
// Successful calls leave the signed-in user and a flash message on sess;
// persisting the session is up to the caller.
type AuthService interface {
	Register(ctx context.Context, sess *session.Session, email, password string) (*model.User, error)
	Login(ctx context.Context, sess *session.Session, email, password string) (*model.User, error)
	Logout(sess *session.Session)
}

type authService struct {
	userRepo repository.UserRepository
}

// NewAuthService creates a new authentication service.
func NewAuthService(userRepo repository.UserRepository) AuthService {
	return &authService{userRepo: userRepo}
}

// Register creates a user with a hashed password. The first user ever
// created becomes admin; the count and the insert share one transaction.
func (s *authService) Register(ctx context.Context, sess *session.Session, email, password string) (*model.User, error) {
	if len(password) > MaxPasswordBytes {
		return nil, ErrPasswordTooLong
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, ErrUserAlreadyExists
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Storage("check user existence", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Email:        email,
		PasswordHash: string(hashedPassword),
	}
	err = s.userRepo.WithTransaction(ctx, func(ctx context.Context, repo repository.UserRepository) error {
		count, err := repo.Count(ctx)
		if err != nil {
			return err
		}
		user.Role = model.RoleForCount(count)
		return repo.Create(ctx, user)
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, ErrUserAlreadyExists
	}
	if err != nil {
		return nil, apperrors.Storage("create user", err)
	}

	sess.SetUser(user)
	if user.Role == model.RoleAdmin {
		sess.Success = MsgRegisteredAdmin
	} else {
		sess.Success = MsgRegisteredUser
	}
	return user, nil
}

// Login verifies the password of the user with the given email.
func (s *authService) Login(ctx context.Context, sess *session.Session, email, password string) (*model.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, apperrors.Storage("find user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	sess.SetUser(user)
	sess.Success = fmt.Sprintf(MsgWelcomeBackFmt, user.Email)
	return user, nil
}

// Logout leaves the farewell message on sess. The caller destroys the
// session afterwards.
func (s *authService) Logout(sess *session.Session) {
	sess.Success = MsgLoggedOut
}
