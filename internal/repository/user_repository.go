package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"decepticon/internal/model"
)

// UserRepository defines persistence operations for the credential store.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// Count returns the number of users. Inside WithTransaction the read
	// locks the table so a concurrent insert waits for the transaction.
	Count(ctx context.Context) (int64, error)
	// ListAll returns every user, newest first, without password hashes.
	ListAll(ctx context.Context) ([]model.User, error)
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repo UserRepository) error) error
}

type userRepository struct {
	db   *gorm.DB
	inTx bool
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Count(ctx context.Context) (int64, error) {
	q := r.db.WithContext(ctx).Model(&model.User{})
	if r.inTx {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *userRepository) ListAll(ctx context.Context) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Select("id", "email", "role", "created_at").
		Order("created_at DESC").
		Order("id DESC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// WithTransaction executes fn within a database transaction.
func (r *userRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo UserRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &userRepository{db: tx, inTx: true})
	})
}
