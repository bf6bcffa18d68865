package services

import (
	"context"

	"github.com/gostore-shop/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetActiveByID(ctx context.Context, id int) (types.User, error)
	GetActiveByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) GetActiveByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetActiveByID(ctx, id)
}

func (s *UserService) GetActiveByEmail(ctx context.Context, email string) (types.User, error) {
	return s.repo.GetActiveByEmail(ctx, email)
}

func (s *UserService) Create(ctx context.Context, user types.User) (types.User, error) {
	return s.repo.Create(ctx, user)
}
