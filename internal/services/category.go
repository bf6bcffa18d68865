package services

import (
	"context"
	"errors"

	"github.com/gostore-shop/apiserver/internal/store"
	"github.com/gostore-shop/apiserver/types"
)

// CategoryRepository defines persistence operations for categories.
type CategoryRepository interface {
	List(ctx context.Context) ([]types.Category, error)
	Get(ctx context.Context, id int) (types.Category, error)
	Create(ctx context.Context, category types.Category) (types.Category, error)
	Update(ctx context.Context, category types.Category) (types.Category, error)
	SoftDelete(ctx context.Context, id int) error
	WouldCycle(ctx context.Context, id, newParent int) (bool, error)
}

// CategoryService encapsulates category use-cases.
type CategoryService struct {
	repo CategoryRepository
}

func NewCategoryService(repo CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

func (s *CategoryService) List(ctx context.Context) ([]types.Category, error) {
	return s.repo.List(ctx)
}

func (s *CategoryService) Get(ctx context.Context, id int) (types.Category, error) {
	return s.repo.Get(ctx, id)
}

// Create inserts a category after confirming the parent, when set,
// exists and is active.
func (s *CategoryService) Create(ctx context.Context, category types.Category) (types.Category, error) {
	if category.ParentID != nil {
		if err := s.checkParent(ctx, *category.ParentID); err != nil {
			return types.Category{}, err
		}
	}
	return s.repo.Create(ctx, category)
}

// Update rewrites a category. A missing target reports
// store.ErrNotFound; a bad parent reports ErrInvalidCategory; a parent
// that is the category itself or one of its descendants reports
// ErrCategoryCycle.
func (s *CategoryService) Update(ctx context.Context, category types.Category) (types.Category, error) {
	if _, err := s.repo.Get(ctx, category.ID); err != nil {
		return types.Category{}, err
	}

	if category.ParentID != nil {
		if err := s.checkParent(ctx, *category.ParentID); err != nil {
			return types.Category{}, err
		}
		cycles, err := s.repo.WouldCycle(ctx, category.ID, *category.ParentID)
		if err != nil {
			return types.Category{}, err
		}
		if cycles {
			return types.Category{}, ErrCategoryCycle
		}
	}

	return s.repo.Update(ctx, category)
}

func (s *CategoryService) Delete(ctx context.Context, id int) error {
	return s.repo.SoftDelete(ctx, id)
}

func (s *CategoryService) checkParent(ctx context.Context, parentID int) error {
	if _, err := s.repo.Get(ctx, parentID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCategory
		}
		return err
	}
	return nil
}
