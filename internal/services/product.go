package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gostore-shop/apiserver/internal/storage"
	"github.com/gostore-shop/apiserver/internal/store"
	"github.com/gostore-shop/apiserver/types"
)

// ProductRepository defines persistence operations for products.
type ProductRepository interface {
	List(ctx context.Context, offset, limit int) ([]types.Product, int, error)
	ListByCategory(ctx context.Context, categoryID, offset, limit int) ([]types.Product, int, error)
	Get(ctx context.Context, id int) (types.Product, error)
	Create(ctx context.Context, product types.Product) (types.Product, error)
	Update(ctx context.Context, product types.Product) (types.Product, error)
	SetImageURL(ctx context.Context, id int, imageURL string) error
	SoftDelete(ctx context.Context, id int) error
}

// ProductService encapsulates product use-cases, including ownership
// checks and image uploads to object storage.
type ProductService struct {
	repo          ProductRepository
	categories    CategoryRepository
	storage       *storage.Storage
	publicBaseURL string
}

func NewProductService(repo ProductRepository, categories CategoryRepository) *ProductService {
	return &ProductService{repo: repo, categories: categories}
}

// WithStorage attaches an object-storage backend for image uploads.
func (s *ProductService) WithStorage(st *storage.Storage, publicBaseURL string) *ProductService {
	s.storage = st
	s.publicBaseURL = publicBaseURL
	return s
}

func (s *ProductService) List(ctx context.Context, offset, limit int) ([]types.Product, int, error) {
	return s.repo.List(ctx, offset, limit)
}

func (s *ProductService) ListByCategory(ctx context.Context, categoryID, offset, limit int) ([]types.Product, int, error) {
	if _, err := s.categories.Get(ctx, categoryID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListByCategory(ctx, categoryID, offset, limit)
}

func (s *ProductService) Get(ctx context.Context, id int) (types.Product, error) {
	return s.repo.Get(ctx, id)
}

// Create inserts a product owned by the given seller after confirming
// the target category exists and is active.
func (s *ProductService) Create(ctx context.Context, product types.Product) (types.Product, error) {
	if err := s.checkCategory(ctx, product.CategoryID); err != nil {
		return types.Product{}, err
	}
	return s.repo.Create(ctx, product)
}

// Update rewrites a product. Only the owning seller may update it, and
// the new category must exist and be active.
func (s *ProductService) Update(ctx context.Context, sellerID int, product types.Product) (types.Product, error) {
	current, err := s.repo.Get(ctx, product.ID)
	if err != nil {
		return types.Product{}, err
	}
	if current.SellerID != sellerID {
		return types.Product{}, ErrNotOwner
	}
	if err := s.checkCategory(ctx, product.CategoryID); err != nil {
		return types.Product{}, err
	}
	product.SellerID = current.SellerID
	return s.repo.Update(ctx, product)
}

// Delete soft-deletes a product owned by the given seller.
func (s *ProductService) Delete(ctx context.Context, sellerID, id int) error {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if current.SellerID != sellerID {
		return ErrNotOwner
	}
	return s.repo.SoftDelete(ctx, id)
}

// UploadImage stores a product image in object storage and records its
// URL on the product. Only the owning seller may upload.
func (s *ProductService) UploadImage(ctx context.Context, sellerID, id int, r io.Reader, size int64, contentType string) (string, error) {
	if s.storage == nil {
		return "", ErrStorageUnavailable
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if current.SellerID != sellerID {
		return "", ErrNotOwner
	}

	key := fmt.Sprintf("products/%d/image", id)
	if err := s.storage.Put(ctx, key, r, size, contentType); err != nil {
		return "", err
	}

	imageURL := key
	if s.publicBaseURL != "" {
		imageURL = strings.TrimRight(s.publicBaseURL, "/") + "/" + key
	}
	if err := s.repo.SetImageURL(ctx, id, imageURL); err != nil {
		return "", err
	}
	return imageURL, nil
}

func (s *ProductService) checkCategory(ctx context.Context, categoryID int) error {
	if _, err := s.categories.Get(ctx, categoryID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCategory
		}
		return err
	}
	return nil
}
