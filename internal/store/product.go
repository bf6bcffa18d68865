package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/gostore-shop/apiserver/types"
)

// ProductRepository handles persistence for products.
type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `
	p.id, p.name, p.description, p.price, p.image_url, p.stock,
	p.category_id, p.seller_id, p.rating, p.is_active, p.created_at, p.updated_at`

// List returns in-stock active products belonging to active categories.
func (r *ProductRepository) List(ctx context.Context, offset, limit int) ([]types.Product, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	const countQuery = `
		SELECT COUNT(1)
		FROM products p
		JOIN categories c ON c.id = p.category_id
		WHERE p.is_active AND c.is_active AND p.stock > 0`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, err
	}

	const listQuery = `
		SELECT` + productColumns + `
		FROM products p
		JOIN categories c ON c.id = p.category_id
		WHERE p.is_active AND c.is_active AND p.stock > 0
		ORDER BY p.id
		OFFSET $1 LIMIT $2`
	rows, err := r.db.QueryContext(ctx, listQuery, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	products, err := scanProducts(rows, limit)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// ListByCategory returns in-stock active products of one active
// category. A missing or inactive category reports ErrNotFound.
func (r *ProductRepository) ListByCategory(ctx context.Context, categoryID, offset, limit int) ([]types.Product, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	const countQuery = `
		SELECT COUNT(1)
		FROM products p
		JOIN categories c ON c.id = p.category_id
		WHERE c.id = $1 AND p.is_active AND c.is_active AND p.stock > 0`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, categoryID).Scan(&total); err != nil {
		return nil, 0, err
	}

	const listQuery = `
		SELECT` + productColumns + `
		FROM products p
		JOIN categories c ON c.id = p.category_id
		WHERE c.id = $1 AND p.is_active AND c.is_active AND p.stock > 0
		ORDER BY p.id
		OFFSET $2 LIMIT $3`
	rows, err := r.db.QueryContext(ctx, listQuery, categoryID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	products, err := scanProducts(rows, limit)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// Get fetches an active product whose category is also active.
func (r *ProductRepository) Get(ctx context.Context, id int) (types.Product, error) {
	const query = `
		SELECT` + productColumns + `
		FROM products p
		JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1 AND p.is_active AND c.is_active`
	row := r.db.QueryRowContext(ctx, query, id)

	var product types.Product
	if err := scanProduct(row.Scan, &product); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Product{}, ErrNotFound
		}
		return types.Product{}, err
	}
	return product, nil
}

// Create inserts a new active product with a zero rating.
func (r *ProductRepository) Create(ctx context.Context, product types.Product) (types.Product, error) {
	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now
	product.IsActive = true
	product.Rating = 0

	const query = `
		INSERT INTO products (name, description, price, image_url, stock,
			category_id, seller_id, rating, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		product.Name,
		product.Description,
		product.Price,
		product.ImageURL,
		product.Stock,
		product.CategoryID,
		product.SellerID,
		product.Rating,
		product.IsActive,
		product.CreatedAt,
		product.UpdatedAt,
	).Scan(&product.ID); err != nil {
		return types.Product{}, err
	}
	return product, nil
}

// Update rewrites an active product's mutable fields. Ownership and
// rating are untouched; updating an inactive product reports
// ErrNotFound rather than resurrecting it.
func (r *ProductRepository) Update(ctx context.Context, product types.Product) (types.Product, error) {
	product.UpdatedAt = time.Now()

	const query = `
		UPDATE products
		SET name = $1,
			description = $2,
			price = $3,
			stock = $4,
			category_id = $5,
			updated_at = $6
		WHERE id = $7 AND is_active
		RETURNING id, name, description, price, image_url, stock,
			category_id, seller_id, rating, is_active, created_at, updated_at`
	row := r.db.QueryRowContext(
		ctx,
		query,
		product.Name,
		product.Description,
		product.Price,
		product.Stock,
		product.CategoryID,
		product.UpdatedAt,
		product.ID,
	)

	var updated types.Product
	if err := scanProduct(row.Scan, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Product{}, ErrNotFound
		}
		return types.Product{}, err
	}
	return updated, nil
}

// SetImageURL records the object-storage location of the product image.
func (r *ProductRepository) SetImageURL(ctx context.Context, id int, imageURL string) error {
	const query = `
		UPDATE products
		SET image_url = $1,
			updated_at = $2
		WHERE id = $3 AND is_active`
	result, err := r.db.ExecContext(ctx, query, imageURL, time.Now(), id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete marks a product inactive.
func (r *ProductRepository) SoftDelete(ctx context.Context, id int) error {
	const query = `
		UPDATE products
		SET is_active = FALSE,
			updated_at = $1
		WHERE id = $2 AND is_active`
	result, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanProducts(rows *sql.Rows, sizeHint int) ([]types.Product, error) {
	products := make([]types.Product, 0, sizeHint)
	for rows.Next() {
		var product types.Product
		if err := scanProduct(rows.Scan, &product); err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func scanProduct(scan func(dest ...any) error, product *types.Product) error {
	return scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.ImageURL,
		&product.Stock,
		&product.CategoryID,
		&product.SellerID,
		&product.Rating,
		&product.IsActive,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
}
