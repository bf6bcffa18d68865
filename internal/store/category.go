package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/gostore-shop/apiserver/types"
)

// CategoryRepository handles persistence for categories.
type CategoryRepository struct {
	db *sql.DB
}

func NewCategoryRepository(db *sql.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// List returns all active categories.
func (r *CategoryRepository) List(ctx context.Context) ([]types.Category, error) {
	const query = `
		SELECT id, name, parent_id, is_active
		FROM categories
		WHERE is_active
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]types.Category, 0)
	for rows.Next() {
		var category types.Category
		if err := rows.Scan(
			&category.ID,
			&category.Name,
			&category.ParentID,
			&category.IsActive,
		); err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return categories, nil
}

// Get fetches an active category by id.
func (r *CategoryRepository) Get(ctx context.Context, id int) (types.Category, error) {
	const query = `
		SELECT id, name, parent_id, is_active
		FROM categories
		WHERE id = $1 AND is_active`
	var category types.Category
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&category.ID,
		&category.Name,
		&category.ParentID,
		&category.IsActive,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Category{}, ErrNotFound
		}
		return types.Category{}, err
	}
	return category, nil
}

// Create inserts a new active category.
func (r *CategoryRepository) Create(ctx context.Context, category types.Category) (types.Category, error) {
	category.IsActive = true

	const query = `
		INSERT INTO categories (name, parent_id, is_active)
		VALUES ($1, $2, $3)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		category.Name,
		category.ParentID,
		category.IsActive,
	).Scan(&category.ID); err != nil {
		return types.Category{}, err
	}
	return category, nil
}

// Update rewrites an active category's name and parent. Updating an
// inactive or missing category reports ErrNotFound.
func (r *CategoryRepository) Update(ctx context.Context, category types.Category) (types.Category, error) {
	const query = `
		UPDATE categories
		SET name = $1,
			parent_id = $2
		WHERE id = $3 AND is_active`
	result, err := r.db.ExecContext(ctx, query, category.Name, category.ParentID, category.ID)
	if err != nil {
		return types.Category{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Category{}, err
	}
	if affected == 0 {
		return types.Category{}, ErrNotFound
	}
	category.IsActive = true
	return category, nil
}

// SoftDelete marks a category inactive. A second delete finds no
// active row and reports ErrNotFound, which keeps the operation
// idempotent in effect.
func (r *CategoryRepository) SoftDelete(ctx context.Context, id int) error {
	const query = `
		UPDATE categories
		SET is_active = FALSE
		WHERE id = $1 AND is_active`
	result, err := r.db.ExecContext(ctx, query, id)
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

// WouldCycle reports whether reparenting category id under newParent
// would close a cycle, i.e. id appears in newParent's ancestor chain
// (newParent itself included, which covers self-parenting).
func (r *CategoryRepository) WouldCycle(ctx context.Context, id, newParent int) (bool, error) {
	const query = `
		WITH RECURSIVE ancestors AS (
			SELECT id, parent_id FROM categories WHERE id = $1
			UNION ALL
			SELECT c.id, c.parent_id
			FROM categories c
			JOIN ancestors a ON c.id = a.parent_id
		)
		SELECT EXISTS (SELECT 1 FROM ancestors WHERE id = $2)`
	var cycles bool
	if err := r.db.QueryRowContext(ctx, query, newParent, id).Scan(&cycles); err != nil {
		return false, err
	}
	return cycles, nil
}
