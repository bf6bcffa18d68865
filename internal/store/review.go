package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/gostore-shop/apiserver/types"
)

// ReviewRepository handles persistence for reviews and owns the one
// cross-entity consistency rule in the system: after every review
// mutation, products.rating equals the mean grade of the product's
// active reviews (0 when none). Mutation and recomputation share a
// transaction, with the product row locked so concurrent
// recomputations for the same product serialize.
type ReviewRepository struct {
	db *sql.DB
}

func NewReviewRepository(db *sql.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// List returns all active reviews.
func (r *ReviewRepository) List(ctx context.Context) ([]types.Review, error) {
	const query = `
		SELECT id, product_id, user_id, grade, comment, comment_date, is_active
		FROM reviews
		WHERE is_active
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := make([]types.Review, 0)
	for rows.Next() {
		var review types.Review
		if err := rows.Scan(
			&review.ID,
			&review.ProductID,
			&review.UserID,
			&review.Grade,
			&review.Comment,
			&review.CommentDate,
			&review.IsActive,
		); err != nil {
			return nil, err
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reviews, nil
}

// Create inserts a review and recomputes the product rating in one
// transaction. It reports ErrNotFound when the product is missing or
// inactive and ErrConflict when the user already has an active review
// for the product. The partial unique index backs the conflict check,
// so two concurrent creations cannot both commit.
func (r *ReviewRepository) Create(ctx context.Context, review types.Review) (types.Review, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Review{}, err
	}
	defer tx.Rollback()

	if err := lockActiveProduct(ctx, tx, review.ProductID); err != nil {
		return types.Review{}, err
	}

	// Fast path: answer the common duplicate with a clean conflict
	// instead of a failed insert. The index remains authoritative.
	const existsQuery = `
		SELECT EXISTS (
			SELECT 1 FROM reviews
			WHERE product_id = $1 AND user_id = $2 AND is_active
		)`
	var exists bool
	if err := tx.QueryRowContext(ctx, existsQuery, review.ProductID, review.UserID).Scan(&exists); err != nil {
		return types.Review{}, err
	}
	if exists {
		return types.Review{}, ErrConflict
	}

	review.CommentDate = time.Now()
	review.IsActive = true

	const insertQuery = `
		INSERT INTO reviews (product_id, user_id, grade, comment, comment_date, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := tx.QueryRowContext(
		ctx,
		insertQuery,
		review.ProductID,
		review.UserID,
		review.Grade,
		review.Comment,
		review.CommentDate,
		review.IsActive,
	).Scan(&review.ID); err != nil {
		if isUniqueViolation(err) {
			return types.Review{}, ErrConflict
		}
		return types.Review{}, err
	}

	if err := recomputeRating(ctx, tx, review.ProductID); err != nil {
		return types.Review{}, err
	}

	if err := tx.Commit(); err != nil {
		return types.Review{}, err
	}
	return review, nil
}

// SoftDelete marks a review inactive and recomputes the affected
// product's rating in the same transaction. It returns the product id
// so callers can reference the affected product. Deleting a missing or
// already-inactive review reports ErrNotFound.
func (r *ReviewRepository) SoftDelete(ctx context.Context, id int) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	const deleteQuery = `
		UPDATE reviews
		SET is_active = FALSE
		WHERE id = $1 AND is_active
		RETURNING product_id`
	var productID int
	if err := tx.QueryRowContext(ctx, deleteQuery, id).Scan(&productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, err
	}

	// The product may have gone inactive since the review was posted;
	// its rating still tracks the active review set.
	const lockQuery = `SELECT id FROM products WHERE id = $1 FOR UPDATE`
	var locked int
	if err := tx.QueryRowContext(ctx, lockQuery, productID).Scan(&locked); err != nil {
		return 0, err
	}

	if err := recomputeRating(ctx, tx, productID); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return productID, nil
}

// lockActiveProduct takes the product row lock that serializes rating
// recomputations, reporting ErrNotFound for missing or inactive
// products.
func lockActiveProduct(ctx context.Context, tx *sql.Tx, productID int) error {
	const query = `SELECT id FROM products WHERE id = $1 AND is_active FOR UPDATE`
	var id int
	if err := tx.QueryRowContext(ctx, query, productID).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// recomputeRating rewrites the product's rating as the mean grade of
// its active reviews, 0 when none remain.
func recomputeRating(ctx context.Context, tx *sql.Tx, productID int) error {
	const query = `
		UPDATE products
		SET rating = (
			SELECT COALESCE(AVG(grade), 0)
			FROM reviews
			WHERE product_id = $1 AND is_active
		)
		WHERE id = $1`
	_, err := tx.ExecContext(ctx, query, productID)
	return err
}
