package types

import "time"

// Review is a buyer's grade of a product. At most one active review may
// exist per (product, user) pair; the storage layer enforces this with
// a partial unique index.
type Review struct {
	ID        int    `json:"id" db:"id"`
	ProductID int    `json:"product_id" db:"product_id"`
	UserID    int    `json:"user_id" db:"user_id"`

	// Grade is an integer in [1,5].
	Grade int `json:"grade" db:"grade"`

	// Comment is optional free-form feedback.
	Comment string `json:"comment" db:"comment"`

	// CommentDate is when the review was posted.
	CommentDate time.Time `json:"comment_date" db:"comment_date"`

	// IsActive reports whether the review still counts toward the
	// product rating. Soft-deleted reviews stay in storage inactive.
	IsActive bool `json:"is_active" db:"is_active"`
}
