package types

// Category groups products and may nest under a parent category.
// The parent relation is recursive even though catalogs in practice
// stay one level deep.
type Category struct {
	// ID is the unique identifier of the category.
	ID int `json:"id" db:"id"`

	// Name is the human-readable category name.
	Name string `json:"name" db:"name"`

	// ParentID references the parent category, if any. A set parent
	// must itself be an existing active category.
	ParentID *int `json:"parent_id" db:"parent_id"`

	// IsActive reports whether the category is logically present.
	// Inactive categories hide their products from all listings.
	IsActive bool `json:"is_active" db:"is_active"`
}
