package types

import "time"

// Product is a sellable catalog item owned by a seller and attached to
// a category.
type Product struct {
	// ID is the unique identifier of the product.
	ID int `json:"id" db:"id"`

	// Name is the display name of the product.
	Name string `json:"name" db:"name"`

	// Description is optional free-form text about the product.
	Description string `json:"description" db:"description"`

	// Price is the unit price with two decimal places.
	Price float64 `json:"price" db:"price"`

	// ImageURL points at the product image in object storage, if one
	// has been uploaded.
	ImageURL string `json:"image_url" db:"image_url"`

	// Stock is the non-negative number of units available. Listings
	// only include products with stock remaining.
	Stock int `json:"stock" db:"stock"`

	// CategoryID references the category the product belongs to. The
	// category must be existing and active at write time.
	CategoryID int `json:"category_id" db:"category_id"`

	// SellerID identifies the owning user, who must hold the seller
	// role. Only the owner may update or delete the product.
	SellerID int `json:"seller_id" db:"seller_id"`

	// Rating is derived: the arithmetic mean grade of the product's
	// active reviews, or 0 when it has none. It is recomputed inside
	// the same transaction as every review mutation.
	Rating float64 `json:"rating" db:"rating"`

	// IsActive reports whether the product is logically present.
	IsActive bool `json:"is_active" db:"is_active"`

	// CreatedAt is the timestamp at which the product was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
