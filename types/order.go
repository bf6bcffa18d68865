package types

import "time"

// Order and OrderItem are response shapes only. No table or route backs
// them yet; they document the purchase payload a checkout flow would
// return.
type Order struct {
	ID          int         `json:"id"`
	UserID      int         `json:"user_id"`
	Status      string      `json:"status"`
	TotalAmount float64     `json:"total_amount"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	Items       []OrderItem `json:"items"`
}

// OrderItem is a single line of an order with the price captured at
// purchase time.
type OrderItem struct {
	ID         int      `json:"id"`
	ProductID  int      `json:"product_id"`
	Quantity   int      `json:"quantity"`
	UnitPrice  float64  `json:"unit_price"`
	TotalPrice float64  `json:"total_price"`
	Product    *Product `json:"product,omitempty"`
}
