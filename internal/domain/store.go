package domain

import "time"

// Item is a points-store catalog entry priced in points.
type Item struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	Price       int       `json:"price"`
	CreatedAt   time.Time `json:"created_at"`
}

// ItemInput is the body for creating a catalog item.
type ItemInput struct {
	Name        string `json:"name" validate:"required,min=1,max=200"`
	Description string `json:"description" validate:"max=200"`
	Image       string `json:"image" validate:"omitempty,url,max=500"`
	Price       int    `json:"price" validate:"gte=0"`
}

// CheckoutLine is one item and quantity taken from the caller's cart.
type CheckoutLine struct {
	ItemID   int64 `json:"item_id" validate:"required,gt=0"`
	Quantity int   `json:"quantity" validate:"required,gte=1,lte=100"`
}

// CheckoutRequest is the body of a checkout.
type CheckoutRequest struct {
	Lines []CheckoutLine `json:"lines" validate:"required,min=1,dive"`
}

// OrderLine is a priced checkout line.
type OrderLine struct {
	Item      Item `json:"item"`
	Quantity  int  `json:"quantity"`
	LineTotal int  `json:"line_total"`
}

// CheckoutResult summarises a completed checkout.
type CheckoutResult struct {
	Lines   []OrderLine `json:"lines"`
	Total   int         `json:"total"`
	Balance int         `json:"balance"`
}
