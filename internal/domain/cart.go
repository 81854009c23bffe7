package domain

import "time"

// CartItem is one cart line. Volume is a tier label such as "5ml".
type CartItem struct {
	Name      string   `json:"name" validate:"required,max=200"`
	Volume    string   `json:"volume" validate:"max=32"`
	Quantity  int      `json:"quantity" validate:"gte=1,lte=99"`
	UnitPrice *float64 `json:"unit_price,omitempty" validate:"omitempty,gte=0"`
}

// Cart is a customer's saved cart.
type Cart struct {
	CustomerID string     `json:"customer_id"`
	Items      []CartItem `json:"items"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
