package domain

// DeliveryRange is a delivery estimate in business days.
type DeliveryRange struct {
	From *int `json:"from,omitempty"`
	To   *int `json:"to,omitempty"`
}

// ShippingQuote is one normalized shipping option.
type ShippingQuote struct {
	Source        string         `json:"source"`
	Carrier       string         `json:"carrier"`
	Name          string         `json:"name"`
	ServiceCode   string         `json:"service_code"`
	Price         float64        `json:"price"`
	DeliveryRange *DeliveryRange `json:"delivery_range"`
	Pickup        bool           `json:"pickup"`
}

// Dimensions of the standard box, in centimetres.
type Dimensions struct {
	Height float64 `json:"height"`
	Width  float64 `json:"width"`
	Length float64 `json:"length"`
}

// QuoteResult is the aggregator's response.
type QuoteResult struct {
	WeightGrams int             `json:"weight_grams"`
	Dimensions  Dimensions      `json:"dimensions"`
	Quotes      []ShippingQuote `json:"quotes"`
}
