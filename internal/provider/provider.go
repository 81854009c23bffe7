// Package provider queries external shipping-rate APIs and maps their
// answers onto domain.ShippingQuote.
package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/uaidecants/storefront/internal/domain"
)

// RateRequest is what every provider is asked to price.
type RateRequest struct {
	OriginPostalCode      string
	DestinationPostalCode string
	WeightKg              float64
	Dimensions            domain.Dimensions
}

// CacheKey identifies requests that must get the same answer from one
// provider.
func (r RateRequest) CacheKey(provider string) string {
	return fmt.Sprintf("%s:%s:%s:%.3f:%gx%gx%g", provider,
		r.OriginPostalCode, r.DestinationPostalCode, r.WeightKg,
		r.Dimensions.Height, r.Dimensions.Width, r.Dimensions.Length)
}

// RateProvider returns zero or more priced quotes for a request.
type RateProvider interface {
	Name() string
	Quote(ctx context.Context, req RateRequest) ([]domain.ShippingQuote, error)
}

// HTTPDoer is satisfied by httpclient.Client and
// httpclient.CircuitBreakerClient.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Error reports a failed provider call. The aggregator logs it and moves
// on; it never reaches the HTTP caller.
type Error struct {
	Provider string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
