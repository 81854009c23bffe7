package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/uaidecants/storefront/internal/domain"
	"github.com/uaidecants/storefront/pkg/httpclient"
)

// maxResponseBytes caps how much of a provider answer is read.
const maxResponseBytes = 2 << 20

// HTTPProvider calls a provider's JSON quote endpoint described by a
// Strategy.
type HTTPProvider struct {
	strategy Strategy
	baseURL  string
	token    string
	client   HTTPDoer
}

var _ RateProvider = (*HTTPProvider)(nil)

// NewHTTPProvider builds a provider for strategy at baseURL.
func NewHTTPProvider(strategy Strategy, baseURL, token string, client HTTPDoer) *HTTPProvider {
	return &HTTPProvider{
		strategy: strategy,
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    token,
		client:   client,
	}
}

// Name returns the provider identifier.
func (p *HTTPProvider) Name() string {
	return p.strategy.ID
}

type postalCode struct {
	PostalCode string `json:"postal_code"`
}

type quoteProduct struct {
	Weight   float64 `json:"weight"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Length   float64 `json:"length"`
	Quantity int     `json:"quantity"`
}

type quoteOptions struct {
	Receipt       bool `json:"receipt"`
	OwnHand       bool `json:"own_hand"`
	Reverse       bool `json:"reverse"`
	NonCommercial bool `json:"non_commercial"`
}

type quoteRequest struct {
	From     postalCode     `json:"from"`
	To       postalCode     `json:"to"`
	Products []quoteProduct `json:"products"`
	Options  quoteOptions   `json:"options"`
}

// Quote posts the package to the provider and normalizes its answer. Any
// failure is returned as *Error.
func (p *HTTPProvider) Quote(ctx context.Context, req RateRequest) ([]domain.ShippingQuote, error) {
	quotes, err := p.quote(ctx, req)
	if err != nil {
		return nil, &Error{Provider: p.strategy.ID, Err: err}
	}
	return quotes, nil
}

func (p *HTTPProvider) quote(ctx context.Context, req RateRequest) ([]domain.ShippingQuote, error) {
	body, err := json.Marshal(quoteRequest{
		From: postalCode{PostalCode: req.OriginPostalCode},
		To:   postalCode{PostalCode: req.DestinationPostalCode},
		Products: []quoteProduct{{
			Weight:   req.WeightKg,
			Width:    req.Dimensions.Width,
			Height:   req.Dimensions.Height,
			Length:   req.Dimensions.Length,
			Quantity: 1,
		}},
		Options: quoteOptions{NonCommercial: true},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal quote request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+p.strategy.Path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create quote request: %w", err)
	}
	httpReq.Header = p.strategy.Headers(p.token)

	resp, err := p.client.Do(ctx, httpReq)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", p.strategy.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, httpclient.ParseResponseError(resp, p.strategy.ID)
	}

	dec := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", p.strategy.ID, err)
	}

	return p.strategy.Normalize(decoded), nil
}
