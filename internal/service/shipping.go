package service

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime/debug"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/uaidecants/storefront/internal/domain"
	"github.com/uaidecants/storefront/internal/normalize"
	"github.com/uaidecants/storefront/internal/provider"
	"github.com/uaidecants/storefront/internal/repository"
	apperrors "github.com/uaidecants/storefront/pkg/errors"
	"github.com/uaidecants/storefront/pkg/tracing"
)

// ShippingOptions is the seller-side configuration of the aggregator.
type ShippingOptions struct {
	OriginPostalCode string
	Dimensions       domain.Dimensions
	PickupEnabled    bool
	PickupCity       string
	ProviderTimeout  time.Duration
}

// QuoteInput holds the parameters for a shipping quote. A nil Items means
// the caller sent none, which is rejected; an empty slice is fine.
type QuoteInput struct {
	DestinationPostalCode string
	Items                 []domain.CartItem
}

// ShippingService prices a cart against every enabled provider at once.
// A provider that fails or times out contributes no quotes; only a
// malformed request fails the whole call.
type ShippingService struct {
	providers []provider.RateProvider
	cache     repository.QuoteCache
	opts      ShippingOptions
	logger    *slog.Logger
}

// NewShippingService creates a new shipping service. cache may be nil.
func NewShippingService(
	providers []provider.RateProvider,
	cache repository.QuoteCache,
	opts ShippingOptions,
	logger *slog.Logger,
) *ShippingService {
	return &ShippingService{
		providers: providers,
		cache:     cache,
		opts:      opts,
		logger:    logger,
	}
}

type providerResult struct {
	index  int
	quotes []domain.ShippingQuote
}

// Quote estimates the cart weight, queries the providers concurrently and
// returns every usable option sorted by price. If ctx ends before all
// providers answer, the stragglers are abandoned and ctx's error returned.
func (s *ShippingService) Quote(ctx context.Context, input QuoteInput) (*domain.QuoteResult, error) {
	destination := domain.DigitsOnly(input.DestinationPostalCode)
	if destination == "" {
		return nil, apperrors.InvalidInput("destination postal code is required")
	}
	if len(destination) != 8 {
		return nil, apperrors.InvalidInput("destination postal code must have 8 digits")
	}
	if input.Items == nil {
		return nil, apperrors.InvalidInput("items are required")
	}

	grams := normalize.EstimateCartWeightGrams(input.Items)
	req := provider.RateRequest{
		OriginPostalCode:      s.opts.OriginPostalCode,
		DestinationPostalCode: destination,
		WeightKg:              normalize.BillableWeightKg(grams),
		Dimensions:            s.opts.Dimensions,
	}

	ctx, span := tracing.Start(ctx, "shipping.Quote",
		attribute.Int("shipping.weight_grams", grams),
		attribute.Int("shipping.providers", len(s.providers)),
	)
	defer span.End()

	// Buffered so a provider finishing after we gave up never blocks.
	results := make(chan providerResult, len(s.providers))
	for i, p := range s.providers {
		go func() {
			results <- providerResult{index: i, quotes: s.quoteProvider(ctx, p, req)}
		}()
	}

	byProvider := make([][]domain.ShippingQuote, len(s.providers))
	for range s.providers {
		select {
		case res := <-results:
			byProvider[res.index] = res.quotes
		case <-ctx.Done():
			tracing.Fail(span, ctx.Err())
			return nil, fmt.Errorf("shipping quote: %w", ctx.Err())
		}
	}

	var quotes []domain.ShippingQuote
	for _, q := range byProvider {
		quotes = append(quotes, q...)
	}
	if s.opts.PickupEnabled {
		quotes = append(quotes, pickupQuote(s.opts.PickupCity))
	}
	quotes = sortedByPrice(quotes)

	QuotesReturned.Observe(float64(len(quotes)))
	span.SetAttributes(attribute.Int("shipping.quotes", len(quotes)))

	return &domain.QuoteResult{
		WeightGrams: grams,
		Dimensions:  s.opts.Dimensions,
		Quotes:      quotes,
	}, nil
}

// quoteProvider asks one provider, going through the cache when there is
// one. Every failure is logged and yields no quotes.
func (s *ShippingService) quoteProvider(ctx context.Context, p provider.RateProvider, req provider.RateRequest) []domain.ShippingQuote {
	name := p.Name()
	key := req.CacheKey(name)

	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.WarnContext(ctx, "shipping quote cache read failed",
				slog.String("provider", name),
				slog.String("error", err.Error()),
			)
		} else if ok {
			ProviderRequests.WithLabelValues(name, outcomeCacheHit).Inc()
			return cached
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.opts.ProviderTimeout)
	defer cancel()

	callCtx, span := tracing.Start(callCtx, "shipping.provider",
		attribute.String("shipping.provider", name),
	)
	defer span.End()

	start := time.Now()
	quotes, err := s.callProvider(callCtx, p, req)
	ProviderDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		tracing.Fail(span, err)
		ProviderRequests.WithLabelValues(name, outcomeError).Inc()
		if ctx.Err() == nil {
			s.logger.WarnContext(ctx, "shipping provider failed",
				slog.String("provider", name),
				slog.String("error", err.Error()),
			)
		}
		return nil
	}
	ProviderRequests.WithLabelValues(name, outcomeSuccess).Inc()

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, quotes); err != nil {
			s.logger.WarnContext(ctx, "shipping quote cache write failed",
				slog.String("provider", name),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.DebugContext(ctx, "shipping provider answered",
		slog.String("provider", name),
		slog.Int("quotes", len(quotes)),
	)
	return quotes
}

// callProvider runs p.Quote, turning a panic into a provider.Error so one
// misbehaving provider only loses its own quotes.
func (s *ShippingService) callProvider(ctx context.Context, p provider.RateProvider, req provider.RateRequest) (quotes []domain.ShippingQuote, err error) {
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		s.logger.ErrorContext(ctx, "shipping provider panicked",
			slog.String("provider", p.Name()),
			slog.Any("panic", rec),
			slog.String("stack", string(debug.Stack())),
		)
		quotes, err = nil, &provider.Error{Provider: p.Name(), Err: fmt.Errorf("panic: %v", rec)}
	}()
	return p.Quote(ctx, req)
}

func pickupQuote(city string) domain.ShippingQuote {
	return domain.ShippingQuote{
		Source:      "manual",
		Carrier:     "retirada",
		Name:        fmt.Sprintf("Retirar com Vendedor (%s)", city),
		ServiceCode: "pickup",
		Price:       0,
		Pickup:      true,
	}
}

// sortedByPrice drops entries whose price is not a finite non-negative
// number and stable-sorts the rest ascending by price.
func sortedByPrice(quotes []domain.ShippingQuote) []domain.ShippingQuote {
	out := make([]domain.ShippingQuote, 0, len(quotes))
	for _, q := range quotes {
		if math.IsNaN(q.Price) || math.IsInf(q.Price, 0) || q.Price < 0 {
			continue
		}
		out = append(out, q)
	}
	slices.SortStableFunc(out, func(a, b domain.ShippingQuote) int {
		return cmp.Compare(a.Price, b.Price)
	})
	return out
}
