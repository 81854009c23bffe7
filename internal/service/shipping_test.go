package service

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uaidecants/storefront/internal/domain"
	"github.com/uaidecants/storefront/internal/provider"
	"github.com/uaidecants/storefront/internal/repository"
	apperrors "github.com/uaidecants/storefront/pkg/errors"
)

// --- fake providers ---

type staticProvider struct {
	name   string
	quotes []domain.ShippingQuote
	err    error
	delay  time.Duration

	mu    sync.Mutex
	calls []provider.RateRequest
}

func (p *staticProvider) Name() string { return p.name }

func (p *staticProvider) Quote(ctx context.Context, req provider.RateRequest) ([]domain.ShippingQuote, error) {
	p.mu.Lock()
	p.calls = append(p.calls, req)
	p.mu.Unlock()

	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, &provider.Error{Provider: p.name, Err: ctx.Err()}
		}
	}
	if p.err != nil {
		return nil, &provider.Error{Provider: p.name, Err: p.err}
	}
	return p.quotes, nil
}

func (p *staticProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

type panickingProvider struct{}

func (panickingProvider) Name() string { return "broken" }

func (panickingProvider) Quote(context.Context, provider.RateRequest) ([]domain.ShippingQuote, error) {
	var m map[string]int
	m["boom"]++
	return nil, nil
}

// normalizingProvider runs a real strategy over a canned body.
type normalizingProvider struct {
	strategy provider.Strategy
	body     any
}

func (p normalizingProvider) Name() string { return p.strategy.ID }

func (p normalizingProvider) Quote(context.Context, provider.RateRequest) ([]domain.ShippingQuote, error) {
	return p.strategy.Normalize(p.body), nil
}

type mapCache struct {
	mu      sync.Mutex
	entries map[string][]domain.ShippingQuote
	getErr  error
}

var _ repository.QuoteCache = (*mapCache)(nil)

func (c *mapCache) Get(_ context.Context, key string) ([]domain.ShippingQuote, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	q, ok := c.entries[key]
	return q, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, quotes []domain.ShippingQuote) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[string][]domain.ShippingQuote)
	}
	c.entries[key] = quotes
	return nil
}

func testShippingOptions() ShippingOptions {
	return ShippingOptions{
		OriginPostalCode: "01001000",
		Dimensions:       domain.Dimensions{Height: 6, Width: 11, Length: 16},
		PickupEnabled:    true,
		PickupCity:       "Paracatu - MG",
		ProviderTimeout:  200 * time.Millisecond,
	}
}

func quote(source string, price float64) domain.ShippingQuote {
	return domain.ShippingQuote{Source: source, Carrier: "Correios", Name: source, Price: price}
}

func fiveML(qty int) []domain.CartItem {
	return []domain.CartItem{{Name: "Decant", Volume: "5ml", Quantity: qty}}
}

// ---------------------------------------------------------------------------
// Quote
// ---------------------------------------------------------------------------

func TestQuote_FallbackFieldAndTimeout(t *testing.T) {
	// Provider A prices under a secondary key; provider B never answers in time.
	a := normalizingProvider{
		strategy: provider.Strategies[provider.SuperFrete],
		body: map[string]any{"data": []any{
			map[string]any{"id": "1", "name": "PAC", "total": "R$ 23,40"},
		}},
	}
	b := &staticProvider{name: "slow", delay: 5 * time.Second, quotes: []domain.ShippingQuote{quote("slow", 1)}}

	svc := NewShippingService([]provider.RateProvider{a, b}, nil, testShippingOptions(), newTestLogger())

	start := time.Now()
	res, err := svc.Quote(context.Background(), QuoteInput{DestinationPostalCode: "38600-000", Items: fiveML(2)})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	require.Len(t, res.Quotes, 2)
	assert.True(t, res.Quotes[0].Pickup)
	assert.Equal(t, "Retirar com Vendedor (Paracatu - MG)", res.Quotes[0].Name)
	assert.Equal(t, "pickup", res.Quotes[0].ServiceCode)
	assert.Equal(t, "manual", res.Quotes[0].Source)
	assert.Equal(t, "superfrete", res.Quotes[1].Source)
	assert.Equal(t, 23.4, res.Quotes[1].Price)
	assert.Equal(t, 100, res.WeightGrams)
	assert.Equal(t, testShippingOptions().Dimensions, res.Dimensions)
}

func TestQuote_SortsByPriceStable(t *testing.T) {
	a := &staticProvider{name: "a", quotes: []domain.ShippingQuote{quote("a1", 30), quote("a2", 12)}}
	b := &staticProvider{name: "b", quotes: []domain.ShippingQuote{quote("b1", 12), quote("b2", 5)}}
	opts := testShippingOptions()
	opts.PickupEnabled = false

	svc := NewShippingService([]provider.RateProvider{a, b}, nil, opts, newTestLogger())
	res, err := svc.Quote(context.Background(), QuoteInput{DestinationPostalCode: "38600000", Items: []domain.CartItem{}})
	require.NoError(t, err)

	var names []string
	for _, q := range res.Quotes {
		names = append(names, q.Name)
	}
	assert.Equal(t, []string{"b2", "a2", "b1", "a1"}, names)
}

func TestQuote_DropsNonFiniteAndNegativePrices(t *testing.T) {
	a := &staticProvider{name: "a", quotes: []domain.ShippingQuote{
		quote("nan", math.NaN()), quote("inf", math.Inf(1)), quote("neg", -1), quote("ok", 9.5),
	}}
	svc := NewShippingService([]provider.RateProvider{a}, nil, testShippingOptions(), newTestLogger())

	res, err := svc.Quote(context.Background(), QuoteInput{DestinationPostalCode: "38600000", Items: fiveML(1)})
	require.NoError(t, err)
	require.Len(t, res.Quotes, 2)
	assert.True(t, res.Quotes[0].Pickup)
	assert.Equal(t, "ok", res.Quotes[1].Name)
}

func TestQuote_AllProvidersFailStillSucceeds(t *testing.T) {
	a := &staticProvider{name: "fail-a", err: errors.New("503")}
	b := &staticProvider{name: "fail-b", err: errors.New("bad json")}
	svc := NewShippingService([]provider.RateProvider{a, b}, nil, testShippingOptions(), newTestLogger())

	before := testutil.ToFloat64(ProviderRequests.WithLabelValues("fail-a", outcomeError))
	res, err := svc.Quote(context.Background(), QuoteInput{DestinationPostalCode: "38600000", Items: fiveML(1)})
	require.NoError(t, err)
	require.Len(t, res.Quotes, 1)
	assert.True(t, res.Quotes[0].Pickup)
	assert.Equal(t, before+1, testutil.ToFloat64(ProviderRequests.WithLabelValues("fail-a", outcomeError)))
}

func TestQuote_PanickingProviderContributesNothing(t *testing.T) {
	ok := &staticProvider{name: "ok", quotes: []domain.ShippingQuote{quote("ok", 19.9)}}
	svc := NewShippingService([]provider.RateProvider{panickingProvider{}, ok}, nil, testShippingOptions(), newTestLogger())

	before := testutil.ToFloat64(ProviderRequests.WithLabelValues("broken", outcomeError))
	var res *domain.QuoteResult
	require.NotPanics(t, func() {
		var err error
		res, err = svc.Quote(context.Background(), QuoteInput{DestinationPostalCode: "38600000", Items: fiveML(1)})
		require.NoError(t, err)
	})

	require.Len(t, res.Quotes, 2)
	assert.True(t, res.Quotes[0].Pickup)
	assert.Equal(t, "ok", res.Quotes[1].Name)
	assert.Equal(t, before+1, testutil.ToFloat64(ProviderRequests.WithLabelValues("broken", outcomeError)))
}

func TestQuote_NoProvidersNoPickup(t *testing.T) {
	opts := testShippingOptions()
	opts.PickupEnabled = false
	svc := NewShippingService(nil, nil, opts, newTestLogger())

	res, err := svc.Quote(context.Background(), QuoteInput{DestinationPostalCode: "38600000", Items: fiveML(1)})
	require.NoError(t, err)
	assert.NotNil(t, res.Quotes)
	assert.Empty(t, res.Quotes)
}

func TestQuote_RequestCarriesBillableWeight(t *testing.T) {
	a := &staticProvider{name: "a"}
	svc := NewShippingService([]provider.RateProvider{a}, nil, testShippingOptions(), newTestLogger())

	res, err := svc.Quote(context.Background(), QuoteInput{
		DestinationPostalCode: "38600000",
		Items:                 []domain.CartItem{{Name: "Big", Volume: "15ml", Quantity: 3}},
	})
	require.NoError(t, err)

	require.Equal(t, 1, a.callCount())
	req := a.calls[0]
	assert.Equal(t, "01001000", req.OriginPostalCode)
	assert.Equal(t, "38600000", req.DestinationPostalCode)
	assert.InDelta(t, float64(res.WeightGrams)/1000, req.WeightKg, 1e-9)
	assert.Greater(t, res.WeightGrams, 100)
}

func TestQuote_BadRequest(t *testing.T) {
	svc := NewShippingService(nil, nil, testShippingOptions(), newTestLogger())

	for _, in := range []QuoteInput{
		{DestinationPostalCode: "", Items: fiveML(1)},
		{DestinationPostalCode: "abc", Items: fiveML(1)},
		{DestinationPostalCode: "1234", Items: fiveML(1)},
		{DestinationPostalCode: "38600000", Items: nil},
	} {
		_, err := svc.Quote(context.Background(), in)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidInput), "%+v", in)
	}
}

func TestQuote_CallerCancellationReturnsEarly(t *testing.T) {
	slow := &staticProvider{name: "slow", delay: 5 * time.Second}
	opts := testShippingOptions()
	opts.ProviderTimeout = 10 * time.Second
	svc := NewShippingService([]provider.RateProvider{slow}, nil, opts, newTestLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := svc.Quote(ctx, QuoteInput{DestinationPostalCode: "38600000", Items: fiveML(1)})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestQuote_CachesSuccessfulAnswersOnly(t *testing.T) {
	ok := &staticProvider{name: "ok", quotes: []domain.ShippingQuote{quote("ok", 10)}}
	bad := &staticProvider{name: "bad", err: errors.New("boom")}
	cache := &mapCache{}
	svc := NewShippingService([]provider.RateProvider{ok, bad}, cache, testShippingOptions(), newTestLogger())
	in := QuoteInput{DestinationPostalCode: "38600000", Items: fiveML(1)}

	_, err := svc.Quote(context.Background(), in)
	require.NoError(t, err)
	res, err := svc.Quote(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, 1, ok.callCount(), "second answer comes from cache")
	assert.Equal(t, 2, bad.callCount(), "failures are not cached")
	assert.Len(t, res.Quotes, 2)
	assert.Len(t, cache.entries, 1)
}

func TestQuote_CacheErrorFallsThrough(t *testing.T) {
	ok := &staticProvider{name: "ok", quotes: []domain.ShippingQuote{quote("ok", 10)}}
	cache := &mapCache{getErr: errors.New("redis down")}
	svc := NewShippingService([]provider.RateProvider{ok}, cache, testShippingOptions(), newTestLogger())

	res, err := svc.Quote(context.Background(), QuoteInput{DestinationPostalCode: "38600000", Items: fiveML(1)})
	require.NoError(t, err)
	assert.Len(t, res.Quotes, 2)
	assert.Equal(t, 1, ok.callCount())
}
