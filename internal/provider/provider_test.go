package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uaidecants/storefront/internal/config"
	"github.com/uaidecants/storefront/internal/domain"
	"github.com/uaidecants/storefront/pkg/httpclient"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient() *httpclient.Client {
	return httpclient.New(httpclient.Config{Timeout: 2 * time.Second, MaxConnsPerHost: 4})
}

func sampleRequest() RateRequest {
	return RateRequest{
		OriginPostalCode:      "01001000",
		DestinationPostalCode: "38600000",
		WeightKg:              0.1,
		Dimensions:            domain.Dimensions{Height: 6, Width: 11, Length: 16},
	}
}

func decodeJSON(t *testing.T, raw string) any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v any
	require.NoError(t, dec.Decode(&v))
	return v
}

// ---------------------------------------------------------------------------
// Strategy.Normalize
// ---------------------------------------------------------------------------

func TestSuperFrete_Normalize(t *testing.T) {
	body := decodeJSON(t, `{"data":[
		{"id": 1, "name": "PAC", "price": "R$ 21,50", "company": {"name": "Correios"},
		 "delivery_time": {"min": 3, "max": 6}},
		{"id": 2, "service": "SEDEX", "prices": [{"price": 38.9}], "carrier": "Correios",
		 "deadline_min": "1", "deadline_max": "2"},
		{"id": 3, "name": "Mini Envios", "price": null, "error": "weight exceeded"},
		{"id": 4, "name": "Jadlog", "cost": 19.75}
	]}`)

	quotes := Strategies[SuperFrete].Normalize(body)
	require.Len(t, quotes, 3)

	assert.Equal(t, "superfrete", quotes[0].Source)
	assert.Equal(t, "Correios", quotes[0].Carrier)
	assert.Equal(t, "PAC", quotes[0].Name)
	assert.Equal(t, "1", quotes[0].ServiceCode)
	assert.Equal(t, 21.5, quotes[0].Price)
	require.NotNil(t, quotes[0].DeliveryRange)
	assert.Equal(t, 3, *quotes[0].DeliveryRange.From)
	assert.Equal(t, 6, *quotes[0].DeliveryRange.To)

	assert.Equal(t, "SEDEX", quotes[1].Name)
	assert.Equal(t, 38.9, quotes[1].Price)
	assert.Equal(t, 1, *quotes[1].DeliveryRange.From)

	// cost is a SuperFrete-specific fallback; no carrier yields the default.
	assert.Equal(t, 19.75, quotes[2].Price)
	assert.Equal(t, "Transportadora", quotes[2].Carrier)
	assert.Nil(t, quotes[2].DeliveryRange)
}

func TestSuperFrete_ListKeys(t *testing.T) {
	for _, raw := range []string{
		`[{"price": 10}]`,
		`{"data": [{"price": 10}]}`,
		`{"results": [{"price": 10}]}`,
		`{"quotes": [{"price": 10}]}`,
	} {
		assert.Len(t, Strategies[SuperFrete].Normalize(decodeJSON(t, raw)), 1, raw)
	}
	assert.Empty(t, Strategies[SuperFrete].Normalize(decodeJSON(t, `{"message": "unauthorized"}`)))
}

func TestMelhorEnvio_Normalize(t *testing.T) {
	body := decodeJSON(t, `[
		{"id": 1, "name": "PAC", "custom_price": "17.30", "company": {"name": "Correios"},
		 "delivery_range": {"min": 4, "max": 7}},
		{"id": 17, "name": "Mini Envios", "error": "Serviço indisponível"},
		{"id": 3, "name": ".Package", "price": "24.10", "company": {"name": "Jadlog"}, "delivery_time": 5}
	]`)

	quotes := Strategies[MelhorEnvio].Normalize(body)
	require.Len(t, quotes, 2)

	assert.Equal(t, 17.3, quotes[0].Price)
	assert.Equal(t, "1", quotes[0].ServiceCode)
	assert.Equal(t, 4, *quotes[0].DeliveryRange.From)
	assert.Equal(t, 7, *quotes[0].DeliveryRange.To)

	assert.Equal(t, "Jadlog", quotes[1].Carrier)
	assert.Equal(t, 5, *quotes[1].DeliveryRange.From)
	assert.Equal(t, 5, *quotes[1].DeliveryRange.To)
}

func TestMelhorEnvio_IgnoresSuperFreteOnlyKeys(t *testing.T) {
	// cost and results are not part of Melhor Envio's rules.
	assert.Empty(t, Strategies[MelhorEnvio].Normalize(decodeJSON(t, `[{"cost": 10}]`)))
	assert.Empty(t, Strategies[MelhorEnvio].Normalize(decodeJSON(t, `{"results": [{"price": 10}]}`)))
}

func TestLookup(t *testing.T) {
	v := decodeJSON(t, `{"a": {"b": [{"c": "x"}]}, "n": null}`)

	got, ok := lookup(v, "a.b.0.c")
	assert.True(t, ok)
	assert.Equal(t, "x", got)

	for _, path := range []string{"a.b.1.c", "a.b.x", "a.z", "n", "a.b.0.c.d"} {
		_, ok := lookup(v, path)
		assert.False(t, ok, path)
	}
}

// ---------------------------------------------------------------------------
// HTTPProvider
// ---------------------------------------------------------------------------

func TestHTTPProvider_SuperFrete(t *testing.T) {
	var gotBody quoteRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/quote", r.URL.Path)
		assert.Equal(t, "Bearer sf-token", r.Header.Get("Authorization"))
		assert.Equal(t, "sf-token", r.Header.Get("X-API-KEY"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":1,"name":"PAC","price":21.5,"company":{"name":"Correios"}}]}`))
	}))
	defer srv.Close()

	p := NewHTTPProvider(Strategies[SuperFrete], srv.URL+"/", "sf-token", testClient())
	quotes, err := p.Quote(context.Background(), sampleRequest())
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	assert.Equal(t, 21.5, quotes[0].Price)

	assert.Equal(t, "01001000", gotBody.From.PostalCode)
	assert.Equal(t, "38600000", gotBody.To.PostalCode)
	require.Len(t, gotBody.Products, 1)
	assert.Equal(t, 0.1, gotBody.Products[0].Weight)
	assert.Equal(t, 1, gotBody.Products[0].Quantity)
	assert.Equal(t, 11.0, gotBody.Products[0].Width)
	assert.True(t, gotBody.Options.NonCommercial)
	assert.False(t, gotBody.Options.Receipt)
}

func TestHTTPProvider_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/me/shipment/calculate", r.URL.Path)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Unauthenticated."}`))
	}))
	defer srv.Close()

	p := NewHTTPProvider(Strategies[MelhorEnvio], srv.URL, "bad", testClient())
	_, err := p.Quote(context.Background(), sampleRequest())
	require.Error(t, err)

	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "melhorenvio", perr.Provider)

	var statusErr *httpclient.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.True(t, statusErr.IsClientError())
}

func TestHTTPProvider_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	p := NewHTTPProvider(Strategies[SuperFrete], srv.URL, "t", testClient())
	_, err := p.Quote(context.Background(), sampleRequest())
	var perr *Error
	assert.ErrorAs(t, err, &perr)
}

func TestHTTPProvider_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	p := NewHTTPProvider(Strategies[SuperFrete], srv.URL, "t", testClient())
	_, err := p.Quote(ctx, sampleRequest())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}

// ---------------------------------------------------------------------------
// Build
// ---------------------------------------------------------------------------

func TestBuild(t *testing.T) {
	cfg := config.ProvidersConfig{
		TimeoutSeconds:        8,
		SuperFreteBaseURL:     "https://api.superfrete.com",
		MelhorEnvioBaseURL:    "https://www.melhorenvio.com.br",
		MelhorEnvioSandboxURL: "https://sandbox.melhorenvio.com.br",
		BreakerTimeout:        time.Second,
		BreakerFailureRatio:   0.5,
	}

	assert.Empty(t, Build(cfg, testLogger()))

	cfg.SuperFreteToken = "sf"
	cfg.MelhorEnvioSandbox = true
	cfg.MelhorEnvioToken = "live-only"
	providers := Build(cfg, testLogger())
	require.Len(t, providers, 1, "sandbox mode needs the sandbox token")
	assert.Equal(t, "superfrete", providers[0].Name())

	cfg.MelhorEnvioSandboxToken = "sandbox"
	providers = Build(cfg, testLogger())
	require.Len(t, providers, 2)
	me := providers[1].(*HTTPProvider)
	assert.Equal(t, "https://sandbox.melhorenvio.com.br", me.baseURL)
	assert.Equal(t, "sandbox", me.token)
}

func TestRateRequest_CacheKey(t *testing.T) {
	a := sampleRequest()
	b := sampleRequest()
	assert.Equal(t, a.CacheKey("superfrete"), b.CacheKey("superfrete"))
	assert.NotEqual(t, a.CacheKey("superfrete"), a.CacheKey("melhorenvio"))

	b.DestinationPostalCode = "70000000"
	assert.NotEqual(t, a.CacheKey("superfrete"), b.CacheKey("superfrete"))
}
