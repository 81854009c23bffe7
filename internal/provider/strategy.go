package provider

import (
	"net/http"

	"github.com/uaidecants/storefront/internal/domain"
)

// Provider identifiers.
const (
	SuperFrete  = "superfrete"
	MelhorEnvio = "melhorenvio"
)

const defaultCarrier = "Transportadora"

// Strategy describes how to call one provider and read its answer. Field
// rules are dotted paths tried in order; the first usable value wins.
type Strategy struct {
	ID       string
	Path     string
	Headers  func(token string) http.Header
	ListKeys []string

	Price       []string
	Carrier     []string
	Name        []string
	ServiceCode []string
	DeliveryMin []string
	DeliveryMax []string
}

// delivery paths shared by both providers.
var (
	deliveryMin = []string{"delivery_range.from", "delivery_range.min", "delivery_time.min", "deadline_min", "delivery_time"}
	deliveryMax = []string{"delivery_range.to", "delivery_range.max", "delivery_time.max", "deadline_max", "delivery_time"}
)

// Strategies is the table of supported providers.
var Strategies = map[string]Strategy{
	SuperFrete: {
		ID:   SuperFrete,
		Path: "/api/v1/quote",
		Headers: func(token string) http.Header {
			// Tenants disagree on which of the two headers carries the key.
			h := bearer(token)
			h.Set("X-API-KEY", token)
			return h
		},
		ListKeys:    []string{"data", "results", "quotes"},
		Price:       []string{"price", "cost", "total", "prices.0.price"},
		Carrier:     []string{"company.name", "carrier", "provider"},
		Name:        []string{"name", "service", "service_name"},
		ServiceCode: []string{"service_code", "id", "service"},
		DeliveryMin: deliveryMin,
		DeliveryMax: deliveryMax,
	},
	MelhorEnvio: {
		ID:          MelhorEnvio,
		Path:        "/api/v2/me/shipment/calculate",
		Headers:     bearer,
		ListKeys:    []string{"data"},
		Price:       []string{"price", "custom_price", "total", "prices.0.price"},
		Carrier:     []string{"company.name", "carrier"},
		Name:        []string{"name", "service", "service_name"},
		ServiceCode: []string{"service", "id", "service_code"},
		DeliveryMin: deliveryMin,
		DeliveryMax: deliveryMax,
	},
}

func bearer(token string) http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	h.Set("Authorization", "Bearer "+token)
	return h
}

// Normalize maps a decoded response body onto quotes. Entries without a
// resolvable price are dropped; a zero price is never assumed.
func (s Strategy) Normalize(body any) []domain.ShippingQuote {
	list := listOf(body, s.ListKeys)
	quotes := make([]domain.ShippingQuote, 0, len(list))
	for _, entry := range list {
		if _, ok := entry.(map[string]any); !ok {
			continue
		}
		price, ok := firstMoney(entry, s.Price)
		if !ok {
			continue
		}
		q := domain.ShippingQuote{
			Source:      s.ID,
			Carrier:     firstString(entry, s.Carrier, defaultCarrier),
			Name:        firstString(entry, s.Name, ""),
			ServiceCode: firstString(entry, s.ServiceCode, ""),
			Price:       price,
		}
		from, to := firstInt(entry, s.DeliveryMin), firstInt(entry, s.DeliveryMax)
		if from != nil || to != nil {
			q.DeliveryRange = &domain.DeliveryRange{From: from, To: to}
		}
		quotes = append(quotes, q)
	}
	return quotes
}
