// Package event publishes address and coupon domain events to Kafka.
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/uaidecants/storefront/internal/domain"
	pkgkafka "github.com/uaidecants/storefront/pkg/kafka"
	"github.com/uaidecants/storefront/pkg/logger"
)

// Topics written by the checkout support service.
var (
	TopicAddressCreated = pkgkafka.Topic("address", "created")
	TopicAddressUpdated = pkgkafka.Topic("address", "updated")
	TopicAddressDeleted = pkgkafka.Topic("address", "deleted")

	TopicCouponCreated = pkgkafka.Topic("coupon", "created")
	TopicCouponUpdated = pkgkafka.Topic("coupon", "updated")
	TopicCouponDeleted = pkgkafka.Topic("coupon", "deleted")
)

// Aggregate types.
const (
	AggregateTypeAddress = "address"
	AggregateTypeCoupon  = "coupon"
)

// SourceCheckoutSupport identifies events originating from this service.
const SourceCheckoutSupport = "checkout-support"

// AddressData is the payload for address.created and address.updated.
type AddressData struct {
	ID         string `json:"id"`
	CustomerID string `json:"customer_id"`
	PostalCode string `json:"postal_code"`
	City       string `json:"city"`
	State      string `json:"state"`
	IsDefault  bool   `json:"is_default"`
}

// AddressDeletedData is the payload for address.deleted. PromotedID names
// the address that became default as part of the same change, if any.
type AddressDeletedData struct {
	ID         string `json:"id"`
	CustomerID string `json:"customer_id"`
	PromotedID string `json:"promoted_id,omitempty"`
}

// CouponData is the payload for coupon.created and coupon.updated.
type CouponData struct {
	ID     string            `json:"id"`
	Code   string            `json:"code"`
	Type   domain.CouponType `json:"type"`
	Value  float64           `json:"value"`
	Active bool              `json:"active"`
}

// CouponDeletedData is the payload for coupon.deleted.
type CouponDeletedData struct {
	ID string `json:"id"`
}

// Publisher is the slice of pkgkafka.Producer used here.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, *pkgkafka.Event) error { return nil }

// Producer publishes checkout support domain events.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer. A nil publisher yields a
// producer that drops every event, used when Kafka is disabled.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	if kafka == nil {
		kafka = nopPublisher{}
	}
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceCheckoutSupport, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}

func addressData(a *domain.Address) AddressData {
	return AddressData{
		ID:         a.ID,
		CustomerID: a.CustomerID,
		PostalCode: a.PostalCode,
		City:       a.City,
		State:      a.State,
		IsDefault:  a.IsDefault,
	}
}

// PublishAddressCreated publishes an address.created event.
func (p *Producer) PublishAddressCreated(ctx context.Context, a *domain.Address) error {
	return p.publish(ctx, TopicAddressCreated, a.ID, AggregateTypeAddress, addressData(a))
}

// PublishAddressUpdated publishes an address.updated event.
func (p *Producer) PublishAddressUpdated(ctx context.Context, a *domain.Address) error {
	return p.publish(ctx, TopicAddressUpdated, a.ID, AggregateTypeAddress, addressData(a))
}

// PublishAddressDeleted publishes an address.deleted event.
func (p *Producer) PublishAddressDeleted(ctx context.Context, customerID, addressID, promotedID string) error {
	return p.publish(ctx, TopicAddressDeleted, addressID, AggregateTypeAddress, AddressDeletedData{
		ID:         addressID,
		CustomerID: customerID,
		PromotedID: promotedID,
	})
}

func couponData(c *domain.Coupon) CouponData {
	return CouponData{ID: c.ID, Code: c.Code, Type: c.Type, Value: c.Value, Active: c.Active}
}

// PublishCouponCreated publishes a coupon.created event.
func (p *Producer) PublishCouponCreated(ctx context.Context, c *domain.Coupon) error {
	return p.publish(ctx, TopicCouponCreated, c.ID, AggregateTypeCoupon, couponData(c))
}

// PublishCouponUpdated publishes a coupon.updated event.
func (p *Producer) PublishCouponUpdated(ctx context.Context, c *domain.Coupon) error {
	return p.publish(ctx, TopicCouponUpdated, c.ID, AggregateTypeCoupon, couponData(c))
}

// PublishCouponDeleted publishes a coupon.deleted event.
func (p *Producer) PublishCouponDeleted(ctx context.Context, couponID string) error {
	return p.publish(ctx, TopicCouponDeleted, couponID, AggregateTypeCoupon, CouponDeletedData{ID: couponID})
}
