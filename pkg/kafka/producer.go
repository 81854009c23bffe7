package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// Delivery results recorded in eventDeliveries.
const (
	resultDelivered = "delivered"
	resultFailed    = "failed"
)

var (
	// eventDeliveries counts events per topic by result. Async failures are
	// counted when the writer reports them, after Publish has returned.
	eventDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "events",
			Name:      "deliveries_total",
			Help:      "Domain events handed to Kafka, by topic and result.",
		},
		[]string{"topic", "result"},
	)

	// publishWait is how long Publish blocked the caller.
	publishWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "storefront",
			Subsystem: "events",
			Name:      "publish_wait_seconds",
			Help:      "Time Publish spent in WriteMessages.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		},
	)
)

// ProducerConfig configures the kafka-go writer.
type ProducerConfig struct {
	Brokers      []string
	BatchSize    int
	BatchTimeout time.Duration
	// Async makes Publish return once the message is queued. Delivery
	// failures are then only visible in logs and metrics.
	Async bool
}

// DefaultProducerConfig returns an async producer configuration; events are
// side effects and must never hold up a request.
func DefaultProducerConfig(brokers []string) ProducerConfig {
	return ProducerConfig{
		Brokers:      brokers,
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		Async:        true,
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes Event envelopes. In async mode deliveries are counted
// by the writer's completion callback instead of Publish.
type Producer struct {
	writer  messageWriter
	brokers []string
	async   bool
	logger  *slog.Logger
}

// NewProducer builds a producer over a kafka-go writer.
func NewProducer(cfg ProducerConfig, logger *slog.Logger) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		Async:        cfg.Async,
		RequiredAcks: kafka.RequireAll,
	}
	if cfg.Async {
		w.Completion = completionLogger(logger)
	}

	return &Producer{writer: w, brokers: cfg.Brokers, async: cfg.Async, logger: logger}
}

func completionLogger(logger *slog.Logger) func([]kafka.Message, error) {
	return func(msgs []kafka.Message, err error) {
		result := resultDelivered
		if err != nil {
			result = resultFailed
		}
		for _, m := range msgs {
			eventDeliveries.WithLabelValues(m.Topic, result).Inc()
		}
		if err != nil {
			logger.Error("async kafka delivery failed",
				slog.Int("messages", len(msgs)),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Publish writes event to topic keyed by its aggregate ID so events for one
// aggregate stay ordered. Trace context from ctx is injected into headers.
func (p *Producer) Publish(ctx context.Context, topic string, event *Event) error {
	msg, err := event.Message(ctx, topic)
	if err != nil {
		return err
	}

	start := time.Now()
	err = p.writer.WriteMessages(ctx, msg)
	publishWait.Observe(time.Since(start).Seconds())
	if err != nil {
		eventDeliveries.WithLabelValues(topic, resultFailed).Inc()
		p.logger.ErrorContext(ctx, "failed to publish event",
			slog.String("topic", topic),
			slog.String("event_type", event.EventType),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("publish event to %s: %w", topic, err)
	}

	if !p.async {
		eventDeliveries.WithLabelValues(topic, resultDelivered).Inc()
	}
	p.logger.DebugContext(ctx, "event published",
		slog.String("topic", topic),
		slog.String("event_type", event.EventType),
		slog.String("aggregate_id", event.AggregateID),
	)
	return nil
}

// Ping checks that at least one broker answers.
func (p *Producer) Ping(ctx context.Context) error {
	return PingBrokers(ctx, p.brokers)
}

// PingBrokers dials each broker in turn and returns nil on the first that
// lists its cluster members.
func PingBrokers(ctx context.Context, brokers []string) error {
	if len(brokers) == 0 {
		return fmt.Errorf("kafka: no brokers configured")
	}

	var lastErr error
	for _, addr := range brokers {
		conn, err := kafka.DialContext(ctx, "tcp", addr)
		if err != nil {
			lastErr = err
			continue
		}
		_, err = conn.Brokers()
		_ = conn.Close()
		if err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("kafka ping: all brokers unreachable: %w", lastErr)
}

// Close flushes queued messages and closes the writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
