package service

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/uaidecants/storefront/internal/domain"
	"github.com/uaidecants/storefront/internal/event"
	"github.com/uaidecants/storefront/internal/repository"
	pkgkafka "github.com/uaidecants/storefront/pkg/kafka"
	"github.com/uaidecants/storefront/pkg/middleware"
)

// --- Mock Address Repository ---

type mockAddressRepository struct {
	mock.Mock
}

func (m *mockAddressRepository) List(ctx context.Context, customerID string) ([]domain.Address, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Address), args.Error(1)
}

func (m *mockAddressRepository) Get(ctx context.Context, customerID, addressID string) (*domain.Address, error) {
	args := m.Called(ctx, customerID, addressID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Address), args.Error(1)
}

func (m *mockAddressRepository) ApplyBatch(ctx context.Context, b repository.AddressBatch) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

// --- Mock Coupon Repository ---

type mockCouponRepository struct {
	mock.Mock
}

func (m *mockCouponRepository) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Coupon), args.Error(1)
}

func (m *mockCouponRepository) GetByID(ctx context.Context, id string) (*domain.Coupon, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Coupon), args.Error(1)
}

func (m *mockCouponRepository) List(ctx context.Context) ([]domain.Coupon, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Coupon), args.Error(1)
}

func (m *mockCouponRepository) Create(ctx context.Context, c *domain.Coupon) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *mockCouponRepository) Update(ctx context.Context, c *domain.Coupon) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *mockCouponRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- Mock Verifier ---

type mockVerifier struct {
	mock.Mock
}

func (m *mockVerifier) Verify(ctx context.Context, token string) (*middleware.Claims, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*middleware.Claims), args.Error(1)
}

// --- Event publisher ---

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, topic string, _ *pkgkafka.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.topics = append(r.topics, topic)
	return nil
}

func (r *recordingPublisher) Topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.topics...)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestProducer(pub *recordingPublisher) *event.Producer {
	return event.NewProducer(pub, newTestLogger())
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func floatPtr(f float64) *float64 { return &f }
