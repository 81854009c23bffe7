package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/uaidecants/storefront/internal/domain"
	"github.com/uaidecants/storefront/internal/event"
	"github.com/uaidecants/storefront/internal/repository"
	apperrors "github.com/uaidecants/storefront/pkg/errors"
	"github.com/uaidecants/storefront/pkg/validator"
)

// AddressService keeps each customer's address book bounded and with exactly
// one default address. Every change touching more than one address is
// handed to the repository as a single batch.
type AddressService struct {
	repo         repository.AddressRepository
	producer     *event.Producer
	maxAddresses int
	logger       *slog.Logger
	now          func() time.Time
}

// NewAddressService creates a new address service.
func NewAddressService(
	repo repository.AddressRepository,
	producer *event.Producer,
	maxAddresses int,
	logger *slog.Logger,
) *AddressService {
	return &AddressService{
		repo:         repo,
		producer:     producer,
		maxAddresses: maxAddresses,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// List returns the customer's addresses in storage order.
func (s *AddressService) List(ctx context.Context, customerID string) ([]domain.Address, error) {
	book, err := s.repo.List(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	return book, nil
}

// Add validates and stores a new address. The first address of a book is
// always the default; later ones are default only when requested, in which
// case the previous default is cleared in the same batch.
func (s *AddressService) Add(ctx context.Context, customerID string, input domain.AddressPatch) (*domain.Address, error) {
	now := s.now()
	address := domain.Address{
		ID:         uuid.NewString(),
		CustomerID: customerID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	input.ApplyTo(&address)
	if err := validator.Validate(address); err != nil {
		return nil, err
	}

	book, err := s.repo.List(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	if len(book) >= s.maxAddresses {
		return nil, apperrors.LimitExceeded("addresses", s.maxAddresses)
	}

	address.IsDefault = len(book) == 0 || (input.IsDefault != nil && *input.IsDefault)

	batch := repository.AddressBatch{
		CustomerID: customerID,
		Puts:       []domain.Address{address},
	}
	if address.IsDefault {
		batch.DefaultFlags = clearDefaults(book, address.ID)
	}

	if err := s.repo.ApplyBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("add address: %w", err)
	}

	s.logger.InfoContext(ctx, "address created",
		slog.String("customer_id", customerID),
		slog.String("address_id", address.ID),
		slog.Bool("is_default", address.IsDefault),
	)

	if err := s.producer.PublishAddressCreated(ctx, &address); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish address created event",
			slog.String("address_id", address.ID),
			slog.String("error", err.Error()),
		)
	}

	return &address, nil
}

// Update merges input onto the stored address and validates the merged
// result. Making it default clears every other default in the same batch.
// Clearing the flag on the current default is allowed and leaves the book
// without a default until a later change assigns one.
func (s *AddressService) Update(ctx context.Context, customerID, addressID string, input domain.AddressPatch) (*domain.Address, error) {
	current, err := s.repo.Get(ctx, customerID, addressID)
	if err != nil {
		return nil, fmt.Errorf("get address: %w", err)
	}

	merged := *current
	input.ApplyTo(&merged)
	if input.IsDefault != nil {
		merged.IsDefault = *input.IsDefault
	}
	if err := validator.Validate(merged); err != nil {
		return nil, err
	}
	merged.UpdatedAt = s.now()

	batch := repository.AddressBatch{
		CustomerID: customerID,
		Puts:       []domain.Address{merged},
	}
	if merged.IsDefault {
		book, err := s.repo.List(ctx, customerID)
		if err != nil {
			return nil, fmt.Errorf("list addresses: %w", err)
		}
		batch.DefaultFlags = clearDefaults(book, merged.ID)
	}

	if err := s.repo.ApplyBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("update address: %w", err)
	}

	s.logger.InfoContext(ctx, "address updated",
		slog.String("customer_id", customerID),
		slog.String("address_id", addressID),
		slog.Bool("is_default", merged.IsDefault),
	)

	if err := s.producer.PublishAddressUpdated(ctx, &merged); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish address updated event",
			slog.String("address_id", addressID),
			slog.String("error", err.Error()),
		)
	}

	return &merged, nil
}

// Delete removes an address. When the default goes and no other default
// remains, the first remaining address is promoted in the same batch.
func (s *AddressService) Delete(ctx context.Context, customerID, addressID string) error {
	book, err := s.repo.List(ctx, customerID)
	if err != nil {
		return fmt.Errorf("list addresses: %w", err)
	}

	idx := indexOf(book, addressID)
	if idx < 0 {
		return apperrors.NotFound("address", addressID)
	}
	deleted := book[idx]
	remaining := append(book[:idx:idx], book[idx+1:]...)

	batch := repository.AddressBatch{
		CustomerID: customerID,
		Deletes:    []string{addressID},
	}

	var promoted string
	if deleted.IsDefault && len(remaining) > 0 && domain.DefaultAddress(remaining) == nil {
		promoted = remaining[0].ID
		batch.DefaultFlags = map[string]bool{promoted: true}
	}

	if err := s.repo.ApplyBatch(ctx, batch); err != nil {
		return fmt.Errorf("delete address: %w", err)
	}

	s.logger.InfoContext(ctx, "address deleted",
		slog.String("customer_id", customerID),
		slog.String("address_id", addressID),
		slog.String("promoted_id", promoted),
	)

	if err := s.producer.PublishAddressDeleted(ctx, customerID, addressID, promoted); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish address deleted event",
			slog.String("address_id", addressID),
			slog.String("error", err.Error()),
		)
	}

	return nil
}

// clearDefaults returns a flag set turning off every default in book other
// than keepID, or nil when there is none.
func clearDefaults(book []domain.Address, keepID string) map[string]bool {
	var flags map[string]bool
	for _, a := range book {
		if a.IsDefault && a.ID != keepID {
			if flags == nil {
				flags = make(map[string]bool)
			}
			flags[a.ID] = false
		}
	}
	return flags
}

func indexOf(book []domain.Address, id string) int {
	for i := range book {
		if book[i].ID == id {
			return i
		}
	}
	return -1
}
