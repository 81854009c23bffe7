package repository

import (
	"context"

	"github.com/uaidecants/storefront/internal/domain"
)

// AddressBatch is one all-or-nothing change to a customer's address book.
// Implementations apply Deletes first, then Puts (insert or full replace),
// then DefaultFlags, so a flag may target an address written by the same
// batch.
type AddressBatch struct {
	CustomerID   string
	Puts         []domain.Address
	DefaultFlags map[string]bool
	Deletes      []string
}

// Empty reports whether the batch would change nothing.
func (b AddressBatch) Empty() bool {
	return len(b.Puts) == 0 && len(b.DefaultFlags) == 0 && len(b.Deletes) == 0
}

// Fold returns an equivalent batch in which no flag targets an address in
// Puts: such flags are written onto the put row instead. Backends that
// cannot write one record twice in a unit of work apply the folded form.
func (b AddressBatch) Fold() AddressBatch {
	out := AddressBatch{
		CustomerID:   b.CustomerID,
		Puts:         make([]domain.Address, len(b.Puts)),
		DefaultFlags: make(map[string]bool, len(b.DefaultFlags)),
		Deletes:      b.Deletes,
	}
	copy(out.Puts, b.Puts)
	for id, v := range b.DefaultFlags {
		out.DefaultFlags[id] = v
	}
	for i := range out.Puts {
		if v, ok := out.DefaultFlags[out.Puts[i].ID]; ok {
			out.Puts[i].IsDefault = v
			delete(out.DefaultFlags, out.Puts[i].ID)
		}
	}
	return out
}

// AddressRepository persists customer address books.
type AddressRepository interface {
	// List returns the customer's addresses in storage order (oldest first).
	List(ctx context.Context, customerID string) ([]domain.Address, error)

	// Get returns one address, or a NotFound error when it does not exist or
	// belongs to another customer.
	Get(ctx context.Context, customerID, addressID string) (*domain.Address, error)

	// ApplyBatch commits every change in b atomically.
	ApplyBatch(ctx context.Context, b AddressBatch) error
}

// CouponRepository persists the global coupon collection.
type CouponRepository interface {
	// GetByCode looks up a coupon by its normalized code.
	GetByCode(ctx context.Context, code string) (*domain.Coupon, error)

	GetByID(ctx context.Context, id string) (*domain.Coupon, error)

	// List returns every coupon ordered by code.
	List(ctx context.Context) ([]domain.Coupon, error)

	// Create stores a new coupon. A duplicate code yields AlreadyExists.
	Create(ctx context.Context, c *domain.Coupon) error

	Update(ctx context.Context, c *domain.Coupon) error

	Delete(ctx context.Context, id string) error
}

// CartRepository persists one cart per customer.
type CartRepository interface {
	// Get returns NotFound when the customer has no saved cart.
	Get(ctx context.Context, customerID string) (*domain.Cart, error)

	Save(ctx context.Context, cart *domain.Cart) error
}

// QuoteCache keeps recent provider answers keyed by request shape.
type QuoteCache interface {
	// Get reports ok=false on a miss.
	Get(ctx context.Context, key string) (quotes []domain.ShippingQuote, ok bool, err error)

	Set(ctx context.Context, key string, quotes []domain.ShippingQuote) error
}
