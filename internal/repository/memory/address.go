// Package memory holds in-process repositories used for local development
// and tests. Data is lost on restart.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/uaidecants/storefront/internal/domain"
	"github.com/uaidecants/storefront/internal/repository"
	apperrors "github.com/uaidecants/storefront/pkg/errors"
)

// AddressRepository keeps address books in a map guarded by one mutex.
type AddressRepository struct {
	mu    sync.RWMutex
	books map[string][]domain.Address
}

var _ repository.AddressRepository = (*AddressRepository)(nil)

// NewAddressRepository creates an empty in-memory address repository.
func NewAddressRepository() *AddressRepository {
	return &AddressRepository{books: make(map[string][]domain.Address)}
}

// List returns a copy of the customer's book in insertion order.
func (r *AddressRepository) List(_ context.Context, customerID string) ([]domain.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Address, len(r.books[customerID]))
	copy(out, r.books[customerID])
	return out, nil
}

// Get returns a copy of one address.
func (r *AddressRepository) Get(_ context.Context, customerID, addressID string) (*domain.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.books[customerID] {
		if a.ID == addressID {
			return &a, nil
		}
	}
	return nil, apperrors.NotFound("address", addressID)
}

// ApplyBatch builds the new book on a copy and swaps it in only when every
// step succeeded.
func (r *AddressRepository) ApplyBatch(_ context.Context, b repository.AddressBatch) error {
	if b.Empty() {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	book := slices.Clone(r.books[b.CustomerID])

	for _, id := range b.Deletes {
		i := slices.IndexFunc(book, func(a domain.Address) bool { return a.ID == id })
		if i < 0 {
			return apperrors.NotFound("address", id)
		}
		book = slices.Delete(book, i, i+1)
	}

	for _, put := range b.Puts {
		put.CustomerID = b.CustomerID
		i := slices.IndexFunc(book, func(a domain.Address) bool { return a.ID == put.ID })
		if i < 0 {
			if r.ownedByOther(b.CustomerID, put.ID) {
				return apperrors.NotFound("address", put.ID)
			}
			book = append(book, put)
			continue
		}
		book[i] = put
	}

	for id, isDefault := range b.DefaultFlags {
		i := slices.IndexFunc(book, func(a domain.Address) bool { return a.ID == id })
		if i < 0 {
			return apperrors.NotFound("address", id)
		}
		book[i].IsDefault = isDefault
	}

	if len(book) == 0 {
		delete(r.books, b.CustomerID)
	} else {
		r.books[b.CustomerID] = book
	}
	return nil
}

func (r *AddressRepository) ownedByOther(customerID, addressID string) bool {
	for owner, book := range r.books {
		if owner == customerID {
			continue
		}
		if slices.ContainsFunc(book, func(a domain.Address) bool { return a.ID == addressID }) {
			return true
		}
	}
	return false
}
