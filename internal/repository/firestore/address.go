// Package firestore stores address books and coupons in Cloud Firestore.
// Addresses live under customers/{customerID}/addresses/{addressID}; coupons
// in the top-level coupons collection keyed by coupon ID.
package firestore

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/uaidecants/storefront/internal/domain"
	"github.com/uaidecants/storefront/internal/repository"
	"github.com/uaidecants/storefront/pkg/database"
	apperrors "github.com/uaidecants/storefront/pkg/errors"
)

const dbSystem = "firestore"

// AddressRepository implements repository.AddressRepository on Firestore.
type AddressRepository struct {
	client *firestore.Client
}

var _ repository.AddressRepository = (*AddressRepository)(nil)

// NewAddressRepository creates a Firestore-backed address repository.
func NewAddressRepository(client *firestore.Client) *AddressRepository {
	return &AddressRepository{client: client}
}

func (r *AddressRepository) col(customerID string) *firestore.CollectionRef {
	return r.client.Collection("customers").Doc(customerID).Collection("addresses")
}

// List returns the book ordered by creation time, then document ID.
func (r *AddressRepository) List(ctx context.Context, customerID string) (_ []domain.Address, err error) {
	ctx, done := database.TraceQuery(ctx, dbSystem, "address.list", "customers/*/addresses")
	defer func() { done(err) }()

	iter := r.col(customerID).
		OrderBy("created_at", firestore.Asc).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	addresses := []domain.Address{}
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list addresses: %w", err)
		}
		a, err := decodeAddress(snap)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, *a)
	}
	return addresses, nil
}

// Get returns one address of the customer.
func (r *AddressRepository) Get(ctx context.Context, customerID, addressID string) (_ *domain.Address, err error) {
	ctx, done := database.TraceQuery(ctx, dbSystem, "address.get", "customers/*/addresses/*")
	defer func() { done(err) }()

	snap, err := r.col(customerID).Doc(addressID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, apperrors.NotFound("address", addressID)
	}
	if err != nil {
		return nil, fmt.Errorf("get address: %w", err)
	}
	return decodeAddress(snap)
}

// ApplyBatch commits the change as one WriteBatch. Deletes and flag updates
// carry an Exists precondition, so a vanished document fails the whole
// commit instead of being recreated or silently skipped.
func (r *AddressRepository) ApplyBatch(ctx context.Context, b repository.AddressBatch) (err error) {
	if b.Empty() {
		return nil
	}

	ctx, done := database.TraceQuery(ctx, dbSystem, "address.apply_batch", "customers/*/addresses")
	defer func() { done(err) }()

	b = b.Fold()
	col := r.col(b.CustomerID)
	batch := r.client.Batch()

	for _, id := range b.Deletes {
		batch.Delete(col.Doc(id), firestore.Exists)
	}
	for _, a := range b.Puts {
		a.CustomerID = b.CustomerID
		batch.Set(col.Doc(a.ID), a)
	}

	ids := make([]string, 0, len(b.DefaultFlags))
	for id := range b.DefaultFlags {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		batch.Update(col.Doc(id), []firestore.Update{
			{Path: "is_default", Value: b.DefaultFlags[id]},
			{Path: "updated_at", Value: firestore.ServerTimestamp},
		})
	}

	if _, err := batch.Commit(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return apperrors.NotFound("address", firstID(b))
		}
		return fmt.Errorf("commit address batch: %w", err)
	}
	return nil
}

func decodeAddress(snap *firestore.DocumentSnapshot) (*domain.Address, error) {
	var a domain.Address
	if err := snap.DataTo(&a); err != nil {
		return nil, fmt.Errorf("decode address %s: %w", snap.Ref.ID, err)
	}
	a.ID = snap.Ref.ID
	return &a, nil
}

// firstID names an address for the NotFound message; Firestore does not
// report which write failed its precondition.
func firstID(b repository.AddressBatch) string {
	if len(b.Deletes) > 0 {
		return b.Deletes[0]
	}
	for id := range b.DefaultFlags {
		return id
	}
	return ""
}
