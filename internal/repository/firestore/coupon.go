package firestore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/uaidecants/storefront/internal/domain"
	"github.com/uaidecants/storefront/internal/repository"
	"github.com/uaidecants/storefront/pkg/database"
	apperrors "github.com/uaidecants/storefront/pkg/errors"
)

// errCodeTaken aborts a transaction that would duplicate a coupon code.
var errCodeTaken = errors.New("coupon code taken")

// CouponRepository implements repository.CouponRepository on Firestore.
type CouponRepository struct {
	client *firestore.Client
}

var _ repository.CouponRepository = (*CouponRepository)(nil)

// NewCouponRepository creates a Firestore-backed coupon repository.
func NewCouponRepository(client *firestore.Client) *CouponRepository {
	return &CouponRepository{client: client}
}

func (r *CouponRepository) col() *firestore.CollectionRef {
	return r.client.Collection("coupons")
}

func (r *CouponRepository) byCode(code string) firestore.Query {
	return r.col().Where("code", "==", code).Limit(1)
}

// GetByCode finds the coupon whose stored code equals code.
func (r *CouponRepository) GetByCode(ctx context.Context, code string) (_ *domain.Coupon, err error) {
	ctx, done := database.TraceQuery(ctx, dbSystem, "coupon.get_by_code", "coupons where code ==")
	defer func() { done(err) }()

	iter := r.byCode(code).Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return nil, apperrors.NotFound("coupon", code)
	}
	if err != nil {
		return nil, fmt.Errorf("query coupon: %w", err)
	}
	return decodeCoupon(snap)
}

// GetByID reads one coupon document.
func (r *CouponRepository) GetByID(ctx context.Context, id string) (_ *domain.Coupon, err error) {
	ctx, done := database.TraceQuery(ctx, dbSystem, "coupon.get", "coupons/*")
	defer func() { done(err) }()

	snap, err := r.col().Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, apperrors.NotFound("coupon", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	return decodeCoupon(snap)
}

// List returns all coupons ordered by code.
func (r *CouponRepository) List(ctx context.Context) (_ []domain.Coupon, err error) {
	ctx, done := database.TraceQuery(ctx, dbSystem, "coupon.list", "coupons order by code")
	defer func() { done(err) }()

	iter := r.col().OrderBy("code", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	coupons := []domain.Coupon{}
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list coupons: %w", err)
		}
		c, err := decodeCoupon(snap)
		if err != nil {
			return nil, err
		}
		coupons = append(coupons, *c)
	}
	return coupons, nil
}

// Create stores c after checking, in the same transaction, that no other
// coupon uses its code.
func (r *CouponRepository) Create(ctx context.Context, c *domain.Coupon) (err error) {
	ctx, done := database.TraceQuery(ctx, dbSystem, "coupon.create", "coupons")
	defer func() { done(err) }()

	err = r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := r.ensureCodeFree(tx, c.Code, ""); err != nil {
			return err
		}
		return tx.Create(r.col().Doc(c.ID), c)
	})
	return r.mapWriteErr(err, c)
}

// Update replaces an existing coupon document.
func (r *CouponRepository) Update(ctx context.Context, c *domain.Coupon) (err error) {
	ctx, done := database.TraceQuery(ctx, dbSystem, "coupon.update", "coupons/*")
	defer func() { done(err) }()

	ref := r.col().Doc(c.ID)
	err = r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			return err
		}
		if err := r.ensureCodeFree(tx, c.Code, c.ID); err != nil {
			return err
		}
		return tx.Set(ref, c)
	})
	return r.mapWriteErr(err, c)
}

// Delete removes a coupon; a missing document is NotFound.
func (r *CouponRepository) Delete(ctx context.Context, id string) (err error) {
	ctx, done := database.TraceQuery(ctx, dbSystem, "coupon.delete", "coupons/*")
	defer func() { done(err) }()

	_, err = r.col().Doc(id).Delete(ctx, firestore.Exists)
	if status.Code(err) == codes.NotFound {
		return apperrors.NotFound("coupon", id)
	}
	if err != nil {
		return fmt.Errorf("delete coupon: %w", err)
	}
	return nil
}

func (r *CouponRepository) ensureCodeFree(tx *firestore.Transaction, code, exceptID string) error {
	iter := tx.Documents(r.byCode(code))
	defer iter.Stop()

	snap, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return nil
	}
	if err != nil {
		return err
	}
	if snap.Ref.ID != exceptID {
		return errCodeTaken
	}
	return nil
}

func (r *CouponRepository) mapWriteErr(err error, c *domain.Coupon) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errCodeTaken), status.Code(err) == codes.AlreadyExists:
		return apperrors.AlreadyExists("coupon", "code", c.Code)
	case status.Code(err) == codes.NotFound:
		return apperrors.NotFound("coupon", c.ID)
	default:
		return fmt.Errorf("write coupon: %w", err)
	}
}

func decodeCoupon(snap *firestore.DocumentSnapshot) (*domain.Coupon, error) {
	var c domain.Coupon
	if err := snap.DataTo(&c); err != nil {
		return nil, fmt.Errorf("decode coupon %s: %w", snap.Ref.ID, err)
	}
	c.ID = snap.Ref.ID
	return &c, nil
}
