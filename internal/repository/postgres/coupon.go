package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/uaidecants/storefront/internal/domain"
	"github.com/uaidecants/storefront/internal/repository"
	"github.com/uaidecants/storefront/pkg/database"
	apperrors "github.com/uaidecants/storefront/pkg/errors"
)

const couponColumns = `id, code, type, value, min_subtotal, active, expires_at,
	require_login, created_at, updated_at`

// CouponRepository implements repository.CouponRepository using PostgreSQL.
type CouponRepository struct {
	db database.DBTX
}

var _ repository.CouponRepository = (*CouponRepository)(nil)

// NewCouponRepository creates a new PostgreSQL-backed coupon repository.
func NewCouponRepository(db database.DBTX) *CouponRepository {
	return &CouponRepository{db: db}
}

// GetByCode retrieves a coupon by its normalized code.
func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`
	return r.scanOne(ctx, "coupon.get_by_code", query, code)
}

// GetByID retrieves a coupon by its ID.
func (r *CouponRepository) GetByID(ctx context.Context, id string) (*domain.Coupon, error) {
	query := `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`
	return r.scanOne(ctx, "coupon.get", query, id)
}

// List returns every coupon ordered by code.
func (r *CouponRepository) List(ctx context.Context) (_ []domain.Coupon, err error) {
	query := `SELECT ` + couponColumns + ` FROM coupons ORDER BY code`

	ctx, done := database.TraceQuery(ctx, dbSystem, "coupon.list", query)
	defer func() { done(err) }()

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	defer rows.Close()

	coupons := []domain.Coupon{}
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("scan coupon: %w", err)
		}
		coupons = append(coupons, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coupons: %w", err)
	}
	return coupons, nil
}

// Create inserts a new coupon.
func (r *CouponRepository) Create(ctx context.Context, c *domain.Coupon) (err error) {
	query := `
		INSERT INTO coupons (` + couponColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	ctx, done := database.TraceQuery(ctx, dbSystem, "coupon.create", query)
	defer func() { done(err) }()

	_, err = r.db.Exec(ctx, query,
		c.ID,
		c.Code,
		c.Type,
		c.Value,
		c.MinSubtotal,
		c.Active,
		c.ExpiresAt,
		c.RequireLogin,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("coupon", "code", c.Code)
		}
		return fmt.Errorf("insert coupon: %w", err)
	}
	return nil
}

// Update replaces every mutable field of an existing coupon.
func (r *CouponRepository) Update(ctx context.Context, c *domain.Coupon) (err error) {
	query := `
		UPDATE coupons
		SET code = $2, type = $3, value = $4, min_subtotal = $5, active = $6,
			expires_at = $7, require_login = $8, updated_at = $9
		WHERE id = $1`

	ctx, done := database.TraceQuery(ctx, dbSystem, "coupon.update", query)
	defer func() { done(err) }()

	ct, err := r.db.Exec(ctx, query,
		c.ID,
		c.Code,
		c.Type,
		c.Value,
		c.MinSubtotal,
		c.Active,
		c.ExpiresAt,
		c.RequireLogin,
		c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("coupon", "code", c.Code)
		}
		return fmt.Errorf("update coupon: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("coupon", c.ID)
	}
	return nil
}

// Delete removes a coupon by ID.
func (r *CouponRepository) Delete(ctx context.Context, id string) (err error) {
	query := `DELETE FROM coupons WHERE id = $1`

	ctx, done := database.TraceQuery(ctx, dbSystem, "coupon.delete", query)
	defer func() { done(err) }()

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete coupon: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("coupon", id)
	}
	return nil
}

func (r *CouponRepository) scanOne(ctx context.Context, operation, query string, arg string) (_ *domain.Coupon, err error) {
	ctx, done := database.TraceQuery(ctx, dbSystem, operation, query)
	defer func() { done(err) }()

	c, err := scanCoupon(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("coupon", arg)
		}
		return nil, fmt.Errorf("get coupon: %w", err)
	}
	return c, nil
}

func scanCoupon(row pgx.Row) (*domain.Coupon, error) {
	var c domain.Coupon
	err := row.Scan(
		&c.ID,
		&c.Code,
		&c.Type,
		&c.Value,
		&c.MinSubtotal,
		&c.Active,
		&c.ExpiresAt,
		&c.RequireLogin,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
