package postgres

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/uaidecants/storefront/internal/domain"
	"github.com/uaidecants/storefront/internal/repository"
	"github.com/uaidecants/storefront/pkg/database"
	apperrors "github.com/uaidecants/storefront/pkg/errors"
)

const dbSystem = "postgresql"

const addressColumns = `id, customer_id, recipient_name, street, number, complement,
	neighborhood, postal_code, city, state, phone, is_default, created_at, updated_at`

// AddressRepository implements repository.AddressRepository using PostgreSQL.
type AddressRepository struct {
	db database.DBTX
}

var _ repository.AddressRepository = (*AddressRepository)(nil)

// NewAddressRepository creates a new PostgreSQL-backed address repository.
func NewAddressRepository(db database.DBTX) *AddressRepository {
	return &AddressRepository{db: db}
}

// List returns the customer's addresses, oldest first.
func (r *AddressRepository) List(ctx context.Context, customerID string) (_ []domain.Address, err error) {
	query := `SELECT ` + addressColumns + `
		FROM addresses
		WHERE customer_id = $1
		ORDER BY created_at, id`

	ctx, done := database.TraceQuery(ctx, dbSystem, "address.list", query)
	defer func() { done(err) }()

	rows, err := r.db.Query(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	defer rows.Close()

	addresses := []domain.Address{}
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan address: %w", err)
		}
		addresses = append(addresses, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate addresses: %w", err)
	}

	return addresses, nil
}

// Get returns one of the customer's addresses.
func (r *AddressRepository) Get(ctx context.Context, customerID, addressID string) (_ *domain.Address, err error) {
	query := `SELECT ` + addressColumns + `
		FROM addresses
		WHERE id = $1 AND customer_id = $2`

	ctx, done := database.TraceQuery(ctx, dbSystem, "address.get", query)
	defer func() { done(err) }()

	a, err := scanAddress(r.db.QueryRow(ctx, query, addressID, customerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("address", addressID)
		}
		return nil, fmt.Errorf("get address: %w", err)
	}
	return a, nil
}

// ApplyBatch runs the batch in one transaction. The customer's rows are
// locked first. Flags that clear a default run before the upserts and flags
// that set one run after, so the one-default index is never violated midway.
func (r *AddressRepository) ApplyBatch(ctx context.Context, b repository.AddressBatch) (err error) {
	if b.Empty() {
		return nil
	}

	ctx, done := database.TraceQuery(ctx, dbSystem, "address.apply_batch", "")
	defer func() { done(err) }()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`SELECT id FROM addresses WHERE customer_id = $1 FOR UPDATE`,
		b.CustomerID,
	); err != nil {
		return fmt.Errorf("lock addresses: %w", err)
	}

	for _, id := range b.Deletes {
		ct, err := tx.Exec(ctx,
			`DELETE FROM addresses WHERE id = $1 AND customer_id = $2`,
			id, b.CustomerID,
		)
		if err != nil {
			return fmt.Errorf("delete address: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return apperrors.NotFound("address", id)
		}
	}

	b = b.Fold()

	for _, id := range flagsWithValue(b.DefaultFlags, false) {
		if err := setDefault(ctx, tx, b.CustomerID, id, false); err != nil {
			return err
		}
	}

	for i := range b.Puts {
		if err := upsertAddress(ctx, tx, b.CustomerID, &b.Puts[i]); err != nil {
			return err
		}
	}

	for _, id := range flagsWithValue(b.DefaultFlags, true) {
		if err := setDefault(ctx, tx, b.CustomerID, id, true); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("address book changed concurrently, retry")
		}
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

func upsertAddress(ctx context.Context, tx pgx.Tx, customerID string, a *domain.Address) error {
	query := `
		INSERT INTO addresses (` + addressColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			recipient_name = EXCLUDED.recipient_name,
			street = EXCLUDED.street,
			number = EXCLUDED.number,
			complement = EXCLUDED.complement,
			neighborhood = EXCLUDED.neighborhood,
			postal_code = EXCLUDED.postal_code,
			city = EXCLUDED.city,
			state = EXCLUDED.state,
			phone = EXCLUDED.phone,
			is_default = EXCLUDED.is_default,
			updated_at = EXCLUDED.updated_at
		WHERE addresses.customer_id = EXCLUDED.customer_id`

	ct, err := tx.Exec(ctx, query,
		a.ID,
		customerID,
		a.RecipientName,
		a.Street,
		a.Number,
		a.Complement,
		a.Neighborhood,
		a.PostalCode,
		a.City,
		a.State,
		a.Phone,
		a.IsDefault,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("address book changed concurrently, retry")
		}
		return fmt.Errorf("upsert address: %w", err)
	}
	// The id exists but belongs to someone else.
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("address", a.ID)
	}
	return nil
}

func setDefault(ctx context.Context, tx pgx.Tx, customerID, id string, isDefault bool) error {
	ct, err := tx.Exec(ctx,
		`UPDATE addresses SET is_default = $1, updated_at = now() WHERE id = $2 AND customer_id = $3`,
		isDefault, id, customerID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("address book changed concurrently, retry")
		}
		return fmt.Errorf("set default address: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("address", id)
	}
	return nil
}

// flagsWithValue returns the ids set to v in a stable order.
func flagsWithValue(flags map[string]bool, v bool) []string {
	var ids []string
	for id, f := range flags {
		if f == v {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

func scanAddress(row pgx.Row) (*domain.Address, error) {
	var a domain.Address
	err := row.Scan(
		&a.ID,
		&a.CustomerID,
		&a.RecipientName,
		&a.Street,
		&a.Number,
		&a.Complement,
		&a.Neighborhood,
		&a.PostalCode,
		&a.City,
		&a.State,
		&a.Phone,
		&a.IsDefault,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// isUniqueViolation reports a PostgreSQL unique constraint violation
// (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
