package database

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"path"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	migrationSuffix = ".up.sql"

	// migrationLockKey serializes migration runs across replicas.
	migrationLockKey int64 = 0x73746f7265 // "store"

	createMigrationsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
	selectAppliedVersions = `SELECT version FROM schema_migrations`
	lockMigrations        = `SELECT pg_advisory_xact_lock($1)`
	recheckVersion        = `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`
	recordVersion         = `INSERT INTO schema_migrations (version) VALUES ($1)`
)

// isConnectionError reports whether err is a transport failure. Errors the
// server reported are never retried.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return false
	}
	if pgconn.SafeToRetry(err) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// RunMigrations applies the *.up.sql files of migrations in name order.
// Each file runs in its own transaction together with its schema_migrations
// row, under an advisory lock so replicas starting together apply it once.
func RunMigrations(ctx context.Context, db DBTX, migrations fs.FS, logger *slog.Logger) error {
	return retry(ctx, logger, "run migrations", isConnectionError, func() error {
		return migrate(ctx, db, migrations, logger)
	})
}

// pendingFiles lists the up migrations in migrations, sorted by name.
func pendingFiles(migrations fs.FS) ([]string, error) {
	names, err := fs.Glob(migrations, "*"+migrationSuffix)
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	slices.Sort(names)
	return names, nil
}

func appliedVersions(ctx context.Context, db DBTX) (map[string]bool, error) {
	rows, err := db.Query(ctx, selectAppliedVersions)
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	applied := make(map[string]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}
	return applied, nil
}

func migrate(ctx context.Context, db DBTX, migrations fs.FS, logger *slog.Logger) error {
	if _, err := db.Exec(ctx, createMigrationsTable); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	names, err := pendingFiles(migrations)
	if err != nil {
		return err
	}
	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return err
	}

	for _, name := range names {
		if applied[name] {
			continue
		}
		script, err := fs.ReadFile(migrations, name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		ran, err := apply(ctx, db, name, string(script))
		if err != nil {
			return err
		}
		if ran {
			logger.Info("migration applied", slog.String("version", strings.TrimSuffix(path.Base(name), migrationSuffix)))
		}
	}
	return nil
}

// apply runs one script. It reports false when another replica applied the
// version while this one waited for the lock.
func apply(ctx context.Context, db DBTX, name, script string) (bool, error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin migration %s: %w", name, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, lockMigrations, migrationLockKey); err != nil {
		return false, fmt.Errorf("lock migration %s: %w", name, err)
	}
	var done bool
	if err := tx.QueryRow(ctx, recheckVersion, name).Scan(&done); err != nil {
		return false, fmt.Errorf("check migration %s: %w", name, err)
	}
	if done {
		return false, nil
	}

	if _, err := tx.Exec(ctx, script); err != nil {
		return false, fmt.Errorf("execute migration %s: %w", name, err)
	}
	if _, err := tx.Exec(ctx, recordVersion, name); err != nil {
		return false, fmt.Errorf("record migration %s: %w", name, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit migration %s: %w", name, err)
	}
	return true, nil
}
