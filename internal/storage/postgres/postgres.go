// Package postgres implements the domain repositories on PostgreSQL.
//
// Every stock-affecting operation runs inside one transaction that takes
// row locks on the affected stock_levels rows in ascending product-ID
// order. Lock waits are bounded by lock_timeout; transactions that lose a
// lock race or deadlock are retried a bounded number of times before the
// failure surfaces as stock.ErrConflict.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/warestock/warestock/db"
	"github.com/warestock/warestock/internal/domain/stock"
)

const (
	lockTimeout  = 2 * time.Second
	maxAttempts  = 3
	retryBackoff = 50 * time.Millisecond
)

// NewPool creates a pgxpool.Pool configured with shopspring/decimal support
// for NUMERIC columns.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	return pool, nil
}

// RunMigrations executes the embedded DDL schema against the pool.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, db.Schema)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// inTx runs fn inside a transaction with a bounded lock wait. The
// transaction is committed when fn returns nil and rolled back otherwise.
func inTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", lockTimeout.Milliseconds())); err != nil {
		return errors.Wrap(err, "set lock timeout")
	}

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// inTxRetry runs fn via inTx, retrying transient lock failures with backoff.
// After the attempts are exhausted the error is reported as stock.ErrConflict
// so callers can surface a retryable conflict.
func inTxRetry(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = inTx(ctx, pool, fn)
		if err == nil || !isLockConflict(err) {
			return err
		}
		select {
		case <-time.After(retryBackoff * time.Duration(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return errors.Wrapf(stock.ErrConflict, "after %d attempts: %v", maxAttempts, err)
}

// isLockConflict reports whether err is a transient locking failure:
// lock_not_available (lock_timeout), deadlock_detected, or
// serialization_failure.
func isLockConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "55P03", "40P01", "40001":
		return true
	}
	return false
}
