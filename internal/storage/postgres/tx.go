package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clubware/gearledger/internal/domain"
)

const defaultTxAttempts = 3

type txKey struct{}

// txRunner carries the pool and transaction policy shared by all
// repositories. Queries issued with a context produced by WithTx run on that
// transaction; otherwise they hit the pool directly.
type txRunner struct {
	pool     *pgxpool.Pool
	attempts int
}

// Option adjusts repository transaction behavior.
type Option func(*txRunner)

// WithMaxAttempts bounds how many times a transaction rejected for contention
// (deadlock, serialization failure, lock timeout) is retried before the
// contention error is surfaced to the caller.
func WithMaxAttempts(n int) Option {
	return func(t *txRunner) {
		if n > 0 {
			t.attempts = n
		}
	}
}

func newTxRunner(pool *pgxpool.Pool, opts ...Option) txRunner {
	t := txRunner{pool: pool, attempts: defaultTxAttempts}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

// WithTx runs fn inside a transaction, retrying on contention. Nested calls
// join the transaction already installed in ctx.
func (t *txRunner) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	var err error
	for attempt := 0; attempt < t.attempts; attempt++ {
		err = t.runOnce(ctx, fn)
		if err == nil || !errors.Is(err, domain.ErrContention) {
			return err
		}
	}
	return err
}

func (t *txRunner) runOnce(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := t.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback(ctx)
		return markContention(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return markContention(err)
	}
	return nil
}

func (t *txRunner) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return t.pool.Exec(ctx, sql, args...)
}

func (t *txRunner) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return t.pool.Query(ctx, sql, args...)
}

func (t *txRunner) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return t.pool.QueryRow(ctx, sql, args...)
}

func txFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey{}).(pgx.Tx)
	return tx
}

// markContention translates retryable Postgres conflicts into the domain's
// contention error so callers can tell them from permanent failures.
func markContention(err error) error {
	if isContention(err) {
		return fmt.Errorf("%w: %v", domain.ErrContention, err)
	}
	return err
}

func isContention(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", // serialization_failure
		"40P01", // deadlock_detected
		"55P03": // lock_not_available
		return true
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isInvalidUUID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}
