// Package store carries the shared Postgres plumbing: a query surface common
// to pools and transactions, and a runner that executes a function as one
// committed transaction.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the query surface shared by pgxpool.Pool and pgx.Tx. Repositories
// issue their statements through it so the same code runs standalone or
// inside a transaction.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txKey struct{}

// From returns the transaction bound to ctx by PgxRunner.RunAtomic, or db
// itself when no transaction is in flight.
func From(ctx context.Context, db *pgxpool.Pool) DB {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return db
}

// PgxRunner executes units of work inside a single Postgres transaction.
type PgxRunner struct {
	db *pgxpool.Pool
}

// NewPgxRunner creates a runner on top of a pgx pool.
func NewPgxRunner(db *pgxpool.Pool) *PgxRunner {
	return &PgxRunner{db: db}
}

// RunAtomic begins a transaction, binds it to the context passed to fn and
// commits when fn returns nil. Any error from fn rolls everything back, so
// repositories called through From either all commit or none do.
func (r *PgxRunner) RunAtomic(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
