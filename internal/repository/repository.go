package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Sentinel errors returned by all repositories. Services translate these into
// caller-facing failures; the HTTP layer maps them to status codes.
var (
	// ErrNotFound signals that an id did not resolve to a row.
	ErrNotFound = errors.New("record not found")
	// ErrStaleTransition signals that a compare-and-swap update matched no
	// row: either the status guard failed or a concurrent writer won the race.
	ErrStaleTransition = errors.New("no row matched the expected status")
)

// Querier is the subset of pgx operations the repositories need. It is
// satisfied by both *pgxpool.Pool and pgx.Tx, so every query transparently
// joins an ambient transaction when one is present in the context.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// querier returns the transaction bound to ctx if present, otherwise the pool.
func querier(ctx context.Context, pool *pgxpool.Pool) Querier {
	if tx, ok := ctx.Value(txKey).(pgx.Tx); ok {
		return tx
	}
	return pool
}
