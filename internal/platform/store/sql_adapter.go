package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgxQuerier is what a pool and a transaction have in common
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// querier narrows pgx results to the store interfaces
type querier struct{ q pgxQuerier }

func (q querier) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	ct, err := q.q.Exec(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return ct, nil
}

func (q querier) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	rs, err := q.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return rs, nil
}

func (q querier) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return q.q.QueryRow(ctx, sql, args...)
}

// pgPool is the TxRunner over a pgx pool
type pgPool struct {
	querier
	pool *pgxpool.Pool
}

func newPGPool(p *pgxpool.Pool) *pgPool { return &pgPool{querier: querier{q: p}, pool: p} }

func (a *pgPool) Ping(ctx context.Context) error { return a.pool.Ping(ctx) }

func (a *pgPool) Close() error { a.pool.Close(); return nil }

// Tx commits when fn returns nil and rolls back otherwise
func (a *pgPool) Tx(ctx context.Context, fn func(q RowQuerier) error) error {
	return pgx.BeginFunc(ctx, a.pool, func(tx pgx.Tx) error {
		return fn(querier{q: tx})
	})
}
