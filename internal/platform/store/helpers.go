package store

import (
	"context"

	perr "reviewprep/internal/platform/errors"
)

// Many maps every row of the query through scan
func Many[T any](ctx context.Context, q RowQuerier, scan func(Row) (T, error), sql string, args ...any) ([]T, error) {
	return collect(ctx, q, scan, 0, sql, args)
}

// One maps exactly one row through scan. No rows gives perr.ErrNotFound and
// a second row gives a conflict
func One[T any](ctx context.Context, q RowQuerier, scan func(Row) (T, error), sql string, args ...any) (T, error) {
	var zero T
	out, err := collect(ctx, q, scan, 2, sql, args)
	switch {
	case err != nil:
		return zero, err
	case len(out) == 0:
		return zero, perr.ErrNotFound
	case len(out) > 1:
		return zero, perr.Conflictf("store: expected 1 row, got more")
	}
	return out[0], nil
}

// collect scans up to limit rows; limit <= 0 scans them all
func collect[T any](ctx context.Context, q RowQuerier, scan func(Row) (T, error), limit int, sql string, args []any) ([]T, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for (limit <= 0 || len(out) < limit) && rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
