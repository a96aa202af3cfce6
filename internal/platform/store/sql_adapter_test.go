package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakePGX struct {
	err  error
	rows pgx.Rows
	sql  []string
}

func (f *fakePGX) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	f.sql = append(f.sql, sql)
	return pgconn.NewCommandTag("UPDATE 3"), f.err
}

func (f *fakePGX) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	f.sql = append(f.sql, sql)
	return f.rows, f.err
}

func (f *fakePGX) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	f.sql = append(f.sql, sql)
	return errRow{f.err}
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

func TestQuerier_PassesThrough(t *testing.T) {
	f := &fakePGX{}
	q := querier{q: f}
	ctx := context.Background()

	ct, err := q.Exec(ctx, "UPDATE runs SET status = 'ok'")
	if err != nil || ct.RowsAffected() != 3 || ct.String() != "UPDATE 3" {
		t.Fatalf("exec = %v, %v", ct, err)
	}
	if err := q.QueryRow(ctx, "SELECT 1").Scan(); err != nil {
		t.Fatalf("row: %v", err)
	}
	if len(f.sql) != 2 {
		t.Fatalf("calls = %v", f.sql)
	}
}

func TestQuerier_Errors(t *testing.T) {
	boom := errors.New("boom")
	q := querier{q: &fakePGX{err: boom}}
	ctx := context.Background()

	if ct, err := q.Exec(ctx, "x"); !errors.Is(err, boom) || ct != nil {
		t.Fatalf("exec = %v, %v", ct, err)
	}
	if rs, err := q.Query(ctx, "x"); !errors.Is(err, boom) || rs != nil {
		t.Fatalf("query = %v, %v", rs, err)
	}
	if err := q.QueryRow(ctx, "x").Scan(); !errors.Is(err, boom) {
		t.Fatalf("row = %v", err)
	}
}
