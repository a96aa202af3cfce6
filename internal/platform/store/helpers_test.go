package store

import (
	"context"
	"errors"
	"reflect"
	"testing"

	perr "reviewprep/internal/platform/errors"
)

type fakeRowQuerier struct {
	lastSQL  string
	lastArgs []any
	rows     Rows
	queryErr error
}

func (f *fakeRowQuerier) Exec(context.Context, string, ...any) (CommandTag, error) {
	return nil, errors.New("unused")
}

func (f *fakeRowQuerier) Query(_ context.Context, sql string, args ...any) (Rows, error) {
	f.lastSQL, f.lastArgs = sql, args
	return f.rows, f.queryErr
}

func (f *fakeRowQuerier) QueryRow(context.Context, string, ...any) Row { return nil }

// fakeRows yields data row by row; each row is assigned positionally
type fakeRows struct {
	data   [][]any
	idx    int
	err    error
	closed bool
}

func newRows(data ...[]any) *fakeRows { return &fakeRows{data: data, idx: -1} }

func (r *fakeRows) Next() bool {
	if r.err != nil {
		return false
	}
	r.idx++
	return r.idx < len(r.data)
}
func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.idx]
	if len(dest) != len(row) {
		return errors.New("dest len mismatch")
	}
	for i := range dest {
		reflect.ValueOf(dest[i]).Elem().Set(reflect.ValueOf(row[i]))
	}
	return nil
}
func (r *fakeRows) Err() error { return r.err }
func (r *fakeRows) Close()     { r.closed = true }

type pair struct {
	ID   int
	Name string
}

func scanPair(r Row) (pair, error) {
	var p pair
	err := r.Scan(&p.ID, &p.Name)
	return p, err
}

func TestOne(t *testing.T) {
	tests := []struct {
		name     string
		rows     *fakeRows
		queryErr error
		want     pair
		check    func(error) bool
	}{
		{"single row", newRows([]any{1, "a"}), nil, pair{1, "a"}, func(err error) bool { return err == nil }},
		{"no rows", newRows(), nil, pair{}, func(err error) bool { return errors.Is(err, perr.ErrNotFound) }},
		{"too many", newRows([]any{1, "a"}, []any{2, "b"}), nil, pair{}, func(err error) bool { return perr.IsCode(err, perr.ErrorCodeConflict) }},
		{"iterator error", &fakeRows{idx: -1, err: errors.New("it")}, nil, pair{}, func(err error) bool { return err != nil && err.Error() == "it" }},
		{"query error", nil, errors.New("q"), pair{}, func(err error) bool { return err != nil && err.Error() == "q" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := &fakeRowQuerier{queryErr: tc.queryErr}
			if tc.rows != nil {
				q.rows = tc.rows
			}
			got, err := One(context.Background(), q, scanPair, "SELECT id, name FROM t")
			if !tc.check(err) {
				t.Fatalf("err = %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %+v want %+v", got, tc.want)
			}
			if tc.rows != nil && !tc.rows.closed {
				t.Fatalf("rows not closed")
			}
		})
	}
}

func TestMany(t *testing.T) {
	rows := newRows([]any{1, "a"}, []any{2, "b"})
	got, err := Many(context.Background(), &fakeRowQuerier{rows: rows}, scanPair, "SELECT id, name FROM t")
	if err != nil {
		t.Fatalf("many: %v", err)
	}
	if !reflect.DeepEqual(got, []pair{{1, "a"}, {2, "b"}}) || !rows.closed {
		t.Fatalf("got %+v closed=%v", got, rows.closed)
	}

	got, err = Many(context.Background(), &fakeRowQuerier{rows: newRows()}, scanPair, "SELECT 1")
	if err != nil || len(got) != 0 {
		t.Fatalf("empty: %v %v", got, err)
	}

	bad := newRows([]any{1})
	if _, err := Many(context.Background(), &fakeRowQuerier{rows: bad}, scanPair, "SELECT 1"); err == nil {
		t.Fatalf("want scan error")
	}
}
