package errors

import (
	"context"
	stderrs "errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func pgErr(code string) error {
	return fmt.Errorf("exec: %w", &pgconn.PgError{Code: code, Message: "pg says no"})
}

func TestDBErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorCode
		ok   bool
	}{
		{pgErr("23505"), ErrorCodeDuplicateKey, true},
		{pgErr("23503"), ErrorCodeNotFound, true},
		{pgErr("23502"), ErrorCodeValidation, true},
		{pgErr("23514"), ErrorCodeValidation, true},
		{pgErr("57P03"), ErrorCodeUnavailable, true},
		{pgErr("55P03"), ErrorCodeDB, true},
		{pgErr("XXXXX"), ErrorCodeDB, true},
		{stderrs.New("plain"), ErrorCodeUnknown, false},
	}
	for _, tc := range tests {
		got, ok := DBErrorCode(tc.err)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("DBErrorCode(%v) = %v,%v want %v,%v", tc.err, got, ok, tc.want, tc.ok)
		}
	}
}

func TestFromPostgres(t *testing.T) {
	if FromPostgres(nil, "x") != nil {
		t.Fatal("nil should stay nil")
	}
	err := FromPostgres(pgErr("23505"), "ledger: start run")
	if !IsCode(err, ErrorCodeDuplicateKey) {
		t.Fatalf("code = %v", CodeOf(err))
	}
	if SQLState(err) != "23505" {
		t.Fatalf("sqlstate lost through wrap: %q", SQLState(err))
	}
	if !IsCode(FromPostgres(stderrs.New("conn reset"), "x"), ErrorCodeDB) {
		t.Fatal("non pg error should map to DB")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"serialization", pgErr("40001"), true},
		{"deadlock", pgErr("40P01"), true},
		{"lock timeout", Wrap(pgErr("55P03"), ErrorCodeDB, "ledger"), true},
		{"unique", pgErr("23505"), false},
		{"cancelled", fmt.Errorf("q: %w", context.Canceled), false},
		{"deadline", context.DeadlineExceeded, false},
		{"commit text", stderrs.New("commit unexpectedly resulted in rollback"), true},
		{"other text", stderrs.New("boom"), false},
		{"wrapped lock text", fmt.Errorf("tx: %w", stderrs.New("canceling statement due to lock timeout")), true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsRetryable(tc.err); got != tc.want {
				t.Fatalf("IsRetryable = %v want %v", got, tc.want)
			}
		})
	}
	if !IsLockNotAvailable(pgErr("55P03")) || IsLockNotAvailable(pgErr("40001")) {
		t.Fatal("IsLockNotAvailable mismatch")
	}
}
