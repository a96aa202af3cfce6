package errors

// Postgres helpers mapping pgx errors to project codes and retry semantics

import (
	"context"
	stderrs "errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the ledger cares about
const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
	pgErrNotNullViolation    = "23502"
	pgErrCheckViolation      = "23514"

	pgErrSerializationFailure = "40001"
	pgErrDeadlockDetected     = "40P01"
	pgErrLockNotAvailable     = "55P03"
	pgErrQueryCanceled        = "57014"
	pgErrCannotConnectNow     = "57P03"
	pgErrAdminShutdown        = "57P01"
)

// SQLState returns the SQLSTATE of the root PgError, or ""
func SQLState(err error) string {
	var pgErr *pgconn.PgError
	if stderrs.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsLockNotAvailable reports a lock_timeout or NOWAIT failure
func IsLockNotAvailable(err error) bool { return SQLState(err) == pgErrLockNotAvailable }

// DBErrorCode maps a Postgres error to an ErrorCode; !ok means err is not a PgError
func DBErrorCode(err error) (ErrorCode, bool) {
	switch SQLState(err) {
	case "":
		return ErrorCodeUnknown, false
	case pgErrUniqueViolation:
		return ErrorCodeDuplicateKey, true
	case pgErrForeignKeyViolation:
		return ErrorCodeNotFound, true
	case pgErrNotNullViolation, pgErrCheckViolation:
		return ErrorCodeValidation, true
	case pgErrCannotConnectNow, pgErrAdminShutdown:
		return ErrorCodeUnavailable, true
	default:
		return ErrorCodeDB, true
	}
}

// FromPostgres wraps err with its mapped code; nil stays nil
func FromPostgres(err error, msg string) error {
	if err == nil {
		return nil
	}
	code, ok := DBErrorCode(err)
	if !ok {
		code = ErrorCodeDB
	}
	return Wrap(err, code, msg)
}

// IsRetryable reports whether a database error is transient contention.
// Local cancellation is never retryable
func IsRetryable(err error) bool {
	if err == nil || stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return false
	}
	switch SQLState(err) {
	case pgErrSerializationFailure, pgErrDeadlockDetected, pgErrLockNotAvailable, pgErrCannotConnectNow:
		return true
	case "":
		s := strings.ToLower(Root(err).Error())
		return strings.Contains(s, "commit unexpectedly resulted in rollback") ||
			strings.Contains(s, "canceling statement due to lock timeout")
	default:
		return false
	}
}
