package repo

import (
	"context"
	"time"

	"reviewprep/internal/modkit/repokit"
	perr "reviewprep/internal/platform/errors"
	"reviewprep/internal/platform/logger"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS pipeline_runs (
		id          text PRIMARY KEY,
		trigger     text NOT NULL,
		status      text NOT NULL,
		started_at  timestamptz NOT NULL,
		finished_at timestamptz,
		error       text
	)`,
	`CREATE INDEX IF NOT EXISTS pipeline_runs_started_idx ON pipeline_runs (started_at DESC)`,
	`CREATE TABLE IF NOT EXISTS pipeline_stages (
		id         bigserial PRIMARY KEY,
		run_id     text NOT NULL REFERENCES pipeline_runs (id) ON DELETE CASCADE,
		stage      text NOT NULL,
		dataset    text NOT NULL,
		status     text NOT NULL,
		attempts   int NOT NULL DEFAULT 0,
		started_at timestamptz NOT NULL,
		elapsed_ms bigint NOT NULL DEFAULT 0,
		records    bigint NOT NULL DEFAULT 0,
		skipped    bigint NOT NULL DEFAULT 0,
		bytes      bigint NOT NULL DEFAULT 0,
		detail     text,
		error      text
	)`,
	`CREATE INDEX IF NOT EXISTS pipeline_stages_run_idx ON pipeline_stages (run_id, id)`,
	`CREATE TABLE IF NOT EXISTS pipeline_leases (
		name       text PRIMARY KEY,
		holder     text NOT NULL,
		expires_at timestamptz NOT NULL
	)`,
}

// EnsureSchema creates the ledger and lease tables when missing.
// A concurrent migration makes each attempt wait at most lockWait; lock and
// serialization failures are retried a few times
func EnsureSchema(ctx context.Context, db repokit.TxRunner) error {
	db = repokit.WithBeginHooks(db, repokit.LockTimeout(lockWait))
	var err error
	for attempt := 1; attempt <= schemaAttempts; attempt++ {
		err = perr.FromPostgres(repokit.WithTx(ctx, db, func(q repokit.Queryer) error {
			for _, stmt := range schema {
				if _, err := q.Exec(ctx, stmt); err != nil {
					return err
				}
			}
			return nil
		}), "ledger: ensure schema")
		if err == nil || !perr.IsRetryable(err) {
			return err
		}
		logger.C(ctx).Warn().Err(err).Int("attempt", attempt).Msg("ledger: schema busy, retrying")
	}
	return err
}

const (
	lockWait       = 10 * time.Second
	schemaAttempts = 3
)
