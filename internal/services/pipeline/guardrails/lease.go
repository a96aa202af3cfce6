package guardrails

import (
	"context"
	"errors"
	"time"

	"reviewprep/internal/modkit/repokit"
	perr "reviewprep/internal/platform/errors"
)

// ErrLeaseHeld signals another instance is already running the pipeline
var ErrLeaseHeld = errors.New("pipeline: run lease already held")

// LeaseFunc runs do while holding the named lease
type LeaseFunc func(ctx context.Context, holder string, do func(context.Context) error) error

// MakeLease returns a LeaseFunc backed by the pipeline_leases table.
// A lease is claimed when the row is absent or expired and released after do
// returns. ttl bounds how long a crashed holder blocks others.
// It assumes the table exists (see repo.EnsureSchema)
func MakeLease(db repokit.TxRunner, name string, ttl time.Duration) LeaseFunc {
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}
	// a holder mid-claim keeps the row locked; give up instead of queueing
	db = repokit.WithBeginHooks(db, repokit.LockTimeout(2*time.Second))
	return func(ctx context.Context, holder string, do func(context.Context) error) error {
		var claimed bool
		err := db.Tx(ctx, func(q repokit.Queryer) error {
			rows, err := q.Query(ctx, `
				insert into pipeline_leases (name, holder, expires_at)
				values ($1, $2, now() + $3 * interval '1 second')
				on conflict (name) do update
				set holder = excluded.holder, expires_at = excluded.expires_at
				where pipeline_leases.expires_at < now()
				returning true
			`, name, holder, int64(ttl/time.Second))
			if err != nil {
				return err
			}
			defer rows.Close()
			if rows.Next() {
				claimed = true
			}
			return rows.Err()
		})
		if perr.IsLockNotAvailable(err) {
			return ErrLeaseHeld
		}
		if err != nil {
			return perr.FromPostgres(err, "pipeline: claim lease")
		}
		if !claimed {
			return ErrLeaseHeld
		}
		defer func() {
			// release must outlive a cancelled run context
			rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			_, _ = db.Exec(rctx, `delete from pipeline_leases where name = $1 and holder = $2`, name, holder)
		}()
		return do(ctx)
	}
}
