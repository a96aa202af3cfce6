// Package guardrails holds cross cutting safety helpers for pipeline runs
package guardrails

import (
	"context"
	"time"

	"reviewprep/internal/services/pipeline/domain"
)

// Timeouts is an optional budget bundle for a single run.
// Zero values mean no extra timeout at that level
type Timeouts struct {
	// Run is the overall time budget for one pipeline run
	Run time.Duration

	// Fetch caps one dataset download attempt
	Fetch time.Duration

	// Preprocess caps one file cleaning attempt
	Preprocess time.Duration

	// Verify caps one verification pass
	Verify time.Duration

	// Publish caps one upload attempt
	Publish time.Duration
}

// WithRun returns a context limited by the run budget without extending any parent deadline
func WithRun(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Run)
}

// ForStage returns a sub context for one attempt of stage bounded by its budget and any remaining parent budget
func ForStage(parent context.Context, t Timeouts, stage domain.Stage) (context.Context, context.CancelFunc) {
	switch stage {
	case domain.StageFetch:
		return withChildTimeout(parent, t.Fetch)
	case domain.StagePreprocess:
		return withChildTimeout(parent, t.Preprocess)
	case domain.StageVerify:
		return withChildTimeout(parent, t.Verify)
	case domain.StagePublish:
		return withChildTimeout(parent, t.Publish)
	default:
		return context.WithCancel(parent)
	}
}

// Remaining returns the time until the deadline on ctx or zero when none is set or already expired
func Remaining(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		d := time.Until(dl)
		if d > 0 {
			return d
		}
	}
	return 0
}

// withChildTimeout chooses the tighter of the requested duration and any parent remainder.
// Never extends the parent deadline
func withChildTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	if rem := Remaining(parent); rem > 0 && rem < d {
		return context.WithTimeout(parent, rem)
	}
	return context.WithTimeout(parent, d)
}
