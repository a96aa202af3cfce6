package guardrails

import (
	"context"
	"testing"
	"time"

	"reviewprep/internal/services/pipeline/domain"
)

func TestForStage_PicksBudget(t *testing.T) {
	tos := Timeouts{Fetch: time.Hour, Verify: time.Minute}

	ctx, cancel := ForStage(context.Background(), tos, domain.StageVerify)
	defer cancel()
	if rem := Remaining(ctx); rem <= 0 || rem > time.Minute {
		t.Fatalf("verify remaining = %v", rem)
	}

	ctx2, cancel2 := ForStage(context.Background(), tos, domain.StagePreprocess)
	defer cancel2()
	if _, ok := ctx2.Deadline(); ok {
		t.Fatalf("zero budget should not set a deadline")
	}
}

func TestWithChildTimeout_NeverExtendsParent(t *testing.T) {
	parent, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	ctx, c2 := ForStage(parent, Timeouts{Fetch: time.Hour}, domain.StageFetch)
	defer c2()
	if rem := Remaining(ctx); rem > 50*time.Millisecond {
		t.Fatalf("child outlives parent: %v", rem)
	}
}

func TestRemaining_NoDeadline(t *testing.T) {
	if Remaining(context.Background()) != 0 {
		t.Fatalf("want zero")
	}
	run, cancel := WithRun(context.Background(), Timeouts{})
	defer cancel()
	if Remaining(run) != 0 {
		t.Fatalf("zero run budget set a deadline")
	}
}
