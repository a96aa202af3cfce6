package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	perr "reviewprep/internal/platform/errors"
	"reviewprep/internal/platform/testkit"
	"reviewprep/internal/services/pipeline/domain"
)

type fakeRunner struct {
	calls   atomic.Int32
	trigger atomic.Value
	err     error
	block   chan struct{}
}

func (f *fakeRunner) Run(ctx context.Context, trigger string) (domain.Run, error) {
	f.calls.Add(1)
	f.trigger.Store(trigger)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return domain.Run{}, ctx.Err()
		}
	}
	return domain.Run{ID: "r"}, f.err
}

func (f *fakeRunner) Active() (string, bool) { return "", false }

func TestNew_Specs(t *testing.T) {
	tests := []struct {
		spec    string
		wantErr bool
	}{
		{"", false},
		{"0 * * * *", false},
		{"@hourly", false},
		{"@every 90s", false},
		{"not a spec", true},
		{"0 0 * * * *", true}, // seconds field is not accepted
	}
	for _, tc := range tests {
		t.Run(tc.spec, func(t *testing.T) {
			s, err := New(&fakeRunner{}, tc.spec)
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v", err)
			}
			if err != nil && perr.CodeOf(err) != perr.ErrorCodeInvalidArgument {
				t.Fatalf("code = %v", perr.CodeOf(err))
			}
			if err == nil && tc.spec == "" && s.Spec() != DefaultSpec {
				t.Fatalf("spec = %q", s.Spec())
			}
		})
	}
}

func TestNew_PanicsWithoutRunner(t *testing.T) {
	testkit.MustPanic(t, func() { _, _ = New(nil, "") })
}

func TestTick_UsesScheduleTrigger(t *testing.T) {
	for _, err := range []error{nil, perr.Conflictf("busy"), errors.New("boom")} {
		r := &fakeRunner{err: err}
		s, _ := New(r, "")
		s.tick()
		if r.calls.Load() != 1 || r.trigger.Load() != "schedule" {
			t.Fatalf("calls = %d trigger = %v", r.calls.Load(), r.trigger.Load())
		}
	}
}

func TestStartStop_TicksAndSkipsOverlap(t *testing.T) {
	r := &fakeRunner{block: make(chan struct{})}
	s, err := New(r, "@every 1s")
	if err != nil {
		t.Fatal(err)
	}
	s.Start(context.Background())
	if s.Next().IsZero() {
		t.Fatalf("next tick not planned")
	}

	// the first run blocks across several ticks
	deadline := time.Now().Add(5 * time.Second)
	for r.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	time.Sleep(2500 * time.Millisecond)
	if n := r.calls.Load(); n != 1 {
		t.Fatalf("overlapping ticks ran: %d", n)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// Stop cancels the blocked run and returns once it exits
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
