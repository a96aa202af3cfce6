// Package scheduler triggers pipeline runs on a cron schedule
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	perr "reviewprep/internal/platform/errors"
	"reviewprep/internal/platform/logger"
	"reviewprep/internal/services/pipeline/domain"
)

// DefaultSpec runs the pipeline at the top of every hour
const DefaultSpec = "0 * * * *"

// Scheduler fires runner.Run on each tick. Ticks that land while a run is
// still going are dropped and missed ticks are not caught up
type Scheduler struct {
	c      *cron.Cron
	id     cron.EntryID
	runner domain.RunnerPort
	spec   string

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New parses spec (standard 5 field cron or @every/@hourly descriptors)
func New(runner domain.RunnerPort, spec string) (*Scheduler, error) {
	if runner == nil {
		panic("scheduler requires a non nil runner")
	}
	if spec == "" {
		spec = DefaultSpec
	}
	cl := cronLogger{l: logger.Named("scheduler")}
	s := &Scheduler{
		runner: runner,
		spec:   spec,
		c: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		ctx: context.Background(),
	}
	id, err := s.c.AddFunc(spec, s.tick)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "scheduler: bad spec %q", spec)
	}
	s.id = id
	return s, nil
}

// Spec returns the cron spec in use
func (s *Scheduler) Spec() string { return s.spec }

// Next returns the next planned tick, zero before Start
func (s *Scheduler) Next() time.Time { return s.c.Entry(s.id).Next }

// Start begins ticking; runs inherit ctx values and stop when ctx ends
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()
	s.c.Start()
	logger.C(ctx).Info().Str("spec", s.spec).Time("next", s.Next()).Msg("scheduler: started")
}

// Stop halts ticking, cancels a run in flight and waits for it or ctx
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.c.Stop()
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	log := logger.C(ctx)
	run, err := s.runner.Run(ctx, "schedule")
	switch {
	case err == nil:
		log.Info().Str("run_id", run.ID).Time("next", s.Next()).Msg("scheduler: run ok")
	case perr.IsCode(err, perr.ErrorCodeConflict):
		log.Info().Err(err).Msg("scheduler: run already active, tick skipped")
	default:
		log.Error().Err(err).Str("run_id", run.ID).Time("next", s.Next()).Msg("scheduler: run failed")
	}
}

// cronLogger adapts zerolog to cron.Logger; cron's chatty info goes to debug
type cronLogger struct{ l *logger.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
