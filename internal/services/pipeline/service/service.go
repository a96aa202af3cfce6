// Package service provides the pipeline runner
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	perr "reviewprep/internal/platform/errors"
	"reviewprep/internal/platform/logger"
	"reviewprep/internal/services/pipeline/domain"
	"reviewprep/internal/services/pipeline/guardrails"
	"reviewprep/internal/services/pipeline/metrics"
)

// Config holds configuration options for the runner
type Config struct {
	// Step-level retry; every failure is retried the same way
	Retries    int           // extra attempts per step; <0 -> 0
	RetryDelay time.Duration // fixed pause between attempts; <=0 -> none

	// Timeouts applied via guardrails
	Timeouts guardrails.Timeouts
}

// Service implements domain.RunnerPort
type Service struct {
	Fetch    domain.Fetcher
	Process  domain.Processor
	Verify   domain.Verifier
	Publish  domain.Publisher // optional; publish is skipped when nil
	Ledger   domain.Ledger    // optional
	Metrics  *metrics.Metrics // optional
	Datasets []domain.Dataset
	Cfg      Config

	// Lease(ctx, holder, do) runs do while no other instance holds the pipeline lease
	Lease guardrails.LeaseFunc

	NewID func() string

	mu     sync.Mutex
	active string
}

// New constructs the runner
func New(
	f domain.Fetcher,
	p domain.Processor,
	v domain.Verifier,
	pub domain.Publisher, // optional
	ledger domain.Ledger, // optional
	m *metrics.Metrics, // optional
	datasets []domain.Dataset,
	cfg Config,
	lease guardrails.LeaseFunc, // optional
) *Service {
	if f == nil || p == nil || v == nil {
		panic("pipeline.Service requires a fetcher, processor and verifier")
	}
	if len(datasets) == 0 {
		panic("pipeline.Service requires at least one dataset")
	}
	return &Service{
		Fetch: f, Process: p, Verify: v, Publish: pub,
		Ledger: ledger, Metrics: m,
		Datasets: datasets,
		Cfg:      cfg,
		Lease:    lease,
		NewID:    uuid.NewString,
	}
}

// Active reports the id of the run in progress
func (s *Service) Active() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, s.active != ""
}

// Run executes fetch, preprocess, verify and publish in that order over all
// datasets. The first step that still fails after its retries aborts the run
func (s *Service) Run(ctx context.Context, trigger string) (domain.Run, error) {
	id := s.NewID()

	s.mu.Lock()
	if s.active != "" {
		cur := s.active
		s.mu.Unlock()
		return domain.Run{}, perr.Conflictf("pipeline: run %s already in progress", cur)
	}
	s.active = id
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.active = ""
		s.mu.Unlock()
	}()

	if s.Lease == nil {
		return s.run(ctx, id, trigger)
	}
	var run domain.Run
	err := s.Lease(ctx, id, func(ctx context.Context) error {
		var e error
		run, e = s.run(ctx, id, trigger)
		return e
	})
	if errors.Is(err, guardrails.ErrLeaseHeld) {
		logger.C(ctx).Info().Str("run_id", id).Msg("pipeline: lease held elsewhere, skipping")
		return domain.Run{}, perr.Wrap(err, perr.ErrorCodeConflict, "pipeline: another instance is running")
	}
	return run, err
}

func (s *Service) run(ctx context.Context, id, trigger string) (domain.Run, error) {
	ctx = logger.WithRun(ctx, id, "")
	ctx, cancel := guardrails.WithRun(ctx, s.Cfg.Timeouts)
	defer cancel()
	log := logger.C(ctx)

	run := domain.Run{
		ID:      id,
		Trigger: trigger,
		Status:  domain.StatusRunning,
		Started: time.Now().UTC(),
	}
	if s.Ledger != nil {
		if err := s.Ledger.StartRun(ctx, run); err != nil {
			log.Warn().Err(err).Msg("pipeline: ledger start failed")
		}
	}
	s.Metrics.RunStarted()
	log.Info().Str("trigger", trigger).Int("datasets", len(s.Datasets)).Msg("pipeline: run started")

	err := s.stages(ctx, &run)

	run.Finished = time.Now().UTC()
	run.Status = domain.StatusOK
	if err != nil {
		run.Status = domain.StatusError
		run.Err = err.Error()
	}
	if s.Ledger != nil {
		// the run context may already be cancelled
		lctx, lcancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		if lerr := s.Ledger.FinishRun(lctx, run); lerr != nil {
			log.Warn().Err(lerr).Msg("pipeline: ledger finish failed")
		}
		lcancel()
	}
	s.Metrics.RunFinished(run)

	evt := log.Info()
	if err != nil {
		evt = log.Error().Err(err)
	}
	evt.Str("status", string(run.Status)).
		Dur("elapsed", run.Finished.Sub(run.Started)).
		Msg("pipeline: run finished")
	return run, err
}

type stepFunc func(ctx context.Context, runID string, ds domain.Dataset) (domain.StageResult, error)

func (s *Service) stages(ctx context.Context, run *domain.Run) error {
	steps := []struct {
		stage domain.Stage
		fn    stepFunc
	}{
		{domain.StageFetch, s.fetch},
		{domain.StagePreprocess, s.preprocess},
		{domain.StageVerify, s.verify},
		{domain.StagePublish, s.publish},
	}
	for _, st := range steps {
		for _, ds := range s.Datasets {
			if st.stage == domain.StagePublish && s.Publish == nil {
				s.record(ctx, run, domain.StageResult{
					Stage:   domain.StagePublish,
					Dataset: ds.Name,
					Status:  domain.StatusSkipped,
					Started: time.Now().UTC(),
					Detail:  "no publisher configured",
				})
				continue
			}
			if err := s.step(ctx, run, st.stage, ds, st.fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// step runs fn for one dataset with Retries+1 attempts and a fixed delay
func (s *Service) step(ctx context.Context, run *domain.Run, stage domain.Stage, ds domain.Dataset, fn stepFunc) error {
	ctx = logger.WithRun(ctx, "", string(stage))
	log := logger.C(ctx).With().Str("dataset", ds.Name).Logger()

	res := domain.StageResult{Stage: stage, Dataset: ds.Name, Started: time.Now().UTC()}
	attempts := max(s.Cfg.Retries, 0) + 1

	var err error
	for i := range attempts {
		res.Attempts = i + 1
		actx, cancel := guardrails.ForStage(ctx, s.Cfg.Timeouts, stage)
		var out domain.StageResult
		out, err = fn(actx, run.ID, ds)
		cancel()
		s.Metrics.Attempt(stage, err)
		if err == nil {
			res.Records, res.Skipped, res.Bytes, res.Detail = out.Records, out.Skipped, out.Bytes, out.Detail
			break
		}
		// cancellation of the run stops retries right away
		if cerr := ctx.Err(); cerr != nil {
			err = perr.Wrapf(err, perr.CodeOf(err), "pipeline: %s %s cancelled", stage, ds.Name)
			break
		}
		if i == attempts-1 {
			break
		}
		log.Warn().Err(err).
			Int("attempt", i+1).
			Int("attempts", attempts).
			Dur("retry_in", s.Cfg.RetryDelay).
			Msg("pipeline: step failed, retrying")
		if se := sleepCtx(ctx, s.Cfg.RetryDelay); se != nil {
			err = se
			break
		}
	}

	res.Elapsed = time.Since(res.Started)
	res.Status = domain.StatusOK
	if err != nil {
		res.Status = domain.StatusError
		res.Err = err.Error()
		log.Error().Err(err).Int("attempts", res.Attempts).Msg("pipeline: step failed")
	} else {
		log.Info().
			Int("records", res.Records).
			Int("skipped", res.Skipped).
			Int64("bytes", res.Bytes).
			Dur("elapsed", res.Elapsed).
			Msg("pipeline: step done")
	}
	s.record(ctx, run, res)
	return err
}

func (s *Service) record(ctx context.Context, run *domain.Run, res domain.StageResult) {
	run.Stages = append(run.Stages, res)
	s.Metrics.Stage(res)
	if s.Ledger == nil {
		return
	}
	lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.Ledger.RecordStage(lctx, run.ID, res); err != nil {
		logger.C(ctx).Warn().Err(err).Msg("pipeline: ledger stage failed")
	}
}

func (s *Service) fetch(ctx context.Context, _ string, ds domain.Dataset) (domain.StageResult, error) {
	d, err := s.Fetch.Download(ctx, ds.URL, ds.RawPath)
	if err != nil {
		return domain.StageResult{}, err
	}
	out := domain.StageResult{Bytes: d.Bytes, Detail: "downloaded"}
	if d.NotModified {
		out.Detail = "not modified"
	}
	return out, nil
}

func (s *Service) preprocess(ctx context.Context, _ string, ds domain.Dataset) (domain.StageResult, error) {
	r, err := s.Process.Process(ctx, ds.RawPath, ds.CleanPath)
	if err != nil {
		return domain.StageResult{}, err
	}
	return domain.StageResult{Records: r.Written, Skipped: r.Skipped, Bytes: r.Bytes}, nil
}

func (s *Service) verify(ctx context.Context, _ string, ds domain.Dataset) (domain.StageResult, error) {
	v, err := s.Verify.Verify(ctx, ds.CleanPath)
	return domain.StageResult{Records: v.Records}, err
}

func (s *Service) publish(ctx context.Context, runID string, ds domain.Dataset) (domain.StageResult, error) {
	u, err := s.Publish.Publish(ctx, runID, ds.CleanPath)
	if err != nil {
		return domain.StageResult{}, err
	}
	return domain.StageResult{Bytes: u.Bytes, Detail: "s3://" + u.Bucket + "/" + u.Key}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
