// Package module provides the pipeline module implementation
package module

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	s3pub "reviewprep/internal/adapters/publish/s3"
	"reviewprep/internal/modkit"
	"reviewprep/internal/modkit/httpkit"
	"reviewprep/internal/platform/logger"

	ppmod "reviewprep/internal/services/preprocess/module"

	"reviewprep/internal/services/pipeline/domain"
	"reviewprep/internal/services/pipeline/guardrails"
	pipehttp "reviewprep/internal/services/pipeline/http"
	"reviewprep/internal/services/pipeline/ingest"
	"reviewprep/internal/services/pipeline/metrics"
	"reviewprep/internal/services/pipeline/repo"
	"reviewprep/internal/services/pipeline/scheduler"
	"reviewprep/internal/services/pipeline/service"
)

// Ports defines the pipeline module ports
type Ports struct {
	Runner    domain.RunnerPort
	Ledger    domain.Ledger
	Fetcher   domain.Fetcher
	Processor domain.Processor
	Verifier  domain.Verifier
	Publisher domain.Publisher // nil when publishing is not configured
}

// Module implements the pipeline module
type Module struct {
	deps      modkit.Deps
	opts      Options
	datasets  []domain.Dataset
	ports     Ports
	reg       *prometheus.Registry
	sched     *scheduler.Scheduler
	bg        context.Context
	startedAt time.Time
}

// New wires fetcher, processor, verifier, optional publisher, ledger and
// runner from deps.Cfg. A Postgres ledger is used when deps.PG is set,
// otherwise runs are kept in memory
func New(ctx context.Context, deps modkit.Deps) (*Module, error) {
	opts := FromConfig(deps.Cfg)
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	datasets, err := ResolveDatasets(opts)
	if err != nil {
		return nil, err
	}

	var pub domain.Publisher
	if so, ok := s3pub.FromConfig(deps.Cfg); ok {
		p, err := s3pub.New(ctx, so)
		if err != nil {
			return nil, err
		}
		pub = ingest.NewPublisher(p)
	}

	var (
		ledger domain.Ledger
		lease  guardrails.LeaseFunc
	)
	if deps.HasPG() {
		if err := repo.EnsureSchema(ctx, deps.PG); err != nil {
			return nil, err
		}
		ledger = repo.NewPG().Bind(deps.PG)
		if opts.Leases {
			lease = guardrails.MakeLease(deps.PG, "pipeline", opts.LeaseTTL)
		}
	} else {
		ledger = repo.NewMemory(opts.LedgerKeep)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	fetcher := ingest.NewFetcher(deps)
	processor := ppmod.New(deps).Processor()
	verifier := &ingest.Verifier{MaxViolations: opts.VerifyMaxViolations, AllowEmpty: opts.VerifyAllowEmpty}

	runner := service.New(
		fetcher, processor, verifier, pub,
		ledger, metrics.New(reg),
		datasets,
		service.Config{
			Retries:    opts.Retries,
			RetryDelay: opts.RetryDelay,
			Timeouts: guardrails.Timeouts{
				Run:        opts.RunTimeout,
				Fetch:      opts.FetchTimeout,
				Preprocess: opts.PreprocessTimeout,
				Verify:     opts.VerifyTimeout,
				Publish:    opts.PublishTimeout,
			},
		},
		lease,
	)

	sched, err := scheduler.New(runner, opts.Schedule)
	if err != nil {
		return nil, err
	}

	logger.C(ctx).Info().
		Str("data_dir", opts.DataDir).
		Int("datasets", len(datasets)).
		Bool("postgres_ledger", deps.HasPG()).
		Bool("publish", pub != nil).
		Bool("lease", lease != nil).
		Msg("pipeline: module ready")

	return &Module{
		deps:     deps,
		opts:     opts,
		datasets: datasets,
		ports: Ports{
			Runner:    runner,
			Ledger:    ledger,
			Fetcher:   fetcher,
			Processor: processor,
			Verifier:  verifier,
			Publisher: pub,
		},
		reg:       reg,
		sched:     sched,
		bg:        context.WithoutCancel(ctx),
		startedAt: time.Now(),
	}, nil
}

// Name returns the module name
func (m *Module) Name() string { return "pipeline" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Runner returns the typed runner port
func (m *Module) Runner() domain.RunnerPort { return m.ports.Runner }

// Typed returns the typed port set
func (m *Module) Typed() Ports { return m.ports }

// Datasets returns the resolved datasets
func (m *Module) Datasets() []domain.Dataset { return m.datasets }

// Options returns the options the module was built with
func (m *Module) Options() Options { return m.opts }

// Scheduler returns the cron scheduler; call Start to begin ticking
func (m *Module) Scheduler() *scheduler.Scheduler { return m.sched }

// MetricsHandler serves the module registry in the prometheus text format
func (m *Module) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// MountRoutes mounts the status API at the router root
func (m *Module) MountRoutes(r httpkit.Router) {
	pipehttp.Register(r, pipehttp.Deps{
		Runner:     m.ports.Runner,
		Ledger:     m.ports.Ledger,
		Metrics:    m.MetricsHandler(),
		NextRun:    m.sched.Next,
		Background: m.bg,
		StartedAt:  m.startedAt,
	})
}

var _ modkit.Module = (*Module)(nil)
