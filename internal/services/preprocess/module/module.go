// Package module provides the preprocess module implementation
package module

import (
	"reviewprep/internal/modkit"

	"reviewprep/internal/core/record"
	"reviewprep/internal/services/preprocess/domain"
	"reviewprep/internal/services/preprocess/ingest"
	"reviewprep/internal/services/preprocess/service"
)

// Ports defines the preprocess module ports
type Ports struct {
	Processor domain.ProcessorPort
}

// Module implements the preprocess module
type Module struct {
	deps  modkit.Deps
	opts  Options
	ports Ports
}

// New constructs the preprocess module using RP_PREPROCESS_* from deps.Cfg
func New(deps modkit.Deps) *Module {
	return NewWithOptions(deps, FromConfig(deps.Cfg))
}

// NewWithOptions constructs the module from explicit options
func NewWithOptions(deps modkit.Deps, opts Options) *Module {
	enc := record.Default
	if opts.Compact {
		enc = record.Compact
	}
	svc := service.New(
		ingest.NewReaderFactory(opts.MaxLineBytes),
		service.Config{
			Workers:      opts.Workers,
			BatchLines:   opts.BatchLines,
			MaxMalformed: opts.MaxMalformed,
			Encoding:     enc,
		},
	)
	return &Module{deps: deps, opts: opts, ports: Ports{Processor: svc}}
}

// Name returns the module name
func (m *Module) Name() string { return "preprocess" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Processor returns the typed processor port
func (m *Module) Processor() domain.ProcessorPort { return m.ports.Processor }

// Options returns the options the module was built with
func (m *Module) Options() Options { return m.opts }
