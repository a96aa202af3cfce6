package domain

import (
	"context"

	"reviewprep/internal/adapters/ingest/fetch"
	ppdom "reviewprep/internal/services/preprocess/domain"
)

// RunnerPort is the public port exposed by the module
type RunnerPort interface {
	// Run executes one full pipeline run
	Run(ctx context.Context, trigger string) (Run, error)
	// Active reports the id of the run in progress, if any
	Active() (string, bool)
}

// Fetcher downloads one dataset to its raw path
type Fetcher interface {
	Download(ctx context.Context, url, dest string) (fetch.Download, error)
}

// Processor cleans one raw file into its cleaned sibling
type Processor interface {
	Process(ctx context.Context, inputPath, outputPath string) (ppdom.Result, error)
}

// Verifier checks a cleaned file
type Verifier interface {
	Verify(ctx context.Context, path string) (Verification, error)
}

// Publisher uploads a cleaned file; optional
type Publisher interface {
	Publish(ctx context.Context, runID, path string) (Upload, error)
}

// Ledger persists run history
type Ledger interface {
	StartRun(ctx context.Context, run Run) error
	RecordStage(ctx context.Context, runID string, st StageResult) error
	FinishRun(ctx context.Context, run Run) error
	Recent(ctx context.Context, limit int) ([]Run, error)
	Get(ctx context.Context, id string) (Run, error)
}
