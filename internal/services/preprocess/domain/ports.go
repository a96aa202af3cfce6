package domain

import (
	"context"

	"reviewprep/internal/adapters/ingest/jsonl"
)

// ProcessorPort is the public port exposed by the module
type ProcessorPort interface {
	Process(ctx context.Context, inputPath, outputPath string) (Result, error)
}

// LineReader yields non-blank lines from one input file
type LineReader interface {
	Next() (jsonl.Line, error)
	Stats() jsonl.Stats
	Compressed() bool
	Close() error
}

// ReaderFactory opens a LineReader for a path.
// A missing path must surface an error matching fs.ErrNotExist
type ReaderFactory interface {
	Open(path string) (LineReader, error)
}
