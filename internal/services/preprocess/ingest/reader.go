// Package ingest adapts the jsonl reader to the preprocess ports
package ingest

import (
	"reviewprep/internal/adapters/ingest/jsonl"
	"reviewprep/internal/services/preprocess/domain"
)

// ReaderFactory opens files through jsonl.Open
type ReaderFactory struct {
	MaxLineBytes int
}

// NewReaderFactory returns a factory; maxLine <= 0 keeps the jsonl default
func NewReaderFactory(maxLine int) ReaderFactory { return ReaderFactory{MaxLineBytes: maxLine} }

// Open implements domain.ReaderFactory
func (f ReaderFactory) Open(path string) (domain.LineReader, error) {
	rd, err := jsonl.Open(path, jsonl.WithMaxLineBytes(f.MaxLineBytes))
	if err != nil {
		return nil, err
	}
	return rd, nil
}
