// Package domain holds the types shared by the preprocess service and its callers
package domain

import (
	"time"

	perr "reviewprep/internal/platform/errors"
)

// ErrInputNotFound is returned when the input path does not exist.
// No output file is created in that case
var ErrInputNotFound = perr.New(perr.ErrorCodeNotFound, "preprocess: input not found")

// Malformed describes one skipped input line
type Malformed struct {
	Line int    `json:"line"`
	Err  string `json:"err"`
}

// Result summarizes one Process call
type Result struct {
	Input      string        `json:"input"`
	Output     string        `json:"output"`
	Compressed bool          `json:"compressed"`
	Lines      int           `json:"lines"`   // non-blank lines read
	Written    int           `json:"written"` // records written
	Skipped    int           `json:"skipped"` // malformed lines dropped
	Blank      int           `json:"blank"`
	Bytes      int64         `json:"bytes"` // uncompressed input bytes
	Malformed  []Malformed   `json:"malformed,omitempty"`
	Elapsed    time.Duration `json:"elapsed"`
}
