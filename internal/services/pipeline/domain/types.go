// Package domain holds the orchestration types for the dataset pipeline
package domain

import (
	"time"
)

// Stage names one step of a run
type Stage string

const (
	StageFetch      Stage = "fetch"
	StagePreprocess Stage = "preprocess"
	StageVerify     Stage = "verify"
	StagePublish    Stage = "publish"
)

// Stages lists every stage in execution order
var Stages = []Stage{StageFetch, StagePreprocess, StageVerify, StagePublish}

// Status is the outcome of a run or stage step
type Status string

const (
	StatusRunning Status = "running"
	StatusOK      Status = "ok"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"
)

// Dataset is one source file and the cleaned sibling it produces
type Dataset struct {
	Name      string `yaml:"name" json:"name" validate:"required,slug"`
	URL       string `yaml:"url" json:"url" validate:"required,url"`
	RawPath   string `yaml:"raw" json:"raw_path" validate:"required"`
	CleanPath string `yaml:"clean" json:"clean_path" validate:"required,nefield=RawPath"`
}

// StageResult records one stage step for one dataset
type StageResult struct {
	Stage    Stage         `json:"stage"`
	Dataset  string        `json:"dataset"`
	Status   Status        `json:"status"`
	Attempts int           `json:"attempts"`
	Started  time.Time     `json:"started_at"`
	Elapsed  time.Duration `json:"elapsed"`
	Records  int           `json:"records,omitempty"` // written or verified
	Skipped  int           `json:"skipped,omitempty"` // malformed lines dropped
	Bytes    int64         `json:"bytes,omitempty"`
	Detail   string        `json:"detail,omitempty"`
	Err      string        `json:"error,omitempty"`
}

// Run is one end-to-end pipeline execution
type Run struct {
	ID       string        `json:"id"`
	Trigger  string        `json:"trigger"` // cli, schedule, api
	Status   Status        `json:"status"`
	Started  time.Time     `json:"started_at"`
	Finished time.Time     `json:"finished_at,omitzero"`
	Stages   []StageResult `json:"stages"`
	Err      string        `json:"error,omitempty"`
}

// Verification summarizes a verify pass over one cleaned file
type Verification struct {
	Path       string          `json:"path"`
	Records    int             `json:"records"`
	Invalid    int             `json:"invalid"`
	Violations []LineViolation `json:"violations,omitempty"`
}

// LineViolation is one record check failure tied to its line
type LineViolation struct {
	Line   int    `json:"line"`
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Upload describes one published object
type Upload struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	Bytes  int64  `json:"bytes"`
}
