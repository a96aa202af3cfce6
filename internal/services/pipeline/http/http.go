// Package http provides the pipeline status endpoints
package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"reviewprep/internal/modkit/httpkit"
	perr "reviewprep/internal/platform/errors"
	"reviewprep/internal/platform/logger"
	pnet "reviewprep/internal/platform/net"
	"reviewprep/internal/services/pipeline/domain"
)

// Deps are the handler dependencies
type Deps struct {
	Runner domain.RunnerPort
	Ledger domain.Ledger

	// Metrics serves /metrics when set
	Metrics http.Handler

	// NextRun reports the next scheduled tick; optional
	NextRun func() time.Time

	// Background is the parent context for runs triggered over HTTP
	Background context.Context

	// Spawn starts a triggered run; defaults to a goroutine
	Spawn func(func())

	StartedAt time.Time
}

type handlers struct {
	deps Deps
}

// Register mounts the pipeline routes
func Register(r httpkit.Router, d Deps) {
	if d.Runner == nil || d.Ledger == nil {
		panic("pipeline http requires a runner and a ledger")
	}
	if d.Background == nil {
		d.Background = context.Background()
	}
	if d.Spawn == nil {
		d.Spawn = func(fn func()) { go fn() }
	}
	h := &handlers{deps: d}

	httpkit.Get(r, "/healthz", h.health)
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}
	httpkit.Get(r, "/runs", h.list)
	httpkit.Get(r, "/runs/latest", h.latest)
	httpkit.Get(r, "/runs/{id}", h.get)
	httpkit.PostJSON(r, "/runs", h.trigger)
}

// HealthResponse is the health payload
type HealthResponse struct {
	OK        bool   `json:"ok"`
	Started   string `json:"started"`
	Now       string `json:"now"`
	ActiveRun string `json:"active_run,omitempty"`
	NextRun   string `json:"next_run,omitempty"`
}

// TriggerRequest is the optional body of POST /runs
type TriggerRequest struct {
	// Trigger labels the run in the ledger; defaults to "api"
	Trigger string `json:"trigger" validate:"omitempty,slug,max=32"`
}

// TriggerResponse acknowledges an accepted run request
type TriggerResponse struct {
	Accepted bool   `json:"accepted"`
	Trigger  string `json:"trigger"`
}

func (h *handlers) health(_ *http.Request) (any, error) {
	out := HealthResponse{
		OK:      true,
		Started: h.deps.StartedAt.UTC().Format(time.RFC3339),
		Now:     time.Now().UTC().Format(time.RFC3339),
	}
	if id, ok := h.deps.Runner.Active(); ok {
		out.ActiveRun = id
	}
	if h.deps.NextRun != nil {
		if n := h.deps.NextRun(); !n.IsZero() {
			out.NextRun = n.UTC().Format(time.RFC3339)
		}
	}
	return out, nil
}

func (h *handlers) list(r *http.Request) (any, error) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 500 {
			return nil, perr.WithField(perr.InvalidArgf("limit must be between 1 and 500"), "limit")
		}
		limit = n
	}
	return h.deps.Ledger.Recent(r.Context(), limit)
}

func (h *handlers) latest(r *http.Request) (any, error) {
	runs, err := h.deps.Ledger.Recent(r.Context(), 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, perr.NotFoundf("no runs recorded yet")
	}
	return runs[0], nil
}

func (h *handlers) get(r *http.Request) (any, error) {
	return h.deps.Ledger.Get(r.Context(), httpkit.Param(r, "id"))
}

// trigger starts a run in the background and answers 202 right away
func (h *handlers) trigger(r *http.Request, in TriggerRequest) (any, error) {
	if id, ok := h.deps.Runner.Active(); ok {
		return nil, perr.Conflictf("run %s already in progress", id)
	}
	trigger := in.Trigger
	if trigger == "" {
		trigger = "api"
	}
	ctx := logger.WithRequest(h.deps.Background, pnet.RequestID(r.Context()))
	h.deps.Spawn(func() {
		if _, err := h.deps.Runner.Run(ctx, trigger); err != nil {
			logger.C(ctx).Error().Err(err).Str("trigger", trigger).Msg("pipeline: api triggered run failed")
		}
	})
	return httpkit.Accepted(TriggerResponse{Accepted: true, Trigger: trigger}), nil
}
