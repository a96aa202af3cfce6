// Package repo provides run ledger storage for pipeline runs
package repo

import (
	"context"
	"time"

	"reviewprep/internal/modkit/repokit"
	perr "reviewprep/internal/platform/errors"
	"reviewprep/internal/platform/store"
	"reviewprep/internal/services/pipeline/domain"
)

type (
	// PG is a Postgres binder for domain.Ledger
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a Postgres binder for domain.Ledger
func NewPG() repokit.Binder[domain.Ledger] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.Ledger { return &queries{q: repokit.RequireQueryer(q)} }

// StartRun inserts a run in the running state (idempotent)
func (r *queries) StartRun(ctx context.Context, run domain.Run) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO pipeline_runs (id, trigger, status, started_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET status = excluded.status, started_at = excluded.started_at, finished_at = null, error = null
	`, run.ID, run.Trigger, string(run.Status), run.Started.UTC())
	return perr.FromPostgres(err, "ledger: start run")
}

// RecordStage appends one stage step to a run
func (r *queries) RecordStage(ctx context.Context, runID string, st domain.StageResult) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO pipeline_stages (
			run_id, stage, dataset, status, attempts, started_at,
			elapsed_ms, records, skipped, bytes, detail, error
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11,''), NULLIF($12,''))
	`,
		runID, string(st.Stage), st.Dataset, string(st.Status), st.Attempts, st.Started.UTC(),
		st.Elapsed.Milliseconds(), st.Records, st.Skipped, st.Bytes, st.Detail, st.Err,
	)
	return perr.FromPostgres(err, "ledger: record stage")
}

// FinishRun stores the final status of a run
func (r *queries) FinishRun(ctx context.Context, run domain.Run) error {
	_, err := r.q.Exec(ctx, `
		UPDATE pipeline_runs SET
			status = $2,
			finished_at = $3,
			error = NULLIF($4,'')
		WHERE id = $1
	`, run.ID, string(run.Status), run.Finished.UTC(), run.Err)
	return perr.FromPostgres(err, "ledger: finish run")
}

const runCols = `id, trigger, status, started_at, finished_at, coalesce(error, '')`

// Recent returns the newest runs first, each with its stages
func (r *queries) Recent(ctx context.Context, limit int) ([]domain.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	runs, err := store.Many(ctx, r.q, scanRun, `
		SELECT `+runCols+`
		FROM pipeline_runs
		ORDER BY started_at DESC, id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, perr.FromPostgres(err, "ledger: recent runs")
	}
	if len(runs) == 0 {
		return []domain.Run{}, nil
	}

	ids := make([]string, len(runs))
	idx := make(map[string]int, len(runs))
	for i, run := range runs {
		ids[i] = run.ID
		idx[run.ID] = i
	}
	stages, err := store.Many(ctx, r.q, scanStage, `
		SELECT `+stageCols+`
		FROM pipeline_stages
		WHERE run_id = ANY($1)
		ORDER BY id
	`, ids)
	if err != nil {
		return nil, perr.FromPostgres(err, "ledger: recent stages")
	}
	for _, s := range stages {
		i := idx[s.runID]
		runs[i].Stages = append(runs[i].Stages, s.StageResult)
	}
	return runs, nil
}

// Get returns one run with its stages
func (r *queries) Get(ctx context.Context, id string) (domain.Run, error) {
	run, err := store.One(ctx, r.q, scanRun, `SELECT `+runCols+` FROM pipeline_runs WHERE id = $1`, id)
	if err != nil {
		if perr.IsCode(err, perr.ErrorCodeNotFound) {
			return domain.Run{}, perr.NotFoundf("ledger: run %s not found", id)
		}
		return domain.Run{}, perr.FromPostgres(err, "ledger: get run")
	}
	stages, err := store.Many(ctx, r.q, scanStage, `
		SELECT `+stageCols+`
		FROM pipeline_stages
		WHERE run_id = $1
		ORDER BY id
	`, id)
	if err != nil {
		return domain.Run{}, perr.FromPostgres(err, "ledger: get stages")
	}
	for _, s := range stages {
		run.Stages = append(run.Stages, s.StageResult)
	}
	return run, nil
}

func scanRun(row store.Row) (domain.Run, error) {
	var (
		run      domain.Run
		status   string
		finished *time.Time
	)
	if err := row.Scan(&run.ID, &run.Trigger, &status, &run.Started, &finished, &run.Err); err != nil {
		return domain.Run{}, err
	}
	run.Status = domain.Status(status)
	run.Started = run.Started.UTC()
	if finished != nil {
		run.Finished = finished.UTC()
	}
	return run, nil
}

const stageCols = `run_id, stage, dataset, status, attempts, started_at, elapsed_ms,
	records, skipped, bytes, coalesce(detail, ''), coalesce(error, '')`

type stageRow struct {
	runID string
	domain.StageResult
}

func scanStage(row store.Row) (stageRow, error) {
	var (
		s             stageRow
		stage, status string
		elapsedMS     int64
	)
	if err := row.Scan(
		&s.runID, &stage, &s.Dataset, &status, &s.Attempts, &s.Started, &elapsedMS,
		&s.Records, &s.Skipped, &s.Bytes, &s.Detail, &s.Err,
	); err != nil {
		return stageRow{}, err
	}
	s.Stage = domain.Stage(stage)
	s.Status = domain.Status(status)
	s.Started = s.Started.UTC()
	s.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	return s, nil
}
