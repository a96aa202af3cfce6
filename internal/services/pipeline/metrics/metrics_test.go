package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"

	"reviewprep/internal/services/pipeline/domain"
)

func TestMetrics_RecordsRunAndStages(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RunStarted()
	if got := testutil.ToFloat64(m.active); got != 1 {
		t.Fatalf("active = %v", got)
	}
	m.Attempt(domain.StageFetch, errors.New("boom"))
	m.Attempt(domain.StageFetch, nil)
	m.Stage(domain.StageResult{Stage: domain.StagePreprocess, Dataset: "reviews", Status: domain.StatusOK, Records: 10, Skipped: 2, Elapsed: time.Second})
	fin := time.Unix(1700000000, 0)
	m.RunFinished(domain.Run{Status: domain.StatusOK, Finished: fin})

	if got := testutil.ToFloat64(m.stageAttempts.WithLabelValues("fetch", "error")); got != 1 {
		t.Fatalf("fetch errors = %v", got)
	}
	if got := testutil.ToFloat64(m.records.WithLabelValues("reviews")); got != 10 {
		t.Fatalf("records = %v", got)
	}
	if got := testutil.ToFloat64(m.skipped.WithLabelValues("reviews")); got != 2 {
		t.Fatalf("skipped = %v", got)
	}
	if got := testutil.ToFloat64(m.lastSuccess); got != 1700000000 {
		t.Fatalf("last success = %v", got)
	}
	if got := testutil.ToFloat64(m.active); got != 0 {
		t.Fatalf("active = %v", got)
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var hist *dto.MetricFamily
	for _, mf := range mfs {
		if mf.GetName() == "reviewprep_stage_duration_seconds" {
			hist = mf
		}
	}
	if hist == nil || hist.GetType() != dto.MetricType_HISTOGRAM {
		t.Fatalf("histogram missing")
	}
	if n := hist.GetMetric()[0].GetHistogram().GetSampleCount(); n != 1 {
		t.Fatalf("samples = %d", n)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.RunStarted()
	m.Attempt(domain.StageVerify, nil)
	m.Stage(domain.StageResult{})
	m.RunFinished(domain.Run{})
}
