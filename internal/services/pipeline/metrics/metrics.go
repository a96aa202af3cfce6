// Package metrics exposes prometheus collectors for pipeline runs
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"reviewprep/internal/services/pipeline/domain"
)

const namespace = "reviewprep"

// Metrics bundles the pipeline collectors. A nil *Metrics is a no-op
type Metrics struct {
	runs          *prometheus.CounterVec
	stageAttempts *prometheus.CounterVec
	stageSeconds  *prometheus.HistogramVec
	records       *prometheus.CounterVec
	skipped       *prometheus.CounterVec
	lastSuccess   prometheus.Gauge
	active        prometheus.Gauge
}

// New builds the collectors and registers them on reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by final status.",
		}, []string{"status"}),
		stageAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_attempts_total",
			Help:      "Stage attempts by stage and outcome.",
		}, []string{"stage", "status"}),
		stageSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of one stage step including retries.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 14),
		}, []string{"stage"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_written_total",
			Help:      "Cleaned records written per dataset.",
		}, []string{"dataset"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_skipped_total",
			Help:      "Malformed input lines skipped per dataset.",
		}, []string{"dataset"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_active",
			Help:      "1 while a run is in progress.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.runs, m.stageAttempts, m.stageSeconds, m.records, m.skipped, m.lastSuccess, m.active)
	}
	return m
}

// RunStarted marks a run as active
func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.active.Set(1)
}

// RunFinished books a finished run
func (m *Metrics) RunFinished(run domain.Run) {
	if m == nil {
		return
	}
	m.active.Set(0)
	m.runs.WithLabelValues(string(run.Status)).Inc()
	if run.Status == domain.StatusOK {
		m.lastSuccess.Set(float64(run.Finished.Unix()))
	}
}

// Attempt books one stage attempt
func (m *Metrics) Attempt(stage domain.Stage, err error) {
	if m == nil {
		return
	}
	status := domain.StatusOK
	if err != nil {
		status = domain.StatusError
	}
	m.stageAttempts.WithLabelValues(string(stage), string(status)).Inc()
}

// Stage books a finished stage step
func (m *Metrics) Stage(st domain.StageResult) {
	if m == nil {
		return
	}
	m.stageSeconds.WithLabelValues(string(st.Stage)).Observe(st.Elapsed.Seconds())
	if st.Stage == domain.StagePreprocess && st.Status == domain.StatusOK {
		m.records.WithLabelValues(st.Dataset).Add(float64(st.Records))
		m.skipped.WithLabelValues(st.Dataset).Add(float64(st.Skipped))
	}
}
