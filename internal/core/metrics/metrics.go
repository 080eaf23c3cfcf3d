// Package metrics exposes Prometheus instruments for report runs.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/recruiter-reports/internal"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	RunKindRanking    = "ranking"
	RunKindFinancials = "financials"
	RunKindHours      = "hours"

	OutcomeSuccess = "success"
	OutcomePartial = "partial"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

const (
	ReasonDeadlineExceeded = "deadline_exceeded"
	ReasonDBLockTimeout    = "db_lock_timeout"
	ReasonConnection       = "connection"
	ReasonConfiguration    = "configuration"
	ReasonUnknown          = "unknown"
)

// Reports is nil-safe: every method is a no-op on a nil receiver.
type Reports struct {
	runs          *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	unitErrors    *prometheus.CounterVec
	discovered    *prometheus.CounterVec
	rankedRows    prometheus.Gauge
	snapshotWrite *prometheus.HistogramVec
}

func NewReports(reg prometheus.Registerer) *Reports {
	m := &Reports{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recruiter_reports",
			Name:      "runs_total",
			Help:      "Report runs by kind and outcome.",
		}, []string{"kind", "outcome"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "recruiter_reports",
			Name:      "run_duration_seconds",
			Help:      "Wall time of report runs.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"kind"}),
		unitErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recruiter_reports",
			Name:      "unit_errors_total",
			Help:      "Failures of single units of work inside a run.",
		}, []string{"kind", "reason"}),
		discovered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "recruiter_reports",
			Name:      "identities_discovered_total",
			Help:      "User configs created by auto-discovery.",
		}, []string{"ats"}),
		rankedRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "recruiter_reports",
			Name:      "ranked_rows",
			Help:      "Rows in the most recently computed ranking.",
		}),
		snapshotWrite: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "recruiter_reports",
			Name:      "snapshot_write_seconds",
			Help:      "Time spent persisting snapshots.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.runs, m.runDuration, m.unitErrors, m.discovered, m.rankedRows, m.snapshotWrite)
	}
	return m
}

// ObserveRun records one finished run. A nil err with unit errors counts as partial.
func (m *Reports) ObserveRun(kind string, started time.Time, err error, unitErrors []internal.UnitError) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	switch {
	case err != nil:
		outcome = OutcomeFailure
	case len(unitErrors) > 0:
		outcome = OutcomePartial
	}
	m.runs.WithLabelValues(kind, outcome).Inc()
	m.runDuration.WithLabelValues(kind).Observe(time.Since(started).Seconds())
	for _, ue := range unitErrors {
		m.unitErrors.WithLabelValues(kind, ClassifyReason(ue.Err)).Inc()
	}
}

func (m *Reports) RunSkipped(kind string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(kind, OutcomeSkipped).Inc()
}

func (m *Reports) IdentityDiscovered(system string) {
	if m == nil {
		return
	}
	m.discovered.WithLabelValues(system).Inc()
}

func (m *Reports) SetRankedRows(n int) {
	if m == nil {
		return
	}
	m.rankedRows.Set(float64(n))
}

func (m *Reports) ObserveSnapshotWrite(kind string, started time.Time) {
	if m == nil {
		return
	}
	m.snapshotWrite.WithLabelValues(kind).Observe(time.Since(started).Seconds())
}

// ClassifyReason buckets a unit failure into a low-cardinality label.
func ClassifyReason(err error) string {
	if err == nil {
		return ReasonUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonDeadlineExceeded
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "55P03" || pgErr.Code == "57014" {
			return ReasonDBLockTimeout
		}
		return ReasonUnknown
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return ReasonConnection
	}
	if appErr, ok := internal.IsAppError(err); ok && appErr.Type == internal.ErrorTypeConfiguration {
		return ReasonConfiguration
	}
	return ReasonUnknown
}
