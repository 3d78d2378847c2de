// Package metrics records statement-level counters for sparkify commands and
// pushes them to a Prometheus Pushgateway. The CLI is a short-lived job, so
// there is no scrape endpoint.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Recorder collects metrics for one command run. A nil *Recorder is valid
// and records nothing.
type Recorder struct {
	reg *prometheus.Registry

	statements *prometheus.CounterVec // sparkify_statements_total
	duration   *prometheus.SummaryVec // sparkify_statement_duration_seconds
	rows       *prometheus.CounterVec // sparkify_rows_total
}

// New builds a Recorder whose series all carry the given dialect label
func New(dialect string) *Recorder {
	reg := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"dialect": dialect}

	statements := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "sparkify_statements_total",
			Help:        "Statements executed against the warehouse, by kind, table and status.",
			ConstLabels: constLabels,
		},
		[]string{"kind", "table", "status"},
	)
	duration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:        "sparkify_statement_duration_seconds",
			Help:        "Statement execution time in seconds, by kind and table.",
			ConstLabels: constLabels,
			Objectives:  map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"kind", "table"},
	)
	// outcome is "inserted" or "ignored" (dimension key already present)
	rows := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "sparkify_rows_total",
			Help:        "Insert outcomes per table.",
			ConstLabels: constLabels,
		},
		[]string{"table", "outcome"},
	)

	reg.MustRegister(statements, duration, rows)

	return &Recorder{
		reg:        reg,
		statements: statements,
		duration:   duration,
		rows:       rows,
	}
}

// ObserveStatement counts one executed statement and its duration
func (r *Recorder) ObserveStatement(kind, table string, d time.Duration, err error) {
	if r == nil {
		return
	}
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	r.statements.WithLabelValues(kind, table, status).Inc()
	r.duration.WithLabelValues(kind, table).Observe(d.Seconds())
}

// ObserveInsert records whether an insert added a row
func (r *Recorder) ObserveInsert(table string, affected int64) {
	if r == nil {
		return
	}
	if affected > 0 {
		r.rows.WithLabelValues(table, "inserted").Add(float64(affected))
		return
	}
	r.rows.WithLabelValues(table, "ignored").Inc()
}

// Registry exposes the underlying registry, mainly for tests
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

// Push sends the collected metrics to a Pushgateway under the given job name
func (r *Recorder) Push(ctx context.Context, gatewayURL, job string) error {
	if r == nil {
		return nil
	}
	if gatewayURL == "" {
		return fmt.Errorf("metrics: gateway URL is required")
	}
	if job == "" {
		job = "sparkify"
	}
	if err := push.New(gatewayURL, job).Gatherer(r.reg).PushContext(ctx); err != nil {
		return fmt.Errorf("metrics: push to %s: %w", gatewayURL, err)
	}
	return nil
}
