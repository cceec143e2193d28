package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vietddude/luna/internal/core/cleanup"
	"github.com/vietddude/luna/internal/core/domain"
)

// Registry holds only installer metrics so the textfile export stays free of
// Go runtime series.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// OperationsTotal tracks ledger outcomes per category
	OperationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luna_operations_total",
			Help: "Total number of installer operations",
		},
		[]string{"category", "result"},
	)

	// RetriesTotal tracks retry attempts per operation
	RetriesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luna_retries_total",
			Help: "Total number of retried operations",
		},
		[]string{"operation"},
	)

	// CleanupTotal tracks rollback removals
	CleanupTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luna_cleanup_total",
			Help: "Total number of cleanup removals",
		},
		[]string{"result"},
	)

	// RunSuccessRatio is the success ratio of the last run
	RunSuccessRatio = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "luna_run_success_ratio",
			Help: "Success ratio of the last installer run",
		},
	)

	// RunDuration is the wall time of the last run
	RunDuration = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "luna_run_duration_seconds",
			Help: "Duration of the last installer run in seconds",
		},
	)

	// RunStatus is 1 for the status of the last run and 0 for the others
	RunStatus = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "luna_run_status",
			Help: "Status of the last installer run",
		},
		[]string{"status"},
	)
)

// ObserveOutcome counts one ledger outcome. It matches ledger.Observer.
func ObserveOutcome(category domain.Category, succeeded bool) {
	result := "success"
	if !succeeded {
		result = "failure"
	}
	OperationsTotal.WithLabelValues(string(category), result).Inc()
}

// ObserveRetry counts one retry of operation.
func ObserveRetry(operation string) {
	RetriesTotal.WithLabelValues(operation).Inc()
}

// ObserveCleanup counts the removals of one cleanup pass.
func ObserveCleanup(rec *cleanup.Record) {
	if rec == nil {
		return
	}
	CleanupTotal.WithLabelValues("cleaned").Add(float64(rec.Succeeded))
	CleanupTotal.WithLabelValues("failed").Add(float64(rec.Failed))
	CleanupTotal.WithLabelValues("absent").Add(float64(len(rec.Absent)))
}

// ObserveRun sets the last-run gauges from a finished run.
func ObserveRun(run *domain.Run) {
	RunSuccessRatio.Set(run.SuccessRatio)
	if !run.EndedAt.IsZero() {
		RunDuration.Set(run.EndedAt.Sub(run.StartedAt).Seconds())
	}
	for _, s := range []domain.RunStatus{domain.RunStatusCompleted, domain.RunStatusAborted, domain.RunStatusRolledBack} {
		v := 0.0
		if s == run.Status {
			v = 1
		}
		RunStatus.WithLabelValues(string(s)).Set(v)
	}
}

// WriteTextfile writes the registry in the node-exporter textfile format.
// An empty path is a no-op.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
