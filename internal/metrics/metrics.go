// Package metrics records operational metrics for dqx runs behind a small,
// backend-agnostic interface.
//
// The global backend defaults to a no-op, so the job runner can always call
// RecordStep and friends whether or not a real backend is configured.
// Concrete systems live in subpackages (prompush, datadog) and are installed
// with SetBackend.
package metrics

import "time"

// Metric names emitted by this package.
const (
	StepTotal       = "dq_step_total"
	StepDuration    = "dq_step_duration_seconds"
	RowsTotal       = "dq_rows_total"
	ViolationsTotal = "dq_rule_violations_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep counts one execution of a run step (load, parse, profile,
// validate, apply, write) and observes its duration.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}

	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRows adds delta rows of the given outcome for a job.
//
// Outcomes used by the runner:
//   - "input"
//   - "clean"
//   - "quarantined"
//   - "warned"
func RecordRows(job, outcome string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(RowsTotal, float64(delta), Labels{
		"job":     job,
		"outcome": outcome,
	})
}

// RecordViolations adds the number of rows that failed a rule.
func RecordViolations(job, rule, criticality string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter(ViolationsTotal, float64(delta), Labels{
		"job":         job,
		"rule":        rule,
		"criticality": criticality,
	})
}
