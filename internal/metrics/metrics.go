// Package metrics exposes the outcome of a run as Prometheus gauges and
// pushes them to a Pushgateway.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/tmater/propcheck/internal/report"
)

const job = "propcheck"

// RunMetrics holds the gauges of one run. Each run gets its own registry so
// pushing one suite never carries values over from another.
type RunMetrics struct {
	registry *prometheus.Registry

	total    prometheus.Gauge
	passed   prometheus.Gauge
	failed   prometheus.Gauge
	rate     prometheus.Gauge
	duration prometheus.Gauge
	lastRun  prometheus.Gauge
}

func gauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
}

func New() *RunMetrics {
	m := &RunMetrics{
		registry: prometheus.NewRegistry(),
		total:    gauge("propcheck_checks_total", "Number of checks recorded in the run."),
		passed:   gauge("propcheck_checks_passed", "Number of checks that passed."),
		failed:   gauge("propcheck_checks_failed", "Number of checks that failed."),
		rate:     gauge("propcheck_success_rate", "Percentage of checks that passed."),
		duration: gauge("propcheck_run_duration_seconds", "Wall time of the run."),
		lastRun:  gauge("propcheck_last_run_timestamp_seconds", "Unix time the run finished."),
	}
	m.registry.MustRegister(m.total, m.passed, m.failed, m.rate, m.duration, m.lastRun)
	return m
}

// Observe sets every gauge from a finished run.
func (m *RunMetrics) Observe(s report.Summary, elapsed time.Duration, finished time.Time) {
	m.total.Set(float64(s.Total))
	m.passed.Set(float64(s.Passed))
	m.failed.Set(float64(s.Failed))
	m.rate.Set(s.SuccessRate)
	m.duration.Set(elapsed.Seconds())
	m.lastRun.Set(float64(finished.Unix()))
}

// Gatherer exposes the registry, e.g. to serve it or inspect it in tests.
func (m *RunMetrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Push replaces the metrics grouped under suite on the Pushgateway at url.
func (m *RunMetrics) Push(url, suite string) error {
	err := push.New(url, job).
		Gatherer(m.registry).
		Grouping("suite", suite).
		Push()
	if err != nil {
		return fmt.Errorf("metrics: push to %s: %w", url, err)
	}
	return nil
}
