// Package metrics exposes the Prometheus counters and gauges published by
// the render manager and node server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every counter/gauge the control plane publishes.
type Metrics struct {
	JobsStarted            prometheus.Counter
	JobsFinished           prometheus.Counter
	JobsCancelled          prometheus.Counter
	WorkUnitsDispatched    prometheus.Counter
	RowsRendered           prometheus.Counter
	ConnectedRemoteWorkers prometheus.Gauge
}

// New registers and returns a fresh Metrics bundle against the default
// Prometheus registry.
func New() *Metrics {
	return &Metrics{
		JobsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "flux_jobs_started_total",
			Help: "The total number of jobs the render manager started rendering.",
		}),
		JobsFinished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "flux_jobs_finished_total",
			Help: "The total number of jobs that ran to completion uncancelled.",
		}),
		JobsCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "flux_jobs_cancelled_total",
			Help: "The total number of jobs that finished after cancellation.",
		}),
		WorkUnitsDispatched: promauto.NewCounter(prometheus.CounterOpts{
			Name: "flux_work_units_dispatched_total",
			Help: "The total number of work units whose rows a worker published.",
		}),
		RowsRendered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "flux_rows_rendered_total",
			Help: "The total number of image rows published via RowsReady events.",
		}),
		ConnectedRemoteWorkers: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "flux_connected_remote_workers",
			Help: "The number of remote workers currently connected to this node server.",
		}),
	}
}
