// Copyright 2026 Marcelo Cantos
// SPDX-License-Identifier: Apache-2.0

// Package metrics records Prometheus metrics for one ttsh run. Metrics
// live on a private registry and are exported as a node_exporter
// textfile rather than served.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marcelocantos/ttsh/internal/syntax"
)

const namespace = "ttsh"

// Recorder counts command lifecycle events. It satisfies the scheduler's
// Observer interface.
type Recorder struct {
	reg *prometheus.Registry

	started  prometheus.Counter
	finished *prometheus.CounterVec
	duration prometheus.Histogram
	running  prometheus.Gauge
	peak     prometheus.Gauge
	edges    prometheus.Gauge

	inFlight int
	maxSeen  int
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,
		started: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_started_total",
			Help:      "Top-level commands started.",
		}),
		finished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_finished_total",
			Help:      "Top-level commands finished, by result.",
		}, []string{"result"}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Wall time of top-level commands.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
		running: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "running_commands",
			Help:      "Top-level commands currently running.",
		}),
		peak: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "running_commands_peak",
			Help:      "Most top-level commands running at once.",
		}),
		edges: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_edges",
			Help:      "Dependency edges in the script's command graph.",
		}),
	}
}

// Registry exposes the private registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// Edges records the size of the dependency graph.
func (r *Recorder) Edges(n int) { r.edges.Set(float64(n)) }

func (r *Recorder) Started(int, *syntax.Node) {
	r.started.Inc()
	r.inFlight++
	r.running.Set(float64(r.inFlight))
	if r.inFlight > r.maxSeen {
		r.maxSeen = r.inFlight
		r.peak.Set(float64(r.maxSeen))
	}
}

func (r *Recorder) Finished(_ int, _ *syntax.Node, status int, elapsed time.Duration) {
	r.inFlight--
	r.running.Set(float64(r.inFlight))
	r.finished.WithLabelValues(result(status)).Inc()
	r.duration.Observe(elapsed.Seconds())
}

func result(status int) string {
	switch {
	case status == 0:
		return "success"
	case status > 128:
		return "signaled"
	}
	return "failure"
}

// WriteTextfile writes every metric to path in the Prometheus text format.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
