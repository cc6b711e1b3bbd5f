package main

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/caffeineduck/birdrun/errors"
	"github.com/caffeineduck/birdrun/executor"
)

type serverMetrics struct {
	registry  *prometheus.Registry
	runs      *prometheus.CounterVec
	hostCalls prometheus.Counter
	duration  prometheus.Histogram
}

func newServerMetrics() *serverMetrics {
	m := &serverMetrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "birdrun_runs_total",
			Help: "Runs served, by outcome (completed or the failure kind)",
		}, []string{"outcome"}),
		hostCalls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "birdrun_host_calls_total",
			Help: "Values recorded through the env print functions",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "birdrun_run_duration_seconds",
			Help:    "Wall time of a run from load to completion",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
	}
	m.registry.MustRegister(m.runs, m.hostCalls, m.duration)
	return m
}

func (m *serverMetrics) observe(result executor.Result) {
	outcome := result.State.String()
	if kind := errors.KindOf(result.Error); kind != "" {
		outcome = string(kind)
	}
	m.runs.WithLabelValues(outcome).Inc()
	m.hostCalls.Add(float64(result.Calls))
	m.duration.Observe(result.Duration.Seconds())
}
