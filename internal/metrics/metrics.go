// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LLMLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "rfpgest",
		Name:      "llm_request_duration_seconds",
		Help:      "Model call latency by pipeline step.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
	}, []string{"step", "model"})

	LLMErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rfpgest",
		Name:      "llm_errors_total",
		Help:      "Failed model calls by step and kind.",
	}, []string{"step", "kind"})

	Verdicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rfpgest",
		Name:      "section_verdicts_total",
		Help:      "Candidate heading verdicts.",
	}, []string{"verdict"})

	Jobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rfpgest",
		Name:      "jobs_total",
		Help:      "Finished jobs by kind and terminal status.",
	}, []string{"kind", "status"})

	RecordsPersisted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rfpgest",
		Name:      "records_persisted_total",
		Help:      "Store writes by record kind and outcome.",
	}, []string{"kind", "outcome"})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "rfpgest",
		Name:      "job_queue_depth",
		Help:      "Jobs waiting for a worker.",
	})
)
