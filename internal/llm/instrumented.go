package llm

import (
	"context"
	"time"

	"github.com/dgallion1/rfpgest/internal/metrics"
)

// Instrumented records latency of every call into Stats and Prometheus.
type Instrumented struct {
	next  Client
	stats *Stats
}

func NewInstrumented(next Client, stats *Stats) *Instrumented {
	return &Instrumented{next: next, stats: stats}
}

func (c *Instrumented) Model() string { return c.next.Model() }

func (c *Instrumented) Complete(ctx context.Context, req Request) (string, error) {
	start := time.Now()
	out, err := c.next.Complete(ctx, req)
	elapsed := time.Since(start)

	step := req.Step
	if step == "" {
		step = "other"
	}
	if c.stats != nil {
		c.stats.Record(step, elapsed, err != nil)
	}
	metrics.LLMLatency.WithLabelValues(step, c.next.Model()).Observe(elapsed.Seconds())
	if err != nil {
		result := "error"
		if IsRetryable(err) {
			result = "retryable"
		}
		metrics.LLMErrors.WithLabelValues(step, result).Inc()
	}
	return out, err
}
