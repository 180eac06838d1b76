// Package events publishes job lifecycle events.
package events

import (
	"context"
	"time"
)

// Event is a job status change.
type Event struct {
	JobID  string    `json:"job_id"`
	DocID  string    `json:"doc_id"`
	Kind   string    `json:"kind"`
	Status string    `json:"status"`
	Phase  string    `json:"phase,omitempty"`
	Reason string    `json:"reason,omitempty"`
	At     time.Time `json:"at"`
}

// Publisher delivers events. Publish must not block on slow consumers.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Noop discards events.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }
