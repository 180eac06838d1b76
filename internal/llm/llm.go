// Package llm wraps the chat-completion providers used for sectioning and
// requirement extraction.
package llm

import "context"

// Request is a single prompt. Step names the pipeline stage for metrics.
type Request struct {
	System string
	User   string
	JSON   bool
	Step   string
}

// Client completes a prompt and returns the raw model text.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
	Model() string
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
