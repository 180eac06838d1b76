package llm

import (
	"context"
	"math/rand/v2"
	"time"
)

const MaxRetries = 3

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

// BackoffFunc is swapped in tests to avoid real sleeps.
var BackoffFunc = Backoff

// CompleteWithRetry calls c.Complete, retrying transient errors up to MaxRetries times.
func CompleteWithRetry(ctx context.Context, c Client, req Request) (string, error) {
	var out string
	var err error
	for attempt := range MaxRetries {
		out, err = c.Complete(ctx, req)
		if err == nil || !IsRetryable(err) {
			return out, err
		}
		if attempt == MaxRetries-1 {
			break
		}
		select {
		case <-time.After(BackoffFunc(attempt)):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return out, err
}
