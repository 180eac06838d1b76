package llm

import (
	"errors"
	"fmt"
)

// ErrMalformedOutput is returned when model text does not match the expected shape.
var ErrMalformedOutput = errors.New("malformed model output")

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

func isRetryableStatus(code int) bool {
	return code == 429 || code >= 500
}
