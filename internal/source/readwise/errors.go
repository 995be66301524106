package readwise

import (
	"fmt"
	"time"
)

// UpstreamError is a non-retryable client error (4xx other than 429).
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream rejected request: status %d: %s", e.StatusCode, e.Body)
}

// RateLimitError reports an exhausted rate-limit retry budget.
type RateLimitError struct {
	Attempts int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded after %d attempts", e.Attempts)
}

// rateLimited is the internal signal for a 429 response; retried under the
// rate-limit policy before escalating to RateLimitError.
type rateLimited struct {
	retryAfter time.Duration
}

func (e *rateLimited) Error() string {
	return fmt.Sprintf("rate limited (retry after %s)", e.retryAfter)
}

// transient marks timeouts and 5xx responses; retried under the smaller
// transient policy.
type transient struct {
	err error
}

func (e *transient) Error() string {
	return e.err.Error()
}

func (e *transient) Unwrap() error {
	return e.err
}
