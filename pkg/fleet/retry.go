// Package fleet turns single remote calls from pkg/fly into reliable
// operations: bounded retry of transient failures, convergence waiting
// for asynchronous machine lifecycles, and idempotent reconciliation
// of secret sets.
package fleet

import (
	"context"
	"math"
	"time"

	"github.com/openfleet/openfleet/pkg/fly"
)

// RetryPolicy bounds retries of transient remote failures.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the exponential growth.
	MaxDelay time.Duration
}

// DefaultRetryPolicy is the policy used by the façade and the
// reconciler when none is configured.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 4,
	BaseDelay:   500 * time.Millisecond,
	MaxDelay:    10 * time.Second,
}

// backoff returns the delay before retry number attempt (0-based):
// BaseDelay * 2^attempt, capped at MaxDelay.
func (p RetryPolicy) backoff(attempt int) time.Duration {
	delay := time.Duration(float64(p.BaseDelay) * math.Pow(2, float64(attempt)))
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	return delay
}

// retryWith runs fn until it succeeds, fails terminally, or the
// attempt budget is exhausted. Only transient errors are retried;
// every other classification is surfaced unchanged. Exhaustion
// surfaces as unavailable, wrapping the last transient failure, and
// the whole operation stays safe to resubmit. onRetry, when non-nil,
// runs before each retry.
func retryWith(ctx context.Context, policy RetryPolicy, op string, onRetry func(), fn func(ctx context.Context) error) error {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !fly.IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == attempts-1 {
			break
		}
		select {
		case <-time.After(policy.backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
		if onRetry != nil {
			onRetry()
		}
	}
	return fly.NewUnavailableError("retry budget exhausted", lastErr).WithOperation(op)
}
