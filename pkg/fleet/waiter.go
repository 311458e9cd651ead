package fleet

import (
	"context"
	"time"

	"github.com/openfleet/openfleet/pkg/fly"
)

// WaitPolicy bounds a convergence wait.
type WaitPolicy struct {
	// InitialDelay is the delay before the first poll and the minimum
	// delay between polls. Polling never busy-loops.
	InitialDelay time.Duration

	// Multiplier grows the inter-poll delay after each poll.
	Multiplier float64

	// MaxDelay caps the inter-poll delay.
	MaxDelay time.Duration

	// Deadline is the total time allowed for convergence.
	Deadline time.Duration
}

// DefaultWaitPolicy suits machine lifecycle transitions, which usually
// converge within seconds but can take much longer on a busy host.
var DefaultWaitPolicy = WaitPolicy{
	InitialDelay: time.Second,
	Multiplier:   1.5,
	MaxDelay:     15 * time.Second,
	Deadline:     5 * time.Minute,
}

// Observation is one poll result: the fetched value plus the state
// string attached to timeout errors for diagnostics.
type Observation[T any] struct {
	Value T
	State string
}

// waitFor polls until the predicate accepts an observation or the
// deadline elapses.
//
// Transient poll failures are absorbed: under an eventually-consistent
// platform a failed read says nothing about whether the resource has
// converged, so polling continues until the deadline. Every other
// error class surfaces immediately. The wait suspends on a timer
// between polls and honors ctx cancellation.
func waitFor[T any](
	ctx context.Context,
	policy WaitPolicy,
	op string,
	poll func(ctx context.Context) (Observation[T], error),
	done func(Observation[T]) bool,
) (T, error) {
	var zero T

	deadline := time.Now().Add(policy.Deadline)
	delay := policy.InitialDelay
	if delay <= 0 {
		delay = time.Second
	}

	lastState := "unknown"
	for {
		obs, err := poll(ctx)
		switch {
		case err == nil:
			lastState = obs.State
			if done(obs) {
				return obs.Value, nil
			}
		case fly.IsTransient(err):
			// Keep polling; the deadline bounds the total wait.
		default:
			return zero, err
		}

		if time.Now().Add(delay).After(deadline) {
			return zero, fly.NewTimeoutError("convergence deadline elapsed", lastState).WithOperation(op)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, ctx.Err()
		}

		delay = time.Duration(float64(delay) * policy.Multiplier)
		if delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
		if delay < policy.InitialDelay {
			delay = policy.InitialDelay
		}
	}
}
