package fleet

import (
	"context"
	"testing"
	"time"

	"github.com/openfleet/openfleet/pkg/fly"
)

func TestRetrySucceedsAfterTransient(t *testing.T) {
	calls := 0
	err := retryWith(context.Background(), fastRetry, "test.op", nil, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return fly.NewTransientError("flaky", nil)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected recovery, got %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryDoesNotRetryTerminalErrors(t *testing.T) {
	terminal := []error{
		fly.NewNotFoundError("gone"),
		fly.NewConflictError("taken", nil),
		fly.NewInvalidError("bad"),
		fly.NewTimeoutError("slow", ""),
	}
	for _, want := range terminal {
		calls := 0
		err := retryWith(context.Background(), fastRetry, "test.op", nil, func(ctx context.Context) error {
			calls++
			return want
		})
		if err != want {
			t.Errorf("terminal error changed: got %v, want %v", err, want)
		}
		if calls != 1 {
			t.Errorf("terminal %v retried %d times", want, calls)
		}
	}
}

func TestRetryExhaustionIsUnavailable(t *testing.T) {
	cause := fly.NewTransientError("always down", nil)
	calls := 0
	retries := 0
	err := retryWith(context.Background(), fastRetry, "test.op", func() { retries++ }, func(ctx context.Context) error {
		calls++
		return cause
	})
	if !fly.IsUnavailable(err) {
		t.Fatalf("exhaustion should be unavailable, got %v", err)
	}
	if calls != fastRetry.MaxAttempts {
		t.Errorf("calls = %d, want %d", calls, fastRetry.MaxAttempts)
	}
	if retries != fastRetry.MaxAttempts-1 {
		t.Errorf("onRetry ran %d times, want %d", retries, fastRetry.MaxAttempts-1)
	}
	if !fly.IsRetryable(cause) {
		t.Error("sanity: the cause should have been retryable")
	}
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{MaxAttempts: 10, BaseDelay: time.Hour, MaxDelay: time.Hour}

	done := make(chan error, 1)
	go func() {
		done <- retryWith(ctx, policy, "test.op", nil, func(ctx context.Context) error {
			return fly.NewTransientError("flaky", nil)
		})
	}()
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("got %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("retry did not observe cancellation")
	}
}

func TestBackoffGrowthAndCap(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 10, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}
	var prev time.Duration
	for attempt := 0; attempt < 8; attempt++ {
		delay := policy.backoff(attempt)
		if delay < prev {
			t.Errorf("backoff(%d) = %v shrank below %v", attempt, delay, prev)
		}
		if delay > policy.MaxDelay {
			t.Errorf("backoff(%d) = %v exceeds cap %v", attempt, delay, policy.MaxDelay)
		}
		prev = delay
	}
	if policy.backoff(0) != 100*time.Millisecond {
		t.Errorf("backoff(0) = %v, want base delay", policy.backoff(0))
	}
	if policy.backoff(1) != 200*time.Millisecond {
		t.Errorf("backoff(1) = %v, want doubled base", policy.backoff(1))
	}
}
