package fleet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openfleet/openfleet/pkg/fly"
)

func TestWaitForConvergesAfterSeveralPolls(t *testing.T) {
	states := []string{"created", "starting", "starting", "started"}
	polls := 0
	got, err := waitFor(context.Background(), fastWait, "test.wait",
		func(ctx context.Context) (Observation[string], error) {
			state := states[polls]
			polls++
			return Observation[string]{Value: state, State: state}, nil
		},
		func(obs Observation[string]) bool { return obs.State == "started" },
	)
	if err != nil {
		t.Fatalf("waitFor: %v", err)
	}
	if got != "started" {
		t.Errorf("value = %q, want started", got)
	}
	if polls != 4 {
		t.Errorf("polls = %d, want 4", polls)
	}
}

func TestWaitForAbsorbsTransientPollFailures(t *testing.T) {
	polls := 0
	_, err := waitFor(context.Background(), fastWait, "test.wait",
		func(ctx context.Context) (Observation[string], error) {
			polls++
			if polls < 3 {
				return Observation[string]{}, fly.NewTransientError("read failed", nil)
			}
			return Observation[string]{Value: "ok", State: "started"}, nil
		},
		func(obs Observation[string]) bool { return obs.State == "started" },
	)
	if err != nil {
		t.Fatalf("transient poll failures must not abort the wait, got %v", err)
	}
	if polls != 3 {
		t.Errorf("polls = %d, want 3", polls)
	}
}

func TestWaitForSurfacesTerminalPollErrors(t *testing.T) {
	want := fly.NewNotFoundError("app vanished")
	polls := 0
	_, err := waitFor(context.Background(), fastWait, "test.wait",
		func(ctx context.Context) (Observation[string], error) {
			polls++
			return Observation[string]{}, want
		},
		func(obs Observation[string]) bool { return true },
	)
	if !errors.Is(err, want) {
		t.Fatalf("got %v, want the not-found error", err)
	}
	if polls != 1 {
		t.Errorf("terminal error polled %d times, want 1", polls)
	}
}

func TestWaitForTimeoutCarriesLastState(t *testing.T) {
	_, err := waitFor(context.Background(), fastWait, "machines.create",
		func(ctx context.Context) (Observation[string], error) {
			return Observation[string]{Value: "", State: "starting"}, nil
		},
		func(obs Observation[string]) bool { return false },
	)
	if !fly.IsTimeout(err) {
		t.Fatalf("expected timeout, got %v", err)
	}
	var apiErr *fly.APIError
	if !errors.As(err, &apiErr) {
		t.Fatal("expected *fly.APIError")
	}
	if apiErr.LastState != "starting" {
		t.Errorf("LastState = %q, want starting", apiErr.LastState)
	}
	if apiErr.Operation != "machines.create" {
		t.Errorf("Operation = %q, want machines.create", apiErr.Operation)
	}
}

func TestWaitForTimeoutAfterOnlyTransientPolls(t *testing.T) {
	_, err := waitFor(context.Background(), fastWait, "test.wait",
		func(ctx context.Context) (Observation[string], error) {
			return Observation[string]{}, fly.NewTransientError("read failed", nil)
		},
		func(obs Observation[string]) bool { return true },
	)
	if !fly.IsTimeout(err) {
		t.Fatalf("expected timeout, got %v", err)
	}
	var apiErr *fly.APIError
	if errors.As(err, &apiErr) && apiErr.LastState != "unknown" {
		t.Errorf("LastState = %q, want unknown when nothing was observed", apiErr.LastState)
	}
}

func TestWaitForDelaysNeverShrink(t *testing.T) {
	var pollTimes []time.Time
	_, err := waitFor(context.Background(), WaitPolicy{
		InitialDelay: 2 * time.Millisecond,
		Multiplier:   2,
		MaxDelay:     20 * time.Millisecond,
		Deadline:     150 * time.Millisecond,
	}, "test.wait",
		func(ctx context.Context) (Observation[string], error) {
			pollTimes = append(pollTimes, time.Now())
			return Observation[string]{State: "pending"}, nil
		},
		func(obs Observation[string]) bool { return len(pollTimes) >= 5 },
	)
	if err != nil {
		t.Fatalf("waitFor: %v", err)
	}
	if len(pollTimes) < 5 {
		t.Fatalf("polls = %d, want at least 5", len(pollTimes))
	}
	// Inter-poll gaps should not shrink below the previous scheduled
	// delay; allow generous slack for timer jitter.
	for i := 2; i < len(pollTimes); i++ {
		gap := pollTimes[i].Sub(pollTimes[i-1])
		prevGap := pollTimes[i-1].Sub(pollTimes[i-2])
		if gap < prevGap/2 {
			t.Errorf("gap %d (%v) shrank sharply from %v", i, gap, prevGap)
		}
	}
}

func TestWaitForHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := WaitPolicy{InitialDelay: time.Hour, Multiplier: 1, MaxDelay: time.Hour, Deadline: 2 * time.Hour}

	done := make(chan error, 1)
	go func() {
		_, err := waitFor(ctx, policy, "test.wait",
			func(ctx context.Context) (Observation[string], error) {
				return Observation[string]{State: "pending"}, nil
			},
			func(obs Observation[string]) bool { return false },
		)
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("got %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("wait did not observe cancellation")
	}
}
