package fly

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorClass
	}{
		{404, ErrorClassNotFound},
		{409, ErrorClassConflict},
		{412, ErrorClassConflict},
		{422, ErrorClassConflict},
		{408, ErrorClassTransient},
		{429, ErrorClassTransient},
		{500, ErrorClassTransient},
		{502, ErrorClassTransient},
		{503, ErrorClassTransient},
		{400, ErrorClassInvalid},
		{401, ErrorClassInvalid},
		{403, ErrorClassInvalid},
	}
	for _, tt := range tests {
		if got := classifyStatus(tt.status); got != tt.want {
			t.Errorf("classifyStatus(%d) = %s, want %s", tt.status, got, tt.want)
		}
	}
}

func TestErrorPredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		pred func(error) bool
	}{
		{"not found", NewNotFoundError("gone"), IsNotFound},
		{"conflict", NewConflictError("taken", nil), IsConflict},
		{"transient", NewTransientError("flaky", nil), IsTransient},
		{"timeout", NewTimeoutError("too slow", "starting"), IsTimeout},
		{"invalid", NewInvalidError("bad name"), IsInvalid},
		{"unavailable", NewUnavailableError("gave up", nil), IsUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.pred(tt.err) {
				t.Errorf("predicate rejected %v", tt.err)
			}
		})
	}
}

func TestPredicatesThroughWrapping(t *testing.T) {
	err := fmt.Errorf("reconcile app: %w", NewConflictError("name taken", nil))
	if !IsConflict(err) {
		t.Error("IsConflict should see through fmt.Errorf wrapping")
	}
	if IsTransient(err) {
		t.Error("wrapped conflict must not classify as transient")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(NewTransientError("503", nil)) {
		t.Error("transient errors are retryable")
	}
	for _, err := range []error{
		NewNotFoundError("x"),
		NewConflictError("x", nil),
		NewInvalidError("x"),
		NewTimeoutError("x", ""),
		NewUnavailableError("x", nil),
		errors.New("plain"),
	} {
		if IsRetryable(err) {
			t.Errorf("%v must not be retryable", err)
		}
	}
}

func TestUnwrapPreservesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewTransientError("request failed", cause)
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

func TestTimeoutCarriesLastState(t *testing.T) {
	err := NewTimeoutError("convergence deadline elapsed", "starting").WithOperation("machines.create")
	var apiErr *APIError
	if !errors.As(err.WithResource("m-1"), &apiErr) {
		t.Fatal("expected *APIError")
	}
	if apiErr.LastState != "starting" {
		t.Errorf("LastState = %q, want starting", apiErr.LastState)
	}
	msg := apiErr.Error()
	for _, want := range []string{"timeout", "machines.create", "starting", "m-1"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message %q missing %q", msg, want)
		}
	}
}
