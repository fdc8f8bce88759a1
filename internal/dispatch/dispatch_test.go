package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kweiss/sprintbot/internal/fault"
	"github.com/kweiss/sprintbot/internal/ratelimit"
)

func fastPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		InitialDelay:   time.Millisecond,
		BackoffCeiling: 5 * time.Millisecond,
		MaxElapsed:     time.Second,
	}
}

func openLimiter() *ratelimit.Limiter {
	return ratelimit.New(map[string]ratelimit.Bucket{
		ratelimit.ServiceTracker: {PerSecond: 10000, Burst: 100},
	})
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	d := New(openLimiter(), fastPolicy(), nil)

	calls := 0
	attempts, err := d.Do(context.Background(), Call{
		RunID:   "run1",
		Stage:   "create-epic",
		Service: ratelimit.ServiceTracker,
		Fn: func(ctx context.Context) error {
			calls++
			return nil
		},
	})

	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if attempts != 1 || calls != 1 {
		t.Errorf("attempts = %d, calls = %d, want 1 each", attempts, calls)
	}
}

func TestDoRetriesTransientThenSucceeds(t *testing.T) {
	d := New(openLimiter(), fastPolicy(), nil)

	calls := 0
	attempts, err := d.Do(context.Background(), Call{
		RunID:   "run1",
		Stage:   "create-story",
		Service: ratelimit.ServiceTracker,
		Fn: func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return fault.New(fault.TransientNetwork, "connection reset")
			}
			return nil
		},
	})

	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestDoExhaustsRetries(t *testing.T) {
	d := New(openLimiter(), fastPolicy(), nil)

	calls := 0
	attempts, err := d.Do(context.Background(), Call{
		RunID:   "run1",
		Stage:   "generate",
		Service: ratelimit.ServiceTracker,
		Fn: func(ctx context.Context) error {
			calls++
			return fault.New(fault.RateLimited, "429")
		},
	})

	if err == nil {
		t.Fatal("Do should fail after exhausting retries")
	}
	// Call count never exceeds the configured max attempts.
	if calls != 3 || attempts != 3 {
		t.Errorf("calls = %d, attempts = %d, want 3 each", calls, attempts)
	}
	if fault.KindOf(err) != fault.RateLimited {
		t.Errorf("final error kind = %q, want RateLimited", fault.KindOf(err))
	}
}

func TestDoAuthErrorNotRetried(t *testing.T) {
	d := New(openLimiter(), fastPolicy(), nil)

	calls := 0
	attempts, err := d.Do(context.Background(), Call{
		RunID:   "run1",
		Stage:   "create-epic",
		Service: ratelimit.ServiceTracker,
		Fn: func(ctx context.Context) error {
			calls++
			return fault.New(fault.Auth, "401 unauthorized")
		},
	})

	if err == nil {
		t.Fatal("Do should fail on auth error")
	}
	if calls != 1 || attempts != 1 {
		t.Errorf("calls = %d, attempts = %d, want exactly 1 each", calls, attempts)
	}
	if fault.KindOf(err) != fault.Auth {
		t.Errorf("error kind = %q, want AuthError", fault.KindOf(err))
	}
}

func TestDoInvalidResponseNotRetried(t *testing.T) {
	d := New(openLimiter(), fastPolicy(), nil)

	calls := 0
	_, err := d.Do(context.Background(), Call{
		RunID:   "run1",
		Stage:   "generate-features",
		Service: ratelimit.ServiceTracker,
		Fn: func(ctx context.Context) error {
			calls++
			return fault.New(fault.InvalidResponse, "not valid JSON")
		},
	})

	if err == nil || calls != 1 {
		t.Fatalf("invalid response: err = %v, calls = %d, want single failed call", err, calls)
	}
}

func TestDoCancelledContext(t *testing.T) {
	d := New(openLimiter(), fastPolicy(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Do(ctx, Call{
		RunID:   "run1",
		Stage:   "notify",
		Service: ratelimit.ServiceTracker,
		Fn: func(ctx context.Context) error {
			t.Error("Fn should not run after cancellation")
			return nil
		},
	})

	if err == nil {
		t.Fatal("Do should fail when the context is already cancelled")
	}
	if fault.KindOf(err) != fault.Cancelled {
		t.Errorf("error kind = %q, want Cancelled", fault.KindOf(err))
	}
}

func TestDoPreservesWrappedCause(t *testing.T) {
	d := New(openLimiter(), fastPolicy(), nil)

	cause := errors.New("dial tcp: refused")
	_, err := d.Do(context.Background(), Call{
		RunID:   "run1",
		Stage:   "search",
		Service: ratelimit.ServiceTracker,
		Fn: func(ctx context.Context) error {
			return fault.Wrap(fault.NotFound, cause)
		},
	})

	if !errors.Is(err, cause) {
		t.Error("wrapped cause should survive the dispatcher")
	}
}
