package provider

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

type recordedSleeps struct {
	delays []time.Duration
}

func (r *recordedSleeps) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func TestBackoffDelay(t *testing.T) {
	b := Backoff{Initial: time.Second, Max: 5 * time.Second, Multiplier: 2}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second}
	for i, w := range want {
		if got := b.Delay(i + 1); got != w {
			t.Fatalf("attempt %d: expected %v, got %v", i+1, w, got)
		}
	}
	if b.Delay(0) != 0 {
		t.Fatalf("expected zero delay before the first attempt")
	}

	fixed := Backoff{Initial: 2 * time.Second, Multiplier: 1}
	if fixed.Delay(3) != 2*time.Second {
		t.Fatalf("expected fixed delay, got %v", fixed.Delay(3))
	}

	jittered := Backoff{Initial: time.Second, Multiplier: 1, Jitter: 0.5, Rand: func() float64 { return 1 }}
	if got := jittered.Delay(1); got != 1500*time.Millisecond {
		t.Fatalf("expected upper jitter bound, got %v", got)
	}
}

func TestBackoffRetriesTransientErrors(t *testing.T) {
	rec := &recordedSleeps{}
	b := Backoff{Initial: 2 * time.Second, Multiplier: 2, MaxAttempts: 3, Sleep: rec.sleep}

	calls := 0
	err := b.Retry(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return &StatusError{Source: "reddit", Code: http.StatusServiceUnavailable}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
	if len(rec.delays) != 2 || rec.delays[0] != 2*time.Second || rec.delays[1] != 4*time.Second {
		t.Fatalf("unexpected sleeps: %v", rec.delays)
	}
}

func TestBackoffGivesUp(t *testing.T) {
	rec := &recordedSleeps{}
	b := Backoff{Initial: time.Second, Multiplier: 1, MaxAttempts: 3, Sleep: rec.sleep}

	calls := 0
	err := b.Retry(context.Background(), func(context.Context) error {
		calls++
		return &StatusError{Source: "reddit", Code: http.StatusTooManyRequests}
	})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected last status error, got %v", err)
	}
	if calls != 3 || len(rec.delays) != 2 {
		t.Fatalf("expected 3 calls and 2 sleeps, got %d and %d", calls, len(rec.delays))
	}
}

func TestBackoffStopsOnPermanentError(t *testing.T) {
	rec := &recordedSleeps{}
	b := Backoff{Initial: time.Second, MaxAttempts: 5, Sleep: rec.sleep}

	calls := 0
	err := b.Retry(context.Background(), func(context.Context) error {
		calls++
		return &StatusError{Source: "reddit", Code: http.StatusForbidden}
	})
	if err == nil || calls != 1 || len(rec.delays) != 0 {
		t.Fatalf("expected one call without retry, got calls=%d err=%v", calls, err)
	}
}

func TestBackoffStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := Backoff{Initial: time.Second, MaxAttempts: 5, Sleep: func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}}

	calls := 0
	err := b.Retry(ctx, func(context.Context) error {
		calls++
		return errors.New("connection reset")
	})
	if !errors.Is(err, context.Canceled) || calls != 1 {
		t.Fatalf("expected cancellation after first call, got calls=%d err=%v", calls, err)
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"server error", &StatusError{Code: 500}, true},
		{"throttled", &StatusError{Code: 429}, true},
		{"not found", &StatusError{Code: 404}, false},
		{"transport", errors.New("dial tcp: timeout"), true},
		{"permanent", Permanent(errors.New("bad payload")), false},
		{"cancelled", context.Canceled, false},
	}
	for _, tc := range cases {
		if got := Retryable(tc.err); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}
