package resilience

import (
	"errors"
	"testing"
	"time"
)

var errBackend = errors.New("backend error")

func TestNewBreaker_Defaults(t *testing.T) {
	b := NewBreaker(BreakerConfig{Stage: "test"})
	if b.tripAfter != 5 {
		t.Errorf("tripAfter = %d, want 5", b.tripAfter)
	}
	if b.cooldown != 30*time.Second {
		t.Errorf("cooldown = %v, want 30s", b.cooldown)
	}
	if b.probeQuota != 3 {
		t.Errorf("probeQuota = %d, want 3", b.probeQuota)
	}
	if b.State() != BreakerClosed {
		t.Errorf("initial state = %v, want closed", b.State())
	}
}

func TestBreaker_ClosedAllowsCalls(t *testing.T) {
	b := NewBreaker(BreakerConfig{Stage: "test", TripAfter: 3})
	called := false
	if err := b.Execute(func() error { called = true; return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("fn was not called")
	}
}

func TestBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	b := NewBreaker(BreakerConfig{Stage: "test", TripAfter: 3, Cooldown: time.Hour})

	for range 3 {
		_ = b.Execute(func() error { return errBackend })
	}
	if b.State() != BreakerOpen {
		t.Fatalf("state = %v, want open after 3 failures", b.State())
	}

	err := b.Execute(func() error { return nil })
	if !errors.Is(err, ErrBreakerOpen) {
		t.Fatalf("err = %v, want ErrBreakerOpen", err)
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(BreakerConfig{Stage: "test", TripAfter: 3})

	_ = b.Execute(func() error { return errBackend })
	_ = b.Execute(func() error { return errBackend })
	_ = b.Execute(func() error { return nil })
	if b.State() != BreakerClosed {
		t.Fatalf("state = %v, want closed after intervening success", b.State())
	}

	_ = b.Execute(func() error { return errBackend })
	_ = b.Execute(func() error { return errBackend })
	if b.State() != BreakerClosed {
		t.Fatal("two failures after a success must not trip a TripAfter=3 breaker")
	}
}

func TestBreaker_CooldownLeadsToHalfOpen(t *testing.T) {
	b := NewBreaker(BreakerConfig{Stage: "test", TripAfter: 2, Cooldown: 10 * time.Millisecond, ProbeQuota: 2})

	_ = b.Execute(func() error { return errBackend })
	_ = b.Execute(func() error { return errBackend })
	if b.State() != BreakerOpen {
		t.Fatal("expected open")
	}

	time.Sleep(15 * time.Millisecond)
	if b.State() != BreakerHalfOpen {
		t.Fatalf("state = %v, want half-open after cooldown", b.State())
	}
}

func TestBreaker_ClosesAfterSuccessfulProbes(t *testing.T) {
	b := NewBreaker(BreakerConfig{Stage: "test", TripAfter: 2, Cooldown: 10 * time.Millisecond, ProbeQuota: 2})

	_ = b.Execute(func() error { return errBackend })
	_ = b.Execute(func() error { return errBackend })
	time.Sleep(15 * time.Millisecond)

	for i := range 2 {
		if err := b.Execute(func() error { return nil }); err != nil {
			t.Fatalf("probe %d: unexpected error: %v", i, err)
		}
	}
	if b.State() != BreakerClosed {
		t.Fatalf("state = %v, want closed after successful probes", b.State())
	}
}

func TestBreaker_ReopensOnFailedProbe(t *testing.T) {
	b := NewBreaker(BreakerConfig{Stage: "test", TripAfter: 2, Cooldown: 10 * time.Millisecond, ProbeQuota: 3})

	_ = b.Execute(func() error { return errBackend })
	_ = b.Execute(func() error { return errBackend })
	time.Sleep(15 * time.Millisecond)

	if err := b.Execute(func() error { return errBackend }); err == nil {
		t.Fatal("expected error from failing probe")
	}

	// Inspect the raw state; State() would report half-open once the fresh
	// cooldown elapses.
	b.mu.Lock()
	s := b.state
	b.mu.Unlock()
	if s != BreakerOpen {
		t.Fatalf("state = %v, want open after failed probe", s)
	}
}

func TestBreaker_Reset(t *testing.T) {
	b := NewBreaker(BreakerConfig{Stage: "test", TripAfter: 2, Cooldown: time.Hour})

	_ = b.Execute(func() error { return errBackend })
	_ = b.Execute(func() error { return errBackend })
	if b.State() != BreakerOpen {
		t.Fatal("expected open")
	}

	b.Reset()
	if b.State() != BreakerClosed {
		t.Fatalf("state = %v, want closed after reset", b.State())
	}
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("unexpected error after reset: %v", err)
	}
}

func TestBreakerState_String(t *testing.T) {
	tests := []struct {
		state BreakerState
		want  string
	}{
		{BreakerClosed, "closed"},
		{BreakerOpen, "open"},
		{BreakerHalfOpen, "half-open"},
		{BreakerState(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("BreakerState(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}
