package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrBreakerOpen is returned by [Breaker.Execute] when the breaker is open
// and the cooldown has not yet elapsed.
var ErrBreakerOpen = errors.New("breaker is open")

// BreakerState is the operating mode of a [Breaker].
type BreakerState int

const (
	// BreakerClosed is the normal state; calls pass through.
	BreakerClosed BreakerState = iota

	// BreakerOpen rejects calls immediately with [ErrBreakerOpen] until the
	// cooldown elapses.
	BreakerOpen

	// BreakerHalfOpen admits a limited number of probe calls after the
	// cooldown; their outcome decides between closing and re-opening.
	BreakerHalfOpen
)

// String returns the human-readable name of the state.
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes a [Breaker]. Zero values fall back to defaults.
type BreakerConfig struct {
	// Stage labels the protected operation in log output (e.g. "reasoning").
	Stage string

	// TripAfter is the number of consecutive failures that opens the
	// breaker. Default: 5.
	TripAfter int

	// Cooldown is how long the breaker stays open before probing again.
	// Default: 30s.
	Cooldown time.Duration

	// ProbeQuota is the number of half-open probe calls that must all
	// succeed before the breaker closes. Default: 3.
	ProbeQuota int
}

// Breaker is a three-state circuit breaker protecting one provider slot.
// A tripped breaker lets the failover group skip a backend that is down
// instead of burning a retry budget against it on every turn.
//
// Breaker is safe for concurrent use.
type Breaker struct {
	stage      string
	tripAfter  int
	cooldown   time.Duration
	probeQuota int

	mu         sync.Mutex
	state      BreakerState
	failures   int       // consecutive failures while closed
	openedAt   time.Time // time of the failure that opened the breaker
	probes     int       // probe calls issued while half-open
	probeFails int       // probe calls failed while half-open
}

// NewBreaker creates a [Breaker] from cfg, substituting defaults for zero
// values.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.TripAfter <= 0 {
		cfg.TripAfter = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.ProbeQuota <= 0 {
		cfg.ProbeQuota = 3
	}
	return &Breaker{
		stage:      cfg.Stage,
		tripAfter:  cfg.TripAfter,
		cooldown:   cfg.Cooldown,
		probeQuota: cfg.ProbeQuota,
		state:      BreakerClosed,
	}
}

// Execute runs fn if the breaker admits the call and feeds the outcome back
// into the state machine. In the open state it returns [ErrBreakerOpen]
// without invoking fn.
func (b *Breaker) Execute(fn func() error) error {
	if !b.admit() {
		return ErrBreakerOpen
	}

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.recordFailure()
	} else {
		b.recordSuccess()
	}
	return err
}

// admit decides whether a call may proceed, performing the open → half-open
// transition when the cooldown has elapsed.
func (b *Breaker) admit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerOpen:
		if time.Since(b.openedAt) < b.cooldown {
			return false
		}
		b.state = BreakerHalfOpen
		b.probes = 0
		b.probeFails = 0
		slog.Info("breaker half-open, probing", "stage", b.stage)
	case BreakerHalfOpen:
		if b.probes >= b.probeQuota {
			// Probe budget exhausted; outcome not yet decided.
			return false
		}
	}

	if b.state == BreakerHalfOpen {
		b.probes++
	}
	return true
}

// recordFailure updates state after a failed call. Must hold b.mu.
func (b *Breaker) recordFailure() {
	b.openedAt = time.Now()

	if b.state == BreakerHalfOpen {
		// One bad probe re-opens immediately.
		b.probeFails++
		b.state = BreakerOpen
		b.failures = b.tripAfter
		slog.Warn("breaker re-opened after failed probe", "stage", b.stage)
		return
	}

	b.failures++
	if b.failures >= b.tripAfter {
		b.state = BreakerOpen
		slog.Warn("breaker opened",
			"stage", b.stage,
			"consecutive_failures", b.failures,
		)
	}
}

// recordSuccess updates state after a successful call. Must hold b.mu.
func (b *Breaker) recordSuccess() {
	if b.state == BreakerHalfOpen {
		if b.probes-b.probeFails >= b.probeQuota {
			b.state = BreakerClosed
			b.failures = 0
			slog.Info("breaker closed after successful probes", "stage", b.stage)
		}
		return
	}
	b.failures = 0
}

// State returns the current state. An open breaker whose cooldown has
// elapsed reports half-open; the actual transition happens on the next
// Execute call.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && time.Since(b.openedAt) >= b.cooldown {
		return BreakerHalfOpen
	}
	return b.state
}

// Reset forces the breaker back to closed, clearing all counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = BreakerClosed
	b.failures = 0
	b.probes = 0
	b.probeFails = 0
	slog.Info("breaker manually reset", "stage", b.stage)
}
