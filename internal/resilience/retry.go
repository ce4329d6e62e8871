// Package resilience provides the failure-handling primitives shared by every
// outbound service call: a retry/timeout executor, transient-failure
// classification, a circuit breaker, and provider failover.
//
// The central entry point is [Execute], which runs one asynchronous operation
// under a per-attempt deadline and a bounded, exponentially backed-off retry
// policy. Every pipeline stage funnels its provider call through Execute so
// that rate limits, server errors, and hung connections are handled the same
// way everywhere.
//
// All types are safe for concurrent use.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"syscall"
	"time"
)

// RetryPolicy bounds the retry behaviour of a single logical operation.
// Total attempts = MaxRetries + 1. The delay before the k-th retry
// (1-indexed) is BaseDelay * 2^(k-1); there is no jitter.
type RetryPolicy struct {
	// MaxRetries is the number of re-attempts after the first failure.
	// Zero means a single attempt with no retry.
	MaxRetries int

	// BaseDelay is the delay before the first retry. It doubles on each
	// subsequent retry.
	BaseDelay time.Duration

	// Timeout is the per-attempt deadline. Zero means no deadline.
	Timeout time.Duration

	// OnRetry, when set, is called before each retry sleep with the attempt
	// index (1-indexed). Purely observational; it must not block.
	OnRetry func(ctx context.Context, label string, attempt int)
}

// TimeoutError reports that an attempt exceeded its per-attempt deadline.
// It is always classified as transient.
type TimeoutError struct {
	// Label identifies the operation for diagnostics.
	Label string

	// Timeout is the deadline that fired.
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Label, e.Timeout)
}

// StatusError attaches an HTTP status code to an underlying failure so the
// executor can classify it without parsing message strings. Providers wrap
// their SDK or transport errors with [WithStatus] before returning them.
type StatusError struct {
	// Status is the HTTP status code reported by the service.
	Status int

	// Err is the underlying failure.
	Err error
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %v", e.Status, e.Err)
}

// Unwrap exposes the underlying failure to errors.Is and errors.As.
func (e *StatusError) Unwrap() error { return e.Err }

// WithStatus wraps err with the HTTP status code of the failed call. A zero
// or negative status, or a nil err, returns err unchanged.
func WithStatus(err error, status int) error {
	if err == nil || status <= 0 {
		return err
	}
	return &StatusError{Status: status, Err: err}
}

// Transient reports whether err is worth retrying: the service rate-limited
// the call (429), failed server-side (>= 500), the connection was reset or
// timed out at the transport layer, or the executor's own per-attempt
// deadline fired. Everything else (auth failures, malformed requests,
// unexpected response shapes) is terminal and must surface immediately.
func Transient(err error) bool {
	if err == nil {
		return false
	}

	var te *TimeoutError
	if errors.As(err, &te) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var se *StatusError
	if errors.As(err, &se) {
		if se.Status == 429 || se.Status >= 500 {
			return true
		}
	}

	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE) {
		return true
	}

	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}

	return false
}

// Execute runs op under the retry and timeout discipline described by policy.
//
// Each attempt receives a context derived from ctx with the per-attempt
// deadline applied. The operation runs in its own goroutine and is raced
// against the deadline; when the deadline wins, the attempt fails with a
// [*TimeoutError] and the late result, if it ever arrives, is discarded
// through a buffered channel so the abandoned goroutine never blocks.
//
// Transient failures (see [Transient]) are retried up to policy.MaxRetries
// times, sleeping BaseDelay * 2^k between attempts and logging each retry
// with the operation label, attempt index, and delay. Terminal failures and
// retry exhaustion return the last error unchanged; no partial result is
// ever returned.
func Execute[T any](ctx context.Context, label string, policy RetryPolicy, op func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := policy.BaseDelay << (attempt - 1)
			if policy.OnRetry != nil {
				policy.OnRetry(ctx, label, attempt)
			}
			slog.Warn("retrying operation",
				"label", label,
				"attempt", attempt,
				"max_retries", policy.MaxRetries,
				"delay", delay,
			)
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
		}

		result, err := attemptOnce(ctx, label, policy.Timeout, op)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !Transient(err) {
			return zero, err
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
	}

	return zero, lastErr
}

// attemptResult pairs an operation's return values for channel transport.
type attemptResult[T any] struct {
	value T
	err   error
}

// attemptOnce races a single invocation of op against the per-attempt
// deadline. The result channel is buffered so that an abandoned attempt can
// still deliver (and have discarded) its eventual result without leaking the
// goroutine.
func attemptOnce[T any](ctx context.Context, label string, timeout time.Duration, op func(context.Context) (T, error)) (T, error) {
	var zero T

	attemptCtx := ctx
	cancel := context.CancelFunc(func() {})
	if timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	done := make(chan attemptResult[T], 1)
	go func() {
		value, err := op(attemptCtx)
		done <- attemptResult[T]{value: value, err: err}
	}()

	select {
	case res := <-done:
		return res.value, res.err
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			// The caller's context ended, not the per-attempt deadline.
			return zero, ctx.Err()
		}
		slog.Warn("operation deadline exceeded",
			"label", label,
			"timeout", timeout,
		)
		return zero, &TimeoutError{Label: label, Timeout: timeout}
	}
}
