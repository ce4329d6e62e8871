package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cmelnyk/pharmaline/pkg/provider/llm"
)

// ErrAllBackendsFailed is returned when every backend in a [FailoverGroup]
// fails or is behind an open breaker.
var ErrAllBackendsFailed = errors.New("all backends failed")

// failoverEntry pairs a backend with its dedicated breaker.
type failoverEntry[T any] struct {
	name    string
	value   T
	breaker *Breaker
}

// FailoverGroup holds a primary backend and zero or more fallbacks of the
// same type, each behind its own [Breaker]. Calls go to the first entry whose
// breaker admits them; on failure the next entry is tried in registration
// order.
//
// FailoverGroup is safe for concurrent use once assembled; Add must not be
// called concurrently with Call.
type FailoverGroup[T any] struct {
	entries []failoverEntry[T]
	breaker BreakerConfig
}

// NewFailoverGroup creates a group with primary as its first entry. The
// breaker config is cloned per entry, keyed by the entry name.
func NewFailoverGroup[T any](name string, primary T, breaker BreakerConfig) *FailoverGroup[T] {
	g := &FailoverGroup[T]{breaker: breaker}
	g.Add(name, primary)
	return g
}

// Add appends a fallback backend. Fallbacks are tried in insertion order.
func (g *FailoverGroup[T]) Add(name string, backend T) {
	cfg := g.breaker
	cfg.Stage = name
	g.entries = append(g.entries, failoverEntry[T]{
		name:    name,
		value:   backend,
		breaker: NewBreaker(cfg),
	})
}

// Call tries fn against each backend until one succeeds, skipping entries
// with open breakers. The last failure is wrapped in [ErrAllBackendsFailed]
// when every entry fails.
//
// Call is a package-level function because Go does not allow extra type
// parameters on methods.
func Call[T, R any](g *FailoverGroup[T], fn func(T) (R, error)) (R, error) {
	var (
		lastErr error
		zero    R
	)
	for i := range g.entries {
		entry := &g.entries[i]
		var result R
		err := entry.breaker.Execute(func() error {
			var callErr error
			result, callErr = fn(entry.value)
			return callErr
		})
		if err == nil {
			return result, nil
		}
		lastErr = err
		if errors.Is(err, ErrBreakerOpen) {
			slog.Debug("skipping backend, breaker open", "backend", entry.name)
		} else {
			slog.Warn("backend failed, trying next",
				"backend", entry.name, "error", err)
		}
	}
	return zero, fmt.Errorf("%w: %v", ErrAllBackendsFailed, lastErr)
}

// LLMFailover implements [llm.Provider] across multiple completion backends.
// When the primary fails or its breaker is open, the next healthy fallback
// answers instead. The reasoning and translation stages see one provider
// regardless of how many vendors sit behind it.
type LLMFailover struct {
	group *FailoverGroup[llm.Provider]
}

// Compile-time interface assertion.
var _ llm.Provider = (*LLMFailover)(nil)

// NewLLMFailover creates an [LLMFailover] with primary as the preferred
// backend.
func NewLLMFailover(name string, primary llm.Provider, breaker BreakerConfig) *LLMFailover {
	return &LLMFailover{group: NewFailoverGroup(name, primary, breaker)}
}

// Add registers an additional completion backend as a fallback.
func (f *LLMFailover) Add(name string, provider llm.Provider) {
	f.group.Add(name, provider)
}

// Complete sends the request to the first healthy backend and returns its
// response.
func (f *LLMFailover) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return Call(f.group, func(p llm.Provider) (*llm.CompletionResponse, error) {
		return p.Complete(ctx, req)
	})
}
