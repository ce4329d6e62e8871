package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cmelnyk/pharmaline/internal/pipeline"
	"github.com/cmelnyk/pharmaline/pkg/provider/llm"
)

// Session is one caller's conversation with the assistant. It owns the
// rolling message history that grounds follow-up questions: the history is
// kept in the pivot language so the reasoning stage sees a consistent
// transcript regardless of what the caller speaks.
//
// All exported methods are safe for concurrent use, though a single call
// normally drives its turns sequentially.
type Session struct {
	id        string
	startedAt time.Time
	pl        *pipeline.Pipeline

	mu      sync.Mutex
	history []llm.Message
}

// ID returns the unique identifier of this session.
func (s *Session) ID() string { return s.id }

// StartedAt returns when the session was created.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// History returns a copy of the pivot-language conversation so far.
func (s *Session) History() []llm.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]llm.Message, len(s.history))
	copy(out, s.history)
	return out
}

// Turn runs one conversational turn against the session's history and, on
// success, appends the exchange to it.
//
// Turns that recognized no speech produce a clarification reply and leave
// the history untouched; there is nothing worth remembering. Failed turns
// also leave the history untouched, so a retried utterance starts from the
// same context.
func (s *Session) Turn(ctx context.Context, pcm []byte) (*pipeline.TurnResult, error) {
	s.mu.Lock()
	history := make([]llm.Message, len(s.history))
	copy(history, s.history)
	s.mu.Unlock()

	res, err := s.pl.Respond(ctx, pcm, history)
	if err != nil {
		return nil, err
	}

	if res.PivotQuery != "" {
		s.mu.Lock()
		s.history = append(s.history,
			llm.Message{Role: "user", Content: res.PivotQuery},
			llm.Message{Role: "assistant", Content: res.PivotReply},
		)
		s.mu.Unlock()
	}

	return res, nil
}

// SessionManager tracks the active call sessions, keyed by session ID.
// Unlike a single-conversation deployment, a phone line serves many callers
// at once; each gets an isolated history.
//
// All exported methods are safe for concurrent use.
type SessionManager struct {
	pl *pipeline.Pipeline

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionManager creates a SessionManager that builds sessions around pl.
func NewSessionManager(pl *pipeline.Pipeline) *SessionManager {
	return &SessionManager{
		pl:       pl,
		sessions: make(map[string]*Session),
	}
}

// Begin creates and registers a new session for one incoming call.
func (sm *SessionManager) Begin() *Session {
	s := &Session{
		id:        "call-" + uuid.NewString(),
		startedAt: time.Now().UTC(),
		pl:        sm.pl,
	}

	sm.mu.Lock()
	sm.sessions[s.id] = s
	sm.mu.Unlock()

	slog.Info("call session started", "session_id", s.id)
	return s
}

// Get returns the session with the given ID, or an error if it is not
// active.
func (sm *SessionManager) Get(id string) (*Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	s, ok := sm.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session: %q is not active", id)
	}
	return s, nil
}

// End removes the session with the given ID, dropping its history.
func (sm *SessionManager) End(id string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	s, ok := sm.sessions[id]
	if !ok {
		return fmt.Errorf("session: %q is not active", id)
	}
	delete(sm.sessions, id)

	slog.Info("call session ended",
		"session_id", id,
		"duration", time.Since(s.startedAt).Round(time.Second),
		"turns", len(s.history)/2,
	)
	return nil
}

// EndAll removes every active session. Used during shutdown.
func (sm *SessionManager) EndAll() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for id := range sm.sessions {
		delete(sm.sessions, id)
	}
}

// Active returns the number of sessions currently running.
func (sm *SessionManager) Active() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return len(sm.sessions)
}
