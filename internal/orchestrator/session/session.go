// Package session tracks per-conversation state: the append-only transcript
// window, the single pending confirmation slot, and turn serialization.
package session

import (
	"sync"
	"time"

	"github.com/ascendhq/ascend/internal/action"
	"github.com/ascendhq/ascend/internal/domain"
	ascendErrors "github.com/ascendhq/ascend/internal/errors"
)

type State string

const (
	StateIdle                 State = "idle"
	StateAwaitingConfirmation State = "awaiting_confirmation"
)

// Session holds one conversation. History is append-only; entries are never
// edited or removed once appended. Turns are strictly serialized: a second
// message arriving while one is in flight is rejected, not queued.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.Mutex
	history  []domain.ChatMessage
	pending  *action.PendingConfirmation
	inFlight bool
}

// BeginTurn claims the session for one turn.
func (s *Session) BeginTurn() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return ascendErrors.ErrTurnInFlight
	}
	s.inFlight = true
	return nil
}

func (s *Session) EndTurn() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight = false
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		return StateAwaitingConfirmation
	}
	return StateIdle
}

// SetPending parks a confirmation. An outstanding confirmation is never
// displaced; it must be resolved or cancelled first.
func (s *Session) SetPending(pc *action.PendingConfirmation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		return ascendErrors.ErrConfirmationPending
	}
	s.pending = pc
	return nil
}

// Pending returns the outstanding confirmation without clearing it.
func (s *Session) Pending() *action.PendingConfirmation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// TakePending clears and returns the outstanding confirmation.
func (s *Session) TakePending() *action.PendingConfirmation {
	s.mu.Lock()
	defer s.mu.Unlock()
	pc := s.pending
	s.pending = nil
	return pc
}

func (s *Session) append(msgs ...domain.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, msgs...)
}

// History returns up to limit most recent messages, oldest first.
func (s *Session) History(limit int) []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.history
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]domain.ChatMessage, len(msgs))
	copy(out, msgs)
	return out
}
