package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/ascendhq/ascend/internal/config"
	"github.com/ascendhq/ascend/internal/domain"
	"github.com/ascendhq/ascend/internal/store"
)

// Manager hands out sessions and mirrors their transcripts to the store.
// Sessions are restored lazily from the persisted transcript tail.
type Manager struct {
	mu           sync.Mutex
	store        *store.FileStore
	historyLimit int
	sessions     map[string]*Session
}

func NewManager(s *store.FileStore, historyLimit int) *Manager {
	if historyLimit <= 0 {
		historyLimit = config.DefaultOrchestratorHistoryLimit
	}
	return &Manager{
		store:        s,
		historyLimit: historyLimit,
		sessions:     map[string]*Session{},
	}
}

func (m *Manager) HistoryLimit() int {
	return m.historyLimit
}

// NewSession creates a fresh session with a generated id.
func (m *Manager) NewSession() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := &Session{
		ID:        "sess_" + ulid.Make().String(),
		CreatedAt: time.Now().UTC(),
	}
	m.sessions[s.ID] = s
	return s
}

// Get returns the live session for the id, restoring its transcript tail from
// the store on first access.
func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[sessionID]; ok {
		return s, nil
	}

	tail, err := m.store.ReadTranscriptTail(sessionID, m.historyLimit)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:        sessionID,
		CreatedAt: time.Now().UTC(),
		history:   tail,
	}
	if len(tail) > 0 {
		s.CreatedAt = tail[0].CreatedAt
		slog.Debug("Session restored from transcript", "session", sessionID, "messages", len(tail))
	}
	m.sessions[sessionID] = s
	return s, nil
}

// Append records messages on the live session and persists them.
func (m *Manager) Append(s *Session, msgs ...domain.ChatMessage) error {
	now := time.Now().UTC()
	for i := range msgs {
		if msgs[i].ID == "" {
			msgs[i].ID = ulid.Make().String()
		}
		if msgs[i].CreatedAt.IsZero() {
			msgs[i].CreatedAt = now
		}
	}

	s.append(msgs...)
	if err := m.store.AppendMessages(s.ID, msgs...); err != nil {
		slog.Error("Failed to persist transcript", "session", s.ID, "error", err)
		return err
	}
	return nil
}

// List returns known sessions, most recently used first.
func (m *Manager) List() ([]store.SessionMeta, error) {
	return m.store.Sessions()
}
