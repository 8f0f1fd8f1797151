package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ascendhq/ascend/internal/action"
	"github.com/ascendhq/ascend/internal/config"
	"github.com/ascendhq/ascend/internal/domain"
	ascendErrors "github.com/ascendhq/ascend/internal/errors"
	"github.com/ascendhq/ascend/internal/store"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	s, err := store.Open(config.StoreConfig{
		WorkspaceID:   "test",
		WorkspacePath: t.TempDir(),
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return NewManager(s, 10)
}

func TestBeginTurnSerializes(t *testing.T) {
	s := &Session{ID: "sess_1"}

	require.NoError(t, s.BeginTurn())
	assert.ErrorIs(t, s.BeginTurn(), ascendErrors.ErrTurnInFlight)

	s.EndTurn()
	assert.NoError(t, s.BeginTurn())
}

func TestSetPendingNeverDisplaces(t *testing.T) {
	s := &Session{ID: "sess_1"}
	first := &action.PendingConfirmation{Prompt: "Delete goal A?"}

	require.NoError(t, s.SetPending(first))
	assert.Equal(t, StateAwaitingConfirmation, s.State())

	err := s.SetPending(&action.PendingConfirmation{Prompt: "Delete goal B?"})
	assert.ErrorIs(t, err, ascendErrors.ErrConfirmationPending)
	assert.Same(t, first, s.Pending(), "the first confirmation stays parked")

	taken := s.TakePending()
	assert.Same(t, first, taken)
	assert.Nil(t, s.Pending())
	assert.Equal(t, StateIdle, s.State())
}

func TestHistoryLimitKeepsNewest(t *testing.T) {
	s := &Session{ID: "sess_1"}
	for _, content := range []string{"one", "two", "three", "four"} {
		s.append(domain.ChatMessage{Role: domain.ChatRoleUser, Content: content})
	}

	tail := s.History(2)
	require.Len(t, tail, 2)
	assert.Equal(t, "three", tail[0].Content)
	assert.Equal(t, "four", tail[1].Content)

	all := s.History(0)
	assert.Len(t, all, 4)
}

func TestHistoryReturnsACopy(t *testing.T) {
	s := &Session{ID: "sess_1"}
	s.append(domain.ChatMessage{Role: domain.ChatRoleUser, Content: "original"})

	got := s.History(0)
	got[0].Content = "mutated"
	assert.Equal(t, "original", s.History(0)[0].Content)
}

func TestManagerAppendFillsIDsAndPersists(t *testing.T) {
	m := newTestManager(t)
	s := m.NewSession()

	require.NoError(t, m.Append(s,
		domain.ChatMessage{Role: domain.ChatRoleUser, Content: "hello"},
		domain.ChatMessage{Role: domain.ChatRoleAssistant, Content: "hi"},
	))

	history := s.History(0)
	require.Len(t, history, 2)
	assert.NotEmpty(t, history[0].ID)
	assert.False(t, history[0].CreatedAt.IsZero())
}

func TestManagerGetRestoresTranscriptTail(t *testing.T) {
	m := newTestManager(t)
	s := m.NewSession()
	require.NoError(t, m.Append(s,
		domain.ChatMessage{Role: domain.ChatRoleUser, Content: "remember this"},
		domain.ChatMessage{Role: domain.ChatRoleAssistant, Content: "noted"},
	))

	// A second manager over the same store simulates a process restart.
	restored := NewManager(m.store, 10)
	got, err := restored.Get(s.ID)
	require.NoError(t, err)

	history := got.History(0)
	require.Len(t, history, 2)
	assert.Equal(t, "remember this", history[0].Content)
	assert.Equal(t, domain.ChatRoleAssistant, history[1].Role)
}

func TestTranscriptKeepsActionsAndErrorFlag(t *testing.T) {
	m := newTestManager(t)
	s := m.NewSession()
	require.NoError(t, m.Append(s,
		domain.ChatMessage{Role: domain.ChatRoleUser, Content: "finish vowels"},
		domain.ChatMessage{
			Role:    domain.ChatRoleAssistant,
			Content: "Done.",
			Actions: []*action.ChatAction{{
				ID:     "a1",
				Type:   action.TypeCompleteTask,
				Status: action.StatusSuccess,
				Result: &action.Result{Success: true, TargetID: "t1"},
			}},
		},
		domain.ChatMessage{Role: domain.ChatRoleAssistant, Content: "Sorry, that failed.", IsError: true},
	))

	restored := NewManager(m.store, 10)
	got, err := restored.Get(s.ID)
	require.NoError(t, err)

	history := got.History(0)
	require.Len(t, history, 3)
	require.Len(t, history[1].Actions, 1)
	assert.Equal(t, action.TypeCompleteTask, history[1].Actions[0].Type)
	assert.Equal(t, action.StatusSuccess, history[1].Actions[0].Status)
	require.NotNil(t, history[1].Actions[0].Result)
	assert.Equal(t, "t1", history[1].Actions[0].Result.TargetID)
	assert.False(t, history[1].IsError)
	assert.True(t, history[2].IsError)
}

func TestManagerGetUnknownSessionStartsEmpty(t *testing.T) {
	m := newTestManager(t)

	s, err := m.Get("sess_unknown")
	require.NoError(t, err)
	assert.Empty(t, s.History(0))
}
