package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ascendhq/ascend/internal/action"
	"github.com/ascendhq/ascend/internal/assembler"
	"github.com/ascendhq/ascend/internal/config"
	"github.com/ascendhq/ascend/internal/domain"
	ascendErrors "github.com/ascendhq/ascend/internal/errors"
	"github.com/ascendhq/ascend/internal/orchestrator/session"
	"github.com/ascendhq/ascend/internal/reasoning"
	"github.com/ascendhq/ascend/internal/reasoning/contract"
)

// scriptedReasoner plays back queued classifications and turns, recording
// every request so tests can assert on what the engine sent.
type scriptedReasoner struct {
	classifications []*contract.Classification
	classifyErr     error
	turns           []*contract.AssistantTurn
	respondErr      error

	classifyCalls int
	respondCalls  []reasoning.RespondRequest
}

func (r *scriptedReasoner) Classify(ctx context.Context, req reasoning.ClassifyRequest) (*contract.Classification, error) {
	r.classifyCalls++
	if r.classifyErr != nil {
		return nil, r.classifyErr
	}
	if len(r.classifications) == 0 {
		return &contract.Classification{Intent: contract.IntentAction, Confidence: 1}, nil
	}
	c := r.classifications[0]
	r.classifications = r.classifications[1:]
	return c, nil
}

func (r *scriptedReasoner) Respond(ctx context.Context, req reasoning.RespondRequest) (*contract.AssistantTurn, error) {
	r.respondCalls = append(r.respondCalls, req)
	if r.respondErr != nil {
		return nil, r.respondErr
	}
	if len(r.turns) == 0 {
		return &contract.AssistantTurn{Message: "ok"}, nil
	}
	t := r.turns[0]
	r.turns = r.turns[1:]
	return t, nil
}

func (r *scriptedReasoner) GenerateRoadmap(ctx context.Context, req reasoning.RoadmapRequest) (*contract.GeneratedGoal, error) {
	return nil, errors.New("no roadmap in this test")
}

type engineFixture struct {
	*executorFixture
	engine   *Engine
	reasoner *scriptedReasoner
	session  *session.Session
}

func newEngineFixture(t *testing.T, r *scriptedReasoner) *engineFixture {
	t.Helper()
	base := newExecutorFixture(t)
	mgr := session.NewManager(base.store, 50)
	exec := NewExecutor(base.store, base.snapshot, r, base.store.Profile, base.store.Constraints)
	engine := NewEngine(
		config.OrchestratorConfig{},
		mgr,
		r,
		assembler.New(config.AssemblerConfig{}),
		exec,
		base.snapshot,
		base.store.Profile,
		base.store.Constraints,
	)
	return &engineFixture{
		executorFixture: base,
		engine:          engine,
		reasoner:        r,
		session:         mgr.NewSession(),
	}
}

func proposedAction(t *testing.T, typ string, payload any) contract.ProposedAction {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return contract.ProposedAction{Type: typ, Data: data}
}

func TestChatBypassSkipsResponder(t *testing.T) {
	r := &scriptedReasoner{
		classifications: []*contract.Classification{
			{Intent: contract.IntentChat, Confidence: 0.95, SuggestedResponse: "Going well! Ready when you are."},
		},
	}
	f := newEngineFixture(t, r)

	res, err := f.engine.HandleMessage(context.Background(), f.session.ID, "hey, how's it going?")
	require.NoError(t, err)

	assert.Equal(t, "Going well! Ready when you are.", res.Message)
	assert.Empty(t, r.respondCalls, "a confident chat classification must not reach the responder")
	assert.Empty(t, res.Actions)
}

func TestLowConfidenceChatFallsThroughToResponder(t *testing.T) {
	r := &scriptedReasoner{
		classifications: []*contract.Classification{
			{Intent: contract.IntentChat, Confidence: 0.4, SuggestedResponse: "hi"},
		},
		turns: []*contract.AssistantTurn{{Message: "Hello! What would you like to work on?"}},
	}
	f := newEngineFixture(t, r)

	res, err := f.engine.HandleMessage(context.Background(), f.session.ID, "hmm")
	require.NoError(t, err)

	require.Len(t, r.respondCalls, 1)
	assert.Equal(t, contract.ModeChat, r.respondCalls[0].Mode)
	assert.Equal(t, "Hello! What would you like to work on?", res.Message)
}

func TestClarifyRepliesDirectly(t *testing.T) {
	r := &scriptedReasoner{
		classifications: []*contract.Classification{
			{Intent: contract.IntentClarify, Confidence: 0.3},
		},
	}
	f := newEngineFixture(t, r)

	res, err := f.engine.HandleMessage(context.Background(), f.session.ID, "the thing")
	require.NoError(t, err)

	assert.Contains(t, res.Message, "Could you say a bit more")
	assert.Empty(t, r.respondCalls)
}

func TestActionTurnExecutesAndFeedsBack(t *testing.T) {
	r := &scriptedReasoner{}
	f := newEngineFixture(t, r)
	g := f.seedGoal(t)
	taskID := g.Phases[0].Milestones[0].Tasks[0].ID

	r.classifications = []*contract.Classification{
		{Intent: contract.IntentAction, Confidence: 0.9},
	}
	r.turns = []*contract.AssistantTurn{
		{
			Message: "Marking that off.",
			Actions: []contract.ProposedAction{
				proposedAction(t, "complete_task", map[string]string{"taskId": taskID}),
			},
		},
		{Message: "Done, Vowels is checked off. Nice work!"},
	}

	res, err := f.engine.HandleMessage(context.Background(), f.session.ID, "I finished the vowels task")
	require.NoError(t, err)

	assert.Equal(t, "Done, Vowels is checked off. Nice work!", res.Message)
	require.Len(t, res.Actions, 1)
	assert.Equal(t, action.StatusSuccess, res.Actions[0].Status)

	task, _ := f.snapshot.Task(taskID)
	assert.True(t, task.Completed)

	// The feedback call carried the rendered results and the same mode, and
	// its history ends with the pre-execution draft followed by the results
	// as a user turn.
	require.Len(t, r.respondCalls, 2)
	feedback := r.respondCalls[1]
	assert.Equal(t, contract.ModeAction, feedback.Mode)
	assert.True(t, strings.HasPrefix(feedback.Message, "[TOOL_RESULT] complete_task: SUCCESS"), feedback.Message)
	require.GreaterOrEqual(t, len(feedback.History), 3)
	draft := feedback.History[len(feedback.History)-2]
	assert.Equal(t, string(domain.ChatRoleAssistant), draft.Role)
	assert.Equal(t, "Marking that off.", draft.Content)
	results := feedback.History[len(feedback.History)-1]
	assert.Equal(t, string(domain.ChatRoleUser), results.Role)
	assert.True(t, strings.HasPrefix(results.Content, "[TOOL_RESULT]"), results.Content)

	// The transcript holds the draft, the tool results as a user turn, and a
	// final assistant message carrying the executed actions.
	history := f.session.History(0)
	var sawDraft, sawResults bool
	for _, msg := range history {
		if msg.Role == domain.ChatRoleAssistant && msg.Content == "Marking that off." {
			sawDraft = true
		}
		if msg.Role == domain.ChatRoleUser && strings.HasPrefix(msg.Content, "[TOOL_RESULT]") {
			sawResults = true
		}
	}
	assert.True(t, sawDraft)
	assert.True(t, sawResults)

	last := history[len(history)-1]
	assert.Equal(t, domain.ChatRoleAssistant, last.Role)
	require.Len(t, last.Actions, 1)
	assert.Equal(t, action.TypeCompleteTask, last.Actions[0].Type)
}

func TestFeedbackTurnActionsAreDropped(t *testing.T) {
	r := &scriptedReasoner{}
	f := newEngineFixture(t, r)
	g := f.seedGoal(t)
	taskID := g.Phases[0].Milestones[0].Tasks[0].ID
	otherID := g.Phases[0].Milestones[0].Tasks[1].ID

	r.classifications = []*contract.Classification{
		{Intent: contract.IntentAction, Confidence: 0.9},
	}
	r.turns = []*contract.AssistantTurn{
		{
			Message: "On it.",
			Actions: []contract.ProposedAction{
				proposedAction(t, "complete_task", map[string]string{"taskId": taskID}),
			},
		},
		{
			Message: "Done. Shall I do the next one too?",
			Actions: []contract.ProposedAction{
				proposedAction(t, "complete_task", map[string]string{"taskId": otherID}),
			},
		},
	}

	_, err := f.engine.HandleMessage(context.Background(), f.session.ID, "finish vowels")
	require.NoError(t, err)

	// Only the original action executed; the follow-up proposal never ran.
	other, _ := f.snapshot.Task(otherID)
	assert.False(t, other.Completed)
	assert.Len(t, r.respondCalls, 2)
}

func TestDestructiveActionParksForConfirmation(t *testing.T) {
	r := &scriptedReasoner{}
	f := newEngineFixture(t, r)
	g := f.seedGoal(t)

	r.classifications = []*contract.Classification{
		{Intent: contract.IntentAction, Confidence: 0.9},
	}
	r.turns = []*contract.AssistantTurn{
		{
			Message: "That removes everything under it.",
			Actions: []contract.ProposedAction{
				proposedAction(t, "delete_goal", map[string]string{"goalId": g.ID, "title": g.Title}),
			},
		},
	}

	res, err := f.engine.HandleMessage(context.Background(), f.session.ID, "delete the dutch goal")
	require.NoError(t, err)

	require.NotNil(t, res.Pending)
	assert.Equal(t, action.StatusPendingConfirmation, res.Pending.Action.Status)
	assert.Contains(t, res.Message, res.Pending.Prompt)

	// Nothing executed yet.
	_, ok := f.snapshot.Goal(g.ID)
	assert.True(t, ok)
}

func TestAmbiguousConfirmationReplyReAsks(t *testing.T) {
	r := &scriptedReasoner{}
	f := newEngineFixture(t, r)
	g := f.seedGoal(t)

	require.NoError(t, f.session.SetPending(&action.PendingConfirmation{
		Action: &action.ChatAction{
			ID:     "a1",
			Type:   action.TypeDeleteGoal,
			Status: action.StatusPendingConfirmation,
			Data:   json.RawMessage(fmt.Sprintf(`{"goalId":%q}`, g.ID)),
		},
		Prompt: "Delete the goal? This cannot be undone.",
	}))

	res, err := f.engine.HandleMessage(context.Background(), f.session.ID, "what do you mean")
	require.NoError(t, err)

	assert.Contains(t, res.Message, "I still need a yes or no.")
	assert.NotNil(t, f.session.Pending(), "ambiguity must not consume the pending slot")
	_, ok := f.snapshot.Goal(g.ID)
	assert.True(t, ok)
}

func TestConfirmationYesExecutesParkedAction(t *testing.T) {
	r := &scriptedReasoner{
		turns: []*contract.AssistantTurn{{Message: "It's gone, along with its schedule."}},
	}
	f := newEngineFixture(t, r)
	g := f.seedGoal(t)

	require.NoError(t, f.session.SetPending(&action.PendingConfirmation{
		Action: &action.ChatAction{
			ID:     "a1",
			Type:   action.TypeDeleteGoal,
			Status: action.StatusPendingConfirmation,
			Data:   json.RawMessage(fmt.Sprintf(`{"goalId":%q}`, g.ID)),
		},
		Prompt: "Delete the goal?",
	}))

	res, err := f.engine.HandleMessage(context.Background(), f.session.ID, "yes")
	require.NoError(t, err)

	assert.Equal(t, "It's gone, along with its schedule.", res.Message)
	require.Len(t, res.Actions, 1)
	assert.Equal(t, action.StatusSuccess, res.Actions[0].Status)
	assert.True(t, res.Actions[0].Result.Success)

	assert.Nil(t, f.session.Pending())
	_, ok := f.snapshot.Goal(g.ID)
	assert.False(t, ok)
}

func TestConfirmationNoCancels(t *testing.T) {
	r := &scriptedReasoner{}
	f := newEngineFixture(t, r)
	g := f.seedGoal(t)

	pending := &action.PendingConfirmation{
		Action: &action.ChatAction{
			ID:     "a1",
			Type:   action.TypeDeleteGoal,
			Status: action.StatusPendingConfirmation,
			Data:   json.RawMessage(fmt.Sprintf(`{"goalId":%q}`, g.ID)),
		},
		Prompt: "Delete the goal?",
	}
	require.NoError(t, f.session.SetPending(pending))

	res, err := f.engine.HandleMessage(context.Background(), f.session.ID, "no")
	require.NoError(t, err)

	assert.Contains(t, res.Message, "cancelled")
	assert.Equal(t, action.StatusCancelled, pending.Action.Status)
	assert.Nil(t, f.session.Pending())
	assert.Empty(t, r.respondCalls, "a cancellation is answered without a model call")

	_, ok := f.snapshot.Goal(g.ID)
	assert.True(t, ok)
}

func TestConfirmWithoutPending(t *testing.T) {
	f := newEngineFixture(t, &scriptedReasoner{})

	res, err := f.engine.Confirm(context.Background(), f.session.ID)
	require.NoError(t, err)
	assert.Equal(t, "Nothing is waiting for confirmation.", res.Message)
}

func TestTurnInFlightRejectsSecondMessage(t *testing.T) {
	f := newEngineFixture(t, &scriptedReasoner{})

	require.NoError(t, f.session.BeginTurn())
	defer f.session.EndTurn()

	_, err := f.engine.HandleMessage(context.Background(), f.session.ID, "hello")
	assert.ErrorIs(t, err, ascendErrors.ErrTurnInFlight)
}

func TestClassifierFailureFailsOpen(t *testing.T) {
	r := &scriptedReasoner{
		classifyErr: errors.New("model timeout"),
		turns:       []*contract.AssistantTurn{{Message: "Here's what I can do."}},
	}
	f := newEngineFixture(t, r)

	res, err := f.engine.HandleMessage(context.Background(), f.session.ID, "add a task")
	require.NoError(t, err)

	require.Len(t, r.respondCalls, 1)
	assert.Equal(t, contract.ModeAction, r.respondCalls[0].Mode)
	assert.Equal(t, "Here's what I can do.", res.Message)
}

func TestResponderFailureApologizes(t *testing.T) {
	r := &scriptedReasoner{
		classifications: []*contract.Classification{
			{Intent: contract.IntentAction, Confidence: 0.9},
		},
		respondErr: errors.New("model unavailable"),
	}
	f := newEngineFixture(t, r)

	res, err := f.engine.HandleMessage(context.Background(), f.session.ID, "add a task")
	require.NoError(t, err)
	assert.Equal(t, fallbackReply, res.Message)

	history := f.session.History(0)
	last := history[len(history)-1]
	assert.True(t, last.IsError, "a fallback reply is flagged in the transcript")
}

func TestToolResultInputSkipsClassifier(t *testing.T) {
	r := &scriptedReasoner{
		turns: []*contract.AssistantTurn{{Message: "Noted."}},
	}
	f := newEngineFixture(t, r)

	_, err := f.engine.HandleMessage(context.Background(), f.session.ID, "[TOOL_RESULT] complete_task: SUCCESS")
	require.NoError(t, err)

	assert.Equal(t, 0, r.classifyCalls)
	require.Len(t, r.respondCalls, 1)
	assert.Equal(t, contract.ModeAction, r.respondCalls[0].Mode)
}

func TestQueryModeReachesResponder(t *testing.T) {
	r := &scriptedReasoner{
		classifications: []*contract.Classification{
			{Intent: contract.IntentQuery, Confidence: 0.9},
		},
		turns: []*contract.AssistantTurn{{Message: "You have one goal in flight."}},
	}
	f := newEngineFixture(t, r)
	f.seedGoal(t)

	res, err := f.engine.HandleMessage(context.Background(), f.session.ID, "how am I doing?")
	require.NoError(t, err)

	require.Len(t, r.respondCalls, 1)
	assert.Equal(t, contract.ModeQuery, r.respondCalls[0].Mode)
	assert.NotEmpty(t, r.respondCalls[0].SystemContext, "query turns carry assembled plan context")
	assert.Equal(t, "You have one goal in flight.", res.Message)
}
