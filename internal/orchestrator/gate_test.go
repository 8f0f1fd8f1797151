package orchestrator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ascendhq/ascend/internal/action"
	"github.com/ascendhq/ascend/internal/reasoning/contract"
)

func proposed(types ...string) []contract.ProposedAction {
	out := make([]contract.ProposedAction, 0, len(types))
	for _, t := range types {
		out = append(out, contract.ProposedAction{Type: t, Data: json.RawMessage(`{}`)})
	}
	return out
}

func TestGateParksFirstDestructiveOnly(t *testing.T) {
	outcome := gate(proposed("complete_task", "delete_goal", "delete_task"), false)

	assert.Len(t, outcome.all, 3)
	if assert.Len(t, outcome.runNow, 1) {
		assert.Equal(t, action.TypeCompleteTask, outcome.runNow[0].Type)
	}

	if assert.NotNil(t, outcome.parked) {
		assert.Equal(t, action.TypeDeleteGoal, outcome.parked.Action.Type)
		assert.Equal(t, action.StatusPendingConfirmation, outcome.parked.Action.Status)
		assert.NotEmpty(t, outcome.parked.Prompt)
		assert.False(t, outcome.parked.Confirmed)
	}

	// The second destructive action is deferred, not terminally cancelled,
	// so it can be proposed again once the slot frees up.
	third := outcome.all[2]
	assert.Equal(t, action.StatusPending, third.Status)
	assert.NotEmpty(t, third.Error)
}

func TestGateRespectsOccupiedSlot(t *testing.T) {
	outcome := gate(proposed("delete_task"), true)

	assert.Nil(t, outcome.parked)
	assert.Empty(t, outcome.runNow)
	assert.Equal(t, action.StatusPending, outcome.all[0].Status)
	assert.Contains(t, outcome.all[0].Error, "awaiting confirmation")
}

func TestGatePassesThroughNonDestructive(t *testing.T) {
	outcome := gate(proposed("complete_task", "show_progress", "unknown_thing"), false)

	assert.Nil(t, outcome.parked)
	assert.Len(t, outcome.runNow, 3) // unknown types reach the executor and fail there
}

func TestInterpretConfirmation(t *testing.T) {
	assert.Equal(t, verdictConfirm, interpretConfirmation("yes"))
	assert.Equal(t, verdictConfirm, interpretConfirmation("  Yes!  "))
	assert.Equal(t, verdictConfirm, interpretConfirmation("go ahead"))
	assert.Equal(t, verdictDeny, interpretConfirmation("no"))
	assert.Equal(t, verdictDeny, interpretConfirmation("Never mind."))
	assert.Equal(t, verdictAmbiguous, interpretConfirmation("well, maybe"))
	assert.Equal(t, verdictAmbiguous, interpretConfirmation("delete the other one instead"))
}

func TestRenderToolResults(t *testing.T) {
	actions := []*action.ChatAction{
		{Type: action.TypeCompleteTask, Result: &action.Result{Success: true}},
		{Type: action.TypeEditTask, Result: &action.Result{Success: false, Error: "task not found: t9"}},
		{Type: action.TypeShowProgress, Result: &action.Result{Success: true, Message: "Learn Dutch: 50%"}},
		{Type: action.TypeCreateTask}, // never executed, no result line
	}

	out := renderToolResults(actions)
	assert.Contains(t, out, "[TOOL_RESULT] complete_task: SUCCESS")
	assert.Contains(t, out, "[TOOL_RESULT] edit_task: FAILED - task not found: t9")
	assert.Contains(t, out, "Learn Dutch: 50%")
	assert.NotContains(t, out, "create_task")

	assert.True(t, isToolResult(out))
	assert.False(t, isToolResult("please delete my goal"))
}
