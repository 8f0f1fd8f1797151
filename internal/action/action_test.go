package action

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfirmationTable(t *testing.T) {
	destructive := []Type{
		TypeDeleteGoal, TypeDeletePhase, TypeDeleteMilestone, TypeDeleteTask,
		TypeDeleteSubTask, TypeDeleteEvent,
		TypeAbandonGoal, TypeAdjustGoalTimeline,
		TypeBuildSchedule, TypeClearSchedule,
		TypeCreateGoal,
	}
	for _, d := range destructive {
		assert.True(t, RequiresConfirmation(d), "expected %s to require confirmation", d)
	}

	// Every other known type executes immediately.
	wantDestructive := map[Type]bool{}
	for _, d := range destructive {
		wantDestructive[d] = true
	}
	for knownType := range knownTypes {
		if wantDestructive[knownType] {
			continue
		}
		assert.False(t, RequiresConfirmation(knownType), "expected %s to execute without confirmation", knownType)
	}
}

func TestEveryDeleteRequiresConfirmation(t *testing.T) {
	for knownType := range knownTypes {
		if strings.HasPrefix(string(knownType), "delete_") {
			assert.True(t, RequiresConfirmation(knownType), "delete action %s must confirm", knownType)
		}
	}
}

func TestReadOnlyTypesNeverConfirm(t *testing.T) {
	for knownType := range knownTypes {
		if ReadOnly(knownType) {
			assert.False(t, RequiresConfirmation(knownType), "%s is read-only", knownType)
		}
	}
}

func TestKnown(t *testing.T) {
	assert.True(t, Known(TypeCompleteTask))
	assert.True(t, Known(TypeGeneralAdvice))
	assert.False(t, Known("reorder_phases"))
	assert.False(t, Known(""))
}

func TestGuidance(t *testing.T) {
	assert.Contains(t, Guidance("reorder_phases"), "edit phases individually")
	assert.Equal(t, "Unknown action type", Guidance("launch_rocket"))
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusSuccess.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusPendingConfirmation.Terminal())
	assert.False(t, StatusExecuting.Terminal())
}

func TestConfirmationPrompt_UsesTitleOverID(t *testing.T) {
	data, _ := json.Marshal(map[string]string{"goalId": "g1", "title": "Learn Dutch"})
	prompt := ConfirmationPrompt(&ChatAction{Type: TypeDeleteGoal, Data: data})
	assert.Contains(t, prompt, `"Learn Dutch"`)
}

func TestConfirmationPrompt_FallsBackToID(t *testing.T) {
	data, _ := json.Marshal(map[string]string{"taskId": "t42"})
	prompt := ConfirmationPrompt(&ChatAction{Type: TypeDeleteTask, Data: data})
	assert.Contains(t, prompt, "t42")
}

func TestDecode(t *testing.T) {
	var p TaskPayload
	err := Decode(json.RawMessage(`{"taskId":"t1","title":"write tests"}`), &p)
	assert.NoError(t, err)
	assert.Equal(t, "t1", p.TaskID)

	assert.Error(t, Decode(nil, &p))
	assert.Error(t, Decode(json.RawMessage(`{not json`), &p))
}
