package action

import (
	"encoding/json"
	"time"
)

// Type tags every structured action the reasoning service can propose.
// The set is closed: dispatch is table-driven and an unrecognized tag is
// reported as a failed result, never silently dropped.
type Type string

const (
	// Goal
	TypeCreateGoal         Type = "create_goal"
	TypeEditGoal           Type = "edit_goal"
	TypeCompleteGoal       Type = "complete_goal"
	TypeAbandonGoal        Type = "abandon_goal"
	TypeDeleteGoal         Type = "delete_goal"
	TypeAdjustGoalTimeline Type = "adjust_goal_timeline"
	TypeUpdateGoalNotes    Type = "update_goal_notes"

	// Phase
	TypeCreatePhase   Type = "create_phase"
	TypeEditPhase     Type = "edit_phase"
	TypeCompletePhase Type = "complete_phase"
	TypeDeletePhase   Type = "delete_phase"
	TypeMoveMilestone Type = "move_milestone"

	// Milestone
	TypeCreateMilestone   Type = "create_milestone"
	TypeCreateMilestones  Type = "create_milestones"
	TypeEditMilestone     Type = "edit_milestone"
	TypeCompleteMilestone Type = "complete_milestone"
	TypeDeleteMilestone   Type = "delete_milestone"
	TypeMoveTask          Type = "move_task"

	// Task
	TypeCreateTask     Type = "create_task"
	TypeCreateTasks    Type = "create_tasks"
	TypeEditTask       Type = "edit_task"
	TypeCompleteTask   Type = "complete_task"
	TypeDeleteTask     Type = "delete_task"
	TypeSetTaskDueDate Type = "set_task_due_date"

	// SubTask
	TypeCreateSubTask   Type = "create_subtask"
	TypeCreateSubTasks  Type = "create_subtasks"
	TypeEditSubTask     Type = "edit_subtask"
	TypeCompleteSubTask Type = "complete_subtask"
	TypeDeleteSubTask   Type = "delete_subtask"

	// Calendar events
	TypeCreateEvent     Type = "create_event"
	TypeCreateEvents    Type = "create_events"
	TypeEditEvent       Type = "edit_event"
	TypeRescheduleEvent Type = "reschedule_event"
	TypeDeleteEvent     Type = "delete_event"

	// Schedule
	TypeBuildSchedule Type = "build_schedule"
	TypeClearSchedule Type = "clear_schedule"
	TypeBlockTime     Type = "block_time"

	// Coaching (read-only, no mutation)
	TypeShowProgress    Type = "show_progress"
	TypeShowGoalDetails Type = "show_goal_details"
	TypeShowSchedule    Type = "show_schedule"
	TypeShowUpcoming    Type = "show_upcoming"
	TypeSuggestFocus    Type = "suggest_focus"
	TypeCelebrateWin    Type = "celebrate_win"
	TypeCoachReflection Type = "coach_reflection"
	TypeGeneralAdvice   Type = "general_advice"
)

type Status string

const (
	StatusPending             Status = "pending"
	StatusPendingConfirmation Status = "pending_confirmation"
	StatusExecuting           Status = "executing"
	StatusSuccess             Status = "success"
	StatusFailed              Status = "failed"
	StatusCancelled           Status = "cancelled"
)

// Terminal reports whether the status admits no further transition.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusCancelled
}

// ChatAction is one structured mutation request proposed by the reasoning
// service. Data carries the type-specific payload; it is decoded at dispatch.
type ChatAction struct {
	ID                   string          `json:"id"`
	Type                 Type            `json:"type"`
	Status               Status          `json:"status"`
	Data                 json.RawMessage `json:"data,omitempty"`
	RequiresConfirmation bool            `json:"requires_confirmation"`
	Result               *Result         `json:"result,omitempty"`
	Error                string          `json:"error,omitempty"`
}

// Result is produced exactly once per executed action and never retried.
type Result struct {
	Success       bool   `json:"success"`
	TargetType    string `json:"target_type,omitempty"` // "goal", "phase", ...
	TargetID      string `json:"target_id,omitempty"`
	TargetTitle   string `json:"target_title,omitempty"`
	CreatedEntity any    `json:"created_entity,omitempty"`
	Message       string `json:"message,omitempty"`
	Error         string `json:"error,omitempty"`
}

// PendingConfirmation parks a destructive action until the user decides.
// At most one exists per session.
type PendingConfirmation struct {
	Action      *ChatAction `json:"action"`
	Prompt      string      `json:"confirmation_prompt"`
	Confirmed   bool        `json:"confirmed"`
	ConfirmedAt *time.Time  `json:"confirmed_at,omitempty"`
}

var knownTypes = map[Type]struct{}{
	TypeCreateGoal: {}, TypeEditGoal: {}, TypeCompleteGoal: {}, TypeAbandonGoal: {},
	TypeDeleteGoal: {}, TypeAdjustGoalTimeline: {}, TypeUpdateGoalNotes: {},
	TypeCreatePhase: {}, TypeEditPhase: {}, TypeCompletePhase: {}, TypeDeletePhase: {},
	TypeMoveMilestone: {},
	TypeCreateMilestone: {}, TypeCreateMilestones: {}, TypeEditMilestone: {},
	TypeCompleteMilestone: {}, TypeDeleteMilestone: {}, TypeMoveTask: {},
	TypeCreateTask: {}, TypeCreateTasks: {}, TypeEditTask: {}, TypeCompleteTask: {},
	TypeDeleteTask: {}, TypeSetTaskDueDate: {},
	TypeCreateSubTask: {}, TypeCreateSubTasks: {}, TypeEditSubTask: {},
	TypeCompleteSubTask: {}, TypeDeleteSubTask: {},
	TypeCreateEvent: {}, TypeCreateEvents: {}, TypeEditEvent: {}, TypeRescheduleEvent: {},
	TypeDeleteEvent: {},
	TypeBuildSchedule: {}, TypeClearSchedule: {}, TypeBlockTime: {},
	TypeShowProgress: {}, TypeShowGoalDetails: {}, TypeShowSchedule: {}, TypeShowUpcoming: {},
	TypeSuggestFocus: {}, TypeCelebrateWin: {}, TypeCoachReflection: {}, TypeGeneralAdvice: {},
}

// Known reports whether the tag is part of the closed enumeration.
func Known(t Type) bool {
	_, ok := knownTypes[t]
	return ok
}

// ReadOnly reports whether the type produces no domain mutation.
func ReadOnly(t Type) bool {
	switch t {
	case TypeShowProgress, TypeShowGoalDetails, TypeShowSchedule, TypeShowUpcoming,
		TypeSuggestFocus, TypeCelebrateWin, TypeCoachReflection, TypeGeneralAdvice:
		return true
	}
	return false
}

// retiredGuidance maps action names that used to exist (or that models keep
// inventing) to actionable alternatives surfaced to the user.
var retiredGuidance = map[Type]string{
	"reorder_phases": "reordering phases isn't supported yet; edit phases individually instead",
	"reorder_tasks":  "reordering tasks isn't supported yet; adjust due dates instead",
	"duplicate_goal": "duplicating goals isn't supported; create a new goal instead",
	"merge_goals":    "merging goals isn't supported; edit one goal and delete the other",
}

// Guidance returns user-facing advice for an unsupported action tag.
func Guidance(t Type) string {
	if g, ok := retiredGuidance[t]; ok {
		return g
	}
	return "Unknown action type"
}
