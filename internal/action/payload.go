package action

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Payloads are the per-type shapes carried in ChatAction.Data. Every payload
// that targets an existing entity must carry that entity's id; the executor
// refuses to resolve entities by natural-language description.

type GoalPayload struct {
	GoalID      string   `json:"goalId,omitempty"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	TargetDate  string   `json:"targetDate,omitempty"` // YYYY-MM-DD
	Notes       []string `json:"notes,omitempty"`
	Risk        string   `json:"risk,omitempty"`

	// create_goal only: context handed to roadmap generation.
	CompletedPrerequisites []string `json:"completedPrerequisites,omitempty"`
	SkippedPrerequisites   []string `json:"skippedPrerequisites,omitempty"`
	AdditionalNotes        string   `json:"additionalNotes,omitempty"`
}

type TimelinePayload struct {
	GoalID        string `json:"goalId"`
	NewTargetDate string `json:"newTargetDate,omitempty"`
	ShiftWeeks    int    `json:"shiftWeeks,omitempty"`
}

type PhasePayload struct {
	GoalID      string `json:"goalId,omitempty"`
	PhaseID     string `json:"phaseId,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	WeekOffset  int    `json:"weekOffset,omitempty"`
}

type MilestonePayload struct {
	PhaseID     string `json:"phaseId,omitempty"`
	MilestoneID string `json:"milestoneId,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	WeekOffset  int    `json:"weekOffset,omitempty"`

	// move_milestone
	TargetPhaseID string `json:"targetPhaseId,omitempty"`
}

type MilestonesPayload struct {
	PhaseID    string             `json:"phaseId"`
	Milestones []MilestonePayload `json:"milestones"`
}

type TaskPayload struct {
	MilestoneID string `json:"milestoneId,omitempty"`
	TaskID      string `json:"taskId,omitempty"`
	Title       string `json:"title,omitempty"`
	DueDate     string `json:"dueDate,omitempty"` // YYYY-MM-DD

	// move_task
	TargetMilestoneID string `json:"targetMilestoneId,omitempty"`
}

type TasksPayload struct {
	MilestoneID string        `json:"milestoneId"`
	Tasks       []TaskPayload `json:"tasks"`
}

type SubTaskPayload struct {
	TaskID    string `json:"taskId,omitempty"`
	SubTaskID string `json:"subtaskId,omitempty"`
	Title     string `json:"title,omitempty"`
}

type SubTasksPayload struct {
	TaskID   string           `json:"taskId"`
	SubTasks []SubTaskPayload `json:"subtasks"`
}

type EventPayload struct {
	EventID     string `json:"eventId,omitempty"`
	GoalID      string `json:"goalId,omitempty"`
	PhaseID     string `json:"phaseId,omitempty"`
	MilestoneID string `json:"milestoneId,omitempty"`
	Title       string `json:"title,omitempty"`
	Start       string `json:"start,omitempty"` // RFC 3339
	End         string `json:"end,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
}

type EventsPayload struct {
	Events []EventPayload `json:"events"`
}

type SchedulePayload struct {
	GoalID    string `json:"goalId,omitempty"`
	WeekStart string `json:"weekStart,omitempty"` // YYYY-MM-DD
	Label     string `json:"label,omitempty"`     // block_time
	Start     string `json:"start,omitempty"`
	End       string `json:"end,omitempty"`
	Timezone  string `json:"timezone,omitempty"`
}

// Decode unmarshals raw action data into the given payload shape.
func Decode(data json.RawMessage, out any) error {
	if len(data) == 0 {
		return fmt.Errorf("empty action payload")
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode action payload: %w", err)
	}
	return nil
}

// SummarizeTarget extracts a short "<kind> <id-or-title>" description from raw
// payload data, used when rendering confirmation prompts.
func SummarizeTarget(t Type, data json.RawMessage) string {
	var probe struct {
		GoalID      string `json:"goalId"`
		PhaseID     string `json:"phaseId"`
		MilestoneID string `json:"milestoneId"`
		TaskID      string `json:"taskId"`
		SubTaskID   string `json:"subtaskId"`
		EventID     string `json:"eventId"`
		Title       string `json:"title"`
	}
	if len(data) > 0 {
		_ = json.Unmarshal(data, &probe)
	}

	if probe.Title != "" {
		return fmt.Sprintf("%q", probe.Title)
	}
	for _, id := range []string{probe.SubTaskID, probe.TaskID, probe.MilestoneID, probe.PhaseID, probe.EventID, probe.GoalID} {
		if strings.TrimSpace(id) != "" {
			return id
		}
	}
	return string(t)
}
