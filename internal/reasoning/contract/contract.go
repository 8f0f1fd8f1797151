// Package contract defines the wire shapes exchanged with the remote
// reasoning service.
package contract

import "encoding/json"

type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

type CompletionRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type CompletionResponse struct {
	Content string `json:"content"`
}

type Intent string

const (
	IntentChat     Intent = "CHAT"
	IntentQuestion Intent = "QUESTION"
	IntentQuery    Intent = "QUERY"
	IntentAction   Intent = "ACTION"
	IntentClarify  Intent = "CLARIFY"
)

// Classification is the cheap first-pass verdict on a user message.
type Classification struct {
	Intent            Intent  `json:"intent"`
	Confidence        float64 `json:"confidence"`
	Reasoning         string  `json:"reasoning,omitempty"`
	SuggestedResponse string  `json:"suggested_response,omitempty"`
}

type Mode string

const (
	ModeChat   Mode = "chat"
	ModeQuery  Mode = "query"
	ModeAction Mode = "action"
)

// ProposedAction is one candidate mutation in a responder payload. Data is
// decoded against the per-type payload shapes at dispatch time.
type ProposedAction struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// AssistantTurn is the full responder payload: a natural-language reply plus
// zero or more candidate actions, in the order the model reasoned about them.
type AssistantTurn struct {
	Message string           `json:"message"`
	Actions []ProposedAction `json:"actions,omitempty"`
}

// GoalContext seeds roadmap generation for one goal.
type GoalContext struct {
	GoalTitle              string   `json:"goal_title"`
	CompletedPrerequisites []string `json:"completed_prerequisites,omitempty"`
	SkippedPrerequisites   []string `json:"skipped_prerequisites,omitempty"`
	AdditionalNotes        string   `json:"additional_notes,omitempty"`
}

// GeneratedGoal is a roadmap tree without identifiers; ids are assigned
// locally when the tree is persisted.
type GeneratedGoal struct {
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Phases      []GeneratedPhase `json:"phases"`
}

type GeneratedPhase struct {
	Title       string               `json:"title"`
	Description string               `json:"description,omitempty"`
	WeekOffset  int                  `json:"week_offset,omitempty"`
	Milestones  []GeneratedMilestone `json:"milestones"`
}

type GeneratedMilestone struct {
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	WeekOffset  int             `json:"week_offset,omitempty"`
	Tasks       []GeneratedTask `json:"tasks"`
}

type GeneratedTask struct {
	Title    string             `json:"title"`
	SubTasks []GeneratedSubTask `json:"subtasks,omitempty"`
}

type GeneratedSubTask struct {
	Title string `json:"title"`
}
