package action

import "fmt"

// requiresConfirmation lists exactly the types whose effect is destructive,
// high-cost, or hard to reverse. create_goal is included so the generated
// roadmap can be previewed before it is persisted.
var requiresConfirmation = map[Type]bool{
	TypeDeleteGoal:         true,
	TypeAbandonGoal:        true,
	TypeDeletePhase:        true,
	TypeDeleteMilestone:    true,
	TypeDeleteTask:         true,
	TypeDeleteSubTask:      true,
	TypeDeleteEvent:        true,
	TypeBuildSchedule:      true,
	TypeClearSchedule:      true,
	TypeAdjustGoalTimeline: true,
	TypeCreateGoal:         true,
}

// RequiresConfirmation reports whether the type may only execute after an
// explicit user confirm.
func RequiresConfirmation(t Type) bool {
	return requiresConfirmation[t]
}

// ConfirmationPrompt renders the human-readable question shown to the user
// before a deferred action is allowed to run.
func ConfirmationPrompt(a *ChatAction) string {
	target := SummarizeTarget(a.Type, a.Data)
	switch a.Type {
	case TypeDeleteGoal:
		return fmt.Sprintf("Delete goal %s? This removes all of its phases, milestones, tasks and subtasks.", target)
	case TypeAbandonGoal:
		return fmt.Sprintf("Abandon goal %s? Its history stays but it will no longer be scheduled.", target)
	case TypeDeletePhase:
		return fmt.Sprintf("Delete phase %s and everything under it?", target)
	case TypeDeleteMilestone:
		return fmt.Sprintf("Delete milestone %s and its tasks?", target)
	case TypeDeleteTask:
		return fmt.Sprintf("Delete task %s and its subtasks?", target)
	case TypeDeleteSubTask:
		return fmt.Sprintf("Delete subtask %s?", target)
	case TypeDeleteEvent:
		return fmt.Sprintf("Delete calendar event %s?", target)
	case TypeBuildSchedule:
		return "Build a fresh schedule? Existing plan events for the target week will be replaced."
	case TypeClearSchedule:
		return "Clear the schedule? All plan-linked events in the target window will be removed."
	case TypeAdjustGoalTimeline:
		return fmt.Sprintf("Adjust the timeline of goal %s? Downstream milestones shift with it.", target)
	case TypeCreateGoal:
		return fmt.Sprintf("Create goal %s? A full roadmap will be generated and saved.", target)
	default:
		return fmt.Sprintf("Run %s on %s?", a.Type, target)
	}
}
