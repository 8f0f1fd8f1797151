package domain

import "context"

// Handlers is the port to the store of record. The orchestration core delegates
// every mutation here and never patches its own snapshot; it refreshes wholesale
// through RefreshGoals/RefreshEvents after mutating.
type Handlers interface {
	CreateGoal(ctx context.Context, g Goal) (Goal, error)
	UpdateGoal(ctx context.Context, g Goal) error
	DeleteGoal(ctx context.Context, id string) error

	CreatePhase(ctx context.Context, goalID string, p Phase) (Phase, error)
	UpdatePhase(ctx context.Context, p Phase) error
	DeletePhase(ctx context.Context, id string) error

	CreateMilestone(ctx context.Context, phaseID string, m Milestone) (Milestone, error)
	UpdateMilestone(ctx context.Context, m Milestone) error
	ToggleMilestone(ctx context.Context, id string) error
	DeleteMilestone(ctx context.Context, id string) error

	CreateTask(ctx context.Context, milestoneID string, t Task) (Task, error)
	UpdateTask(ctx context.Context, t Task) error
	ToggleTask(ctx context.Context, id string) error
	DeleteTask(ctx context.Context, id string) error

	CreateSubTask(ctx context.Context, taskID string, s SubTask) (SubTask, error)
	UpdateSubTask(ctx context.Context, s SubTask) error
	ToggleSubTask(ctx context.Context, id string) error
	DeleteSubTask(ctx context.Context, id string) error

	MoveMilestone(ctx context.Context, milestoneID, targetPhaseID string) error
	MoveTask(ctx context.Context, taskID, targetMilestoneID string) error

	CreateEvent(ctx context.Context, e CalendarEvent) (CalendarEvent, error)
	UpdateEvent(ctx context.Context, e CalendarEvent) error
	DeleteEvent(ctx context.Context, id string) error

	RefreshGoals(ctx context.Context) ([]Goal, error)
	RefreshEvents(ctx context.Context) ([]CalendarEvent, error)
}
