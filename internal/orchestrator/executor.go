// Package orchestrator is the conversation core: it classifies incoming
// messages, assembles plan context, gates destructive actions behind
// confirmation, executes proposed actions sequentially and feeds the results
// back to the reasoning service.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ascendhq/ascend/internal/action"
	"github.com/ascendhq/ascend/internal/domain"
	ascendErrors "github.com/ascendhq/ascend/internal/errors"
	"github.com/ascendhq/ascend/internal/reasoning"
	"github.com/ascendhq/ascend/internal/reasoning/contract"
)

// RoadmapSource generates a goal tree for a freshly created goal.
type RoadmapSource interface {
	GenerateRoadmap(ctx context.Context, req reasoning.RoadmapRequest) (*contract.GeneratedGoal, error)
}

// Executor dispatches actions one at a time, in proposal order. Each action
// is isolated: a failure or panic produces a failed result and the batch
// continues. After any successful mutation the snapshot is replaced wholesale
// from the store so later actions in the batch resolve fresh ids.
type Executor struct {
	handlers    domain.Handlers
	snapshot    *domain.Snapshot
	roadmap     RoadmapSource
	profile     func() domain.UserProfile
	constraints func() domain.ScheduleConstraints
	now         func() time.Time
}

func NewExecutor(
	handlers domain.Handlers,
	snapshot *domain.Snapshot,
	roadmap RoadmapSource,
	profile func() domain.UserProfile,
	constraints func() domain.ScheduleConstraints,
) *Executor {
	if profile == nil {
		profile = func() domain.UserProfile { return domain.UserProfile{} }
	}
	if constraints == nil {
		constraints = func() domain.ScheduleConstraints { return domain.ScheduleConstraints{} }
	}
	return &Executor{
		handlers:    handlers,
		snapshot:    snapshot,
		roadmap:     roadmap,
		profile:     profile,
		constraints: constraints,
		now:         time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (e *Executor) WithClock(now func() time.Time) *Executor {
	e.now = now
	return e
}

// ExecuteAll runs the batch sequentially and returns one result per action,
// in order. It never stops early.
func (e *Executor) ExecuteAll(ctx context.Context, actions []*action.ChatAction) []*action.Result {
	results := make([]*action.Result, 0, len(actions))
	for _, a := range actions {
		results = append(results, e.Execute(ctx, a))
	}
	return results
}

// Execute runs one action to a terminal status and returns its result.
func (e *Executor) Execute(ctx context.Context, a *action.ChatAction) (result *action.Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Action dispatch panicked", "action", a.Type, "panic", r)
			result = failure(a, fmt.Errorf("internal error executing %s", a.Type))
		}
		a.Result = result
		if result.Success {
			a.Status = action.StatusSuccess
		} else {
			a.Status = action.StatusFailed
			a.Error = result.Error
		}
	}()

	a.Status = action.StatusExecuting

	if !action.Known(a.Type) {
		return failure(a, fmt.Errorf("%s: %s", ascendErrors.ErrUnknownAction.Error(), action.Guidance(a.Type)))
	}

	res, err := e.dispatch(ctx, a)
	if mutates(a.Type) {
		// A failed dispatch may still have persisted part of its work (batch
		// creates, schedule builds), so the snapshot is re-read on failure too.
		if rerr := e.refresh(ctx); rerr != nil {
			slog.Error("Snapshot refresh failed after mutation", "action", a.Type, "error", rerr)
		}
	}
	if err != nil {
		return failure(a, err)
	}
	if res == nil {
		res = &action.Result{}
	}
	res.Success = true
	return res
}

func failure(a *action.ChatAction, err error) *action.Result {
	return &action.Result{
		Success: false,
		Error:   err.Error(),
	}
}

func mutates(t action.Type) bool {
	return !action.ReadOnly(t)
}

// resolveGoal prefers the id and falls back to an exact title match for
// payloads that arrive without one.
func (e *Executor) resolveGoal(id, title string) (domain.Goal, bool) {
	if g, ok := e.snapshot.Goal(id); ok {
		return g, true
	}
	if id == "" && title != "" {
		return e.snapshot.GoalByTitle(title)
	}
	return domain.Goal{}, false
}

func goalRef(id, title string) string {
	if id != "" {
		return id
	}
	return title
}

func (e *Executor) refresh(ctx context.Context) error {
	goals, err := e.handlers.RefreshGoals(ctx)
	if err != nil {
		return err
	}
	events, err := e.handlers.RefreshEvents(ctx)
	if err != nil {
		return err
	}
	e.snapshot.Replace(goals, events)
	return nil
}

func (e *Executor) dispatch(ctx context.Context, a *action.ChatAction) (*action.Result, error) {
	switch a.Type {
	case action.TypeCreateGoal:
		return e.createGoal(ctx, a)
	case action.TypeEditGoal:
		return e.editGoal(ctx, a)
	case action.TypeCompleteGoal:
		return e.setGoalStatus(ctx, a, domain.GoalStatusCompleted)
	case action.TypeAbandonGoal:
		return e.setGoalStatus(ctx, a, domain.GoalStatusAbandoned)
	case action.TypeDeleteGoal:
		return e.deleteGoal(ctx, a)
	case action.TypeAdjustGoalTimeline:
		return e.adjustGoalTimeline(ctx, a)
	case action.TypeUpdateGoalNotes:
		return e.updateGoalNotes(ctx, a)

	case action.TypeCreatePhase:
		return e.createPhase(ctx, a)
	case action.TypeEditPhase:
		return e.editPhase(ctx, a)
	case action.TypeCompletePhase:
		return e.completePhase(ctx, a)
	case action.TypeDeletePhase:
		return e.deletePhase(ctx, a)
	case action.TypeMoveMilestone:
		return e.moveMilestone(ctx, a)

	case action.TypeCreateMilestone:
		return e.createMilestone(ctx, a)
	case action.TypeCreateMilestones:
		return e.createMilestones(ctx, a)
	case action.TypeEditMilestone:
		return e.editMilestone(ctx, a)
	case action.TypeCompleteMilestone:
		return e.toggleMilestone(ctx, a)
	case action.TypeDeleteMilestone:
		return e.deleteMilestone(ctx, a)
	case action.TypeMoveTask:
		return e.moveTask(ctx, a)

	case action.TypeCreateTask:
		return e.createTask(ctx, a)
	case action.TypeCreateTasks:
		return e.createTasks(ctx, a)
	case action.TypeEditTask:
		return e.editTask(ctx, a)
	case action.TypeCompleteTask:
		return e.toggleTask(ctx, a)
	case action.TypeDeleteTask:
		return e.deleteTask(ctx, a)
	case action.TypeSetTaskDueDate:
		return e.setTaskDueDate(ctx, a)

	case action.TypeCreateSubTask:
		return e.createSubTask(ctx, a)
	case action.TypeCreateSubTasks:
		return e.createSubTasks(ctx, a)
	case action.TypeEditSubTask:
		return e.editSubTask(ctx, a)
	case action.TypeCompleteSubTask:
		return e.toggleSubTask(ctx, a)
	case action.TypeDeleteSubTask:
		return e.deleteSubTask(ctx, a)

	case action.TypeCreateEvent:
		return e.createEvent(ctx, a)
	case action.TypeCreateEvents:
		return e.createEvents(ctx, a)
	case action.TypeEditEvent, action.TypeRescheduleEvent:
		return e.editEvent(ctx, a)
	case action.TypeDeleteEvent:
		return e.deleteEvent(ctx, a)

	case action.TypeBuildSchedule:
		return e.buildSchedule(ctx, a)
	case action.TypeClearSchedule:
		return e.clearSchedule(ctx, a)
	case action.TypeBlockTime:
		return e.blockTime(ctx, a)

	case action.TypeShowProgress:
		return e.showProgress(a)
	case action.TypeShowGoalDetails:
		return e.showGoalDetails(a)
	case action.TypeShowSchedule:
		return e.showSchedule(a)
	case action.TypeShowUpcoming:
		return e.showUpcoming(a)
	case action.TypeSuggestFocus:
		return e.suggestFocus(a)
	case action.TypeCelebrateWin, action.TypeCoachReflection, action.TypeGeneralAdvice:
		return &action.Result{Message: "noted"}, nil
	}

	return nil, fmt.Errorf("%s: %s", ascendErrors.ErrUnknownAction.Error(), action.Guidance(a.Type))
}

// --- goal actions ---

func (e *Executor) createGoal(ctx context.Context, a *action.ChatAction) (*action.Result, error) {
	var p action.GoalPayload
	if err := action.Decode(a.Data, &p); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.Title) == "" {
		return nil, ascendErrors.InvalidInput("goal title is required")
	}
	if p.TargetDate != "" {
		if _, err := parseDate(p.TargetDate); err != nil {
			return nil, err
		}
	}

	g := domain.Goal{
		Title:       p.Title,
		Description: p.Description,
		TargetDate:  p.TargetDate,
		Notes:       p.Notes,
	}

	// Roadmap generation is best effort: when it fails the goal is still
	// created bare so the user keeps something to build on.
	if e.roadmap != nil {
		generated, err := e.roadmap.GenerateRoadmap(ctx, reasoning.RoadmapRequest{
			GoalContexts: []contract.GoalContext{{
				GoalTitle:              p.Title,
				CompletedPrerequisites: p.CompletedPrerequisites,
				SkippedPrerequisites:   p.SkippedPrerequisites,
				AdditionalNotes:        p.AdditionalNotes,
			}},
			ProfileNote: profileNote(e.profile()),
		})
		if err != nil {
			slog.Warn("Roadmap generation failed, creating bare goal", "title", p.Title, "error", err)
		} else {
			if generated.Description != "" && g.Description == "" {
				g.Description = generated.Description
			}
			g.Phases = roadmapToPhases(generated)
		}
	}

	created, err := e.handlers.CreateGoal(ctx, g)
	if err != nil {
		return nil, err
	}
	return &action.Result{
		TargetType:    "goal",
		TargetID:      created.ID,
		TargetTitle:   created.Title,
		CreatedEntity: created,
		Message:       fmt.Sprintf("created goal %q with %d phases", created.Title, len(created.Phases)),
	}, nil
}

func roadmapToPhases(g *contract.GeneratedGoal) []domain.Phase {
	phases := make([]domain.Phase, 0, len(g.Phases))
	for _, gp := range g.Phases {
		p := domain.Phase{
			Title:       gp.Title,
			Description: gp.Description,
			WeekOffset:  gp.WeekOffset,
		}
		for _, gm := range gp.Milestones {
			m := domain.Milestone{
				Title:       gm.Title,
				Description: gm.Description,
				WeekOffset:  gm.WeekOffset,
			}
			for _, gt := range gm.Tasks {
				t := domain.Task{Title: gt.Title}
				for _, gs := range gt.SubTasks {
					t.SubTasks = append(t.SubTasks, domain.SubTask{Title: gs.Title})
				}
				m.Tasks = append(m.Tasks, t)
			}
			p.Milestones = append(p.Milestones, m)
		}
		phases = append(phases, p)
	}
	return phases
}

func profileNote(p domain.UserProfile) string {
	parts := []string{}
	if p.Role != "" {
		parts = append(parts, "role: "+p.Role)
	}
	if p.Chronotype != "" {
		parts = append(parts, "chronotype: "+p.Chronotype)
	}
	if p.EnergyLevel != "" {
		parts = append(parts, "energy: "+p.EnergyLevel)
	}
	if p.Bio != "" {
		parts = append(parts, p.Bio)
	}
	return strings.Join(parts, "; ")
}

func (e *Executor) editGoal(ctx context.Context, a *action.ChatAction) (*action.Result, error) {
	var p action.GoalPayload
	if err := action.Decode(a.Data, &p); err != nil {
		return nil, err
	}
	g, ok := e.snapshot.Goal(p.GoalID)
	if !ok {
		return nil, ascendErrors.NotFound("goal not found: " + p.GoalID)
	}

	if p.Title != "" {
		g.Title = p.Title
	}
	if p.Description != "" {
		g.Description = p.Description
	}
	if p.TargetDate != "" {
		if _, err := parseDate(p.TargetDate); err != nil {
			return nil, err
		}
		g.TargetDate = p.TargetDate
	}
	if p.Risk != "" {
		g.Risk = domain.RiskLevel(p.Risk)
	}

	if err := e.handlers.UpdateGoal(ctx, g); err != nil {
		return nil, err
	}
	return targetResult("goal", g.ID, g.Title, "updated goal %q"), nil
}

func (e *Executor) setGoalStatus(ctx context.Context, a *action.ChatAction, status domain.GoalStatus) (*action.Result, error) {
	var p action.GoalPayload
	if err := action.Decode(a.Data, &p); err != nil {
		return nil, err
	}
	g, ok := e.resolveGoal(p.GoalID, p.Title)
	if !ok {
		return nil, ascendErrors.NotFound("goal not found: " + goalRef(p.GoalID, p.Title))
	}
	g.Status = status
	if err := e.handlers.UpdateGoal(ctx, g); err != nil {
		return nil, err
	}
	return &action.Result{
		TargetType:  "goal",
		TargetID:    g.ID,
		TargetTitle: g.Title,
		Message:     fmt.Sprintf("goal %q is now %s", g.Title, status),
	}, nil
}

func (e *Executor) deleteGoal(ctx context.Context, a *action.ChatAction) (*action.Result, error) {
	var p action.GoalPayload
	if err := action.Decode(a.Data, &p); err != nil {
		return nil, err
	}
	g, ok := e.resolveGoal(p.GoalID, p.Title)
	if !ok {
		return nil, ascendErrors.NotFound("goal not found: " + goalRef(p.GoalID, p.Title))
	}
	if err := e.handlers.DeleteGoal(ctx, g.ID); err != nil {
		return nil, err
	}
	return targetResult("goal", g.ID, g.Title, "deleted goal %q"), nil
}

func (e *Executor) adjustGoalTimeline(ctx context.Context, a *action.ChatAction) (*action.Result, error) {
	var p action.TimelinePayload
	if err := action.Decode(a.Data, &p); err != nil {
		return nil, err
	}
	g, ok := e.snapshot.Goal(p.GoalID)
	if !ok {
		return nil, ascendErrors.NotFound("goal not found: " + p.GoalID)
	}

	switch {
	case p.NewTargetDate != "":
		if _, err := parseDate(p.NewTargetDate); err != nil {
			return nil, err
		}
		g.TargetDate = p.NewTargetDate
	case p.ShiftWeeks != 0:
		if g.TargetDate == "" {
			return nil, ascendErrors.InvalidInput("goal has no target date to shift")
		}
		d, err := parseDate(g.TargetDate)
		if err != nil {
			return nil, err
		}
		g.TargetDate = d.AddDate(0, 0, 7*p.ShiftWeeks).Format("2006-01-02")
	default:
		return nil, ascendErrors.InvalidInput("timeline adjustment needs newTargetDate or shiftWeeks")
	}

	if err := e.handlers.UpdateGoal(ctx, g); err != nil {
		return nil, err
	}
	return &action.Result{
		TargetType:  "goal",
		TargetID:    g.ID,
		TargetTitle: g.Title,
		Message:     fmt.Sprintf("goal %q now targets %s", g.Title, g.TargetDate),
	}, nil
}

func (e *Executor) updateGoalNotes(ctx context.Context, a *action.ChatAction) (*action.Result, error) {
	var p action.GoalPayload
	if err := action.Decode(a.Data, &p); err != nil {
		return nil, err
	}
	g, ok := e.snapshot.Goal(p.GoalID)
	if !ok {
		return nil, ascendErrors.NotFound("goal not found: " + p.GoalID)
	}
	if len(p.Notes) == 0 {
		return nil, ascendErrors.InvalidInput("no notes given")
	}
	g.Notes = append(g.Notes, p.Notes...)
	if err := e.handlers.UpdateGoal(ctx, g); err != nil {
		return nil, err
	}
	return targetResult("goal", g.ID, g.Title, "added notes to goal %q"), nil
}

// --- phase actions ---

func (e *Executor) createPhase(ctx context.Context, a *action.ChatAction) (*action.Result, error) {
	var p action.PhasePayload
	if err := action.Decode(a.Data, &p); err != nil {
		return nil, err
	}
	if _, ok := e.snapshot.Goal(p.GoalID); !ok {
		return nil, ascendErrors.NotFound("goal not found: " + p.GoalID)
	}
	if strings.TrimSpace(p.Title) == "" {
		return nil, ascendErrors.InvalidInput("phase title is required")
	}

	created, err := e.handlers.CreatePhase(ctx, p.GoalID, domain.Phase{
		Title:       p.Title,
		Description: p.Description,
		WeekOffset:  p.WeekOffset,
	})
	if err != nil {
		return nil, err
	}
	return &action.Result{
		TargetType:    "phase",
		TargetID:      created.ID,
		TargetTitle:   created.Title,
		CreatedEntity: created,
		Message:       fmt.Sprintf("created phase %q", created.Title),
	}, nil
}

func (e *Executor) editPhase(ctx context.Context, a *action.ChatAction) (*action.Result, error) {
	var pl action.PhasePayload
	if err := action.Decode(a.Data, &pl); err != nil {
		return nil, err
	}
	p, ok := e.snapshot.Phase(pl.PhaseID)
	if !ok {
		return nil, ascendErrors.NotFound("phase not found: " + pl.PhaseID)
	}
	if pl.Title != "" {
		p.Title = pl.Title
	}
	if pl.Description != "" {
		p.Description = pl.Description
	}
	if pl.WeekOffset != 0 {
		p.WeekOffset = pl.WeekOffset
	}
	if err := e.handlers.UpdatePhase(ctx, p); err != nil {
		return nil, err
	}
	return targetResult("phase", p.ID, p.Title, "updated phase %q"), nil
}

func (e *Executor) completePhase(ctx context.Context, a *action.ChatAction) (*action.Result, error) {
	var pl action.PhasePayload
	if err := action.Decode(a.Data, &pl); err != nil {
		return nil, err
	}
	p, ok := e.snapshot.Phase(pl.PhaseID)
	if !ok {
		return nil, ascendErrors.NotFound("phase not found: " + pl.PhaseID)
	}
	p.Completed = !p.Completed
	if err := e.handlers.UpdatePhase(ctx, p); err != nil {
		return nil, err
	}
	return toggleResult("phase", p.ID, p.Title, p.Completed), nil
}

func (e *Executor) deletePhase(ctx context.Context, a *action.ChatAction) (*action.Result, error) {
	var pl action.PhasePayload
	if err := action.Decode(a.Data, &pl); err != nil {
		return nil, err
	}
	p, ok := e.snapshot.Phase(pl.PhaseID)
	if !ok {
		return nil, ascendErrors.NotFound("phase not found: " + pl.PhaseID)
	}
	if err := e.handlers.DeletePhase(ctx, p.ID); err != nil {
		return nil, err
	}
	return targetResult("phase", p.ID, p.Title, "deleted phase %q"), nil
}

func (e *Executor) moveMilestone(ctx context.Context, a *action.ChatAction) (*action.Result, error) {
	var pl action.MilestonePayload
	if err := action.Decode(a.Data, &pl); err != nil {
		return nil, err
	}
	m, ok := e.snapshot.Milestone(pl.MilestoneID)
	if !ok {
		return nil, ascendErrors.NotFound("milestone not found: " + pl.MilestoneID)
	}
	if _, ok := e.snapshot.Phase(pl.TargetPhaseID); !ok {
		return nil, ascendErrors.NotFound("phase not found: " + pl.TargetPhaseID)
	}
	if err := e.handlers.MoveMilestone(ctx, m.ID, pl.TargetPhaseID); err != nil {
		return nil, err
	}
	return targetResult("milestone", m.ID, m.Title, "moved milestone %q"), nil
}

// --- milestone actions ---

func (e *Executor) createMilestone(ctx context.Context, a *action.ChatAction) (*action.Result, error) {
	var pl action.MilestonePayload
	if err := action.Decode(a.Data, &pl); err != nil {
		return nil, err
	}
	return e.createMilestoneIn(ctx, pl.PhaseID, pl)
}

func (e *Executor) createMilestoneIn(ctx context.Context, phaseID string, pl action.MilestonePayload) (*action.Result, error) {
	if _, ok := e.snapshot.Phase(phaseID); !ok {
		return nil, ascendErrors.NotFound("phase not found: " + phaseID)
	}
	if strings.TrimSpace(pl.Title) == "" {
		return nil, ascendErrors.InvalidInput("milestone title is required")
	}
	created, err := e.handlers.CreateMilestone(ctx, phaseID, domain.Milestone{
		Title:       pl.Title,
		Description: pl.Description,
		WeekOffset:  pl.WeekOffset,
	})
	if err != nil {
		return nil, err
	}
	return &action.Result{
		TargetType:    "milestone",
		TargetID:      created.ID,
		TargetTitle:   created.Title,
		CreatedEntity: created,
		Message:       fmt.Sprintf("created milestone %q", created.Title),
	}, nil
}

func (e *Executor) createMilestones(ctx context.Context, a *action.ChatAction) (*action.Result, error) {
	var pl action.MilestonesPayload
	if err := action.Decode(a.Data, &pl); err != nil {
		return nil, err
	}
	if len(pl.Milestones) == 0 {
		return nil, ascendErrors.InvalidInput("no milestones given")
	}

	created := 0
	var firstErr error
	for _, m := range pl.Milestones {
		if _, err := e.createMilestoneIn(ctx, pl.PhaseID, m); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		created++
		if err := e.refresh(ctx); err != nil {
			slog.Error("Snapshot refresh failed mid-batch", "error", err)
		}
	}
	if created == 0 {
		return nil, firstErr
	}
	return &action.Result{
		TargetType: "milestone",
		Message:    fmt.Sprintf("created %d of %d milestones", created, len(pl.Milestones)),
	}, nil
}

func (e *Executor) editMilestone(ctx context.Context, a *action.ChatAction) (*action.Result, error) {
	var pl action.MilestonePayload
	if err := action.Decode(a.Data, &pl); err != nil {
		return nil, err
	}
	m, ok := e.snapshot.Milestone(pl.MilestoneID)
	if !ok {
		return nil, ascendErrors.NotFound("milestone not found: " + pl.MilestoneID)
	}
	if pl.Title != "" {
		m.Title = pl.Title
	}
	if pl.Description != "" {
		m.Description = pl.Description
	}
	if pl.WeekOffset != 0 {
		m.WeekOffset = pl.WeekOffset
	}
	if err := e.handlers.UpdateMilestone(ctx, m); err != nil {
		return nil, err
	}
	return targetResult("milestone", m.ID, m.Title, "updated milestone %q"), nil
}

func (e *Executor) toggleMilestone(ctx context.Context, a *action.ChatAction) (*action.Result, error) {
	var pl action.MilestonePayload
	if err := action.Decode(a.Data, &pl); err != nil {
		return nil, err
	}
	m, ok := e.snapshot.Milestone(pl.MilestoneID)
	if !ok {
		return nil, ascendErrors.NotFound("milestone not found: " + pl.MilestoneID)
	}
	if err := e.handlers.ToggleMilestone(ctx, m.ID); err != nil {
		return nil, err
	}
	return toggleResult("milestone", m.ID, m.Title, !m.Completed), nil
}

func (e *Executor) deleteMilestone(ctx context.Context, a *action.ChatAction) (*action.Result, error) {
	var pl action.MilestonePayload
	if err := action.Decode(a.Data, &pl); err != nil {
		return nil, err
	}
	m, ok := e.snapshot.Milestone(pl.MilestoneID)
	if !ok {
		return nil, ascendErrors.NotFound("milestone not found: " + pl.MilestoneID)
	}
	if err := e.handlers.DeleteMilestone(ctx, m.ID); err != nil {
		return nil, err
	}
	return targetResult("milestone", m.ID, m.Title, "deleted milestone %q"), nil
}

func (e *Executor) moveTask(ctx context.Context, a *action.ChatAction) (*action.Result, error) {
	var pl action.TaskPayload
	if err := action.Decode(a.Data, &pl); err != nil {
		return nil, err
	}
	t, ok := e.snapshot.Task(pl.TaskID)
	if !ok {
		return nil, ascendErrors.NotFound("task not found: " + pl.TaskID)
	}
	if _, ok := e.snapshot.Milestone(pl.TargetMilestoneID); !ok {
		return nil, ascendErrors.NotFound("milestone not found: " + pl.TargetMilestoneID)
	}
	if err := e.handlers.MoveTask(ctx, t.ID, pl.TargetMilestoneID); err != nil {
		return nil, err
	}
	return targetResult("task", t.ID, t.Title, "moved task %q"), nil
}

// --- task actions ---

func (e *Executor) createTask(ctx context.Context, a *action.ChatAction) (*action.Result, error) {
	var pl action.TaskPayload
	if err := action.Decode(a.Data, &pl); err != nil {
		return nil, err
	}
	return e.createTaskIn(ctx, pl.MilestoneID, pl)
}

func (e *Executor) createTaskIn(ctx context.Context, milestoneID string, pl action.TaskPayload) (*action.Result, error) {
	if _, ok := e.snapshot.Milestone(milestoneID); !ok {
		return nil, ascendErrors.NotFound("milestone not found: " + milestoneID)
	}
	if strings.TrimSpace(pl.Title) == "" {
		return nil, ascendErrors.InvalidInput("task title is required")
	}
	if pl.DueDate != "" {
		if _, err := parseDate(pl.DueDate); err != nil {
			return nil, err
		}
	}
	created, err := e.handlers.CreateTask(ctx, milestoneID, domain.Task{
		Title:   pl.Title,
		DueDate: pl.DueDate,
	})
	if err != nil {
		return nil, err
	}
	return &action.Result{
		TargetType:    "task",
		TargetID:      created.ID,
		TargetTitle:   created.Title,
		CreatedEntity: created,
		Message:       fmt.Sprintf("created task %q", created.Title),
	}, nil
}

func (e *Executor) createTasks(ctx context.Context, a *action.ChatAction) (*action.Result, error) {
	var pl action.TasksPayload
	if err := action.Decode(a.Data, &pl); err != nil {
		return nil, err
	}
	if len(pl.Tasks) == 0 {
		return nil, ascendErrors.InvalidInput("no tasks given")
	}

	created := 0
	var firstErr error
	for _, t := range pl.Tasks {
		if _, err := e.createTaskIn(ctx, pl.MilestoneID, t); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		created++
		if err := e.refresh(ctx); err != nil {
			slog.Error("Snapshot refresh failed mid-batch", "error", err)
		}
	}
	if created == 0 {
		return nil, firstErr
	}
	return &action.Result{
		TargetType: "task",
		Message:    fmt.Sprintf("created %d of %d tasks", created, len(pl.Tasks)),
	}, nil
}

func (e *Executor) editTask(ctx context.Context, a *action.ChatAction) (*action.Result, error) {
	var pl action.TaskPayload
	if err := action.Decode(a.Data, &pl); err != nil {
		return nil, err
	}
	t, ok := e.snapshot.Task(pl.TaskID)
	if !ok {
		return nil, ascendErrors.NotFound("task not found: " + pl.TaskID)
	}
	if pl.Title != "" {
		t.Title = pl.Title
	}
	if pl.DueDate != "" {
		if _, err := parseDate(pl.DueDate); err != nil {
			return nil, err
		}
		t.DueDate = pl.DueDate
	}
	if err := e.handlers.UpdateTask(ctx, t); err != nil {
		return nil, err
	}
	return targetResult("task", t.ID, t.Title, "updated task %q"), nil
}

func (e *Executor) toggleTask(ctx context.Context, a *action.ChatAction) (*action.Result, error) {
	var pl action.TaskPayload
	if err := action.Decode(a.Data, &pl); err != nil {
		return nil, err
	}
	t, ok := e.snapshot.Task(pl.TaskID)
	if !ok {
		return nil, ascendErrors.NotFound("task not found: " + pl.TaskID)
	}
	if err := e.handlers.ToggleTask(ctx, t.ID); err != nil {
		return nil, err
	}
	return toggleResult("task", t.ID, t.Title, !t.Completed), nil
}

func (e *Executor) deleteTask(ctx context.Context, a *action.ChatAction) (*action.Result, error) {
	var pl action.TaskPayload
	if err := action.Decode(a.Data, &pl); err != nil {
		return nil, err
	}
	t, ok := e.snapshot.Task(pl.TaskID)
	if !ok {
		return nil, ascendErrors.NotFound("task not found: " + pl.TaskID)
	}
	if err := e.handlers.DeleteTask(ctx, t.ID); err != nil {
		return nil, err
	}
	return targetResult("task", t.ID, t.Title, "deleted task %q"), nil
}

func (e *Executor) setTaskDueDate(ctx context.Context, a *action.ChatAction) (*action.Result, error) {
	var pl action.TaskPayload
	if err := action.Decode(a.Data, &pl); err != nil {
		return nil, err
	}
	t, ok := e.snapshot.Task(pl.TaskID)
	if !ok {
		return nil, ascendErrors.NotFound("task not found: " + pl.TaskID)
	}
	if pl.DueDate == "" {
		return nil, ascendErrors.InvalidInput("due date is required")
	}
	if _, err := parseDate(pl.DueDate); err != nil {
		return nil, err
	}
	t.DueDate = pl.DueDate
	if err := e.handlers.UpdateTask(ctx, t); err != nil {
		return nil, err
	}
	return &action.Result{
		TargetType:  "task",
		TargetID:    t.ID,
		TargetTitle: t.Title,
		Message:     fmt.Sprintf("task %q is now due %s", t.Title, t.DueDate),
	}, nil
}

// --- subtask actions ---

func (e *Executor) createSubTask(ctx context.Context, a *action.ChatAction) (*action.Result, error) {
	var pl action.SubTaskPayload
	if err := action.Decode(a.Data, &pl); err != nil {
		return nil, err
	}
	return e.createSubTaskIn(ctx, pl.TaskID, pl)
}

func (e *Executor) createSubTaskIn(ctx context.Context, taskID string, pl action.SubTaskPayload) (*action.Result, error) {
	if _, ok := e.snapshot.Task(taskID); !ok {
		return nil, ascendErrors.NotFound("task not found: " + taskID)
	}
	if strings.TrimSpace(pl.Title) == "" {
		return nil, ascendErrors.InvalidInput("subtask title is required")
	}
	created, err := e.handlers.CreateSubTask(ctx, taskID, domain.SubTask{Title: pl.Title})
	if err != nil {
		return nil, err
	}
	return &action.Result{
		TargetType:    "subtask",
		TargetID:      created.ID,
		TargetTitle:   created.Title,
		CreatedEntity: created,
		Message:       fmt.Sprintf("created subtask %q", created.Title),
	}, nil
}

func (e *Executor) createSubTasks(ctx context.Context, a *action.ChatAction) (*action.Result, error) {
	var pl action.SubTasksPayload
	if err := action.Decode(a.Data, &pl); err != nil {
		return nil, err
	}
	if len(pl.SubTasks) == 0 {
		return nil, ascendErrors.InvalidInput("no subtasks given")
	}

	created := 0
	var firstErr error
	for _, st := range pl.SubTasks {
		if _, err := e.createSubTaskIn(ctx, pl.TaskID, st); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		created++
		if err := e.refresh(ctx); err != nil {
			slog.Error("Snapshot refresh failed mid-batch", "error", err)
		}
	}
	if created == 0 {
		return nil, firstErr
	}
	return &action.Result{
		TargetType: "subtask",
		Message:    fmt.Sprintf("created %d of %d subtasks", created, len(pl.SubTasks)),
	}, nil
}

func (e *Executor) editSubTask(ctx context.Context, a *action.ChatAction) (*action.Result, error) {
	var pl action.SubTaskPayload
	if err := action.Decode(a.Data, &pl); err != nil {
		return nil, err
	}
	st, ok := e.snapshot.SubTask(pl.SubTaskID)
	if !ok {
		return nil, ascendErrors.NotFound("subtask not found: " + pl.SubTaskID)
	}
	if pl.Title != "" {
		st.Title = pl.Title
	}
	if err := e.handlers.UpdateSubTask(ctx, st); err != nil {
		return nil, err
	}
	return targetResult("subtask", st.ID, st.Title, "updated subtask %q"), nil
}

func (e *Executor) toggleSubTask(ctx context.Context, a *action.ChatAction) (*action.Result, error) {
	var pl action.SubTaskPayload
	if err := action.Decode(a.Data, &pl); err != nil {
		return nil, err
	}
	st, ok := e.snapshot.SubTask(pl.SubTaskID)
	if !ok {
		return nil, ascendErrors.NotFound("subtask not found: " + pl.SubTaskID)
	}
	if err := e.handlers.ToggleSubTask(ctx, st.ID); err != nil {
		return nil, err
	}
	return toggleResult("subtask", st.ID, st.Title, !st.Completed), nil
}

func (e *Executor) deleteSubTask(ctx context.Context, a *action.ChatAction) (*action.Result, error) {
	var pl action.SubTaskPayload
	if err := action.Decode(a.Data, &pl); err != nil {
		return nil, err
	}
	st, ok := e.snapshot.SubTask(pl.SubTaskID)
	if !ok {
		return nil, ascendErrors.NotFound("subtask not found: " + pl.SubTaskID)
	}
	if err := e.handlers.DeleteSubTask(ctx, st.ID); err != nil {
		return nil, err
	}
	return targetResult("subtask", st.ID, st.Title, "deleted subtask %q"), nil
}

// --- event actions ---

func (e *Executor) createEvent(ctx context.Context, a *action.ChatAction) (*action.Result, error) {
	var pl action.EventPayload
	if err := action.Decode(a.Data, &pl); err != nil {
		return nil, err
	}
	return e.createEventFrom(ctx, pl)
}

func (e *Executor) createEventFrom(ctx context.Context, pl action.EventPayload) (*action.Result, error) {
	ev, err := e.eventFromPayload(pl)
	if err != nil {
		return nil, err
	}
	created, err := e.handlers.CreateEvent(ctx, ev)
	if err != nil {
		return nil, err
	}
	return &action.Result{
		TargetType:    "event",
		TargetID:      created.ID,
		TargetTitle:   created.Title,
		CreatedEntity: created,
		Message:       fmt.Sprintf("scheduled %q on %s", created.Title, created.LocalDate()),
	}, nil
}

func (e *Executor) eventFromPayload(pl action.EventPayload) (domain.CalendarEvent, error) {
	if strings.TrimSpace(pl.Title) == "" {
		return domain.CalendarEvent{}, ascendErrors.InvalidInput("event title is required")
	}
	start, err := parseInstant(pl.Start, pl.Timezone)
	if err != nil {
		return domain.CalendarEvent{}, err
	}
	end, err := parseInstant(pl.End, pl.Timezone)
	if err != nil {
		return domain.CalendarEvent{}, err
	}
	if !end.After(start) {
		return domain.CalendarEvent{}, ascendErrors.InvalidInput("event end must be after start")
	}

	links := 0
	for _, id := range []string{pl.GoalID, pl.PhaseID, pl.MilestoneID} {
		if id != "" {
			links++
		}
	}
	if links > 1 {
		return domain.CalendarEvent{}, ascendErrors.InvalidInput("event can link to at most one of goal, phase or milestone")
	}
	if pl.GoalID != "" {
		if _, ok := e.snapshot.Goal(pl.GoalID); !ok {
			return domain.CalendarEvent{}, ascendErrors.NotFound("goal not found: " + pl.GoalID)
		}
	}
	if pl.PhaseID != "" {
		if _, ok := e.snapshot.Phase(pl.PhaseID); !ok {
			return domain.CalendarEvent{}, ascendErrors.NotFound("phase not found: " + pl.PhaseID)
		}
	}
	if pl.MilestoneID != "" {
		if _, ok := e.snapshot.Milestone(pl.MilestoneID); !ok {
			return domain.CalendarEvent{}, ascendErrors.NotFound("milestone not found: " + pl.MilestoneID)
		}
	}

	return domain.CalendarEvent{
		GoalID:      pl.GoalID,
		PhaseID:     pl.PhaseID,
		MilestoneID: pl.MilestoneID,
		Title:       pl.Title,
		Start:       start,
		End:         end,
		Timezone:    pl.Timezone,
	}, nil
}

func (e *Executor) createEvents(ctx context.Context, a *action.ChatAction) (*action.Result, error) {
	var pl action.EventsPayload
	if err := action.Decode(a.Data, &pl); err != nil {
		return nil, err
	}
	if len(pl.Events) == 0 {
		return nil, ascendErrors.InvalidInput("no events given")
	}

	created := 0
	var firstErr error
	for _, ev := range pl.Events {
		if _, err := e.createEventFrom(ctx, ev); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		created++
	}
	if created == 0 {
		return nil, firstErr
	}
	return &action.Result{
		TargetType: "event",
		Message:    fmt.Sprintf("scheduled %d of %d events", created, len(pl.Events)),
	}, nil
}

func (e *Executor) editEvent(ctx context.Context, a *action.ChatAction) (*action.Result, error) {
	var pl action.EventPayload
	if err := action.Decode(a.Data, &pl); err != nil {
		return nil, err
	}
	ev, ok := e.snapshot.Event(pl.EventID)
	if !ok {
		return nil, ascendErrors.NotFound("event not found: " + pl.EventID)
	}

	if pl.Title != "" {
		ev.Title = pl.Title
	}
	if pl.Timezone != "" {
		ev.Timezone = pl.Timezone
	}
	if pl.Start != "" {
		start, err := parseInstant(pl.Start, ev.Timezone)
		if err != nil {
			return nil, err
		}
		ev.Start = start
	}
	if pl.End != "" {
		end, err := parseInstant(pl.End, ev.Timezone)
		if err != nil {
			return nil, err
		}
		ev.End = end
	}
	if !ev.End.After(ev.Start) {
		return nil, ascendErrors.InvalidInput("event end must be after start")
	}

	if err := e.handlers.UpdateEvent(ctx, ev); err != nil {
		return nil, err
	}
	return &action.Result{
		TargetType:  "event",
		TargetID:    ev.ID,
		TargetTitle: ev.Title,
		Message:     fmt.Sprintf("event %q now runs %s", ev.Title, ev.LocalDate()),
	}, nil
}

func (e *Executor) deleteEvent(ctx context.Context, a *action.ChatAction) (*action.Result, error) {
	var pl action.EventPayload
	if err := action.Decode(a.Data, &pl); err != nil {
		return nil, err
	}
	ev, ok := e.snapshot.Event(pl.EventID)
	if !ok {
		return nil, ascendErrors.NotFound("event not found: " + pl.EventID)
	}
	if err := e.handlers.DeleteEvent(ctx, ev.ID); err != nil {
		return nil, err
	}
	return targetResult("event", ev.ID, ev.Title, "deleted event %q"), nil
}

// --- shared result helpers ---

func targetResult(kind, id, title, format string) *action.Result {
	return &action.Result{
		TargetType:  kind,
		TargetID:    id,
		TargetTitle: title,
		Message:     fmt.Sprintf(format, title),
	}
}

func toggleResult(kind, id, title string, completed bool) *action.Result {
	verb := "reopened"
	if completed {
		verb = "completed"
	}
	return &action.Result{
		TargetType:  kind,
		TargetID:    id,
		TargetTitle: title,
		Message:     fmt.Sprintf("%s %s %q", verb, kind, title),
	}
}

func parseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, ascendErrors.InvalidInput(fmt.Sprintf("invalid date %q, want YYYY-MM-DD", s))
	}
	return d, nil
}

// parseInstant accepts RFC 3339 timestamps; a bare offset-less timestamp is
// interpreted in the given IANA timezone.
func parseInstant(s, tz string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ascendErrors.InvalidInput("event start and end are required")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}

	loc := time.UTC
	if tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", s, loc); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04", s, loc); err == nil {
		return t, nil
	}
	return time.Time{}, ascendErrors.InvalidInput(fmt.Sprintf("invalid timestamp %q", s))
}
