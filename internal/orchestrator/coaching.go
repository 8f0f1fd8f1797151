package orchestrator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ascendhq/ascend/internal/action"
	ascendErrors "github.com/ascendhq/ascend/internal/errors"
)

// Coaching actions read the snapshot and hand a compact summary back through
// the feedback loop; they never touch the store.

func (e *Executor) showProgress(a *action.ChatAction) (*action.Result, error) {
	goals := e.snapshot.Goals()
	if len(goals) == 0 {
		return &action.Result{Message: "no goals yet"}, nil
	}

	var b strings.Builder
	for _, g := range goals {
		fmt.Fprintf(&b, "%s: %d%% (%s)", g.Title, g.Progress(), g.Status)
		if p, ok := g.CurrentPhase(); ok {
			fmt.Fprintf(&b, ", current phase %q", p.Title)
		}
		b.WriteString("\n")
	}
	return &action.Result{Message: strings.TrimSpace(b.String())}, nil
}

func (e *Executor) showGoalDetails(a *action.ChatAction) (*action.Result, error) {
	var pl action.GoalPayload
	if err := action.Decode(a.Data, &pl); err != nil {
		return nil, err
	}
	g, ok := e.resolveGoal(pl.GoalID, pl.Title)
	if !ok {
		return nil, ascendErrors.NotFound("goal not found: " + goalRef(pl.GoalID, pl.Title))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s, %d%%", g.Title, g.Status, g.Progress())
	if g.TargetDate != "" {
		fmt.Fprintf(&b, ", target %s", g.TargetDate)
	}
	b.WriteString(")\n")
	for _, p := range g.Phases {
		fmt.Fprintf(&b, "- phase %q %s\n", p.Title, doneMark(p.Completed))
		for _, m := range p.Milestones {
			fmt.Fprintf(&b, "  - milestone %q %s\n", m.Title, doneMark(m.Completed))
			for _, t := range m.Tasks {
				fmt.Fprintf(&b, "    - task %q %s\n", t.Title, doneMark(t.Completed))
			}
		}
	}
	return &action.Result{
		TargetType:  "goal",
		TargetID:    g.ID,
		TargetTitle: g.Title,
		Message:     strings.TrimSpace(b.String()),
	}, nil
}

func (e *Executor) showSchedule(a *action.ChatAction) (*action.Result, error) {
	var pl action.SchedulePayload
	if len(a.Data) > 0 {
		if err := action.Decode(a.Data, &pl); err != nil {
			return nil, err
		}
	}
	weekStart, err := e.weekStart(pl.WeekStart)
	if err != nil {
		return nil, err
	}
	weekEnd := weekStart.AddDate(0, 0, 7)

	events := e.snapshot.Events()
	sort.SliceStable(events, func(i, j int) bool { return events[i].Start.Before(events[j].Start) })

	var b strings.Builder
	for _, ev := range events {
		if ev.Start.Before(weekStart) || !ev.Start.Before(weekEnd) {
			continue
		}
		fmt.Fprintf(&b, "%s %s-%s %s\n",
			ev.LocalDate(),
			ev.LocalStart().Format("15:04"),
			ev.End.In(ev.LocalStart().Location()).Format("15:04"),
			ev.Title,
		)
	}
	if b.Len() == 0 {
		return &action.Result{Message: "nothing scheduled for the week of " + weekStart.Format("2006-01-02")}, nil
	}
	return &action.Result{Message: strings.TrimSpace(b.String())}, nil
}

func (e *Executor) showUpcoming(a *action.ChatAction) (*action.Result, error) {
	now := e.now()
	events := e.snapshot.Events()
	sort.SliceStable(events, func(i, j int) bool { return events[i].Start.Before(events[j].Start) })

	var b strings.Builder
	count := 0
	for _, ev := range events {
		if ev.Start.Before(now) {
			continue
		}
		fmt.Fprintf(&b, "%s %s %s\n", ev.LocalDate(), ev.LocalStart().Format("15:04"), ev.Title)
		count++
		if count == 10 {
			break
		}
	}
	if count == 0 {
		return &action.Result{Message: "no upcoming events"}, nil
	}
	return &action.Result{Message: strings.TrimSpace(b.String())}, nil
}

// suggestFocus picks the first incomplete task of the current phase of the
// first active goal, in snapshot order.
func (e *Executor) suggestFocus(a *action.ChatAction) (*action.Result, error) {
	for _, pt := range e.pendingTasks("") {
		g, _ := e.snapshot.Goal(pt.goalID)
		return &action.Result{
			TargetType:  "task",
			TargetID:    pt.task.ID,
			TargetTitle: pt.task.Title,
			Message:     fmt.Sprintf("next up for %q: %s", g.Title, pt.task.Title),
		}, nil
	}
	return &action.Result{Message: "nothing pending, all caught up"}, nil
}

func doneMark(completed bool) string {
	if completed {
		return "[done]"
	}
	return "[open]"
}
