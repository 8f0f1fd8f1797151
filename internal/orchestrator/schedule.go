package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ascendhq/ascend/internal/action"
	"github.com/ascendhq/ascend/internal/domain"
	ascendErrors "github.com/ascendhq/ascend/internal/errors"
)

// Scheduling is deterministic: one work block per pending task, placed on the
// earliest available day of the requested week, honoring sleep windows,
// recurring blocks and date exceptions. No model call is involved.

const scheduleSlotDuration = time.Hour

func (e *Executor) buildSchedule(ctx context.Context, a *action.ChatAction) (*action.Result, error) {
	var pl action.SchedulePayload
	if err := action.Decode(a.Data, &pl); err != nil {
		return nil, err
	}

	weekStart, err := e.weekStart(pl.WeekStart)
	if err != nil {
		return nil, err
	}

	tasks := e.pendingTasks(pl.GoalID)
	if len(tasks) == 0 {
		return &action.Result{Message: "nothing to schedule, no pending tasks"}, nil
	}

	cons := e.constraints()
	loc := time.UTC
	if pl.Timezone != "" {
		if l, err := time.LoadLocation(pl.Timezone); err == nil {
			loc = l
		}
	}

	scheduled := 0
	slot := 0
	for _, t := range tasks {
		start, ok := nextSlot(weekStart, slot, cons, loc)
		if !ok {
			break
		}
		slot++

		ev := domain.CalendarEvent{
			GoalID:   t.goalID,
			Title:    t.task.Title,
			Start:    start,
			End:      start.Add(scheduleSlotDuration),
			Timezone: pl.Timezone,
		}
		if _, err := e.handlers.CreateEvent(ctx, ev); err != nil {
			return nil, err
		}
		scheduled++
	}

	return &action.Result{
		TargetType: "event",
		Message:    fmt.Sprintf("scheduled %d work blocks for the week of %s", scheduled, weekStart.Format("2006-01-02")),
	}, nil
}

func (e *Executor) clearSchedule(ctx context.Context, a *action.ChatAction) (*action.Result, error) {
	var pl action.SchedulePayload
	if err := action.Decode(a.Data, &pl); err != nil {
		return nil, err
	}

	weekStart, err := e.weekStart(pl.WeekStart)
	if err != nil {
		return nil, err
	}
	weekEnd := weekStart.AddDate(0, 0, 7)

	removed := 0
	for _, ev := range e.snapshot.Events() {
		// Only plan-linked events are cleared; standalone blocks survive.
		if ev.GoalID == "" && ev.PhaseID == "" && ev.MilestoneID == "" {
			continue
		}
		if pl.GoalID != "" && ev.GoalID != pl.GoalID {
			continue
		}
		if ev.Start.Before(weekStart) || !ev.Start.Before(weekEnd) {
			continue
		}
		if err := e.handlers.DeleteEvent(ctx, ev.ID); err != nil {
			return nil, err
		}
		removed++
	}

	return &action.Result{
		TargetType: "event",
		Message:    fmt.Sprintf("cleared %d scheduled blocks from the week of %s", removed, weekStart.Format("2006-01-02")),
	}, nil
}

func (e *Executor) blockTime(ctx context.Context, a *action.ChatAction) (*action.Result, error) {
	var pl action.SchedulePayload
	if err := action.Decode(a.Data, &pl); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(pl.Label)
	if title == "" {
		title = "Blocked"
	}

	start, err := parseInstant(pl.Start, pl.Timezone)
	if err != nil {
		return nil, err
	}
	end, err := parseInstant(pl.End, pl.Timezone)
	if err != nil {
		return nil, err
	}
	if !end.After(start) {
		return nil, ascendErrors.InvalidInput("block end must be after start")
	}

	created, err := e.handlers.CreateEvent(ctx, domain.CalendarEvent{
		Title:    title,
		Start:    start,
		End:      end,
		Timezone: pl.Timezone,
	})
	if err != nil {
		return nil, err
	}
	return &action.Result{
		TargetType:    "event",
		TargetID:      created.ID,
		TargetTitle:   created.Title,
		CreatedEntity: created,
		Message:       fmt.Sprintf("blocked %q on %s", created.Title, created.LocalDate()),
	}, nil
}

func (e *Executor) weekStart(s string) (time.Time, error) {
	if s != "" {
		return parseDate(s)
	}
	now := e.now().UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	// Back up to Monday.
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset), nil
}

type pendingTask struct {
	goalID string
	task   domain.Task
}

// pendingTasks walks active goals in snapshot order and collects incomplete
// tasks of the current phase first, keeping proposal determinism.
func (e *Executor) pendingTasks(goalID string) []pendingTask {
	var out []pendingTask
	for _, g := range e.snapshot.Goals() {
		if goalID != "" && g.ID != goalID {
			continue
		}
		if g.Status != domain.GoalStatusActive && g.Status != domain.GoalStatusNotStarted {
			continue
		}
		for _, p := range g.Phases {
			if p.Completed {
				continue
			}
			for _, m := range p.Milestones {
				if m.Completed {
					continue
				}
				for _, t := range m.Tasks {
					if !t.Completed {
						out = append(out, pendingTask{goalID: g.ID, task: t})
					}
				}
			}
		}
	}
	return out
}

// nextSlot places the n-th block of the week: one block per day, starting
// after the sleep window, skipping unavailable days and recurring blocks.
func nextSlot(weekStart time.Time, n int, cons domain.ScheduleConstraints, loc *time.Location) (time.Time, bool) {
	startHour, startMin := 9, 0
	if hh, mm, ok := parseClock(cons.SleepEnd); ok {
		startHour, startMin = hh, mm
	}

	day := 0
	for offset := 0; offset < 7; offset++ {
		date := weekStart.AddDate(0, 0, offset)
		if !dayAvailable(date, cons) {
			continue
		}
		if day == n {
			candidate := time.Date(date.Year(), date.Month(), date.Day(), startHour, startMin, 0, 0, loc)
			candidate = afterRecurringBlocks(candidate, cons)
			return candidate, true
		}
		day++
	}
	return time.Time{}, false
}

func dayAvailable(date time.Time, cons domain.ScheduleConstraints) bool {
	ds := date.Format("2006-01-02")
	for _, ex := range cons.Exceptions {
		if ex.Date == ds {
			return ex.Available
		}
	}
	return true
}

// afterRecurringBlocks pushes a candidate start past any recurring block of
// matching weekday that covers it.
func afterRecurringBlocks(candidate time.Time, cons domain.ScheduleConstraints) time.Time {
	for changed := true; changed; {
		changed = false
		for _, b := range cons.RecurringBlocks {
			if !blockCoversDay(b, candidate.Weekday()) {
				continue
			}
			sh, sm, ok1 := parseClock(b.Start)
			eh, em, ok2 := parseClock(b.End)
			if !ok1 || !ok2 {
				continue
			}
			blockStart := time.Date(candidate.Year(), candidate.Month(), candidate.Day(), sh, sm, 0, 0, candidate.Location())
			blockEnd := time.Date(candidate.Year(), candidate.Month(), candidate.Day(), eh, em, 0, 0, candidate.Location())
			if !candidate.Before(blockStart) && candidate.Before(blockEnd) {
				candidate = blockEnd
				changed = true
			}
		}
	}
	return candidate
}

func blockCoversDay(b domain.RecurringBlock, day time.Weekday) bool {
	for _, d := range b.Days {
		if d == day {
			return true
		}
	}
	return false
}

func parseClock(s string) (int, int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, false
	}
	var hh, mm int
	if _, err := fmt.Sscanf(s, "%d:%d", &hh, &mm); err != nil {
		return 0, 0, false
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, 0, false
	}
	return hh, mm, true
}
