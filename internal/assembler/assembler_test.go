package assembler

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ascendhq/ascend/internal/config"
	"github.com/ascendhq/ascend/internal/domain"
)

func testGoal() domain.Goal {
	return domain.Goal{
		ID:     "g1",
		Title:  "Ship the app",
		Status: domain.GoalStatusActive,
		Risk:   domain.RiskOnTrack,
		Phases: []domain.Phase{
			{
				ID: "p1", Title: "Design",
				Milestones: []domain.Milestone{
					{
						ID: "m1", Title: "Wireframes", Completed: true,
						Tasks: []domain.Task{
							{ID: "t1", Title: "Sketch flows", Completed: true},
						},
					},
					{
						ID: "m2", Title: "Visual design",
						Tasks: []domain.Task{
							{ID: "t2", Title: "Pick palette"},
							{
								ID: "t3", Title: "Logo", Completed: true,
								SubTasks: []domain.SubTask{
									{ID: "s1", Title: "Pick font", Completed: true},
									{ID: "s2", Title: "Draft mark"},
								},
							},
						},
					},
				},
			},
		},
	}
}

func TestAssembleCompletedWorkExtraction(t *testing.T) {
	ctx := New(config.AssemblerConfig{}).Assemble(domain.UserProfile{}, []domain.Goal{testGoal()}, domain.ScheduleConstraints{}, nil, "all goals")

	if !assert.Len(t, ctx.Goals, 1) {
		return
	}
	gc := ctx.Goals[0]
	assert.Equal(t, []string{"Wireframes"}, gc.CompletedMilestones)
	assert.Equal(t, []string{"Sketch flows", "Logo"}, gc.CompletedTasks)
	assert.Equal(t, []string{"Pick font"}, gc.CompletedSubTasks)
	assert.Equal(t, []string{"Pick palette"}, gc.PendingTasks)
	assert.Equal(t, "Design", gc.CurrentPhase)
	assert.Equal(t, []string{"Visual design"}, gc.ActiveMilestones)
}

// A goal with nothing completed yet must expose empty lists, not nulls, so
// the serialized context always shows the four categories.
func TestAssembleZeroCompletedStaysEmpty(t *testing.T) {
	g := domain.Goal{ID: "g1", Title: "Fresh", Status: domain.GoalStatusActive, Phases: []domain.Phase{
		{ID: "p1", Title: "Start", Milestones: []domain.Milestone{
			{ID: "m1", Title: "First", Tasks: []domain.Task{{ID: "t1", Title: "Begin"}}},
		}},
	}}
	ctx := New(config.AssemblerConfig{}).Assemble(domain.UserProfile{}, []domain.Goal{g}, domain.ScheduleConstraints{}, nil, "")

	gc := ctx.Goals[0]
	assert.NotNil(t, gc.CompletedMilestones)
	assert.Empty(t, gc.CompletedMilestones)
	assert.NotNil(t, gc.CompletedTasks)
	assert.Empty(t, gc.CompletedTasks)
	assert.NotNil(t, gc.CompletedSubTasks)
	assert.Empty(t, gc.CompletedSubTasks)
	assert.Equal(t, []string{"Begin"}, gc.PendingTasks)
	assert.Equal(t, 0, gc.Progress)
}

func TestAssembleTreeCarriesIDs(t *testing.T) {
	ctx := New(config.AssemblerConfig{}).Assemble(domain.UserProfile{}, []domain.Goal{testGoal()}, domain.ScheduleConstraints{}, nil, "")

	tree := ctx.Goals[0].Tree
	if !assert.Len(t, tree, 1) {
		return
	}
	assert.Equal(t, "p1", tree[0].ID)
	assert.Equal(t, "phase", tree[0].Kind)
	assert.Equal(t, "m1", tree[0].Children[0].ID)
	assert.Equal(t, "t3", tree[0].Children[1].Children[1].ID)
	assert.Equal(t, "s2", tree[0].Children[1].Children[1].Children[1].ID)
}

func TestUpcomingEventsWindowAndOrder(t *testing.T) {
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	a := New(config.AssemblerConfig{UpcomingEventsLimit: 2, UpcomingWindowDays: 7}).
		WithClock(func() time.Time { return now })

	events := []domain.CalendarEvent{
		{ID: "e-past", Title: "Yesterday", Start: now.AddDate(0, 0, -1)},
		{ID: "e-far", Title: "Next month", Start: now.AddDate(0, 1, 0)},
		{ID: "e-b", Title: "Wednesday", Start: now.AddDate(0, 0, 2)},
		{ID: "e-a", Title: "Tomorrow", Start: now.AddDate(0, 0, 1)},
		{ID: "e-c", Title: "Friday", Start: now.AddDate(0, 0, 4)},
	}

	ctx := a.Assemble(domain.UserProfile{}, nil, domain.ScheduleConstraints{}, events, "")
	if !assert.Len(t, ctx.UpcomingEvents, 2) {
		return
	}
	assert.Equal(t, "e-a", ctx.UpcomingEvents[0].ID)
	assert.Equal(t, "e-b", ctx.UpcomingEvents[1].ID)
}

// The rendered date of an event must come from its own timezone, whatever
// zone the process runs in.
func TestUpcomingEventDateIsTimezoneStable(t *testing.T) {
	now := time.Date(2026, 1, 19, 12, 0, 0, 0, time.UTC)
	a := New(config.AssemblerConfig{}).WithClock(func() time.Time { return now })

	events := []domain.CalendarEvent{{
		ID:       "e1",
		Title:    "Late session",
		Start:    time.Date(2026, 1, 20, 23, 30, 0, 0, time.UTC), // 00:30 Jan 21 in Amsterdam
		End:      time.Date(2026, 1, 21, 0, 30, 0, 0, time.UTC),
		Timezone: "Europe/Amsterdam",
	}}

	ctx := a.Assemble(domain.UserProfile{}, nil, domain.ScheduleConstraints{}, events, "")
	if !assert.Len(t, ctx.UpcomingEvents, 1) {
		return
	}
	assert.Equal(t, "2026-01-21", ctx.UpcomingEvents[0].Date)
	assert.Equal(t, "00:30", ctx.UpcomingEvents[0].Start)
}

func TestRenderMentionsHintDisclaimer(t *testing.T) {
	ctx := New(config.AssemblerConfig{}).Assemble(domain.UserProfile{Role: "engineer"}, []domain.Goal{testGoal()}, domain.ScheduleConstraints{}, nil, "all goals")
	rendered := ctx.Render()

	assert.True(t, strings.HasPrefix(rendered, "CURRENT STATE"))
	assert.Contains(t, rendered, "ids are authoritative")
	assert.Contains(t, rendered, "Ship the app")
	assert.Contains(t, rendered, "t2") // pending task id present for addressing
}

func TestRenderConstraints(t *testing.T) {
	cons := domain.ScheduleConstraints{
		SleepStart: "23:00",
		SleepEnd:   "07:00",
		RecurringBlocks: []domain.RecurringBlock{{
			Label: "Work",
			Kind:  "work",
			Days:  []time.Weekday{time.Monday, time.Tuesday},
			Start: "09:00",
			End:   "17:00",
		}},
		Exceptions: []domain.DateException{{Date: "2026-03-06", Label: "Day off", Available: true}},
	}

	ctx := New(config.AssemblerConfig{}).Assemble(domain.UserProfile{}, nil, cons, nil, "")
	joined := strings.Join(ctx.Constraints, "\n")
	assert.Contains(t, joined, "23:00")
	assert.Contains(t, joined, "Mon")
	assert.Contains(t, joined, "2026-03-06")
}
