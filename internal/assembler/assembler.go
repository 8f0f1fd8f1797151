// Package assembler builds the bounded, model-readable snapshot of
// application state that accompanies every reasoning request. Output is
// deterministic for identical inputs and safe to serialize verbatim into a
// prompt.
package assembler

import (
	"sort"
	"time"

	"github.com/ascendhq/ascend/internal/config"
	"github.com/ascendhq/ascend/internal/domain"
)

type Assembler struct {
	upcomingLimit int
	windowDays    int
	now           func() time.Time
}

func New(cfg config.AssemblerConfig) *Assembler {
	limit := cfg.UpcomingEventsLimit
	if limit <= 0 {
		limit = config.DefaultAssemblerUpcomingEventsLimit
	}
	days := cfg.UpcomingWindowDays
	if days <= 0 {
		days = config.DefaultAssemblerUpcomingWindowDays
	}
	return &Assembler{
		upcomingLimit: limit,
		windowDays:    days,
		now:           time.Now,
	}
}

// WithClock overrides the time source. Tests use this to pin the upcoming
// window.
func (a *Assembler) WithClock(now func() time.Time) *Assembler {
	a.now = now
	return a
}

// Context is the assembled snapshot. It is a hint for the reasoning service,
// not authoritative state; the executor re-validates every id against the
// live snapshot before mutating.
type Context struct {
	ViewLabel      string         `json:"view_label,omitempty"`
	Profile        ProfileSummary `json:"profile"`
	Constraints    []string       `json:"constraints,omitempty"`
	Goals          []GoalContext  `json:"goals"`
	UpcomingEvents []EventSummary `json:"upcoming_events,omitempty"`
}

type ProfileSummary struct {
	Role        string `json:"role,omitempty"`
	Bio         string `json:"bio,omitempty"`
	Chronotype  string `json:"chronotype,omitempty"`
	EnergyLevel string `json:"energy_level,omitempty"`
}

type GoalContext struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Progress         int      `json:"progress"`
	Status           string   `json:"status"`
	Risk             string   `json:"risk"`
	TargetDate       string   `json:"target_date,omitempty"`
	CurrentPhase     string   `json:"current_phase,omitempty"`
	ActiveMilestones []string `json:"active_milestones,omitempty"`

	// Completed-work extraction: the reasoning service must never re-suggest
	// finished work.
	CompletedMilestones []string `json:"completed_milestones"`
	CompletedTasks      []string `json:"completed_tasks"`
	CompletedSubTasks   []string `json:"completed_subtasks"`
	PendingTasks        []string `json:"pending_tasks"`
	Notes               []string `json:"notes,omitempty"`

	Tree []Node `json:"tree"`
}

// Node is one entry of the full id-bearing tree, so the reasoning service can
// address any level of the hierarchy by id.
type Node struct {
	Kind      string `json:"kind"` // "phase", "milestone", "task", "subtask"
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	Children  []Node `json:"children,omitempty"`
}

type EventSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Date  string `json:"date"` // local calendar date of the event's own timezone
	Start string `json:"start"`
	End   string `json:"end"`
}

func (a *Assembler) Assemble(
	profile domain.UserProfile,
	goals []domain.Goal,
	constraints domain.ScheduleConstraints,
	events []domain.CalendarEvent,
	viewLabel string,
) *Context {
	out := &Context{
		ViewLabel: viewLabel,
		Profile: ProfileSummary{
			Role:        profile.Role,
			Bio:         profile.Bio,
			Chronotype:  profile.Chronotype,
			EnergyLevel: profile.EnergyLevel,
		},
		Constraints:    renderConstraints(constraints),
		Goals:          make([]GoalContext, 0, len(goals)),
		UpcomingEvents: a.upcomingEvents(events),
	}

	for _, g := range goals {
		out.Goals = append(out.Goals, assembleGoal(g))
	}
	return out
}

func assembleGoal(g domain.Goal) GoalContext {
	gc := GoalContext{
		ID:                  g.ID,
		Title:               g.Title,
		Progress:            g.Progress(),
		Status:              string(g.Status),
		Risk:                string(g.Risk),
		TargetDate:          g.TargetDate,
		Notes:               g.Notes,
		CompletedMilestones: []string{},
		CompletedTasks:      []string{},
		CompletedSubTasks:   []string{},
		PendingTasks:        []string{},
	}

	if current, ok := g.CurrentPhase(); ok {
		gc.CurrentPhase = current.Title
		for _, m := range current.Milestones {
			if !m.Completed {
				gc.ActiveMilestones = append(gc.ActiveMilestones, m.Title)
			}
		}
	}

	for _, p := range g.Phases {
		phaseNode := Node{Kind: "phase", ID: p.ID, Title: p.Title, Completed: p.Completed}
		for _, m := range p.Milestones {
			if m.Completed {
				gc.CompletedMilestones = append(gc.CompletedMilestones, m.Title)
			}
			milestoneNode := Node{Kind: "milestone", ID: m.ID, Title: m.Title, Completed: m.Completed}
			for _, t := range m.Tasks {
				if t.Completed {
					gc.CompletedTasks = append(gc.CompletedTasks, t.Title)
				} else {
					gc.PendingTasks = append(gc.PendingTasks, t.Title)
				}
				taskNode := Node{Kind: "task", ID: t.ID, Title: t.Title, Completed: t.Completed}
				for _, st := range t.SubTasks {
					if st.Completed {
						gc.CompletedSubTasks = append(gc.CompletedSubTasks, st.Title)
					}
					taskNode.Children = append(taskNode.Children, Node{
						Kind: "subtask", ID: st.ID, Title: st.Title, Completed: st.Completed,
					})
				}
				milestoneNode.Children = append(milestoneNode.Children, taskNode)
			}
			phaseNode.Children = append(phaseNode.Children, milestoneNode)
		}
		gc.Tree = append(gc.Tree, phaseNode)
	}

	return gc
}

func (a *Assembler) upcomingEvents(events []domain.CalendarEvent) []EventSummary {
	now := a.now()
	horizon := now.AddDate(0, 0, a.windowDays)

	window := make([]domain.CalendarEvent, 0, len(events))
	for _, e := range events {
		if e.Start.Before(now) || e.Start.After(horizon) {
			continue
		}
		window = append(window, e)
	}

	sort.SliceStable(window, func(i, j int) bool {
		if !window[i].Start.Equal(window[j].Start) {
			return window[i].Start.Before(window[j].Start)
		}
		return window[i].ID < window[j].ID
	})

	if len(window) > a.upcomingLimit {
		window = window[:a.upcomingLimit]
	}

	out := make([]EventSummary, 0, len(window))
	for _, e := range window {
		local := e.LocalStart()
		out = append(out, EventSummary{
			ID:    e.ID,
			Title: e.Title,
			Date:  e.LocalDate(),
			Start: local.Format("15:04"),
			End:   e.End.In(local.Location()).Format("15:04"),
		})
	}
	return out
}
