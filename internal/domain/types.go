package domain

import (
	"strings"
	"time"
)

type GoalStatus string

const (
	GoalStatusNotStarted GoalStatus = "not_started"
	GoalStatusActive     GoalStatus = "active"
	GoalStatusCompleted  GoalStatus = "completed"
	GoalStatusAbandoned  GoalStatus = "abandoned"
)

type RiskLevel string

const (
	RiskOnTrack  RiskLevel = "on_track"
	RiskAtRisk   RiskLevel = "at_risk"
	RiskOffTrack RiskLevel = "off_track"
)

// Goal is the root of the plan hierarchy. Identifiers at every level are
// stable strings assigned at creation and never reused.
type Goal struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      GoalStatus `json:"status"`
	Risk        RiskLevel  `json:"risk"`
	TargetDate  string     `json:"target_date,omitempty"` // YYYY-MM-DD
	Notes       []string   `json:"notes,omitempty"`
	Phases      []Phase    `json:"phases,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type Phase struct {
	ID          string      `json:"id"`
	GoalID      string      `json:"goal_id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	WeekOffset  int         `json:"week_offset,omitempty"`
	Completed   bool        `json:"completed"`
	Milestones  []Milestone `json:"milestones,omitempty"`
}

type Milestone struct {
	ID          string `json:"id"`
	PhaseID     string `json:"phase_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	WeekOffset  int    `json:"week_offset,omitempty"`
	Completed   bool   `json:"completed"`
	Tasks       []Task `json:"tasks,omitempty"`
}

type Task struct {
	ID          string    `json:"id"`
	MilestoneID string    `json:"milestone_id"`
	Title       string    `json:"title"`
	DueDate     string    `json:"due_date,omitempty"` // YYYY-MM-DD
	Completed   bool      `json:"completed"`
	SubTasks    []SubTask `json:"subtasks,omitempty"`
}

type SubTask struct {
	ID        string `json:"id"`
	TaskID    string `json:"task_id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// CalendarEvent is linked to at most one of goal/phase/milestone.
type CalendarEvent struct {
	ID          string    `json:"id"`
	GoalID      string    `json:"goal_id,omitempty"`
	PhaseID     string    `json:"phase_id,omitempty"`
	MilestoneID string    `json:"milestone_id,omitempty"`
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Timezone    string    `json:"timezone,omitempty"` // IANA name, e.g. "Europe/Amsterdam"
}

// LocalDate returns the calendar date of the event in its own timezone.
// The process timezone must never shift an event across a day boundary.
func (e CalendarEvent) LocalDate() string {
	return e.LocalStart().Format("2006-01-02")
}

// LocalStart returns the start instant expressed in the event's own timezone.
func (e CalendarEvent) LocalStart() time.Time {
	if tz := strings.TrimSpace(e.Timezone); tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			return e.Start.In(loc)
		}
	}
	return e.Start
}

type UserProfile struct {
	Role        string `json:"role,omitempty"`
	Bio         string `json:"bio,omitempty"`
	Chronotype  string `json:"chronotype,omitempty"`   // "early_bird", "night_owl"
	EnergyLevel string `json:"energy_level,omitempty"` // "low", "medium", "high"
}

type ScheduleConstraints struct {
	SleepStart      string           `json:"sleep_start,omitempty"` // HH:MM
	SleepEnd        string           `json:"sleep_end,omitempty"`
	RecurringBlocks []RecurringBlock `json:"recurring_blocks,omitempty"`
	Exceptions      []DateException  `json:"exceptions,omitempty"`
}

type RecurringBlock struct {
	Label string         `json:"label"`
	Kind  string         `json:"kind"` // "work", "blocked"
	Days  []time.Weekday `json:"days"`
	Start string         `json:"start"` // HH:MM
	End   string         `json:"end"`
}

type DateException struct {
	Date      string `json:"date"` // YYYY-MM-DD
	Label     string `json:"label,omitempty"`
	Available bool   `json:"available"`
}

// Progress returns the goal's completion percentage, measured over leaf tasks.
func (g Goal) Progress() int {
	total := 0
	done := 0
	for _, p := range g.Phases {
		for _, m := range p.Milestones {
			for _, t := range m.Tasks {
				total++
				if t.Completed {
					done++
				}
			}
		}
	}
	if total == 0 {
		return 0
	}
	return done * 100 / total
}

// CurrentPhase returns the first phase that is not fully completed.
func (g Goal) CurrentPhase() (Phase, bool) {
	for _, p := range g.Phases {
		if !p.Completed {
			return p, true
		}
	}
	return Phase{}, false
}
