package store

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ascendhq/ascend/internal/domain"
	"github.com/ascendhq/ascend/internal/pathutil"
)

// seedFile is the YAML bootstrap format for a fresh workspace: a profile,
// schedule constraints and optional starter goals. It is only consulted when
// the workspace holds no goals yet.
type seedFile struct {
	Profile     domain.UserProfile `yaml:"profile"`
	Constraints seedConstraints    `yaml:"constraints"`
	Goals       []seedGoal         `yaml:"goals"`
}

type seedConstraints struct {
	SleepStart      string          `yaml:"sleep_start"`
	SleepEnd        string          `yaml:"sleep_end"`
	RecurringBlocks []seedBlock     `yaml:"recurring_blocks"`
	Exceptions      []seedException `yaml:"exceptions"`
}

type seedBlock struct {
	Label string   `yaml:"label"`
	Kind  string   `yaml:"kind"`
	Days  []string `yaml:"days"`
	Start string   `yaml:"start"`
	End   string   `yaml:"end"`
}

type seedException struct {
	Date      string `yaml:"date"`
	Label     string `yaml:"label"`
	Available bool   `yaml:"available"`
}

type seedGoal struct {
	Title       string      `yaml:"title"`
	Description string      `yaml:"description"`
	TargetDate  string      `yaml:"target_date"`
	Phases      []seedPhase `yaml:"phases"`
}

type seedPhase struct {
	Title       string          `yaml:"title"`
	Description string          `yaml:"description"`
	WeekOffset  int             `yaml:"week_offset"`
	Milestones  []seedMilestone `yaml:"milestones"`
}

type seedMilestone struct {
	Title       string     `yaml:"title"`
	Description string     `yaml:"description"`
	WeekOffset  int        `yaml:"week_offset"`
	Tasks       []seedTask `yaml:"tasks"`
}

type seedTask struct {
	Title    string   `yaml:"title"`
	DueDate  string   `yaml:"due_date"`
	SubTasks []string `yaml:"subtasks"`
}

var seedWeekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// applySeed is called with the mutex not yet contended (store is still
// opening, no other goroutine holds a reference).
func (s *FileStore) applySeed(path string) error {
	resolved, err := pathutil.Expand(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return err
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	s.plan.Profile = seed.Profile
	s.plan.Constraints = seed.Constraints.toDomain()

	now := time.Now().UTC()
	for _, sg := range seed.Goals {
		g := domain.Goal{
			Title:       sg.Title,
			Description: sg.Description,
			TargetDate:  sg.TargetDate,
			Status:      domain.GoalStatusActive,
			Risk:        domain.RiskOnTrack,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		g.ID = newID()
		for _, sp := range sg.Phases {
			p := domain.Phase{Title: sp.Title, Description: sp.Description, WeekOffset: sp.WeekOffset}
			for _, sm := range sp.Milestones {
				m := domain.Milestone{Title: sm.Title, Description: sm.Description, WeekOffset: sm.WeekOffset}
				for _, st := range sm.Tasks {
					t := domain.Task{Title: st.Title, DueDate: st.DueDate}
					for _, title := range st.SubTasks {
						t.SubTasks = append(t.SubTasks, domain.SubTask{Title: title})
					}
					m.Tasks = append(m.Tasks, t)
				}
				p.Milestones = append(p.Milestones, m)
			}
			g.Phases = append(g.Phases, p)
		}
		assignTreeIDs(&g)
		s.plan.Goals = append(s.plan.Goals, g)
	}

	return s.savePlan()
}

func (c seedConstraints) toDomain() domain.ScheduleConstraints {
	out := domain.ScheduleConstraints{
		SleepStart: c.SleepStart,
		SleepEnd:   c.SleepEnd,
	}
	for _, b := range c.RecurringBlocks {
		block := domain.RecurringBlock{
			Label: b.Label,
			Kind:  b.Kind,
			Start: b.Start,
			End:   b.End,
		}
		for _, name := range b.Days {
			if day, ok := seedWeekdays[strings.ToLower(strings.TrimSpace(name))]; ok {
				block.Days = append(block.Days, day)
			}
		}
		out.RecurringBlocks = append(out.RecurringBlocks, block)
	}
	for _, e := range c.Exceptions {
		out.Exceptions = append(out.Exceptions, domain.DateException{
			Date:      e.Date,
			Label:     e.Label,
			Available: e.Available,
		})
	}
	return out
}
