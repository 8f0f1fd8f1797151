package domain

import "sync"

// Snapshot is the read-mostly in-memory view of the plan graph. It is replaced
// wholesale after mutations rather than patched incrementally; id indexes are
// rebuilt on every Replace so lookups stay map hits instead of tree walks.
type Snapshot struct {
	mu     sync.RWMutex
	goals  []Goal
	events []CalendarEvent

	goalsByID      map[string]Goal
	phasesByID     map[string]Phase
	milestonesByID map[string]Milestone
	tasksByID      map[string]Task
	subtasksByID   map[string]SubTask
	eventsByID     map[string]CalendarEvent
}

func NewSnapshot() *Snapshot {
	s := &Snapshot{}
	s.Replace(nil, nil)
	return s
}

// Replace swaps the whole graph and rebuilds the indexes.
func (s *Snapshot) Replace(goals []Goal, events []CalendarEvent) {
	goalsByID := make(map[string]Goal, len(goals))
	phasesByID := make(map[string]Phase)
	milestonesByID := make(map[string]Milestone)
	tasksByID := make(map[string]Task)
	subtasksByID := make(map[string]SubTask)
	eventsByID := make(map[string]CalendarEvent, len(events))

	for _, g := range goals {
		goalsByID[g.ID] = g
		for _, p := range g.Phases {
			phasesByID[p.ID] = p
			for _, m := range p.Milestones {
				milestonesByID[m.ID] = m
				for _, t := range m.Tasks {
					tasksByID[t.ID] = t
					for _, st := range t.SubTasks {
						subtasksByID[st.ID] = st
					}
				}
			}
		}
	}
	for _, e := range events {
		eventsByID[e.ID] = e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals = goals
	s.events = events
	s.goalsByID = goalsByID
	s.phasesByID = phasesByID
	s.milestonesByID = milestonesByID
	s.tasksByID = tasksByID
	s.subtasksByID = subtasksByID
	s.eventsByID = eventsByID
}

func (s *Snapshot) Goals() []Goal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Goal(nil), s.goals...)
}

func (s *Snapshot) Events() []CalendarEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]CalendarEvent(nil), s.events...)
}

func (s *Snapshot) Goal(id string) (Goal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.goalsByID[id]
	return g, ok
}

func (s *Snapshot) Phase(id string) (Phase, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.phasesByID[id]
	return p, ok
}

func (s *Snapshot) Milestone(id string) (Milestone, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.milestonesByID[id]
	return m, ok
}

func (s *Snapshot) Task(id string) (Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasksByID[id]
	return t, ok
}

func (s *Snapshot) SubTask(id string) (SubTask, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.subtasksByID[id]
	return st, ok
}

func (s *Snapshot) Event(id string) (CalendarEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.eventsByID[id]
	return e, ok
}

// GoalByTitle does a case-sensitive title match. Only used as a courtesy for
// payloads that arrive without an id; id lookups are always preferred.
func (s *Snapshot) GoalByTitle(title string) (Goal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.goals {
		if g.Title == title {
			return g, true
		}
	}
	return Goal{}, false
}

func (s *Snapshot) HasGoals() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.goals) > 0
}
