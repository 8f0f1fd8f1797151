package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/natefinch/atomic"
	"github.com/oklog/ulid/v2"

	"github.com/ascendhq/ascend/internal/config"
	"github.com/ascendhq/ascend/internal/domain"
	ascendErrors "github.com/ascendhq/ascend/internal/errors"
)

// planFile is the serialized form of plan.json.
type planFile struct {
	Profile     domain.UserProfile         `json:"profile"`
	Constraints domain.ScheduleConstraints `json:"constraints"`
	Goals       []domain.Goal              `json:"goals"`
}

// FileStore is the workspace-backed store of record. All mutations are
// serialized by one mutex and flushed atomically before returning, so a
// refresh after any mutation observes the committed state.
type FileStore struct {
	mu     sync.Mutex
	paths  Paths
	lock   *WorkspaceLock
	plan   planFile
	events []domain.CalendarEvent
}

func Open(cfg config.StoreConfig) (*FileStore, error) {
	paths, err := ResolvePaths(cfg)
	if err != nil {
		return nil, err
	}
	if err := paths.EnsureLayout(); err != nil {
		return nil, err
	}

	lockTimeout, _ := config.DurationOrDefault(cfg.LockTimeout, config.DefaultStoreLockTimeout)
	lockRetry, _ := config.DurationOrDefault(cfg.LockRetry, config.DefaultStoreLockRetry)
	lock, err := AcquireWorkspaceLock(paths.WorkspaceID, paths.LockFile, LockOptions{
		Timeout: lockTimeout,
		Retry:   lockRetry,
	})
	if err != nil {
		return nil, err
	}

	s := &FileStore{paths: paths, lock: lock}
	if err := s.load(); err != nil {
		lock.Release()
		return nil, err
	}

	if len(s.plan.Goals) == 0 && cfg.SeedPath != "" {
		if err := s.applySeed(cfg.SeedPath); err != nil {
			slog.Warn("Seed file not applied", "path", cfg.SeedPath, "error", err)
		}
	}

	slog.Info("Workspace opened",
		"workspace", paths.WorkspaceID,
		"goals", len(s.plan.Goals),
		"events", len(s.events),
	)
	return s, nil
}

func (s *FileStore) Close() {
	if s.lock != nil {
		s.lock.Release()
	}
}

func (s *FileStore) load() error {
	if err := readJSON(s.paths.PlanFile, &s.plan); err != nil {
		return fmt.Errorf("load plan: %w", err)
	}
	if err := readJSON(s.paths.EventsFile, &s.events); err != nil {
		return fmt.Errorf("load events: %w", err)
	}
	return nil
}

func readJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

// savePlan and saveEvents are called with the mutex held.
func (s *FileStore) savePlan() error {
	data, err := json.MarshalIndent(s.plan, "", "  ")
	if err != nil {
		return err
	}
	return atomic.WriteFile(s.paths.PlanFile, bytes.NewReader(data))
}

func (s *FileStore) saveEvents() error {
	data, err := json.MarshalIndent(s.events, "", "  ")
	if err != nil {
		return err
	}
	return atomic.WriteFile(s.paths.EventsFile, bytes.NewReader(data))
}

func newID() string {
	return ulid.Make().String()
}

// Profile returns the stored user profile.
func (s *FileStore) Profile() domain.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plan.Profile
}

// Constraints returns the stored schedule constraints.
func (s *FileStore) Constraints() domain.ScheduleConstraints {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.plan.Constraints
}

func (s *FileStore) UpdateProfile(p domain.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plan.Profile = p
	return s.savePlan()
}

func (s *FileStore) UpdateConstraints(c domain.ScheduleConstraints) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plan.Constraints = c
	return s.savePlan()
}

// --- goals ---

func (s *FileStore) CreateGoal(_ context.Context, g domain.Goal) (domain.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	g.ID = newID()
	g.CreatedAt = now
	g.UpdatedAt = now
	if g.Status == "" {
		g.Status = domain.GoalStatusActive
	}
	if g.Risk == "" {
		g.Risk = domain.RiskOnTrack
	}
	assignTreeIDs(&g)

	s.plan.Goals = append(s.plan.Goals, g)
	if err := s.savePlan(); err != nil {
		return domain.Goal{}, err
	}
	return g, nil
}

// assignTreeIDs gives fresh ids to every node of a goal tree and repairs the
// parent references, so a composite create never trusts model-supplied ids.
func assignTreeIDs(g *domain.Goal) {
	for i := range g.Phases {
		p := &g.Phases[i]
		p.ID = newID()
		p.GoalID = g.ID
		for j := range p.Milestones {
			m := &p.Milestones[j]
			m.ID = newID()
			m.PhaseID = p.ID
			for k := range m.Tasks {
				t := &m.Tasks[k]
				t.ID = newID()
				t.MilestoneID = m.ID
				for l := range t.SubTasks {
					t.SubTasks[l].ID = newID()
					t.SubTasks[l].TaskID = t.ID
				}
			}
		}
	}
}

func (s *FileStore) UpdateGoal(_ context.Context, g domain.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.findGoal(g.ID)
	if existing == nil {
		return ascendErrors.NotFound("goal not found: " + g.ID)
	}
	g.Phases = existing.Phases
	g.CreatedAt = existing.CreatedAt
	g.UpdatedAt = time.Now().UTC()
	*existing = g
	return s.savePlan()
}

func (s *FileStore) DeleteGoal(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.plan.Goals {
		if s.plan.Goals[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ascendErrors.NotFound("goal not found: " + id)
	}

	// An event links to exactly one of goal/phase/milestone, so the cascade
	// has to match ids at every level under the goal.
	linked := map[string]bool{id: true}
	for _, p := range s.plan.Goals[idx].Phases {
		linked[p.ID] = true
		for _, m := range p.Milestones {
			linked[m.ID] = true
		}
	}

	s.plan.Goals = append(s.plan.Goals[:idx], s.plan.Goals[idx+1:]...)
	if err := s.savePlan(); err != nil {
		return err
	}
	return s.dropEventsLocked(func(e domain.CalendarEvent) bool {
		return linked[e.GoalID] || linked[e.PhaseID] || linked[e.MilestoneID]
	})
}

// --- phases ---

func (s *FileStore) CreatePhase(_ context.Context, goalID string, p domain.Phase) (domain.Phase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.findGoal(goalID)
	if g == nil {
		return domain.Phase{}, ascendErrors.NotFound("goal not found: " + goalID)
	}
	p.ID = newID()
	p.GoalID = g.ID
	for i := range p.Milestones {
		m := &p.Milestones[i]
		m.ID = newID()
		m.PhaseID = p.ID
	}
	g.Phases = append(g.Phases, p)
	s.touch(g)
	if err := s.savePlan(); err != nil {
		return domain.Phase{}, err
	}
	return p, nil
}

func (s *FileStore) UpdatePhase(_ context.Context, p domain.Phase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, g := s.findPhase(p.ID)
	if existing == nil {
		return ascendErrors.NotFound("phase not found: " + p.ID)
	}
	p.GoalID = existing.GoalID
	p.Milestones = existing.Milestones
	*existing = p
	s.touch(g)
	return s.savePlan()
}

func (s *FileStore) DeletePhase(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for gi := range s.plan.Goals {
		g := &s.plan.Goals[gi]
		for pi := range g.Phases {
			if g.Phases[pi].ID != id {
				continue
			}
			linked := map[string]bool{id: true}
			for _, m := range g.Phases[pi].Milestones {
				linked[m.ID] = true
			}
			g.Phases = append(g.Phases[:pi], g.Phases[pi+1:]...)
			s.touch(g)
			if err := s.savePlan(); err != nil {
				return err
			}
			return s.dropEventsLocked(func(e domain.CalendarEvent) bool {
				return linked[e.PhaseID] || linked[e.MilestoneID]
			})
		}
	}
	return ascendErrors.NotFound("phase not found: " + id)
}

// --- milestones ---

func (s *FileStore) CreateMilestone(_ context.Context, phaseID string, m domain.Milestone) (domain.Milestone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, g := s.findPhase(phaseID)
	if p == nil {
		return domain.Milestone{}, ascendErrors.NotFound("phase not found: " + phaseID)
	}
	m.ID = newID()
	m.PhaseID = p.ID
	for i := range m.Tasks {
		t := &m.Tasks[i]
		t.ID = newID()
		t.MilestoneID = m.ID
	}
	p.Milestones = append(p.Milestones, m)
	s.touch(g)
	if err := s.savePlan(); err != nil {
		return domain.Milestone{}, err
	}
	return m, nil
}

func (s *FileStore) UpdateMilestone(_ context.Context, m domain.Milestone) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, g := s.findMilestone(m.ID)
	if existing == nil {
		return ascendErrors.NotFound("milestone not found: " + m.ID)
	}
	m.PhaseID = existing.PhaseID
	m.Tasks = existing.Tasks
	*existing = m
	s.touch(g)
	return s.savePlan()
}

func (s *FileStore) ToggleMilestone(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, g := s.findMilestone(id)
	if m == nil {
		return ascendErrors.NotFound("milestone not found: " + id)
	}
	m.Completed = !m.Completed
	s.touch(g)
	return s.savePlan()
}

func (s *FileStore) DeleteMilestone(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for gi := range s.plan.Goals {
		g := &s.plan.Goals[gi]
		for pi := range g.Phases {
			p := &g.Phases[pi]
			for mi := range p.Milestones {
				if p.Milestones[mi].ID != id {
					continue
				}
				p.Milestones = append(p.Milestones[:mi], p.Milestones[mi+1:]...)
				s.touch(g)
				if err := s.savePlan(); err != nil {
					return err
				}
				return s.dropEventsLocked(func(e domain.CalendarEvent) bool { return e.MilestoneID == id })
			}
		}
	}
	return ascendErrors.NotFound("milestone not found: " + id)
}

func (s *FileStore) MoveMilestone(_ context.Context, milestoneID, targetPhaseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, tg := s.findPhase(targetPhaseID)
	if target == nil {
		return ascendErrors.NotFound("phase not found: " + targetPhaseID)
	}

	for gi := range s.plan.Goals {
		g := &s.plan.Goals[gi]
		for pi := range g.Phases {
			p := &g.Phases[pi]
			for mi := range p.Milestones {
				if p.Milestones[mi].ID != milestoneID {
					continue
				}
				m := p.Milestones[mi]
				p.Milestones = append(p.Milestones[:mi], p.Milestones[mi+1:]...)
				m.PhaseID = target.ID
				target.Milestones = append(target.Milestones, m)
				s.touch(g)
				if tg != g {
					s.touch(tg)
				}
				return s.savePlan()
			}
		}
	}
	return ascendErrors.NotFound("milestone not found: " + milestoneID)
}

// --- tasks ---

func (s *FileStore) CreateTask(_ context.Context, milestoneID string, t domain.Task) (domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, g := s.findMilestone(milestoneID)
	if m == nil {
		return domain.Task{}, ascendErrors.NotFound("milestone not found: " + milestoneID)
	}
	t.ID = newID()
	t.MilestoneID = m.ID
	for i := range t.SubTasks {
		t.SubTasks[i].ID = newID()
		t.SubTasks[i].TaskID = t.ID
	}
	m.Tasks = append(m.Tasks, t)
	s.touch(g)
	if err := s.savePlan(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

func (s *FileStore) UpdateTask(_ context.Context, t domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, g := s.findTask(t.ID)
	if existing == nil {
		return ascendErrors.NotFound("task not found: " + t.ID)
	}
	t.MilestoneID = existing.MilestoneID
	t.SubTasks = existing.SubTasks
	*existing = t
	s.touch(g)
	return s.savePlan()
}

func (s *FileStore) ToggleTask(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, g := s.findTask(id)
	if t == nil {
		return ascendErrors.NotFound("task not found: " + id)
	}
	t.Completed = !t.Completed
	s.touch(g)
	return s.savePlan()
}

func (s *FileStore) DeleteTask(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for gi := range s.plan.Goals {
		g := &s.plan.Goals[gi]
		for pi := range g.Phases {
			p := &g.Phases[pi]
			for mi := range p.Milestones {
				m := &p.Milestones[mi]
				for ti := range m.Tasks {
					if m.Tasks[ti].ID != id {
						continue
					}
					m.Tasks = append(m.Tasks[:ti], m.Tasks[ti+1:]...)
					s.touch(g)
					return s.savePlan()
				}
			}
		}
	}
	return ascendErrors.NotFound("task not found: " + id)
}

func (s *FileStore) MoveTask(_ context.Context, taskID, targetMilestoneID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, tg := s.findMilestone(targetMilestoneID)
	if target == nil {
		return ascendErrors.NotFound("milestone not found: " + targetMilestoneID)
	}

	for gi := range s.plan.Goals {
		g := &s.plan.Goals[gi]
		for pi := range g.Phases {
			p := &g.Phases[pi]
			for mi := range p.Milestones {
				m := &p.Milestones[mi]
				for ti := range m.Tasks {
					if m.Tasks[ti].ID != taskID {
						continue
					}
					t := m.Tasks[ti]
					m.Tasks = append(m.Tasks[:ti], m.Tasks[ti+1:]...)
					t.MilestoneID = target.ID
					target.Tasks = append(target.Tasks, t)
					s.touch(g)
					if tg != g {
						s.touch(tg)
					}
					return s.savePlan()
				}
			}
		}
	}
	return ascendErrors.NotFound("task not found: " + taskID)
}

// --- subtasks ---

func (s *FileStore) CreateSubTask(_ context.Context, taskID string, st domain.SubTask) (domain.SubTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, g := s.findTask(taskID)
	if t == nil {
		return domain.SubTask{}, ascendErrors.NotFound("task not found: " + taskID)
	}
	st.ID = newID()
	st.TaskID = t.ID
	t.SubTasks = append(t.SubTasks, st)
	s.touch(g)
	if err := s.savePlan(); err != nil {
		return domain.SubTask{}, err
	}
	return st, nil
}

func (s *FileStore) UpdateSubTask(_ context.Context, st domain.SubTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, g := s.findSubTask(st.ID)
	if existing == nil {
		return ascendErrors.NotFound("subtask not found: " + st.ID)
	}
	st.TaskID = existing.TaskID
	*existing = st
	s.touch(g)
	return s.savePlan()
}

func (s *FileStore) ToggleSubTask(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, g := s.findSubTask(id)
	if st == nil {
		return ascendErrors.NotFound("subtask not found: " + id)
	}
	st.Completed = !st.Completed
	s.touch(g)
	return s.savePlan()
}

func (s *FileStore) DeleteSubTask(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for gi := range s.plan.Goals {
		g := &s.plan.Goals[gi]
		for pi := range g.Phases {
			p := &g.Phases[pi]
			for mi := range p.Milestones {
				m := &p.Milestones[mi]
				for ti := range m.Tasks {
					t := &m.Tasks[ti]
					for si := range t.SubTasks {
						if t.SubTasks[si].ID != id {
							continue
						}
						t.SubTasks = append(t.SubTasks[:si], t.SubTasks[si+1:]...)
						s.touch(g)
						return s.savePlan()
					}
				}
			}
		}
	}
	return ascendErrors.NotFound("subtask not found: " + id)
}

// --- events ---

func (s *FileStore) CreateEvent(_ context.Context, e domain.CalendarEvent) (domain.CalendarEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = newID()
	s.events = append(s.events, e)
	if err := s.saveEvents(); err != nil {
		return domain.CalendarEvent{}, err
	}
	return e, nil
}

func (s *FileStore) UpdateEvent(_ context.Context, e domain.CalendarEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.events {
		if s.events[i].ID == e.ID {
			s.events[i] = e
			return s.saveEvents()
		}
	}
	return ascendErrors.NotFound("event not found: " + e.ID)
}

func (s *FileStore) DeleteEvent(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.events {
		if s.events[i].ID == id {
			s.events = append(s.events[:i], s.events[i+1:]...)
			return s.saveEvents()
		}
	}
	return ascendErrors.NotFound("event not found: " + id)
}

// dropEventsLocked removes events orphaned by an entity deletion.
func (s *FileStore) dropEventsLocked(match func(domain.CalendarEvent) bool) error {
	kept := s.events[:0]
	dropped := 0
	for _, e := range s.events {
		if match(e) {
			dropped++
			continue
		}
		kept = append(kept, e)
	}
	if dropped == 0 {
		return nil
	}
	s.events = kept
	return s.saveEvents()
}

// --- refresh ---

func (s *FileStore) RefreshGoals(_ context.Context) ([]domain.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneGoals(s.plan.Goals), nil
}

func (s *FileStore) RefreshEvents(_ context.Context) ([]domain.CalendarEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CalendarEvent, len(s.events))
	copy(out, s.events)
	return out, nil
}

// cloneGoals deep-copies the goal trees so callers never alias store memory.
func cloneGoals(goals []domain.Goal) []domain.Goal {
	out := make([]domain.Goal, len(goals))
	for i, g := range goals {
		g.Notes = append([]string(nil), g.Notes...)
		g.Phases = make([]domain.Phase, len(goals[i].Phases))
		for pi, p := range goals[i].Phases {
			p.Milestones = make([]domain.Milestone, len(goals[i].Phases[pi].Milestones))
			for mi, m := range goals[i].Phases[pi].Milestones {
				m.Tasks = make([]domain.Task, len(goals[i].Phases[pi].Milestones[mi].Tasks))
				for ti, t := range goals[i].Phases[pi].Milestones[mi].Tasks {
					t.SubTasks = append([]domain.SubTask(nil), t.SubTasks...)
					m.Tasks[ti] = t
				}
				p.Milestones[mi] = m
			}
			g.Phases[pi] = p
		}
		out[i] = g
	}
	return out
}

// --- tree lookup helpers, mutex held ---

func (s *FileStore) findGoal(id string) *domain.Goal {
	for i := range s.plan.Goals {
		if s.plan.Goals[i].ID == id {
			return &s.plan.Goals[i]
		}
	}
	return nil
}

func (s *FileStore) findPhase(id string) (*domain.Phase, *domain.Goal) {
	for gi := range s.plan.Goals {
		g := &s.plan.Goals[gi]
		for pi := range g.Phases {
			if g.Phases[pi].ID == id {
				return &g.Phases[pi], g
			}
		}
	}
	return nil, nil
}

func (s *FileStore) findMilestone(id string) (*domain.Milestone, *domain.Goal) {
	for gi := range s.plan.Goals {
		g := &s.plan.Goals[gi]
		for pi := range g.Phases {
			p := &g.Phases[pi]
			for mi := range p.Milestones {
				if p.Milestones[mi].ID == id {
					return &p.Milestones[mi], g
				}
			}
		}
	}
	return nil, nil
}

func (s *FileStore) findTask(id string) (*domain.Task, *domain.Goal) {
	for gi := range s.plan.Goals {
		g := &s.plan.Goals[gi]
		for pi := range g.Phases {
			p := &g.Phases[pi]
			for mi := range p.Milestones {
				m := &p.Milestones[mi]
				for ti := range m.Tasks {
					if m.Tasks[ti].ID == id {
						return &m.Tasks[ti], g
					}
				}
			}
		}
	}
	return nil, nil
}

func (s *FileStore) findSubTask(id string) (*domain.SubTask, *domain.Goal) {
	for gi := range s.plan.Goals {
		g := &s.plan.Goals[gi]
		for pi := range g.Phases {
			p := &g.Phases[pi]
			for mi := range p.Milestones {
				m := &p.Milestones[mi]
				for ti := range m.Tasks {
					t := &m.Tasks[ti]
					for si := range t.SubTasks {
						if t.SubTasks[si].ID == id {
							return &t.SubTasks[si], g
						}
					}
				}
			}
		}
	}
	return nil, nil
}

func (s *FileStore) touch(g *domain.Goal) {
	if g != nil {
		g.UpdatedAt = time.Now().UTC()
	}
}
