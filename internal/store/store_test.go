package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ascendhq/ascend/internal/config"
	"github.com/ascendhq/ascend/internal/domain"
	ascendErrors "github.com/ascendhq/ascend/internal/errors"
)

func openTestStore(t *testing.T, base string) *FileStore {
	t.Helper()
	s, err := Open(config.StoreConfig{
		WorkspaceID:   "test",
		WorkspacePath: base,
	})
	require.NoError(t, err)
	return s
}

func seedGoalTree(t *testing.T, s *FileStore) domain.Goal {
	t.Helper()
	created, err := s.CreateGoal(context.Background(), domain.Goal{
		Title: "Learn Dutch",
		Phases: []domain.Phase{{
			Title: "Basics",
			Milestones: []domain.Milestone{{
				Title: "Alphabet",
				Tasks: []domain.Task{{
					Title:    "Vowels",
					SubTasks: []domain.SubTask{{Title: "Long vowels"}},
				}},
			}},
		}},
	})
	require.NoError(t, err)
	return created
}

func TestCreateGoalAssignsTreeIDs(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	defer s.Close()

	g := seedGoalTree(t, s)
	assert.NotEmpty(t, g.ID)
	assert.Equal(t, domain.GoalStatusActive, g.Status)
	assert.Equal(t, domain.RiskOnTrack, g.Risk)

	require.Len(t, g.Phases, 1)
	p := g.Phases[0]
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, g.ID, p.GoalID)

	m := p.Milestones[0]
	assert.Equal(t, p.ID, m.PhaseID)
	task := m.Tasks[0]
	assert.Equal(t, m.ID, task.MilestoneID)
	assert.Equal(t, task.ID, task.SubTasks[0].TaskID)
}

func TestPlanSurvivesReopen(t *testing.T) {
	base := t.TempDir()

	s := openTestStore(t, base)
	g := seedGoalTree(t, s)
	s.Close()

	s = openTestStore(t, base)
	defer s.Close()

	goals, err := s.RefreshGoals(context.Background())
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, g.ID, goals[0].ID)
	assert.Equal(t, "Long vowels", goals[0].Phases[0].Milestones[0].Tasks[0].SubTasks[0].Title)
}

func TestToggleTaskBothDirections(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	defer s.Close()
	ctx := context.Background()

	g := seedGoalTree(t, s)
	taskID := g.Phases[0].Milestones[0].Tasks[0].ID

	require.NoError(t, s.ToggleTask(ctx, taskID))
	goals, _ := s.RefreshGoals(ctx)
	assert.True(t, goals[0].Phases[0].Milestones[0].Tasks[0].Completed)

	require.NoError(t, s.ToggleTask(ctx, taskID))
	goals, _ = s.RefreshGoals(ctx)
	assert.False(t, goals[0].Phases[0].Milestones[0].Tasks[0].Completed)
}

func TestDeleteGoalDropsLinkedEvents(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	defer s.Close()
	ctx := context.Background()

	g := seedGoalTree(t, s)
	start := time.Now().Add(24 * time.Hour)
	_, err := s.CreateEvent(ctx, domain.CalendarEvent{GoalID: g.ID, Title: "Study", Start: start, End: start.Add(time.Hour)})
	require.NoError(t, err)
	_, err = s.CreateEvent(ctx, domain.CalendarEvent{Title: "Unrelated", Start: start, End: start.Add(time.Hour)})
	require.NoError(t, err)

	require.NoError(t, s.DeleteGoal(ctx, g.ID))

	events, err := s.RefreshEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Unrelated", events[0].Title)
}

func TestDeleteGoalDropsPhaseAndMilestoneEvents(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	defer s.Close()
	ctx := context.Background()

	g := seedGoalTree(t, s)
	phaseID := g.Phases[0].ID
	milestoneID := g.Phases[0].Milestones[0].ID
	start := time.Now().Add(24 * time.Hour)

	_, err := s.CreateEvent(ctx, domain.CalendarEvent{PhaseID: phaseID, Title: "Phase review", Start: start, End: start.Add(time.Hour)})
	require.NoError(t, err)
	_, err = s.CreateEvent(ctx, domain.CalendarEvent{MilestoneID: milestoneID, Title: "Milestone deadline", Start: start, End: start.Add(time.Hour)})
	require.NoError(t, err)
	_, err = s.CreateEvent(ctx, domain.CalendarEvent{Title: "Dentist", Start: start, End: start.Add(time.Hour)})
	require.NoError(t, err)

	require.NoError(t, s.DeleteGoal(ctx, g.ID))

	events, err := s.RefreshEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Dentist", events[0].Title)
}

func TestDeletePhaseDropsMilestoneEvents(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	defer s.Close()
	ctx := context.Background()

	g := seedGoalTree(t, s)
	milestoneID := g.Phases[0].Milestones[0].ID
	start := time.Now().Add(24 * time.Hour)

	_, err := s.CreateEvent(ctx, domain.CalendarEvent{MilestoneID: milestoneID, Title: "Milestone deadline", Start: start, End: start.Add(time.Hour)})
	require.NoError(t, err)
	_, err = s.CreateEvent(ctx, domain.CalendarEvent{GoalID: g.ID, Title: "Goal check-in", Start: start, End: start.Add(time.Hour)})
	require.NoError(t, err)

	require.NoError(t, s.DeletePhase(ctx, g.Phases[0].ID))

	events, err := s.RefreshEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Goal check-in", events[0].Title)
}

func TestDeleteMilestoneDropsItsEvents(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	defer s.Close()
	ctx := context.Background()

	g := seedGoalTree(t, s)
	m := g.Phases[0].Milestones[0]
	start := time.Now().Add(time.Hour)
	_, err := s.CreateEvent(ctx, domain.CalendarEvent{MilestoneID: m.ID, Title: "Deadline", Start: start, End: start.Add(time.Hour)})
	require.NoError(t, err)

	require.NoError(t, s.DeleteMilestone(ctx, m.ID))

	events, _ := s.RefreshEvents(ctx)
	assert.Empty(t, events)
	goals, _ := s.RefreshGoals(ctx)
	assert.Empty(t, goals[0].Phases[0].Milestones)
}

func TestMoveTask(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	defer s.Close()
	ctx := context.Background()

	g := seedGoalTree(t, s)
	phaseID := g.Phases[0].ID
	taskID := g.Phases[0].Milestones[0].Tasks[0].ID

	second, err := s.CreateMilestone(ctx, phaseID, domain.Milestone{Title: "Grammar"})
	require.NoError(t, err)

	require.NoError(t, s.MoveTask(ctx, taskID, second.ID))

	goals, _ := s.RefreshGoals(ctx)
	milestones := goals[0].Phases[0].Milestones
	require.Len(t, milestones, 2)
	assert.Empty(t, milestones[0].Tasks)
	require.Len(t, milestones[1].Tasks, 1)
	assert.Equal(t, second.ID, milestones[1].Tasks[0].MilestoneID)
}

func TestNotFoundErrors(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	defer s.Close()
	ctx := context.Background()

	assert.ErrorIs(t, s.DeleteGoal(ctx, "missing"), ascendErrors.ErrNotFound)
	assert.ErrorIs(t, s.ToggleTask(ctx, "missing"), ascendErrors.ErrNotFound)
	assert.ErrorIs(t, s.UpdateEvent(ctx, domain.CalendarEvent{ID: "missing"}), ascendErrors.ErrNotFound)
	assert.ErrorIs(t, s.MoveMilestone(ctx, "whatever", "missing"), ascendErrors.ErrNotFound)
}

func TestRefreshReturnsCopies(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	defer s.Close()
	ctx := context.Background()

	seedGoalTree(t, s)
	goals, _ := s.RefreshGoals(ctx)
	goals[0].Phases[0].Milestones[0].Tasks[0].Title = "mutated"

	fresh, _ := s.RefreshGoals(ctx)
	assert.Equal(t, "Vowels", fresh[0].Phases[0].Milestones[0].Tasks[0].Title)
}

func TestTranscriptAppendAndTail(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	defer s.Close()

	for i := 0; i < 5; i++ {
		err := s.AppendMessages("sess_a", domain.ChatMessage{
			ID:        string(rune('a' + i)),
			Role:      domain.ChatRoleUser,
			Content:   "message",
			CreatedAt: time.Now().UTC(),
		})
		require.NoError(t, err)
	}

	tail, err := s.ReadTranscriptTail("sess_a", 3)
	require.NoError(t, err)
	require.Len(t, tail, 3)
	assert.Equal(t, "c", tail[0].ID)
	assert.Equal(t, "e", tail[2].ID)

	// Unknown session reads back empty, not an error.
	tail, err = s.ReadTranscriptTail("sess_unknown", 3)
	assert.NoError(t, err)
	assert.Empty(t, tail)
}

func TestSessionIndex(t *testing.T) {
	s := openTestStore(t, t.TempDir())
	defer s.Close()

	msg := domain.ChatMessage{Role: domain.ChatRoleUser, Content: "hi", CreatedAt: time.Now().UTC()}
	require.NoError(t, s.AppendMessages("sess_1", msg))
	require.NoError(t, s.AppendMessages("sess_1", msg, msg))
	require.NoError(t, s.AppendMessages("sess_2", msg))

	metas, err := s.Sessions()
	require.NoError(t, err)
	require.Len(t, metas, 2)

	byID := map[string]SessionMeta{}
	for _, m := range metas {
		byID[m.ID] = m
	}
	assert.Equal(t, 3, byID["sess_1"].Turns)
	assert.Equal(t, 1, byID["sess_2"].Turns)
}

func TestSeedAppliedToEmptyWorkspace(t *testing.T) {
	base := t.TempDir()
	seedPath := filepath.Join(base, "seed.yaml")
	seed := `
profile:
  role: engineer
  chronotype: early_bird
constraints:
  sleep_start: "23:00"
  sleep_end: "07:00"
  recurring_blocks:
    - label: Work
      kind: work
      days: [mon, tue, wed]
      start: "09:00"
      end: "17:00"
goals:
  - title: Run a 10k
    phases:
      - title: Base building
        milestones:
          - title: Run 5k nonstop
            tasks:
              - title: Three easy runs
                subtasks:
                  - Monday run
                  - Wednesday run
`
	require.NoError(t, os.WriteFile(seedPath, []byte(seed), 0o644))

	s, err := Open(config.StoreConfig{
		WorkspaceID:   "seeded",
		WorkspacePath: base,
		SeedPath:      seedPath,
	})
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "engineer", s.Profile().Role)
	cons := s.Constraints()
	require.Len(t, cons.RecurringBlocks, 1)
	assert.Equal(t, []time.Weekday{time.Monday, time.Tuesday, time.Wednesday}, cons.RecurringBlocks[0].Days)

	goals, _ := s.RefreshGoals(context.Background())
	require.Len(t, goals, 1)
	g := goals[0]
	assert.NotEmpty(t, g.ID)
	sub := g.Phases[0].Milestones[0].Tasks[0].SubTasks
	require.Len(t, sub, 2)
	assert.NotEmpty(t, sub[0].ID)
}

func TestWorkspaceLockBlocksSecondInstance(t *testing.T) {
	base := t.TempDir()
	s := openTestStore(t, base)
	defer s.Close()

	_, err := Open(config.StoreConfig{
		WorkspaceID:   "test",
		WorkspacePath: base,
		LockTimeout:   "200ms",
		LockRetry:     "50ms",
	})
	assert.Error(t, err)
}
