// Package store persists the plan of record: the goal tree, calendar events,
// user profile and session transcripts, all under a per-workspace directory.
package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ascendhq/ascend/internal/config"
	"github.com/ascendhq/ascend/internal/pathutil"
)

// Paths is the on-disk layout of one workspace.
type Paths struct {
	WorkspaceID string
	Root        string
	PlanFile    string
	EventsFile  string
	SessionsDir string
	LockFile    string
}

func ResolvePaths(cfg config.StoreConfig) (Paths, error) {
	base, err := pathutil.Expand(cfg.WorkspacePath)
	if err != nil {
		return Paths{}, fmt.Errorf("resolve workspace path: %w", err)
	}
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, fmt.Errorf("resolve home dir: %w", err)
		}
		base = filepath.Join(home, ".ascend", "workspaces")
	}

	workspaceID := cfg.WorkspaceID
	if workspaceID == "" {
		workspaceID = config.DefaultWorkspaceID
	}

	root := filepath.Join(base, workspaceID)
	return Paths{
		WorkspaceID: workspaceID,
		Root:        root,
		PlanFile:    filepath.Join(root, "plan.json"),
		EventsFile:  filepath.Join(root, "events.json"),
		SessionsDir: filepath.Join(root, "sessions"),
		LockFile:    filepath.Join(root, "workspace.lock"),
	}, nil
}

func (p Paths) EnsureLayout() error {
	for _, dir := range []string{p.Root, p.SessionsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}
