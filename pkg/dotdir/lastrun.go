package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	lastRunFile = "lastrun.json"
)

// LastRunState marks the most recently completed experiment run. Commands
// that take an optional run ID (report, evaluate) fall back to this marker
// when none is given.
type LastRunState struct {
	// RunID is the UUID of the most recent run.
	RunID string `json:"run_id"`

	// CompletedAt is when the run finished.
	CompletedAt time.Time `json:"completed_at"`

	// Records is the number of context records the run produced,
	// including failure sentinels.
	Records int `json:"records"`
}

// LoadLastRun loads the marker from a target .telephone/lastrun.json.
// Returns nil, nil if no marker exists (no runs recorded yet).
// If overrideDir is non-empty, it is used instead of the default ~/.telephone/ location.
func (m *Manager) LoadLastRun(overrideDir string) (*LastRunState, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, lastRunFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading last-run marker: %w", err)
	}

	state := &LastRunState{}
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parsing last-run marker: %w", err)
	}

	return state, nil
}

// SaveLastRun persists the marker to a target .telephone/lastrun.json.
func (m *Manager) SaveLastRun(state *LastRunState, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil last-run state")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling last-run marker: %w", err)
	}

	path := filepath.Join(dir, lastRunFile)
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("writing last-run marker: %w", err)
	}

	return nil
}

// ClearLastRun removes the marker file.
// Returns nil if the file doesn't exist (already cleared).
func (m *Manager) ClearLastRun(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	path := filepath.Join(dir, lastRunFile)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing last-run marker: %w", err)
	}

	return nil
}
