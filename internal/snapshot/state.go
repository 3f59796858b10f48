// Package snapshot persists task lists to a JSON state file so that todo and
// wip tasks survive a restart.
//
// Concurrent access is not supported. Two processes sharing a state file will
// overwrite each other's saves; the last writer wins.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/beadhub/standupbot/internal/tasks"
)

// FormatVersion is written into every state file.
const FormatVersion = 1

// State is the persisted form of all task lists.
type State struct {
	SavedAt time.Time            `json:"saved_at"`
	Version int                  `json:"version"`
	Lists   map[string]ListState `json:"lists"`
}

// ListState is one owner's list.
type ListState struct {
	LastID int         `json:"last_id"`
	Tasks  []TaskState `json:"tasks"`
}

// TaskState is one task. Status uses the tasks.Status names.
type TaskState struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

func emptyState() *State {
	return &State{Version: FormatVersion, Lists: make(map[string]ListState)}
}

// LoadState loads state from file.
// Returns empty state if the file doesn't exist or is corrupt.
func LoadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return emptyState(), nil
		}
		return nil, err
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return emptyState(), nil
	}
	if state.Lists == nil {
		state.Lists = make(map[string]ListState)
	}
	return &state, nil
}

// SaveState saves state to file atomically.
// Uses write-rename pattern to prevent corruption.
func SaveState(path string, state *State) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// Capture copies every list held by m into a State.
func Capture(m *tasks.Manager) *State {
	state := emptyState()
	for _, owner := range m.Owners() {
		lastID, list := m.List(owner).Snapshot()
		ls := ListState{LastID: lastID, Tasks: make([]TaskState, 0, len(list))}
		for _, t := range list {
			ls.Tasks = append(ls.Tasks, TaskState{ID: t.ID, Description: t.Description, Status: t.Status.String()})
		}
		state.Lists[owner] = ls
	}
	return state
}

// Apply installs every list in the state into m. A task with an unknown
// status makes the whole state invalid.
func (s *State) Apply(m *tasks.Manager) error {
	restored := make(map[string]*tasks.List, len(s.Lists))
	for owner, ls := range s.Lists {
		list := make([]tasks.Task, 0, len(ls.Tasks))
		for _, t := range ls.Tasks {
			status, err := tasks.ParseStatus(t.Status)
			if err != nil {
				return fmt.Errorf("list %s task %d: %w", owner, t.ID, err)
			}
			list = append(list, tasks.Task{ID: t.ID, Description: t.Description, Status: status})
		}
		restored[owner] = tasks.RestoreList(ls.LastID, list)
	}
	for owner, list := range restored {
		m.Restore(owner, list)
	}
	return nil
}
