package snapshot

import (
	"fmt"
	"sync"
	"time"

	"github.com/beadhub/standupbot/internal/tasks"
)

// Store keeps a tasks.Manager in sync with a state file.
type Store struct {
	path    string
	manager *tasks.Manager

	mu       sync.Mutex
	lastHash string
}

// NewStore creates a store for the given file and manager.
func NewStore(path string, manager *tasks.Manager) *Store {
	return &Store{path: path, manager: manager}
}

// Path returns the state file path.
func (s *Store) Path() string {
	return s.path
}

// Restore loads the state file into the manager and returns the number of
// lists restored.
func (s *Store) Restore() (int, error) {
	state, err := LoadState(s.path)
	if err != nil {
		return 0, fmt.Errorf("loading %s: %w", s.path, err)
	}
	if err := state.Apply(s.manager); err != nil {
		return 0, fmt.Errorf("restoring %s: %w", s.path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if h, err := Hash(state); err == nil {
		s.lastHash = h
	}
	return len(state.Lists), nil
}

// Persist writes the manager's lists to the state file when they changed
// since the last save or restore.
func (s *Store) Persist() error {
	state := Capture(s.manager)
	h, err := Hash(state)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if h == s.lastHash {
		return nil
	}
	state.SavedAt = time.Now().UTC()
	if err := SaveState(s.path, state); err != nil {
		return fmt.Errorf("saving %s: %w", s.path, err)
	}
	s.lastHash = h
	return nil
}
