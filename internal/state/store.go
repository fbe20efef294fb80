package state

import (
	"encoding/json"
	"os"
	"path/filepath"

	"remem/internal/types"
)

// Store persists one SessionState as a single JSON file. Reads never fail:
// missing, malformed, or stale storage yields a fresh default state, since
// losing local accumulation is acceptable and blocking the host agent is
// not.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// LockPath returns the sibling lock file guarding this state file.
func (s *Store) LockPath() string {
	return s.path + ".lock"
}

// Load returns the persisted state when its session id matches, otherwise a
// fresh default. Stale state from a different session is never merged.
func (s *Store) Load(sessionID string) *types.SessionState {
	fresh := defaultState(sessionID)
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fresh
	}
	var loaded types.SessionState
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fresh
	}
	if loaded.SessionID != sessionID {
		return fresh
	}
	return &loaded
}

// Save writes the state atomically: temp file in the same directory, then
// rename over the final path.
func (s *Store) Save(state *types.SessionState) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	file, err := os.CreateTemp(dir, ".tmp-state-*.json")
	if err != nil {
		return err
	}
	defer func() {
		_ = os.Remove(file.Name())
	}()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(state); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	return os.Rename(file.Name(), s.path)
}

func defaultState(sessionID string) *types.SessionState {
	return &types.SessionState{SessionID: sessionID}
}
