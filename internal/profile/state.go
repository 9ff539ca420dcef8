package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	keyLastRuleSet = "last_rule_set"
	keyUpdatedAt   = "updated_at"
)

// DefaultStatePath is the state file inside the user config directory, or a
// dot file in the working directory when there is none.
func DefaultStatePath() string {
	configDir, err := os.UserConfigDir()
	if err != nil || configDir == "" {
		return filepath.Join(".", ".unimacro-state.json")
	}
	return filepath.Join(configDir, "unimacro", "state.json")
}

// State is a small JSON document remembering the last active rule set.
// Unknown keys written by other versions are preserved on update.
type State struct {
	mu   sync.Mutex
	path string
}

func NewState(path string) *State {
	return &State{path: path}
}

func (s *State) Path() string {
	return s.path
}

// LastRuleSet returns the remembered rule file name, or "" when nothing has
// been stored yet.
func (s *State) LastRuleSet() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.readLocked()
	if err != nil || data == nil {
		return "", err
	}
	return gjson.GetBytes(data, keyLastRuleSet).String(), nil
}

// SetLastRuleSet stores name, replacing the file atomically.
func (s *State) SetLastRuleSet(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.readLocked()
	if err != nil {
		// Corrupt documents are overwritten.
		data = nil
	}
	if data == nil {
		data = []byte("{}")
	}

	data, err = sjson.SetBytes(data, keyLastRuleSet, name)
	if err != nil {
		return fmt.Errorf("updating state: %w", err)
	}
	data, err = sjson.SetBytes(data, keyUpdatedAt, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("updating state: %w", err)
	}
	return s.writeLocked(data)
}

func (s *State) readLocked() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading state %s: %w", s.path, err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("failed to parse state %s", s.path)
	}
	return data, nil
}

func (s *State) writeLocked(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}
	if len(data) == 0 || data[len(data)-1] != '\n' {
		data = append(data, '\n')
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to persist state: %w", err)
	}
	return nil
}
