// internal/paper/store.go
package paper

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
)

// State is the persisted account record: one flat document, rewritten in
// full after every position close.
type State struct {
	Balance        decimal.Decimal `json:"balance"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	Trades         []ClosedTrade   `json:"trades"`
}

// Store is the read/write contract for account state. A Load error means
// "start fresh", never "abort".
type Store interface {
	Load() (*State, error)
	Save(state *State) error
}

// FileStore keeps account state in a single JSON file. Saves go through a
// temp file and rename so a crash mid-write never leaves a torn record.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load() (*State, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read account state: %w", err)
	}

	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("parse account state: %w", err)
	}
	return &state, nil
}

func (s *FileStore) Save(state *State) error {
	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode account state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("prepare state directory: %w", err)
	}
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return fmt.Errorf("write account state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace account state: %w", err)
	}
	return nil
}
