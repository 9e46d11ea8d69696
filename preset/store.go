package preset

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// State is the persisted part of a Manager.
type State struct {
	Custom   []Preset `json:"custom"`
	Selected string   `json:"selected,omitempty"`
}

// Store persists State between restarts.
type Store interface {
	Load() (State, error)
	Save(State) error
}

// FileStore keeps State as a JSON document on disk.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the state file. A missing file yields an empty state.
func (s *FileStore) Load() (State, error) {
	var st State
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return st, nil
		}
		return st, err
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return st, err
	}
	for i := range st.Custom {
		st.Custom[i].Origin = OriginCustom
	}
	return st, nil
}

// Save writes to a temp file then renames it over the state file.
func (s *FileStore) Save(st State) error {
	if st.Custom == nil {
		st.Custom = []Preset{}
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

// MemoryStore keeps State in memory. FailSave makes Save return an error,
// which is useful to exercise rollback paths.
type MemoryStore struct {
	mu       sync.Mutex
	state    State
	FailSave error
}

func (s *MemoryStore) Load() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyState(s.state), nil
}

func (s *MemoryStore) Save(st State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailSave != nil {
		return s.FailSave
	}
	s.state = copyState(st)
	return nil
}

func copyState(st State) State {
	return State{Custom: slices.Clone(st.Custom), Selected: st.Selected}
}
