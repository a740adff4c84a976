package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned by Persistence.Load for unknown session ids.
var ErrNotFound = errors.New("session not found")

// Persistence stores whole sessions. Writes are last-writer-wins; the
// serialized representation is owned by the implementation.
type Persistence interface {
	Save(id string, m *Memory) error
	Load(id string) (*Memory, error)
	ListIDs() ([]string, error)
}

// FileStore persists one JSON file per session under a directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("session file store: empty dir")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(id string) string {
	return filepath.Join(f.dir, id+".json")
}

func (f *FileStore) Save(id string, m *Memory) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", id, err)
	}
	if err := os.WriteFile(f.path(id), data, 0644); err != nil {
		return fmt.Errorf("write session %s: %w", id, err)
	}
	return nil
}

func (f *FileStore) Load(id string) (*Memory, error) {
	data, err := os.ReadFile(f.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read session %s: %w", id, err)
	}
	var m Memory
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", id, err)
	}
	if m.Context.UserPreferences == nil {
		m.Context.UserPreferences = make(map[string]string)
	}
	return &m, nil
}

func (f *FileStore) ListIDs() ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("read session dir: %w", err)
	}
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	return ids, nil
}
