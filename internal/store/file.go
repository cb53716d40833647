package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"stardom/internal/game"
)

// BaseDir is ~/.stardom, created on demand.
func BaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".stardom")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

type fileEnvelope struct {
	Checksum string          `json:"checksum"`
	State    json.RawMessage `json:"state"`
}

// FileStore keeps the save in a single JSON file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore stores at path, or ~/.stardom/save.json when path is empty.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) resolve() (string, error) {
	if s.path != "" {
		if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
			return "", err
		}
		return s.path, nil
	}
	dir, err := BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "save.json"), nil
}

func (s *FileStore) Load(_ context.Context) (*game.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *FileStore) load() (*game.GameState, error) {
	path, err := s.resolve()
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, game.ErrNoSave
		}
		return nil, err
	}
	if len(raw) == 0 {
		return nil, game.ErrNoSave
	}
	var env fileEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode save file: %w", err)
	}
	return decodeState(env.State, env.Checksum)
}

// Save replaces the file atomically through a temp file and rename.
func (s *FileStore) Save(_ context.Context, state *game.GameState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load()
	switch {
	case err == nil:
		if err := checkRevision(true, current.Revision, state.Revision); err != nil {
			return err
		}
	case !errors.Is(err, game.ErrNoSave):
		return err
	}

	raw, sum, err := encodeState(state)
	if err != nil {
		return err
	}
	body, err := json.MarshalIndent(fileEnvelope{Checksum: sum, State: raw}, "", "  ")
	if err != nil {
		return err
	}
	path, err := s.resolve()
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".save-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (s *FileStore) Close() error { return nil }
