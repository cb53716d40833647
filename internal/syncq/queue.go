// Package syncq keeps remote CLI writes that could not reach the API so
// `stardom sync` can replay them later with their original idempotency keys.
package syncq

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"stardom/internal/store"
)

type Command struct {
	ID             string          `json:"id"`
	Method         string          `json:"method"`
	Path           string          `json:"path"`
	Body           json.RawMessage `json:"body,omitempty"`
	IdempotencyKey string          `json:"idempotency_key"`
	QueuedAt       time.Time       `json:"queued_at"`
}

type Queue struct {
	mu   sync.Mutex
	path string
}

// Open returns the queue stored at path, or ~/.stardom/queue.json when
// path is empty.
func Open(path string) (*Queue, error) {
	if path == "" {
		dir, err := store.BaseDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "queue.json")
	}
	return &Queue{path: path}, nil
}

func (q *Queue) Path() string {
	return q.path
}

func (q *Queue) Load() ([]Command, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.load()
}

func (q *Queue) load() ([]Command, error) {
	raw, err := os.ReadFile(q.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Command{}, nil
		}
		return nil, err
	}
	if len(raw) == 0 {
		return []Command{}, nil
	}
	var out []Command
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (q *Queue) Save(commands []Command) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.save(commands)
}

func (q *Queue) save(commands []Command) error {
	if err := os.MkdirAll(filepath.Dir(q.path), 0o700); err != nil {
		return err
	}
	if commands == nil {
		commands = []Command{}
	}
	raw, err := json.MarshalIndent(commands, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(q.path, raw, 0o600)
}

// Remove deletes the commands with the given ids. It re-reads the file
// under the lock, so commands pushed since the caller's Load survive.
func (q *Queue) Remove(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	gone := make(map[string]bool, len(ids))
	for _, id := range ids {
		gone[id] = true
	}
	commands, err := q.load()
	if err != nil {
		return err
	}
	kept := commands[:0]
	for _, cmd := range commands {
		if !gone[cmd.ID] {
			kept = append(kept, cmd)
		}
	}
	return q.save(kept)
}

// Push appends cmd, filling in its id, idempotency key and queue time.
func (q *Queue) Push(cmd Command) (Command, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}
	if cmd.IdempotencyKey == "" {
		cmd.IdempotencyKey = uuid.NewString()
	}
	if cmd.QueuedAt.IsZero() {
		cmd.QueuedAt = time.Now().UTC()
	}
	commands, err := q.load()
	if err != nil {
		return cmd, err
	}
	commands = append(commands, cmd)
	return cmd, q.save(commands)
}
