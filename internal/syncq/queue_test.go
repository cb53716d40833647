package syncq

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestQueuePushLoadSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "queue.json")
	q, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	empty, err := q.Load()
	if err != nil || len(empty) != 0 {
		t.Fatalf("empty queue: %v %v", empty, err)
	}

	first, err := q.Push(Command{Method: "POST", Path: "/v1/songs", Body: json.RawMessage(`{"title":"A","tier":1}`)})
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if first.ID == "" || first.IdempotencyKey == "" || first.QueuedAt.IsZero() {
		t.Fatalf("push did not fill defaults: %+v", first)
	}
	if _, err := q.Push(Command{Method: "POST", Path: "/v1/week/advance", IdempotencyKey: "fixed"}); err != nil {
		t.Fatalf("push second: %v", err)
	}

	cmds, err := q.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cmds) != 2 || cmds[0].ID != first.ID || cmds[1].IdempotencyKey != "fixed" {
		t.Fatalf("unexpected queue %+v", cmds)
	}
	var body struct {
		Title string `json:"title"`
		Tier  int    `json:"tier"`
	}
	if err := json.Unmarshal(cmds[0].Body, &body); err != nil || body.Title != "A" || body.Tier != 1 {
		t.Fatalf("body changed: %s (%v)", cmds[0].Body, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("queue file mode %o", perm)
	}

	if err := q.Save(cmds[1:]); err != nil {
		t.Fatalf("save: %v", err)
	}
	cmds, err = q.Load()
	if err != nil || len(cmds) != 1 {
		t.Fatalf("after save: %v %v", cmds, err)
	}
	if err := q.Save(nil); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if cmds, _ := q.Load(); len(cmds) != 0 {
		t.Fatalf("queue not cleared: %v", cmds)
	}
}

func TestQueueRemoveKeepsOthers(t *testing.T) {
	q, err := Open(filepath.Join(t.TempDir(), "queue.json"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	var ids []string
	for _, path := range []string{"/v1/songs", "/v1/albums", "/v1/week/advance"} {
		cmd, err := q.Push(Command{Method: "POST", Path: path})
		if err != nil {
			t.Fatalf("push %s: %v", path, err)
		}
		ids = append(ids, cmd.ID)
	}
	snapshot, err := q.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	// Pushed after the caller loaded; Remove must not lose it.
	late, err := q.Push(Command{Method: "POST", Path: "/v1/songs/x/release"})
	if err != nil {
		t.Fatalf("push late: %v", err)
	}
	if err := q.Remove([]string{snapshot[0].ID, snapshot[2].ID, "unknown"}); err != nil {
		t.Fatalf("remove: %v", err)
	}
	cmds, err := q.Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(cmds) != 2 || cmds[0].ID != ids[1] || cmds[1].ID != late.ID {
		t.Fatalf("unexpected queue after remove %+v", cmds)
	}
	if err := q.Remove(nil); err != nil {
		t.Fatalf("remove nothing: %v", err)
	}
}
