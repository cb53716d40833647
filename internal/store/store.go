// Package store persists a career. Every backend writes the whole GameState
// as one JSON document and refuses saves that skip a revision.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"stardom/internal/db"
	"stardom/internal/game"
)

var ErrCorruptSave = errors.New("saved game failed its checksum")

const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"

	DefaultSlot = "main"
)

// Store is a game.Store that holds resources until Close.
type Store interface {
	game.Store
	Close() error
}

type Options struct {
	Backend     string
	Path        string
	DatabaseURL string
	Slot        string
}

// Open builds the backend named by opts.Backend.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	slot := strings.TrimSpace(opts.Slot)
	if slot == "" {
		slot = DefaultSlot
	}
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case BackendFile, "":
		return NewFileStore(opts.Path), nil
	case BackendSQLite:
		st, err := OpenSQLite(ctx, opts.Path, slot)
		if err != nil {
			return nil, err
		}
		return st, nil
	case BackendPostgres:
		if strings.TrimSpace(opts.DatabaseURL) == "" {
			return nil, fmt.Errorf("postgres store needs a database url")
		}
		pool, err := db.Connect(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, err
		}
		st := NewPostgresStore(pool, slot, logger)
		if err := st.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}

// Shared reports whether other processes may write the same save. Every
// backend keeps its save outside the process, so the worker, the api and
// the cli can all reach it.
func Shared(backend string) bool {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case BackendFile, "", BackendSQLite, BackendPostgres:
		return true
	}
	return false
}

func encodeState(state *game.GameState) ([]byte, string, error) {
	if state == nil {
		return nil, "", fmt.Errorf("nil game state")
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, "", fmt.Errorf("encode game: %w", err)
	}
	return raw, checksum(raw), nil
}

// decodeState parses raw and verifies it against sum. The checksum is over
// the re-encoded state so backends that reformat JSON (jsonb) still match.
func decodeState(raw []byte, sum string) (*game.GameState, error) {
	var state game.GameState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode game: %w", err)
	}
	if sum != "" {
		canon, err := json.Marshal(&state)
		if err != nil {
			return nil, fmt.Errorf("encode game: %w", err)
		}
		if checksum(canon) != sum {
			return nil, ErrCorruptSave
		}
	}
	return &state, nil
}

func checksum(raw []byte) string {
	return strconv.FormatUint(xxhash.Sum64(raw), 16)
}

func checkRevision(exists bool, stored, next int64) error {
	if exists && next != stored+1 {
		return fmt.Errorf("%w: stored revision %d, saving %d", game.ErrStaleSave, stored, next)
	}
	return nil
}

// newLedgerEntries returns the weekly stats a backend has not recorded yet.
// A rewound career (reset) re-records from its current week.
func newLedgerEntries(state *game.GameState, exists bool, storedWeek int) []game.WeeklyStats {
	floor := 0
	if exists {
		floor = min(storedWeek, state.Week)
	}
	var out []game.WeeklyStats
	for _, ws := range state.WeeklyStats {
		if ws.Week > floor {
			out = append(out, ws)
		}
	}
	return out
}
