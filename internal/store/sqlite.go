package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"stardom/internal/game"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS save_slots (
	slot        TEXT PRIMARY KEY,
	artist_name TEXT NOT NULL,
	week        INTEGER NOT NULL,
	revision    INTEGER NOT NULL,
	checksum    TEXT NOT NULL,
	state       TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS weekly_stats (
	slot           TEXT NOT NULL,
	week           INTEGER NOT NULL,
	total_streams  INTEGER NOT NULL,
	new_streams    INTEGER NOT NULL,
	revenue_micros INTEGER NOT NULL,
	wealth_micros  INTEGER NOT NULL,
	career_level   INTEGER NOT NULL,
	active_songs   INTEGER NOT NULL,
	PRIMARY KEY (slot, week)
);
`

// SQLiteStore keeps named save slots in a local SQLite database together
// with an append-only copy of the weekly ledger.
type SQLiteStore struct {
	db   *sql.DB
	slot string
}

// OpenSQLite opens path, or ~/.stardom/stardom.db when path is empty.
func OpenSQLite(ctx context.Context, path, slot string) (*SQLiteStore, error) {
	if path == "" {
		dir, err := BaseDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "stardom.db")
	}
	if slot == "" {
		slot = DefaultSlot
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db, slot: slot}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (*game.GameState, error) {
	var raw, sum string
	err := s.db.QueryRowContext(ctx,
		`SELECT state, checksum FROM save_slots WHERE slot = ?`, s.slot,
	).Scan(&raw, &sum)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, game.ErrNoSave
	}
	if err != nil {
		return nil, fmt.Errorf("load slot %s: %w", s.slot, err)
	}
	return decodeState([]byte(raw), sum)
}

func (s *SQLiteStore) Save(ctx context.Context, state *game.GameState) error {
	raw, sum, err := encodeState(state)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var storedRevision int64
	var storedWeek int
	exists := true
	err = tx.QueryRowContext(ctx,
		`SELECT revision, week FROM save_slots WHERE slot = ?`, s.slot,
	).Scan(&storedRevision, &storedWeek)
	if errors.Is(err, sql.ErrNoRows) {
		exists = false
	} else if err != nil {
		return err
	}
	if err := checkRevision(exists, storedRevision, state.Revision); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO save_slots (slot, artist_name, week, revision, checksum, state, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (slot) DO UPDATE SET
			artist_name = excluded.artist_name,
			week = excluded.week,
			revision = excluded.revision,
			checksum = excluded.checksum,
			state = excluded.state,
			updated_at = excluded.updated_at
	`, s.slot, state.ArtistName, state.Week, state.Revision, sum, string(raw), time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("write slot %s: %w", s.slot, err)
	}

	if exists && state.Week < storedWeek {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM weekly_stats WHERE slot = ? AND week > ?`, s.slot, state.Week,
		); err != nil {
			return err
		}
	}
	for _, ws := range newLedgerEntries(state, exists, storedWeek) {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO weekly_stats
				(slot, week, total_streams, new_streams, revenue_micros, wealth_micros, career_level, active_songs)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (slot, week) DO NOTHING
		`, s.slot, ws.Week, ws.TotalStreams, ws.NewStreams, ws.RevenueMicros, ws.WealthMicros, ws.CareerLevel, ws.ActiveSongs); err != nil {
			return fmt.Errorf("append week %d: %w", ws.Week, err)
		}
	}
	return tx.Commit()
}

// Slots lists the save slots in the database, most recently written first.
func (s *SQLiteStore) Slots(ctx context.Context) ([]SlotInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT slot, artist_name, week, updated_at FROM save_slots ORDER BY updated_at DESC, slot`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SlotInfo
	for rows.Next() {
		var info SlotInfo
		var updated string
		if err := rows.Scan(&info.Slot, &info.ArtistName, &info.Week, &updated); err != nil {
			return nil, err
		}
		info.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
		out = append(out, info)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type SlotInfo struct {
	Slot       string    `json:"slot"`
	ArtistName string    `json:"artist_name"`
	Week       int       `json:"week"`
	UpdatedAt  time.Time `json:"updated_at"`
}
