package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"stardom/internal/game"
)

const postgresSchema = `
CREATE SCHEMA IF NOT EXISTS stardom;

CREATE TABLE IF NOT EXISTS stardom.save_slots (
	slot        TEXT PRIMARY KEY,
	artist_name TEXT NOT NULL,
	week        INTEGER NOT NULL,
	revision    BIGINT NOT NULL,
	checksum    TEXT NOT NULL,
	state       JSONB NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS stardom.weekly_stats (
	slot           TEXT NOT NULL REFERENCES stardom.save_slots(slot) ON DELETE CASCADE,
	week           INTEGER NOT NULL,
	total_streams  BIGINT NOT NULL,
	new_streams    BIGINT NOT NULL,
	revenue_micros BIGINT NOT NULL,
	wealth_micros  BIGINT NOT NULL,
	career_level   INTEGER NOT NULL,
	active_songs   INTEGER NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (slot, week)
);
`

// PostgresStore keeps the save as a jsonb document and appends each week's
// headline numbers to stardom.weekly_stats for querying outside the game.
type PostgresStore struct {
	pool *pgxpool.Pool
	slot string
	log  *slog.Logger
}

func NewPostgresStore(pool *pgxpool.Pool, slot string, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	if slot == "" {
		slot = DefaultSlot
	}
	return &PostgresStore{pool: pool, slot: slot, log: logger}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context) (*game.GameState, error) {
	var raw []byte
	var sum string
	err := s.pool.QueryRow(ctx, `
		SELECT state, checksum
		FROM stardom.save_slots
		WHERE slot = $1
	`, s.slot).Scan(&raw, &sum)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, game.ErrNoSave
	}
	if err != nil {
		return nil, fmt.Errorf("load slot %s: %w", s.slot, err)
	}
	state, err := decodeState(raw, sum)
	if errors.Is(err, ErrCorruptSave) {
		s.log.Error("save slot failed checksum", "slot", s.slot)
	}
	return state, err
}

// Save locks the slot row so a concurrent writer either sees this revision
// or fails its own revision check.
func (s *PostgresStore) Save(ctx context.Context, state *game.GameState) error {
	raw, sum, err := encodeState(state)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var storedRevision int64
	var storedWeek int
	exists := true
	err = tx.QueryRow(ctx, `
		SELECT revision, week
		FROM stardom.save_slots
		WHERE slot = $1
		FOR UPDATE
	`, s.slot).Scan(&storedRevision, &storedWeek)
	if errors.Is(err, pgx.ErrNoRows) {
		exists = false
	} else if err != nil {
		return err
	}
	if err := checkRevision(exists, storedRevision, state.Revision); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO stardom.save_slots (slot, artist_name, week, revision, checksum, state, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (slot) DO UPDATE
		SET artist_name = EXCLUDED.artist_name,
		    week = EXCLUDED.week,
		    revision = EXCLUDED.revision,
		    checksum = EXCLUDED.checksum,
		    state = EXCLUDED.state,
		    updated_at = now()
	`, s.slot, state.ArtistName, state.Week, state.Revision, sum, raw); err != nil {
		return fmt.Errorf("write slot %s: %w", s.slot, err)
	}

	if exists && state.Week < storedWeek {
		if _, err := tx.Exec(ctx, `
			DELETE FROM stardom.weekly_stats
			WHERE slot = $1 AND week > $2
		`, s.slot, state.Week); err != nil {
			return err
		}
	}
	entries := newLedgerEntries(state, exists, storedWeek)
	if len(entries) > 0 {
		batch := &pgx.Batch{}
		for _, ws := range entries {
			batch.Queue(`
				INSERT INTO stardom.weekly_stats
				    (slot, week, total_streams, new_streams, revenue_micros, wealth_micros, career_level, active_songs)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				ON CONFLICT (slot, week) DO NOTHING
			`, s.slot, ws.Week, ws.TotalStreams, ws.NewStreams, ws.RevenueMicros, ws.WealthMicros, ws.CareerLevel, ws.ActiveSongs)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("append weekly stats: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
