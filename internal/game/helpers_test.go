package game

import (
	"context"
	"io"
	"log/slog"
	"sync"
)

var corePlatforms = []string{"Streamify", "Tunevault", "ClipTube"}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seededEngine never starts trends so growth comparisons are not skewed by
// per-platform multipliers.
func seededEngine(seed int64) *Engine {
	tuning := DefaultTuning()
	tuning.Seed = seed
	tuning.TrendChance = 1e-12
	return NewEngine(tuning, quietLogger())
}

// releasedSong builds a consistent released song whose streams are spread
// over platforms in a fixed 5:3:2 pattern.
func releasedSong(id string, tier int, streams int64, releaseWeek int, platforms []string) Song {
	song := Song{
		ID:                    id,
		Title:                 "Track " + id,
		Tier:                  tier,
		Released:              true,
		ReleaseWeek:           releaseWeek,
		IsActive:              true,
		Streams:               streams,
		PerformanceType:       PerformanceNormal,
		PerformanceStatusWeek: releaseWeek,
		ReleasePlatforms:      append([]string(nil), platforms...),
		PlatformStreams:       map[string]int64{},
	}
	weights := []int64{5, 3, 2}
	var assigned int64
	for i, name := range platforms {
		var v int64
		if i == len(platforms)-1 {
			v = streams - assigned
		} else {
			v = streams * weights[i%len(weights)] / 10
		}
		song.PlatformStreams[name] = v
		assigned += v
	}
	return song
}

// stateWith builds a state at week whose platform totals match its songs.
func stateWith(week int, songs ...Song) *GameState {
	s := NewGameState("Test Artist")
	s.Week = week
	s.Songs = songs
	for _, song := range songs {
		for name, v := range song.PlatformStreams {
			s.Platforms[s.platformIndex(name)].TotalStreams += v
		}
	}
	s.Stats.CareerLevel = CareerLevelFor(s.SongStreamTotal())
	return s
}

type memoryStore struct {
	mu      sync.Mutex
	state   *GameState
	saves   int
	saveErr error
}

func (m *memoryStore) Load(context.Context) (*GameState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return nil, ErrNoSave
	}
	return m.state.Clone(), nil
}

func (m *memoryStore) Save(_ context.Context, state *GameState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if m.state != nil && state.Revision != m.state.Revision+1 {
		return ErrStaleSave
	}
	m.state = state.Clone()
	m.saves++
	return nil
}
