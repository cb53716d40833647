package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// ErrNoSave is returned by a Store that holds no game yet.
var ErrNoSave = errors.New("no saved game")

// Store persists the whole GameState. Implementations live in internal/store.
type Store interface {
	Load(ctx context.Context) (*GameState, error)
	Save(ctx context.Context, state *GameState) error
}

var (
	weeksAdvanced = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "stardom_weeks_advanced_total", Help: "Weeks simulated"},
	)
	tickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stardom_tick_duration_seconds",
			Help:    "Time to simulate and persist one week",
			Buckets: prometheus.DefBuckets,
		},
	)
	actionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "stardom_actions_total", Help: "Player actions by outcome"},
		[]string{"action", "outcome"},
	)
	totalStreamsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "stardom_total_streams", Help: "Cumulative streams after the last tick"},
	)
	wealthGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "stardom_wealth_dollars", Help: "Player wealth after the last write"},
	)
)

func init() {
	prometheus.MustRegister(weeksAdvanced, tickDuration, actionsTotal, totalStreamsGauge, wealthGauge)
}

// Service owns the single live GameState. Every mutation goes through it:
// actions between ticks and AdvanceWeek itself, one at a time.
type Service struct {
	store  Store
	engine *Engine
	log    *slog.Logger
	mu     sync.Mutex
	state  *GameState
	shared bool
}

func NewService(store Store, engine *Engine, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if engine == nil {
		engine = NewEngine(DefaultTuning(), logger)
	}
	return &Service{
		store:  store,
		engine: engine,
		log:    logger,
	}
}

// SetShared makes the service reload the saved game before every read and
// write. Use it when another process (the worker) writes the same store.
func (s *Service) SetShared(shared bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shared = shared
}

// Open loads the saved career or starts and saves a new one for artistName.
func (s *Service) Open(ctx context.Context, artistName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.store.Load(ctx)
	if err == nil {
		s.state = state
		s.log.Info("career loaded", "artist", state.ArtistName, "week", state.Week, "revision", state.Revision)
		return nil
	}
	if !errors.Is(err, ErrNoSave) {
		return fmt.Errorf("load game: %w", err)
	}
	state = NewGameState(artistName)
	if err := s.commit(ctx, state); err != nil {
		return fmt.Errorf("save new game: %w", err)
	}
	s.log.Info("career started", "artist", state.ArtistName)
	return nil
}

// Reset discards the current career and starts a new one.
func (s *Service) Reset(ctx context.Context, artistName string) (*GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refresh(ctx); err != nil {
		return nil, err
	}
	state := NewGameState(artistName)
	state.Revision = s.current().Revision
	if err := s.commit(ctx, state); err != nil {
		return nil, fmt.Errorf("save new game: %w", err)
	}
	return state.Clone(), nil
}

// Snapshot returns a deep copy of the live state held in memory.
func (s *Service) Snapshot() *GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current().Clone()
}

// State is Snapshot after picking up writes made by other processes.
func (s *Service) State(ctx context.Context) (*GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refresh(ctx); err != nil {
		return nil, err
	}
	return s.current().Clone(), nil
}

func (s *Service) current() *GameState {
	if s.state == nil {
		s.state = NewGameState("")
	}
	return s.state
}

// refresh reloads the saved game in shared mode. Caller holds mu.
func (s *Service) refresh(ctx context.Context) error {
	if !s.shared {
		return nil
	}
	state, err := s.store.Load(ctx)
	if errors.Is(err, ErrNoSave) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reload game: %w", err)
	}
	s.state = state
	return nil
}

// commit bumps the revision, saves next and makes it live. Caller holds mu.
func (s *Service) commit(ctx context.Context, next *GameState) error {
	next.Revision++
	if err := s.store.Save(ctx, next); err != nil {
		return err
	}
	s.state = next
	return nil
}

type WeekResult struct {
	Stats         WeeklyStats    `json:"stats"`
	Notifications []Notification `json:"notifications"`
}

// AdvanceWeek runs one tick and persists it. The live state is replaced
// only after the save succeeds.
func (s *Service) AdvanceWeek(ctx context.Context) (WeekResult, error) {
	timer := prometheus.NewTimer(tickDuration)
	defer timer.ObserveDuration()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refresh(ctx); err != nil {
		return WeekResult{}, err
	}

	next, notices := s.engine.AdvanceWeek(s.current())
	if err := s.commit(ctx, next); err != nil {
		return WeekResult{}, fmt.Errorf("save week %d: %w", next.Week, err)
	}

	var stats WeeklyStats
	if n := len(next.WeeklyStats); n > 0 {
		stats = next.WeeklyStats[n-1]
	}
	weeksAdvanced.Inc()
	totalStreamsGauge.Set(float64(stats.TotalStreams))
	wealthGauge.Set(MicrosToDollars(next.Stats.WealthMicros))
	s.log.Info("week complete",
		"week", next.Week,
		"new_streams", stats.NewStreams,
		"revenue_micros", stats.RevenueMicros,
		"career_level", next.Stats.CareerLevel,
		"notifications", len(notices),
	)
	return WeekResult{Stats: stats, Notifications: notices}, nil
}

// apply runs fn against a copy of the state and commits the copy only if
// fn succeeds and the save goes through. A reused idempotency key is
// rejected before fn runs.
func (s *Service) apply(ctx context.Context, action, idempotencyKey string, fn func(*GameState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refresh(ctx); err != nil {
		return err
	}

	next := s.current().Clone()
	if !next.rememberAction(idempotencyKey) {
		actionsTotal.WithLabelValues(action, "duplicate").Inc()
		return ErrDuplicateIdempotency
	}
	if err := fn(next); err != nil {
		actionsTotal.WithLabelValues(action, "rejected").Inc()
		s.log.Info("action rejected", "action", action, "err", err)
		return err
	}
	if err := s.commit(ctx, next); err != nil {
		actionsTotal.WithLabelValues(action, "error").Inc()
		return fmt.Errorf("save %s: %w", action, err)
	}
	actionsTotal.WithLabelValues(action, "ok").Inc()
	wealthGauge.Set(MicrosToDollars(next.Stats.WealthMicros))
	return nil
}

func (s *Service) CreateSong(ctx context.Context, in CreateSongInput) (Song, error) {
	var out Song
	err := s.apply(ctx, "create_song", in.IdempotencyKey, func(st *GameState) error {
		var err error
		out, err = st.CreateSong(in)
		return err
	})
	return out, err
}

func (s *Service) ReleaseSong(ctx context.Context, in ReleaseInput) (Song, error) {
	var out Song
	err := s.apply(ctx, "release_song", in.IdempotencyKey, func(st *GameState) error {
		var err error
		out, err = st.ReleaseSong(in)
		return err
	})
	return out, err
}

func (s *Service) PromoteSong(ctx context.Context, in PromoteInput) (Song, error) {
	var out Song
	err := s.apply(ctx, "promote_song", in.IdempotencyKey, func(st *GameState) error {
		var err error
		out, err = st.PromoteSong(in)
		return err
	})
	return out, err
}

func (s *Service) AddFeature(ctx context.Context, in FeatureInput) (Song, error) {
	var out Song
	err := s.apply(ctx, "add_feature", in.IdempotencyKey, func(st *GameState) error {
		var err error
		out, err = st.AddFeature(in)
		return err
	})
	return out, err
}

func (s *Service) CreateAlbum(ctx context.Context, in CreateAlbumInput) (Album, error) {
	var out Album
	err := s.apply(ctx, "create_album", in.IdempotencyKey, func(st *GameState) error {
		var err error
		out, err = st.CreateAlbum(in)
		return err
	})
	return out, err
}

func (s *Service) ReleaseAlbum(ctx context.Context, in ReleaseInput) (Album, error) {
	var out Album
	err := s.apply(ctx, "release_album", in.IdempotencyKey, func(st *GameState) error {
		var err error
		out, err = st.ReleaseAlbum(in)
		return err
	})
	return out, err
}

// DrainNotifications hands pending notifications to the presentation layer
// and clears them from the saved state.
func (s *Service) DrainNotifications(ctx context.Context) ([]Notification, error) {
	var out []Notification
	err := s.apply(ctx, "drain_notifications", "", func(st *GameState) error {
		out = st.DrainNotifications()
		return nil
	})
	return out, err
}

// WeeklyStats returns up to limit of the most recent ledger entries, oldest first.
func (s *Service) WeeklyStats(ctx context.Context, limit int) ([]WeeklyStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refresh(ctx); err != nil {
		return nil, err
	}
	all := s.current().WeeklyStats
	if limit <= 0 || limit > len(all) {
		limit = len(all)
	}
	out := make([]WeeklyStats, limit)
	copy(out, all[len(all)-limit:])
	for i := range out {
		out[i].PlatformNewStreams = maps.Clone(out[i].PlatformNewStreams)
	}
	return out, nil
}
