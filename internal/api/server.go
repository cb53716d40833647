package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"stardom/internal/config"
	"stardom/internal/game"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	cfg  config.APIConfig
	log  *slog.Logger
	game *game.Service
	hub  *Hub
	mux  *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, gameSvc *game.Service) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:  cfg,
		log:  logger,
		game: gameSvc,
		hub:  NewHub(logger),
		mux:  chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)

		// Websocket connections outlive the request timeout.
		r.Get("/events/ws", s.handleEvents)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.Get("/state", s.handleState)
			r.Post("/reset", s.handleReset)
			r.Post("/week/advance", s.handleAdvanceWeek)

			r.Get("/songs", s.handleSongsList)
			r.Post("/songs", s.handleCreateSong)
			r.Get("/songs/{id}", s.handleSongDetail)
			r.Post("/songs/{id}/release", s.handleReleaseSong)
			r.Post("/songs/{id}/promote", s.handlePromoteSong)
			r.Post("/songs/{id}/features", s.handleAddFeature)

			r.Get("/albums", s.handleAlbumsList)
			r.Post("/albums", s.handleCreateAlbum)
			r.Post("/albums/{id}/release", s.handleReleaseAlbum)

			r.Get("/platforms", s.handlePlatforms)
			r.Get("/trends", s.handleTrends)
			r.Get("/stats/weekly", s.handleWeeklyStats)
			r.Get("/certifications", s.handleCertifications)
			r.Get("/awards", s.handleAwards)
			r.Post("/notifications/drain", s.handleDrainNotifications)
		})
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.APIToken == "" {
			next.ServeHTTP(w, r)
			return
		}
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.APIToken)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	st, err := s.game.State(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state":             st,
		"career_level_name": game.CareerLevelName(st.Stats.CareerLevel),
		"wealth":            game.MicrosToDollars(st.Stats.WealthMicros),
		"week_of_year":      game.WeekOfYear(max(st.Week, 1)),
		"year":              game.YearOf(max(st.Week, 1)),
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ArtistName string `json:"artist_name"`
	}
	if err := decodeJSON(r, &in); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	st, err := s.game.Reset(r.Context(), in.ArtistName)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.hub.Broadcast(Event{Type: EventReset, Week: st.Week})
	writeJSON(w, http.StatusCreated, map[string]any{"state": st})
}

func (s *Server) handleAdvanceWeek(w http.ResponseWriter, r *http.Request) {
	res, err := s.game.AdvanceWeek(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.hub.PublishWeek(res.Stats, res.Notifications)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSongsList(w http.ResponseWriter, r *http.Request) {
	st, err := s.game.State(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	songs := st.Songs
	if r.URL.Query().Get("released") == "1" {
		songs = songs[:0:0]
		for _, song := range st.Songs {
			if song.Released {
				songs = append(songs, song)
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"songs": songs})
}

func (s *Server) handleSongDetail(w http.ResponseWriter, r *http.Request) {
	st, err := s.game.State(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	song, ok := st.Song(chi.URLParam(r, "id"))
	if !ok {
		writeDomainError(w, game.ErrSongNotFound)
		return
	}
	var certs []game.Certification
	for _, c := range st.Certifications {
		if c.EntityKind == game.EntitySong && c.EntityID == song.ID {
			certs = append(certs, c)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"song": song, "certifications": certs})
}

func (s *Server) handleCreateSong(w http.ResponseWriter, r *http.Request) {
	var in CreateSongRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	song, err := s.game.CreateSong(r.Context(), game.CreateSongInput{
		Title:          in.Title,
		Tier:           in.Tier,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"song": song})
}

func (s *Server) handleReleaseSong(w http.ResponseWriter, r *http.Request) {
	var in ReleaseRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	song, err := s.game.ReleaseSong(r.Context(), game.ReleaseInput{
		ID:             chi.URLParam(r, "id"),
		Platforms:      in.Platforms,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.hub.Broadcast(Event{Type: EventAction, Week: song.ReleaseWeek, Message: song.Title + " released"})
	writeJSON(w, http.StatusOK, map[string]any{"song": song})
}

func (s *Server) handlePromoteSong(w http.ResponseWriter, r *http.Request) {
	var in PromoteRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	song, err := s.game.PromoteSong(r.Context(), game.PromoteInput{
		SongID:         chi.URLParam(r, "id"),
		Type:           in.Type,
		BudgetMicros:   game.DollarsToMicros(in.Budget),
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"song": song})
}

func (s *Server) handleAddFeature(w http.ResponseWriter, r *http.Request) {
	var in FeatureRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	song, err := s.game.AddFeature(r.Context(), game.FeatureInput{
		SongID:         chi.URLParam(r, "id"),
		Artist:         in.Artist,
		FeeMicros:      game.DollarsToMicros(in.Fee),
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"song": song})
}

func (s *Server) handleAlbumsList(w http.ResponseWriter, r *http.Request) {
	st, err := s.game.State(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"albums": st.Albums})
}

func (s *Server) handleCreateAlbum(w http.ResponseWriter, r *http.Request) {
	var in CreateAlbumRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	album, err := s.game.CreateAlbum(r.Context(), game.CreateAlbumInput{
		Title:          in.Title,
		SongIDs:        in.SongIDs,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"album": album})
}

func (s *Server) handleReleaseAlbum(w http.ResponseWriter, r *http.Request) {
	var in ReleaseRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	album, err := s.game.ReleaseAlbum(r.Context(), game.ReleaseInput{
		ID:             chi.URLParam(r, "id"),
		Platforms:      in.Platforms,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.hub.Broadcast(Event{Type: EventAction, Week: album.ReleaseWeek, Message: album.Title + " released"})
	writeJSON(w, http.StatusOK, map[string]any{"album": album})
}

func (s *Server) handlePlatforms(w http.ResponseWriter, r *http.Request) {
	st, err := s.game.State(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]PlatformView, 0, len(st.Platforms))
	for _, p := range st.Platforms {
		spec, _ := game.PlatformSpecFor(p.Name)
		out = append(out, PlatformView{
			StreamingPlatform: p,
			MarketShare:       spec.Share,
			PayoutPerStream:   game.MicrosToDollars(spec.RateMicros),
			UnlockLevel:       spec.UnlockLevel,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"platforms": out, "table_version": game.PlatformTableVersion})
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	st, err := s.game.State(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"active":  st.ActiveTrends,
		"history": st.TrendHistory,
	})
}

func (s *Server) handleWeeklyStats(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	stats, err := s.game.WeeklyStats(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"weeks": stats})
}

func (s *Server) handleCertifications(w http.ResponseWriter, r *http.Request) {
	st, err := s.game.State(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"certifications": st.Certifications})
}

func (s *Server) handleAwards(w http.ResponseWriter, r *http.Request) {
	st, err := s.game.State(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	next := ""
	for week := st.Week + 1; week <= st.Week+game.WeeksPerYear; week++ {
		if show, ok := game.AwardShowAt(week); ok {
			next = show
			break
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"awards": st.Awards, "next_show": next})
}

func (s *Server) handleDrainNotifications(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.DrainNotifications(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": out})
}

// Watch polls the saved game and pushes a week event when another process
// (the worker) advanced it. It returns when ctx is done.
func (s *Server) Watch(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats, err := s.game.WeeklyStats(ctx, 1)
			if err != nil {
				s.log.Warn("events poll failed", "err", err)
				continue
			}
			if len(stats) == 1 {
				s.hub.PublishWeek(stats[0], nil)
			}
		}
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrSongNotFound), errors.Is(err, game.ErrAlbumNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrInsufficientFunds):
		writeError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, game.ErrDuplicateIdempotency),
		errors.Is(err, game.ErrStaleSave),
		errors.Is(err, game.ErrAlreadyReleased),
		errors.Is(err, game.ErrNotReleased),
		errors.Is(err, game.ErrSongInactive),
		errors.Is(err, game.ErrSongInAlbum),
		errors.Is(err, game.ErrFeatureAfterRelease),
		errors.Is(err, game.ErrDuplicateFeature),
		errors.Is(err, game.ErrPlatformLocked),
		errors.Is(err, game.ErrPromotionLocked):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrInvalidTier),
		errors.Is(err, game.ErrUnknownPlatform),
		errors.Is(err, game.ErrNoPlatforms),
		errors.Is(err, game.ErrInvalidPromotion),
		errors.Is(err, game.ErrInvalidBudget),
		errors.Is(err, game.ErrAlbumTrackCount),
		errors.Is(err, game.ErrInvalidName):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func idempotencyKey(r *http.Request) string {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key != "" {
		return key
	}
	return uuid.NewString()
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
