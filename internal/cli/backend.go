package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"stardom/internal/api"
	"stardom/internal/game"
	"stardom/internal/store"
	"stardom/internal/syncq"
)

// ErrQueued is returned by a remote write that could not reach the API and
// was parked in the offline queue.
var ErrQueued = errors.New("api unreachable, command queued for sync")

// Backend is what the CLI commands drive: a local save or a remote API.
type Backend interface {
	State(ctx context.Context) (*game.GameState, error)
	Reset(ctx context.Context, artistName string) (*game.GameState, error)
	AdvanceWeek(ctx context.Context) (game.WeekResult, error)
	CreateSong(ctx context.Context, in api.CreateSongRequest, idem string) (game.Song, error)
	ReleaseSong(ctx context.Context, id string, in api.ReleaseRequest, idem string) (game.Song, error)
	PromoteSong(ctx context.Context, id string, in api.PromoteRequest, idem string) (game.Song, error)
	AddFeature(ctx context.Context, id string, in api.FeatureRequest, idem string) (game.Song, error)
	CreateAlbum(ctx context.Context, in api.CreateAlbumRequest, idem string) (game.Album, error)
	ReleaseAlbum(ctx context.Context, id string, in api.ReleaseRequest, idem string) (game.Album, error)
	WeeklyStats(ctx context.Context, limit int) ([]game.WeeklyStats, error)
	DrainNotifications(ctx context.Context) ([]game.Notification, error)
	Close() error
}

// Local plays against a save on this machine.
type Local struct {
	svc   *game.Service
	store store.Store
}

func NewLocal(svc *game.Service, st store.Store) *Local {
	return &Local{svc: svc, store: st}
}

func (l *Local) State(ctx context.Context) (*game.GameState, error) {
	return l.svc.State(ctx)
}

func (l *Local) Reset(ctx context.Context, artistName string) (*game.GameState, error) {
	return l.svc.Reset(ctx, artistName)
}

func (l *Local) AdvanceWeek(ctx context.Context) (game.WeekResult, error) {
	return l.svc.AdvanceWeek(ctx)
}

func (l *Local) CreateSong(ctx context.Context, in api.CreateSongRequest, idem string) (game.Song, error) {
	return l.svc.CreateSong(ctx, game.CreateSongInput{Title: in.Title, Tier: in.Tier, IdempotencyKey: idem})
}

func (l *Local) ReleaseSong(ctx context.Context, id string, in api.ReleaseRequest, idem string) (game.Song, error) {
	return l.svc.ReleaseSong(ctx, game.ReleaseInput{ID: id, Platforms: in.Platforms, IdempotencyKey: idem})
}

func (l *Local) PromoteSong(ctx context.Context, id string, in api.PromoteRequest, idem string) (game.Song, error) {
	return l.svc.PromoteSong(ctx, game.PromoteInput{
		SongID:         id,
		Type:           in.Type,
		BudgetMicros:   game.DollarsToMicros(in.Budget),
		IdempotencyKey: idem,
	})
}

func (l *Local) AddFeature(ctx context.Context, id string, in api.FeatureRequest, idem string) (game.Song, error) {
	return l.svc.AddFeature(ctx, game.FeatureInput{
		SongID:         id,
		Artist:         in.Artist,
		FeeMicros:      game.DollarsToMicros(in.Fee),
		IdempotencyKey: idem,
	})
}

func (l *Local) CreateAlbum(ctx context.Context, in api.CreateAlbumRequest, idem string) (game.Album, error) {
	return l.svc.CreateAlbum(ctx, game.CreateAlbumInput{Title: in.Title, SongIDs: in.SongIDs, IdempotencyKey: idem})
}

func (l *Local) ReleaseAlbum(ctx context.Context, id string, in api.ReleaseRequest, idem string) (game.Album, error) {
	return l.svc.ReleaseAlbum(ctx, game.ReleaseInput{ID: id, Platforms: in.Platforms, IdempotencyKey: idem})
}

func (l *Local) WeeklyStats(ctx context.Context, limit int) ([]game.WeeklyStats, error) {
	return l.svc.WeeklyStats(ctx, limit)
}

func (l *Local) DrainNotifications(ctx context.Context) ([]game.Notification, error) {
	return l.svc.DrainNotifications(ctx)
}

func (l *Local) Close() error {
	return l.store.Close()
}

// Remote plays against the API. Writes that fail to reach it go to the
// offline queue.
type Remote struct {
	client *Client
	queue  *syncq.Queue
}

func NewRemote(client *Client, queue *syncq.Queue) *Remote {
	return &Remote{client: client, queue: queue}
}

func (r *Remote) State(ctx context.Context) (*game.GameState, error) {
	return r.client.State(ctx)
}

func (r *Remote) Reset(ctx context.Context, artistName string) (*game.GameState, error) {
	return r.client.Reset(ctx, artistName)
}

func (r *Remote) AdvanceWeek(ctx context.Context) (game.WeekResult, error) {
	return r.client.AdvanceWeek(ctx)
}

func (r *Remote) CreateSong(ctx context.Context, in api.CreateSongRequest, idem string) (game.Song, error) {
	song, err := r.client.CreateSong(ctx, in, idem)
	return song, r.queueOnNetworkError(err, SongsPath(), in, idem)
}

func (r *Remote) ReleaseSong(ctx context.Context, id string, in api.ReleaseRequest, idem string) (game.Song, error) {
	song, err := r.client.ReleaseSong(ctx, id, in, idem)
	return song, r.queueOnNetworkError(err, SongPath(id, "release"), in, idem)
}

func (r *Remote) PromoteSong(ctx context.Context, id string, in api.PromoteRequest, idem string) (game.Song, error) {
	song, err := r.client.PromoteSong(ctx, id, in, idem)
	return song, r.queueOnNetworkError(err, SongPath(id, "promote"), in, idem)
}

func (r *Remote) AddFeature(ctx context.Context, id string, in api.FeatureRequest, idem string) (game.Song, error) {
	song, err := r.client.AddFeature(ctx, id, in, idem)
	return song, r.queueOnNetworkError(err, SongPath(id, "features"), in, idem)
}

func (r *Remote) CreateAlbum(ctx context.Context, in api.CreateAlbumRequest, idem string) (game.Album, error) {
	album, err := r.client.CreateAlbum(ctx, in, idem)
	return album, r.queueOnNetworkError(err, AlbumsPath(), in, idem)
}

func (r *Remote) ReleaseAlbum(ctx context.Context, id string, in api.ReleaseRequest, idem string) (game.Album, error) {
	album, err := r.client.ReleaseAlbum(ctx, id, in, idem)
	return album, r.queueOnNetworkError(err, AlbumPath(id, "release"), in, idem)
}

func (r *Remote) WeeklyStats(ctx context.Context, limit int) ([]game.WeeklyStats, error) {
	return r.client.WeeklyStats(ctx, limit)
}

func (r *Remote) DrainNotifications(ctx context.Context) ([]game.Notification, error) {
	return r.client.DrainNotifications(ctx)
}

func (r *Remote) Close() error {
	return nil
}

func (r *Remote) queueOnNetworkError(err error, path string, body any, idem string) error {
	if err == nil || r.queue == nil || !IsOffline(err) {
		return err
	}
	raw, mErr := json.Marshal(body)
	if mErr != nil {
		return err
	}
	if _, qErr := r.queue.Push(syncq.Command{
		Method:         http.MethodPost,
		Path:           path,
		Body:           raw,
		IdempotencyKey: idem,
	}); qErr != nil {
		return fmt.Errorf("%w (queueing failed: %v)", err, qErr)
	}
	return fmt.Errorf("%w: %v", ErrQueued, err)
}

type SyncResult struct {
	Replayed  int
	Dropped   []DroppedCommand
	Remaining int
}

type DroppedCommand struct {
	Command syncq.Command
	Err     error
}

// Sync replays the offline queue in order. A command the API rejects for
// good is dropped. Transport failures and 5xx answers stay queued, and so
// does anything queued while the replay runs.
func Sync(ctx context.Context, client *Client, queue *syncq.Queue) (SyncResult, error) {
	var res SyncResult
	commands, err := queue.Load()
	if err != nil {
		return res, err
	}
	done := make([]string, 0, len(commands))
	for i, cmd := range commands {
		err := client.Do(ctx, cmd.Method, cmd.Path, cmd.Body, cmd.IdempotencyKey)
		var apiErr *APIError
		switch {
		case err == nil:
			res.Replayed++
		case errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict && apiErr.Message == game.ErrDuplicateIdempotency.Error():
			// Already applied by an earlier partial sync.
			res.Replayed++
		case errors.As(err, &apiErr) && !apiErr.Retryable():
			res.Dropped = append(res.Dropped, DroppedCommand{Command: cmd, Err: err})
		default:
			// Keep order: once the API is unreachable, nothing after it is sent.
			res.Remaining = len(commands) - i
			return res, queue.Remove(done)
		}
		done = append(done, cmd.ID)
	}
	return res, queue.Remove(done)
}
