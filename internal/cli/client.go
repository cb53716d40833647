package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"stardom/internal/api"
	"stardom/internal/game"
)

// APIError is a non-2xx answer from the API. Anything else returned by
// the client is a transport failure.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

// Retryable reports whether replaying the same request later could succeed.
func (e *APIError) Retryable() bool {
	return e.Status >= 500 || e.Status == http.StatusRequestTimeout
}

type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type stateResponse struct {
	State *game.GameState `json:"state"`
}

func (c *Client) State(ctx context.Context) (*game.GameState, error) {
	var out stateResponse
	if err := c.jsonRequest(ctx, http.MethodGet, "/v1/state", nil, &out, ""); err != nil {
		return nil, err
	}
	return out.State, nil
}

func (c *Client) Reset(ctx context.Context, artistName string) (*game.GameState, error) {
	var out stateResponse
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/reset", map[string]any{"artist_name": artistName}, &out, "")
	return out.State, err
}

func (c *Client) AdvanceWeek(ctx context.Context) (game.WeekResult, error) {
	var out game.WeekResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/week/advance", nil, &out, "")
	return out, err
}

type songResponse struct {
	Song game.Song `json:"song"`
}

type albumResponse struct {
	Album game.Album `json:"album"`
}

func (c *Client) CreateSong(ctx context.Context, in api.CreateSongRequest, idem string) (game.Song, error) {
	var out songResponse
	err := c.jsonRequest(ctx, http.MethodPost, SongsPath(), in, &out, idem)
	return out.Song, err
}

func (c *Client) ReleaseSong(ctx context.Context, id string, in api.ReleaseRequest, idem string) (game.Song, error) {
	var out songResponse
	err := c.jsonRequest(ctx, http.MethodPost, SongPath(id, "release"), in, &out, idem)
	return out.Song, err
}

func (c *Client) PromoteSong(ctx context.Context, id string, in api.PromoteRequest, idem string) (game.Song, error) {
	var out songResponse
	err := c.jsonRequest(ctx, http.MethodPost, SongPath(id, "promote"), in, &out, idem)
	return out.Song, err
}

func (c *Client) AddFeature(ctx context.Context, id string, in api.FeatureRequest, idem string) (game.Song, error) {
	var out songResponse
	err := c.jsonRequest(ctx, http.MethodPost, SongPath(id, "features"), in, &out, idem)
	return out.Song, err
}

func (c *Client) CreateAlbum(ctx context.Context, in api.CreateAlbumRequest, idem string) (game.Album, error) {
	var out albumResponse
	err := c.jsonRequest(ctx, http.MethodPost, AlbumsPath(), in, &out, idem)
	return out.Album, err
}

func (c *Client) ReleaseAlbum(ctx context.Context, id string, in api.ReleaseRequest, idem string) (game.Album, error) {
	var out albumResponse
	err := c.jsonRequest(ctx, http.MethodPost, AlbumPath(id, "release"), in, &out, idem)
	return out.Album, err
}

func (c *Client) WeeklyStats(ctx context.Context, limit int) ([]game.WeeklyStats, error) {
	var out struct {
		Weeks []game.WeeklyStats `json:"weeks"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/stats/weekly?limit="+strconv.Itoa(limit), nil, &out, "")
	return out.Weeks, err
}

func (c *Client) DrainNotifications(ctx context.Context) ([]game.Notification, error) {
	var out struct {
		Notifications []game.Notification `json:"notifications"`
	}
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/notifications/drain", nil, &out, "")
	return out.Notifications, err
}

// Do sends a raw JSON body. It is used to replay queued commands.
func (c *Client) Do(ctx context.Context, method, path string, body json.RawMessage, idem string) error {
	var in any
	if len(body) > 0 {
		in = body
	}
	return c.jsonRequest(ctx, method, path, in, nil, idem)
}

func SongsPath() string { return "/v1/songs" }

func SongPath(id, action string) string {
	return "/v1/songs/" + url.PathEscape(id) + "/" + action
}

func AlbumsPath() string { return "/v1/albums" }

func AlbumPath(id, action string) string {
	return "/v1/albums/" + url.PathEscape(id) + "/" + action
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, in any, out any, idem string) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if idem != "" {
		req.Header.Set("Idempotency-Key", idem)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(raw))
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
			msg = payload.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// IsOffline reports whether err means the API could not be reached.
func IsOffline(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return false
	}
	return !errors.Is(err, context.Canceled)
}
