package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"stardom/internal/config"
	"stardom/internal/game"
	"stardom/internal/store"
)

func newTestServer(t *testing.T, token string) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tuning := game.DefaultTuning()
	tuning.Seed = 11
	svc := game.NewService(store.NewFileStore(filepath.Join(t.TempDir(), "save.json")), game.NewEngine(tuning, logger), logger)
	if err := svc.Open(context.Background(), "Api Artist"); err != nil {
		t.Fatalf("open: %v", err)
	}
	return New(config.APIConfig{APIToken: token}, logger, svc)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, headers map[string]string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]any
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return rec.Code, out
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestServer(t, "secret").Handler()
	if code, _ := doJSON(t, h, http.MethodGet, "/healthz", nil, nil); code != http.StatusOK {
		t.Fatalf("healthz %d", code)
	}
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "stardom_weeks_advanced_total") {
		t.Fatalf("metrics %d missing game collectors", rec.Code)
	}
}

func TestCareerFlow(t *testing.T) {
	h := newTestServer(t, "").Handler()

	code, out := doJSON(t, h, http.MethodPost, "/v1/songs", CreateSongRequest{Title: "Opening Night", Tier: 2}, nil)
	if code != http.StatusCreated {
		t.Fatalf("create song %d %v", code, out)
	}
	id := out["song"].(map[string]any)["id"].(string)

	code, out = doJSON(t, h, http.MethodPost, "/v1/songs/"+id+"/release", ReleaseRequest{Platforms: []string{"streamify", "ClipTube"}}, nil)
	if code != http.StatusOK {
		t.Fatalf("release %d %v", code, out)
	}
	platforms := out["song"].(map[string]any)["release_platforms"].([]any)
	if len(platforms) != 2 || platforms[0] != "Streamify" {
		t.Fatalf("release platforms %v", platforms)
	}

	for week := 1; week <= 3; week++ {
		code, out = doJSON(t, h, http.MethodPost, "/v1/week/advance", nil, nil)
		if code != http.StatusOK {
			t.Fatalf("advance %d %v", code, out)
		}
		if got := int(out["stats"].(map[string]any)["week"].(float64)); got != week {
			t.Fatalf("advanced to week %d want %d", got, week)
		}
	}

	code, out = doJSON(t, h, http.MethodGet, "/v1/state", nil, nil)
	if code != http.StatusOK {
		t.Fatalf("state %d", code)
	}
	state := out["state"].(map[string]any)
	if int(state["week"].(float64)) != 3 || out["career_level_name"] == "" {
		t.Fatalf("unexpected state %v", out)
	}

	code, out = doJSON(t, h, http.MethodGet, "/v1/stats/weekly?limit=2", nil, nil)
	if code != http.StatusOK {
		t.Fatalf("weekly %d", code)
	}
	weeks := out["weeks"].([]any)
	if len(weeks) != 2 || int(weeks[1].(map[string]any)["week"].(float64)) != 3 {
		t.Fatalf("weekly stats %v", weeks)
	}

	code, out = doJSON(t, h, http.MethodGet, "/v1/platforms", nil, nil)
	if code != http.StatusOK || len(out["platforms"].([]any)) != len(game.PlatformCatalog()) {
		t.Fatalf("platforms %d %v", code, out)
	}

	code, out = doJSON(t, h, http.MethodPost, "/v1/notifications/drain", nil, nil)
	if code != http.StatusOK || len(out["notifications"].([]any)) == 0 {
		t.Fatalf("drain %d %v", code, out)
	}
	code, out = doJSON(t, h, http.MethodPost, "/v1/notifications/drain", nil, nil)
	if code != http.StatusOK || out["notifications"] != nil && len(out["notifications"].([]any)) != 0 {
		t.Fatalf("second drain %d %v", code, out)
	}
}

func TestErrorMapping(t *testing.T) {
	h := newTestServer(t, "").Handler()

	code, out := doJSON(t, h, http.MethodPost, "/v1/songs", CreateSongRequest{Title: "Cheap", Tier: 1}, nil)
	if code != http.StatusCreated {
		t.Fatalf("create %d", code)
	}
	id := out["song"].(map[string]any)["id"].(string)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"bad tier", http.MethodPost, "/v1/songs", CreateSongRequest{Title: "Nope", Tier: 9}, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/v1/songs", map[string]any{"title": "x", "tier": 1, "mood": "sad"}, http.StatusBadRequest},
		{"missing song", http.MethodPost, "/v1/songs/missing/release", ReleaseRequest{Platforms: []string{"Streamify"}}, http.StatusNotFound},
		{"unknown platform", http.MethodPost, "/v1/songs/" + id + "/release", ReleaseRequest{Platforms: []string{"Myspace"}}, http.StatusBadRequest},
		{"locked platform", http.MethodPost, "/v1/songs/" + id + "/release", ReleaseRequest{Platforms: []string{"HiFiHaus"}}, http.StatusConflict},
		{"promote unreleased", http.MethodPost, "/v1/songs/" + id + "/promote", PromoteRequest{Type: "social", Budget: 10}, http.StatusConflict},
		{"too expensive", http.MethodPost, "/v1/songs", CreateSongRequest{Title: "Epic", Tier: 5}, http.StatusPaymentRequired},
		{"missing song detail", http.MethodGet, "/v1/songs/missing", nil, http.StatusNotFound},
		{"bad limit", http.MethodGet, "/v1/stats/weekly?limit=-1", nil, http.StatusBadRequest},
	}
	for _, tc := range tests {
		code, out := doJSON(t, h, tc.method, tc.path, tc.body, nil)
		if code != tc.want {
			t.Fatalf("%s: status %d want %d (%v)", tc.name, code, tc.want, out)
		}
		if out["error"] == nil {
			t.Fatalf("%s: missing error body", tc.name)
		}
	}
}

func TestIdempotencyHeader(t *testing.T) {
	h := newTestServer(t, "").Handler()
	headers := map[string]string{"Idempotency-Key": "create-once"}
	if code, _ := doJSON(t, h, http.MethodPost, "/v1/songs", CreateSongRequest{Title: "Once", Tier: 1}, headers); code != http.StatusCreated {
		t.Fatalf("first create %d", code)
	}
	if code, _ := doJSON(t, h, http.MethodPost, "/v1/songs", CreateSongRequest{Title: "Once", Tier: 1}, headers); code != http.StatusConflict {
		t.Fatalf("replayed create %d", code)
	}
	_, out := doJSON(t, h, http.MethodGet, "/v1/songs", nil, nil)
	if n := len(out["songs"].([]any)); n != 1 {
		t.Fatalf("songs after replay %d", n)
	}
}

func TestBearerToken(t *testing.T) {
	h := newTestServer(t, "secret").Handler()
	if code, _ := doJSON(t, h, http.MethodGet, "/v1/state", nil, nil); code != http.StatusUnauthorized {
		t.Fatalf("no token %d", code)
	}
	if code, _ := doJSON(t, h, http.MethodGet, "/v1/state", nil, map[string]string{"Authorization": "Bearer wrong"}); code != http.StatusUnauthorized {
		t.Fatalf("wrong token %d", code)
	}
	if code, _ := doJSON(t, h, http.MethodGet, "/v1/state", nil, map[string]string{"Authorization": "bearer secret"}); code != http.StatusOK {
		t.Fatalf("valid token %d", code)
	}
}

func TestBearerTokenParsing(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Bearer abc", "abc"},
		{"  bearer  xyz ", "xyz"},
		{"Basic abc", ""},
		{"Bearer", ""},
		{"", ""},
	}
	for _, tc := range tests {
		if got := bearerToken(tc.in); got != tc.want {
			t.Fatalf("bearerToken(%q) = %q want %q", tc.in, got, tc.want)
		}
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var ev Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return ev
}

func TestEventsWebsocket(t *testing.T) {
	srv := newTestServer(t, "")
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/v1/events/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if ev := readEvent(t, conn); ev.Type != EventHello || ev.Message != "Api Artist" {
		t.Fatalf("hello %+v", ev)
	}

	resp, err := http.Post(ts.URL+"/v1/week/advance", "application/json", nil)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	resp.Body.Close()

	ev := readEvent(t, conn)
	if ev.Type != EventWeek || ev.Week != 1 || ev.Stats == nil || ev.Stats.Week != 1 {
		t.Fatalf("week event %+v", ev)
	}
	if srv.Hub().Count() != 1 {
		t.Fatalf("subscribers %d", srv.Hub().Count())
	}

	// The poller must not repeat a week the hub already sent.
	srv.Hub().PublishWeek(*ev.Stats, nil)
	srv.Hub().Broadcast(Event{Type: EventAction, Message: "marker"})
	if ev := readEvent(t, conn); ev.Type != EventAction || ev.Message != "marker" {
		t.Fatalf("expected marker after deduplicated week, got %+v", ev)
	}
}
