package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"stardom/internal/game"
)

const writeWait = 10 * time.Second

const (
	EventHello  = "hello"
	EventWeek   = "week"
	EventAction = "action"
	EventReset  = "reset"
)

// Event is one websocket message. Clients only receive, anything they send
// is read and dropped.
type Event struct {
	Type          string              `json:"type"`
	Week          int                 `json:"week"`
	Message       string              `json:"message,omitempty"`
	Stats         *game.WeeklyStats   `json:"stats,omitempty"`
	Notifications []game.Notification `json:"notifications,omitempty"`
	ServerTime    int64               `json:"server_time"`
}

type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *subscriber) write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub fans game events out to websocket subscribers.
type Hub struct {
	log *slog.Logger

	mu       sync.Mutex
	subs     map[*subscriber]struct{}
	lastWeek int
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		log:  logger,
		subs: make(map[*subscriber]struct{}),
	}
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// PublishWeek broadcasts a week event unless that week was already sent.
func (h *Hub) PublishWeek(stats game.WeeklyStats, notices []game.Notification) {
	h.mu.Lock()
	if stats.Week == h.lastWeek {
		h.mu.Unlock()
		return
	}
	h.lastWeek = stats.Week
	h.mu.Unlock()

	h.Broadcast(Event{
		Type:          EventWeek,
		Week:          stats.Week,
		Stats:         &stats,
		Notifications: notices,
	})
}

func (h *Hub) Broadcast(ev Event) {
	if ev.Type == EventReset {
		h.mu.Lock()
		h.lastWeek = ev.Week
		h.mu.Unlock()
	}
	ev.ServerTime = time.Now().UnixMilli()
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.Error("encode event", "type", ev.Type, "err", err)
		return
	}

	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subs))
	for sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		if err := sub.write(data); err != nil {
			h.log.Debug("dropping event subscriber", "err", err)
			h.remove(sub)
		}
	}
}

func (h *Hub) add(conn *websocket.Conn) *subscriber {
	sub := &subscriber{conn: conn}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	_, ok := h.subs[sub]
	delete(h.subs, sub)
	h.mu.Unlock()
	if ok {
		sub.conn.Close()
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	st, err := s.game.State(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "err", err)
		return
	}

	sub := s.hub.add(conn)
	hello, err := json.Marshal(Event{
		Type:       EventHello,
		Week:       st.Week,
		Message:    st.ArtistName,
		ServerTime: time.Now().UnixMilli(),
	})
	if err != nil || sub.write(hello) != nil {
		s.hub.remove(sub)
		return
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.hub.remove(sub)
			return
		}
	}
}
