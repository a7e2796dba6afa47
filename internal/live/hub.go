package live

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"sync"

	"aimdot-bot/internal/config"
	"aimdot-bot/internal/domain"
	"aimdot-bot/internal/metrics"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const broadcastBuffer = 64

// Event is what dashboard clients receive for every party change.
type Event struct {
	Type  string            `json:"type"`
	Mode  domain.RenderMode `json:"mode"`
	Party *domain.Party     `json:"party"`
}

// Hub fans party events out to connected dashboard websockets.
type Hub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}

	mu       sync.RWMutex
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

func NewHub(cfg *config.Config, logger zerolog.Logger) *Hub {
	h := &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, broadcastBuffer),
		done:       make(chan struct{}),
		logger:     logger.With().Str("component", "live").Logger(),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return slices.Contains(allowed, u.Scheme+"://"+u.Host)
	}
}

// Run owns the client set until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info().Msg("live hub started")
	defer close(h.done)

	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()
			metrics.LiveClients.Inc()
			h.logger.Debug().Str("client_id", c.id).Int("clients", h.ClientCount()).Msg("client connected")

		case c := <-h.unregister:
			h.remove(c)

		case msg := <-h.broadcast:
			h.mu.RLock()
			var slow []*Client
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.RUnlock()
			for _, c := range slow {
				h.logger.Warn().Str("client_id", c.id).Msg("dropping slow client")
				h.remove(c)
			}

		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
				metrics.LiveClients.Dec()
			}
			h.mu.Unlock()
			h.logger.Info().Msg("live hub stopped")
			return
		}
	}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		metrics.LiveClients.Dec()
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Name() string {
	return "live"
}

// PartyChanged queues the event for every client. A full queue drops the event.
func (h *Hub) PartyChanged(_ context.Context, party *domain.Party, mode domain.RenderMode) error {
	msg, err := json.Marshal(Event{Type: "party", Mode: mode, Party: party})
	if err != nil {
		return fmt.Errorf("failed to marshal live event: %w", err)
	}
	select {
	case h.broadcast <- msg:
		return nil
	case <-h.done:
		return nil
	default:
		return fmt.Errorf("live broadcast queue full")
	}
}

// ServeWS upgrades the request and attaches the connection to the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := newClient(h, conn)
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}
