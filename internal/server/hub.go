package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/ChicagoDave/casemap/internal/metrics"
	"github.com/ChicagoDave/casemap/pkg/bus"
	"github.com/ChicagoDave/casemap/pkg/clock"
)

var upgrader = websocket.Upgrader{
	// The dev server is local; any page may follow the clock.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans clock events out to websocket clients.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
	log     *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]bool),
		log:     log,
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeWS upgrades the request, sends hello and keeps the client registered
// until it disconnects. Client messages are read and discarded.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, hello []byte) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws_upgrade_failed", "err", err)
		return
	}

	h.mu.Lock()
	if hello != nil {
		if err := conn.WriteMessage(websocket.TextMessage, hello); err != nil {
			h.mu.Unlock()
			conn.Close()
			return
		}
	}
	h.clients[conn] = true
	metrics.WebsocketClients.Set(float64(len(h.clients)))
	h.mu.Unlock()
	h.log.Debug("ws_client_connected", "remote", r.RemoteAddr)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(conn)
	h.log.Debug("ws_client_disconnected", "remote", r.RemoteAddr)
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[conn] {
		delete(h.clients, conn)
		conn.Close()
	}
	metrics.WebsocketClients.Set(float64(len(h.clients)))
}

// Broadcast writes message to every client. Clients that fail are dropped.
func (h *Hub) Broadcast(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			h.log.Debug("ws_send_failed", "err", err)
			conn.Close()
			delete(h.clients, conn)
		}
	}
	metrics.WebsocketClients.Set(float64(len(h.clients)))
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
	metrics.WebsocketClients.Set(0)
}

// Run forwards time changes published on b until ctx is done. Events are
// buffered so a slow client never blocks the clock; bursts beyond the
// buffer are dropped and the next event catches clients up.
func (h *Hub) Run(ctx context.Context, b *bus.Bus) {
	events, sub := bus.SubscribeChan(b, clock.TopicTimeChanged, 64)
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			data, err := json.Marshal(ev)
			if err != nil {
				h.log.Error("ws_encode_failed", "err", err)
				continue
			}
			h.Broadcast(data)
		}
	}
}
