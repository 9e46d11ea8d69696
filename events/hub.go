// Package events pushes UI-directed events to websocket clients.
package events

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Event types sent to clients.
const (
	TypeSelection = "selection"
	TypeOpen      = "open"
	TypeCapture   = "capture"
)

const clientBuffer = 64

// Event is one message on the wire.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// OpenRequest asks the UI to show Src in a new tab or window.
type OpenRequest struct {
	Src string `json:"src"`
}

// Hub fans events out to all connected clients. Slow clients drop events
// instead of blocking the broadcaster.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]chan Event
}

func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[string]chan Event),
	}
}

// Broadcast sends ev to every connected client.
func (h *Hub) Broadcast(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, ch := range h.clients {
		select {
		case ch <- ev:
		default:
			slog.Warn("Event client is lagging, dropping event", "client", id, "type", ev.Type)
		}
	}
}

// Open implements export.ContextOpener by asking connected UIs to open src.
func (h *Hub) Open(ctx context.Context, src string) {
	h.Broadcast(Event{Type: TypeOpen, Data: OpenRequest{Src: src}})
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams events until the client leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("WS upgrade error", "error", err)
		return
	}
	defer conn.Close()

	id, out := h.register()
	defer h.unregister(id)
	slog.Debug("Event client connected", "client", id)

	// Goroutine: pump events to the client. It is the only writer and exits
	// when unregister closes out.
	go func() {
		for ev := range out {
			if err := conn.WriteJSON(ev); err != nil {
				slog.Debug("Event write failed", "client", id, "error", err)
				return
			}
		}
	}()

	// Clients only listen; reading drives control frames and detects close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			slog.Debug("Event client disconnected", "client", id)
			return
		}
	}
}

func (h *Hub) register() (string, <-chan Event) {
	id := uuid.New().String()
	ch := make(chan Event, clientBuffer)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[id] = ch
	return id, ch
}

func (h *Hub) unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.clients[id]; ok {
		close(ch)
		delete(h.clients, id)
	}
}
