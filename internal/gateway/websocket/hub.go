// Package websocket is the WebSocket Bridge of spec.md §4.9: it subscribes
// to the fixed event bus topic set and fans framed messages out to every
// connected client.
package websocket

import (
	"context"
	"sync"

	"go.uber.org/zap"

	ws "github.com/maestro-run/maestro/pkg/websocket"

	"github.com/maestro-run/maestro/internal/platform/logger"
)

// Hub tracks connected clients and broadcasts frames to all of them. Unlike
// the teacher's hub, Maestro has no task-scoped subscription routing: every
// frame goes to every client (spec.md §4.9's broadcast is unconditional).
type Hub struct {
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *ws.Frame

	mu     sync.RWMutex
	logger *logger.Logger
}

// NewHub constructs an empty Hub.
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *ws.Frame, 256),
		logger:     log.WithFields(zap.String("component", "ws_hub")),
	}
}

// Run processes registration and broadcast until ctx is cancelled, at which
// point it closes every client's send channel (spec.md §5 shutdown: "close
// all WebSockets with a normal code").
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("websocket hub started")
	defer h.logger.Info("websocket hub stopped")

	for {
		select {
		case <-ctx.Done():
			h.closeAllClients()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("client registered", zap.String("clientId", client.ID))

		case client := <-h.unregister:
			h.removeClient(client)

		case frame := <-h.broadcast:
			h.broadcastFrame(frame)
		}
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		client.closeSend()
		delete(h.clients, client)
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		client.closeSend()
	}
	h.logger.Debug("client unregistered", zap.String("clientId", client.ID))
}

// broadcastFrame hands frame to every client, each of which marshals it into
// its bounded outbound buffer, disconnecting any client whose buffer is already full
// (spec.md §5: "Exceeding it disconnects that client; other clients
// continue" — a deliberate change from the teacher's silent-drop-on-full).
func (h *Hub) broadcastFrame(frame *ws.Frame) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		if !client.sendFrame(frame) {
			h.logger.Warn("disconnecting client after outbound buffer overflow", zap.String("clientId", client.ID))
			// Called from the hub's own run loop: remove directly rather than
			// through the unregister channel, which only that loop drains.
			h.removeClient(client)
		}
	}
}

// Register adds client to the hub.
func (h *Hub) Register(client *Client) { h.register <- client }

// Unregister removes client from the hub.
func (h *Hub) Unregister(client *Client) { h.unregister <- client }

// Broadcast enqueues frame for delivery to every connected client.
func (h *Hub) Broadcast(frame *ws.Frame) { h.broadcast <- frame }

// ClientCount returns the number of currently connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
