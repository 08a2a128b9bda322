package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/maestro-run/maestro/internal/platform/logger"
)

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler upgrades an HTTP connection to WebSocket and registers the
// resulting Client with the Hub.
type Handler struct {
	hub    *Hub
	logger *logger.Logger
}

// NewHandler constructs a Handler bound to hub.
func NewHandler(hub *Hub, log *logger.Logger) *Handler {
	return &Handler{hub: hub, logger: log.WithFields(zap.String("component", "ws_handler"))}
}

// HandleConnection is the gin handler mounted at `ws://host:<port>`
// (spec.md §6).
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Debug("failed to upgrade connection", zap.Error(err))
		return
	}

	client := NewClient(uuid.New().String(), conn, h.hub, h.logger)
	h.hub.Register(client)

	go client.WritePump()
	client.ReadPump(c.Request.Context())
}
