package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	ws "github.com/maestro-run/maestro/pkg/websocket"

	"github.com/maestro-run/maestro/internal/platform/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024

	// sendBufferSize bounds a client's outbound queue (spec.md §5
	// "bounded outbound buffer"); overflow disconnects the client.
	sendBufferSize = 256
)

// Client is one connected WebSocket peer.
type Client struct {
	ID     string
	conn   *websocket.Conn
	hub    *Hub
	send   chan []byte
	mu     sync.Mutex
	closed bool
	logger *logger.Logger
}

// NewClient constructs a Client bound to conn.
func NewClient(id string, conn *websocket.Conn, hub *Hub, log *logger.Logger) *Client {
	return &Client{
		ID:     id,
		conn:   conn,
		hub:    hub,
		send:   make(chan []byte, sendBufferSize),
		logger: log.WithFields(zap.String("clientId", id)),
	}
}

// ReadPump reads frames from the connection until it errors or closes. The
// only client->server frame this protocol defines is `{type:"ping"}`
// (spec.md §6); anything else is logged and ignored.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		if err := c.conn.Close(); err != nil {
			c.logger.Debug("failed to close websocket connection", zap.Error(err))
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Debug("failed to set read deadline", zap.Error(err))
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNoStatusReceived, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		var frame ws.ClientFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			c.logger.Debug("failed to parse client frame", zap.Error(err))
			continue
		}
		if frame.Type == string(ws.FramePing) {
			c.sendFrame(ws.PongFrame())
		}
	}
}

// sendFrame marshals frame and enqueues it, returning false only if the
// client's outbound buffer is full; a client whose send channel is already
// closed drops the frame and reports true.
func (c *Client) sendFrame(frame *ws.Frame) bool {
	data, err := json.Marshal(frame)
	if err != nil {
		c.logger.Error("failed to marshal frame", zap.Error(err))
		return true // not a back-pressure failure; don't punish the client
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// WritePump writes queued frames and periodic pings to the connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil {
			c.logger.Debug("failed to close websocket connection", zap.Error(err))
		}
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Debug("failed to set write deadline", zap.Error(err))
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			// One WS TextMessage per queued frame (pkg/websocket/message.go's
			// one-frame-per-event contract); never batch multiple frames into
			// a single physical message.
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Debug("failed to write websocket message", zap.Error(err))
				return
			}

			n := len(c.send)
			for i := 0; i < n; i++ {
				if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
					c.logger.Debug("failed to set write deadline", zap.Error(err))
				}
				if err := c.conn.WriteMessage(websocket.TextMessage, <-c.send); err != nil {
					c.logger.Debug("failed to write websocket message", zap.Error(err))
					return
				}
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Debug("failed to set write deadline", zap.Error(err))
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
