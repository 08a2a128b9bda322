package websocket

import (
	"context"

	"go.uber.org/zap"

	"github.com/maestro-run/maestro/internal/eventbus"
	"github.com/maestro-run/maestro/internal/platform/logger"
	ws "github.com/maestro-run/maestro/pkg/websocket"
)

// bridgeTopicPatterns is the fixed set of event bus topics the bridge
// relays, expressed as the bus's own wildcard patterns (spec.md §4.9, §6).
// Every topic in eventbus/topics.go falls under exactly one of these.
var bridgeTopicPatterns = []string{
	"project:*",
	"task:*",
	"session:*",
	"mail:*",
	"notify:*",
}

// Bridge subscribes to the bus and forwards every matching event to the
// hub as a `{type, event, data, timestamp}` frame.
type Bridge struct {
	hub *Hub
	bus eventbus.Bus
	log *logger.Logger
}

// NewBridge constructs a Bridge over hub and bus.
func NewBridge(hub *Hub, bus eventbus.Bus, log *logger.Logger) *Bridge {
	return &Bridge{hub: hub, bus: bus, log: log.WithFields(zap.String("component", "ws_bridge"))}
}

// Start subscribes the bridge to every pattern in bridgeTopicPatterns.
func (b *Bridge) Start(ctx context.Context) error {
	for _, pattern := range bridgeTopicPatterns {
		pattern := pattern
		if _, err := b.bus.Subscribe(pattern, func(_ context.Context, e *eventbus.Event) error {
			b.hub.Broadcast(ws.NewFrame(e.Topic, e.Data))
			return nil
		}); err != nil {
			return err
		}
	}
	b.log.Info("websocket bridge subscribed", zap.Strings("patterns", bridgeTopicPatterns))
	return nil
}
