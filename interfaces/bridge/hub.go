package bridge

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// Hub maintains the active renderer connections and fans frames out to all
// of them. A single local explorer session usually has one connection, but
// nothing prevents opening the UI in several tabs.
type Hub struct {
	connections map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte

	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
}

// NewHub creates a hub
func NewHub(logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		connections: make(map[*Client]bool),
		register:    make(chan *Client, 16),
		unregister:  make(chan *Client, 16),
		broadcast:   make(chan []byte, 256),
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger.Named("hub"),
	}
}

// Run starts the hub's event loop; call it in its own goroutine
func (h *Hub) Run() {
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("hub shutting down")
			for client := range h.connections {
				client.close()
				delete(h.connections, client)
			}
			return

		case client := <-h.register:
			h.connections[client] = true
			h.logger.Info("renderer connected",
				zap.String("connectionID", client.id),
				zap.Int("connections", len(h.connections)),
			)

		case client := <-h.unregister:
			if _, ok := h.connections[client]; ok {
				delete(h.connections, client)
				client.close()
				h.logger.Info("renderer disconnected",
					zap.String("connectionID", client.id),
					zap.Int("connections", len(h.connections)),
				)
			}

		case message := <-h.broadcast:
			for client := range h.connections {
				select {
				case client.send <- message:
				default:
					// Slow consumer; drop the connection rather than
					// blocking every other renderer
					delete(h.connections, client)
					client.close()
					h.logger.Warn("dropped slow renderer connection",
						zap.String("connectionID", client.id),
					)
				}
			}
		}
	}
}

// Broadcast pushes a frame to every connected renderer
func (h *Hub) Broadcast(frame Frame) {
	message, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error("failed to marshal frame", zap.String("type", frame.Type), zap.Error(err))
		return
	}

	select {
	case h.broadcast <- message:
	case <-h.ctx.Done():
	}
}

// Stop shuts the hub down and closes all connections
func (h *Hub) Stop() {
	h.cancel()
}
