package bridge

import (
	"bytes"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024

	// Send buffer size
	sendBufferSize = 64
)

// eventSink receives decoded renderer events
type eventSink interface {
	handleEvent(event Event)
}

// Client represents one connected renderer
type Client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	sink eventSink

	// sendMu guards send against the hub closing it while a direct enqueue
	// is in flight
	sendMu sync.Mutex
	send   chan []byte
	closed bool

	logger *zap.Logger
}

// newClient creates a client for an upgraded connection
func newClient(hub *Hub, conn *websocket.Conn, sink eventSink, logger *zap.Logger) *Client {
	id := uuid.New().String()
	return &Client{
		id:     id,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		sink:   sink,
		logger: logger.With(zap.String("connectionID", id)),
	}
}

// start registers with the hub and begins the read and write pumps
func (c *Client) start() {
	c.hub.register <- c
	go c.writePump()
	go c.readPump()
}

// enqueue queues a frame for this connection only. A no-op once the hub has
// closed the connection; sending on the closed channel would panic.
func (c *Client) enqueue(frame Frame) {
	message, err := json.Marshal(frame)
	if err != nil {
		c.logger.Error("failed to marshal frame", zap.String("type", frame.Type), zap.Error(err))
		return
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- message:
	default:
		c.logger.Warn("send buffer full, dropping frame", zap.String("type", frame.Type))
	}
}

// close closes the send channel exactly once
func (c *Client) close() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// readPump pumps renderer events from the connection to the sink
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket read error", zap.Error(err))
			}
			return
		}

		message = bytes.TrimSpace(message)
		if len(message) == 0 {
			continue
		}

		var event Event
		if err := json.Unmarshal(message, &event); err != nil {
			c.logger.Warn("malformed renderer event", zap.Error(err))
			continue
		}
		c.sink.handleEvent(event)
	}
}

// writePump pumps queued frames to the connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Error("failed to write frame", zap.Error(err))
				return
			}

			// Drain any queued frames into the same write burst
			n := len(c.send)
			for i := 0; i < n; i++ {
				if err := c.conn.WriteMessage(websocket.TextMessage, <-c.send); err != nil {
					c.logger.Error("failed to write queued frame", zap.Error(err))
					return
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
