package services

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/knowsyapp/knowsy-server/internal/config"
	"github.com/knowsyapp/knowsy-server/internal/models"
)

// Client represents a single WebSocket connection with its own send goroutine
type Client struct {
	conn     *websocket.Conn
	send     chan []byte
	hub      *Hub
	roomID   string
	playerID string

	// onMessage is called from the read pump for each inbound frame.
	onMessage func(c *Client, data []byte)

	// Rate limiting
	messageCount int
	rateLimitMu  sync.Mutex
	lastReset    time.Time

	// Lifecycle
	ctx     context.Context
	cancel  context.CancelFunc
	closed  bool
	closeMu sync.Mutex
}

// NewClient creates a new client instance
func NewClient(conn *websocket.Conn, hub *Hub, roomID, playerID string, onMessage func(c *Client, data []byte)) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		conn:      conn,
		send:      make(chan []byte, config.ClientSendBufferSize),
		hub:       hub,
		roomID:    roomID,
		playerID:  playerID,
		onMessage: onMessage,
		lastReset: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// RoomID returns the room the client is connected to.
func (c *Client) RoomID() string { return c.roomID }

// PlayerID returns the player identity behind the connection (may be
// empty for a spectating connection with no seat).
func (c *Client) PlayerID() string { return c.playerID }

// Wait blocks until the connection is closed.
func (c *Client) Wait() {
	<-c.ctx.Done()
}

// Start begins the client's read and write pumps
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// writePump handles outgoing messages to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// Channel closed, connection is closing
				_ = c.conn.Close(websocket.StatusNormalClosure, "")
				return
			}

			writeCtx, cancel := context.WithTimeout(c.ctx, config.WriteTimeout)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()

			if err != nil {
				c.hub.logger.Warn("websocket write error", "room", c.roomID, "player", c.playerID, "error", err)
				c.hub.metrics.IncrementBroadcastErrors()
				return
			}
			c.hub.metrics.IncrementMessagesSent()

		case <-ticker.C:
			// Send ping to keep connection alive
			pingCtx, cancel := context.WithTimeout(c.ctx, config.WriteTimeout)
			err := c.conn.Ping(pingCtx)
			cancel()

			if err != nil {
				c.hub.logger.Warn("websocket ping error", "room", c.roomID, "error", err)
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// readPump handles incoming messages from the WebSocket connection
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.Close()
	}()

	for {
		readCtx, cancel := context.WithTimeout(c.ctx, config.PongTimeout)
		_, message, err := c.conn.Read(readCtx)
		cancel()

		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				c.hub.metrics.IncrementConnectionErrors()
			}
			return
		}

		// Rate limiting check
		if !c.checkRateLimit() {
			c.hub.metrics.IncrementRateLimitViolations()

			errMsg := &models.WSMessage{
				Type: models.MsgTypeError,
				Payload: map[string]string{
					"message": "Rate limit exceeded. Please slow down.",
				},
			}
			c.hub.SendToClient(c, errMsg)
			continue
		}

		c.hub.metrics.IncrementMessagesReceived()

		if c.onMessage != nil {
			c.onMessage(c, message)
		}
	}
}

// checkRateLimit verifies the client hasn't exceeded message rate limits
func (c *Client) checkRateLimit() bool {
	c.rateLimitMu.Lock()
	defer c.rateLimitMu.Unlock()

	now := time.Now()
	if now.Sub(c.lastReset) > config.RateLimitWindow {
		c.messageCount = 0
		c.lastReset = now
	}

	c.messageCount++
	return c.messageCount <= config.MaxMessagesPerSecond
}

// Send queues a message for sending to the client
func (c *Client) Send(message []byte) bool {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- message:
		return true
	default:
		// Channel full, client is too slow
		c.hub.logger.Warn("send buffer full, closing slow client", "room", c.roomID, "player", c.playerID)
		c.hub.metrics.IncrementBroadcastErrors()
		go c.Close()
		return false
	}
}

// Close cleanly shuts down the client connection
func (c *Client) Close() {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	c.cancel()
	close(c.send)
	if c.conn != nil {
		_ = c.conn.Close(websocket.StatusNormalClosure, "")
	}
}
