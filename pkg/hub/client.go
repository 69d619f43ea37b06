package hub

import (
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10 // must be below pongWait

	// Dashboard clients only ever send pongs.
	maxInbound = 4 * 1024
)

// Client pumps a hub subscription into one websocket connection. The write
// pump is the connection's only writer.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	sub      *Subscription
	greeting *Message
}

// NewClient subscribes conn to h. It returns nil if the hub has stopped.
func NewClient(h *Hub, conn *websocket.Conn) *Client {
	sub := h.Subscribe()
	if sub == nil {
		return nil
	}
	return &Client{hub: h, conn: conn, sub: sub}
}

// Greet queues msg to be written before any broadcast. Call before Run.
func (c *Client) Greet(msg Message) {
	c.greeting = &msg
}

// Run blocks until the connection closes, then unsubscribes.
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unsubscribe(c.sub)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxInbound)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("client read failed", "error", err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	if c.greeting != nil && c.write(*c.greeting) != nil {
		return
	}

	for {
		select {
		case msg, ok := <-c.sub.C:
			if !ok {
				// Unsubscribed or dropped as too slow
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.write(msg); err != nil {
				c.hub.logger.Debug("client write failed", "error", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) write(msg Message) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	kind := websocket.TextMessage
	if msg.Type == BinaryMessage {
		kind = websocket.BinaryMessage
	}
	return c.conn.WriteMessage(kind, msg.Data)
}
