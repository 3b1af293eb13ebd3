package ws

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"tictactoe/internal/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 30 * time.Second
	pingPeriod     = 25 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 256
)

type Client struct {
	UserID int64
	Conn   *websocket.Conn
	Send   chan []byte
	Done   chan struct{}

	hub  *Hub
	subs map[string]struct{} // guarded by hub.mu
}

func NewClient(userID int64, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, sendBuffer),
		Done:   make(chan struct{}),
		hub:    hub,
		subs:   make(map[string]struct{}),
	}
}

// Run registers the client and blocks until the connection is gone.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	go c.writePump()
	c.hub.send(c, Message{Type: MsgReady})
	c.readPump(ctx)
}

// Close ends the connection; the read pump then unregisters the client.
func (c *Client) Close() {
	if c.Conn == nil {
		c.hub.OnDisconnect(c)
		return
	}
	_ = c.Conn.Close()
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.OnDisconnect(c)
		_ = c.Conn.Close()
		close(c.Done)
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("ws read error", "user_id", c.UserID, "error", err)
			}
			return
		}
		c.hub.Dispatch(ctx, c, msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Debug("ws write error", "user_id", c.UserID, "error", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
