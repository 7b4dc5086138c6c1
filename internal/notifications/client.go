package notifications

import (
	"context"
	"errors"
	"time"

	"microblog/internal/observability"

	"github.com/gofiber/websocket/v2"
)

// Feed connection timing. pingEvery must stay below idleTimeout so a healthy
// peer's pong always arrives before the read deadline.
const (
	writeTimeout = 10 * time.Second
	idleTimeout  = 60 * time.Second
	pingEvery    = idleTimeout * 9 / 10

	// Clients only send control frames on the feed.
	maxInboundBytes = 512
	sendQueueLen    = 64
)

var errSendQueueFull = errors.New("send queue full")

// Client is one live feed connection owned by a Hub.
type Client struct {
	hub    *Hub
	Conn   *websocket.Conn // nil when a test drives the hub directly
	Send   chan []byte     // closed by the hub on unregister
	UserID uint
}

// Serve runs the connection until the peer leaves or the hub drops it.
// Writes happen on a second goroutine; the caller's goroutine reads.
func (c *Client) Serve() {
	go c.writeLoop()
	c.readLoop()
}

func (c *Client) readLoop() {
	defer func() {
		c.hub.UnregisterClient(c)
		_ = c.Conn.Close()
	}()

	extend := func(string) error { return c.Conn.SetReadDeadline(time.Now().Add(idleTimeout)) }
	c.Conn.SetReadLimit(maxInboundBytes)
	_ = extend("")
	c.Conn.SetPongHandler(extend)

	for {
		_, _, err := c.Conn.ReadMessage()
		if err == nil {
			continue
		}
		reason := "closed"
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
			reason = "error"
			c.hub.log.Failed(context.Background(), c.UserID, "read", err)
		}
		c.hub.log.Disconnected(context.Background(), c.UserID, reason)
		return
	}
}

func (c *Client) writeLoop() {
	ping := time.NewTicker(pingEvery)
	defer func() {
		ping.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case msg, open := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !open {
				_ = c.Conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed closed"))
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
			observability.WebSocketEventsTotal.WithLabelValues(EventNewPost).Inc()
		case <-ping.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// offer queues msg without blocking; a slow reader loses the event rather
// than stalling the broadcast. Callers hold the hub lock, so Send is open.
func (c *Client) offer(msg []byte) error {
	select {
	case c.Send <- msg:
		return nil
	default:
		observability.WebSocketBackpressureDrops.WithLabelValues(c.hub.Name(), "full").Inc()
		return errSendQueueFull
	}
}
