package realtime

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/oggyb/matcha/internal/metrics"
	"github.com/oggyb/matcha/internal/presence"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

// Inbound event types.
const (
	InboundPing         = "ping"
	InboundMessagesRead = "messages_read"
)

type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// client pumps one connection. The write pump is the only writer on conn.
type client struct {
	h       *Handler
	conn    *websocket.Conn
	session *presence.Session
	limiter *rate.Limiter
}

// readPump handles client requests until the connection fails.
func (c *client) readPump(ctx context.Context) {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.h.logger.Debug("websocket read ended", "user_id", c.session.UserID(), "err", err)
			}
			return
		}
		if !c.limiter.Allow() {
			metrics.RealtimeEvents.WithLabelValues("inbound", "limited").Inc()
			continue
		}

		var msg inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.h.logger.Debug("malformed client frame", "user_id", c.session.UserID(), "err", err)
			continue
		}
		c.handle(ctx, msg)
	}
}

func (c *client) handle(ctx context.Context, msg inbound) {
	switch msg.Type {
	case InboundPing:
		c.session.Push(presence.EventPong, nil)
	case InboundMessagesRead:
		b, err := c.h.badge(ctx, c.session.UserID())
		if err != nil {
			c.h.logger.Error("failed to compute badge", "user_id", c.session.UserID(), "err", err)
			return
		}
		c.session.Push(presence.EventBadge, b)
	default:
		c.h.logger.Debug("unknown client event", "type", msg.Type)
	}
}

// writePump drains the session queue and keeps the connection alive with
// pings. A closed queue (disconnect, displacement, shutdown) ends it.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.session.Events():
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			frame, err := json.Marshal(ev)
			if err != nil {
				c.h.logger.Error("failed to encode event", "type", ev.Type, "err", err)
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
