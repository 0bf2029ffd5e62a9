// Package realtime serves the websocket channel that carries presence,
// notification and message events to connected users.
package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/oggyb/matcha/internal/auth"
	"github.com/oggyb/matcha/internal/config"
	"github.com/oggyb/matcha/internal/presence"
)

// MessageCounter counts unread chat messages.
type MessageCounter interface {
	UnreadTotal(ctx context.Context, userID uint64) (int64, error)
}

// NotificationCounter counts unread notifications.
type NotificationCounter interface {
	UnreadCount(ctx context.Context, userID uint64) (int64, error)
}

// Badge is the payload of the `badge` event.
type Badge struct {
	Messages      int64 `json:"messages"`
	Notifications int64 `json:"notifications"`
}

// Handler upgrades authenticated requests and runs one client per connection.
type Handler struct {
	cfg           *config.Config
	verifier      *auth.Verifier
	registry      presence.Registry
	messages      MessageCounter
	notifications NotificationCounter
	logger        *slog.Logger
	upgrader      websocket.Upgrader
}

func NewHandler(
	cfg *config.Config,
	verifier *auth.Verifier,
	registry presence.Registry,
	messages MessageCounter,
	notifications NotificationCounter,
	logger *slog.Logger,
) *Handler {
	h := &Handler{
		cfg:           cfg,
		verifier:      verifier,
		registry:      registry,
		messages:      messages,
		notifications: notifications,
		logger:        logger.With("component", "realtime"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      h.checkOrigin,
	}
	return h
}

// ServeHTTP blocks for the lifetime of the connection.
//
// Behavior:
//   - No valid identity → 401 before the upgrade.
//   - The new session displaces any earlier session of the same user.
//   - When the connection ends the session is unregistered by identity, so a
//     late disconnect of a displaced connection leaves the user online.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, err := h.verifier.FromRequest(r)
	if err != nil {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "user_id", userID, "err", err)
		return
	}

	ctx := context.WithoutCancel(r.Context())
	c := &client{
		h:       h,
		conn:    conn,
		session: presence.NewSession(userID, h.cfg.Realtime.SendBuffer),
		limiter: rate.NewLimiter(rate.Limit(h.cfg.Realtime.InboundRate), h.cfg.Realtime.InboundBurst),
	}
	h.registry.Register(ctx, c.session)
	h.logger.Debug("client connected", "user_id", userID, "session", c.session.ID())

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.writePump()
	}()
	c.readPump(ctx)

	h.registry.Unregister(ctx, c.session)
	c.session.Close()
	<-done
	h.logger.Debug("client disconnected", "user_id", userID, "session", c.session.ID())
}

// checkOrigin accepts configured browser origins. Requests without an Origin
// header come from non-browser clients, which authenticate by token alone.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.cfg.Realtime.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	h.logger.Warn("websocket origin rejected", "origin", origin)
	return false
}

func (h *Handler) badge(ctx context.Context, userID uint64) (Badge, error) {
	var b Badge
	var err error
	if b.Messages, err = h.messages.UnreadTotal(ctx, userID); err != nil {
		return Badge{}, err
	}
	if b.Notifications, err = h.notifications.UnreadCount(ctx, userID); err != nil {
		return Badge{}, err
	}
	return b, nil
}
