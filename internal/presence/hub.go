// Package presence tracks which users hold a live real-time session and
// routes events to them.
package presence

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/oggyb/matcha/internal/metrics"
)

const persistTimeout = 3 * time.Second

// Registry is what the domain services see of presence.
type Registry interface {
	Register(ctx context.Context, s *Session)
	Unregister(ctx context.Context, s *Session) bool
	IsOnline(userID uint64) bool
	Send(userID uint64, eventType string, payload any) bool
}

// LastSeenStore persists last_seen. nil means online.
type LastSeenStore interface {
	SetLastSeen(ctx context.Context, userID uint64, at *time.Time) error
}

// UserStatus is the payload of a userStatus event.
type UserStatus struct {
	UserID   uint64     `json:"user_id"`
	Online   bool       `json:"online"`
	LastSeen *time.Time `json:"last_seen,omitempty"`
}

// Hub is the in-process Registry. One session per user, last register wins.
type Hub struct {
	mu       sync.RWMutex
	sessions map[uint64]*Session

	store  LastSeenStore
	logger *slog.Logger
	now    func() time.Time
}

var _ Registry = (*Hub)(nil)

// NewHub creates an empty hub. store may be nil, in which case last_seen is
// not persisted.
func NewHub(store LastSeenStore, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		sessions: make(map[uint64]*Session),
		store:    store,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Register makes s the live session of its user.
//
// Behavior:
//   - A previous session of the same user is displaced and closed.
//   - last_seen is cleared and userStatus{online} is broadcast.
//   - Persistence happens under the hub lock so a racing Unregister of the
//     displaced session can never overwrite the cleared value.
func (h *Hub) Register(ctx context.Context, s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	prev := h.sessions[s.userID]
	h.sessions[s.userID] = s
	if prev == nil {
		metrics.OnlineUsers.Inc()
	}

	h.persist(ctx, s.userID, nil)
	h.broadcastLocked(Event{Type: EventUserStatus, Data: UserStatus{UserID: s.userID, Online: true}})

	if prev != nil && prev != s {
		prev.Close()
		h.logger.Debug("session displaced", "user_id", s.userID, "old", prev.id, "new", s.id)
	}
	h.logger.Debug("session registered", "user_id", s.userID, "session", s.id)
}

// Unregister removes s if it is still the live session of its user.
// A stale session (already displaced by a reconnect) is ignored and false is
// returned, leaving the user online.
func (h *Hub) Unregister(ctx context.Context, s *Session) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	cur, ok := h.sessions[s.userID]
	if !ok || cur != s {
		h.logger.Debug("stale unregister ignored", "user_id", s.userID, "session", s.id)
		return false
	}
	delete(h.sessions, s.userID)
	metrics.OnlineUsers.Dec()

	seen := h.now()
	h.persist(ctx, s.userID, &seen)
	h.broadcastLocked(Event{Type: EventUserStatus, Data: UserStatus{UserID: s.userID, Online: false, LastSeen: &seen}})

	h.logger.Debug("session unregistered", "user_id", s.userID, "session", s.id)
	return true
}

func (h *Hub) IsOnline(userID uint64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.sessions[userID]
	return ok
}

// Send pushes one event to the user's live session. It never blocks and
// returns false when the user is offline or the queue is full.
func (h *Hub) Send(userID uint64, eventType string, payload any) bool {
	h.mu.RLock()
	s := h.sessions[userID]
	h.mu.RUnlock()

	if s == nil {
		metrics.RealtimeEvents.WithLabelValues(eventType, "offline").Inc()
		return false
	}
	if !s.enqueue(Event{Type: eventType, Data: payload}) {
		metrics.RealtimeEvents.WithLabelValues(eventType, "dropped").Inc()
		h.logger.Warn("event dropped", "user_id", userID, "type", eventType)
		return false
	}
	metrics.RealtimeEvents.WithLabelValues(eventType, "delivered").Inc()
	return true
}

// Broadcast pushes one event to every live session.
func (h *Hub) Broadcast(eventType string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	h.broadcastLocked(Event{Type: eventType, Data: payload})
}

// OnlineCount returns the number of users with a live session.
func (h *Hub) OnlineCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// OnlineUsers returns the ids of online users, ascending.
func (h *Hub) OnlineUsers() []uint64 {
	h.mu.RLock()
	ids := make([]uint64, 0, len(h.sessions))
	for id := range h.sessions {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Shutdown closes every session. Used on process exit so write loops return.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, s := range h.sessions {
		s.Close()
		delete(h.sessions, id)
		metrics.OnlineUsers.Dec()
	}
}

// broadcastLocked sends in user id order; the caller holds h.mu.
func (h *Hub) broadcastLocked(ev Event) {
	ids := make([]uint64, 0, len(h.sessions))
	for id := range h.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		if h.sessions[id].enqueue(ev) {
			metrics.RealtimeEvents.WithLabelValues(ev.Type, "delivered").Inc()
		} else {
			metrics.RealtimeEvents.WithLabelValues(ev.Type, "dropped").Inc()
		}
	}
}

func (h *Hub) persist(ctx context.Context, userID uint64, at *time.Time) {
	if h.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if err := h.store.SetLastSeen(ctx, userID, at); err != nil {
		h.logger.Warn("failed to persist last_seen", "user_id", userID, "err", err)
	}
}
