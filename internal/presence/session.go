package presence

import (
	"sync"

	"github.com/google/uuid"
)

// Event types pushed to live sessions.
const (
	EventUserStatus   = "userStatus"
	EventNotification = "notification"
	EventMessage      = "message"
	EventUnmatch      = "unmatch"
	EventBadge        = "badge"
	EventPong         = "pong"
)

// Event is one frame on the real-time channel.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Session is one live connection of a user. Its identity is the uuid, not the
// user id: a reconnecting user gets a new Session and the registry tells the
// two apart when the old connection finally goes away.
type Session struct {
	id     uuid.UUID
	userID uint64
	out    chan Event

	mu     sync.Mutex
	closed bool
}

// NewSession creates a session with a bounded outbound queue.
func NewSession(userID uint64, buffer int) *Session {
	if buffer <= 0 {
		buffer = 1
	}
	return &Session{
		id:     uuid.New(),
		userID: userID,
		out:    make(chan Event, buffer),
	}
}

func (s *Session) ID() uuid.UUID  { return s.id }
func (s *Session) UserID() uint64 { return s.userID }

// Events is drained by the connection's write loop. It is closed by Close.
func (s *Session) Events() <-chan Event { return s.out }

// enqueue never blocks: a full queue or a closed session drops the event.
func (s *Session) enqueue(ev Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	select {
	case s.out <- ev:
		return true
	default:
		return false
	}
}

// Push queues an event for this connection only, e.g. a reply to a client
// request. Like Hub.Send it never blocks.
func (s *Session) Push(eventType string, payload any) bool {
	return s.enqueue(Event{Type: eventType, Data: payload})
}

// Close closes the outbound queue. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.out)
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
