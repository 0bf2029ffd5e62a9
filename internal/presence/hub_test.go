package presence_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/matcha/internal/logger"
	"github.com/oggyb/matcha/internal/presence"
)

type lastSeenCall struct {
	userID uint64
	at     *time.Time
}

type fakeStore struct {
	mu    sync.Mutex
	calls []lastSeenCall
}

func (f *fakeStore) SetLastSeen(_ context.Context, userID uint64, at *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, lastSeenCall{userID: userID, at: at})
	return nil
}

func (f *fakeStore) last(userID uint64) (lastSeenCall, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].userID == userID {
			return f.calls[i], true
		}
	}
	return lastSeenCall{}, false
}

func newHub(t *testing.T) (*presence.Hub, *fakeStore) {
	t.Helper()
	store := &fakeStore{}
	return presence.NewHub(store, logger.Discard()), store
}

func drain(s *presence.Session) []presence.Event {
	var out []presence.Event
	for {
		select {
		case ev, ok := <-s.Events():
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestRegisterAndSend(t *testing.T) {
	ctx := context.Background()
	hub, store := newHub(t)
	s := presence.NewSession(1, 8)

	hub.Register(ctx, s)
	assert.True(t, hub.IsOnline(1))
	assert.Equal(t, 1, hub.OnlineCount())

	call, ok := store.last(1)
	require.True(t, ok)
	assert.Nil(t, call.at, "register clears last_seen")

	assert.True(t, hub.Send(1, presence.EventNotification, "x"))
	assert.False(t, hub.Send(2, presence.EventNotification, "x"), "offline user")

	events := drain(s)
	require.Len(t, events, 2)
	assert.Equal(t, presence.EventUserStatus, events[0].Type)
	assert.Equal(t, presence.UserStatus{UserID: 1, Online: true}, events[0].Data)
	assert.Equal(t, presence.EventNotification, events[1].Type)
}

func TestReconnectThenStaleUnregister(t *testing.T) {
	ctx := context.Background()
	hub, store := newHub(t)

	old := presence.NewSession(1, 8)
	fresh := presence.NewSession(1, 8)
	require.NotEqual(t, old.ID(), fresh.ID())

	hub.Register(ctx, old)
	hub.Register(ctx, fresh)
	assert.True(t, old.Closed(), "displaced session is closed")
	assert.Equal(t, 1, hub.OnlineCount())

	assert.False(t, hub.Unregister(ctx, old), "old connection going away is ignored")
	assert.True(t, hub.IsOnline(1))
	call, _ := store.last(1)
	assert.Nil(t, call.at)

	assert.True(t, hub.Send(1, presence.EventMessage, "hi"))
	events := drain(fresh)
	require.NotEmpty(t, events)
	assert.Equal(t, presence.EventMessage, events[len(events)-1].Type)

	assert.True(t, hub.Unregister(ctx, fresh))
	assert.False(t, hub.IsOnline(1))
	call, _ = store.last(1)
	require.NotNil(t, call.at)
	assert.WithinDuration(t, time.Now(), *call.at, 5*time.Second)
}

func TestStatusBroadcast(t *testing.T) {
	ctx := context.Background()
	hub, _ := newHub(t)

	watcher := presence.NewSession(1, 8)
	hub.Register(ctx, watcher)
	drain(watcher)

	other := presence.NewSession(2, 8)
	hub.Register(ctx, other)
	hub.Unregister(ctx, other)

	events := drain(watcher)
	require.Len(t, events, 2)
	online := events[0].Data.(presence.UserStatus)
	offline := events[1].Data.(presence.UserStatus)
	assert.Equal(t, uint64(2), online.UserID)
	assert.True(t, online.Online)
	assert.False(t, offline.Online)
	assert.NotNil(t, offline.LastSeen)
}

func TestSendDropsWhenQueueFull(t *testing.T) {
	ctx := context.Background()
	hub, _ := newHub(t)
	s := presence.NewSession(1, 1)
	hub.Register(ctx, s) // the online status fills the single slot

	done := make(chan bool)
	go func() { done <- hub.Send(1, presence.EventMessage, "late") }()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Send blocked on a full queue")
	}
}

func TestSendAfterCloseDoesNotPanic(t *testing.T) {
	s := presence.NewSession(1, 4)
	s.Close()
	s.Close()
	hub, _ := newHub(t)
	hub.Register(context.Background(), presence.NewSession(2, 4))
	assert.NotPanics(t, func() { hub.Broadcast(presence.EventBadge, 1) })
}

func TestConcurrentRegisterUnregister(t *testing.T) {
	ctx := context.Background()
	hub, _ := newHub(t)

	const users = 20
	const rounds = 50

	var wg sync.WaitGroup
	finals := make([]*presence.Session, users)
	for u := 0; u < users; u++ {
		wg.Add(1)
		go func(u int) {
			defer wg.Done()
			id := uint64(u + 1)
			var last *presence.Session
			for i := 0; i < rounds; i++ {
				s := presence.NewSession(id, 4)
				hub.Register(ctx, s)
				if last != nil {
					hub.Unregister(ctx, last)
				}
				hub.Send(id, presence.EventBadge, i)
				last = s
			}
			finals[u] = last
		}(u)
	}
	wg.Wait()

	assert.Equal(t, users, hub.OnlineCount())
	for _, s := range finals {
		assert.True(t, hub.Unregister(ctx, s))
	}
	assert.Equal(t, 0, hub.OnlineCount())
}

func TestShutdownClosesSessions(t *testing.T) {
	hub, _ := newHub(t)
	s := presence.NewSession(1, 4)
	hub.Register(context.Background(), s)

	hub.Shutdown()
	assert.True(t, s.Closed())
	assert.False(t, hub.IsOnline(1))
	assert.Empty(t, hub.OnlineUsers())
}
