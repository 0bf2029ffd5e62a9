package notification_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/emptypb"
	"gorm.io/gorm"

	"github.com/oggyb/matcha/internal/auth"
	"github.com/oggyb/matcha/internal/db"
	"github.com/oggyb/matcha/internal/logger"
	"github.com/oggyb/matcha/internal/presence"
	"github.com/oggyb/matcha/internal/service/notification"
	"github.com/oggyb/matcha/internal/testutil"
)

func drain(s *presence.Session) []presence.Event {
	var out []presence.Event
	for {
		select {
		case ev := <-s.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestPersistAndDeliver(t *testing.T) {
	ctx := context.Background()
	appCtx, _ := testutil.NewAppContext(t)
	hub := presence.NewHub(nil, logger.Discard())
	svc := notification.NewService(appCtx, hub)

	alice := testutil.CreateUser(t, appCtx.DB, "alice")
	bob := testutil.CreateUser(t, appCtx.DB, "bob")

	session := presence.NewSession(bob.ID, 8)
	hub.Register(ctx, session)
	drain(session)

	like := &notification.Notice{RecipientID: bob.ID, SenderID: alice.ID, Type: db.NotificationLike}
	msg := &notification.Notice{RecipientID: bob.ID, SenderID: alice.ID, Type: db.NotificationMessage}
	err := appCtx.DB.Transaction(func(tx *gorm.DB) error {
		return svc.Persist(ctx, tx, like, msg)
	})
	require.NoError(t, err)
	require.NotNil(t, like.Record())
	assert.NotZero(t, like.Record().ID)

	svc.Deliver(ctx, like, msg)

	events := drain(session)
	require.Len(t, events, 1, "message notifications are recorded but not pushed")
	assert.Equal(t, presence.EventNotification, events[0].Type)
	ev := events[0].Data.(notification.Event)
	assert.Equal(t, db.NotificationLike, ev.Type)
	assert.Equal(t, alice.ID, ev.SenderID)
	assert.Equal(t, "alice", ev.SenderName)
	assert.Equal(t, like.Record().ID, ev.ID)

	n, err := svc.UnreadCount(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestPersistRollsBackWithTransaction(t *testing.T) {
	ctx := context.Background()
	appCtx, _ := testutil.NewAppContext(t)
	svc := notification.NewService(appCtx, nil)
	alice := testutil.CreateUser(t, appCtx.DB, "alice")

	_ = appCtx.DB.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, svc.Persist(ctx, tx, &notification.Notice{RecipientID: alice.ID, Type: db.NotificationMatch}))
		return assert.AnError
	})

	var count int64
	appCtx.DB.Model(&db.Notification{}).Count(&count)
	assert.Zero(t, count)
}

func TestUnreadCountIsCachedUntilDelivered(t *testing.T) {
	ctx := context.Background()
	appCtx, mr := testutil.NewAppContext(t)
	svc := notification.NewService(appCtx, nil)
	alice := testutil.CreateUser(t, appCtx.DB, "alice")

	n, err := svc.UnreadCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.True(t, mr.Exists(appCtx.RedisCache.KeyForUnreadNotifications(alice.ID)))

	require.NoError(t, svc.Notify(ctx, &notification.Notice{RecipientID: alice.ID, Type: db.NotificationVisit}))
	n, err = svc.UnreadCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "delivery invalidates the cached counter")

	updated, err := svc.MarkAllRead(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)
	n, _ = svc.UnreadCount(ctx, alice.ID)
	assert.Zero(t, n)
}

func TestUnreadCountFallsBackWhenRedisDown(t *testing.T) {
	ctx := context.Background()
	appCtx, mr := testutil.NewAppContext(t)
	svc := notification.NewService(appCtx, nil)
	alice := testutil.CreateUser(t, appCtx.DB, "alice")
	require.NoError(t, svc.Notify(ctx, &notification.Notice{RecipientID: alice.ID, Type: db.NotificationVisit}))

	mr.Close()
	n, err := svc.UnreadCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestListOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	appCtx, _ := testutil.NewAppContext(t)
	svc := notification.NewService(appCtx, nil)
	alice := testutil.CreateUser(t, appCtx.DB, "alice")
	bob := testutil.CreateUser(t, appCtx.DB, "bob")

	for _, typ := range []string{db.NotificationVisit, db.NotificationLike, db.NotificationMatch} {
		require.NoError(t, svc.Notify(ctx, &notification.Notice{RecipientID: alice.ID, SenderID: bob.ID, Type: typ}))
	}

	views, err := svc.List(ctx, alice.ID, 2)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, db.NotificationMatch, views[0].Type)
	assert.Equal(t, db.NotificationLike, views[1].Type)
	assert.Equal(t, "bob", views[0].SenderName)
	assert.Equal(t, "/uploads/bob.jpg", views[0].SenderPhoto)

	views, err = svc.List(ctx, alice.ID, 0)
	require.NoError(t, err)
	assert.Len(t, views, 3)
}

func TestHandlerUsesCallerIdentity(t *testing.T) {
	ctx := context.Background()
	appCtx, _ := testutil.NewAppContext(t)
	svc := notification.NewService(appCtx, nil)
	h := notification.NewHandler(svc)
	alice := testutil.CreateUser(t, appCtx.DB, "alice")
	require.NoError(t, svc.Notify(ctx, &notification.Notice{RecipientID: alice.ID, Type: db.NotificationVisit}))

	_, err := h.UnreadCount(ctx, &emptypb.Empty{})
	assert.Error(t, err, "anonymous caller")

	callerCtx := auth.WithUserID(ctx, alice.ID)
	resp, err := h.UnreadCount(callerCtx, &emptypb.Empty{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.Count)

	_, err = h.List(callerCtx, &notification.ListRequest{Limit: 1000})
	assert.Error(t, err, "limit above 100 is rejected")

	marked, err := h.MarkAllRead(callerCtx, &emptypb.Empty{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), marked.Updated)
}
