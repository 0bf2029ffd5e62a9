// Package notification records social signals and pushes them to live
// sessions.
package notification

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/matcha/internal/app"
	"github.com/oggyb/matcha/internal/db"
	"github.com/oggyb/matcha/internal/metrics"
	"github.com/oggyb/matcha/internal/presence"
	"github.com/oggyb/matcha/internal/repository"
	"github.com/oggyb/matcha/internal/utils/pagination"
)

// Notice is one notification to record and deliver.
// SenderID 0 means a system notification.
type Notice struct {
	RecipientID uint64
	SenderID    uint64
	Type        string

	record *db.Notification
}

// Record returns the persisted row, nil before Persist.
func (n *Notice) Record() *db.Notification { return n.record }

// Event is the payload of a pushed `notification` event.
type Event struct {
	ID         uint64    `json:"id"`
	Type       string    `json:"type"`
	SenderID   uint64    `json:"sender_id,omitempty"`
	SenderName string    `json:"sender_name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// View is a listed notification.
type View struct {
	ID          uint64    `json:"id"`
	Type        string    `json:"type"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
	SenderID    *uint64   `json:"sender_id,omitempty"`
	SenderName  string    `json:"sender_name,omitempty"`
	SenderPhoto string    `json:"sender_photo,omitempty"`
}

// pushed lists the types that produce a `notification` event. Message
// notifications are recorded only; the chat pushes its own `message` event.
var pushed = map[string]bool{
	db.NotificationLike:   true,
	db.NotificationUnlike: true,
	db.NotificationMatch:  true,
	db.NotificationVisit:  true,
}

// Service is the notification/event dispatcher.
type Service struct {
	appCtx    *app.AppContext
	notifRepo *repository.NotificationRepository
	userRepo  *repository.UserRepository
	registry  presence.Registry
}

// NewService creates the dispatcher. registry may be nil (no pushes).
func NewService(appCtx *app.AppContext, registry presence.Registry) *Service {
	return &Service{
		appCtx:    appCtx,
		notifRepo: repository.NewNotificationRepository(appCtx.DB),
		userRepo:  repository.NewUserRepository(appCtx.DB),
		registry:  registry,
	}
}

// Persist writes the records inside tx. It must be called in the same
// transaction as the state change that caused them.
//
// Example:
//
//	err := s.appCtx.DB.Transaction(func(tx *gorm.DB) error {
//		// ... mutate edges ...
//		return notifier.Persist(ctx, tx, &notification.Notice{RecipientID: b, SenderID: a, Type: db.NotificationLike})
//	})
func (s *Service) Persist(ctx context.Context, tx *gorm.DB, notices ...*Notice) error {
	if len(notices) == 0 {
		return nil
	}
	records := make([]*db.Notification, 0, len(notices))
	for _, n := range notices {
		rec := &db.Notification{RecipientID: n.RecipientID, Type: n.Type}
		if n.SenderID != 0 {
			sender := n.SenderID
			rec.SenderID = &sender
		}
		records = append(records, rec)
	}
	if err := s.notifRepo.WithTx(tx).Create(ctx, records...); err != nil {
		return err
	}
	for i, n := range notices {
		n.record = records[i]
		metrics.NotificationsCreated.WithLabelValues(n.Type).Inc()
	}
	return nil
}

// Deliver runs after commit: drops cached unread counters of the recipients
// and pushes `notification` events to those online. It never fails the caller.
func (s *Service) Deliver(ctx context.Context, notices ...*Notice) {
	if len(notices) == 0 {
		return
	}

	recipients := make([]uint64, 0, len(notices))
	senders := make([]uint64, 0, len(notices))
	for _, n := range notices {
		recipients = append(recipients, n.RecipientID)
		if n.SenderID != 0 {
			senders = append(senders, n.SenderID)
		}
	}
	if err := s.appCtx.RedisCache.InvalidateUnreadNotifications(ctx, recipients...); err != nil {
		s.appCtx.Logger.Warn("failed to invalidate unread counters", "recipients", recipients, "err", err)
	}

	if s.registry == nil {
		return
	}
	names, err := s.userRepo.Usernames(ctx, senders)
	if err != nil {
		s.appCtx.Logger.Warn("failed to resolve sender names", "err", err)
	}
	for _, n := range notices {
		if !pushed[n.Type] {
			continue
		}
		ev := Event{Type: n.Type, SenderID: n.SenderID, SenderName: names[n.SenderID]}
		if n.record != nil {
			ev.ID = n.record.ID
			ev.CreatedAt = n.record.CreatedAt
		}
		s.registry.Send(n.RecipientID, presence.EventNotification, ev)
	}
}

// Notify persists in its own statement and delivers. For notices that do not
// accompany another state change.
func (s *Service) Notify(ctx context.Context, notices ...*Notice) error {
	if err := s.Persist(ctx, s.appCtx.DB, notices...); err != nil {
		s.appCtx.Logger.Error("failed to persist notifications", "err", err)
		return err
	}
	s.Deliver(ctx, notices...)
	return nil
}

// Push sends a raw event (message, unmatch, badge) to the user's live session.
func (s *Service) Push(userID uint64, eventType string, payload any) bool {
	if s.registry == nil {
		return false
	}
	return s.registry.Send(userID, eventType, payload)
}

// List returns the most recent notifications of recipientID.
//
// Behavior:
//   - limit <= 0 uses the configured default (50).
//   - limit is capped at pagination.MaxLimit.
//   - Sender username and profile photo are included when a sender exists.
func (s *Service) List(ctx context.Context, recipientID uint64, limit int) ([]View, error) {
	if limit <= 0 {
		limit = s.appCtx.Config.Notifications.ListLimit
	}
	limit = pagination.ClampLimit(limit)

	rows, err := s.notifRepo.ListForRecipient(ctx, recipientID, limit)
	if err != nil {
		s.appCtx.Logger.Error("ListForRecipient failed", "recipient", recipientID, "err", err)
		return nil, err
	}

	out := make([]View, 0, len(rows))
	for _, r := range rows {
		v := View{ID: r.ID, Type: r.Type, IsRead: r.IsRead, CreatedAt: r.CreatedAt, SenderID: r.SenderID}
		if r.SenderName != nil {
			v.SenderName = *r.SenderName
		}
		if r.SenderPhoto != nil {
			v.SenderPhoto = *r.SenderPhoto
		}
		out = append(out, v)
	}
	return out, nil
}

// UnreadCount returns how many notifications of userID are unread.
// Cache-first strategy:
//  1. Attempts to read from Redis (notifications:unread:userID).
//  2. On miss or cache error, falls back to DB via repository.CountUnread.
//  3. On DB fetch, updates Redis with a 1h TTL.
func (s *Service) UnreadCount(ctx context.Context, userID uint64) (int64, error) {
	if n, ok, err := s.appCtx.RedisCache.GetUnreadNotifications(ctx, userID); err == nil && ok {
		return n, nil
	} else if err != nil {
		s.appCtx.Logger.Warn("unread counter cache unavailable", "user_id", userID, "err", err)
	}

	n, err := s.notifRepo.CountUnread(ctx, userID)
	if err != nil {
		return 0, err
	}
	_ = s.appCtx.RedisCache.SetUnreadNotifications(ctx, userID, n)
	return n, nil
}

// MarkAllRead flips every unread notification of userID and drops the cached counter.
func (s *Service) MarkAllRead(ctx context.Context, userID uint64) (int64, error) {
	n, err := s.notifRepo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	if err := s.appCtx.RedisCache.InvalidateUnreadNotifications(ctx, userID); err != nil {
		s.appCtx.Logger.Warn("failed to invalidate unread counter", "user_id", userID, "err", err)
	}
	return n, nil
}
