// Package chat stores messages between matched users and gates every read
// and write on a live match.
package chat

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/oggyb/matcha/internal/app"
	"github.com/oggyb/matcha/internal/db"
	svcErr "github.com/oggyb/matcha/internal/errors"
	"github.com/oggyb/matcha/internal/metrics"
	"github.com/oggyb/matcha/internal/presence"
	"github.com/oggyb/matcha/internal/repository"
	"github.com/oggyb/matcha/internal/service/notification"
)

// MaxMessageLength is counted in characters after trimming.
const MaxMessageLength = 1000

// Message is a stored chat message. It is also the `message` event payload.
type Message struct {
	ID         uint64    `json:"id"`
	SenderID   uint64    `json:"sender_id"`
	ReceiverID uint64    `json:"receiver_id"`
	Body       string    `json:"body"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

func toMessage(m db.Message) Message {
	return Message{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Body:       m.Body,
		IsRead:     m.IsRead,
		CreatedAt:  m.CreatedAt,
	}
}

// Conversation is one current match of the caller.
type Conversation struct {
	UserID      uint64   `json:"user_id"`
	Username    string   `json:"username"`
	PhotoURL    string   `json:"photo_url,omitempty"`
	IsOnline    bool     `json:"is_online"`
	LastMessage *Message `json:"last_message,omitempty"`
	Unread      int64    `json:"unread"`
}

// Service is the conversation store and its match gate.
type Service struct {
	appCtx *app.AppContext

	userRepo    *repository.UserRepository
	likeRepo    *repository.LikeRepository
	messageRepo *repository.MessageRepository

	notifier *notification.Service
	registry presence.Registry
}

func NewService(appCtx *app.AppContext, notifier *notification.Service, registry presence.Registry) *Service {
	return &Service{
		appCtx:      appCtx,
		userRepo:    repository.NewUserRepository(appCtx.DB),
		likeRepo:    repository.NewLikeRepository(appCtx.DB),
		messageRepo: repository.NewMessageRepository(appCtx.DB),
		notifier:    notifier,
		registry:    registry,
	}
}

// ListConversations returns every current match of userID with the last
// message and the unread count. Most recent conversation first; matches
// without messages follow, ordered by user id.
func (s *Service) ListConversations(ctx context.Context, userID uint64) ([]Conversation, error) {
	s.appCtx.Logger.Debug("ListConversations called", "user", userID)

	matched, err := s.likeRepo.MatchedIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	if len(matched) == 0 {
		return []Conversation{}, nil
	}

	latest, err := s.messageRepo.Latest(ctx, userID, matched)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	unread, err := s.messageRepo.UnreadBySender(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	names, err := s.userRepo.Usernames(ctx, matched)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	photos, err := s.userRepo.ProfilePhotoURLs(ctx, matched)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	out := make([]Conversation, 0, len(matched))
	for _, id := range matched {
		c := Conversation{
			UserID:   id,
			Username: names[id],
			PhotoURL: photos[id],
			Unread:   unread[id],
		}
		if s.registry != nil {
			c.IsOnline = s.registry.IsOnline(id)
		}
		if m, ok := latest[id]; ok {
			msg := toMessage(m)
			c.LastMessage = &msg
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := lastAt(out[i]), lastAt(out[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

func lastAt(c Conversation) time.Time {
	if c.LastMessage == nil {
		return time.Time{}
	}
	return c.LastMessage.CreatedAt
}

// History returns the messages between userID and otherID, oldest first,
// after marking those addressed to userID as read.
//
// Behavior:
//   - Self target → ErrSelfTarget.
//   - No live match (including any block) → ErrNotMatched.
func (s *Service) History(ctx context.Context, userID, otherID uint64) ([]Message, error) {
	s.appCtx.Logger.Debug("History called", "user", userID, "other", otherID)

	if userID == otherID {
		return nil, fmt.Errorf("history: %w", svcErr.ErrSelfTarget)
	}
	matched, err := s.likeRepo.IsMatch(ctx, userID, otherID)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	if !matched {
		return nil, fmt.Errorf("history: %w", svcErr.ErrNotMatched)
	}

	if _, err := s.messageRepo.MarkReadFrom(ctx, otherID, userID); err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	rows, err := s.messageRepo.History(ctx, userID, otherID)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	out := make([]Message, 0, len(rows))
	for _, m := range rows {
		out = append(out, toMessage(m))
	}
	return out, nil
}

// Post stores a message from sender to receiver.
//
// Behavior:
//   - The body is trimmed; empty → ErrEmptyMessage, over MaxMessageLength
//     characters → ErrMessageTooLong.
//   - The match is checked inside the write transaction; none → ErrNotMatched,
//     nothing stored, nobody notified.
//   - The message and its `message` notification commit together, then the
//     receiver gets a `message` event carrying the stored message.
//
// Example:
//
//	msg, err := svc.Post(ctx, 1, 2, "hello")
func (s *Service) Post(ctx context.Context, senderID, receiverID uint64, body string) (*Message, error) {
	s.appCtx.Logger.Debug("Post called", "sender", senderID, "receiver", receiverID)

	body = strings.TrimSpace(body)
	switch {
	case senderID == receiverID:
		return nil, fmt.Errorf("post: %w", svcErr.ErrSelfTarget)
	case body == "":
		return nil, fmt.Errorf("post: %w", svcErr.ErrEmptyMessage)
	case utf8.RuneCountInString(body) > MaxMessageLength:
		return nil, fmt.Errorf("post: %w", svcErr.ErrMessageTooLong)
	}

	row := &db.Message{SenderID: senderID, ReceiverID: receiverID, Body: body}
	notice := &notification.Notice{RecipientID: receiverID, SenderID: senderID, Type: db.NotificationMessage}
	err := s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.userRepo.WithTx(tx).LockPair(ctx, senderID, receiverID); err != nil {
			return err
		}
		matched, err := s.likeRepo.WithTx(tx).IsMatch(ctx, senderID, receiverID)
		if err != nil {
			return err
		}
		if !matched {
			return svcErr.ErrNotMatched
		}
		if err := s.messageRepo.WithTx(tx).Create(ctx, row); err != nil {
			return err
		}
		return s.notifier.Persist(ctx, tx, notice)
	})
	if err != nil {
		return nil, fmt.Errorf("post: %w", err)
	}

	metrics.MessagesPosted.Inc()
	s.notifier.Deliver(ctx, notice)
	msg := toMessage(*row)
	s.notifier.Push(receiverID, presence.EventMessage, msg)
	return &msg, nil
}

// UnreadTotal counts unread messages addressed to userID.
func (s *Service) UnreadTotal(ctx context.Context, userID uint64) (int64, error) {
	n, err := s.messageRepo.UnreadTotal(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("unread total: %w", err)
	}
	return n, nil
}
