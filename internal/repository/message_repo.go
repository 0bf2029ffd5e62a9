package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/oggyb/matcha/internal/db"
)

// MessageRepository persists chat messages.
type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(database *gorm.DB) *MessageRepository {
	return &MessageRepository{db: database}
}

func (r *MessageRepository) WithTx(tx *gorm.DB) *MessageRepository {
	return &MessageRepository{db: tx}
}

// Create inserts a message; ID and CreatedAt are filled in place.
func (r *MessageRepository) Create(ctx context.Context, m *db.Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// History returns every message exchanged between a and b, oldest first.
func (r *MessageRepository) History(ctx context.Context, a, b uint64) ([]db.Message, error) {
	var msgs []db.Message
	err := r.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	return msgs, err
}

// MarkReadFrom marks messages sent by senderID to receiverID as read.
func (r *MessageRepository) MarkReadFrom(ctx context.Context, senderID, receiverID uint64) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND is_read = ?", senderID, receiverID, false).
		UpdateColumn("is_read", true)
	return res.RowsAffected, res.Error
}

// MarkPairRead marks every message between a and b as read, both directions.
// Used when a match breaks and the chat freezes.
func (r *MessageRepository) MarkPairRead(ctx context.Context, a, b uint64) error {
	return r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)) AND is_read = ?", a, b, b, a, false).
		UpdateColumn("is_read", true).Error
}

// Latest returns the most recent message per counterpart of userID, keyed by
// counterpart id. Counterparts without messages are absent.
func (r *MessageRepository) Latest(ctx context.Context, userID uint64, counterparts []uint64) (map[uint64]db.Message, error) {
	out := make(map[uint64]db.Message, len(counterparts))
	if len(counterparts) == 0 {
		return out, nil
	}

	var msgs []db.Message
	err := r.db.WithContext(ctx).
		Where(`(sender_id = ? AND receiver_id IN ?) OR (receiver_id = ? AND sender_id IN ?)`,
			userID, counterparts, userID, counterparts).
		Order("created_at DESC, id DESC").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}

	for _, m := range msgs {
		other := m.SenderID
		if other == userID {
			other = m.ReceiverID
		}
		if _, seen := out[other]; !seen {
			out[other] = m
		}
	}
	return out, nil
}

// UnreadBySender counts unread messages addressed to receiverID per sender.
func (r *MessageRepository) UnreadBySender(ctx context.Context, receiverID uint64) (map[uint64]int64, error) {
	var rows []struct {
		SenderID uint64
		Count    int64
	}
	err := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Select("sender_id, COUNT(*) AS count").
		Where("receiver_id = ? AND is_read = ?", receiverID, false).
		Group("sender_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[uint64]int64, len(rows))
	for _, row := range rows {
		out[row.SenderID] = row.Count
	}
	return out, nil
}

// UnreadTotal counts every unread message addressed to receiverID.
func (r *MessageRepository) UnreadTotal(ctx context.Context, receiverID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("receiver_id = ? AND is_read = ?", receiverID, false).
		Count(&count).Error
	return count, err
}
