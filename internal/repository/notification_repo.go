package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/matcha/internal/db"
)

// NotificationRepository persists notification records.
type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(database *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: database}
}

func (r *NotificationRepository) WithTx(tx *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: tx}
}

// Create inserts the given notifications; IDs and timestamps are filled in place.
func (r *NotificationRepository) Create(ctx context.Context, notifications ...*db.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(notifications).Error
}

// NotificationRow is a notification joined with sender display data.
type NotificationRow struct {
	ID          uint64
	Type        string
	IsRead      bool
	CreatedAt   time.Time
	SenderID    *uint64
	SenderName  *string
	SenderPhoto *string
}

// ListForRecipient returns the most recent notifications of recipientID.
//
// Behavior:
//   - Ordered by created_at DESC, id DESC.
//   - Bounded by limit.
//   - Sender username and profile photo are joined when a sender exists.
func (r *NotificationRepository) ListForRecipient(ctx context.Context, recipientID uint64, limit int) ([]NotificationRow, error) {
	var rows []NotificationRow
	err := r.db.WithContext(ctx).
		Table("notifications n").
		Select(`n.id, n.type, n.is_read, n.created_at, n.sender_id,
			u.username AS sender_name, p.url AS sender_photo`).
		Joins("LEFT JOIN users u ON u.id = n.sender_id").
		Joins("LEFT JOIN photos p ON p.user_id = u.id AND p.is_profile = ?", true).
		Where("n.recipient_id = ?", recipientID).
		Order("n.created_at DESC, n.id DESC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

// CountUnread returns how many notifications of recipientID are unread.
func (r *NotificationRepository) CountUnread(ctx context.Context, recipientID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&count).Error
	return count, err
}

// MarkAllRead flips every unread notification of recipientID in one statement.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipientID uint64) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		UpdateColumn("is_read", true)
	return res.RowsAffected, res.Error
}
