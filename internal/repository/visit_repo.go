package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/matcha/internal/db"
	"github.com/oggyb/matcha/internal/utils/pagination"
)

// VisitRepository persists profile visits.
type VisitRepository struct {
	db *gorm.DB
}

func NewVisitRepository(database *gorm.DB) *VisitRepository {
	return &VisitRepository{db: database}
}

func (r *VisitRepository) WithTx(tx *gorm.DB) *VisitRepository {
	return &VisitRepository{db: tx}
}

// Create records visitor -> visited now.
func (r *VisitRepository) Create(ctx context.Context, visitorID, visitedID uint64) (*db.Visit, error) {
	v := &db.Visit{VisitorID: visitorID, VisitedID: visitedID}
	if err := r.db.WithContext(ctx).Create(v).Error; err != nil {
		return nil, err
	}
	return v, nil
}

// HasSince reports whether visitor -> visited was recorded at or after since.
// Used as the dedup gate when Redis is unavailable.
func (r *VisitRepository) HasSince(ctx context.Context, visitorID, visitedID uint64, since time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Visit{}).
		Where("visitor_id = ? AND visited_id = ? AND created_at >= ?", visitorID, visitedID, since).
		Count(&count).Error
	return count > 0, err
}

// ListVisitors returns visits to visitedID, most recent first, cursor-paginated.
func (r *VisitRepository) ListVisitors(
	ctx context.Context,
	visitedID uint64,
	paginationToken *string,
	limit int,
) ([]UserEdgeRow, *string, error) {
	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Table("visits v").
		Select(`v.visitor_id AS user_id, u.username, u.popularity, p.url AS photo_url,
			v.created_at, v.id AS cursor_id`).
		Joins("JOIN users u ON u.id = v.visitor_id").
		Joins("LEFT JOIN photos p ON p.user_id = u.id AND p.is_profile = ?", true).
		Where("v.visited_id = ?", visitedID).
		Where(`NOT EXISTS (
			SELECT 1 FROM blocks b
			WHERE (b.blocker_id = v.visited_id AND b.blocked_id = v.visitor_id)
			   OR (b.blocker_id = v.visitor_id AND b.blocked_id = v.visited_id)
		)`).
		Order("v.created_at DESC, v.id DESC").
		Limit(limit + 1)

	if !cursor.IsZero() {
		ts := cursor.Time()
		query = query.Where("(v.created_at < ? OR (v.created_at = ? AND v.id < ?))", ts, ts, cursor.ID)
	}

	var rows []UserEdgeRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, nil, err
	}

	rows, next := pagination.Page(rows, limit, UserEdgeRow.cursor)
	return rows, next, nil
}
