package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/matcha/internal/db"
	"github.com/oggyb/matcha/internal/utils/pagination"
)

// LikeRepository provides data access methods for the Like model.
// It encapsulates all queries on directed like edges and the derived match.
type LikeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a new repository bound to the given DB connection.
func NewLikeRepository(database *gorm.DB) *LikeRepository {
	return &LikeRepository{db: database}
}

// WithTx returns a copy bound to an open transaction.
func (r *LikeRepository) WithTx(tx *gorm.DB) *LikeRepository {
	return &LikeRepository{db: tx}
}

// Create inserts the edge liker -> liked.
//
// Behavior:
//   - If the (liker_id, liked_id) pair exists → nothing is written, created = false.
//   - Otherwise the row is inserted with the given awarded points, created = true.
//   - Composite PK makes concurrent duplicate likes collapse to one row.
//
// Example:
//
//	repo.Create(ctx, 1, 2, 5) // user 1 liked user 2, user 2 got 5 points
func (r *LikeRepository) Create(ctx context.Context, likerID, likedID uint64, awarded float64) (bool, error) {
	like := db.Like{LikerID: likerID, LikedID: likedID, Awarded: awarded}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&like)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Get returns the edge liker -> liked or nil when absent.
func (r *LikeRepository) Get(ctx context.Context, likerID, likedID uint64) (*db.Like, error) {
	var likes []db.Like
	err := r.db.WithContext(ctx).
		Where("liker_id = ? AND liked_id = ?", likerID, likedID).
		Limit(1).
		Find(&likes).Error
	if err != nil || len(likes) == 0 {
		return nil, err
	}
	return &likes[0], nil
}

// Delete removes the edge liker -> liked. removed is false if it did not exist.
func (r *LikeRepository) Delete(ctx context.Context, likerID, likedID uint64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("liker_id = ? AND liked_id = ?", likerID, likedID).
		Delete(&db.Like{})
	return res.RowsAffected > 0, res.Error
}

// Pair returns the edges a -> b and b -> a; either may be nil.
func (r *LikeRepository) Pair(ctx context.Context, a, b uint64) (ab, ba *db.Like, err error) {
	var likes []db.Like
	err = r.db.WithContext(ctx).
		Where("(liker_id = ? AND liked_id = ?) OR (liker_id = ? AND liked_id = ?)", a, b, b, a).
		Find(&likes).Error
	if err != nil {
		return nil, nil, err
	}
	for i := range likes {
		if likes[i].LikerID == a {
			ab = &likes[i]
		} else {
			ba = &likes[i]
		}
	}
	return ab, ba, nil
}

// HasLiked checks whether liker has a live edge to liked.
func (r *LikeRepository) HasLiked(ctx context.Context, likerID, likedID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Like{}).
		Where("liker_id = ? AND liked_id = ?", likerID, likedID).
		Count(&count).Error
	return count > 0, err
}

// IsMatch reports whether both directed edges between a and b exist.
// It is evaluated against the store on every call, never cached.
func (r *LikeRepository) IsMatch(ctx context.Context, a, b uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Like{}).
		Where("(liker_id = ? AND liked_id = ?) OR (liker_id = ? AND liked_id = ?)", a, b, b, a).
		Count(&count).Error
	return count == 2, err
}

// MatchedIDs returns every user currently matched with userID.
func (r *LikeRepository) MatchedIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Table("likes l1").
		Select("l1.liked_id").
		Joins("JOIN likes l2 ON l2.liker_id = l1.liked_id AND l2.liked_id = l1.liker_id").
		Where("l1.liker_id = ?", userID).
		Order("l1.liked_id ASC").
		Scan(&ids).Error
	return ids, err
}

// ListLikers returns users who currently like likedID, most recent first.
//
// Behavior:
//   - Ordered by created_at DESC, liker_id DESC.
//   - Supports cursor-based pagination via paginationToken.
//   - Joined with username, popularity and profile photo of the liker.
func (r *LikeRepository) ListLikers(
	ctx context.Context,
	likedID uint64,
	paginationToken *string,
	limit int,
) ([]UserEdgeRow, *string, error) {
	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Table("likes l").
		Select(`l.liker_id AS user_id, u.username, u.popularity, p.url AS photo_url,
			l.created_at, l.liker_id AS cursor_id`).
		Joins("JOIN users u ON u.id = l.liker_id").
		Joins("LEFT JOIN photos p ON p.user_id = u.id AND p.is_profile = ?", true).
		Where("l.liked_id = ?", likedID).
		Order("l.created_at DESC, l.liker_id DESC").
		Limit(limit + 1)

	// apply cursor
	if !cursor.IsZero() {
		ts := cursor.Time()
		query = query.Where(
			"(l.created_at < ? OR (l.created_at = ? AND l.liker_id < ?))",
			ts, ts, cursor.ID,
		)
	}

	var rows []UserEdgeRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, nil, err
	}

	rows, next := pagination.Page(rows, limit, UserEdgeRow.cursor)
	return rows, next, nil
}
