package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/matcha/internal/db"
)

// UserRepository reads user aggregates and applies the few mutations the
// social core owns: popularity score and last-seen.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

func (r *UserRepository) WithTx(tx *gorm.DB) *UserRepository {
	return &UserRepository{db: tx}
}

// Get loads one user or returns gorm.ErrRecordNotFound.
func (r *UserRepository) Get(ctx context.Context, id uint64) (*db.User, error) {
	var u db.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetProfile loads one user with tags and photos.
func (r *UserRepository) GetProfile(ctx context.Context, id uint64) (*db.User, error) {
	var u db.User
	err := r.db.WithContext(ctx).
		Preload("Tags", func(tx *gorm.DB) *gorm.DB { return tx.Order("tags.name ASC") }).
		Preload("Photos", func(tx *gorm.DB) *gorm.DB { return tx.Order("is_profile DESC, id ASC") }).
		First(&u, id).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ApplyScoreDelta adds delta to the user's popularity, clamping at zero.
// Reductions below zero are not an error, the score simply floors.
//
// Example:
//
//	repo.WithTx(tx).ApplyScoreDelta(ctx, 2, -5)
func (r *UserRepository) ApplyScoreDelta(ctx context.Context, userID uint64, delta float64) error {
	if delta == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", userID).
		UpdateColumn("popularity",
			gorm.Expr("CASE WHEN popularity + ? < 0 THEN 0 ELSE popularity + ? END", delta, delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// LockPair takes row locks on both users in id order so concurrent
// transitions on the same pair serialize. Both users must exist.
func (r *UserRepository) LockPair(ctx context.Context, a, b uint64) error {
	ids := []uint64{a, b}
	if a > b {
		ids = []uint64{b, a}
	}
	var users []db.User
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&users).Error
	if err != nil {
		return err
	}
	if len(users) != 2 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetLastSeen persists last_seen; nil marks the user online.
func (r *UserRepository) SetLastSeen(ctx context.Context, userID uint64, at *time.Time) error {
	return r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", userID).
		UpdateColumn("last_seen_at", at).Error
}

// HasPhoto reports whether the user owns at least one photo.
func (r *UserRepository) HasPhoto(ctx context.Context, userID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Photo{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count > 0, err
}

// Username returns the display name used on pushed events.
func (r *UserRepository) Username(ctx context.Context, userID uint64) (string, error) {
	var names []string
	err := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("id = ?", userID).
		Limit(1).
		Pluck("username", &names).Error
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", gorm.ErrRecordNotFound
	}
	return names[0], nil
}

// PoolFilter narrows the discoverable pool. Zero value applies no gender filter.
type PoolFilter struct {
	Genders        []string
	ExcludeGenders []string
}

// Discoverable returns the candidate pool of viewerID.
//
// Behavior:
//   - Excludes the viewer, unverified accounts and accounts without any photo.
//   - Excludes both directions of any block involving the viewer.
//   - Applies the optional gender filter.
//   - Ordered by id for stable downstream ranking.
func (r *UserRepository) Discoverable(ctx context.Context, viewerID uint64, f PoolFilter) ([]db.User, error) {
	query := r.db.WithContext(ctx).
		Model(&db.User{}).
		Where("users.id <> ?", viewerID).
		Where("users.verified = ?", true).
		Where("EXISTS (SELECT 1 FROM photos p WHERE p.user_id = users.id)").
		Where(`NOT EXISTS (
			SELECT 1 FROM blocks b
			WHERE (b.blocker_id = ? AND b.blocked_id = users.id)
			   OR (b.blocker_id = users.id AND b.blocked_id = ?)
		)`, viewerID, viewerID).
		Order("users.id ASC")

	if len(f.Genders) > 0 {
		query = query.Where("users.gender IN ?", f.Genders)
	}
	if len(f.ExcludeGenders) > 0 {
		query = query.Where("users.gender NOT IN ?", f.ExcludeGenders)
	}

	var users []db.User
	if err := query.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// TagNames returns the tag names of each given user, sorted by name.
func (r *UserRepository) TagNames(ctx context.Context, userIDs []uint64) (map[uint64][]string, error) {
	out := make(map[uint64][]string, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		UserID uint64
		Name   string
	}
	err := r.db.WithContext(ctx).
		Table("user_tags ut").
		Select("ut.user_id, t.name").
		Joins("JOIN tags t ON t.id = ut.tag_id").
		Where("ut.user_id IN ?", userIDs).
		Order("ut.user_id ASC, t.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.UserID] = append(out[row.UserID], row.Name)
	}
	return out, nil
}

// ProfilePhotoURLs returns the profile photo of each user, falling back to
// the oldest photo when none is flagged.
func (r *UserRepository) ProfilePhotoURLs(ctx context.Context, userIDs []uint64) (map[uint64]string, error) {
	out := make(map[uint64]string, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	var photos []db.Photo
	err := r.db.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Order("user_id ASC, is_profile DESC, id ASC").
		Find(&photos).Error
	if err != nil {
		return nil, err
	}
	for _, p := range photos {
		if _, ok := out[p.UserID]; !ok {
			out[p.UserID] = p.URL
		}
	}
	return out, nil
}

// Usernames resolves display names for a set of users.
func (r *UserRepository) Usernames(ctx context.Context, userIDs []uint64) (map[uint64]string, error) {
	out := make(map[uint64]string, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		ID       uint64
		Username string
	}
	err := r.db.WithContext(ctx).
		Model(&db.User{}).
		Select("id, username").
		Where("id IN ?", userIDs).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row.Username
	}
	return out, nil
}
