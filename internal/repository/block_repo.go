package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/matcha/internal/db"
)

// BlockRepository persists directed block edges.
type BlockRepository struct {
	db *gorm.DB
}

func NewBlockRepository(database *gorm.DB) *BlockRepository {
	return &BlockRepository{db: database}
}

func (r *BlockRepository) WithTx(tx *gorm.DB) *BlockRepository {
	return &BlockRepository{db: tx}
}

// Create inserts blocker -> blocked. Idempotent.
func (r *BlockRepository) Create(ctx context.Context, blockerID, blockedID uint64) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&db.Block{BlockerID: blockerID, BlockedID: blockedID})
	return res.RowsAffected == 1, res.Error
}

// Delete removes blocker -> blocked only; the reverse edge is untouched.
func (r *BlockRepository) Delete(ctx context.Context, blockerID, blockedID uint64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&db.Block{})
	return res.RowsAffected > 0, res.Error
}

// Exists reports whether blocker -> blocked is active.
func (r *BlockRepository) Exists(ctx context.Context, blockerID, blockedID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Block{}).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Count(&count).Error
	return count > 0, err
}

// EitherWay reports whether a block is active in either direction between a and b.
func (r *BlockRepository) EitherWay(ctx context.Context, a, b uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Block{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a).
		Count(&count).Error
	return count > 0, err
}
