package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/matcha/internal/db"
)

// ReportRepository persists moderation reports.
type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(database *gorm.DB) *ReportRepository {
	return &ReportRepository{db: database}
}

// Create inserts reporter -> reported with reason. An existing report for the
// pair is kept as is (first reason wins) and created is false.
func (r *ReportRepository) Create(ctx context.Context, reporterID, reportedID uint64, reason string) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&db.Report{ReporterID: reporterID, ReportedID: reportedID, Reason: reason})
	return res.RowsAffected == 1, res.Error
}

// Get returns the report of the pair or gorm.ErrRecordNotFound.
func (r *ReportRepository) Get(ctx context.Context, reporterID, reportedID uint64) (*db.Report, error) {
	var rep db.Report
	err := r.db.WithContext(ctx).
		Where("reporter_id = ? AND reported_id = ?", reporterID, reportedID).
		First(&rep).Error
	if err != nil {
		return nil, err
	}
	return &rep, nil
}
