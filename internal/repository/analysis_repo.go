package repository

import (
	"context"

	"github.com/timmy/surrogates/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AnalysisRepository stores analysis summaries.
type AnalysisRepository struct {
	db *gorm.DB
}

// NewAnalysisRepository creates a new AnalysisRepository.
func NewAnalysisRepository(db *gorm.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Upsert creates or replaces the record of a job.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - record: summary to persist; JobID is the key.
//
// Returns:
//   - error: non-nil if the write fails.
func (r *AnalysisRepository) Upsert(ctx context.Context, record *domain.AnalysisRecord) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job_id"}},
		UpdateAll: true,
	}).Create(record).Error
}

// GetByJobID retrieves the record of a job.
func (r *AnalysisRepository) GetByJobID(ctx context.Context, jobID string) (*domain.AnalysisRecord, error) {
	var record domain.AnalysisRecord
	if err := r.db.WithContext(ctx).First(&record, "job_id = ?", jobID).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// ListRecent returns the newest records first.
func (r *AnalysisRepository) ListRecent(ctx context.Context, limit int) ([]domain.AnalysisRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var records []domain.AnalysisRecord
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// Count returns the number of stored records.
func (r *AnalysisRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.AnalysisRecord{}).Count(&count).Error
	return count, err
}
