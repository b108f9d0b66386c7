package repository

import (
	"context"
	"errors"

	"github.com/krai/engine/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormStageStatusRepository struct {
	db *gorm.DB
}

// NewStageStatusRepository creates a StageStatusRepository backed by db.
func NewStageStatusRepository(db *gorm.DB) StageStatusRepository {
	return &gormStageStatusRepository{db: db}
}

func (r *gormStageStatusRepository) Get(ctx context.Context, documentID models.ULID, stage string) (*models.StageStatus, error) {
	var s models.StageStatus
	err := r.db.WithContext(ctx).Where("document_id = ? AND stage = ?", documentID, stage).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *gormStageStatusRepository) Upsert(ctx context.Context, status *models.StageStatus) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "document_id"}, {Name: "stage"}},
		UpdateAll: true,
	}).Create(status).Error
}

func (r *gormStageStatusRepository) ListByDocument(ctx context.Context, documentID models.ULID) ([]*models.StageStatus, error) {
	var statuses []*models.StageStatus
	if err := r.db.WithContext(ctx).Where("document_id = ?", documentID).Find(&statuses).Error; err != nil {
		return nil, err
	}
	return statuses, nil
}

type gormPipelineErrorRepository struct {
	db *gorm.DB
}

// NewPipelineErrorRepository creates a PipelineErrorRepository backed by db.
func NewPipelineErrorRepository(db *gorm.DB) PipelineErrorRepository {
	return &gormPipelineErrorRepository{db: db}
}

func (r *gormPipelineErrorRepository) Create(ctx context.Context, pe *models.PipelineError) error {
	return r.db.WithContext(ctx).Create(pe).Error
}

func (r *gormPipelineErrorRepository) ListRetryable(ctx context.Context, limit int) ([]*models.PipelineError, error) {
	var errs []*models.PipelineError
	q := r.db.WithContext(ctx).
		Where("status != ? AND error_kind = ?", models.PipelineErrorStatusResolved, "transient").
		Where("retry_count < max_retries").
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&errs).Error; err != nil {
		return nil, err
	}
	return errs, nil
}

func (r *gormPipelineErrorRepository) MarkResolved(ctx context.Context, id models.ULID, resolvedBy, notes string) error {
	result := r.db.WithContext(ctx).Model(&models.PipelineError{}).Where("id = ?", id).Updates(map[string]any{
		"status":           models.PipelineErrorStatusResolved,
		"resolved_at":      models.Now(),
		"resolved_by":      resolvedBy,
		"resolution_notes": notes,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("pipeline error not found")
	}
	return nil
}

func (r *gormPipelineErrorRepository) ListByDocument(ctx context.Context, documentID models.ULID) ([]*models.PipelineError, error) {
	var errs []*models.PipelineError
	if err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("created_at DESC").
		Find(&errs).Error; err != nil {
		return nil, err
	}
	return errs, nil
}

type gormAuditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository creates an AuditLogRepository backed by db.
func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &gormAuditLogRepository{db: db}
}

func (r *gormAuditLogRepository) Append(ctx context.Context, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *gormAuditLogRepository) ListByDocument(ctx context.Context, documentID models.ULID, limit int) ([]*models.AuditLog, error) {
	var entries []*models.AuditLog
	q := r.db.WithContext(ctx).Where("document_id = ?", documentID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
