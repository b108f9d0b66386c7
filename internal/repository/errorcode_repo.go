package repository

import (
	"context"

	"github.com/krai/engine/internal/models"
	"gorm.io/gorm"
)

type gormErrorCodeRepository struct {
	db *gorm.DB
}

// NewErrorCodeRepository creates an ErrorCodeRepository backed by db.
func NewErrorCodeRepository(db *gorm.DB) ErrorCodeRepository {
	return &gormErrorCodeRepository{db: db}
}

func (r *gormErrorCodeRepository) InsertBatch(ctx context.Context, codes []*models.ErrorCode) error {
	if len(codes) == 0 {
		return nil
	}
	for _, c := range codes {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return r.db.WithContext(ctx).CreateInBatches(codes, 100).Error
}

func (r *gormErrorCodeRepository) ListByDocument(ctx context.Context, documentID models.ULID) ([]*models.ErrorCode, error) {
	var codes []*models.ErrorCode
	if err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("page_number ASC, confidence_score DESC").
		Find(&codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}

func (r *gormErrorCodeRepository) ListByManufacturerAndCode(ctx context.Context, manufacturerID models.ULID, code string) ([]*models.ErrorCode, error) {
	var codes []*models.ErrorCode
	if err := r.db.WithContext(ctx).
		Where("manufacturer_id = ? AND error_code = ?", manufacturerID, code).
		Order("confidence_score DESC").
		Find(&codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}
