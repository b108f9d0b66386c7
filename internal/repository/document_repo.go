package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/krai/engine/internal/models"
	"gorm.io/gorm"
)

type gormDocumentRepository struct {
	db *gorm.DB
}

// NewDocumentRepository creates a DocumentRepository backed by db.
func NewDocumentRepository(db *gorm.DB) DocumentRepository {
	return &gormDocumentRepository{db: db}
}

func (r *gormDocumentRepository) Get(ctx context.Context, id models.ULID) (*models.Document, error) {
	var doc models.Document
	if err := r.db.WithContext(ctx).First(&doc, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *gormDocumentRepository) GetByHash(ctx context.Context, hash string) (*models.Document, error) {
	var doc models.Document
	if err := r.db.WithContext(ctx).First(&doc, "file_hash = ?", hash).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *gormDocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	err := r.db.WithContext(ctx).Create(doc).Error
	if err != nil && isUniqueConstraintErr(err) {
		return fmt.Errorf("%w: %s", ErrDuplicateDocument, doc.FileHash)
	}
	return err
}

func (r *gormDocumentRepository) Update(ctx context.Context, doc *models.Document) error {
	return r.db.WithContext(ctx).Save(doc).Error
}

func (r *gormDocumentRepository) List(ctx context.Context, status models.ProcessingStatus, limit, offset int) ([]*models.Document, error) {
	var docs []*models.Document
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		q = q.Where("processing_status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// isUniqueConstraintErr is a best-effort check across the three supported
// drivers' distinct unique-violation error shapes. GORM does not
// normalize this, so each driver is matched on its own wrapped message.
func isUniqueConstraintErr(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || // sqlite
		strings.Contains(msg, "duplicate key value") || // postgres
		strings.Contains(msg, "Duplicate entry") // mysql
}
