package repository

import (
	"context"

	"github.com/krai/engine/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormChunkRepository struct {
	db *gorm.DB
}

// NewChunkRepository creates a ChunkRepository backed by db.
func NewChunkRepository(db *gorm.DB) ChunkRepository {
	return &gormChunkRepository{db: db}
}

// UpsertBatch inserts or replaces chunks keyed by (document_id, ordinal),
// preserving the previous/next linked-list fields callers set before
// calling in. Re-running chunk_prep for a document reprocess overwrites
// its previous chunk rows rather than duplicating them.
func (r *gormChunkRepository) UpsertBatch(ctx context.Context, chunks []*models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "document_id"}, {Name: "ordinal"}},
		UpdateAll: true,
	}).CreateInBatches(chunks, 100).Error
}

func (r *gormChunkRepository) ListByDocument(ctx context.Context, documentID models.ULID) ([]*models.Chunk, error) {
	var chunks []*models.Chunk
	if err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("ordinal ASC").
		Find(&chunks).Error; err != nil {
		return nil, err
	}
	return chunks, nil
}

func (r *gormChunkRepository) Get(ctx context.Context, id models.ULID) (*models.Chunk, error) {
	var c models.Chunk
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}
