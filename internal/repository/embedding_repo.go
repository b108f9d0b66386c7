package repository

import (
	"context"

	"github.com/krai/engine/internal/models"
	"github.com/krai/engine/internal/vectorindex"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormEmbeddingRepository struct {
	db    *gorm.DB
	index vectorindex.Index
}

// NewEmbeddingRepository creates an EmbeddingRepository backed by db,
// ranking search results through index. Pass vectorindex.NewCosineIndex()
// for the default in-process backend.
func NewEmbeddingRepository(db *gorm.DB, index vectorindex.Index) EmbeddingRepository {
	return &gormEmbeddingRepository{db: db, index: index}
}

func (r *gormEmbeddingRepository) UpsertBatch(ctx context.Context, embeddings []*models.Embedding) error {
	if len(embeddings) == 0 {
		return nil
	}
	for _, e := range embeddings {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_kind"}, {Name: "owner_id"}, {Name: "model_name"}},
		UpdateAll: true,
	}).CreateInBatches(embeddings, 100).Error
}

func (r *gormEmbeddingRepository) ListByOwner(ctx context.Context, ownerKind models.EmbeddingOwnerKind, ownerID models.ULID) ([]*models.Embedding, error) {
	var embeddings []*models.Embedding
	if err := r.db.WithContext(ctx).
		Where("owner_kind = ? AND owner_id = ?", ownerKind, ownerID).
		Find(&embeddings).Error; err != nil {
		return nil, err
	}
	return embeddings, nil
}

// Search loads every embedding for modelName and ranks it through the
// configured vectorindex.Index. Candidate loading is unfiltered by owner
// kind because callers (chunk search vs. image search) distinguish that
// at a higher layer; this keeps the storage contract narrow.
func (r *gormEmbeddingRepository) Search(ctx context.Context, modelName string, query models.FloatVector, limit int) ([]*models.Embedding, error) {
	var candidates []*models.Embedding
	if err := r.db.WithContext(ctx).Where("model_name = ?", modelName).Find(&candidates).Error; err != nil {
		return nil, err
	}

	ranked, err := r.index.Rank(ctx, query, candidates, limit)
	if err != nil {
		return nil, err
	}

	results := make([]*models.Embedding, 0, len(ranked))
	for _, c := range ranked {
		results = append(results, c.Embedding)
	}
	return results, nil
}
