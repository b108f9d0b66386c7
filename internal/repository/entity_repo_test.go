package repository

import (
	"context"
	"testing"

	"github.com/krai/engine/internal/models"
	"github.com/krai/engine/internal/vectorindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkRepository_UpsertAndList(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChunkRepository(db)
	ctx := context.Background()

	docID := models.NewULID()
	chunks := []*models.Chunk{
		{DocumentID: docID, Ordinal: 1, PageNumber: 1, Text: "first"},
		{DocumentID: docID, Ordinal: 0, PageNumber: 1, Text: "zeroth"},
	}
	require.NoError(t, repo.UpsertBatch(ctx, chunks))

	listed, err := repo.ListByDocument(ctx, docID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "zeroth", listed[0].Text)
}

func TestChunkRepository_UpsertBatchReplacesOnReprocess(t *testing.T) {
	db := setupTestDB(t)
	repo := NewChunkRepository(db)
	ctx := context.Background()

	docID := models.NewULID()
	require.NoError(t, repo.UpsertBatch(ctx, []*models.Chunk{{DocumentID: docID, Ordinal: 0, PageNumber: 1, Text: "old"}}))
	require.NoError(t, repo.UpsertBatch(ctx, []*models.Chunk{{DocumentID: docID, Ordinal: 0, PageNumber: 1, Text: "new"}}))

	listed, err := repo.ListByDocument(ctx, docID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "new", listed[0].Text)
}

func TestEmbeddingRepository_SearchRanksByCosine(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEmbeddingRepository(db, vectorindex.NewCosineIndex())
	ctx := context.Background()

	near := &models.Embedding{OwnerKind: models.EmbeddingOwnerChunk, OwnerID: models.NewULID(), ModelName: "test-model", Dimension: 2, Vector: models.FloatVector{1, 0}}
	far := &models.Embedding{OwnerKind: models.EmbeddingOwnerChunk, OwnerID: models.NewULID(), ModelName: "test-model", Dimension: 2, Vector: models.FloatVector{0, 1}}
	require.NoError(t, repo.UpsertBatch(ctx, []*models.Embedding{far, near}))

	results, err := repo.Search(ctx, "test-model", models.FloatVector{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, near.OwnerID, results[0].OwnerID)
}

func TestEmbeddingRepository_UpsertRejectsDimensionMismatch(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEmbeddingRepository(db, vectorindex.NewCosineIndex())
	ctx := context.Background()

	bad := &models.Embedding{OwnerKind: models.EmbeddingOwnerChunk, OwnerID: models.NewULID(), ModelName: "test-model", Dimension: 3, Vector: models.FloatVector{1, 0}}
	err := repo.UpsertBatch(ctx, []*models.Embedding{bad})
	assert.ErrorIs(t, err, models.ErrEmbeddingDimensionMismatch)
}

func TestErrorCodeRepository_InsertAndListByManufacturer(t *testing.T) {
	db := setupTestDB(t)
	repo := NewErrorCodeRepository(db)
	ctx := context.Background()

	mfrID := models.NewULID()
	docID := models.NewULID()
	code := &models.ErrorCode{ManufacturerID: mfrID, DocumentID: docID, Code: "SC542", PageNumber: 3, ConfidenceScore: 0.9}
	require.NoError(t, repo.InsertBatch(ctx, []*models.ErrorCode{code}))

	listed, err := repo.ListByManufacturerAndCode(ctx, mfrID, "SC542")
	require.NoError(t, err)
	require.Len(t, listed, 1)
}

func TestErrorCodeRepository_InsertRejectsInvalid(t *testing.T) {
	db := setupTestDB(t)
	repo := NewErrorCodeRepository(db)
	ctx := context.Background()

	bad := &models.ErrorCode{DocumentID: models.NewULID(), Code: "SC542", PageNumber: 1, ConfidenceScore: 1.5}
	err := repo.InsertBatch(ctx, []*models.ErrorCode{bad})
	assert.Error(t, err)
}

func TestStageStatusRepository_UpsertAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStageStatusRepository(db)
	ctx := context.Background()

	docID := models.NewULID()
	status := &models.StageStatus{DocumentID: docID, Stage: "text_extraction", State: models.StageStateRunning}
	require.NoError(t, repo.Upsert(ctx, status))

	got, err := repo.Get(ctx, docID, "text_extraction")
	require.NoError(t, err)
	assert.Equal(t, models.StageStateRunning, got.State)

	status.State = models.StageStateCompleted
	require.NoError(t, repo.Upsert(ctx, status))

	got, err = repo.Get(ctx, docID, "text_extraction")
	require.NoError(t, err)
	assert.Equal(t, models.StageStateCompleted, got.State)
}

func TestPipelineErrorRepository_ListRetryableAndResolve(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPipelineErrorRepository(db)
	ctx := context.Background()

	pe := &models.PipelineError{DocumentID: models.NewULID(), Stage: "enrichment", ErrorKind: "transient", ErrorMessage: "timeout", MaxRetries: 3}
	require.NoError(t, repo.Create(ctx, pe))

	retryable, err := repo.ListRetryable(ctx, 10)
	require.NoError(t, err)
	require.Len(t, retryable, 1)

	require.NoError(t, repo.MarkResolved(ctx, pe.ID, "operator", "manually retried"))
	retryable, err = repo.ListRetryable(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, retryable)
}

func TestAuditLogRepository_AppendAndList(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAuditLogRepository(db)
	ctx := context.Background()

	docID := models.NewULID()
	require.NoError(t, repo.Append(ctx, &models.AuditLog{DocumentID: &docID, Action: "reprocess_stage"}))

	entries, err := repo.ListByDocument(ctx, docID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "reprocess_stage", entries[0].Action)
}

func TestImageLinkVideoRepositories_InsertAndList(t *testing.T) {
	db := setupTestDB(t)
	docID := models.NewULID()
	ctx := context.Background()

	imgRepo := NewImageRepository(db)
	require.NoError(t, imgRepo.InsertBatch(ctx, []*models.Image{{DocumentID: docID, PageNumber: 1, ImageType: models.ImageTypeRaster, BlobRef: "k1"}}))
	images, err := imgRepo.ListByDocument(ctx, docID)
	require.NoError(t, err)
	assert.Len(t, images, 1)

	linkRepo := NewLinkRepository(db)
	require.NoError(t, linkRepo.InsertBatch(ctx, []*models.Link{{DocumentID: docID, PageNumber: 1, URL: "https://example.com", LinkType: models.LinkTypeWebPage}}))
	links, err := linkRepo.ListByDocument(ctx, docID)
	require.NoError(t, err)
	require.Len(t, links, 1)

	resolved := "https://example.com/resolved"
	require.NoError(t, linkRepo.UpdateValidation(ctx, links[0].ID, models.ValidationStatusOK, &resolved))

	videoRepo := NewVideoRepository(db)
	require.NoError(t, videoRepo.InsertBatch(ctx, []*models.Video{{DocumentID: docID, PageNumber: 2, URL: "https://video.example.com"}}))
	videos, err := videoRepo.ListByDocument(ctx, docID)
	require.NoError(t, err)
	require.Len(t, videos, 1)
	require.NoError(t, videoRepo.UpdateValidation(ctx, videos[0].ID, models.ValidationStatusBroken))
}
