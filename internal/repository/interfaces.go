// Package repository defines the persistence contracts used by the
// pipeline and orchestrator layers, and implements them on top of GORM.
package repository

import (
	"context"

	"github.com/krai/engine/internal/models"
)

// DocumentRepository is the Storage Adapter's document-facing contract.
type DocumentRepository interface {
	Get(ctx context.Context, id models.ULID) (*models.Document, error)
	GetByHash(ctx context.Context, hash string) (*models.Document, error)
	Create(ctx context.Context, doc *models.Document) error
	Update(ctx context.Context, doc *models.Document) error
	List(ctx context.Context, status models.ProcessingStatus, limit, offset int) ([]*models.Document, error)
}

// ManufacturerRepository resolves and creates manufacturers on demand.
type ManufacturerRepository interface {
	Get(ctx context.Context, id models.ULID) (*models.Manufacturer, error)
	GetByName(ctx context.Context, name string) (*models.Manufacturer, error)
	GetOrCreate(ctx context.Context, name, patternKey string) (*models.Manufacturer, error)
	List(ctx context.Context) ([]*models.Manufacturer, error)
}

// ProductSeriesRepository manages product-series lookups.
type ProductSeriesRepository interface {
	GetOrCreate(ctx context.Context, manufacturerID models.ULID, name string) (*models.ProductSeries, error)
}

// ProductRepository manages product-model lookups.
type ProductRepository interface {
	Get(ctx context.Context, id models.ULID) (*models.Product, error)
	GetByModelNumber(ctx context.Context, manufacturerID models.ULID, modelNumber string) (*models.Product, error)
	Create(ctx context.Context, p *models.Product) error
}

// ChunkRepository persists chunked document text, preserving the
// doubly-linked reading-order invariant across inserts.
type ChunkRepository interface {
	UpsertBatch(ctx context.Context, chunks []*models.Chunk) error
	ListByDocument(ctx context.Context, documentID models.ULID) ([]*models.Chunk, error)
	Get(ctx context.Context, id models.ULID) (*models.Chunk, error)
}

// EmbeddingRepository persists and searches embedding vectors.
type EmbeddingRepository interface {
	UpsertBatch(ctx context.Context, embeddings []*models.Embedding) error
	ListByOwner(ctx context.Context, ownerKind models.EmbeddingOwnerKind, ownerID models.ULID) ([]*models.Embedding, error)
	// Search returns up to limit embeddings of modelName nearest to query,
	// ranked by the configured vector index backend.
	Search(ctx context.Context, modelName string, query models.FloatVector, limit int) ([]*models.Embedding, error)
}

// ErrorCodeRepository persists extracted manufacturer error codes.
type ErrorCodeRepository interface {
	InsertBatch(ctx context.Context, codes []*models.ErrorCode) error
	ListByDocument(ctx context.Context, documentID models.ULID) ([]*models.ErrorCode, error)
	ListByManufacturerAndCode(ctx context.Context, manufacturerID models.ULID, code string) ([]*models.ErrorCode, error)
}

// ImageRepository persists extracted image metadata (blob bytes live in
// the blob store, not here).
type ImageRepository interface {
	InsertBatch(ctx context.Context, images []*models.Image) error
	ListByDocument(ctx context.Context, documentID models.ULID) ([]*models.Image, error)
}

// LinkRepository persists discovered hyperlinks.
type LinkRepository interface {
	InsertBatch(ctx context.Context, links []*models.Link) error
	ListByDocument(ctx context.Context, documentID models.ULID) ([]*models.Link, error)
	UpdateValidation(ctx context.Context, id models.ULID, status models.ValidationStatus, resolvedURL *string) error
}

// VideoRepository persists discovered video references.
type VideoRepository interface {
	InsertBatch(ctx context.Context, videos []*models.Video) error
	ListByDocument(ctx context.Context, documentID models.ULID) ([]*models.Video, error)
	UpdateValidation(ctx context.Context, id models.ULID, status models.ValidationStatus) error
}

// QueueRepository is the durable Processing Queue's persistence layer.
// Acquire implements the same row-locking-vs-atomic-update split as the
// durable job queue it was generalized from: Postgres/MySQL use
// SELECT ... FOR UPDATE SKIP LOCKED inside a transaction, SQLite uses a
// single atomic UPDATE keyed on a correlated subquery.
type QueueRepository interface {
	Enqueue(ctx context.Context, item *models.QueueItem) error
	Acquire(ctx context.Context, stages []string, leaseOwner string, leaseFor int64) (*models.QueueItem, error)
	Complete(ctx context.Context, id models.ULID) error
	Fail(ctx context.Context, id models.ULID, errMsg string, retryable bool) error
	ExtendLease(ctx context.Context, id models.ULID, leaseOwner string, leaseFor int64) error
	RecoverExpiredLeases(ctx context.Context) (int, error)
	HasPending(ctx context.Context, documentID models.ULID, stage string) (bool, error)
}

// StageStatusRepository tracks per-document, per-stage state.
type StageStatusRepository interface {
	Get(ctx context.Context, documentID models.ULID, stage string) (*models.StageStatus, error)
	Upsert(ctx context.Context, status *models.StageStatus) error
	ListByDocument(ctx context.Context, documentID models.ULID) ([]*models.StageStatus, error)
}

// PipelineErrorRepository persists stage failures for status reporting
// and lists the transient ones still within their retry budget.
type PipelineErrorRepository interface {
	Create(ctx context.Context, pe *models.PipelineError) error
	ListRetryable(ctx context.Context, limit int) ([]*models.PipelineError, error)
	MarkResolved(ctx context.Context, id models.ULID, resolvedBy, notes string) error
	ListByDocument(ctx context.Context, documentID models.ULID) ([]*models.PipelineError, error)
}

// AuditLogRepository appends and lists operator-visible audit entries.
type AuditLogRepository interface {
	Append(ctx context.Context, entry *models.AuditLog) error
	ListByDocument(ctx context.Context, documentID models.ULID, limit int) ([]*models.AuditLog, error)
}

// ErrDuplicateDocument is returned by DocumentRepository.Create when a
// document with the same file hash already exists.
var ErrDuplicateDocument = models.ErrDuplicateDocument
