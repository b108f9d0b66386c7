// Package stagerunner drives queued documents through the pipeline: it
// leases the next pending queue item, runs the document's remaining
// stages, persists each stage's output, and classifies any failure into
// a retry or a terminal error per internal/errs.Kind.
package stagerunner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/krai/engine/internal/errs"
	"github.com/krai/engine/internal/models"
	"github.com/krai/engine/internal/pipeline/core"
	"github.com/krai/engine/internal/repository"
)

// StageOrder is the fixed sequence stage identifiers run in, matching
// the order pipeline.NewDefaultFactory registers them.
var StageOrder = []string{
	"text_extraction",
	"image_processing",
	"classification",
	"metadata_extraction",
	"error_code_extraction",
	"chunk_prep",
	"enrichment",
	"embedding",
	"search_indexing",
}

// Executor runs one document's pipeline to completion (or first failure)
// for a single queue lease, persisting every stage's output as it goes.
//
// A lease covers the whole remaining chain rather than a single stage
// because no artifact-rehydration layer exists to reconstruct in-memory
// page text, discovered images, etc. from storage between separate
// worker pickups; StageStatus rows are still written per stage so
// progress and retry accounting stay stage-granular even though
// execution itself is one in-process pass, mirroring how the teacher's
// own job executor runs a whole job to completion inside one Execute
// call rather than resuming serialized mid-job state.
type Executor struct {
	factory core.OrchestratorFactory

	documentRepo      repository.DocumentRepository
	chunkRepo         repository.ChunkRepository
	errorCodeRepo     repository.ErrorCodeRepository
	embeddingRepo     repository.EmbeddingRepository
	imageRepo         repository.ImageRepository
	linkRepo          repository.LinkRepository
	videoRepo         repository.VideoRepository
	stageStatusRepo   repository.StageStatusRepository
	pipelineErrorRepo repository.PipelineErrorRepository

	logger *slog.Logger
}

// NewExecutor creates an Executor wired to the given factory and
// repositories.
func NewExecutor(
	factory core.OrchestratorFactory,
	documentRepo repository.DocumentRepository,
	chunkRepo repository.ChunkRepository,
	errorCodeRepo repository.ErrorCodeRepository,
	embeddingRepo repository.EmbeddingRepository,
	imageRepo repository.ImageRepository,
	linkRepo repository.LinkRepository,
	videoRepo repository.VideoRepository,
	stageStatusRepo repository.StageStatusRepository,
	pipelineErrorRepo repository.PipelineErrorRepository,
	logger *slog.Logger,
) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		factory:           factory,
		documentRepo:      documentRepo,
		chunkRepo:         chunkRepo,
		errorCodeRepo:     errorCodeRepo,
		embeddingRepo:     embeddingRepo,
		imageRepo:         imageRepo,
		linkRepo:          linkRepo,
		videoRepo:         videoRepo,
		stageStatusRepo:   stageStatusRepo,
		pipelineErrorRepo: pipelineErrorRepo,
		logger:            logger,
	}
}

// Execute runs item's document through the pipeline and persists the
// result. A returned error's errs.Kind (via errors.As) tells the caller
// whether the queue item should be retried.
func (e *Executor) Execute(ctx context.Context, item *models.QueueItem) error {
	doc, err := e.documentRepo.Get(ctx, item.DocumentID)
	if err != nil {
		return errs.Wrap(errs.KindInternal, item.Stage, "loading document", err)
	}

	orchestrator, err := e.factory.Create(doc)
	if err != nil {
		return errs.Wrap(errs.KindInternal, item.Stage, "building orchestrator", err)
	}
	orchestrator.SetProgressReporter(&statusReporter{repo: e.stageStatusRepo, documentID: doc.ID, logger: e.logger})

	result, execErr := orchestrator.Execute(ctx)
	if execErr != nil {
		e.recordFailure(ctx, doc.ID, item.Stage, execErr)
		return execErr
	}

	state := orchestrator.State()
	if err := e.persist(ctx, doc, state); err != nil {
		return errs.Wrap(errs.KindInternal, item.Stage, "persisting pipeline output", err)
	}

	_ = result
	return nil
}

// persist writes every collection the pipeline accumulated in state,
// gating error-code persistence on a resolvable manufacturer and running
// the deferred chunk-linkage pass once chunks exist.
func (e *Executor) persist(ctx context.Context, doc *models.Document, state *core.State) error {
	if err := e.documentRepo.Update(ctx, doc); err != nil {
		return fmt.Errorf("updating document: %w", err)
	}

	if len(state.Chunks) > 0 {
		if err := e.chunkRepo.UpsertBatch(ctx, state.Chunks); err != nil {
			return fmt.Errorf("upserting chunks: %w", err)
		}
	}

	if len(state.ErrorCodes) > 0 {
		if doc.ManufacturerID == nil {
			return errs.New(errs.KindData, "error_code_extraction", "ManufacturerMissing: cannot persist error codes without a resolved manufacturer_id")
		}
		linkErrorCodesToChunks(state.ErrorCodes, state.Chunks)
		if err := e.errorCodeRepo.InsertBatch(ctx, state.ErrorCodes); err != nil {
			return fmt.Errorf("inserting error codes: %w", err)
		}
	}

	if len(state.Images) > 0 {
		if err := e.imageRepo.InsertBatch(ctx, state.Images); err != nil {
			return fmt.Errorf("inserting images: %w", err)
		}
	}

	if len(state.Links) > 0 {
		if err := e.linkRepo.InsertBatch(ctx, state.Links); err != nil {
			return fmt.Errorf("inserting links: %w", err)
		}
	}

	if len(state.Videos) > 0 {
		if err := e.videoRepo.InsertBatch(ctx, state.Videos); err != nil {
			return fmt.Errorf("inserting videos: %w", err)
		}
	}

	if len(state.Embeddings) > 0 {
		if err := e.embeddingRepo.UpsertBatch(ctx, state.Embeddings); err != nil {
			return fmt.Errorf("upserting embeddings: %w", err)
		}
	}

	return nil
}

// linkErrorCodesToChunks matches each error code's (document_id implicit,
// page_number) against the chunk whose page span contains it: the chunk
// with the greatest PageNumber not exceeding the error code's page,
// earliest ordinal winning ties.
func linkErrorCodesToChunks(codes []*models.ErrorCode, chunks []*models.Chunk) {
	if len(chunks) == 0 {
		return
	}
	sorted := append([]*models.Chunk(nil), chunks...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Ordinal < sorted[j].Ordinal })

	for _, code := range codes {
		var best *models.Chunk
		for _, c := range sorted {
			if c.PageNumber <= code.PageNumber {
				best = c
			} else {
				break
			}
		}
		if best == nil {
			best = sorted[0]
		}
		id := best.ID
		code.ChunkID = &id
	}
}

// recordFailure classifies execErr and persists a PipelineError row
// describing it.
func (e *Executor) recordFailure(ctx context.Context, documentID models.ULID, stage string, execErr error) {
	kind := errs.KindInternal
	message := execErr.Error()

	var typed *errs.Error
	if errors.As(execErr, &typed) {
		kind = typed.Kind
		if typed.Stage != "" {
			stage = typed.Stage
		}
	}

	if e.pipelineErrorRepo == nil {
		return
	}
	pe := &models.PipelineError{
		DocumentID:   documentID,
		Stage:        stage,
		ErrorKind:    string(kind),
		ErrorMessage: message,
		Status:       models.PipelineErrorStatusPending,
		MaxRetries:   3,
	}
	if err := e.pipelineErrorRepo.Create(ctx, pe); err != nil {
		e.logger.Error("failed to record pipeline error", slog.Any("error", err))
	}
}

// statusReporter updates StageStatus rows as the orchestrator's
// progress callbacks fire.
type statusReporter struct {
	repo       repository.StageStatusRepository
	documentID models.ULID
	logger     *slog.Logger
}

func (r *statusReporter) ReportProgress(ctx context.Context, stageID string, fraction float64, message string) {
	if r.repo == nil {
		return
	}
	state := models.StageStateRunning
	if fraction >= 1.0 {
		state = models.StageStateCompleted
	}
	status := &models.StageStatus{
		DocumentID: r.documentID,
		Stage:      stageID,
		State:      state,
	}
	if err := r.repo.Upsert(ctx, status); err != nil {
		r.logger.Warn("failed to upsert stage status", slog.String("stage", stageID), slog.Any("error", err))
	}
}
