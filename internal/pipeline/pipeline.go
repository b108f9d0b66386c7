// Package pipeline provides a composable pipeline architecture for
// document ingestion and enrichment. Each stage implements the Stage
// interface and operates on shared State.
//
// The pipeline is organized into several sub-packages:
//   - core: Orchestrator, interfaces, and base types
//   - shared: Utilities shared between stages
//   - stages/*: Individual stage implementations, registered in the fixed
//     order below
package pipeline

import (
	"log/slog"

	"github.com/krai/engine/internal/blobstore"
	"github.com/krai/engine/internal/patterns"
	"github.com/krai/engine/internal/pipeline/core"
	"github.com/krai/engine/internal/pipeline/stages/chunkprep"
	"github.com/krai/engine/internal/pipeline/stages/classification"
	"github.com/krai/engine/internal/pipeline/stages/embedding"
	"github.com/krai/engine/internal/pipeline/stages/enrichment"
	"github.com/krai/engine/internal/pipeline/stages/errorcodeextraction"
	"github.com/krai/engine/internal/pipeline/stages/imageprocessing"
	"github.com/krai/engine/internal/pipeline/stages/metadataextraction"
	"github.com/krai/engine/internal/pipeline/stages/searchindexing"
	"github.com/krai/engine/internal/pipeline/stages/textextraction"
	"github.com/krai/engine/internal/repository"
	"github.com/krai/engine/pkg/httpclient"
)

// Re-export core types for convenience.
type (
	// Stage is a single step in the pipeline.
	Stage = core.Stage

	// State holds shared data between stages.
	State = core.State

	// StageResult is the outcome of a single stage.
	StageResult = core.StageResult

	// Result is the outcome of a full orchestrator run.
	Result = core.Result

	// Orchestrator executes stages in sequence.
	Orchestrator = core.Orchestrator

	// OrchestratorFactory creates orchestrators.
	OrchestratorFactory = core.OrchestratorFactory

	// Factory creates orchestrators.
	Factory = core.Factory

	// Dependencies bundles stage dependencies.
	Dependencies = core.Dependencies

	// Config holds pipeline configuration.
	Config = core.Config

	// Builder provides fluent factory construction.
	Builder = core.Builder

	// Artifact represents stage output.
	Artifact = core.Artifact

	// ArtifactType identifies artifact content.
	ArtifactType = core.ArtifactType

	// ProcessingStage indicates processing state.
	ProcessingStage = core.ProcessingStage

	// ProgressReporter allows progress tracking.
	ProgressReporter = core.ProgressReporter

	// StageConstructor creates stages from dependencies.
	StageConstructor = core.StageConstructor
)

// Re-export artifact types.
const (
	ArtifactTypePageText  = core.ArtifactTypePageText
	ArtifactTypeImage     = core.ArtifactTypeImage
	ArtifactTypeChunk     = core.ArtifactTypeChunk
	ArtifactTypeErrorCode = core.ArtifactTypeErrorCode
	ArtifactTypeEmbedding = core.ArtifactTypeEmbedding
	ArtifactTypeLink      = core.ArtifactTypeLink
)

// Re-export processing stages.
const (
	ProcessingStageRaw       = core.ProcessingStageRaw
	ProcessingStageEnriched  = core.ProcessingStageEnriched
	ProcessingStageIndexed   = core.ProcessingStageIndexed
	ProcessingStagePersisted = core.ProcessingStagePersisted
)

// Re-export errors.
var (
	ErrNoManufacturer         = core.ErrNoManufacturer
	ErrNoPageText             = core.ErrNoPageText
	ErrPipelineAlreadyRunning = core.ErrPipelineAlreadyRunning
	ErrStageNotFound          = core.ErrStageNotFound
	ErrInvalidConfiguration   = core.ErrInvalidConfiguration
)

// NewBuilder creates a new pipeline builder.
func NewBuilder() *Builder {
	return core.NewBuilder()
}

// NewState creates a new pipeline state.
var NewState = core.NewState

// NewFactory creates a new pipeline factory with the given dependencies.
func NewFactory(deps *Dependencies) *Factory {
	return core.NewFactory(deps)
}

// NewDefaultFactory builds a Factory with the nine extractor/terminal
// stages registered in the fixed order the stage runner relies on.
// Upload is handled outside the pipeline proper — it produces the
// Document row the orchestrator is created for — so this factory starts
// at text extraction and ends at search indexing.
func NewDefaultFactory(
	documentRepo repository.DocumentRepository,
	manufacturerRepo repository.ManufacturerRepository,
	productRepo repository.ProductRepository,
	chunkRepo repository.ChunkRepository,
	embeddingRepo repository.EmbeddingRepository,
	errorCodeRepo repository.ErrorCodeRepository,
	imageRepo repository.ImageRepository,
	linkRepo repository.LinkRepository,
	videoRepo repository.VideoRepository,
	blobStore *blobstore.Store,
	patternRegistry *patterns.Registry,
	breakerManager *httpclient.CircuitBreakerManager,
	logger *slog.Logger,
) (*Factory, error) {
	factory, err := NewBuilder().
		WithDocumentRepository(documentRepo).
		WithManufacturerRepository(manufacturerRepo).
		WithProductRepository(productRepo).
		WithChunkRepository(chunkRepo).
		WithEmbeddingRepository(embeddingRepo).
		WithErrorCodeRepository(errorCodeRepo).
		WithImageRepository(imageRepo).
		WithLinkRepository(linkRepo).
		WithVideoRepository(videoRepo).
		WithBlobStore(blobStore).
		WithPatternRegistry(patternRegistry).
		WithBreakerManager(breakerManager).
		WithLogger(logger).
		Build()
	if err != nil {
		return nil, err
	}

	factory.RegisterStage(textextraction.New)
	factory.RegisterStage(imageprocessing.New)
	factory.RegisterStage(classification.New)
	factory.RegisterStage(metadataextraction.New)
	factory.RegisterStage(errorcodeextraction.New)
	factory.RegisterStage(chunkprep.New)
	factory.RegisterStage(enrichment.New)
	factory.RegisterStage(embedding.New)
	factory.RegisterStage(searchindexing.New)

	return factory, nil
}

// Stage IDs for reference, in fixed execution order.
const (
	StageIDTextExtraction      = textextraction.StageID
	StageIDImageProcessing     = imageprocessing.StageID
	StageIDClassification      = classification.StageID
	StageIDMetadataExtraction  = metadataextraction.StageID
	StageIDErrorCodeExtraction = errorcodeextraction.StageID
	StageIDChunkPrep           = chunkprep.StageID
	StageIDEnrichment          = enrichment.StageID
	StageIDEmbedding           = embedding.StageID
	StageIDSearchIndexing      = searchindexing.StageID
)
