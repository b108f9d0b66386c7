package core

import (
	"log/slog"

	"github.com/krai/engine/internal/blobstore"
	"github.com/krai/engine/internal/models"
	"github.com/krai/engine/internal/patterns"
	"github.com/krai/engine/internal/repository"
	"github.com/krai/engine/pkg/httpclient"
)

// Dependencies bundles all dependencies needed by pipeline stages. This
// reduces parameter count and makes dependency injection cleaner across
// the nine extractor stages.
type Dependencies struct {
	DocumentRepo     repository.DocumentRepository
	ManufacturerRepo repository.ManufacturerRepository
	ProductRepo      repository.ProductRepository
	ChunkRepo        repository.ChunkRepository
	EmbeddingRepo    repository.EmbeddingRepository
	ErrorCodeRepo    repository.ErrorCodeRepository
	ImageRepo        repository.ImageRepository
	LinkRepo         repository.LinkRepository
	VideoRepo        repository.VideoRepository

	BlobStore       *blobstore.Store
	PatternRegistry *patterns.Registry
	BreakerManager  *httpclient.CircuitBreakerManager

	// EmbeddingModelName and EmbeddingDimension configure the embedding
	// stage; a provider vector whose length differs from
	// EmbeddingDimension aborts the stage with EmbeddingDimensionMismatch.
	// Vectors already in the store are not compared.
	EmbeddingModelName string
	EmbeddingDimension int

	// OpenAIAPIKey, when set, routes the embedding stage to the OpenAI
	// provider; otherwise it falls back to the deterministic local one.
	OpenAIAPIKey string

	Logger *slog.Logger
}

// StageConstructor is a function that creates a stage given dependencies.
type StageConstructor func(deps *Dependencies) Stage

// Factory creates configured Orchestrator instances with all required
// stages, in the fixed order they were registered.
type Factory struct {
	deps              *Dependencies
	stageConstructors []StageConstructor
}

// NewFactory creates a new pipeline Factory.
func NewFactory(deps *Dependencies) *Factory {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Factory{
		deps:              deps,
		stageConstructors: make([]StageConstructor, 0),
	}
}

// RegisterStage adds a stage constructor to the factory. Stages are
// executed in the order they are registered.
func (f *Factory) RegisterStage(constructor StageConstructor) {
	f.stageConstructors = append(f.stageConstructors, constructor)
}

// Create creates a new Orchestrator configured for the given document.
// The returned orchestrator includes all registered stages.
func (f *Factory) Create(doc *models.Document) (*Orchestrator, error) {
	stages := make([]Stage, 0, len(f.stageConstructors))
	for _, constructor := range f.stageConstructors {
		stages = append(stages, constructor(f.deps))
	}
	return NewOrchestrator(doc, stages, f.deps.Logger), nil
}

// OrchestratorFactory defines the interface for creating orchestrators.
type OrchestratorFactory interface {
	Create(doc *models.Document) (*Orchestrator, error)
}

// Ensure Factory implements OrchestratorFactory.
var _ OrchestratorFactory = (*Factory)(nil)
