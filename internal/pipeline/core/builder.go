package core

import (
	"log/slog"

	"github.com/krai/engine/internal/blobstore"
	"github.com/krai/engine/internal/patterns"
	"github.com/krai/engine/internal/repository"
	"github.com/krai/engine/pkg/httpclient"
)

// Config holds pipeline configuration options.
type Config struct {
	// EnableEnrichment enables the link/video enrichment stage.
	EnableEnrichment bool

	// EnableEmbedding enables the embedding generation stage.
	EnableEmbedding bool
}

// DefaultConfig returns a Config with default settings.
func DefaultConfig() Config {
	return Config{
		EnableEnrichment: true,
		EnableEmbedding:  true,
	}
}

// Builder provides a fluent interface for constructing a Factory.
type Builder struct {
	documentRepo     repository.DocumentRepository
	manufacturerRepo repository.ManufacturerRepository
	productRepo      repository.ProductRepository
	chunkRepo        repository.ChunkRepository
	embeddingRepo    repository.EmbeddingRepository
	errorCodeRepo    repository.ErrorCodeRepository
	imageRepo        repository.ImageRepository
	linkRepo         repository.LinkRepository
	videoRepo        repository.VideoRepository

	blobStore       *blobstore.Store
	patternRegistry *patterns.Registry
	breakerManager  *httpclient.CircuitBreakerManager

	embeddingModelName string
	embeddingDimension int
	openAIAPIKey       string

	logger *slog.Logger
	config Config
}

// NewBuilder creates a new pipeline Builder.
func NewBuilder() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithDocumentRepository sets the document repository.
func (b *Builder) WithDocumentRepository(repo repository.DocumentRepository) *Builder {
	b.documentRepo = repo
	return b
}

// WithManufacturerRepository sets the manufacturer repository.
func (b *Builder) WithManufacturerRepository(repo repository.ManufacturerRepository) *Builder {
	b.manufacturerRepo = repo
	return b
}

// WithProductRepository sets the product repository.
func (b *Builder) WithProductRepository(repo repository.ProductRepository) *Builder {
	b.productRepo = repo
	return b
}

// WithChunkRepository sets the chunk repository.
func (b *Builder) WithChunkRepository(repo repository.ChunkRepository) *Builder {
	b.chunkRepo = repo
	return b
}

// WithEmbeddingRepository sets the embedding repository.
func (b *Builder) WithEmbeddingRepository(repo repository.EmbeddingRepository) *Builder {
	b.embeddingRepo = repo
	return b
}

// WithErrorCodeRepository sets the error code repository.
func (b *Builder) WithErrorCodeRepository(repo repository.ErrorCodeRepository) *Builder {
	b.errorCodeRepo = repo
	return b
}

// WithImageRepository sets the image repository.
func (b *Builder) WithImageRepository(repo repository.ImageRepository) *Builder {
	b.imageRepo = repo
	return b
}

// WithLinkRepository sets the link repository.
func (b *Builder) WithLinkRepository(repo repository.LinkRepository) *Builder {
	b.linkRepo = repo
	return b
}

// WithVideoRepository sets the video repository.
func (b *Builder) WithVideoRepository(repo repository.VideoRepository) *Builder {
	b.videoRepo = repo
	return b
}

// WithBlobStore sets the blob store used for original files and derived images.
func (b *Builder) WithBlobStore(store *blobstore.Store) *Builder {
	b.blobStore = store
	return b
}

// WithPatternRegistry sets the manufacturer error-code pattern registry
// used by the error_code_extraction stage.
func (b *Builder) WithPatternRegistry(registry *patterns.Registry) *Builder {
	b.patternRegistry = registry
	return b
}

// WithBreakerManager sets the per-provider circuit breaker manager used
// by the enrichment stage's link/video fetches.
func (b *Builder) WithBreakerManager(manager *httpclient.CircuitBreakerManager) *Builder {
	b.breakerManager = manager
	return b
}

// WithEmbeddingModel sets the model name and vector dimension used by the
// embedding stage.
func (b *Builder) WithEmbeddingModel(modelName string, dimension int) *Builder {
	b.embeddingModelName = modelName
	b.embeddingDimension = dimension
	return b
}

// WithOpenAIAPIKey routes the embedding stage to the OpenAI provider.
func (b *Builder) WithOpenAIAPIKey(apiKey string) *Builder {
	b.openAIAPIKey = apiKey
	return b
}

// WithLogger sets the logger.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithConfig sets the pipeline configuration.
func (b *Builder) WithConfig(config Config) *Builder {
	b.config = config
	return b
}

// EnableEnrichment enables or disables the link/video enrichment stage.
func (b *Builder) EnableEnrichment(enabled bool) *Builder {
	b.config.EnableEnrichment = enabled
	return b
}

// EnableEmbedding enables or disables the embedding generation stage.
func (b *Builder) EnableEmbedding(enabled bool) *Builder {
	b.config.EnableEmbedding = enabled
	return b
}

// Build creates a Factory with the configured settings.
// This does not register stages - use RegisterStage on the returned
// Factory for that.
func (b *Builder) Build() (*Factory, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	deps := &Dependencies{
		DocumentRepo:       b.documentRepo,
		ManufacturerRepo:   b.manufacturerRepo,
		ProductRepo:        b.productRepo,
		ChunkRepo:          b.chunkRepo,
		EmbeddingRepo:      b.embeddingRepo,
		ErrorCodeRepo:      b.errorCodeRepo,
		ImageRepo:          b.imageRepo,
		LinkRepo:           b.linkRepo,
		VideoRepo:          b.videoRepo,
		BlobStore:          b.blobStore,
		PatternRegistry:    b.patternRegistry,
		BreakerManager:     b.breakerManager,
		EmbeddingModelName: b.embeddingModelName,
		EmbeddingDimension: b.embeddingDimension,
		OpenAIAPIKey:       b.openAIAPIKey,
		Logger:             b.logger,
	}

	return NewFactory(deps), nil
}

// validate checks that all required dependencies are set.
func (b *Builder) validate() error {
	if b.documentRepo == nil {
		return NewConfigurationError("documentRepo", "document repository is required")
	}
	if b.manufacturerRepo == nil {
		return NewConfigurationError("manufacturerRepo", "manufacturer repository is required")
	}
	if b.blobStore == nil {
		return NewConfigurationError("blobStore", "blob store is required")
	}
	return nil
}

// Config returns the current configuration.
func (b *Builder) Config() Config {
	return b.config
}
