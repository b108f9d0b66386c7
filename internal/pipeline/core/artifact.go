package core

import (
	"time"

	"github.com/krai/engine/internal/models"
)

// ArtifactType identifies the type of content in an artifact.
type ArtifactType string

const (
	// ArtifactTypePageText represents raw extracted page text.
	ArtifactTypePageText ArtifactType = "page_text"

	// ArtifactTypeImage represents an extracted image or diagram.
	ArtifactTypeImage ArtifactType = "image"

	// ArtifactTypeChunk represents a chunked section of document text.
	ArtifactTypeChunk ArtifactType = "chunk"

	// ArtifactTypeErrorCode represents an extracted manufacturer error code.
	ArtifactTypeErrorCode ArtifactType = "error_code"

	// ArtifactTypeEmbedding represents a generated embedding vector.
	ArtifactTypeEmbedding ArtifactType = "embedding"

	// ArtifactTypeLink represents a discovered hyperlink or video reference.
	ArtifactTypeLink ArtifactType = "link"
)

// ProcessingStage indicates the processing state of an artifact.
type ProcessingStage string

const (
	// ProcessingStageRaw indicates unprocessed data straight from extraction.
	ProcessingStageRaw ProcessingStage = "raw"

	// ProcessingStageEnriched indicates data after enrichment (classification,
	// manufacturer resolution, link/video metadata).
	ProcessingStageEnriched ProcessingStage = "enriched"

	// ProcessingStageIndexed indicates data after embedding and search
	// indexing.
	ProcessingStageIndexed ProcessingStage = "indexed"

	// ProcessingStagePersisted indicates the artifact has been written to
	// the relational store or blob store.
	ProcessingStagePersisted ProcessingStage = "persisted"
)

// Artifact represents an output from a pipeline stage.
type Artifact struct {
	// ID is a unique identifier for this artifact.
	ID models.ULID

	// Type identifies the content type.
	Type ArtifactType

	// Stage indicates the processing stage.
	Stage ProcessingStage

	// FilePath is the path to the artifact file (if file-based).
	FilePath string

	// CreatedBy is the stage ID that created this artifact.
	CreatedBy string

	// RecordCount is the number of records in the artifact.
	RecordCount int

	// FileSize is the size in bytes (if file-based).
	FileSize int64

	// CreatedAt is when the artifact was created.
	CreatedAt time.Time

	// Metadata contains additional artifact-specific data.
	Metadata map[string]any
}

// NewArtifact creates a new artifact with the given type and stage.
func NewArtifact(artifactType ArtifactType, stage ProcessingStage, createdBy string) Artifact {
	return Artifact{
		ID:        models.NewULID(),
		Type:      artifactType,
		Stage:     stage,
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
		Metadata:  make(map[string]any),
	}
}

// WithFilePath sets the file path for the artifact.
func (a Artifact) WithFilePath(path string) Artifact {
	a.FilePath = path
	return a
}

// WithRecordCount sets the record count for the artifact.
func (a Artifact) WithRecordCount(count int) Artifact {
	a.RecordCount = count
	return a
}

// WithFileSize sets the file size for the artifact.
func (a Artifact) WithFileSize(size int64) Artifact {
	a.FileSize = size
	return a
}

// WithMetadata adds metadata to the artifact.
func (a Artifact) WithMetadata(key string, value any) Artifact {
	a.Metadata[key] = value
	return a
}
