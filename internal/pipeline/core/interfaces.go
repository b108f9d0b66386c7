// Package core provides the stage orchestration framework shared by every
// extractor in the ingestion pipeline.
package core

import (
	"context"
	"time"

	"github.com/krai/engine/internal/models"
)

// Stage represents a single step in the document ingestion pipeline.
// Each stage receives the accumulated state from previous stages and
// produces new artifacts of its own.
type Stage interface {
	// ID returns a unique identifier for the stage (e.g., "text_extraction").
	ID() string

	// Name returns a human-readable name for the stage (e.g., "Text Extraction").
	Name() string

	// Execute performs the stage's work against the current document state.
	Execute(ctx context.Context, state *State) (*StageResult, error)

	// Cleanup performs any necessary cleanup after execution. Called
	// regardless of success or failure.
	Cleanup(ctx context.Context) error
}

// ProgressReporter allows stages to report execution progress, most often
// relayed to the stage_statuses table by the stage runner.
type ProgressReporter interface {
	// ReportProgress reports stage progress (0.0 to 1.0).
	ReportProgress(ctx context.Context, stageID string, progress float64, message string)

	// ReportItemProgress reports progress on individual items, e.g. pages.
	ReportItemProgress(ctx context.Context, stageID string, current, total int, item string)
}

// State holds all data shared between pipeline stages for a single
// document run. Stages mutate it in place; the stage runner's Executor
// persists the relevant slices via the repository layer once the whole
// pipeline has completed.
type State struct {
	// DocumentID is the document being processed.
	DocumentID models.ULID

	// Document is the full document record.
	Document *models.Document

	// ManufacturerID is resolved once the manufacturer/product resolver
	// stage has run; nil before then.
	ManufacturerID *models.ULID

	// PageTexts holds the raw extracted text for each page, indexed by
	// page number starting at 1. Populated by text_extraction.
	PageTexts map[int]string

	// Images holds image records discovered by image_processing, not yet
	// persisted.
	Images []*models.Image

	// Links and Videos hold references discovered by enrichment, not yet
	// persisted.
	Links  []*models.Link
	Videos []*models.Video

	// Chunks holds the chunked text produced by chunk_prep, in reading
	// order, with PreviousChunkID/NextChunkID left for the repository to
	// fill in once ULIDs are assigned.
	Chunks []*models.Chunk

	// ErrorCodes holds codes discovered by error_code_extraction, not yet
	// persisted.
	ErrorCodes []*models.ErrorCode

	// Embeddings holds vectors produced by the embedding stage, not yet
	// persisted.
	Embeddings []*models.Embedding

	// ProgressReporter allows stages to report their progress.
	ProgressReporter ProgressReporter

	// StartTime records when pipeline execution began.
	StartTime time.Time

	// Errors collects non-fatal errors during execution.
	Errors []error

	// Artifacts holds output artifacts from each stage.
	Artifacts map[string][]Artifact

	// Metadata stores arbitrary stage-specific data, e.g. the detected
	// language code or the classification confidence.
	Metadata map[string]any
}

// NewState creates a new pipeline state for the given document.
func NewState(doc *models.Document) *State {
	return &State{
		DocumentID: doc.ID,
		Document:   doc,
		PageTexts:  make(map[int]string),
		StartTime:  time.Now(),
		Errors:     make([]error, 0),
		Artifacts:  make(map[string][]Artifact),
		Metadata:   make(map[string]any),
	}
}

// AddError adds a non-fatal error to the state.
func (s *State) AddError(err error) {
	if err != nil {
		s.Errors = append(s.Errors, err)
	}
}

// HasErrors returns true if any non-fatal errors were recorded.
func (s *State) HasErrors() bool {
	return len(s.Errors) > 0
}

// Duration returns the elapsed time since pipeline start.
func (s *State) Duration() time.Duration {
	return time.Since(s.StartTime)
}

// SetMetadata stores a value in the metadata map.
func (s *State) SetMetadata(key string, value any) {
	s.Metadata[key] = value
}

// GetMetadata retrieves a value from the metadata map.
func (s *State) GetMetadata(key string) (any, bool) {
	v, ok := s.Metadata[key]
	return v, ok
}

// AddArtifact adds an artifact produced by a stage.
func (s *State) AddArtifact(stageID string, artifact Artifact) {
	s.Artifacts[stageID] = append(s.Artifacts[stageID], artifact)
}

// GetArtifacts returns all artifacts produced by a stage.
func (s *State) GetArtifacts(stageID string) []Artifact {
	return s.Artifacts[stageID]
}

// GetArtifactsByType returns all artifacts of a specific type.
func (s *State) GetArtifactsByType(artifactType ArtifactType) []Artifact {
	var result []Artifact
	for _, artifacts := range s.Artifacts {
		for _, a := range artifacts {
			if a.Type == artifactType {
				result = append(result, a)
			}
		}
	}
	return result
}

// StageResult contains the outcome of a stage execution.
type StageResult struct {
	// Artifacts produced by this stage.
	Artifacts []Artifact

	// RecordsProcessed is the count of items processed (e.g. pages).
	RecordsProcessed int

	// RecordsModified is the count of items changed or created.
	RecordsModified int

	// Duration is the execution time.
	Duration time.Duration

	// Message is an optional summary message.
	Message string
}

// Result represents the outcome of a full document pipeline run.
type Result struct {
	// Success indicates if the pipeline completed without fatal errors.
	Success bool

	// ChunkCount is the number of chunks produced for the document.
	ChunkCount int

	// ErrorCodeCount is the number of error codes extracted.
	ErrorCodeCount int

	// Duration is the total execution time.
	Duration time.Duration

	// StageResults contains results from each stage, keyed by stage ID.
	StageResults map[string]*StageResult

	// Errors contains any errors that occurred.
	Errors []error
}
