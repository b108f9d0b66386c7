// Package searchindexing implements the terminal stage of the pipeline:
// once embeddings exist for a document's chunks, it marks the document
// fully searchable. No stage in the fixed sequence follows it.
package searchindexing

import (
	"context"

	"github.com/krai/engine/internal/models"
	"github.com/krai/engine/internal/pipeline/core"
	"github.com/krai/engine/internal/pipeline/shared"
)

// StageID is the fixed stage identifier.
const StageID = "search_indexing"

// Stage finalizes a document's processing status once it is searchable.
type Stage struct {
	shared.BaseStage
}

// New creates the search indexing stage.
func New(deps *core.Dependencies) core.Stage {
	return &Stage{BaseStage: shared.NewBaseStage(StageID, "Search Indexing")}
}

func (s *Stage) Execute(ctx context.Context, state *core.State) (*core.StageResult, error) {
	result := shared.NewResult()

	state.Document.ProcessingStatus = models.ProcessingStatusCompleted
	state.SetMetadata("searchable_chunk_count", len(state.Chunks))
	state.SetMetadata("indexed_embedding_count", len(state.Embeddings))

	result.RecordsProcessed = len(state.Embeddings)
	result.RecordsModified = 1
	result.Message = "document marked fully searchable"
	result.Artifacts = state.GetArtifacts(StageID)
	return result, nil
}
