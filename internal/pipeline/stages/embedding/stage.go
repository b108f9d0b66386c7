// Package embedding implements the embedding stage: computing a
// dimension-vector for each chunk not yet embedded under the configured
// model name, and queuing it for upsert.
package embedding

import (
	"context"
	"fmt"

	"github.com/krai/engine/internal/embeddingprovider"
	"github.com/krai/engine/internal/models"
	"github.com/krai/engine/internal/pipeline/core"
	"github.com/krai/engine/internal/pipeline/shared"
	"github.com/krai/engine/internal/repository"
)

// StageID is the fixed stage identifier.
const StageID = "embedding"

// batchSize caps how many chunk texts are sent to the provider per call.
const batchSize = 64

// Stage computes embeddings for chunks that have not yet been embedded
// under the current model. Images are not embedded.
type Stage struct {
	shared.BaseStage
	provider      embeddingprovider.Provider
	embeddingRepo repository.EmbeddingRepository
}

// New creates the embedding stage. Without an OpenAI API key configured
// the stage falls back to a deterministic local provider so pipelines
// keep functioning in offline/dev environments.
func New(deps *core.Dependencies) core.Stage {
	dimension := deps.EmbeddingDimension
	if dimension == 0 {
		dimension = 1536
	}
	modelName := deps.EmbeddingModelName
	if modelName == "" {
		modelName = "local-hash-v1"
	}

	var provider embeddingprovider.Provider
	if deps.OpenAIAPIKey != "" {
		provider = embeddingprovider.NewOpenAIProvider(deps.OpenAIAPIKey, modelName, dimension)
	} else {
		provider = embeddingprovider.NewDeterministicProvider(dimension)
	}

	return &Stage{
		BaseStage:     shared.NewBaseStage(StageID, "Embedding"),
		provider:      provider,
		embeddingRepo: deps.EmbeddingRepo,
	}
}

func (s *Stage) Execute(ctx context.Context, state *core.State) (*core.StageResult, error) {
	result := shared.NewResult()

	modelName := s.provider.ModelName()
	dimension := s.provider.Dimension()

	pending := s.pendingChunks(ctx, state, modelName)
	if len(pending) == 0 {
		result.Message = "no chunks pending embedding for current model"
		return result, nil
	}

	for start := 0; start < len(pending); start += batchSize {
		end := min(start+batchSize, len(pending))
		batch := pending[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		vectors, err := s.provider.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("computing embeddings: %w", err)
		}

		for i, vec := range vectors {
			if len(vec) != dimension {
				return nil, fmt.Errorf("%w: provider %s returned %d dimensions, expected %d",
					models.ErrEmbeddingDimensionMismatch, modelName, len(vec), dimension)
			}
			emb := &models.Embedding{
				OwnerKind: models.EmbeddingOwnerChunk,
				OwnerID:   batch[i].ID,
				ModelName: modelName,
				Dimension: dimension,
				Vector:    models.FloatVector(vec),
			}
			state.Embeddings = append(state.Embeddings, emb)

			artifact := core.NewArtifact(core.ArtifactTypeEmbedding, core.ProcessingStageIndexed, StageID).
				WithRecordCount(1).
				WithMetadata("owner_id", batch[i].ID.String()).
				WithMetadata("model_name", modelName)
			state.AddArtifact(StageID, artifact)
		}
	}

	result.RecordsProcessed = len(pending)
	result.RecordsModified = len(state.Embeddings)
	result.Artifacts = state.GetArtifacts(StageID)
	return result, nil
}

// pendingChunks returns the chunks in state that don't already have an
// embedding under modelName, consulting the repository when available so
// re-runs of this stage don't recompute unchanged chunks.
func (s *Stage) pendingChunks(ctx context.Context, state *core.State, modelName string) []*models.Chunk {
	if s.embeddingRepo == nil {
		return state.Chunks
	}

	embedded := make(map[models.ULID]bool)
	for _, c := range state.Chunks {
		existing, err := s.embeddingRepo.ListByOwner(ctx, models.EmbeddingOwnerChunk, c.ID)
		if err != nil {
			continue
		}
		for _, e := range existing {
			if e.ModelName == modelName {
				embedded[c.ID] = true
				break
			}
		}
	}

	pending := make([]*models.Chunk, 0, len(state.Chunks))
	for _, c := range state.Chunks {
		if !embedded[c.ID] {
			pending = append(pending, c)
		}
	}
	return pending
}
