// Package vectorindex provides the pluggable nearest-neighbor backend used
// by the search_embeddings storage operation. The default backend scores
// candidates already loaded from the database by cosine similarity; the
// qdrant backend delegates to an external vector database instead.
package vectorindex

import (
	"context"

	"github.com/krai/engine/internal/models"
)

// Candidate is a scored embedding returned by an Index search.
type Candidate struct {
	Embedding *models.Embedding
	Score     float64
}

// Index ranks a set of candidate embeddings against a query vector.
type Index interface {
	// Rank scores candidates against query and returns the top limit,
	// ordered by descending score.
	Rank(ctx context.Context, query models.FloatVector, candidates []*models.Embedding, limit int) ([]Candidate, error)
}
