package vectorindex

import (
	"context"
	"math"
	"sort"

	"github.com/krai/engine/internal/models"
)

// CosineIndex ranks candidates by cosine similarity computed locally. It
// is the default backend: correct for any dimension, requires no
// external service, and is fast enough for the corpus sizes a single
// KRAI deployment accumulates (tens of thousands of chunks, not billions).
type CosineIndex struct{}

// NewCosineIndex creates a CosineIndex.
func NewCosineIndex() *CosineIndex {
	return &CosineIndex{}
}

func (CosineIndex) Rank(_ context.Context, query models.FloatVector, candidates []*models.Embedding, limit int) ([]Candidate, error) {
	scored := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		score := cosineSimilarity(query, c.Vector)
		scored = append(scored, Candidate{Embedding: c, Score: score})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func cosineSimilarity(a, b models.FloatVector) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
