package vectorindex

import (
	"context"
	"fmt"

	"github.com/krai/engine/internal/models"
	"github.com/qdrant/go-client/qdrant"
)

// QdrantIndex delegates ranking to an external Qdrant collection instead
// of scoring candidates locally. Each embedding's point ID in the
// collection is its ULID, so results map back onto the candidate set by
// ID rather than by re-scoring.
type QdrantIndex struct {
	client         *qdrant.Client
	collectionName string
}

// QdrantConfig configures a QdrantIndex.
type QdrantConfig struct {
	Client           *qdrant.Client
	CollectionName   string
	Dimension        uint64
	InitializeSchema bool
}

// NewQdrantIndex creates a QdrantIndex, optionally creating the backing
// collection if it does not already exist.
func NewQdrantIndex(ctx context.Context, cfg QdrantConfig) (*QdrantIndex, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("vectorindex: qdrant client is required")
	}
	if cfg.CollectionName == "" {
		return nil, fmt.Errorf("vectorindex: collection name is required")
	}

	idx := &QdrantIndex{client: cfg.Client, collectionName: cfg.CollectionName}

	if cfg.InitializeSchema {
		exists, err := cfg.Client.CollectionExists(ctx, cfg.CollectionName)
		if err != nil {
			return nil, fmt.Errorf("vectorindex: checking collection existence: %w", err)
		}
		if !exists {
			err = cfg.Client.CreateCollection(ctx, &qdrant.CreateCollection{
				CollectionName: cfg.CollectionName,
				VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
					Size:     cfg.Dimension,
					Distance: qdrant.Distance_Cosine,
				}),
			})
			if err != nil {
				return nil, fmt.Errorf("vectorindex: creating collection %s: %w", cfg.CollectionName, err)
			}
		}
	}

	return idx, nil
}

// Upsert pushes an embedding's vector into the collection under its
// owner's ULID, so a later Rank query can resolve it back to a row.
func (q *QdrantIndex) Upsert(ctx context.Context, e *models.Embedding) error {
	vector := make([]float32, len(e.Vector))
	for i, f := range e.Vector {
		vector[i] = float32(f)
	}
	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(e.OwnerID.String()),
		Vectors: qdrant.NewVectors(vector...),
		Payload: qdrant.NewValueMap(map[string]any{
			"owner_kind": string(e.OwnerKind),
			"model_name": e.ModelName,
		}),
	}
	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collectionName,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("vectorindex: upserting point for owner %s: %w", e.OwnerID, err)
	}
	return nil
}

// Rank queries the remote collection for the nearest neighbors of query
// and maps results back onto the supplied candidates by owner ID. Any
// candidate the collection doesn't recognize is dropped from the result.
func (q *QdrantIndex) Rank(ctx context.Context, query models.FloatVector, candidates []*models.Embedding, limit int) ([]Candidate, error) {
	byOwner := make(map[string]*models.Embedding, len(candidates))
	for _, c := range candidates {
		byOwner[c.OwnerID.String()] = c
	}

	queryVector := make([]float32, len(query))
	for i, f := range query {
		queryVector[i] = float32(f)
	}

	limitU := uint64(limit)
	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collectionName,
		Query:          qdrant.NewQuery(queryVector...),
		Limit:          &limitU,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("vectorindex: querying collection %s: %w", q.collectionName, err)
	}

	results := make([]Candidate, 0, len(points))
	for _, p := range points {
		id := p.GetId().GetUuid()
		emb, ok := byOwner[id]
		if !ok {
			continue
		}
		results = append(results, Candidate{Embedding: emb, Score: float64(p.GetScore())})
	}
	return results, nil
}
