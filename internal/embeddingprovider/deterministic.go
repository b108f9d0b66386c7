package embeddingprovider

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
)

// DeterministicProvider derives a stable pseudo-embedding from a SHA-256
// digest of the input text, expanded to fill the configured dimension.
// It exists for offline development and tests where no API credential is
// configured; no local embedding model ships anywhere in the retrieved
// corpus, so a hash expansion is the honest stdlib-only stand-in rather
// than a fabricated ML dependency.
type DeterministicProvider struct {
	dimension int
}

// NewDeterministicProvider creates a hash-based provider producing
// vectors of the given dimension.
func NewDeterministicProvider(dimension int) *DeterministicProvider {
	return &DeterministicProvider{dimension: dimension}
}

func (p *DeterministicProvider) ModelName() string { return "local-hash-v1" }
func (p *DeterministicProvider) Dimension() int    { return p.dimension }

func (p *DeterministicProvider) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		vectors[i] = hashVector(text, p.dimension)
	}
	return vectors, nil
}

// hashVector repeatedly re-hashes the input to produce enough bytes to
// fill dimension float64 values in [-1, 1].
func hashVector(text string, dimension int) []float64 {
	vec := make([]float64, dimension)
	seed := sha256.Sum256([]byte(text))
	block := seed
	for i := 0; i < dimension; i++ {
		idx := i % len(block)
		if i > 0 && idx == 0 {
			block = sha256.Sum256(block[:])
		}
		v := binary.BigEndian.Uint16(append([]byte{block[idx]}, block[(idx+1)%len(block)]))
		vec[i] = float64(v)/float64(0xFFFF)*2 - 1
	}
	return vec
}
