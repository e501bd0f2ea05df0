// Package embedding defines the text-to-vector boundary the query pipeline
// and reindex coordinator depend on, and ships a deterministic reference
// implementation so the engine runs without a hosted model.
package embedding

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/occsearch/engine/internal/vectorindex"
)

// Provider turns text into a unit-norm vector of a fixed dimension. It must
// be deterministic: the same input always produces the same output.
type Provider interface {
	Dimension() int
	Embed(text string) ([]float32, error)
	ModelID() string
}

// EmbedQuery wraps a user query with the model family's query-side prefix
// convention before embedding.
func EmbedQuery(p Provider, query string) ([]float32, error) {
	return p.Embed("query: " + query)
}

// hashProvider is a deterministic, seed-free stand-in for a hosted e5-style
// model: it projects the SHA-256 stream of the input text into a fixed
// dimension and L2-normalizes the result. It satisfies Provider's contract
// (deterministic, unit-norm, fixed dimension) without requiring network
// access or a model runtime, which this exercise has neither.
type hashProvider struct {
	dimension int
	modelID   string
}

// NewDeterministicProvider returns a reference Provider of the given
// dimension, labeled with modelID for health/log reporting.
func NewDeterministicProvider(dimension int, modelID string) Provider {
	return &hashProvider{dimension: dimension, modelID: modelID}
}

func (p *hashProvider) Dimension() int { return p.dimension }
func (p *hashProvider) ModelID() string { return p.modelID }

func (p *hashProvider) Embed(text string) ([]float32, error) {
	vec := make([]float32, p.dimension)
	block := []byte(text)
	counter := uint32(0)
	for i := 0; i < p.dimension; i++ {
		if i%8 == 0 {
			h := sha256.Sum256(append(block, beUint32(counter)...))
			block = h[:]
			counter++
		}
		segment := block[(i%8)*4 : (i%8)*4+4]
		v := binary.BigEndian.Uint32(segment)
		// Map into [-1, 1).
		vec[i] = float32(int32(v))/float32(1<<31)
	}
	return vectorindex.Normalize(vec), nil
}

func beUint32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}
