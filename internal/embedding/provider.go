package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/hyperjump/essayscore/internal/vector"
)

// ErrEmptyInput is returned when Similarity is called with an empty text.
// Callers are expected to short-circuit empty answers before calling.
var ErrEmptyInput = errors.New("embedding: empty input")

// Provider compares two texts.
type Provider interface {
	// Similarity returns the cosine similarity of the embeddings of a and b, in [-1, 1].
	Similarity(ctx context.Context, a, b string) (float64, error)
	// ModelID identifies the model the provider was built from.
	ModelID() string
	Close() error
}

// EmbeddingProvider implements Provider on top of an Embedder.
type EmbeddingProvider struct {
	embedder Embedder
	modelID  string
}

// NewProvider returns a Provider that embeds with e.
func NewProvider(e Embedder, modelID string) *EmbeddingProvider {
	return &EmbeddingProvider{embedder: e, modelID: modelID}
}

// Similarity embeds both texts in one batch and returns their cosine similarity.
func (p *EmbeddingProvider) Similarity(ctx context.Context, a, b string) (float64, error) {
	if a == "" || b == "" {
		return 0, ErrEmptyInput
	}
	vecs, err := p.embedder.EmbedBatch(ctx, []string{a, b})
	if err != nil {
		return 0, fmt.Errorf("embed answers: %w", err)
	}
	if len(vecs) != 2 {
		return 0, fmt.Errorf("embed answers: got %d embeddings for 2 texts", len(vecs))
	}
	if len(vecs[0]) == 0 || len(vecs[0]) != len(vecs[1]) {
		return 0, fmt.Errorf("embed answers: dimension mismatch %d vs %d", len(vecs[0]), len(vecs[1]))
	}
	sim := vector.Cosine(vecs[0], vecs[1])
	if math.IsNaN(sim) {
		return 0, fmt.Errorf("embed answers: similarity is NaN")
	}
	return sim, nil
}

// ModelID returns the model identifier.
func (p *EmbeddingProvider) ModelID() string {
	return p.modelID
}

// Close releases the underlying embedder.
func (p *EmbeddingProvider) Close() error {
	return p.embedder.Close()
}
