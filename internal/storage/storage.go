// Package storage persists computed embeddings and reports on local model files.
package storage

import (
	"context"
)

// EmbeddingStore persists embeddings keyed by model ID and a hash of the text.
type EmbeddingStore interface {
	GetEmbedding(ctx context.Context, modelID, textHash string) ([]float32, bool, error)
	PutEmbedding(ctx context.Context, modelID, textHash string, vec []float32) error
	CountEmbeddings(ctx context.Context, modelID string) (int64, error)
	Close() error
}
