package embedding

import (
	"context"
	"crypto/sha1"
	"encoding/hex"

	"github.com/hyperjump/essayscore/internal/storage"
	"go.uber.org/zap"
)

// PersistentEmbedder consults an EmbeddingStore before running the wrapped
// embedder, so key answers that repeat across exams and restarts are embedded once.
// Store failures are logged and never fail an embedding.
type PersistentEmbedder struct {
	inner   Embedder
	store   storage.EmbeddingStore
	modelID string
	logger  *zap.Logger
}

// NewPersistentEmbedder wraps inner with store. Entries are scoped by modelID.
func NewPersistentEmbedder(inner Embedder, store storage.EmbeddingStore, modelID string, logger *zap.Logger) *PersistentEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PersistentEmbedder{inner: inner, store: store, modelID: modelID, logger: logger}
}

// Embed returns the stored embedding for text or computes and stores it.
func (e *PersistentEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := textKey(text)
	vec, ok, err := e.store.GetEmbedding(ctx, e.modelID, key)
	if err != nil {
		e.logger.Warn("embedding store read failed", zap.String("model_id", e.modelID), zap.Error(err))
	}
	if ok && len(vec) == e.inner.Dimensions() {
		return vec, nil
	}

	vec, err = e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := e.store.PutEmbedding(ctx, e.modelID, key, vec); err != nil {
		e.logger.Warn("embedding store write failed", zap.String("model_id", e.modelID), zap.Error(err))
	}
	return vec, nil
}

// EmbedBatch calls Embed for each text.
func (e *PersistentEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the wrapped embedder's dimension.
func (e *PersistentEmbedder) Dimensions() int {
	return e.inner.Dimensions()
}

// Close closes the wrapped embedder. The store is owned by the caller.
func (e *PersistentEmbedder) Close() error {
	return e.inner.Close()
}

func textKey(text string) string {
	sum := sha1.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}
