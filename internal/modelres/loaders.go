package modelres

import (
	"context"
	"fmt"
	"os"

	"github.com/hyperjump/essayscore/internal/artifact"
	"github.com/hyperjump/essayscore/internal/embedding"
	"go.uber.org/zap"
)

// Builder turns a materialized model directory into a provider.
type Builder func(ctx context.Context, dir, modelID string) (embedding.Provider, error)

// fallbackFiles are the only files fetched for the public model; the Hub
// repository also carries PyTorch and TensorFlow weights we never load.
var fallbackFiles = map[string]bool{
	"tokenizer.json":  true,
	"config.json":     true,
	"onnx/model.onnx": true,
}

// FallbackFiles reports whether rel is needed to run the public model.
func FallbackFiles(rel string) bool {
	return fallbackFiles[rel]
}

// StoreLoader materializes prefix from store into dir and builds a provider
// from it. keep may be nil to fetch every file.
func StoreLoader(store artifact.Store, prefix, dir, modelID string, keep func(string) bool, build Builder, logger *zap.Logger) Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context) (embedding.Provider, error) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("model dir: %w", err)
		}
		n, err := artifact.Materialize(ctx, store, prefix, dir, keep)
		if err != nil {
			return nil, err
		}
		logger.Info("model files materialized",
			zap.String("model_id", modelID),
			zap.String("dir", dir),
			zap.Int("files", n),
		)
		p, err := build(ctx, dir, modelID)
		if err != nil {
			return nil, fmt.Errorf("build provider for %s: %w", modelID, err)
		}
		return p, nil
	}
}

// PrimaryLoader loads the fine-tuned model stored under prefix.
func PrimaryLoader(store artifact.Store, prefix, dir string, build Builder, logger *zap.Logger) Loader {
	return StoreLoader(store, prefix, dir, prefix, nil, build, logger)
}

// FallbackLoader loads the public model repoID from a Hub-like store.
func FallbackLoader(hub artifact.Store, repoID, dir string, build Builder, logger *zap.Logger) Loader {
	return StoreLoader(hub, repoID, dir, repoID, FallbackFiles, build, logger)
}
