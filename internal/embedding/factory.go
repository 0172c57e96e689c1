package embedding

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperjump/essayscore/internal/config"
	"github.com/hyperjump/essayscore/internal/storage"
	"go.uber.org/zap"
)

// ErrModelFileNotFound is returned when a model directory has no ONNX weights.
var ErrModelFileNotFound = errors.New("no ONNX model file in directory")

// modelFileCandidates are checked in order, relative to the model directory.
var modelFileCandidates = []string{
	"model.onnx",
	filepath.Join("onnx", "model.onnx"),
}

// NewProviderFromDir builds a Provider from a materialized model directory.
// Both the fine-tuned model and the public fallback go through here; they
// differ only in dir and modelID. store may be nil.
func NewProviderFromDir(dir, modelID string, cfg *config.EmbeddingConfig, store storage.EmbeddingStore, logger *zap.Logger) (*EmbeddingProvider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("model directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("model directory %s is not a directory", dir)
	}

	var emb Embedder
	switch cfg.Backend {
	case config.EmbeddingBackendMock:
		logger.Warn("mock embedding backend selected; scores reflect word overlap only",
			zap.String("model_id", modelID))
		emb = NewMockEmbedder(cfg.Dimensions)
	case config.EmbeddingBackendONNX, "":
		modelPath, err := FindModelFile(dir)
		if err != nil {
			return nil, err
		}
		tok, err := loadTokenizer(dir, logger)
		if err != nil {
			return nil, err
		}
		onnxEmb, err := NewONNXEmbedder(ONNXOptions{
			ModelPath:         modelPath,
			Tokenizer:         tok,
			Dimensions:        cfg.Dimensions,
			MaxTokens:         cfg.MaxTokens,
			CacheSize:         cfg.CacheSize,
			OutputName:        cfg.OutputName,
			Pooling:           cfg.Pooling,
			SharedLibraryPath: cfg.SharedLibraryPath,
		})
		if err != nil {
			return nil, err
		}
		emb = onnxEmb
	default:
		return nil, fmt.Errorf("unknown embedding backend %q", cfg.Backend)
	}

	if store != nil {
		emb = NewPersistentEmbedder(emb, store, modelID, logger)
	}
	logger.Debug("embedding provider built",
		zap.String("model_id", modelID),
		zap.String("dir", dir),
		zap.String("backend", cfg.Backend),
	)
	return NewProvider(emb, modelID), nil
}

// FindModelFile returns the path of the ONNX weights inside dir.
func FindModelFile(dir string) (string, error) {
	for _, rel := range modelFileCandidates {
		p := filepath.Join(dir, rel)
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() && info.Size() > 0 {
			return p, nil
		}
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "*.onnx"))
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil && info.Size() > 0 {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrModelFileNotFound, dir)
}

// loadTokenizer prefers tokenizer.json; without it the hash tokenizer is used,
// which only makes sense for models trained with it.
func loadTokenizer(dir string, logger *zap.Logger) (Tokenizer, error) {
	path := filepath.Join(dir, "tokenizer.json")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			logger.Warn("tokenizer.json not found; using simple tokenizer", zap.String("dir", dir))
			return &SimpleTokenizer{}, nil
		}
		return nil, err
	}
	return NewWordPieceTokenizer(path)
}
