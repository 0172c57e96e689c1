package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperjump/essayscore/internal/artifact"
	"github.com/hyperjump/essayscore/internal/config"
	"github.com/hyperjump/essayscore/internal/embedding"
	"github.com/hyperjump/essayscore/internal/metrics"
	"github.com/hyperjump/essayscore/internal/modelres"
	"github.com/hyperjump/essayscore/internal/scoring"
	"github.com/hyperjump/essayscore/internal/storage"
	"go.uber.org/zap"
)

// Components is everything a scoring process needs.
type Components struct {
	Metrics     *metrics.Metrics
	Cache       *storage.SQLiteStorage
	Models      *modelres.Manager
	Coordinator *scoring.Coordinator
}

// Close releases the model and the embedding cache.
func (c *Components) Close() {
	if c.Models != nil {
		_ = c.Models.Close()
	}
	if c.Cache != nil {
		_ = c.Cache.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{Metrics: metrics.New()}

	var cache storage.EmbeddingStore
	if cfg.Storage.EmbeddingCacheOrDefault() {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.EmbeddingCachePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create embedding cache dir: %w", err)
		}
		db, err := storage.NewSQLiteStorage(cfg.Storage.EmbeddingCachePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize embedding cache: %w", err)
		}
		c.Cache = db
		cache = db
		logger.Info("embedding cache enabled", zap.String("path", cfg.Storage.EmbeddingCachePath))
	}

	build := func(_ context.Context, dir, modelID string) (embedding.Provider, error) {
		p, err := embedding.NewProviderFromDir(dir, modelID, &cfg.Embedding, cache, logger)
		if err != nil {
			return nil, err
		}
		return p, nil
	}

	hub := artifact.NewHubStore(artifact.HubOptions{
		BaseURL:  cfg.Model.HubURL,
		Revision: cfg.Model.HubRevision,
		Token:    cfg.Model.HubToken,
	})
	c.Models = modelres.NewManager(
		primaryLoader(cfg, build, logger),
		modelres.FallbackLoader(hub, cfg.Model.FallbackModelID, cfg.Model.FallbackDir, build, logger),
		modelres.WithLogger(logger),
		modelres.WithMetrics(c.Metrics),
		modelres.WithAcquireTimeout(cfg.Model.AcquireTimeout),
	)

	scorer := scoring.NewScorer(c.Models, scoring.WithLogger(logger), scoring.WithMetrics(c.Metrics))
	c.Coordinator = scoring.NewCoordinator(scorer, logger)
	return c, nil
}

// primaryLoader opens the artifact store inside the loader, so missing
// credentials count as a primary failure and lead to the fallback instead of
// failing startup.
func primaryLoader(cfg *config.Config, build modelres.Builder, logger *zap.Logger) modelres.Loader {
	return func(ctx context.Context) (embedding.Provider, error) {
		store, closeStore, err := openPrimaryStore(ctx, &cfg.Model)
		if err != nil {
			return nil, fmt.Errorf("open artifact store: %w", err)
		}
		defer closeStore()
		return modelres.PrimaryLoader(store, cfg.Model.StoragePath, cfg.Model.LocalDir, build, logger)(ctx)
	}
}

func openPrimaryStore(ctx context.Context, m *config.ModelConfig) (artifact.Store, func() error, error) {
	switch m.ArtifactBackend {
	case config.ArtifactBackendFS:
		if m.FSRoot == "" {
			return nil, nil, fmt.Errorf("model.fs_root is required for the fs backend")
		}
		s, err := artifact.NewFSStore(m.FSRoot)
		if err != nil {
			return nil, nil, err
		}
		return s, func() error { return nil }, nil
	default:
		s, err := artifact.NewGCSStore(ctx, artifact.GCSOptions{
			Bucket:          m.Bucket,
			ProjectID:       m.ProjectID,
			CredentialsFile: m.CredentialsFile,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
}
