package config

import "time"

// DefaultFallbackModelID is the public model used when the fine-tuned one cannot be loaded.
const DefaultFallbackModelID = "sentence-transformers/all-MiniLM-L6-v2"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 120 * time.Second
	}
	if cfg.Server.AllowedOrigins == nil {
		cfg.Server.AllowedOrigins = []string{"*"}
	}
	if cfg.Model.ArtifactBackend == "" {
		cfg.Model.ArtifactBackend = ArtifactBackendGCS
	}
	if cfg.Model.StoragePath == "" {
		cfg.Model.StoragePath = "models/finsmart-ai-finetuned-model"
	}
	if cfg.Model.LocalDir == "" {
		cfg.Model.LocalDir = "/tmp/essayscore/model"
	}
	if cfg.Model.FallbackModelID == "" {
		cfg.Model.FallbackModelID = DefaultFallbackModelID
	}
	if cfg.Model.FallbackDir == "" {
		cfg.Model.FallbackDir = "/tmp/essayscore/fallback"
	}
	if cfg.Model.HubURL == "" {
		cfg.Model.HubURL = "https://huggingface.co"
	}
	if cfg.Model.HubRevision == "" {
		cfg.Model.HubRevision = "main"
	}
	if cfg.Model.AcquireTimeout == 0 {
		cfg.Model.AcquireTimeout = 10 * time.Minute
	}
	if cfg.Embedding.Backend == "" {
		cfg.Embedding.Backend = EmbeddingBackendONNX
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.OutputName == "" {
		cfg.Embedding.OutputName = "last_hidden_state"
	}
	if cfg.Embedding.Pooling == "" {
		cfg.Embedding.Pooling = "mean"
	}
	if cfg.Storage.EmbeddingCachePath == "" {
		cfg.Storage.EmbeddingCachePath = "/tmp/essayscore/embeddings.db"
	}
}
