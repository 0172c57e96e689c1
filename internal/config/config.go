// Package config provides configuration loading and structs for the essay scoring server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	LogLevel  string          `yaml:"log_level"`
	Server    ServerConfig    `yaml:"server"`
	Model     ModelConfig     `yaml:"model"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Storage   StorageConfig   `yaml:"storage"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

// Artifact backends for the primary model.
const (
	ArtifactBackendGCS = "gcs"
	ArtifactBackendFS  = "fs"
)

// ModelConfig describes where the primary model lives and what to fall back to.
type ModelConfig struct {
	ArtifactBackend string `yaml:"artifact_backend"`
	Bucket          string `yaml:"bucket"`
	ProjectID       string `yaml:"project_id"`
	CredentialsFile string `yaml:"credentials_file"`
	FSRoot          string `yaml:"fs_root"`
	// StoragePath is the prefix the fine-tuned model was uploaded under.
	StoragePath string `yaml:"storage_path"`
	LocalDir    string `yaml:"local_dir"`

	FallbackModelID string `yaml:"fallback_model_id"`
	FallbackDir     string `yaml:"fallback_dir"`
	HubURL          string `yaml:"hub_url"`
	HubRevision     string `yaml:"hub_revision"`
	HubToken        string `yaml:"hub_token"`

	Preload        bool          `yaml:"preload"`
	AcquireTimeout time.Duration `yaml:"acquire_timeout"`
}

// Embedding backends.
const (
	EmbeddingBackendONNX = "onnx"
	EmbeddingBackendMock = "mock"
)

// EmbeddingConfig holds embedder settings.
type EmbeddingConfig struct {
	Backend           string `yaml:"backend"`
	Dimensions        int    `yaml:"dimensions"`
	MaxTokens         int    `yaml:"max_tokens"`
	CacheSize         int    `yaml:"cache_size"`
	OutputName        string `yaml:"output_name"`
	Pooling           string `yaml:"pooling"`
	SharedLibraryPath string `yaml:"shared_library_path"`
}

// StorageConfig holds the persistent embedding cache settings.
type StorageConfig struct {
	EmbeddingCachePath    string `yaml:"embedding_cache_path"`
	EmbeddingCacheEnabled *bool  `yaml:"embedding_cache_enabled"`
}

// EmbeddingCacheOrDefault returns whether the SQLite embedding cache is on; defaults to false when unset.
func (s *StorageConfig) EmbeddingCacheOrDefault() bool {
	if s.EmbeddingCacheEnabled != nil {
		return *s.EmbeddingCacheEnabled
	}
	return false
}

// Load reads and parses the config file at path, applies defaults, and expands paths.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	configDir := "."
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		configDir = filepath.Dir(path)
	}

	ApplyDefaults(&cfg)

	cfg.Model.FSRoot = expandPath(cfg.Model.FSRoot, configDir)
	cfg.Model.CredentialsFile = expandPath(cfg.Model.CredentialsFile, configDir)
	cfg.Model.LocalDir = expandPath(cfg.Model.LocalDir, configDir)
	cfg.Model.FallbackDir = expandPath(cfg.Model.FallbackDir, configDir)
	cfg.Embedding.SharedLibraryPath = expandPath(cfg.Embedding.SharedLibraryPath, configDir)
	cfg.Storage.EmbeddingCachePath = expandPath(cfg.Storage.EmbeddingCachePath, configDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromEnvironment loads a .env file from the working directory if present,
// then the config at path, then applies environment overrides.
func LoadFromEnvironment(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports settings that cannot work at all.
func (c *Config) Validate() error {
	switch c.Model.ArtifactBackend {
	case ArtifactBackendGCS, ArtifactBackendFS:
	default:
		return fmt.Errorf("unknown artifact backend %q (supported: gcs, fs)", c.Model.ArtifactBackend)
	}
	switch c.Embedding.Backend {
	case EmbeddingBackendONNX, EmbeddingBackendMock:
	default:
		return fmt.Errorf("unknown embedding backend %q (supported: onnx, mock)", c.Embedding.Backend)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths stay empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
