package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
  request_timeout: 30s
model:
  bucket: "exams.appspot.com"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Server.RequestTimeout != 30*time.Second {
		t.Errorf("request_timeout = %v, want 30s", cfg.Server.RequestTimeout)
	}
	if cfg.Model.Bucket != "exams.appspot.com" {
		t.Errorf("bucket = %q", cfg.Model.Bucket)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_debugTrue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("debug: true\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_emptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 8080 || cfg.Model.FallbackModelID != DefaultFallbackModelID {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoad_unknownBackend(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("embedding:\n  backend: tfjs\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for unknown embedding backend")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
model:
  artifact_backend: fs
  fs_root: "./artifacts"
  local_dir: "./data/model"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "artifacts"); cfg.Model.FSRoot != want {
		t.Errorf("fs_root = %s, want %s", cfg.Model.FSRoot, want)
	}
	if want := filepath.Join(dir, "data", "model"); cfg.Model.LocalDir != want {
		t.Errorf("local_dir = %s, want %s", cfg.Model.LocalDir, want)
	}
	if cfg.Model.CredentialsFile != "" {
		t.Errorf("empty credentials_file should stay empty, got %q", cfg.Model.CredentialsFile)
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Server.RequestTimeout != 120*time.Second {
		t.Errorf("default request timeout: got %v", cfg.Server.RequestTimeout)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "*" {
		t.Errorf("default allowed origins: got %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Model.StoragePath != "models/finsmart-ai-finetuned-model" {
		t.Errorf("default storage path: got %s", cfg.Model.StoragePath)
	}
	if cfg.Model.ArtifactBackend != ArtifactBackendGCS {
		t.Errorf("default artifact backend: got %s", cfg.Model.ArtifactBackend)
	}
	if cfg.Embedding.Dimensions != 384 || cfg.Embedding.Pooling != "mean" {
		t.Errorf("embedding defaults: got %+v", cfg.Embedding)
	}
	if cfg.Storage.EmbeddingCacheOrDefault() {
		t.Error("embedding cache should default to disabled")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"ESSAYSCORE_DEBUG":             "1",
		"PORT":                         "9090",
		"FIREBASE_PROJECT_ID":          "finsmart",
		"ESSAYSCORE_EMBEDDING_BACKEND": "mock",
		"ESSAYSCORE_ACQUIRE_TIMEOUT":   "90s",
		"HF_TOKEN":                     "",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	cfg := &Config{}
	ApplyDefaults(cfg)
	if err := ApplyEnv(cfg, lookup); err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("ESSAYSCORE_DEBUG should enable debug")
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port: got %d", cfg.Server.Port)
	}
	if cfg.Model.ProjectID != "finsmart" {
		t.Errorf("project id: got %q", cfg.Model.ProjectID)
	}
	if cfg.Embedding.Backend != EmbeddingBackendMock {
		t.Errorf("embedding backend: got %q", cfg.Embedding.Backend)
	}
	if cfg.Model.AcquireTimeout != 90*time.Second {
		t.Errorf("acquire timeout: got %v", cfg.Model.AcquireTimeout)
	}
	if cfg.Model.HubToken != "" {
		t.Error("empty env value should not override")
	}

	env["ESSAYSCORE_PORT"] = "7070"
	if err := ApplyEnv(cfg, lookup); err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("ESSAYSCORE_PORT should win over PORT, got %d", cfg.Server.Port)
	}

	env["ESSAYSCORE_DEBUG"] = "maybe"
	if err := ApplyEnv(cfg, lookup); err == nil {
		t.Error("expected error for invalid ESSAYSCORE_DEBUG")
	}
}

func TestApplyEnv_plainDebug(t *testing.T) {
	env := map[string]string{"DEBUG": ""}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	cfg := &Config{}
	if err := ApplyEnv(cfg, lookup); err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("DEBUG set to any value should enable debug")
	}

	env["ESSAYSCORE_DEBUG"] = "false"
	cfg = &Config{}
	if err := ApplyEnv(cfg, lookup); err != nil {
		t.Fatal(err)
	}
	if cfg.Debug {
		t.Error("ESSAYSCORE_DEBUG=false should override DEBUG")
	}
}

func TestStorageConfig_EmbeddingCacheOrDefault(t *testing.T) {
	on := true
	s := &StorageConfig{EmbeddingCacheEnabled: &on}
	if !s.EmbeddingCacheOrDefault() {
		t.Error("explicit true should enable cache")
	}
}
