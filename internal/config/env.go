package config

import (
	"fmt"
	"strconv"
	"time"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides cfg with environment variables. PORT is honored for
// container platforms that inject it; ESSAYSCORE_PORT wins when both are set.
// A DEBUG variable with any value turns debug on; ESSAYSCORE_DEBUG, when set,
// decides.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	if _, ok := lookup("DEBUG"); ok {
		cfg.Debug = true
	}
	if v, ok := lookup("ESSAYSCORE_DEBUG"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid ESSAYSCORE_DEBUG %q: %w", v, err)
		}
		cfg.Debug = b
	}
	str("ESSAYSCORE_LOG_LEVEL", &cfg.LogLevel)
	for _, key := range []string{"PORT", "ESSAYSCORE_PORT"} {
		if v, ok := lookup(key); ok && v != "" {
			port, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", key, v, err)
			}
			cfg.Server.Port = port
		}
	}
	str("ESSAYSCORE_ARTIFACT_BACKEND", &cfg.Model.ArtifactBackend)
	str("ESSAYSCORE_MODEL_BUCKET", &cfg.Model.Bucket)
	str("FIREBASE_PROJECT_ID", &cfg.Model.ProjectID)
	str("GOOGLE_APPLICATION_CREDENTIALS", &cfg.Model.CredentialsFile)
	str("ESSAYSCORE_MODEL_STORAGE_PATH", &cfg.Model.StoragePath)
	str("ESSAYSCORE_MODEL_LOCAL_DIR", &cfg.Model.LocalDir)
	str("ESSAYSCORE_FALLBACK_MODEL_ID", &cfg.Model.FallbackModelID)
	str("HF_TOKEN", &cfg.Model.HubToken)
	if v, ok := lookup("ESSAYSCORE_ACQUIRE_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid ESSAYSCORE_ACQUIRE_TIMEOUT %q: %w", v, err)
		}
		cfg.Model.AcquireTimeout = d
	}
	str("ESSAYSCORE_EMBEDDING_BACKEND", &cfg.Embedding.Backend)
	str("ONNXRUNTIME_SHARED_LIBRARY", &cfg.Embedding.SharedLibraryPath)
	return nil
}
