package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (FILEBUTLER_*). Defaults are applied
// first, so context folders can be derived from the resolved base path.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables: FILEBUTLER_ORGANIZED_BASE_PATH ->
	// organized_base_path, etc.
	if err := k.Load(env.Provider("FILEBUTLER_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "FILEBUTLER_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path, creating
// parent directories as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validLogLevels is the set of recognized logging levels.
var validLogLevels = map[string]bool{
	"DEBUG":    true,
	"INFO":     true,
	"WARNING":  true,
	"ERROR":    true,
	"CRITICAL": true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	t := c.ConfidenceThresholds
	if t.Low > t.Medium || t.Medium >= t.High || t.High > 1 {
		return fmt.Errorf("confidence thresholds must satisfy low <= medium < high <= 1 (got low=%.2f medium=%.2f high=%.2f)", t.Low, t.Medium, t.High)
	}

	if c.Processing.DebounceSeconds < 0 {
		return fmt.Errorf("processing.debounce_seconds must be non-negative")
	}
	if c.Processing.MaxFileSizeMB < 1 {
		return fmt.Errorf("processing.max_file_size_mb must be at least 1")
	}
	if c.Processing.BatchSize < 1 {
		return fmt.Errorf("processing.batch_size must be at least 1")
	}

	if c.AISettings.ModelName == "" {
		return fmt.Errorf("ai_settings.model_name is required")
	}
	if c.AISettings.EmbeddingModel == "" {
		return fmt.Errorf("ai_settings.embedding_model is required")
	}
	if c.AISettings.Temperature < 0 || c.AISettings.Temperature > 2 {
		return fmt.Errorf("ai_settings.temperature must be in [0, 2]")
	}
	if c.AISettings.MaxRetries < 1 {
		return fmt.Errorf("ai_settings.max_retries must be at least 1")
	}

	if c.FolderScanDepth < 1 || c.FolderScanDepth > 10 {
		return fmt.Errorf("folder_scan_depth must be in [1, 10]")
	}

	level := strings.ToUpper(c.Logging.Level)
	if !validLogLevels[level] {
		return fmt.Errorf("invalid logging.level %q: must be one of DEBUG, INFO, WARNING, ERROR, CRITICAL", c.Logging.Level)
	}
	if c.Logging.BackupCount < 1 {
		return fmt.Errorf("logging.backup_count must be at least 1")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Database.VectorStorePath == "" {
		return fmt.Errorf("database.vector_store_path is required")
	}
	if c.Database.BackupIntervalHours < 1 {
		return fmt.Errorf("database.backup_interval_hours must be at least 1")
	}

	return nil
}
