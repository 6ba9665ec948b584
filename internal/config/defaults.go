package config

import (
	"os"
	"path/filepath"
)

// DefaultDir returns the filebutler state directory (~/.filebutler).
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".filebutler"
	}
	return filepath.Join(home, ".filebutler")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	return &Config{
		InboxFolders: []string{
			filepath.Join(home, "Downloads"),
			filepath.Join(home, "Desktop"),
		},
		OrganizedBasePath: filepath.Join(home, "Documents", "Organized"),
		FolderScanDepth:   4,
		ConfidenceThresholds: ConfidenceThresholds{
			High:   0.9,
			Medium: 0.6,
			Low:    0.0,
		},
		Processing: ProcessingSettings{
			IdleOnly:        true,
			DebounceSeconds: 2,
			MaxFileSizeMB:   100,
			BatchSize:       10,
		},
		AISettings: AISettings{
			ModelName:      "qwen2.5:latest",
			EmbeddingModel: "nomic-embed-text",
			Temperature:    0.1,
			OllamaBaseURL:  "http://localhost:11434",
			MaxRetries:     3,
		},
		Logging: LoggingSettings{
			Level:          "INFO",
			LogDir:         filepath.Join(DefaultDir(), "logs"),
			MaxBytes:       10 * 1024 * 1024,
			BackupCount:    5,
			ConsoleEnabled: true,
			FileEnabled:    true,
		},
		Database: DatabaseSettings{
			Path:                filepath.Join(DefaultDir(), "filebutler.db"),
			VectorStorePath:     filepath.Join(DefaultDir(), "vectordb"),
			BackupEnabled:       true,
			BackupIntervalHours: 24,
		},
	}
}
