package config

// ConfidenceThresholds bucket classification confidence into levels.
// Invariant: Low <= Medium < High <= 1.
type ConfidenceThresholds struct {
	High   float64 `yaml:"high" koanf:"high"`
	Medium float64 `yaml:"medium" koanf:"medium"`
	Low    float64 `yaml:"low" koanf:"low"`
}

// ProcessingSettings control file processing behaviour.
type ProcessingSettings struct {
	IdleOnly        bool    `yaml:"idle_only" koanf:"idle_only"`
	DebounceSeconds float64 `yaml:"debounce_seconds" koanf:"debounce_seconds"`
	MaxFileSizeMB   int     `yaml:"max_file_size_mb" koanf:"max_file_size_mb"`
	BatchSize       int     `yaml:"batch_size" koanf:"batch_size"`
}

// AISettings configure the local LLM backend and the embedding model.
type AISettings struct {
	ModelName      string  `yaml:"model_name" koanf:"model_name"`
	EmbeddingModel string  `yaml:"embedding_model" koanf:"embedding_model"`
	Temperature    float64 `yaml:"temperature" koanf:"temperature"`
	OllamaBaseURL  string  `yaml:"ollama_base_url" koanf:"ollama_base_url"`
	MaxRetries     int     `yaml:"max_retries" koanf:"max_retries"`
}

// LoggingSettings configure the structured logger.
type LoggingSettings struct {
	Level          string `yaml:"level" koanf:"level"`
	LogDir         string `yaml:"log_dir" koanf:"log_dir"`
	MaxBytes       int64  `yaml:"max_bytes" koanf:"max_bytes"`
	BackupCount    int    `yaml:"backup_count" koanf:"backup_count"`
	ConsoleEnabled bool   `yaml:"console_enabled" koanf:"console_enabled"`
	FileEnabled    bool   `yaml:"file_enabled" koanf:"file_enabled"`
}

// DatabaseSettings locate the relational store and the vector store.
type DatabaseSettings struct {
	Path                string `yaml:"path" koanf:"path"`
	VectorStorePath     string `yaml:"vector_store_path" koanf:"vector_store_path"`
	BackupEnabled       bool   `yaml:"backup_enabled" koanf:"backup_enabled"`
	BackupIntervalHours int    `yaml:"backup_interval_hours" koanf:"backup_interval_hours"`
}

// Config is the top-level filebutler configuration, corresponding to
// ~/.filebutler/config.yaml.
type Config struct {
	InboxFolders      []string `yaml:"inbox_folders" koanf:"inbox_folders"`
	OrganizedBasePath string   `yaml:"organized_base_path" koanf:"organized_base_path"`

	ScanFoldersForContext []string `yaml:"scan_folders_for_context" koanf:"scan_folders_for_context"`
	FolderScanDepth       int      `yaml:"folder_scan_depth" koanf:"folder_scan_depth"`

	ConfidenceThresholds ConfidenceThresholds `yaml:"confidence_thresholds" koanf:"confidence_thresholds"`
	Processing           ProcessingSettings   `yaml:"processing" koanf:"processing"`
	AISettings           AISettings           `yaml:"ai_settings" koanf:"ai_settings"`
	Logging              LoggingSettings      `yaml:"logging" koanf:"logging"`
	Database             DatabaseSettings     `yaml:"database" koanf:"database"`

	AutoProcessEnabled bool `yaml:"auto_process_enabled" koanf:"auto_process_enabled"`
	LearningEnabled    bool `yaml:"learning_enabled" koanf:"learning_enabled"`
}

// ContextFolders returns the folders scanned to give the classifier context.
// Defaults to the organized base path when not configured explicitly. Called
// only after defaults have been applied, so OrganizedBasePath is resolved.
func (c *Config) ContextFolders() []string {
	if len(c.ScanFoldersForContext) > 0 {
		return c.ScanFoldersForContext
	}
	if c.OrganizedBasePath != "" {
		return []string{c.OrganizedBasePath}
	}
	return nil
}

// MaxFileSizeBytes converts the configured processing limit to bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return int64(c.Processing.MaxFileSizeMB) * 1024 * 1024
}
