package cmd

import (
	"fmt"
	"log/slog"

	"github.com/filebutler-io/filebutler/internal/classifier"
	"github.com/filebutler-io/filebutler/internal/config"
	"github.com/filebutler-io/filebutler/internal/db"
	"github.com/filebutler-io/filebutler/internal/embeddings"
	"github.com/filebutler-io/filebutler/internal/extract"
	"github.com/filebutler-io/filebutler/internal/llm"
	"github.com/filebutler-io/filebutler/internal/logging"
	"github.com/filebutler-io/filebutler/internal/mover"
	"github.com/filebutler-io/filebutler/internal/processor"
	"github.com/filebutler-io/filebutler/internal/scanner"
	"github.com/filebutler-io/filebutler/internal/search"
	"github.com/filebutler-io/filebutler/internal/vectorindex"
)

// loadConfig loads and validates the config, with a hint toward init.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `filebutler init` to create a config file", err)
	}
	return cfg, nil
}

// setupLogging builds the logger from config; --verbose forces DEBUG.
func setupLogging(cfg *config.Config) (*slog.Logger, func(), error) {
	settings := cfg.Logging
	if verbose {
		settings.Level = "DEBUG"
	}
	return logging.Setup(settings)
}

func openDatabase(cfg *config.Config) (*db.DB, error) {
	store, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w\nRun `filebutler init` first", err)
	}
	return store, nil
}

func newEmbedder(cfg *config.Config) embeddings.Embedder {
	return embeddings.NewOllamaEmbedder(cfg.AISettings.EmbeddingModel, cfg.AISettings.OllamaBaseURL)
}

func newGenerator(cfg *config.Config, logger *slog.Logger) *embeddings.Generator {
	return embeddings.NewGenerator(newEmbedder(cfg), 0, 0, logger)
}

func openVectorStore(cfg *config.Config, logger *slog.Logger) (*vectorindex.ChromemStore, error) {
	store, err := vectorindex.NewChromemStore(cfg.Database.VectorStorePath, newEmbedder(cfg), logger)
	if err != nil {
		return nil, fmt.Errorf("opening vector store: %w", err)
	}
	return store, nil
}

func newLLMClient(cfg *config.Config, logger *slog.Logger) llm.Client {
	return llm.NewOllamaClient(
		cfg.AISettings.OllamaBaseURL,
		cfg.AISettings.ModelName,
		cfg.AISettings.Temperature,
		cfg.AISettings.MaxRetries,
		logger,
	)
}

func newAnalyzer(cfg *config.Config, logger *slog.Logger) *extract.Analyzer {
	return extract.NewAnalyzer(extract.NewRegistry(), cfg.MaxFileSizeBytes(), logger)
}

// newProcessor wires the full pipeline. interactive selects the terminal
// prompter over auto-accept.
func newProcessor(cfg *config.Config, store *db.DB, logger *slog.Logger, interactive bool) *processor.Processor {
	var prompter processor.DecisionPrompter = processor.AutoAccept{}
	if interactive && !cfg.AutoProcessEnabled {
		prompter = processor.TerminalPrompter{}
	}

	return processor.New(
		cfg,
		newAnalyzer(cfg, logger),
		classifier.New(newLLMClient(cfg, logger), cfg.OrganizedBasePath, logger),
		mover.New(cfg.OrganizedBasePath, store, logger),
		scanner.New(cfg.FolderScanDepth, nil, logger),
		store,
		prompter,
		logger,
	)
}

func newSearchEngine(cfg *config.Config, logger *slog.Logger) (*search.Engine, error) {
	store, err := openVectorStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	return search.NewEngine(store, newGenerator(cfg, logger), logger), nil
}

func formatSize(bytes int64) string {
	switch {
	case bytes < 1024:
		return fmt.Sprintf("%d B", bytes)
	case bytes < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	case bytes < 1024*1024*1024:
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
	default:
		return fmt.Sprintf("%.1f GB", float64(bytes)/(1024*1024*1024))
	}
}
