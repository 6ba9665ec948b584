package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/filebutler-io/filebutler/internal/db"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show counts and configuration",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, cleanup, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	store, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	counts, err := store.CountFilesByStatus()
	if err != nil {
		return err
	}
	classifications, err := store.CountClassifications()
	if err != nil {
		return err
	}
	actions, err := store.CountActions()
	if err != nil {
		return err
	}

	fmt.Println("Files:")
	total := 0
	for _, status := range []db.FileStatus{db.StatusPending, db.StatusProcessing, db.StatusProcessed, db.StatusError, db.StatusSkipped} {
		if n := counts[status]; n > 0 {
			fmt.Printf("  %-11s %d\n", status, n)
			total += n
		}
	}
	fmt.Printf("  %-11s %d\n", "total", total)
	fmt.Printf("Classifications: %d\n", classifications)
	fmt.Printf("Actions:         %d\n", actions)

	if vectorStore, err := openVectorStore(cfg, logger); err == nil {
		fmt.Printf("Indexed files:   %d\n", vectorStore.Count())
	}

	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Printf("  Inbox folders:  %v\n", cfg.InboxFolders)
	fmt.Printf("  Organized root: %s\n", cfg.OrganizedBasePath)
	fmt.Printf("  Model:          %s\n", cfg.AISettings.ModelName)
	fmt.Printf("  Embeddings:     %s\n", cfg.AISettings.EmbeddingModel)
	fmt.Printf("  Backend:        %s\n", cfg.AISettings.OllamaBaseURL)

	client := newLLMClient(cfg, logger)
	if client.CheckConnection(context.Background()) {
		if client.CheckModel(context.Background()) {
			fmt.Println("  Backend status: ready")
		} else {
			fmt.Printf("  Backend status: reachable, model %q missing\n", cfg.AISettings.ModelName)
		}
	} else {
		fmt.Println("  Backend status: unreachable")
	}

	return nil
}
