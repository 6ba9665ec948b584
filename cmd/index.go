package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/filebutler-io/filebutler/internal/extract"
	"github.com/filebutler-io/filebutler/internal/indexer"
	"github.com/filebutler-io/filebutler/internal/progress"
)

var indexCmd = &cobra.Command{
	Use:   "index PATH",
	Short: "Index files for semantic search",
	Long: `Scans PATH for supported files, extracts text, generates embeddings,
and stores them in the search index. Files whose extracted content is
unchanged since the last run are skipped unless --force is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolP("recursive", "r", true, "scan subdirectories")
	indexCmd.Flags().BoolP("force", "f", false, "re-index files even if already indexed")
	indexCmd.Flags().BoolP("dry-run", "n", false, "show what would be indexed without doing it")
	indexCmd.Flags().Int("max-size", 50, "maximum file size in MB")
	indexCmd.Flags().StringArray("exclude", nil, "glob pattern to exclude (repeatable)")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, cleanup, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	recursive, _ := cmd.Flags().GetBool("recursive")
	force, _ := cmd.Flags().GetBool("force")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	maxSizeMB, _ := cmd.Flags().GetInt("max-size")
	excludes, _ := cmd.Flags().GetStringArray("exclude")

	opts := indexer.Options{
		Recursive:    recursive,
		Force:        force,
		MaxFileSize:  int64(maxSizeMB) * 1024 * 1024,
		ExcludeGlobs: excludes,
	}

	store, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	vectorStore, err := openVectorStore(cfg, logger)
	if err != nil {
		return err
	}

	driver := indexer.New(extract.NewRegistry(), newGenerator(cfg, logger), vectorStore, store, logger)

	if dryRun {
		files, err := driver.Collect(args[0], opts)
		if err != nil {
			return err
		}
		fmt.Printf("Would index %d file(s):\n", len(files))
		for i, f := range files {
			if i == 50 {
				fmt.Printf("  ... and %d more\n", len(files)-50)
				break
			}
			fmt.Printf("  %s\n", f)
		}
		return nil
	}

	reporter := progress.NewReporter()
	started := false
	driver.SetProgressFunc(func(done, total int, path string) {
		if !started {
			reporter.Start(total)
			started = true
		}
		reporter.Update(done, filepath.Base(path))
	})

	stats, err := driver.Run(context.Background(), args[0], opts)
	if started {
		reporter.Finish()
	}
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Indexing summary")
	fmt.Printf("  Indexed:         %d\n", stats.Indexed)
	fmt.Printf("  Already indexed: %d\n", stats.AlreadyIndexed)
	fmt.Printf("  Skipped (empty): %d\n", stats.Skipped)
	fmt.Printf("  Errors:          %d\n", len(stats.Errors))
	fmt.Printf("  Elapsed:         %.1fs\n", stats.Duration.Seconds())

	if n := len(stats.Errors); n > 0 {
		fmt.Println("\nErrors (most recent):")
		shown := stats.Errors
		if n > 10 {
			shown = shown[n-10:]
		}
		for _, fe := range shown {
			msg := fe.Err.Error()
			if len(msg) > 60 {
				msg = msg[:60]
			}
			fmt.Printf("  %s: %s\n", filepath.Base(fe.Path), msg)
		}
	}
	return nil
}
