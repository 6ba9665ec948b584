package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/filebutler-io/filebutler/internal/watcher"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Watch the inbox folders and organize arriving files",
	Long: `Combines the watcher and the processor: each file that settles in an
inbox folder is analyzed, classified, confirmed, and moved. Files are
processed one at a time, in arrival order. Ctrl-C stops.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringArray("folder", nil, "folder to watch (repeatable; overrides config)")
	runCmd.Flags().Bool("existing", false, "also process files already sitting in the inbox")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
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

	proc := newProcessor(cfg, store, logger, true)

	ctx := context.Background()
	if ready, issues := proc.CheckSystemReady(ctx); !ready {
		for _, issue := range issues {
			fmt.Printf("  - %s\n", issue)
		}
		return fmt.Errorf("system not ready")
	}

	folders, _ := cmd.Flags().GetStringArray("folder")
	if len(folders) == 0 {
		folders = cfg.InboxFolders
	}

	// Bounded handoff from the debouncer to the single processor loop.
	queue := make(chan string, cfg.Processing.BatchSize)
	debounce := time.Duration(cfg.Processing.DebounceSeconds * float64(time.Second))

	w := watcher.New(folders, debounce, nil, func(path string) {
		// Non-blocking: a full queue drops the event rather than wedging
		// the debouncer (and with it, Stop).
		select {
		case queue <- path:
		default:
			logger.Warn("processing queue full, dropping file", slog.String("path", path))
		}
	}, logger)

	if err := w.Start(); err != nil {
		return err
	}

	if existing, _ := cmd.Flags().GetBool("existing"); existing {
		go func() {
			for _, path := range w.ScanExisting() {
				queue <- path
			}
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	fmt.Printf("Organizing %d folder(s). Press Ctrl-C to stop.\n", len(folders))

	for {
		select {
		case path := <-queue:
			result := proc.ProcessFile(ctx, path)
			switch {
			case result.Success:
				fmt.Printf("Moved %s -> %s\n", result.Filename, result.Move.DestinationPath)
			case result.Skipped:
				fmt.Printf("Skipped %s\n", result.Filename)
			default:
				fmt.Printf("Failed %s: %s\n", result.Filename, result.ErrorMessage)
			}
		case <-stop:
			fmt.Println("\nStopping.")
			w.Stop()
			return nil
		}
	}
}
