package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/filebutler-io/filebutler/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream detected files from the inbox folders",
	Long:  `Watches the configured (or given) folders and prints each file once it is fully written. Ctrl-C stops.`,
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().StringArray("folder", nil, "folder to watch (repeatable; overrides config)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, cleanup, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	folders, _ := cmd.Flags().GetStringArray("folder")
	if len(folders) == 0 {
		folders = cfg.InboxFolders
	}

	debounce := time.Duration(cfg.Processing.DebounceSeconds * float64(time.Second))
	w := watcher.New(folders, debounce, nil, func(path string) {
		fmt.Printf("ready: %s\n", path)
	}, logger)

	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()

	for _, existing := range w.ScanExisting() {
		fmt.Printf("existing: %s\n", existing)
	}

	fmt.Printf("Watching %d folder(s). Press Ctrl-C to stop.\n", len(folders))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	fmt.Println("\nStopping.")
	return nil
}
