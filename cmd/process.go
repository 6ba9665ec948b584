package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var processCmd = &cobra.Command{
	Use:   "process PATH",
	Short: "Run one file through the organize pipeline",
	Args:  cobra.ExactArgs(1),
	RunE:  runProcess,
}

func init() {
	processCmd.Flags().Bool("yes", false, "accept the suggestion without asking")
	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
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

	autoAccept, _ := cmd.Flags().GetBool("yes")
	proc := newProcessor(cfg, store, logger, !autoAccept)

	ctx := context.Background()
	if ready, issues := proc.CheckSystemReady(ctx); !ready {
		for _, issue := range issues {
			fmt.Printf("  - %s\n", issue)
		}
		return fmt.Errorf("system not ready")
	}

	result := proc.ProcessFile(ctx, args[0])
	switch {
	case result.Success:
		fmt.Printf("Moved to %s\n", result.Move.DestinationPath)
		return nil
	case result.Skipped:
		fmt.Println("Skipped.")
		return nil
	default:
		return fmt.Errorf("%s", result.ErrorMessage)
	}
}
