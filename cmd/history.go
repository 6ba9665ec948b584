package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/filebutler-io/filebutler/internal/mover"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent file moves",
	RunE:  runHistory,
}

var undoCmd = &cobra.Command{
	Use:   "undo ACTION_ID",
	Short: "Undo a recorded move",
	Args:  cobra.ExactArgs(1),
	RunE:  runUndo,
}

func init() {
	historyCmd.Flags().Int("limit", 10, "number of actions to show")
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(undoCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
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

	limit, _ := cmd.Flags().GetInt("limit")
	actions, err := mover.New(cfg.OrganizedBasePath, store, logger).RecentMoves(limit)
	if err != nil {
		return err
	}

	if len(actions) == 0 {
		fmt.Println("No moves recorded yet.")
		return nil
	}

	for _, action := range actions {
		from, _ := action.BeforeState["path"].(string)
		to, _ := action.AfterState["path"].(string)
		marker := " "
		if action.Undone {
			marker = "u"
		}
		fmt.Printf("%4d %s %s  %s -> %s\n",
			action.ID, marker, action.Timestamp.Format("2006-01-02 15:04"), from, to)
	}
	return nil
}

func runUndo(cmd *cobra.Command, args []string) error {
	actionID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid action id %q", args[0])
	}

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

	result, err := mover.New(cfg.OrganizedBasePath, store, logger).UndoMove(actionID)
	if err != nil {
		return err
	}

	fmt.Printf("Restored to %s\n", result.DestinationPath)
	return nil
}
