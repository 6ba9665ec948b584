package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/filebutler-io/filebutler/internal/scanner"
)

var scanCmd = &cobra.Command{
	Use:   "scan PATH",
	Short: "Show the folder tree the classifier would see",
	Args:  cobra.ExactArgs(1),
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().Bool("recursive", true, "descend to the configured scan depth (otherwise only the first level)")
	scanCmd.Flags().Bool("flat", false, "print a flat path list instead of a tree")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
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
	flat, _ := cmd.Flags().GetBool("flat")

	depth := cfg.FolderScanDepth
	if !recursive {
		depth = 1
	}

	result := scanner.New(depth, nil, logger).Scan([]string{args[0]})
	if len(result.Roots) == 0 {
		return fmt.Errorf("nothing to scan at %s", args[0])
	}

	if flat {
		for _, path := range result.AllPaths() {
			fmt.Println(path)
		}
	} else {
		fmt.Println(result.TreeString())
	}
	fmt.Printf("\n%d folder(s), max depth %d\n", result.TotalFolders, result.MaxDepthReached)
	return nil
}
