package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/filebutler-io/filebutler/internal/extract"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze PATH",
	Short: "Extract and display a file's content and metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().Bool("show-content", false, "print the full extracted content")
	analyzeCmd.Flags().Int("preview-length", extract.PreviewLength, "preview length in characters")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, cleanup, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	showContent, _ := cmd.Flags().GetBool("show-content")
	previewLength, _ := cmd.Flags().GetInt("preview-length")

	result := newAnalyzer(cfg, logger).Analyze(args[0])
	if !result.Success {
		return fmt.Errorf("analysis failed: %s", result.ErrorMessage)
	}

	meta := result.Metadata
	fmt.Printf("File:      %s\n", meta.Filename)
	fmt.Printf("Path:      %s\n", meta.Path)
	fmt.Printf("Extension: %s\n", meta.Extension)
	fmt.Printf("Size:      %s\n", formatSize(meta.SizeBytes))
	fmt.Printf("Created:   %s\n", meta.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Printf("Modified:  %s\n", meta.ModifiedAt.Format("2006-01-02 15:04"))
	fmt.Printf("MD5:       %s\n", meta.HashMD5)
	fmt.Printf("Words:     %d\n", result.WordCount)
	fmt.Printf("Lines:     %d\n", result.LineCount)
	fmt.Println()

	if showContent {
		fmt.Println(result.Content)
	} else {
		fmt.Println(extract.Preview(result.Content, previewLength))
	}
	return nil
}
