package cmd

import (
	"github.com/spf13/cobra"

	"github.com/filebutler-io/filebutler/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "filebutler",
	Short: "AI-assisted local file organizer and semantic search",
	Long: `filebutler watches your inbox folders, asks a locally hosted LLM where
each new document belongs, confirms the suggestion with you, and moves the
file into an organized tree. It can also bulk-index directories so that
natural-language queries return semantically ranked files.

All analysis happens on this machine; no file content leaves it.`,
	SilenceUsage: true,
}

// Execute runs the CLI. Errors map to exit code 1.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath(), "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
