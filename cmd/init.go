package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/filebutler-io/filebutler/internal/config"
	"github.com/filebutler-io/filebutler/internal/db"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration and persistence",
	Long:  `Creates the config file (walking you through the choices on a terminal) and initializes the database.`,
	RunE:  runInit,
}

func init() {
	initCmd.Flags().String("db-path", "", "override the database file location")
	initCmd.Flags().Bool("defaults", false, "skip the wizard and write default settings")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	dbPath, _ := cmd.Flags().GetString("db-path")
	useDefaults, _ := cmd.Flags().GetBool("defaults")

	if _, err := os.Stat(cfgFile); err == nil {
		fmt.Printf("Config already exists at %s\n", cfgFile)
	} else {
		var cfg *config.Config
		var err error
		if useDefaults {
			cfg = config.DefaultConfig()
		} else {
			cfg, err = config.RunWizard()
			if err != nil {
				return err
			}
		}
		if dbPath != "" {
			cfg.Database.Path = dbPath
		}
		if err := cfg.Save(cfgFile); err != nil {
			return err
		}
		fmt.Printf("Wrote config to %s\n", cfgFile)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}

	store, err := db.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer store.Close()

	fmt.Printf("Database ready at %s\n", cfg.Database.Path)
	return nil
}
