// Command docctl is the operator tool for the document control server:
// schema setup, account provisioning and version arithmetic checks.
package main

import (
	"fmt"
	"os"

	"docctl-server/internal/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	logger *zap.Logger
	cfg    *config.Config

	sqlitePath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "docctl",
	Short: "Administer the document control server",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}
		if sqlitePath == "" {
			sqlitePath = cfg.SQL.Path
		}

		if verbose {
			logger, err = zap.NewDevelopment()
		} else {
			logger, err = zap.NewProduction()
		}
		return err
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&sqlitePath, "sqlite", "", "SQLite database path (default from SQL_PATH)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")

	rootCmd.AddCommand(migrateCmd, userCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if logger != nil {
		logger.Sync()
	}
}
