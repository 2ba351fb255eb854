package main

import (
	"fmt"

	"docctl-server/internal/database"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// migrateCmd creates the SQLite schema
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the SQLite schema",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	db, err := database.Open(ctx, sqlitePath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	logger.Info("schema migrated", zap.String("path", sqlitePath))
	fmt.Fprintf(cmd.OutOrStdout(), "schema ready at %s\n", sqlitePath)
	return nil
}
