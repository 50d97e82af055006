package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"financas/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the SQLite schema to the latest version.

The server applies migrations on start as well; this command lets you run
them ahead of a deploy or check where a database stands.`,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "Show the current schema version without applying changes")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	status, _ := cmd.Flags().GetBool("status")
	path := dbPath()

	if status {
		version, dirty, err := storage.MigrationVersion(path)
		if err != nil {
			return err
		}
		state := "clean"
		if dirty {
			state = errorStyle.Render("dirty")
		}
		fmt.Println(formatTitle("Database migration status"))
		fmt.Printf("%s %s\n", subtleStyle.Render("database:"), path)
		fmt.Printf("%s %d (%s)\n", subtleStyle.Render("version: "), version, state)
		return nil
	}

	slog.Info("Running database migrations", "database", path)
	store, err := openStore()
	if err != nil {
		return err
	}
	closeStore(store)

	version, _, err := storage.MigrationVersion(path)
	if err != nil {
		return err
	}
	fmt.Println(formatSuccess(fmt.Sprintf("Database at schema version %d", version)))
	return nil
}
