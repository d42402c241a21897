package main

import (
	"github.com/spf13/cobra"

	"github.com/Nixie-Tech-LLC/mesophy/internal/db"
)

var migrationsPath string

func init() {
	migrateCmd.Flags().StringVar(&migrationsPath, "path", "", "directory of *.up.sql files (defaults to MIGRATIONS_PATH)")
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the SQL migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, closer, err := bootstrap()
		if err != nil {
			return err
		}
		defer closer.Close()
		defer db.DB.Close()

		path := migrationsPath
		if path == "" {
			path = cfg.MigrationsPath
		}
		return db.RunMigrations(db.DB, path)
	},
}
