package main

import (
	"context"
	"fmt"

	"kinderwise/internal/config"
	"kinderwise/internal/store"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply Postgres schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Storage.Backend != config.BackendPostgres {
			return fmt.Errorf("migrate needs the postgres backend (set DATABASE_URL)")
		}
		pg, err := store.OpenPostgres(context.Background(), cfg.Storage.DatabaseURL)
		if err != nil {
			return err
		}
		defer pg.Close()
		return store.Migrate(pg.DB(), logger)
	},
}
