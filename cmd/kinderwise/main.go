package main

import (
	"context"
	"fmt"
	"os"

	"kinderwise/internal/config"
	"kinderwise/internal/logging"
	"kinderwise/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	cfg        config.Config
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "kinderwise",
	Short: "kinderwise - content ingestion and publishing for parenting guidance",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration:\n%w", err)
		}

		logger, err = logging.New(cfg.Logging.Level)
		return err
	},
	SilenceUsage: true,
}

// openStore opens the configured backend. Postgres is migrated on open.
func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		pg, err := store.OpenPostgres(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(pg.DB(), logger); err != nil {
			pg.Close()
			return nil, err
		}
		return pg, nil
	default:
		if err := os.MkdirAll(cfg.Storage.BadgerPath, 0o755); err != nil {
			return nil, fmt.Errorf("create badger dir: %w", err)
		}
		return store.NewBadgerStore(cfg.Storage.BadgerPath)
	}
}

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default $KINDERWISE_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(scrapeCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(chatCmd)

	err := rootCmd.Execute()
	if logger != nil {
		_ = logger.Sync()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
