package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"routectl.dev/internal/logging"
	"routectl.dev/internal/record"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "apply the record store schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate(cmd)
	},
}

func runMigrate(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.Configure(logging.Config{Level: cfg.Service.LogLevel, Format: cfg.Service.LogFormat, Service: cfg.Service.Name, Version: cfg.Service.Version})
	logger := logging.ServiceLogger(cfg.Service.Name, cfg.Service.Version)

	ctx := context.Background()
	store, err := record.NewPostgresStore(ctx, cfg.Record.DSN, cfg.Record.MaxConns)
	if err != nil {
		return fmt.Errorf("connect record store: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	logger.Info("schema migration applied")
	return nil
}
