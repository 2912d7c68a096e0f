package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"buyScope/internal/config"
	"buyScope/internal/registry"
	"buyScope/internal/storage/postgres"
)

func newPoolsCmd() *cobra.Command {
	poolsCmd := &cobra.Command{
		Use:   "pools",
		Short: "Inspect and import the pool registry",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Print the registry as YAML",
		RunE:  runPoolsList,
	}
	listCmd.Flags().String("pools", "", "pool registry YAML file (falls back to postgres when empty)")
	listCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	listCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Upsert the YAML registry into Postgres",
		RunE:  runPoolsImport,
	}
	importCmd.Flags().String("pools", "", "pool registry YAML file")
	importCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	importCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	poolsCmd.AddCommand(listCmd, importCmd)
	return poolsCmd
}

func runPoolsList(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, err := loadRegistry(ctx, cfg)
	if err != nil {
		return err
	}

	encoder := yaml.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent(2)
	if err := encoder.Encode(reg.File()); err != nil {
		return fmt.Errorf("encode pools: %w", err)
	}
	return encoder.Close()
}

func runPoolsImport(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Pools == "" {
		return fmt.Errorf("pools file is required")
	}
	reg, err := registry.LoadFile(cfg.Pools)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := postgres.NewStore(ctx, cfg.PgDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := store.UpsertPools(ctx, reg.Pools()); err != nil {
		return fmt.Errorf("upsert pools: %w", err)
	}

	logger.Info("pools imported", zap.String("file", cfg.Pools), zap.Int("pools", len(reg.Pools())))
	return nil
}
