package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"buyScope/internal/config"
	"buyScope/internal/dex"
	"buyScope/internal/indexer"
	"buyScope/internal/storage/postgres"
)

func runBackfill(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadBackfill(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	rpcURL, err := cfg.RPCURL()
	if err != nil {
		return err
	}
	tokenAddr, ok := cfg.Token.AddressOn(cfg.ChainID)
	if !ok {
		return fmt.Errorf("no token address for chain %d", cfg.ChainID)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg.Config, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	poolAddrs, err := indexer.ParseAddresses(a.registry.Addresses(cfg.ChainID))
	if err != nil {
		return err
	}
	if len(poolAddrs) == 0 {
		return fmt.Errorf("no registry pools on chain %d", cfg.ChainID)
	}
	swapTopics, err := indexer.ParseTopic0([]string{
		dex.TopicConstantProductSwap,
		dex.TopicConcentratedSwap,
		dex.TopicVaultSwap,
	})
	if err != nil {
		return err
	}

	client, err := a.client(ctx, cfg.ChainID, rpcURL)
	if err != nil {
		return err
	}

	var checkpoint indexer.Checkpointer
	switch {
	case !cfg.CheckpointEnabled:
	case cfg.CheckpointStore == "postgres":
		store, err := postgres.NewStore(ctx, cfg.PgDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		checkpoint = postgres.NewCheckpoint(store, indexer.CheckpointName(cfg.ChainID, cfg.Token.Symbol))
	default:
		checkpoint = indexer.NewFileCheckpoint(cfg.Checkpoint, indexer.CheckpointName(cfg.ChainID, cfg.Token.Symbol))
	}

	handle := func(ctx context.Context, blockRange indexer.BlockRange, payload []byte) error {
		alerts, err := a.handle(ctx, payload)
		if err != nil {
			return err
		}
		if alerts > 0 {
			logger.Info("alerts emitted", zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To), zap.Int("alerts", alerts))
		}
		return nil
	}

	runner := indexer.NewRunner(indexer.RunConfig{
		ChainID:       cfg.ChainID,
		FromBlock:     cfg.FromBlock,
		ToBlock:       cfg.ToBlock,
		PoolAddresses: poolAddrs,
		SwapTopics:    swapTopics,
		TokenAddress:  common.HexToAddress(tokenAddr),
		TransferTopic: common.HexToHash(dex.TopicTransfer),
		BatchSize:     cfg.BatchSize,
		MaxRetries:    cfg.MaxRetries,
		RetryBackoff:  cfg.RetryBackoff,
	}, client, handle, checkpoint, logger)

	logger.Info("backfill start",
		zap.Uint64("chain", cfg.ChainID),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Int("pools", len(poolAddrs)),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint_store", cfg.CheckpointStore),
	)

	return runner.Run(ctx)
}
