package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "buyscope",
		Short:        "DEX buy alert pipeline",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	processCmd := &cobra.Command{
		Use:   "process [payload files...]",
		Short: "Run webhook payloads through the pipeline (stdin when no files)",
		RunE:  runProcess,
	}
	addPipelineFlags(processCmd)
	processCmd.Flags().Bool("ndjson", false, "treat input as one payload per line")
	root.AddCommand(processCmd)

	backfillCmd := &cobra.Command{
		Use:   "backfill",
		Short: "Replay historical pool logs from an RPC through the pipeline",
		RunE:  runBackfill,
	}
	addPipelineFlags(backfillCmd)
	backfillCmd.Flags().Uint64("chain", 0, "chain id to backfill (defaults to the only configured rpc)")
	backfillCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	backfillCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	backfillCmd.Flags().Uint64("batch-size", 2000, "blocks per batch")
	backfillCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	backfillCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	backfillCmd.Flags().String("checkpoint-store", "file", "checkpoint store (file, postgres)")
	root.AddCommand(backfillCmd)

	root.AddCommand(newPoolsCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addPipelineFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("pools", "", "pool registry YAML file (falls back to postgres when empty)")
	flags.String("pg-dsn", "", "Postgres DSN")
	flags.String("token-symbol", "TOKEN", "monitored token symbol")
	flags.Int("token-decimals", 18, "monitored token decimals")
	flags.StringToString("token-address", nil, "monitored token contract per chain (chainID=address)")
	flags.Float64("threshold", 0, "minimum buy size in whole tokens")
	flags.Float64("whale-threshold", 0, "buy size flagged as whale, 0 disables")
	flags.String("dedupe-backend", "memory", "dedupe backend (memory, redis)")
	flags.Int("dedupe-capacity", 10000, "in-memory dedupe capacity")
	flags.Duration("dedupe-ttl", 24*time.Hour, "dedupe entry lifetime")
	flags.String("redis-addr", "localhost:6379", "redis address")
	flags.String("redis-password", "", "redis password")
	flags.Int("redis-db", 0, "redis database")
	flags.String("price-source", "static", "price source (static, redis, none)")
	flags.Float64("price", 0, "static USD price per token")
	flags.Duration("price-max-age", 10*time.Minute, "maximum age of a redis price")
	flags.StringToString("rpc", nil, "RPC URL per chain (chainID=url)")
	flags.Duration("enrich-timeout", 5*time.Second, "timeout per enrichment call")
	flags.Int("enrich-concurrency", 8, "concurrent enrichment calls")
	flags.Int("decode-workers", 4, "concurrent log decoders")
	flags.Int("max-retries", 3, "maximum RPC retry attempts")
	flags.Duration("retry-backoff", 500*time.Millisecond, "initial RPC retry backoff")
	flags.String("out", "-", "alert JSONL output path, - for stdout")
	flags.String("notify-webhook", "", "URL receiving alert batches")
	flags.String("metrics-addr", "", "address serving /metrics, empty disables")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
