package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// BackfillConfig holds configuration for the backfill command.
type BackfillConfig struct {
	Config

	ChainID           uint64
	FromBlock         uint64
	ToBlock           uint64
	BatchSize         uint64
	Checkpoint        string
	CheckpointEnabled bool
	// CheckpointStore is "file" or "postgres".
	CheckpointStore   string
}

// LoadBackfill merges config sources into BackfillConfig.
func LoadBackfill(cfgFile string, flags *pflag.FlagSet) (BackfillConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return BackfillConfig{}, err
	}
	v.SetDefault("batch-size", uint64(2000))
	v.SetDefault("checkpoint", "./data/checkpoint.json")
	v.SetDefault("checkpoint-enabled", true)
	v.SetDefault("checkpoint-store", "file")

	base, err := fromViper(v)
	if err != nil {
		return BackfillConfig{}, err
	}
	cfg := BackfillConfig{
		Config:            base,
		ChainID:           v.GetUint64("chain"),
		FromBlock:         v.GetUint64("from"),
		ToBlock:           v.GetUint64("to"),
		BatchSize:         v.GetUint64("batch-size"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		CheckpointStore:   strings.ToLower(strings.TrimSpace(v.GetString("checkpoint-store"))),
	}
	switch cfg.CheckpointStore {
	case "file", "postgres":
	default:
		return BackfillConfig{}, fmt.Errorf("unsupported checkpoint store %q", cfg.CheckpointStore)
	}
	if cfg.CheckpointEnabled && cfg.CheckpointStore == "postgres" && cfg.PgDSN == "" {
		return BackfillConfig{}, fmt.Errorf("checkpoint-store postgres requires pg-dsn")
	}
	if cfg.ChainID == 0 && len(cfg.RPC) == 1 {
		for id := range cfg.RPC {
			cfg.ChainID = id
		}
	}
	return cfg, nil
}

// RPCURL returns the endpoint of the backfilled chain.
func (c BackfillConfig) RPCURL() (string, error) {
	url, ok := c.RPC[c.ChainID]
	if !ok || url == "" {
		return "", fmt.Errorf("no rpc configured for chain %d", c.ChainID)
	}
	return url, nil
}
