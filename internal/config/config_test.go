package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DedupeBackend != "memory" || cfg.DedupeCapacity != 10000 || cfg.DedupeTTL != 24*time.Hour {
		t.Fatalf("unexpected dedupe defaults: %+v", cfg)
	}
	if cfg.Token.Decimals != 18 || cfg.Out != "-" || cfg.LogLevel != "info" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadFlagsEnvAndFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	file := filepath.Join(dir, "buyscope.yaml")
	content := []byte("token-symbol: buy\nthreshold: 2.5\ntoken-address:\n  \"1\": \"0xAAAA\"\n  \"56\": \"0xBBBB\"\n")
	if err := os.WriteFile(file, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("BUYSCOPE_WHALE_THRESHOLD", "1000")
	t.Setenv("BUYSCOPE_RPC", "1=https://eth.example,56=https://bsc.example")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("token-decimals", 18, "")
	if err := flags.Parse([]string{"--token-decimals=9"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(file, flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Token.Symbol != "BUY" || cfg.Token.Decimals != 9 {
		t.Fatalf("unexpected token: %+v", cfg.Token)
	}
	if cfg.Threshold != 2.5 || cfg.WhaleThreshold != 1000 {
		t.Fatalf("unexpected thresholds: %v %v", cfg.Threshold, cfg.WhaleThreshold)
	}
	if addr, ok := cfg.Token.AddressOn(56); !ok || addr != "0xbbbb" {
		t.Fatalf("unexpected token address on 56: %q", addr)
	}
	if cfg.RPC[1] != "https://eth.example" || cfg.RPC[56] != "https://bsc.example" {
		t.Fatalf("unexpected rpc map: %v", cfg.RPC)
	}
}

func TestValidate(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("BUYSCOPE_DEDUPE_BACKEND", "memcached")
	if _, err := Load("", nil); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestParseChainMap(t *testing.T) {
	got, err := ParseChainMap(parseStringMap("1=0xabc, 8453=0xdef"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got[1] != "0xabc" || got[8453] != "0xdef" {
		t.Fatalf("unexpected map: %v", got)
	}
	if _, err := ParseChainMap(map[string]string{"eth": "0xabc"}); err == nil {
		t.Fatalf("expected error for non-numeric chain id")
	}
}

func TestLoadBackfillPicksOnlyChain(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("BUYSCOPE_RPC", "8453=https://base.example")
	cfg, err := LoadBackfill("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ChainID != 8453 || cfg.BatchSize != 2000 || !cfg.CheckpointEnabled || cfg.CheckpointStore != "file" {
		t.Fatalf("unexpected backfill config: %+v", cfg)
	}
	url, err := cfg.RPCURL()
	if err != nil || url != "https://base.example" {
		t.Fatalf("unexpected rpc url %q (%v)", url, err)
	}
}

func TestLoadBackfillCheckpointStoreFromEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("BUYSCOPE_RPC", "1=https://eth.example")
	t.Setenv("BUYSCOPE_CHECKPOINT_STORE", "Postgres")
	t.Setenv("BUYSCOPE_PG_DSN", "postgres://localhost/buyscope")
	cfg, err := LoadBackfill("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.CheckpointStore != "postgres" {
		t.Fatalf("expected postgres checkpoint store, got %q", cfg.CheckpointStore)
	}

	t.Setenv("BUYSCOPE_PG_DSN", "")
	if _, err := LoadBackfill("", nil); err == nil {
		t.Fatalf("expected error for postgres store without dsn")
	}

	t.Setenv("BUYSCOPE_CHECKPOINT_STORE", "s3")
	if _, err := LoadBackfill("", nil); err == nil {
		t.Fatalf("expected error for unknown checkpoint store")
	}
}

func TestLoadDotEnvMissing(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("missing .env should be ignored: %v", err)
	}
}
