package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"buyScope/internal/model"
)

// Set BUYSCOPE_TEST_PG_DSN to run against a live database.
func testStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("BUYSCOPE_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("BUYSCOPE_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	store, err := NewStore(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return store
}

func TestPoolsRoundTrip(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	chainID := uint64(time.Now().UnixNano() % 1_000_000_000)
	pools := []model.PoolDescriptor{
		{Protocol: model.ProtocolConstantProduct, ChainID: chainID, ChainName: "Test", Address: "0x1111111111111111111111111111111111111111", Token0: "0xaaaa", Token1: "0xbbbb", Label: "A/B"},
		{Protocol: model.ProtocolVault, ChainID: chainID, ChainName: "Test", Address: "0xba12222222228d8ba445958a75a0704d566bf2c8", PoolID: "0x01", Tokens: []string{"0xaaaa", "0xbbbb"}, Label: "A/B 80/20"},
	}
	if err := store.UpsertPools(ctx, pools); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	loaded, err := store.LoadPools(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	var found int
	for _, pool := range loaded {
		if pool.ChainID == chainID {
			found++
		}
	}
	if found != len(pools) {
		t.Fatalf("expected %d pools for chain %d, got %d", len(pools), chainID, found)
	}
}

func TestCheckpoint(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	cp := NewCheckpoint(store, fmt.Sprintf("test-%d", time.Now().UnixNano()))

	if _, ok, err := cp.Load(ctx); err != nil || ok {
		t.Fatalf("fresh checkpoint: ok=%v err=%v", ok, err)
	}
	if err := cp.Save(ctx, 42); err != nil {
		t.Fatalf("save: %v", err)
	}
	block, ok, err := cp.Load(ctx)
	if err != nil || !ok || block != 42 {
		t.Fatalf("expected 42, got %d ok=%v err=%v", block, ok, err)
	}
}

func TestNewStoreRequiresDSN(t *testing.T) {
	if _, err := NewStore(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}
