package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Checkpointer persists the last fully processed block of a backfill.
type Checkpointer interface {
	Load(ctx context.Context) (uint64, bool, error)
	Save(ctx context.Context, block uint64) error
}

// CheckpointName identifies a backfill by chain and monitored token, so runs
// for different targets never resume from each other's progress.
func CheckpointName(chainID uint64, symbol string) string {
	return fmt.Sprintf("backfill:%d:%s", chainID, symbol)
}

type checkpointEntry struct {
	LastProcessedBlock uint64 `json:"last_processed_block"`
	UpdatedAt          string `json:"updated_at"`
}

// FileCheckpoint keeps named checkpoints in one JSON document, mirroring the
// backfill_state table.
type FileCheckpoint struct {
	mu   sync.Mutex
	path string
	name string
}

func NewFileCheckpoint(path, name string) *FileCheckpoint {
	return &FileCheckpoint{path: path, name: name}
}

func (c *FileCheckpoint) Load(context.Context) (uint64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.read()
	if err != nil {
		return 0, false, err
	}
	entry, ok := entries[c.name]
	return entry.LastProcessedBlock, ok, nil
}

func (c *FileCheckpoint) Save(_ context.Context, block uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.read()
	if err != nil {
		return err
	}
	entries[c.name] = checkpointEntry{
		LastProcessedBlock: block,
		UpdatedAt:          time.Now().UTC().Format(time.RFC3339Nano),
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint tmp: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}
	return nil
}

func (c *FileCheckpoint) read() (map[string]checkpointEntry, error) {
	entries := make(map[string]checkpointEntry)
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return entries, nil
		}
		return nil, fmt.Errorf("read checkpoint %s: %w", c.path, err)
	}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse checkpoint %s: %w", c.path, err)
	}
	return entries, nil
}
