package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var (
	poolAddr  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	tokenAddr = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	swapTopic = common.HexToHash("0xd78ad95fa46c994b6551d0da85fc275fe613ce37657fb8d5e3d130840159d822")
	xferTopic = common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")
)

type fakeSource struct {
	chainID  int64
	latest   uint64
	failures int
	calls    int
	logs     []types.Log
}

func (f *fakeSource) GetChainID(context.Context) (*big.Int, error) {
	return big.NewInt(f.chainID), nil
}

func (f *fakeSource) LatestBlockNumber(context.Context) (uint64, error) {
	return f.latest, nil
}

func (f *fakeSource) FilterLogs(_ context.Context, from, to uint64, addresses []common.Address, _ []common.Hash) ([]types.Log, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, errors.New("rate limited")
	}
	var out []types.Log
	for _, log := range f.logs {
		if log.BlockNumber < from || log.BlockNumber > to {
			continue
		}
		for _, addr := range addresses {
			if log.Address == addr {
				out = append(out, log)
			}
		}
	}
	return out, nil
}

type memCheckpoint struct {
	block uint64
	ok    bool
}

func (m *memCheckpoint) Load(context.Context) (uint64, bool, error) { return m.block, m.ok, nil }
func (m *memCheckpoint) Save(_ context.Context, block uint64) error {
	m.block, m.ok = block, true
	return nil
}

func testConfig() RunConfig {
	return RunConfig{
		ChainID:       1,
		FromBlock:     100,
		PoolAddresses: []common.Address{poolAddr},
		SwapTopics:    []common.Hash{swapTopic},
		TokenAddress:  tokenAddr,
		TransferTopic: xferTopic,
		BatchSize:     10,
		MaxRetries:    2,
	}
}

func TestRunnerFeedsPayloads(t *testing.T) {
	source := &fakeSource{
		chainID:  1,
		latest:   119,
		failures: 1,
		logs: []types.Log{
			{Address: tokenAddr, Topics: []common.Hash{xferTopic}, BlockNumber: 105, Index: 3},
			{Address: poolAddr, Topics: []common.Hash{swapTopic}, BlockNumber: 105, Index: 2},
			{Address: tokenAddr, Topics: []common.Hash{xferTopic}, BlockNumber: 115, Index: 1},
		},
	}
	checkpoint := &memCheckpoint{}

	var batches []int
	handle := func(_ context.Context, _ BlockRange, payload []byte) error {
		var body struct {
			Logs []flatLog `json:"logs"`
		}
		if err := json.Unmarshal(payload, &body); err != nil {
			return err
		}
		batches = append(batches, len(body.Logs))
		if len(body.Logs) == 2 && body.Logs[0].LogIndex != "0x2" {
			t.Fatalf("logs not ordered: %+v", body.Logs)
		}
		return nil
	}

	if err := NewRunner(testConfig(), source, handle, checkpoint, nil).Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	// Blocks 110-119 have no swaps, so their transfers are not fetched.
	if len(batches) != 2 || batches[0] != 2 || batches[1] != 0 {
		t.Fatalf("unexpected batches: %v", batches)
	}
	if !checkpoint.ok || checkpoint.block != 119 {
		t.Fatalf("checkpoint not advanced: %+v", checkpoint)
	}
}

func TestRunnerResumesFromCheckpoint(t *testing.T) {
	source := &fakeSource{chainID: 1, latest: 119}
	checkpoint := &memCheckpoint{block: 109, ok: true}

	var ranges []BlockRange
	handle := func(_ context.Context, blockRange BlockRange, _ []byte) error {
		ranges = append(ranges, blockRange)
		return nil
	}
	if err := NewRunner(testConfig(), source, handle, checkpoint, nil).Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(ranges) != 1 || ranges[0].From != 110 {
		t.Fatalf("expected resume at 110, got %+v", ranges)
	}
}

func TestRunnerRejectsWrongChain(t *testing.T) {
	source := &fakeSource{chainID: 56, latest: 119}
	handle := func(context.Context, BlockRange, []byte) error { return nil }
	if err := NewRunner(testConfig(), source, handle, nil, nil).Run(context.Background()); err == nil {
		t.Fatalf("expected chain mismatch error")
	}
}

func TestFileCheckpoint(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "checkpoint.json")
	eth := NewFileCheckpoint(path, CheckpointName(1, "BUY"))
	base := NewFileCheckpoint(path, CheckpointName(8453, "BUY"))

	if _, ok, err := eth.Load(ctx); err != nil || ok {
		t.Fatalf("fresh checkpoint: ok=%v err=%v", ok, err)
	}
	if err := eth.Save(ctx, 777); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := base.Save(ctx, 42); err != nil {
		t.Fatalf("save: %v", err)
	}

	block, ok, err := eth.Load(ctx)
	if err != nil || !ok || block != 777 {
		t.Fatalf("expected 777, got %d ok=%v err=%v", block, ok, err)
	}
	block, ok, err = NewFileCheckpoint(path, CheckpointName(8453, "BUY")).Load(ctx)
	if err != nil || !ok || block != 42 {
		t.Fatalf("expected 42 for second chain, got %d ok=%v err=%v", block, ok, err)
	}
	if _, ok, _ := NewFileCheckpoint(path, CheckpointName(1, "OTHER")).Load(ctx); ok {
		t.Fatalf("a different token must not resume from this checkpoint")
	}
}

func TestFileCheckpointRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := NewFileCheckpoint(path, "x").Load(context.Background()); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestParseHelpers(t *testing.T) {
	addrs, err := ParseAddresses([]string{" 0x1111111111111111111111111111111111111111 ", "", "0x1111111111111111111111111111111111111111"})
	if err != nil || len(addrs) != 1 || addrs[0] != poolAddr {
		t.Fatalf("unexpected addresses: %v (%v)", addrs, err)
	}
	if _, err := ParseAddresses([]string{"0x12"}); err == nil {
		t.Fatalf("expected invalid address error")
	}
	topics, err := ParseTopic0([]string{swapTopic.Hex()})
	if err != nil || len(topics) != 1 || topics[0] != swapTopic {
		t.Fatalf("unexpected topics: %v (%v)", topics, err)
	}
	if _, err := ParseTopic0([]string{"0x1234"}); err == nil {
		t.Fatalf("expected invalid topic length error")
	}
}
