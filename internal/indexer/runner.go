package indexer

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"buyScope/internal/chain"
)

// LogSource is the RPC surface the runner reads from; *chain.Client
// implements it.
type LogSource interface {
	GetChainID(ctx context.Context) (*big.Int, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
}

// PayloadHandler consumes one batch encoded as a flat webhook payload.
type PayloadHandler func(ctx context.Context, blockRange BlockRange, payload []byte) error

// RunConfig holds runtime settings for a backfill.
type RunConfig struct {
	ChainID       uint64
	FromBlock     uint64
	ToBlock       uint64
	PoolAddresses []common.Address
	SwapTopics    []common.Hash
	TokenAddress  common.Address
	TransferTopic common.Hash
	BatchSize     uint64
	MaxRetries    int
	RetryBackoff  time.Duration
}

// Runner replays historical pool and token logs through a handler.
type Runner struct {
	cfg        RunConfig
	chain      LogSource
	handle     PayloadHandler
	logger     *zap.Logger
	checkpoint Checkpointer
}

// NewRunner builds a Runner with its dependencies. A nil checkpoint disables
// resuming.
func NewRunner(cfg RunConfig, source LogSource, handle PayloadHandler, checkpoint Checkpointer, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		chain:      source,
		handle:     handle,
		logger:     logger,
		checkpoint: checkpoint,
	}
}

// Run executes the backfill loop.
func (r *Runner) Run(ctx context.Context) error {
	if r.chain == nil {
		return fmt.Errorf("chain client is nil")
	}
	if r.handle == nil {
		return fmt.Errorf("payload handler is nil")
	}
	if r.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	if len(r.cfg.PoolAddresses) == 0 {
		return fmt.Errorf("at least one pool address is required")
	}

	chainID, err := r.chain.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}
	if r.cfg.ChainID != 0 && chainID.Uint64() != r.cfg.ChainID {
		return fmt.Errorf("rpc serves chain %s, expected %d", chainID, r.cfg.ChainID)
	}

	from := r.cfg.FromBlock
	to := r.cfg.ToBlock
	if to == 0 {
		latest, err := r.chain.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
		to = latest
	}

	if r.checkpoint != nil {
		last, ok, err := r.checkpoint.Load(ctx)
		if err != nil {
			return err
		}
		if ok && last >= from {
			from = last + 1
			r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", last), zap.Uint64("from", from))
		}
	}

	if from > to {
		r.logger.Info("nothing to sync", zap.Uint64("from", from), zap.Uint64("to", to))
		return nil
	}

	ranges, err := SplitRange(from, to, r.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		r.logger.Info("fetch logs", zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))

		logs, err := r.fetch(ctx, blockRange)
		if err != nil {
			return err
		}

		payload, err := BuildFlatPayload(logs)
		if err != nil {
			return err
		}
		if err := r.handle(ctx, blockRange, payload); err != nil {
			return fmt.Errorf("handle blocks %s: %w", blockRange, err)
		}

		if r.checkpoint != nil {
			if err := r.checkpoint.Save(ctx, blockRange.To); err != nil {
				return err
			}
		}

		r.logger.Info("batch complete", zap.Int("logs", len(logs)), zap.Stringer("blocks", blockRange), zap.Uint64("count", blockRange.Blocks()))
	}

	return nil
}

// fetch returns the swap logs of the registry pools and the Transfer logs
// of the token for one range.
func (r *Runner) fetch(ctx context.Context, blockRange BlockRange) ([]types.Log, error) {
	swaps, err := r.filterLogsWithRetry(ctx, blockRange, r.cfg.PoolAddresses, r.cfg.SwapTopics)
	if err != nil {
		return nil, fmt.Errorf("filter swap logs: %w", err)
	}
	if r.cfg.TokenAddress == (common.Address{}) || len(swaps) == 0 {
		return swaps, nil
	}
	transfers, err := r.filterLogsWithRetry(ctx, blockRange, []common.Address{r.cfg.TokenAddress}, []common.Hash{r.cfg.TransferTopic})
	if err != nil {
		return nil, fmt.Errorf("filter transfer logs: %w", err)
	}
	return append(swaps, transfers...), nil
}

func (r *Runner) filterLogsWithRetry(ctx context.Context, blockRange BlockRange, addresses []common.Address, topics []common.Hash) ([]types.Log, error) {
	var logs []types.Log
	err := chain.WithRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		logs, err = r.chain.FilterLogs(ctx, blockRange.From, blockRange.To, addresses, topics)
		if err != nil {
			r.logger.Warn("filter logs failed", zap.Error(err), zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))
		}
		return err
	})
	return logs, err
}
