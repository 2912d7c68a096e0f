package oracle

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"buyScope/internal/chain"
	"buyScope/internal/model"
)

// BalanceOracle returns a wallet's monitored-token balance at a block.
type BalanceOracle interface {
	BalanceAt(ctx context.Context, wallet string, chainID uint64, block uint64) (*big.Int, error)
}

// BalanceReader is the eth_call surface ChainBalances needs; *chain.Client
// satisfies it.
type BalanceReader interface {
	BalanceOf(ctx context.Context, token, holder common.Address, blockNumber *big.Int) (*big.Int, error)
}

// ChainBalances reads balances through one RPC reader per chain.
type ChainBalances struct {
	readers    map[uint64]BalanceReader
	token      model.Token
	maxRetries int
	backoff    time.Duration
}

// NewChainBalances builds a balance oracle for token.
func NewChainBalances(token model.Token, readers map[uint64]BalanceReader, maxRetries int, backoff time.Duration) *ChainBalances {
	return &ChainBalances{
		readers:    readers,
		token:      token,
		maxRetries: maxRetries,
		backoff:    backoff,
	}
}

func (b *ChainBalances) BalanceAt(ctx context.Context, wallet string, chainID uint64, block uint64) (*big.Int, error) {
	reader, ok := b.readers[chainID]
	if !ok {
		return nil, fmt.Errorf("chain %d: %w", chainID, ErrUnavailable)
	}
	tokenAddr, ok := b.token.AddressOn(chainID)
	if !ok {
		return nil, fmt.Errorf("token on chain %d: %w", chainID, ErrUnavailable)
	}
	if !common.IsHexAddress(wallet) {
		return nil, fmt.Errorf("invalid wallet %q", wallet)
	}

	var balance *big.Int
	err := chain.WithRetry(ctx, b.maxRetries, b.backoff, func(ctx context.Context) error {
		value, err := reader.BalanceOf(ctx, common.HexToAddress(tokenAddr), common.HexToAddress(wallet), new(big.Int).SetUint64(block))
		if err != nil {
			return err
		}
		balance = value
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("balanceOf %s at %d: %w", wallet, block, err)
	}
	return balance, nil
}
