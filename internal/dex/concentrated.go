package dex

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"buyScope/internal/model"
)

func (d *Decoder) decodeConcentrated(log model.CanonicalLog, pool model.PoolDescriptor) (*model.SwapEvent, error) {
	token, err := d.monitoredToken(pool)
	if err != nil {
		return nil, err
	}
	side, ok := pool.TokenSide(token)
	if !ok {
		return nil, fmt.Errorf("monitored token %s not in pool %s", token, pool.Address)
	}

	event := d.concentrated
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return nil, err
	}
	var indexed struct {
		Sender    common.Address
		Recipient common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return nil, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return nil, err
	}
	if len(values) != 5 {
		return nil, fmt.Errorf("unexpected swap values: %d", len(values))
	}
	deltas, err := asBigInts(values[:2])
	if err != nil {
		return nil, err
	}
	// Negative deltas leave the pool.
	delta := deltas[side]

	swap := newSwapEvent(log, pool)
	swap.IsBuy = delta.Sign() < 0
	swap.Amount = new(big.Int).Abs(delta)
	swap.Buyer = strings.ToLower(indexed.Recipient.Hex())
	return swap, nil
}
