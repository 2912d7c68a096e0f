package dex

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"buyScope/internal/model"
)

func (d *Decoder) decodeConstantProduct(log model.CanonicalLog, pool model.PoolDescriptor) (*model.SwapEvent, error) {
	token, err := d.monitoredToken(pool)
	if err != nil {
		return nil, err
	}
	side, ok := pool.TokenSide(token)
	if !ok {
		return nil, fmt.Errorf("monitored token %s not in pool %s", token, pool.Address)
	}

	event := d.constantProduct
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return nil, err
	}
	var indexed struct {
		Sender common.Address
		To     common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return nil, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return nil, err
	}
	if len(values) != 4 {
		return nil, fmt.Errorf("unexpected swap values: %d", len(values))
	}
	amounts, err := asBigInts(values)
	if err != nil {
		return nil, err
	}
	// amount0In, amount1In, amount0Out, amount1Out
	in, out := amounts[side], amounts[2+side]

	swap := newSwapEvent(log, pool)
	swap.IsBuy = out.Sign() > 0
	if swap.IsBuy {
		swap.Amount = out
	} else {
		swap.Amount = in
	}
	swap.Buyer = strings.ToLower(indexed.To.Hex())
	return swap, nil
}
