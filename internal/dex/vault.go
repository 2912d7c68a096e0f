package dex

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"buyScope/internal/model"
)

func (d *Decoder) decodeVault(log model.CanonicalLog, pool model.PoolDescriptor) (*model.SwapEvent, error) {
	token, err := d.monitoredToken(pool)
	if err != nil {
		return nil, err
	}

	event := d.vault
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return nil, err
	}
	var indexed struct {
		PoolId   [32]byte
		TokenIn  common.Address
		TokenOut common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return nil, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return nil, err
	}
	if len(values) != 2 {
		return nil, fmt.Errorf("unexpected swap values: %d", len(values))
	}
	amounts, err := asBigInts(values)
	if err != nil {
		return nil, err
	}

	swap := newSwapEvent(log, pool)
	swap.IsBuy = strings.EqualFold(indexed.TokenOut.Hex(), token)
	swap.Amount = amounts[1]
	// The vault event has no recipient; the transfer correlator refines this.
	swap.Buyer = log.TxFrom
	return swap, nil
}
