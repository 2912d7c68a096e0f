package model

import (
	"fmt"
	"math/big"
)

// EventKey identifies a log across deliveries.
type EventKey struct {
	TxHash   string
	LogIndex uint64
}

func (k EventKey) String() string {
	return fmt.Sprintf("%s:%d", k.TxHash, k.LogIndex)
}

// TransferRecord is a token Transfer log of the monitored token.
type TransferRecord struct {
	Token    string   `json:"token"`
	TxHash   string   `json:"tx_hash"`
	From     string   `json:"from"`
	To       string   `json:"to"`
	Amount   *big.Int `json:"amount"`
	LogIndex uint64   `json:"log_index"`
}

// SwapEvent is a decoded pool swap. Amount is the unsigned magnitude of the
// monitored token moved by the swap.
type SwapEvent struct {
	Protocol    Protocol `json:"protocol"`
	ChainID     uint64   `json:"chain_id"`
	ChainName   string   `json:"chain_name"`
	PoolLabel   string   `json:"pool_label"`
	PoolAddress string   `json:"pool_address"`
	TxURL       string   `json:"tx_url,omitempty"`
	TxHash      string   `json:"tx_hash"`
	LogIndex    uint64   `json:"log_index"`
	BlockNumber uint64   `json:"block_number"`
	Amount      *big.Int `json:"amount"`
	IsBuy       bool     `json:"is_buy"`
	Buyer       string   `json:"buyer,omitempty"`
	Removed     bool     `json:"removed"`
}

// Key returns the dedupe identity of the swap.
func (s SwapEvent) Key() EventKey {
	return EventKey{TxHash: s.TxHash, LogIndex: s.LogIndex}
}
