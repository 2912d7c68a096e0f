package model

import "strings"

// PoolDescriptor is a monitored pool loaded from the registry.
type PoolDescriptor struct {
	Protocol  Protocol `json:"protocol" yaml:"protocol"`
	ChainID   uint64   `json:"chain_id" yaml:"chain_id"`
	ChainName string   `json:"chain_name" yaml:"chain_name"`
	Explorer  string   `json:"explorer,omitempty" yaml:"explorer,omitempty"`
	Address   string   `json:"address" yaml:"address"`
	Token0    string   `json:"token0,omitempty" yaml:"token0,omitempty"`
	Token1    string   `json:"token1,omitempty" yaml:"token1,omitempty"`
	Fee       uint32   `json:"fee,omitempty" yaml:"fee,omitempty"`
	PoolID    string   `json:"pool_id,omitempty" yaml:"pool_id,omitempty"`
	Tokens    []string `json:"tokens,omitempty" yaml:"tokens,omitempty"`
	Label     string   `json:"label" yaml:"label"`
}

// TokenSide returns 0 or 1 when token is Token0 or Token1 of the pool.
func (p PoolDescriptor) TokenSide(token string) (int, bool) {
	token = strings.ToLower(token)
	switch {
	case token == "":
		return 0, false
	case strings.ToLower(p.Token0) == token:
		return 0, true
	case strings.ToLower(p.Token1) == token:
		return 1, true
	default:
		return 0, false
	}
}

// TxURL builds the explorer link for a transaction, or "" without an explorer.
func (p PoolDescriptor) TxURL(txHash string) string {
	if p.Explorer == "" || txHash == "" {
		return ""
	}
	return strings.TrimRight(p.Explorer, "/") + "/tx/" + txHash
}
