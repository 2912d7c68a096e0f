package model

import "strings"

// Token describes the monitored token and its contract on each chain.
type Token struct {
	Symbol    string
	Decimals  uint8
	Addresses map[uint64]string
}

// AddressOn returns the lowercase token contract on a chain.
func (t Token) AddressOn(chainID uint64) (string, bool) {
	addr, ok := t.Addresses[chainID]
	if !ok || addr == "" {
		return "", false
	}
	return strings.ToLower(addr), true
}
