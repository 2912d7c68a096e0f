package model

// CanonicalLog is a provider-independent event log. Hex fields are lowercase.
type CanonicalLog struct {
	Address     string   `json:"address"`
	Topics      []string `json:"topics"`
	Data        string   `json:"data"`
	TxHash      string   `json:"tx_hash"`
	TxFrom      string   `json:"tx_from,omitempty"`
	LogIndex    uint64   `json:"log_index"`
	BlockNumber uint64   `json:"block_number"`
	Removed     bool     `json:"removed"`
}

// Topic0 returns the event signature hash, or "" for anonymous logs.
func (l CanonicalLog) Topic0() string {
	if len(l.Topics) == 0 {
		return ""
	}
	return l.Topics[0]
}
