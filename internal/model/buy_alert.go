package model

// BuyAlert is a classified purchase handed to the notifier.
type BuyAlert struct {
	Amount        string   `json:"amount"`
	AmountDisplay string   `json:"amount_display"`
	AmountValue   float64  `json:"amount_value"`
	ChainName     string   `json:"chain_name"`
	Protocol      string   `json:"protocol"`
	PoolLabel     string   `json:"pool_label"`
	TxHash        string   `json:"tx_hash"`
	TxURL         string   `json:"tx_url,omitempty"`
	BlockNumber   uint64   `json:"block_number"`
	LogIndex      uint64   `json:"log_index"`
	Buyer         string   `json:"buyer,omitempty"`
	BuyerShort    string   `json:"buyer_short,omitempty"`
	USDValue      *float64 `json:"usd_value,omitempty"`
	BalanceBefore *string  `json:"balance_before,omitempty"`
	BalanceAfter  *string  `json:"balance_after,omitempty"`
	NewHolder     *bool    `json:"new_holder,omitempty"`
	Whale         bool     `json:"whale"`
}
