// Package correlate attributes purchases to the wallet that received the
// tokens, following Transfer logs through router and aggregator hops.
package correlate

import (
	"go.uber.org/zap"

	"buyScope/internal/model"
)

// Rule names the attribution rule that matched a swap.
type Rule int

const (
	RuleNone Rule = iota
	// RulePoolHop is a transfer sent by the pool itself after the swap.
	RulePoolHop
	// RuleLastHop is the last transfer of the transaction after the swap.
	RuleLastHop
	// RuleAnyLater is any transfer after the swap.
	RuleAnyLater
)

func (r Rule) String() string {
	switch r {
	case RulePoolHop:
		return "pool_hop"
	case RuleLastHop:
		return "last_hop"
	case RuleAnyLater:
		return "any_later"
	default:
		return "none"
	}
}

// Correlator attaches buyer addresses to purchase swaps.
type Correlator struct {
	logger *zap.Logger
}

// New builds a Correlator.
func New(logger *zap.Logger) *Correlator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Correlator{logger: logger}
}

// Attribute sets Buyer on every purchase swap a transfer can be matched to.
// Swaps without a match keep the buyer the decoder assigned, if any.
func (c *Correlator) Attribute(swaps []*model.SwapEvent, transfers []model.TransferRecord) {
	byTx := make(map[string][]model.TransferRecord)
	for _, transfer := range transfers {
		byTx[transfer.TxHash] = append(byTx[transfer.TxHash], transfer)
	}

	for _, swap := range swaps {
		if swap == nil || !swap.IsBuy {
			continue
		}
		recipient, rule := Resolve(swap, byTx[swap.TxHash])
		if rule == RuleNone {
			c.logger.Debug("no transfer matched swap",
				zap.String("tx", swap.TxHash),
				zap.Uint64("log_index", swap.LogIndex),
				zap.String("fallback_buyer", swap.Buyer),
			)
			continue
		}
		swap.Buyer = recipient
		c.logger.Debug("buyer attributed",
			zap.String("tx", swap.TxHash),
			zap.Uint64("log_index", swap.LogIndex),
			zap.String("buyer", recipient),
			zap.Stringer("rule", rule),
		)
	}
}

// Resolve picks the recipient for swap among the transfers of its
// transaction. Rules are applied in order and the first match wins.
func Resolve(swap *model.SwapEvent, transfers []model.TransferRecord) (string, Rule) {
	var (
		poolHop  *model.TransferRecord
		lastHop  *model.TransferRecord
		anyLater *model.TransferRecord
	)
	for i := range transfers {
		t := &transfers[i]
		if t.TxHash != swap.TxHash || t.LogIndex <= swap.LogIndex {
			continue
		}
		if t.From == swap.PoolAddress && (poolHop == nil || t.LogIndex < poolHop.LogIndex) {
			poolHop = t
		}
		if lastHop == nil || t.LogIndex > lastHop.LogIndex {
			lastHop = t
		}
		if anyLater == nil {
			anyLater = t
		}
	}

	switch {
	case poolHop != nil:
		return poolHop.To, RulePoolHop
	case lastHop != nil:
		return lastHop.To, RuleLastHop
	case anyLater != nil:
		return anyLater.To, RuleAnyLater
	default:
		return "", RuleNone
	}
}
