// Package classify turns decoded purchase swaps into buy alerts.
package classify

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"buyScope/internal/metrics"
	"buyScope/internal/model"
	"buyScope/internal/oracle"
)

const (
	defaultTimeout     = 5 * time.Second
	defaultConcurrency = 8
)

// Config holds classifier settings and optional enrichment sources.
type Config struct {
	Token          model.Token
	Threshold      float64
	WhaleThreshold float64
	Prices         oracle.PriceOracle
	Balances       oracle.BalanceOracle
	Timeout        time.Duration
	Concurrency    int
	Logger         *zap.Logger
	Metrics        *metrics.Metrics
}

// Classifier filters purchases by size and enriches the survivors.
type Classifier struct {
	cfg       Config
	threshold *big.Rat
	whale     *big.Rat
	logger    *zap.Logger
}

// New validates cfg and builds a Classifier.
func New(cfg Config) (*Classifier, error) {
	if cfg.Threshold < 0 {
		return nil, fmt.Errorf("threshold must not be negative")
	}
	if cfg.WhaleThreshold < 0 {
		return nil, fmt.Errorf("whale threshold must not be negative")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Classifier{cfg: cfg, logger: logger}
	c.threshold = decimalRat(cfg.Threshold)
	if cfg.WhaleThreshold > 0 {
		c.whale = decimalRat(cfg.WhaleThreshold)
	}
	return c, nil
}

// decimalRat converts a configured threshold through its shortest decimal
// form so that 0.1 compares equal to an amount of exactly 0.1 tokens.
func decimalRat(value float64) *big.Rat {
	rat, ok := new(big.Rat).SetString(strconv.FormatFloat(value, 'f', -1, 64))
	if !ok {
		return new(big.Rat).SetFloat64(value)
	}
	return rat
}

// Classify keeps purchases at or above the threshold and returns one alert
// per kept swap, in input order. Enrichment never drops an alert.
func (c *Classifier) Classify(ctx context.Context, swaps []*model.SwapEvent) []model.BuyAlert {
	alerts := make([]model.BuyAlert, 0, len(swaps))
	for _, swap := range swaps {
		if swap == nil || !swap.IsBuy || swap.Amount == nil {
			continue
		}
		display := toRat(swap.Amount, c.cfg.Token.Decimals)
		if display.Cmp(c.threshold) < 0 {
			c.cfg.Metrics.BelowThreshold()
			c.logger.Debug("buy below threshold",
				zap.String("tx", swap.TxHash),
				zap.String("amount", display.FloatString(int(c.cfg.Token.Decimals))),
			)
			continue
		}
		alerts = append(alerts, c.newAlert(swap, display))
	}
	if len(alerts) == 0 {
		return alerts
	}

	c.enrich(ctx, alerts, swaps)
	return alerts
}

func (c *Classifier) newAlert(swap *model.SwapEvent, display *big.Rat) model.BuyAlert {
	alert := model.BuyAlert{
		Amount:        swap.Amount.String(),
		AmountDisplay: FormatAmount(swap.Amount, c.cfg.Token.Decimals),
		AmountValue:   DisplayValue(swap.Amount, c.cfg.Token.Decimals),
		ChainName:     swap.ChainName,
		Protocol:      swap.Protocol.Label(),
		PoolLabel:     swap.PoolLabel,
		TxHash:        swap.TxHash,
		TxURL:         swap.TxURL,
		BlockNumber:   swap.BlockNumber,
		LogIndex:      swap.LogIndex,
		Buyer:         swap.Buyer,
		Whale:         c.whale != nil && display.Cmp(c.whale) >= 0,
	}
	if swap.Buyer != "" {
		alert.BuyerShort = ShortAddress(swap.Buyer)
	}
	return alert
}

func (c *Classifier) enrich(ctx context.Context, alerts []model.BuyAlert, swaps []*model.SwapEvent) {
	if c.cfg.Prices != nil {
		quote, err := oracle.Snapshot(ctx, c.cfg.Prices, c.cfg.Token.Symbol)
		if err != nil {
			c.cfg.Metrics.EnrichmentFailure("price")
			c.logger.Warn("price unavailable", zap.String("symbol", c.cfg.Token.Symbol), zap.Error(err))
		}
		for i := range alerts {
			if usd, ok := quote.Value(alerts[i].AmountValue); ok {
				alerts[i].USDValue = &usd
			}
		}
	}

	if c.cfg.Balances == nil {
		return
	}
	chainOf := make(map[model.EventKey]uint64, len(swaps))
	for _, swap := range swaps {
		if swap != nil {
			chainOf[swap.Key()] = swap.ChainID
		}
	}

	var g errgroup.Group
	g.SetLimit(c.cfg.Concurrency)
	for i := range alerts {
		alert := &alerts[i]
		if alert.Buyer == "" {
			continue
		}
		chainID := chainOf[model.EventKey{TxHash: alert.TxHash, LogIndex: alert.LogIndex}]
		g.Go(func() error {
			c.enrichBalance(ctx, alert, chainID)
			return nil
		})
	}
	_ = g.Wait()
}

// enrichBalance fills the balance fields of one alert. Each alert writes only
// to itself so goroutines never share state.
func (c *Classifier) enrichBalance(ctx context.Context, alert *model.BuyAlert, chainID uint64) {
	after, err := c.balanceAt(ctx, alert.Buyer, chainID, alert.BlockNumber)
	if err != nil {
		c.balanceFailed(alert, err)
		return
	}

	var before *big.Int
	if alert.BlockNumber > 0 {
		before, err = c.balanceAt(ctx, alert.Buyer, chainID, alert.BlockNumber-1)
		if err != nil {
			c.balanceFailed(alert, err)
			return
		}
	} else {
		before = new(big.Int)
	}

	beforeText := FormatAmount(before, c.cfg.Token.Decimals)
	afterText := FormatAmount(after, c.cfg.Token.Decimals)
	newHolder := before.Sign() == 0
	alert.BalanceBefore = &beforeText
	alert.BalanceAfter = &afterText
	alert.NewHolder = &newHolder
}

func (c *Classifier) balanceAt(ctx context.Context, wallet string, chainID, block uint64) (*big.Int, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	balance, err := c.cfg.Balances.BalanceAt(callCtx, wallet, chainID, block)
	if err != nil {
		return nil, err
	}
	if balance == nil {
		return nil, oracle.ErrUnavailable
	}
	return balance, nil
}

func (c *Classifier) balanceFailed(alert *model.BuyAlert, err error) {
	c.cfg.Metrics.EnrichmentFailure("balance")
	c.logger.Warn("balance unavailable",
		zap.String("tx", alert.TxHash),
		zap.String("buyer", alert.Buyer),
		zap.Error(err),
	)
}
