// Package pipeline runs one webhook delivery through normalization,
// decoding, attribution, deduplication and classification.
package pipeline

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"buyScope/internal/classify"
	"buyScope/internal/correlate"
	"buyScope/internal/dedupe"
	"buyScope/internal/dex"
	"buyScope/internal/metrics"
	"buyScope/internal/model"
	"buyScope/internal/webhook"
)

// Config wires the processing stages.
type Config struct {
	Decoder    *dex.Decoder
	Guard      dedupe.Guard
	Classifier *classify.Classifier
	Token      model.Token
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
}

// Processor turns raw payloads into buy alerts.
type Processor struct {
	normalizer *webhook.Normalizer
	decoder    *dex.Decoder
	correlator *correlate.Correlator
	guard      dedupe.Guard
	classifier *classify.Classifier
	token      model.Token
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// NewProcessor validates cfg and builds a Processor.
func NewProcessor(cfg Config) (*Processor, error) {
	if cfg.Decoder == nil {
		return nil, fmt.Errorf("decoder is nil")
	}
	if cfg.Guard == nil {
		return nil, fmt.Errorf("dedupe guard is nil")
	}
	if cfg.Classifier == nil {
		return nil, fmt.Errorf("classifier is nil")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		normalizer: webhook.NewNormalizer(logger),
		decoder:    cfg.Decoder,
		correlator: correlate.New(logger),
		guard:      cfg.Guard,
		classifier: cfg.Classifier,
		token:      cfg.Token,
		logger:     logger,
		metrics:    cfg.Metrics,
	}, nil
}

// Process handles one payload. It never fails: malformed input yields no
// alerts and problems are logged.
func (p *Processor) Process(ctx context.Context, body []byte) []model.BuyAlert {
	logs := p.normalizer.Normalize(body)
	p.metrics.Payload(len(logs))
	return p.ProcessLogs(ctx, logs)
}

// ProcessLogs runs already-normalized logs through the remaining stages.
func (p *Processor) ProcessLogs(ctx context.Context, logs []model.CanonicalLog) []model.BuyAlert {
	if len(logs) == 0 {
		return []model.BuyAlert{}
	}

	swaps, failures := p.decoder.DecodeBatch(logs)
	p.metrics.DecodeFailures(len(failures))
	for _, swap := range swaps {
		p.metrics.SwapDecoded(swap.Protocol.Label())
	}
	if len(swaps) == 0 {
		return []model.BuyAlert{}
	}

	transfers, _ := p.decoder.ExtractTransfers(logs, p.tokenContracts(swaps))
	p.correlator.Attribute(swaps, transfers)

	fresh := p.dedupe(ctx, swaps)
	alerts := p.classifier.Classify(ctx, fresh)
	sort.SliceStable(alerts, func(i, j int) bool {
		if alerts[i].BlockNumber != alerts[j].BlockNumber {
			return alerts[i].BlockNumber < alerts[j].BlockNumber
		}
		return alerts[i].LogIndex < alerts[j].LogIndex
	})
	p.metrics.Alerts(len(alerts))

	p.logger.Debug("payload processed",
		zap.Int("logs", len(logs)),
		zap.Int("swaps", len(swaps)),
		zap.Int("transfers", len(transfers)),
		zap.Int("alerts", len(alerts)),
	)
	return alerts
}

// tokenContracts returns the monitored token address on every chain a swap
// in the batch came from.
func (p *Processor) tokenContracts(swaps []*model.SwapEvent) []string {
	seen := make(map[uint64]struct{})
	var out []string
	for _, swap := range swaps {
		if _, ok := seen[swap.ChainID]; ok {
			continue
		}
		seen[swap.ChainID] = struct{}{}
		if addr, ok := p.token.AddressOn(swap.ChainID); ok {
			out = append(out, addr)
		}
	}
	return out
}

// dedupe evicts removed swaps and keeps purchases not seen before. Guard
// errors let the swap through.
func (p *Processor) dedupe(ctx context.Context, swaps []*model.SwapEvent) []*model.SwapEvent {
	out := make([]*model.SwapEvent, 0, len(swaps))
	for _, swap := range swaps {
		key := swap.Key()
		if swap.Removed {
			if err := p.guard.HandleReorg(ctx, key); err != nil {
				p.logger.Warn("reorg eviction failed", zap.String("key", key.String()), zap.Error(err))
			}
			p.metrics.Reorg()
			p.logger.Info("removed swap evicted",
				zap.String("tx", swap.TxHash),
				zap.Uint64("log_index", swap.LogIndex),
				zap.Uint64("block", swap.BlockNumber),
			)
			continue
		}
		if !swap.IsBuy {
			continue
		}
		fresh, err := p.guard.CheckAndMark(ctx, key)
		if err != nil {
			p.logger.Warn("dedupe check failed", zap.String("key", key.String()), zap.Error(err))
			fresh = true
		}
		if !fresh {
			p.metrics.Duplicate()
			p.logger.Debug("duplicate swap dropped", zap.String("key", key.String()))
			continue
		}
		out = append(out, swap)
	}
	return out
}
