package dex

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"buyScope/internal/model"
)

// PoolLookup resolves pool descriptors. *registry.Registry implements it.
type PoolLookup interface {
	Lookup(address string) (model.PoolDescriptor, bool)
	LookupPoolID(poolID string) (model.PoolDescriptor, bool)
}

// Config configures a Decoder.
type Config struct {
	Pools   PoolLookup
	Token   model.Token
	Logger  *zap.Logger
	Workers int
}

// Decoder turns canonical logs into swap events for the monitored token.
type Decoder struct {
	pools   PoolLookup
	token   model.Token
	logger  *zap.Logger
	workers int

	constantProduct abi.Event
	concentrated    abi.Event
	vault           abi.Event
	transfer        abi.Event
}

// NewDecoder builds a Decoder.
func NewDecoder(cfg Config) (*Decoder, error) {
	if cfg.Pools == nil {
		return nil, fmt.Errorf("pool registry is nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}

	cpABI, err := ConstantProductABI()
	if err != nil {
		return nil, fmt.Errorf("parse constant-product abi: %w", err)
	}
	clABI, err := ConcentratedABI()
	if err != nil {
		return nil, fmt.Errorf("parse concentrated abi: %w", err)
	}
	vABI, err := VaultABI()
	if err != nil {
		return nil, fmt.Errorf("parse vault abi: %w", err)
	}
	tokenABI, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}

	return &Decoder{
		pools:           cfg.Pools,
		token:           cfg.Token,
		logger:          cfg.Logger,
		workers:         cfg.Workers,
		constantProduct: cpABI.Events["Swap"],
		concentrated:    clABI.Events["Swap"],
		vault:           vABI.Events["Swap"],
		transfer:        tokenABI.Events["Transfer"],
	}, nil
}

// ProtocolForTopic maps an event signature hash to the protocol emitting it.
func ProtocolForTopic(topic0 string) (model.Protocol, bool) {
	switch strings.ToLower(topic0) {
	case TopicConstantProductSwap:
		return model.ProtocolConstantProduct, true
	case TopicConcentratedSwap:
		return model.ProtocolConcentrated, true
	case TopicVaultSwap:
		return model.ProtocolVault, true
	default:
		return model.ProtocolUnknown, false
	}
}

// Decode returns the swap event carried by log. It returns (nil, nil) for
// logs that are not swaps of a registered pool.
func (d *Decoder) Decode(log model.CanonicalLog) (event *model.SwapEvent, err error) {
	defer func() {
		if r := recover(); r != nil {
			event, err = nil, fmt.Errorf("decode panic: %v", r)
		}
	}()

	protocol, ok := ProtocolForTopic(log.Topic0())
	if !ok {
		return nil, nil
	}

	pool, ok, err := d.resolvePool(protocol, log)
	if err != nil || !ok {
		return nil, err
	}

	switch protocol {
	case model.ProtocolConstantProduct:
		return d.decodeConstantProduct(log, pool)
	case model.ProtocolConcentrated:
		return d.decodeConcentrated(log, pool)
	case model.ProtocolVault:
		return d.decodeVault(log, pool)
	default:
		return nil, fmt.Errorf("unsupported protocol: %s", protocol)
	}
}

func (d *Decoder) resolvePool(protocol model.Protocol, log model.CanonicalLog) (model.PoolDescriptor, bool, error) {
	var (
		pool model.PoolDescriptor
		ok   bool
	)
	switch protocol {
	case model.ProtocolConstantProduct, model.ProtocolConcentrated:
		pool, ok = d.pools.Lookup(log.Address)
	case model.ProtocolVault:
		if len(log.Topics) < 2 {
			return pool, false, fmt.Errorf("vault swap without pool id topic")
		}
		hashes, err := parseTopicHashes(log.Topics[1:2])
		if err != nil {
			return pool, false, err
		}
		pool, ok = d.pools.LookupPoolID(strings.ToLower(hashes[0].Hex()))
		if ok && !strings.EqualFold(pool.Address, log.Address) {
			ok = false
		}
	default:
		return pool, false, fmt.Errorf("unsupported protocol: %s", protocol)
	}

	if !ok {
		return pool, false, nil
	}
	if pool.Protocol != protocol {
		d.logger.Debug("pool protocol mismatch",
			zap.String("pool", pool.Address),
			zap.Stringer("registered", pool.Protocol),
			zap.Stringer("log", protocol),
		)
		return pool, false, nil
	}
	return pool, true, nil
}

// DecodeBatch decodes logs concurrently and returns swap events in input
// order. Logs that fail to decode are skipped and reported.
func (d *Decoder) DecodeBatch(logs []model.CanonicalLog) ([]*model.SwapEvent, []model.DecodeError) {
	events := make([]*model.SwapEvent, len(logs))
	errs := make([]error, len(logs))

	var g errgroup.Group
	g.SetLimit(d.workers)
	for i := range logs {
		i := i
		g.Go(func() error {
			events[i], errs[i] = d.Decode(logs[i])
			return nil
		})
	}
	_ = g.Wait()

	out := make([]*model.SwapEvent, 0, len(logs))
	var failures []model.DecodeError
	for i, log := range logs {
		if errs[i] != nil {
			d.logger.Warn("swap decode failed",
				zap.String("tx", log.TxHash),
				zap.Uint64("log_index", log.LogIndex),
				zap.String("address", log.Address),
				zap.String("topic0", log.Topic0()),
				zap.Error(errs[i]),
			)
			failures = append(failures, model.DecodeErrorFromLog(log, errs[i]))
			continue
		}
		if events[i] != nil {
			out = append(out, events[i])
		}
	}
	return out, failures
}

func (d *Decoder) monitoredToken(pool model.PoolDescriptor) (string, error) {
	token, ok := d.token.AddressOn(pool.ChainID)
	if !ok {
		return "", fmt.Errorf("no monitored token configured for chain %d", pool.ChainID)
	}
	return token, nil
}

func newSwapEvent(log model.CanonicalLog, pool model.PoolDescriptor) *model.SwapEvent {
	return &model.SwapEvent{
		Protocol:    pool.Protocol,
		ChainID:     pool.ChainID,
		ChainName:   pool.ChainName,
		PoolLabel:   pool.Label,
		PoolAddress: strings.ToLower(log.Address),
		TxURL:       pool.TxURL(log.TxHash),
		TxHash:      log.TxHash,
		LogIndex:    log.LogIndex,
		BlockNumber: log.BlockNumber,
		Removed:     log.Removed,
	}
}
