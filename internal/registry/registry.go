package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"buyScope/internal/model"
)

// Registry is an immutable, address-keyed table of monitored pools.
type Registry struct {
	byAddress map[string]model.PoolDescriptor
	byPoolID  map[string]model.PoolDescriptor
	vaults    map[string]struct{}
	pools     []model.PoolDescriptor
}

// New validates and indexes pool descriptors.
func New(pools []model.PoolDescriptor) (*Registry, error) {
	r := &Registry{
		byAddress: make(map[string]model.PoolDescriptor, len(pools)),
		byPoolID:  make(map[string]model.PoolDescriptor),
		vaults:    make(map[string]struct{}),
		pools:     make([]model.PoolDescriptor, 0, len(pools)),
	}

	for i, pool := range pools {
		normalized, err := normalize(pool)
		if err != nil {
			return nil, fmt.Errorf("pool %d (%s): %w", i, pool.Label, err)
		}

		switch normalized.Protocol {
		case model.ProtocolConstantProduct, model.ProtocolConcentrated:
			if _, ok := r.byAddress[normalized.Address]; ok {
				return nil, fmt.Errorf("duplicate pool address: %s", normalized.Address)
			}
			r.byAddress[normalized.Address] = normalized
		case model.ProtocolVault:
			if _, ok := r.byPoolID[normalized.PoolID]; ok {
				return nil, fmt.Errorf("duplicate pool id: %s", normalized.PoolID)
			}
			r.byPoolID[normalized.PoolID] = normalized
			r.vaults[normalized.Address] = struct{}{}
		default:
			return nil, fmt.Errorf("unsupported protocol %s", normalized.Protocol)
		}
		r.pools = append(r.pools, normalized)
	}

	sort.SliceStable(r.pools, func(i, j int) bool {
		if r.pools[i].ChainID != r.pools[j].ChainID {
			return r.pools[i].ChainID < r.pools[j].ChainID
		}
		return r.pools[i].Label < r.pools[j].Label
	})

	return r, nil
}

// Lookup returns the pool at address. Lookup is case-insensitive.
func (r *Registry) Lookup(address string) (model.PoolDescriptor, bool) {
	if r == nil {
		return model.PoolDescriptor{}, false
	}
	pool, ok := r.byAddress[strings.ToLower(address)]
	return pool, ok
}

// LookupPoolID returns the vault pool registered under poolID.
func (r *Registry) LookupPoolID(poolID string) (model.PoolDescriptor, bool) {
	if r == nil {
		return model.PoolDescriptor{}, false
	}
	pool, ok := r.byPoolID[strings.ToLower(poolID)]
	return pool, ok
}

// IsPool reports whether address is a registered pool or vault contract.
func (r *Registry) IsPool(address string) bool {
	if r == nil {
		return false
	}
	address = strings.ToLower(address)
	if _, ok := r.byAddress[address]; ok {
		return true
	}
	_, ok := r.vaults[address]
	return ok
}

// Pools returns all descriptors ordered by chain and label.
func (r *Registry) Pools() []model.PoolDescriptor {
	if r == nil {
		return nil
	}
	out := make([]model.PoolDescriptor, len(r.pools))
	copy(out, r.pools)
	return out
}

// Addresses returns the distinct contract addresses emitting swap logs on a chain.
func (r *Registry) Addresses(chainID uint64) []string {
	if r == nil {
		return nil
	}
	seen := make(map[string]struct{})
	out := make([]string, 0, len(r.pools))
	for _, pool := range r.pools {
		if pool.ChainID != chainID {
			continue
		}
		if _, ok := seen[pool.Address]; ok {
			continue
		}
		seen[pool.Address] = struct{}{}
		out = append(out, pool.Address)
	}
	return out
}

// Chains returns the distinct chain ids in the registry.
func (r *Registry) Chains() []uint64 {
	if r == nil {
		return nil
	}
	seen := make(map[uint64]struct{})
	out := make([]uint64, 0)
	for _, pool := range r.pools {
		if _, ok := seen[pool.ChainID]; ok {
			continue
		}
		seen[pool.ChainID] = struct{}{}
		out = append(out, pool.ChainID)
	}
	return out
}

func normalize(pool model.PoolDescriptor) (model.PoolDescriptor, error) {
	if pool.ChainID == 0 {
		return pool, fmt.Errorf("chain id is required")
	}
	if !common.IsHexAddress(pool.Address) {
		return pool, fmt.Errorf("invalid address: %q", pool.Address)
	}
	pool.Address = strings.ToLower(pool.Address)
	pool.Token0 = strings.ToLower(pool.Token0)
	pool.Token1 = strings.ToLower(pool.Token1)
	pool.PoolID = strings.ToLower(pool.PoolID)
	tokens := make([]string, 0, len(pool.Tokens))
	for _, token := range pool.Tokens {
		tokens = append(tokens, strings.ToLower(token))
	}
	pool.Tokens = tokens
	if pool.Label == "" {
		pool.Label = pool.Address
	}

	switch pool.Protocol {
	case model.ProtocolConstantProduct, model.ProtocolConcentrated:
		if !common.IsHexAddress(pool.Token0) || !common.IsHexAddress(pool.Token1) {
			return pool, fmt.Errorf("token0 and token1 are required")
		}
	case model.ProtocolVault:
		raw, err := hexutil.Decode(pool.PoolID)
		if err != nil || len(raw) != common.HashLength {
			return pool, fmt.Errorf("invalid pool id: %q", pool.PoolID)
		}
		for _, token := range pool.Tokens {
			if !common.IsHexAddress(token) {
				return pool, fmt.Errorf("invalid vault token: %q", token)
			}
		}
	default:
		return pool, fmt.Errorf("protocol is required")
	}
	return pool, nil
}
