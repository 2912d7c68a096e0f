package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"buyScope/internal/model"
)

// File is the on-disk registry layout.
type File struct {
	Chains []ChainEntry `yaml:"chains"`
	Pools  []PoolEntry  `yaml:"pools"`
}

// ChainEntry carries chain metadata shared by the pools on that chain.
type ChainEntry struct {
	ID       uint64 `yaml:"id"`
	Name     string `yaml:"name"`
	Explorer string `yaml:"explorer"`
}

// PoolEntry is one pool in the registry file.
type PoolEntry struct {
	Protocol string   `yaml:"protocol"`
	Chain    uint64   `yaml:"chain"`
	Address  string   `yaml:"address"`
	Token0   string   `yaml:"token0,omitempty"`
	Token1   string   `yaml:"token1,omitempty"`
	Fee      uint32   `yaml:"fee,omitempty"`
	PoolID   string   `yaml:"pool_id,omitempty"`
	Tokens   []string `yaml:"tokens,omitempty"`
	Label    string   `yaml:"label"`
}

// LoadFile reads a YAML registry from path.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	return Parse(data)
}

// Parse builds a registry from YAML bytes.
func Parse(data []byte) (*Registry, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	pools, err := file.Descriptors()
	if err != nil {
		return nil, err
	}
	return New(pools)
}

// Descriptors resolves pool entries against their chain metadata.
func (f File) Descriptors() ([]model.PoolDescriptor, error) {
	chains := make(map[uint64]ChainEntry, len(f.Chains))
	for _, chain := range f.Chains {
		chains[chain.ID] = chain
	}

	out := make([]model.PoolDescriptor, 0, len(f.Pools))
	for i, entry := range f.Pools {
		protocol, err := model.ParseProtocol(entry.Protocol)
		if err != nil {
			return nil, fmt.Errorf("pool %d: %w", i, err)
		}
		chain, ok := chains[entry.Chain]
		if !ok {
			return nil, fmt.Errorf("pool %d: unknown chain %d", i, entry.Chain)
		}
		out = append(out, model.PoolDescriptor{
			Protocol:  protocol,
			ChainID:   chain.ID,
			ChainName: chain.Name,
			Explorer:  chain.Explorer,
			Address:   entry.Address,
			Token0:    entry.Token0,
			Token1:    entry.Token1,
			Fee:       entry.Fee,
			PoolID:    entry.PoolID,
			Tokens:    entry.Tokens,
			Label:     entry.Label,
		})
	}
	return out, nil
}

// File renders the registry back into the on-disk layout accepted by Parse.
func (r *Registry) File() File {
	var f File
	seen := make(map[uint64]struct{})
	for _, pool := range r.Pools() {
		if _, ok := seen[pool.ChainID]; !ok {
			seen[pool.ChainID] = struct{}{}
			f.Chains = append(f.Chains, ChainEntry{ID: pool.ChainID, Name: pool.ChainName, Explorer: pool.Explorer})
		}
		f.Pools = append(f.Pools, PoolEntry{
			Protocol: pool.Protocol.String(),
			Chain:    pool.ChainID,
			Address:  pool.Address,
			Token0:   pool.Token0,
			Token1:   pool.Token1,
			Fee:      pool.Fee,
			PoolID:   pool.PoolID,
			Tokens:   pool.Tokens,
			Label:    pool.Label,
		})
	}
	return f
}
