package registry

import (
	"reflect"
	"testing"

	"gopkg.in/yaml.v3"

	"buyScope/internal/model"
)

const registryYAML = `
chains:
  - id: 1
    name: Ethereum
    explorer: https://etherscan.io
  - id: 8453
    name: Base
    explorer: https://basescan.org/
pools:
  - protocol: v2
    chain: 1
    address: "0x1111111111111111111111111111111111111111"
    token0: "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
    token1: "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
    label: TKN/WETH V2
  - protocol: concentrated-liquidity
    chain: 8453
    address: "0x2222222222222222222222222222222222222222"
    token0: "0xcccccccccccccccccccccccccccccccccccccccc"
    token1: "0xdddddddddddddddddddddddddddddddddddddddd"
    fee: 3000
    label: TKN/USDC 0.3%
  - protocol: vault
    chain: 1
    address: "0xBA12222222228d8Ba445958a75a0704d566BF2C8"
    pool_id: "0x5c6EE304399DBdB9C8Ef030aB642B10820DB8F56000200000000000000000014"
    tokens:
      - "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
      - "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"
    label: TKN/WETH 80/20
`

func TestParseAndLookup(t *testing.T) {
	reg, err := Parse([]byte(registryYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	pool, ok := reg.Lookup("0x1111111111111111111111111111111111111111")
	if !ok {
		t.Fatalf("v2 pool not found")
	}
	if pool.Protocol != model.ProtocolConstantProduct || pool.ChainName != "Ethereum" {
		t.Fatalf("unexpected pool: %+v", pool)
	}
	if pool.Token0 != "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa" {
		t.Fatalf("token0 not lowercased: %s", pool.Token0)
	}

	if _, ok := reg.Lookup("0x2222222222222222222222222222222222222222"); !ok {
		t.Fatalf("v3 pool not found")
	}

	vault, ok := reg.LookupPoolID("0x5C6EE304399DBDB9C8EF030AB642B10820DB8F56000200000000000000000014")
	if !ok {
		t.Fatalf("vault pool not found by id")
	}
	if vault.Address != "0xba12222222228d8ba445958a75a0704d566bf2c8" {
		t.Fatalf("vault address mismatch: %s", vault.Address)
	}
	if _, ok := reg.Lookup(vault.Address); ok {
		t.Fatalf("vault pools must be resolved by pool id")
	}
	if !reg.IsPool(vault.Address) {
		t.Fatalf("vault contract should count as a pool")
	}
	if reg.IsPool("0x9999999999999999999999999999999999999999") {
		t.Fatalf("unknown address reported as pool")
	}

	if got := vault.TxURL("0xabc"); got != "https://etherscan.io/tx/0xabc" {
		t.Fatalf("tx url mismatch: %s", got)
	}
	base, _ := reg.Lookup("0x2222222222222222222222222222222222222222")
	if got := base.TxURL("0xabc"); got != "https://basescan.org/tx/0xabc" {
		t.Fatalf("tx url mismatch: %s", got)
	}
}

func TestLookupCaseInsensitive(t *testing.T) {
	reg, err := Parse([]byte(registryYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, ok := reg.Lookup("0X1111111111111111111111111111111111111111"); !ok {
		t.Fatalf("expected case-insensitive lookup")
	}
	if _, ok := reg.Lookup("0x9999999999999999999999999999999999999999"); ok {
		t.Fatalf("unknown address must not resolve")
	}
}

func TestAddressesAndChains(t *testing.T) {
	reg, err := Parse([]byte(registryYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	addrs := reg.Addresses(1)
	if len(addrs) != 2 {
		t.Fatalf("expected 2 addresses on chain 1, got %v", addrs)
	}
	if chains := reg.Chains(); len(chains) != 2 {
		t.Fatalf("expected 2 chains, got %v", chains)
	}
}

func TestNewRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		pool model.PoolDescriptor
	}{
		{"missing chain", model.PoolDescriptor{Protocol: model.ProtocolConstantProduct, Address: "0x1111111111111111111111111111111111111111"}},
		{"bad address", model.PoolDescriptor{Protocol: model.ProtocolConstantProduct, ChainID: 1, Address: "0x12"}},
		{"missing tokens", model.PoolDescriptor{Protocol: model.ProtocolConcentrated, ChainID: 1, Address: "0x1111111111111111111111111111111111111111"}},
		{"bad pool id", model.PoolDescriptor{Protocol: model.ProtocolVault, ChainID: 1, Address: "0x1111111111111111111111111111111111111111", PoolID: "0x01"}},
		{"no protocol", model.PoolDescriptor{ChainID: 1, Address: "0x1111111111111111111111111111111111111111"}},
	}
	for _, tc := range cases {
		if _, err := New([]model.PoolDescriptor{tc.pool}); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestNewRejectsDuplicates(t *testing.T) {
	pool := model.PoolDescriptor{
		Protocol: model.ProtocolConstantProduct,
		ChainID:  1,
		Address:  "0x1111111111111111111111111111111111111111",
		Token0:   "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		Token1:   "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
	}
	upper := pool
	upper.Address = "0x1111111111111111111111111111111111111111"
	if _, err := New([]model.PoolDescriptor{pool, upper}); err == nil {
		t.Fatalf("expected duplicate address error")
	}
}

func TestFileReparses(t *testing.T) {
	reg, err := Parse([]byte(registryYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out, err := yaml.Marshal(reg.File())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	again, err := Parse(out)
	if err != nil {
		t.Fatalf("listing does not parse back:\n%s\n%v", out, err)
	}
	if !reflect.DeepEqual(reg.Pools(), again.Pools()) {
		t.Fatalf("pools changed after re-parse:\n%+v\n%+v", reg.Pools(), again.Pools())
	}
	if len(reg.File().Chains) != 2 {
		t.Fatalf("expected one chain entry per chain, got %+v", reg.File().Chains)
	}
}
