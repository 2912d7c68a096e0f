package model

import (
	"fmt"
	"strings"
)

// Protocol identifies the AMM design a pool follows.
type Protocol uint8

const (
	ProtocolUnknown Protocol = iota
	// ProtocolConstantProduct is a two-sided reserve pool (Uniswap V2 style).
	ProtocolConstantProduct
	// ProtocolConcentrated is a concentrated-liquidity pool (Uniswap V3 style).
	ProtocolConcentrated
	// ProtocolVault is a shared-liquidity vault (Balancer V2 style).
	ProtocolVault
)

// ParseProtocol maps a configuration value to a Protocol.
func ParseProtocol(value string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "constant-product", "v2":
		return ProtocolConstantProduct, nil
	case "concentrated-liquidity", "concentrated", "v3":
		return ProtocolConcentrated, nil
	case "vault", "balancer":
		return ProtocolVault, nil
	default:
		return ProtocolUnknown, fmt.Errorf("unsupported protocol: %q", value)
	}
}

// String returns the configuration name of the protocol.
func (p Protocol) String() string {
	switch p {
	case ProtocolConstantProduct:
		return "constant-product"
	case ProtocolConcentrated:
		return "concentrated-liquidity"
	case ProtocolVault:
		return "vault"
	default:
		return "unknown"
	}
}

// Label returns the display label used in alerts.
func (p Protocol) Label() string {
	switch p {
	case ProtocolConstantProduct:
		return "V2"
	case ProtocolConcentrated:
		return "V3"
	case ProtocolVault:
		return "Vault"
	default:
		return "Unknown"
	}
}

// MarshalText encodes the protocol by name.
func (p Protocol) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes the protocol by name.
func (p *Protocol) UnmarshalText(text []byte) error {
	parsed, err := ParseProtocol(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
