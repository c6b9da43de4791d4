// Package asset defines the assets the swap client can route between.
// ALL asset parameters (decimals, networks, limits, address rules) MUST be
// defined here. No hardcoded values should exist elsewhere in the codebase.
package asset

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Rail is the intermediate settlement asset used to bridge two
// otherwise-unconnected chains.
const Rail = "M1"

// Common errors
var (
	ErrUnknownAsset   = errors.New("unknown asset")
	ErrAssetDisabled  = errors.New("asset disabled")
	ErrInvalidAddress = errors.New("invalid destination address")
)

// Kind represents the address family of an asset's chain.
type Kind string

const (
	KindBitcoin Kind = "bitcoin" // base-chain assets, bech32/base58 addresses
	KindEVM     Kind = "evm"     // smart-contract chain tokens, 0x addresses
	KindRail    Kind = "rail"    // the settlement rail
)

// Asset describes a swappable asset.
type Asset struct {
	Symbol         string
	Name           string
	Network        string
	Kind           Kind
	Decimals       uint8
	MinAmount      float64 // minimum swap input
	MaxAmount      float64 // maximum swap input (0 = no limit)
	ProbeAmount    float64 // reference amount for rate display quotes
	Disabled       bool
	DisabledReason string
}

// railAddressPattern matches BATHRON rail addresses (x/y prefix, base58 body).
var railAddressPattern = regexp.MustCompile(`^[xy][a-zA-HJ-NP-Z0-9]{33}$`)

// Supported defines every asset the client knows about.
var Supported = map[string]Asset{
	"BTC": {
		Symbol:      "BTC",
		Name:        "Bitcoin",
		Network:     "Bitcoin Signet",
		Kind:        KindBitcoin,
		Decimals:    8,
		MinAmount:   0.0001,
		MaxAmount:   1.0,
		ProbeAmount: 0.001,
	},
	"USDC": {
		Symbol:      "USDC",
		Name:        "USDC",
		Network:     "Base Sepolia",
		Kind:        KindEVM,
		Decimals:    6,
		MinAmount:   0.0001,
		MaxAmount:   100000,
		ProbeAmount: 50,
	},
	Rail: {
		Symbol:      Rail,
		Name:        "M1",
		Network:     "BATHRON",
		Kind:        KindRail,
		Decimals:    8,
		MinAmount:   0.0001,
		MaxAmount:   100000,
		ProbeAmount: 1,
	},
	"PIVX": {
		Symbol:         "PIVX",
		Name:           "PIVX",
		Network:        "PIVX Testnet",
		Kind:           KindBitcoin,
		Decimals:       8,
		Disabled:       true,
		DisabledReason: "awaiting faucet",
	},
	"DASH": {
		Symbol:         "DASH",
		Name:           "Dash",
		Network:        "Dash Testnet",
		Kind:           KindBitcoin,
		Decimals:       8,
		Disabled:       true,
		DisabledReason: "coming soon",
	},
}

// Get returns the asset for a symbol.
func Get(symbol string) (Asset, bool) {
	a, ok := Supported[symbol]
	return a, ok
}

// IsRail reports whether the symbol is the settlement rail.
func IsRail(symbol string) bool {
	return symbol == Rail
}

// ValidatePair checks that both sides of a swap pair are known, enabled,
// and distinct.
func ValidatePair(from, to string) error {
	if from == to {
		return fmt.Errorf("cannot swap %s for itself", from)
	}
	for _, sym := range []string{from, to} {
		a, ok := Supported[sym]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownAsset, sym)
		}
		if a.Disabled {
			return fmt.Errorf("%w: %s (%s)", ErrAssetDisabled, sym, a.DisabledReason)
		}
	}
	return nil
}

// ValidateAddress checks a destination address against the asset's chain rules.
// Bitcoin-family addresses are decoded against signet parameters, EVM addresses
// are checksummed hex, rail addresses follow the BATHRON base58 format.
func ValidateAddress(symbol, addr string) error {
	a, ok := Supported[symbol]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAsset, symbol)
	}
	if addr == "" {
		return fmt.Errorf("%w: empty address for %s", ErrInvalidAddress, symbol)
	}

	switch a.Kind {
	case KindBitcoin:
		if _, err := btcutil.DecodeAddress(addr, &chaincfg.SigNetParams); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidAddress, symbol, err)
		}
	case KindEVM:
		if !ethcommon.IsHexAddress(addr) {
			return fmt.Errorf("%w: %s: not a hex address", ErrInvalidAddress, symbol)
		}
	case KindRail:
		if !railAddressPattern.MatchString(addr) {
			return fmt.Errorf("%w: %s: malformed rail address", ErrInvalidAddress, symbol)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownAsset, symbol)
	}
	return nil
}
