package engine

import (
	"math/big"

	"github.com/AndriyAntonenko/defi-stablecoin/precision"
)

// Protocol constants. These are not configurable: changing them changes the
// solvency guarantees every position was opened under.
const (
	// LiquidationThreshold over LiquidationPrecision is the fraction of
	// nominal collateral value counted toward backing: 50% here, i.e. a
	// 200% overcollateralization requirement.
	LiquidationThreshold = 50
	LiquidationPrecision = 100
	// LiquidationBonus over LiquidationPrecision is the extra collateral a
	// liquidator receives on top of the debt-equivalent amount.
	LiquidationBonus = 5
)

var (
	liquidationThreshold = big.NewInt(LiquidationThreshold)
	liquidationPrecision = big.NewInt(LiquidationPrecision)
	liquidationBonus     = big.NewInt(LiquidationBonus)

	// minHealthFactor is 1.0 at the canonical 18-decimal scale.
	minHealthFactor = precision.Precision()
)

// MinHealthFactor returns the minimum health factor a debt-carrying position
// must hold after every self-authorized operation (1.0 scaled to 18
// decimals).
func MinHealthFactor() *big.Int {
	return new(big.Int).Set(minHealthFactor)
}

// Constants bundles the protocol parameters for read-only callers.
type Constants struct {
	LiquidationThreshold uint64   `json:"liquidationThreshold"`
	LiquidationPrecision uint64   `json:"liquidationPrecision"`
	LiquidationBonus     uint64   `json:"liquidationBonus"`
	MinHealthFactor      *big.Int `json:"minHealthFactor"`
}

// ProtocolConstants returns the fixed risk parameters.
func ProtocolConstants() Constants {
	return Constants{
		LiquidationThreshold: LiquidationThreshold,
		LiquidationPrecision: LiquidationPrecision,
		LiquidationBonus:     LiquidationBonus,
		MinHealthFactor:      MinHealthFactor(),
	}
}
