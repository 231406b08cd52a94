package engine

import (
	"errors"

	"github.com/AndriyAntonenko/defi-stablecoin/oracle"
	"github.com/AndriyAntonenko/defi-stablecoin/precision"
)

var (
	// Input validation.
	ErrAmountMustBePositive = errors.New("engine: amount must be positive")
	ErrAssetNotAllowed      = errors.New("engine: collateral asset not allowed")
	ErrZeroAddress          = errors.New("engine: zero asset or oracle identity")
	ErrLengthMismatch       = errors.New("engine: assets and oracles length mismatch")
	ErrDuplicateAsset       = errors.New("engine: collateral asset already registered")

	// Oracle, registration-time.
	ErrInvalidOracle = errors.New("engine: oracle rejected during registration")

	// Solvency.
	ErrHealthFactorBroken      = errors.New("engine: health factor below minimum")
	ErrHealthFactorOk          = errors.New("engine: position is healthy, liquidation not permitted")
	ErrHealthFactorNotImproved = errors.New("engine: liquidation did not improve health factor")

	// External effects.
	ErrTransferFailed = errors.New("engine: token transfer failed")
	ErrMintFailed     = errors.New("engine: debt token mint failed")

	// Concurrency.
	ErrReentrantCall = errors.New("engine: reentrant call blocked")

	// Wiring.
	ErrUnknownToken = errors.New("engine: no token handle bound for asset")
)

// errorKind maps a failure to a stable label for metrics and logs. Callers
// branch on the sentinel errors themselves; the label exists purely for
// observability cardinality control.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrAmountMustBePositive):
		return "amount_not_positive"
	case errors.Is(err, ErrAssetNotAllowed):
		return "asset_not_allowed"
	case errors.Is(err, ErrHealthFactorBroken):
		return "health_factor_broken"
	case errors.Is(err, ErrHealthFactorOk):
		return "health_factor_ok"
	case errors.Is(err, ErrHealthFactorNotImproved):
		return "health_factor_not_improved"
	case errors.Is(err, ErrTransferFailed):
		return "transfer_failed"
	case errors.Is(err, ErrMintFailed):
		return "mint_failed"
	case errors.Is(err, ErrReentrantCall):
		return "reentrant_call"
	case errors.Is(err, oracle.ErrStalePrice):
		return "stale_price"
	case errors.Is(err, precision.ErrOverflow):
		return "arithmetic_overflow"
	case errors.Is(err, precision.ErrUnderflow):
		return "arithmetic_underflow"
	case errors.Is(err, precision.ErrDivisionByZero):
		return "division_by_zero"
	case errors.Is(err, precision.ErrDecimalsOverflow):
		return "decimals_overflow"
	default:
		return "other"
	}
}
