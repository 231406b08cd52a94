package engine

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/AndriyAntonenko/defi-stablecoin/precision"
)

// HealthCalculator derives the solvency ratio of a position from ledger and
// oracle state.
type HealthCalculator struct {
	ledger *Ledger
}

// NewHealthCalculator binds the calculator to the ledger it reads.
func NewHealthCalculator(ledger *Ledger) *HealthCalculator {
	return &HealthCalculator{ledger: ledger}
}

// adjustedCollateralUSD is the risk-adjusted collateral value: only
// LiquidationThreshold/LiquidationPrecision of nominal value counts toward
// backing debt.
func (h *HealthCalculator) adjustedCollateralUSD(account common.Address) (*big.Int, error) {
	value, err := h.ledger.CollateralValueUSD(account)
	if err != nil {
		return nil, err
	}
	adjusted, err := precision.Mul(value, liquidationThreshold)
	if err != nil {
		return nil, err
	}
	return precision.Div(adjusted, liquidationPrecision)
}

// HealthFactor returns the scaled ratio of risk-adjusted collateral value to
// outstanding debt. A debt-free account can never be undercollateralized and
// saturates at the maximum representable value.
func (h *HealthCalculator) HealthFactor(account common.Address) (*big.Int, error) {
	debt := h.ledger.Debt(account)
	if debt.Sign() == 0 {
		return precision.MaxValue(), nil
	}
	adjusted, err := h.adjustedCollateralUSD(account)
	if err != nil {
		return nil, err
	}
	scaled, err := precision.Mul(adjusted, precision.Precision())
	if err != nil {
		return nil, err
	}
	return precision.Div(scaled, debt)
}

// requireHealthy fails with ErrHealthFactorBroken when the account's health
// factor sits below the minimum. Operations call it after tentative state
// mutation but before any irreversible external effect.
func (h *HealthCalculator) requireHealthy(account common.Address) error {
	factor, err := h.HealthFactor(account)
	if err != nil {
		return err
	}
	if factor.Cmp(minHealthFactor) < 0 {
		return ErrHealthFactorBroken
	}
	return nil
}

// MaxMintable returns how much additional debt the account could take on
// before breaking the minimum health factor. Accounts already past the limit
// report zero.
func (h *HealthCalculator) MaxMintable(account common.Address) (*big.Int, error) {
	adjusted, err := h.adjustedCollateralUSD(account)
	if err != nil {
		return nil, err
	}
	headroom, err := precision.Sub(adjusted, h.ledger.Debt(account))
	if err == precision.ErrUnderflow {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, err
	}
	return headroom, nil
}

// RedeemableOverhead converts the account's mintable headroom into units of
// the asset, clamped to the balance actually held: the estimate never
// reports more than the account could physically withdraw.
func (h *HealthCalculator) RedeemableOverhead(account, asset common.Address) (*big.Int, error) {
	headroom, err := h.MaxMintable(account)
	if err != nil {
		return nil, err
	}
	amount, err := h.ledger.CollateralAmountFromUSD(asset, headroom)
	if err != nil {
		return nil, err
	}
	held := h.ledger.CollateralBalance(account, asset)
	if amount.Cmp(held) > 0 {
		return held, nil
	}
	return amount, nil
}
