package engine

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/AndriyAntonenko/defi-stablecoin/oracle"
	"github.com/AndriyAntonenko/defi-stablecoin/precision"
)

// Liquidator sizes liquidation transfers and derives liquidation price
// estimates. The facade enforces the surrounding protocol rules (eligibility,
// improvement, liquidator solvency).
type Liquidator struct {
	ledger *Ledger
	health *HealthCalculator
}

// NewLiquidator binds the component to the ledger and health calculator.
func NewLiquidator(ledger *Ledger, health *HealthCalculator) *Liquidator {
	return &Liquidator{ledger: ledger, health: health}
}

// Profit describes the collateral a liquidator receives for covering debt.
// All three amounts carry the asset's own decimals.
type Profit struct {
	SeizedFromDebt *big.Int
	Bonus          *big.Int
	TotalSeized    *big.Int
}

// EstimateProfit converts debtToCover (USD, 18 decimals) into units of the
// asset and applies the liquidation bonus on top.
func (lq *Liquidator) EstimateProfit(asset common.Address, debtToCover *big.Int) (Profit, error) {
	if debtToCover == nil || debtToCover.Sign() <= 0 {
		return Profit{}, ErrAmountMustBePositive
	}
	seized, err := lq.ledger.CollateralAmountFromUSD(asset, debtToCover)
	if err != nil {
		return Profit{}, err
	}
	scaledBonus, err := precision.Mul(seized, liquidationBonus)
	if err != nil {
		return Profit{}, err
	}
	bonus, err := precision.Div(scaledBonus, liquidationPrecision)
	if err != nil {
		return Profit{}, err
	}
	total, err := precision.Add(seized, bonus)
	if err != nil {
		return Profit{}, err
	}
	return Profit{SeizedFromDebt: seized, Bonus: bonus, TotalSeized: total}, nil
}

// EstimateLiquidationPrice solves for the price of the asset at which the
// account's health factor would sit exactly at the minimum, holding every
// other collateral value fixed. It returns zero when the account holds none
// of the asset, when the account is already liquidatable, or when the rest
// of the collateral alone keeps the position healthy at any price of the
// asset. The result is scaled to the oracle's quote decimals.
func (lq *Liquidator) EstimateLiquidationPrice(asset common.Address, account common.Address) (*big.Int, error) {
	if !lq.ledger.registry.IsAllowed(asset) {
		return nil, ErrAssetNotAllowed
	}
	held := lq.ledger.CollateralBalance(account, asset)
	if held.Sign() == 0 {
		return big.NewInt(0), nil
	}
	factor, err := lq.health.HealthFactor(account)
	if err != nil {
		return nil, err
	}
	if factor.Cmp(minHealthFactor) < 0 {
		return big.NewInt(0), nil
	}
	debt := lq.ledger.Debt(account)
	if debt.Sign() == 0 {
		return big.NewInt(0), nil
	}
	// The health factor sits at the minimum when total collateral value
	// equals debt * LiquidationPrecision / LiquidationThreshold.
	scaled, err := precision.Mul(debt, liquidationPrecision)
	if err != nil {
		return nil, err
	}
	required, err := precision.Div(scaled, liquidationThreshold)
	if err != nil {
		return nil, err
	}
	rest, err := lq.ledger.CollateralValueUSDExcluding(account, asset)
	if err != nil {
		return nil, err
	}
	needed, err := precision.Sub(required, rest)
	if err == precision.ErrUnderflow {
		// The other collateral alone covers the requirement; no price of
		// this asset can make the position liquidatable.
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, err
	}
	handle, err := lq.ledger.bank.Collateral(asset)
	if err != nil {
		return nil, err
	}
	decimals, err := handle.Decimals()
	if err != nil {
		return nil, err
	}
	price, err := precision.DivWithPrecision(needed, precision.MaxDecimals, held, decimals)
	if err != nil {
		return nil, err
	}
	return precision.Rescale(price, precision.MaxDecimals, oracle.ExpectedDecimals)
}
