// Package events defines the typed audit events the engine emits and the
// append-only journal that persists them.
package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Event represents a structured state change emitted by the engine.
type Event interface {
	EventType() string
	Attributes() map[string]string
}

// Emitter broadcasts events to downstream subscribers (journal, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies Emitter while discarding all events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

const (
	TypeCollateralDeposited = "collateral.deposited"
	TypeCollateralRedeemed  = "collateral.redeemed"
	TypeDebtMinted          = "debt.minted"
	TypeDebtBurned          = "debt.burned"
	TypeLiquidated          = "position.liquidated"
)

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// CollateralDeposited records a collateral balance increase.
type CollateralDeposited struct {
	Account common.Address
	Asset   common.Address
	Amount  *big.Int
}

func (CollateralDeposited) EventType() string { return TypeCollateralDeposited }

func (e CollateralDeposited) Attributes() map[string]string {
	return map[string]string{
		"account": e.Account.Hex(),
		"asset":   e.Asset.Hex(),
		"amount":  amountString(e.Amount),
	}
}

// CollateralRedeemed records collateral leaving an account's position.
type CollateralRedeemed struct {
	From   common.Address
	To     common.Address
	Asset  common.Address
	Amount *big.Int
}

func (CollateralRedeemed) EventType() string { return TypeCollateralRedeemed }

func (e CollateralRedeemed) Attributes() map[string]string {
	return map[string]string{
		"from":   e.From.Hex(),
		"to":     e.To.Hex(),
		"asset":  e.Asset.Hex(),
		"amount": amountString(e.Amount),
	}
}

// DebtMinted records new debt issued against an account.
type DebtMinted struct {
	Account common.Address
	Amount  *big.Int
}

func (DebtMinted) EventType() string { return TypeDebtMinted }

func (e DebtMinted) Attributes() map[string]string {
	return map[string]string{
		"account": e.Account.Hex(),
		"amount":  amountString(e.Amount),
	}
}

// DebtBurned records debt repaid and destroyed.
type DebtBurned struct {
	Account common.Address
	Amount  *big.Int
}

func (DebtBurned) EventType() string { return TypeDebtBurned }

func (e DebtBurned) Attributes() map[string]string {
	return map[string]string{
		"account": e.Account.Hex(),
		"amount":  amountString(e.Amount),
	}
}

// Liquidated records a third-party liquidation together with both health
// factor readings so auditors can verify the improvement guarantee.
type Liquidated struct {
	Liquidator           common.Address
	Debtor               common.Address
	Asset                common.Address
	Seized               *big.Int
	Burned               *big.Int
	StartingHealthFactor *big.Int
	EndingHealthFactor   *big.Int
}

func (Liquidated) EventType() string { return TypeLiquidated }

func (e Liquidated) Attributes() map[string]string {
	return map[string]string{
		"liquidator":     e.Liquidator.Hex(),
		"debtor":         e.Debtor.Hex(),
		"asset":          e.Asset.Hex(),
		"seized":         amountString(e.Seized),
		"burned":         amountString(e.Burned),
		"startingHealth": amountString(e.StartingHealthFactor),
		"endingHealth":   amountString(e.EndingHealthFactor),
	}
}
