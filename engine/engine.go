// Package engine implements the overcollateralized synthetic-asset issuance
// core: accounts deposit approved collateral, mint units of a USD-pegged
// debt asset against it, and are liquidated by third parties when the
// collateral value falls below the required safety margin. The facade
// orchestrates the registry, ledger, health calculator and liquidation sizer
// as atomic all-or-nothing operations.
package engine

import (
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/AndriyAntonenko/defi-stablecoin/events"
	"github.com/AndriyAntonenko/defi-stablecoin/observability/metrics"
	"github.com/AndriyAntonenko/defi-stablecoin/oracle"
	"github.com/AndriyAntonenko/defi-stablecoin/token"
)

// Engine is the single entry point for state-mutating operations. Every
// operation runs to completion or aborts entirely; aborted operations
// restore the position snapshots taken at entry and discard staged events.
type Engine struct {
	guard        reentryGuard
	registry     *Registry
	gateway      *oracle.Gateway
	ledger       *Ledger
	health       *HealthCalculator
	liquidations *Liquidator
	bank         TokenBank
	debt         token.Debt
	custody      common.Address
	emitter      events.Emitter
	metrics      *metrics.EngineMetrics
	log          *slog.Logger
	staged       []events.Event
}

// Option configures optional engine collaborators.
type Option func(*Engine)

// WithEmitter routes committed events to the given emitter.
func WithEmitter(emitter events.Emitter) Option {
	return func(e *Engine) {
		if emitter != nil {
			e.emitter = emitter
		}
	}
}

// WithLogger assigns the structured logger used for operation outcomes.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.log = logger
		}
	}
}

// WithMetrics wires prometheus instrumentation.
func WithMetrics(m *metrics.EngineMetrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New assembles the engine over an already-validated registry. The custody
// address is the account collateral transfers settle into and debt
// repayments are burned from.
func New(gateway *oracle.Gateway, registry *Registry, bank TokenBank, debt token.Debt, custody common.Address, opts ...Option) *Engine {
	ledger := NewLedger(registry, gateway, bank)
	health := NewHealthCalculator(ledger)
	e := &Engine{
		registry:     registry,
		gateway:      gateway,
		ledger:       ledger,
		health:       health,
		liquidations: NewLiquidator(ledger, health),
		bank:         bank,
		debt:         debt,
		custody:      custody,
		emitter:      events.NoopEmitter{},
		log:          slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) stage(evt events.Event) {
	e.staged = append(e.staged, evt)
}

// run wraps a state-mutating operation with the re-entry guard, position
// snapshots and event staging. The snapshot covers every account the
// operation may touch; on failure the ledger is rolled back and staged
// events are discarded so no partial state ever becomes visible.
func (e *Engine) run(op string, accounts []common.Address, fn func() error) error {
	if err := e.guard.enter(); err != nil {
		e.metrics.Aborted(op, errorKind(err))
		return err
	}
	defer e.guard.exit()

	snap := e.ledger.snapshot(accounts...)
	e.staged = e.staged[:0]

	if err := fn(); err != nil {
		e.ledger.restore(snap)
		e.staged = e.staged[:0]
		e.metrics.Aborted(op, errorKind(err))
		e.log.Warn("operation aborted", "op", op, "kind", errorKind(err), "err", err)
		return err
	}

	for _, evt := range e.staged {
		e.emitter.Emit(evt)
	}
	e.staged = e.staged[:0]
	e.metrics.Committed(op)
	e.log.Info("operation committed", "op", op)
	return nil
}

func transferFailed(err error) error {
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	return ErrTransferFailed
}

// transferCollateral requests an outbound transfer from custody.
func (e *Engine) transferCollateral(to, asset common.Address, amount *big.Int) error {
	handle, err := e.bank.Collateral(asset)
	if err != nil {
		return err
	}
	ok, err := handle.Transfer(to, amount)
	if err != nil || !ok {
		return transferFailed(err)
	}
	return nil
}

// depositLocked updates the ledger before the inbound transfer is requested
// (checks-effects-interactions): a reentrant call attempted by the transfer
// implementation observes already-updated balances and is blocked by the
// guard.
func (e *Engine) depositLocked(account, asset common.Address, amount *big.Int) error {
	if err := e.ledger.Deposit(account, asset, amount); err != nil {
		return err
	}
	e.stage(events.CollateralDeposited{Account: account, Asset: asset, Amount: amount})
	handle, err := e.bank.Collateral(asset)
	if err != nil {
		return err
	}
	ok, err := handle.TransferFrom(account, e.custody, amount)
	if err != nil || !ok {
		return transferFailed(err)
	}
	return nil
}

func (e *Engine) mintLocked(account common.Address, amount *big.Int) error {
	if err := e.ledger.RecordMint(account, amount); err != nil {
		return err
	}
	if err := e.health.requireHealthy(account); err != nil {
		return err
	}
	ok, err := e.debt.Mint(account, amount)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMintFailed, err)
	}
	if !ok {
		return ErrMintFailed
	}
	e.stage(events.DebtMinted{Account: account, Amount: amount})
	return nil
}

// redeemLocked moves collateral out of from's position toward to, verifying
// the remaining position before the irreversible outbound transfer.
func (e *Engine) redeemLocked(from, to, asset common.Address, amount *big.Int) error {
	if err := e.ledger.Redeem(from, asset, amount); err != nil {
		return err
	}
	if err := e.health.requireHealthy(from); err != nil {
		return err
	}
	e.stage(events.CollateralRedeemed{From: from, To: to, Asset: asset, Amount: amount})
	return e.transferCollateral(to, asset, amount)
}

// settleBurn collects the payer's debt tokens into custody and destroys
// them. Callers must have finished every ledger mutation and health check
// first: the movement is irreversible.
func (e *Engine) settleBurn(payer common.Address, amount *big.Int) error {
	ok, err := e.debt.TransferFrom(payer, e.custody, amount)
	if err != nil || !ok {
		return transferFailed(err)
	}
	if err := e.debt.Burn(amount); err != nil {
		return transferFailed(err)
	}
	return nil
}

// reissueDebt undoes a settled burn when a later interaction in the same
// operation fails, so the rolled-back ledger and the token balances stay
// consistent.
func (e *Engine) reissueDebt(payer common.Address, amount *big.Int) {
	if _, err := e.debt.Mint(payer, amount); err != nil {
		e.log.Error("reissuing debt after settlement failure", "account", payer, "err", err)
	}
}

// DepositCollateral credits the account's position and requests the inbound
// collateral transfer.
func (e *Engine) DepositCollateral(account, asset common.Address, amount *big.Int) error {
	return e.run("deposit_collateral", []common.Address{account}, func() error {
		return e.depositLocked(account, asset, amount)
	})
}

// MintDebt issues new debt against the account's collateral. The operation
// aborts when the resulting health factor would fall below the minimum.
func (e *Engine) MintDebt(account common.Address, amount *big.Int) error {
	return e.run("mint_debt", []common.Address{account}, func() error {
		return e.mintLocked(account, amount)
	})
}

// DepositCollateralAndMintDebt performs a deposit followed by a mint as one
// atomic operation. Both ledger effects and the combined health check run
// before any token movement so that an abort never strands a settled
// transfer.
func (e *Engine) DepositCollateralAndMintDebt(account, asset common.Address, amount, mintAmount *big.Int) error {
	return e.run("deposit_and_mint", []common.Address{account}, func() error {
		if err := e.ledger.Deposit(account, asset, amount); err != nil {
			return err
		}
		if err := e.ledger.RecordMint(account, mintAmount); err != nil {
			return err
		}
		if err := e.health.requireHealthy(account); err != nil {
			return err
		}
		handle, err := e.bank.Collateral(asset)
		if err != nil {
			return err
		}
		ok, err := handle.TransferFrom(account, e.custody, amount)
		if err != nil || !ok {
			return transferFailed(err)
		}
		ok, err = e.debt.Mint(account, mintAmount)
		if err != nil || !ok {
			// The inbound transfer already settled; send it back so the
			// rolled-back ledger and the token balances stay consistent.
			if _, backErr := handle.Transfer(account, amount); backErr != nil {
				e.log.Error("returning collateral after mint failure", "account", account, "asset", asset, "err", backErr)
			}
			if err != nil {
				return fmt.Errorf("%w: %v", ErrMintFailed, err)
			}
			return ErrMintFailed
		}
		e.stage(events.CollateralDeposited{Account: account, Asset: asset, Amount: amount})
		e.stage(events.DebtMinted{Account: account, Amount: mintAmount})
		return nil
	})
}

// RedeemCollateral withdraws collateral back to the account, subject to the
// post-condition health check.
func (e *Engine) RedeemCollateral(account, asset common.Address, amount *big.Int) error {
	return e.run("redeem_collateral", []common.Address{account}, func() error {
		return e.redeemLocked(account, account, asset, amount)
	})
}

// BurnDebt repays part of the account's debt with its own debt tokens.
// Burning debt can only raise the health factor; the check stays for
// symmetry with the other self-authorized operations and runs before the
// irreversible token settlement.
func (e *Engine) BurnDebt(account common.Address, amount *big.Int) error {
	return e.run("burn_debt", []common.Address{account}, func() error {
		if err := e.ledger.RecordBurn(account, amount); err != nil {
			return err
		}
		if err := e.health.requireHealthy(account); err != nil {
			return err
		}
		if err := e.settleBurn(account, amount); err != nil {
			return err
		}
		e.stage(events.DebtBurned{Account: account, Amount: amount})
		return nil
	})
}

// RedeemCollateralForDebt burns debt and then redeems collateral as one
// atomic operation. Both ledger mutations and the health check run before
// any token movement; if the outbound collateral transfer fails after the
// debt settlement, the settled burn is reissued.
func (e *Engine) RedeemCollateralForDebt(account, asset common.Address, redeemAmount, burnAmount *big.Int) error {
	return e.run("redeem_for_debt", []common.Address{account}, func() error {
		if err := e.ledger.RecordBurn(account, burnAmount); err != nil {
			return err
		}
		if err := e.ledger.Redeem(account, asset, redeemAmount); err != nil {
			return err
		}
		if err := e.health.requireHealthy(account); err != nil {
			return err
		}
		handle, err := e.bank.Collateral(asset)
		if err != nil {
			return err
		}
		if err := e.settleBurn(account, burnAmount); err != nil {
			return err
		}
		if ok, err := handle.Transfer(account, redeemAmount); err != nil || !ok {
			e.reissueDebt(account, burnAmount)
			return transferFailed(err)
		}
		e.stage(events.DebtBurned{Account: account, Amount: burnAmount})
		e.stage(events.CollateralRedeemed{From: account, To: account, Asset: asset, Amount: redeemAmount})
		return nil
	})
}

// Liquidate lets a third party cover part of an unhealthy debtor's debt in
// exchange for a bonus-bearing share of their collateral. The operation is
// judged by strict improvement of the debtor's health factor rather than
// immediate restoration above the minimum, and must not leave the liquidator
// undercollateralized.
func (e *Engine) Liquidate(liquidator, debtor, asset common.Address, debtToCover *big.Int) error {
	return e.run("liquidate", []common.Address{liquidator, debtor}, func() error {
		if debtToCover == nil || debtToCover.Sign() <= 0 {
			return ErrAmountMustBePositive
		}
		startingHF, err := e.health.HealthFactor(debtor)
		if err != nil {
			return err
		}
		if startingHF.Cmp(minHealthFactor) >= 0 {
			return ErrHealthFactorOk
		}
		profit, err := e.liquidations.EstimateProfit(asset, debtToCover)
		if err != nil {
			return err
		}
		if err := e.ledger.Redeem(debtor, asset, profit.TotalSeized); err != nil {
			return err
		}
		if err := e.ledger.RecordBurn(debtor, debtToCover); err != nil {
			return err
		}
		endingHF, err := e.health.HealthFactor(debtor)
		if err != nil {
			return err
		}
		if endingHF.Cmp(startingHF) <= 0 {
			return ErrHealthFactorNotImproved
		}
		if err := e.health.requireHealthy(liquidator); err != nil {
			return err
		}
		if err := e.settleBurn(liquidator, debtToCover); err != nil {
			return err
		}
		if err := e.transferCollateral(liquidator, asset, profit.TotalSeized); err != nil {
			e.reissueDebt(liquidator, debtToCover)
			return err
		}
		e.stage(events.CollateralRedeemed{From: debtor, To: liquidator, Asset: asset, Amount: profit.TotalSeized})
		e.stage(events.Liquidated{
			Liquidator:           liquidator,
			Debtor:               debtor,
			Asset:                asset,
			Seized:               profit.TotalSeized,
			Burned:               debtToCover,
			StartingHealthFactor: startingHF,
			EndingHealthFactor:   endingHF,
		})
		return nil
	})
}

// AccountInformation returns the account's outstanding debt and total
// collateral value in USD.
func (e *Engine) AccountInformation(account common.Address) (*big.Int, *big.Int, error) {
	value, err := e.ledger.CollateralValueUSD(account)
	if err != nil {
		return nil, nil, err
	}
	return e.ledger.Debt(account), value, nil
}

// CollateralBalance returns the account's deposited amount of the asset.
func (e *Engine) CollateralBalance(account, asset common.Address) *big.Int {
	return e.ledger.CollateralBalance(account, asset)
}

// HealthFactor returns the account's current solvency ratio.
func (e *Engine) HealthFactor(account common.Address) (*big.Int, error) {
	return e.health.HealthFactor(account)
}

// MaxMintable estimates how much additional debt the account could take on.
func (e *Engine) MaxMintable(account common.Address) (*big.Int, error) {
	return e.health.MaxMintable(account)
}

// RedeemableOverhead estimates how much of the asset the account could
// withdraw without breaking the minimum health factor.
func (e *Engine) RedeemableOverhead(account, asset common.Address) (*big.Int, error) {
	return e.health.RedeemableOverhead(account, asset)
}

// EstimateProfit sizes the collateral a liquidator would receive for
// covering debtToCover of a debtor's position in the asset.
func (e *Engine) EstimateProfit(asset common.Address, debtToCover *big.Int) (Profit, error) {
	return e.liquidations.EstimateProfit(asset, debtToCover)
}

// EstimateLiquidationPrice solves for the asset price at which the account
// would become liquidatable.
func (e *Engine) EstimateLiquidationPrice(asset, account common.Address) (*big.Int, error) {
	return e.liquidations.EstimateLiquidationPrice(asset, account)
}

// Assets lists the registered collateral assets.
func (e *Engine) Assets() []common.Address {
	return e.registry.Assets()
}

// FeedOf exposes the asset's oracle binding.
func (e *Engine) FeedOf(asset common.Address) (oracle.Feed, bool) {
	return e.registry.FeedOf(asset)
}
