package engine

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/AndriyAntonenko/defi-stablecoin/oracle"
	"github.com/AndriyAntonenko/defi-stablecoin/precision"
	"github.com/AndriyAntonenko/defi-stablecoin/token"
)

// TokenBank resolves the transfer handle for a registered collateral asset.
// Asset decimal precision is always queried through the handle, never cached
// by the ledger.
type TokenBank interface {
	Collateral(asset common.Address) (token.Collateral, error)
}

// StaticBank is a map-backed TokenBank.
type StaticBank map[common.Address]token.Collateral

// Collateral implements TokenBank.
func (b StaticBank) Collateral(asset common.Address) (token.Collateral, error) {
	handle, ok := b[asset]
	if !ok || handle == nil {
		return nil, ErrUnknownToken
	}
	return handle, nil
}

// Position is an account's collateral balances and outstanding debt.
// Collateral amounts are scaled by the asset's own decimals; debt carries the
// canonical 18-decimal scale. Positions are created implicitly on first use
// and never destroyed; zero balances are a valid terminal state.
type Position struct {
	Collateral map[common.Address]*big.Int
	Debt       *big.Int
}

func newPosition() *Position {
	return &Position{
		Collateral: make(map[common.Address]*big.Int),
		Debt:       big.NewInt(0),
	}
}

func (p *Position) clone() *Position {
	if p == nil {
		return nil
	}
	clone := newPosition()
	clone.Debt = new(big.Int).Set(p.Debt)
	for asset, amount := range p.Collateral {
		clone.Collateral[asset] = new(big.Int).Set(amount)
	}
	return clone
}

// Ledger exclusively owns per-account collateral balances and debt. It is
// pure bookkeeping: external transfers are requested by the facade so that
// solvency checks can run after tentative mutation but before any
// irreversible external effect.
type Ledger struct {
	registry  *Registry
	gateway   *oracle.Gateway
	bank      TokenBank
	positions map[common.Address]*Position
}

// NewLedger constructs an empty ledger over the registered assets.
func NewLedger(registry *Registry, gateway *oracle.Gateway, bank TokenBank) *Ledger {
	return &Ledger{
		registry:  registry,
		gateway:   gateway,
		bank:      bank,
		positions: make(map[common.Address]*Position),
	}
}

func (l *Ledger) position(account common.Address) *Position {
	pos, ok := l.positions[account]
	if !ok {
		pos = newPosition()
		l.positions[account] = pos
	}
	return pos
}

func (l *Ledger) balance(pos *Position, asset common.Address) *big.Int {
	bal, ok := pos.Collateral[asset]
	if !ok {
		bal = big.NewInt(0)
		pos.Collateral[asset] = bal
	}
	return bal
}

// Deposit increments the account's balance in the asset.
func (l *Ledger) Deposit(account, asset common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrAmountMustBePositive
	}
	if !l.registry.IsAllowed(asset) {
		return ErrAssetNotAllowed
	}
	pos := l.position(account)
	pos.Collateral[asset] = new(big.Int).Add(l.balance(pos, asset), amount)
	return nil
}

// Redeem decrements the account's balance in the asset. An amount exceeding
// the held balance fails by underflow, which is the natural guard against
// over-withdrawal.
func (l *Ledger) Redeem(account, asset common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrAmountMustBePositive
	}
	if !l.registry.IsAllowed(asset) {
		return ErrAssetNotAllowed
	}
	pos := l.position(account)
	remaining, err := precision.Sub(l.balance(pos, asset), amount)
	if err != nil {
		return err
	}
	pos.Collateral[asset] = remaining
	return nil
}

// RecordMint increases the account's debt.
func (l *Ledger) RecordMint(account common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrAmountMustBePositive
	}
	pos := l.position(account)
	next, err := precision.Add(pos.Debt, amount)
	if err != nil {
		return err
	}
	pos.Debt = next
	return nil
}

// RecordBurn decreases the account's debt, failing by underflow when the
// amount exceeds the recorded debt.
func (l *Ledger) RecordBurn(account common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrAmountMustBePositive
	}
	pos := l.position(account)
	next, err := precision.Sub(pos.Debt, amount)
	if err != nil {
		return err
	}
	pos.Debt = next
	return nil
}

// CollateralBalance returns a copy of the account's balance in the asset.
func (l *Ledger) CollateralBalance(account, asset common.Address) *big.Int {
	pos, ok := l.positions[account]
	if !ok {
		return big.NewInt(0)
	}
	bal, ok := pos.Collateral[asset]
	if !ok {
		return big.NewInt(0)
	}
	return new(big.Int).Set(bal)
}

// Debt returns a copy of the account's outstanding debt.
func (l *Ledger) Debt(account common.Address) *big.Int {
	pos, ok := l.positions[account]
	if !ok {
		return big.NewInt(0)
	}
	return new(big.Int).Set(pos.Debt)
}

// assetValueUSD prices the given amount of asset at the freshest oracle
// quote, rescaled to 18 decimals.
func (l *Ledger) assetValueUSD(asset common.Address, amount *big.Int) (*big.Int, error) {
	feed, ok := l.registry.FeedOf(asset)
	if !ok {
		return nil, ErrAssetNotAllowed
	}
	price, _, err := l.gateway.LatestPrice(feed)
	if err != nil {
		return nil, err
	}
	handle, err := l.bank.Collateral(asset)
	if err != nil {
		return nil, err
	}
	decimals, err := handle.Decimals()
	if err != nil {
		return nil, err
	}
	return precision.MulWithPrecision(price, oracle.ExpectedDecimals, amount, decimals)
}

// CollateralValueUSD sums the account's holdings across every registered
// asset at fresh oracle prices. A stale feed on any registered asset halts
// the valuation rather than pricing around it.
func (l *Ledger) CollateralValueUSD(account common.Address) (*big.Int, error) {
	return l.collateralValueUSD(account, nil)
}

// CollateralValueUSDExcluding behaves like CollateralValueUSD but skips one
// asset. Liquidation price estimation uses it to hold the other collateral
// values fixed.
func (l *Ledger) CollateralValueUSDExcluding(account, skip common.Address) (*big.Int, error) {
	return l.collateralValueUSD(account, &skip)
}

func (l *Ledger) collateralValueUSD(account common.Address, skip *common.Address) (*big.Int, error) {
	total := big.NewInt(0)
	for _, asset := range l.registry.Assets() {
		if skip != nil && asset == *skip {
			continue
		}
		value, err := l.assetValueUSD(asset, l.CollateralBalance(account, asset))
		if err != nil {
			return nil, err
		}
		total, err = precision.Add(total, value)
		if err != nil {
			return nil, err
		}
	}
	return total, nil
}

// CollateralAmountFromUSD converts a USD amount (18 decimals) into units of
// the asset at the freshest oracle price, expressed in the asset's own
// decimals.
func (l *Ledger) CollateralAmountFromUSD(asset common.Address, usd *big.Int) (*big.Int, error) {
	feed, ok := l.registry.FeedOf(asset)
	if !ok {
		return nil, ErrAssetNotAllowed
	}
	price, _, err := l.gateway.LatestPrice(feed)
	if err != nil {
		return nil, err
	}
	quantity, err := precision.DivWithPrecision(usd, precision.MaxDecimals, price, oracle.ExpectedDecimals)
	if err != nil {
		return nil, err
	}
	handle, err := l.bank.Collateral(asset)
	if err != nil {
		return nil, err
	}
	decimals, err := handle.Decimals()
	if err != nil {
		return nil, err
	}
	return precision.Rescale(quantity, precision.MaxDecimals, decimals)
}

// snapshot deep-copies the positions of the listed accounts. Absent accounts
// snapshot as nil so restore can drop the implicitly created position again.
func (l *Ledger) snapshot(accounts ...common.Address) map[common.Address]*Position {
	snap := make(map[common.Address]*Position, len(accounts))
	for _, account := range accounts {
		snap[account] = l.positions[account].clone()
	}
	return snap
}

// restore reinstates a snapshot taken at operation entry.
func (l *Ledger) restore(snap map[common.Address]*Position) {
	for account, pos := range snap {
		if pos == nil {
			delete(l.positions, account)
			continue
		}
		l.positions[account] = pos
	}
}
