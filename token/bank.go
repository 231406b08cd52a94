package token

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	errInsufficientBalance = errors.New("token: insufficient balance")
	errInvalidAmount       = errors.New("token: amount must be positive")
)

// Bank is an in-memory ERC20-style ledger. It backs both collateral and debt
// assets in tests and in the local custody mode of the daemon. The operator
// account is the implicit caller for Transfer and Burn and holds unlimited
// allowance for TransferFrom, mirroring the approval the engine custody
// account receives in production wiring.
type Bank struct {
	mu       sync.Mutex
	decimals uint8
	operator common.Address
	balances map[common.Address]*big.Int
	supply   *big.Int
}

// NewBank constructs an empty ledger quoting balances at the given decimals.
func NewBank(decimals uint8, operator common.Address) *Bank {
	return &Bank{
		decimals: decimals,
		operator: operator,
		balances: make(map[common.Address]*big.Int),
		supply:   big.NewInt(0),
	}
}

func (b *Bank) balance(account common.Address) *big.Int {
	if bal, ok := b.balances[account]; ok {
		return bal
	}
	bal := big.NewInt(0)
	b.balances[account] = bal
	return bal
}

// SetBalance seeds an account balance, adjusting total supply accordingly.
func (b *Bank) SetBalance(account common.Address, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	prev := b.balance(account)
	b.supply = new(big.Int).Sub(b.supply, prev)
	next := big.NewInt(0)
	if amount != nil {
		next = new(big.Int).Set(amount)
	}
	b.balances[account] = next
	b.supply = new(big.Int).Add(b.supply, next)
}

// BalanceOf returns a copy of the account balance.
func (b *Bank) BalanceOf(account common.Address) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return new(big.Int).Set(b.balance(account))
}

// TotalSupply returns a copy of the outstanding supply.
func (b *Bank) TotalSupply() *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return new(big.Int).Set(b.supply)
}

// Decimals reports the ledger's native precision.
func (b *Bank) Decimals() (uint8, error) {
	return b.decimals, nil
}

// Transfer moves amount from the operator account to the recipient.
func (b *Bank) Transfer(to common.Address, amount *big.Int) (bool, error) {
	return b.TransferFrom(b.operator, to, amount)
}

// TransferFrom moves amount between arbitrary accounts.
func (b *Bank) TransferFrom(from, to common.Address, amount *big.Int) (bool, error) {
	if amount == nil || amount.Sign() <= 0 {
		return false, errInvalidAmount
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	src := b.balance(from)
	if src.Cmp(amount) < 0 {
		return false, errInsufficientBalance
	}
	b.balances[from] = new(big.Int).Sub(src, amount)
	b.balances[to] = new(big.Int).Add(b.balance(to), amount)
	return true, nil
}

// Mint credits freshly issued units to the account.
func (b *Bank) Mint(account common.Address, amount *big.Int) (bool, error) {
	if amount == nil || amount.Sign() <= 0 {
		return false, errInvalidAmount
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[account] = new(big.Int).Add(b.balance(account), amount)
	b.supply = new(big.Int).Add(b.supply, amount)
	return true, nil
}

// Burn destroys amount units held by the operator account.
func (b *Bank) Burn(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return errInvalidAmount
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	held := b.balance(b.operator)
	if held.Cmp(amount) < 0 {
		return errInsufficientBalance
	}
	b.balances[b.operator] = new(big.Int).Sub(held, amount)
	b.supply = new(big.Int).Sub(b.supply, amount)
	return nil
}
