// Package token declares the transfer contracts of the external asset
// ledgers the engine collaborates with, and an in-memory implementation used
// by tests and the local daemon. The engine treats a non-true return and a
// returned error identically: both abort the in-flight operation.
package token

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Collateral is the transfer surface of an approved collateral asset.
// Transfer is scoped to the handle's operator account (the engine custody
// address in production wiring).
type Collateral interface {
	Transfer(to common.Address, amount *big.Int) (bool, error)
	TransferFrom(from, to common.Address, amount *big.Int) (bool, error)
	Decimals() (uint8, error)
}

// Debt is the ledger of the USD-pegged debt asset. Burn is scoped to the
// operator account holding the supply to destroy.
type Debt interface {
	Mint(account common.Address, amount *big.Int) (bool, error)
	Burn(amount *big.Int) error
	TransferFrom(from, to common.Address, amount *big.Int) (bool, error)
	Decimals() (uint8, error)
}
