// Package precision implements the overflow-checked fixed-point arithmetic
// used by the solvency core. Collateral assets and price feeds carry
// arbitrary, mutually different decimal precisions; every USD valuation has
// to be rescaled to the protocol's canonical 18-decimal scale without ever
// wrapping around. The public API operates on big.Int values while all
// intermediate arithmetic runs on 256-bit unsigned integers with explicit
// overflow reporting.
package precision

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

// MaxDecimals caps the decimal precision the math library accepts. The
// canonical protocol precision is 10^MaxDecimals.
const MaxDecimals = 18

var (
	ErrOverflow         = errors.New("precision: arithmetic overflow")
	ErrUnderflow        = errors.New("precision: arithmetic underflow")
	ErrDivisionByZero   = errors.New("precision: division by zero")
	ErrDecimalsOverflow = errors.New("precision: decimal count exceeds supported maximum")
)

var (
	precision  = mustBigInt("1000000000000000000")
	maxUint256 = new(uint256.Int).SetAllOne()
)

func mustBigInt(value string) *big.Int {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		panic("invalid big integer constant")
	}
	return v
}

// Precision returns the canonical 18-decimal scaling factor (10^18).
func Precision() *big.Int {
	return new(big.Int).Set(precision)
}

// MaxValue returns the largest representable 256-bit value. Health factors of
// debt-free accounts saturate at this value.
func MaxValue() *big.Int {
	return maxUint256.ToBig()
}

// fromBig converts a public big.Int operand into the internal 256-bit
// representation. Negative values and values wider than 256 bits are rejected
// as overflow since the ledger only deals in unsigned quantities.
func fromBig(v *big.Int) (*uint256.Int, error) {
	if v == nil || v.Sign() < 0 {
		return nil, ErrOverflow
	}
	out, overflow := uint256.FromBig(v)
	if overflow {
		return nil, ErrOverflow
	}
	return out, nil
}

func pow10(n int) *uint256.Int {
	exp := uint256.NewInt(uint64(n))
	return new(uint256.Int).Exp(uint256.NewInt(10), exp)
}

// Add returns a+b, failing with ErrOverflow when the sum does not fit 256 bits.
func Add(a, b *big.Int) (*big.Int, error) {
	x, err := fromBig(a)
	if err != nil {
		return nil, err
	}
	y, err := fromBig(b)
	if err != nil {
		return nil, err
	}
	sum, carry := new(uint256.Int).AddOverflow(x, y)
	if carry {
		return nil, ErrOverflow
	}
	return sum.ToBig(), nil
}

// Sub returns a-b, failing with ErrUnderflow when b exceeds a.
func Sub(a, b *big.Int) (*big.Int, error) {
	x, err := fromBig(a)
	if err != nil {
		return nil, err
	}
	y, err := fromBig(b)
	if err != nil {
		return nil, err
	}
	diff, borrow := new(uint256.Int).SubOverflow(x, y)
	if borrow {
		return nil, ErrUnderflow
	}
	return diff.ToBig(), nil
}

// Mul returns a*b with exact overflow detection.
func Mul(a, b *big.Int) (*big.Int, error) {
	x, err := fromBig(a)
	if err != nil {
		return nil, err
	}
	y, err := fromBig(b)
	if err != nil {
		return nil, err
	}
	product, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		return nil, ErrOverflow
	}
	return product.ToBig(), nil
}

// Div returns a/b using truncating integer division.
func Div(a, b *big.Int) (*big.Int, error) {
	x, err := fromBig(a)
	if err != nil {
		return nil, err
	}
	y, err := fromBig(b)
	if err != nil {
		return nil, err
	}
	if y.IsZero() {
		return nil, ErrDivisionByZero
	}
	return new(uint256.Int).Div(x, y).ToBig(), nil
}

// Pow returns base^exp via repeated checked multiplication. Exponents in this
// codebase are decimal counts, so the loop is short and every step is
// overflow-checked.
func Pow(base *big.Int, exp uint8) (*big.Int, error) {
	x, err := fromBig(base)
	if err != nil {
		return nil, err
	}
	result := uint256.NewInt(1)
	for i := uint8(0); i < exp; i++ {
		next, overflow := new(uint256.Int).MulOverflow(result, x)
		if overflow {
			return nil, ErrOverflow
		}
		result = next
	}
	return result.ToBig(), nil
}

// MulWithPrecision multiplies two fixed-point values carrying aDec and bDec
// decimal digits respectively and rescales the product to the canonical
// 18-decimal representation. When the combined decimal count falls short of
// 18 the raw product is scaled up; when it exceeds 18 the excess digits are
// truncated away.
func MulWithPrecision(a *big.Int, aDec uint8, b *big.Int, bDec uint8) (*big.Int, error) {
	if aDec > MaxDecimals || bDec > MaxDecimals {
		return nil, ErrDecimalsOverflow
	}
	x, err := fromBig(a)
	if err != nil {
		return nil, err
	}
	y, err := fromBig(b)
	if err != nil {
		return nil, err
	}
	raw, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		return nil, ErrOverflow
	}
	combined := int(aDec) + int(bDec)
	switch {
	case combined < MaxDecimals:
		scaled, overflow := new(uint256.Int).MulOverflow(raw, pow10(MaxDecimals-combined))
		if overflow {
			return nil, ErrOverflow
		}
		raw = scaled
	case combined > MaxDecimals:
		raw.Div(raw, pow10(combined-MaxDecimals))
	}
	return raw.ToBig(), nil
}

// DivWithPrecision divides a (aDec decimals) by b (bDec decimals) and
// rescales the quotient to 18 decimals. The operand with fewer decimals is
// padded so both sides share one scale before the division.
func DivWithPrecision(a *big.Int, aDec uint8, b *big.Int, bDec uint8) (*big.Int, error) {
	if aDec > MaxDecimals || bDec > MaxDecimals {
		return nil, ErrDecimalsOverflow
	}
	x, err := fromBig(a)
	if err != nil {
		return nil, err
	}
	y, err := fromBig(b)
	if err != nil {
		return nil, err
	}
	if y.IsZero() {
		return nil, ErrDivisionByZero
	}
	// a/b carries aDec-bDec decimals, so shifting the numerator by
	// 18+bDec-aDec lands the quotient on the canonical scale. The shift is
	// non-negative because both operands are capped at 18 decimals.
	shift := MaxDecimals + int(bDec) - int(aDec)
	numerator, overflow := new(uint256.Int).MulOverflow(x, pow10(shift))
	if overflow {
		return nil, ErrOverflow
	}
	return numerator.Div(numerator, y).ToBig(), nil
}

// Rescale converts v from one decimal precision to another. Scaling down
// truncates, matching integer division semantics everywhere else in the core.
func Rescale(v *big.Int, from, to uint8) (*big.Int, error) {
	if from > MaxDecimals || to > MaxDecimals {
		return nil, ErrDecimalsOverflow
	}
	x, err := fromBig(v)
	if err != nil {
		return nil, err
	}
	switch {
	case to > from:
		scaled, overflow := new(uint256.Int).MulOverflow(x, pow10(int(to-from)))
		if overflow {
			return nil, ErrOverflow
		}
		x = scaled
	case from > to:
		x.Div(x, pow10(int(from-to)))
	}
	return x.ToBig(), nil
}
