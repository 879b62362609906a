// Package fixedpoint implements the scalar arithmetic the CDP engine needs
// across its three precision domains, on 256-bit unsigned integers.
package fixedpoint

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

var (
	// ErrOverflow is returned when a computation would not fit in 256 bits.
	// Per the specification this indicates a specification violation and the
	// caller should treat it as fatal.
	ErrOverflow = errors.New("fixedpoint: arithmetic overflow")
	// ErrDivisionByZero is returned when a computation's denominator is zero.
	// Unreachable for in-spec inputs; fatal if observed.
	ErrDivisionByZero = errors.New("fixedpoint: division by zero")
	// ErrInvalidPrice is returned when a raw oracle price is non-positive.
	ErrInvalidPrice = errors.New("fixedpoint: invalid price")
)

// Precision domains, see spec §4.1.
var (
	// TokenPrecision is 1e18, used for collateral amounts, debt amounts, and
	// the health factor itself.
	TokenPrecision = uint256.NewInt(1_000_000_000_000_000_000)
	// OraclePrecision is 1e8, the raw price feed unit.
	OraclePrecision = uint256.NewInt(100_000_000)
	// PriceLift is 1e10 such that OraclePrecision * PriceLift = TokenPrecision.
	PriceLift = uint256.NewInt(10_000_000_000)
)

// MaxUint256 is the saturating maximum of the 256-bit unsigned domain, used
// to represent an infinite health factor when a position carries no debt.
func MaxUint256() *uint256.Int {
	return new(uint256.Int).Not(uint256.NewInt(0))
}

// MulDiv computes floor(a*b/c) using a big.Int intermediate so the a*b
// product is never truncated by the 256-bit width before the division is
// applied, then converts the quotient back to a uint256.Int, returning
// ErrOverflow if it no longer fits.
func MulDiv(a, b, c *uint256.Int) (*uint256.Int, error) {
	if a == nil || b == nil {
		return uint256.NewInt(0), nil
	}
	if c == nil || c.IsZero() {
		return nil, ErrDivisionByZero
	}
	product := new(big.Int).Mul(a.ToBig(), b.ToBig())
	product.Quo(product, c.ToBig())
	result, overflow := uint256.FromBig(product)
	if overflow {
		return nil, ErrOverflow
	}
	return result, nil
}

// mulMulDiv computes floor(a*b*c/d), used by UsdValueOf where three factors
// must be combined before dividing.
func mulMulDiv(a, b, c, d *uint256.Int) (*uint256.Int, error) {
	if d == nil || d.IsZero() {
		return nil, ErrDivisionByZero
	}
	product := new(big.Int).Mul(a.ToBig(), b.ToBig())
	product.Mul(product, c.ToBig())
	product.Quo(product, d.ToBig())
	result, overflow := uint256.FromBig(product)
	if overflow {
		return nil, ErrOverflow
	}
	return result, nil
}

// UsdValueOf computes rawPrice * PriceLift * amount / TokenPrecision, the USD
// value (in token precision) of `amount` units of an asset quoted at
// `rawPrice` (oracle precision). rawPrice must be strictly positive.
func UsdValueOf(rawPrice, amount *uint256.Int) (*uint256.Int, error) {
	if rawPrice == nil || rawPrice.IsZero() {
		return nil, ErrInvalidPrice
	}
	if amount == nil {
		amount = uint256.NewInt(0)
	}
	return mulMulDiv(rawPrice, PriceLift, amount, TokenPrecision)
}

// TokenAmountFromUsd computes usd * TokenPrecision / (rawPrice * PriceLift),
// the asset amount (token precision) worth `usd` (token precision) at
// `rawPrice`. rawPrice must be strictly positive.
func TokenAmountFromUsd(rawPrice, usd *uint256.Int) (*uint256.Int, error) {
	if rawPrice == nil || rawPrice.IsZero() {
		return nil, ErrInvalidPrice
	}
	if usd == nil {
		usd = uint256.NewInt(0)
	}
	denom := new(big.Int).Mul(rawPrice.ToBig(), PriceLift.ToBig())
	if denom.Sign() == 0 {
		return nil, ErrDivisionByZero
	}
	numerator := new(big.Int).Mul(usd.ToBig(), TokenPrecision.ToBig())
	numerator.Quo(numerator, denom)
	result, overflow := uint256.FromBig(numerator)
	if overflow {
		return nil, ErrOverflow
	}
	return result, nil
}
