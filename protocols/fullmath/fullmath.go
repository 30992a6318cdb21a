// Package fullmath provides overflow-checked unsigned 128-bit arithmetic on top of uint256.
// Operands must fit in 128 bits; intermediates use up to 512 bits; results that do not fit back
// into 128 bits fail with engine.ErrArithmeticOverflow instead of wrapping.
package fullmath

import (
	"errors"
	"fmt"

	"github.com/defistate/defistate-amm-go/engine"
	"github.com/holiman/uint256"
)

var (
	// MaxUint128 is 2^128 - 1.
	MaxUint128 = new(uint256.Int).SubUint64(new(uint256.Int).Lsh(uint256.NewInt(1), 128), 1)

	// ErrDivisionByZero is returned when a divisor is zero.
	ErrDivisionByZero = errors.New("division by zero")

	one = uint256.NewInt(1)
)

// Check returns ErrNilAmount for nil and ErrArithmeticOverflow for values wider than 128 bits.
func Check(name string, v *uint256.Int) error {
	if v == nil {
		return fmt.Errorf("%w: %s", engine.ErrNilAmount, name)
	}
	if v.Gt(MaxUint128) {
		return fmt.Errorf("%w: %s (%s) exceeds 128 bits", engine.ErrArithmeticOverflow, name, v.Dec())
	}
	return nil
}

func fit(op string, v *uint256.Int) (*uint256.Int, error) {
	if v.Gt(MaxUint128) {
		return nil, fmt.Errorf("%w: %s result %s exceeds 128 bits", engine.ErrArithmeticOverflow, op, v.Dec())
	}
	return v, nil
}

// Add returns a + b.
func Add(a, b *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, fmt.Errorf("%w: add", engine.ErrArithmeticOverflow)
	}
	return fit("add", z)
}

// Sub returns a - b and fails if b > a.
func Sub(a, b *uint256.Int) (*uint256.Int, error) {
	z, underflow := new(uint256.Int).SubOverflow(a, b)
	if underflow {
		return nil, fmt.Errorf("%w: sub underflow (%s - %s)", engine.ErrArithmeticOverflow, a.Dec(), b.Dec())
	}
	return z, nil
}

// Mul returns a * b.
func Mul(a, b *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return nil, fmt.Errorf("%w: mul", engine.ErrArithmeticOverflow)
	}
	return fit("mul", z)
}

// MulDiv returns floor(a * b / d).
func MulDiv(a, b, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, ErrDivisionByZero
	}
	z, overflow := new(uint256.Int).MulDivOverflow(a, b, d)
	if overflow {
		return nil, fmt.Errorf("%w: mulDiv", engine.ErrArithmeticOverflow)
	}
	return fit("mulDiv", z)
}

// MulDivRoundingUp returns ceil(a * b / d).
func MulDivRoundingUp(a, b, d *uint256.Int) (*uint256.Int, error) {
	z, err := MulDiv(a, b, d)
	if err != nil {
		return nil, err
	}
	// a*b may not fit in 256 bits, so the remainder is taken in 512 bits via MulMod.
	if new(uint256.Int).MulMod(a, b, d).IsZero() {
		return z, nil
	}
	return Add(z, one)
}

// SaturatingSub returns a - b, or zero when b > a.
func SaturatingSub(a, b *uint256.Int) *uint256.Int {
	if b.Gt(a) {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(a, b)
}

// WrappingSub returns (a - b) mod 2^128.
func WrappingSub(a, b *uint256.Int) *uint256.Int {
	z := new(uint256.Int).Sub(a, b)
	return z.And(z, MaxUint128)
}

// Sqrt returns floor(sqrt(a * b)). The product of two 128-bit values always fits in 256 bits,
// so only the operands are checked.
func Sqrt(a, b *uint256.Int) *uint256.Int {
	product := new(uint256.Int).Mul(a, b)
	return product.Sqrt(product)
}
