package liquiditymath

import (
	"fmt"
	"math/big"

	"github.com/defistate/defistate-amm-go/engine"
	"github.com/holiman/uint256"
)

var (
	maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	maxInt128  = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	minInt128  = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))

	// Both wrap engine.ErrArithmeticOverflow so callers can match either.
	ErrLiquidityOverflow  = fmt.Errorf("liquidity overflow: %w", engine.ErrArithmeticOverflow)
	ErrLiquidityUnderflow = fmt.Errorf("liquidity underflow: %w", engine.ErrArithmeticOverflow)
	ErrNetOutOfRange      = fmt.Errorf("liquidity net outside int128: %w", engine.ErrArithmeticOverflow)
)

// AddDelta adds a signed liquidity delta to an unsigned liquidity value,
// returning an error if the operation results in an overflow or underflow.
// x is not modified.
func AddDelta(x *uint256.Int, y *big.Int) (*uint256.Int, error) {
	if x == nil || y == nil {
		return nil, engine.ErrNilAmount
	}
	if !InInt128(y) {
		return nil, fmt.Errorf("%w: delta %s", ErrNetOutOfRange, y.String())
	}

	dest := new(big.Int).Add(x.ToBig(), y)
	if dest.Sign() < 0 {
		return nil, fmt.Errorf("%w: %s + (%s)", ErrLiquidityUnderflow, x.Dec(), y.String())
	}
	if dest.Cmp(maxUint128) > 0 {
		return nil, fmt.Errorf("%w: %s + %s", ErrLiquidityOverflow, x.Dec(), y.String())
	}
	return uint256.MustFromBig(dest), nil
}

// AddNet returns net + delta, or net - delta when negate is set, bounded to int128.
func AddNet(net, delta *big.Int, negate bool) (*big.Int, error) {
	if net == nil || delta == nil {
		return nil, engine.ErrNilAmount
	}
	dest := new(big.Int)
	if negate {
		dest.Sub(net, delta)
	} else {
		dest.Add(net, delta)
	}
	if !InInt128(dest) {
		return nil, fmt.Errorf("%w: %s", ErrNetOutOfRange, dest.String())
	}
	return dest, nil
}

// InInt128 reports whether v fits in a signed 128-bit integer.
func InInt128(v *big.Int) bool {
	return v.Cmp(minInt128) >= 0 && v.Cmp(maxInt128) <= 0
}
