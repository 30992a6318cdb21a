// Package sqrtpricemath computes price movements and token deltas for Q64.96 square-root prices.
// Intermediates are 256 bits wide because sqrt prices themselves use up to 160.
package sqrtpricemath

import (
	"errors"
	"fmt"

	"github.com/defistate/defistate-amm-go/engine"
	"github.com/holiman/uint256"
)

// Resolution is the number of fractional bits in a Q64.96 price.
const Resolution = 96

var (
	// Q96 is 1 in Q64.96.
	Q96 = new(uint256.Int).Lsh(uint256.NewInt(1), Resolution)

	ErrLiquidityZero  = errors.New("liquidity must be greater than zero")
	ErrSqrtPriceZero  = errors.New("sqrt price must be greater than zero")
	ErrPriceOverflow  = fmt.Errorf("%w: sqrt price overflow", engine.ErrArithmeticOverflow)
	ErrPriceUnderflow = fmt.Errorf("%w: sqrt price underflow", engine.ErrArithmeticOverflow)
	ErrAmountOverflow = fmt.Errorf("%w: amount overflow", engine.ErrArithmeticOverflow)

	one = uint256.NewInt(1)
	// maxUint160 bounds every valid sqrt price.
	maxUint160 = new(uint256.Int).SubUint64(new(uint256.Int).Lsh(one, 160), 1)
)

// mulDiv returns floor(a*b/c) using a 512-bit intermediate.
func mulDiv(a, b, c *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).MulDivOverflow(a, b, c)
	if overflow {
		return nil, ErrAmountOverflow
	}
	return z, nil
}

// mulDivRoundingUp returns ceil(a*b/c).
func mulDivRoundingUp(a, b, c *uint256.Int) (*uint256.Int, error) {
	z, err := mulDiv(a, b, c)
	if err != nil {
		return nil, err
	}
	if !new(uint256.Int).MulMod(a, b, c).IsZero() {
		if z.Eq(new(uint256.Int).SetAllOne()) {
			return nil, ErrAmountOverflow
		}
		z.Add(z, one)
	}
	return z, nil
}

// divRoundingUp returns ceil(a/b).
func divRoundingUp(a, b *uint256.Int) *uint256.Int {
	z := new(uint256.Int).Div(a, b)
	if !new(uint256.Int).Mod(a, b).IsZero() {
		z.Add(z, one)
	}
	return z
}

// GetNextSqrtPriceFromAmount0RoundingUp returns the price after adding (add) or removing amount of token0.
// The result is rounded up so the price moves less than the exact value in both directions.
func GetNextSqrtPriceFromAmount0RoundingUp(sqrtPX96, liquidity, amount *uint256.Int, add bool) (*uint256.Int, error) {
	if amount.IsZero() {
		return sqrtPX96.Clone(), nil
	}
	numerator1 := new(uint256.Int).Lsh(liquidity, Resolution)

	product, productOverflow := new(uint256.Int).MulOverflow(amount, sqrtPX96)
	if add {
		if !productOverflow {
			denominator, sumOverflow := new(uint256.Int).AddOverflow(numerator1, product)
			if !sumOverflow {
				return mulDivRoundingUp(numerator1, sqrtPX96, denominator)
			}
		}
		// numerator1 / (numerator1 / sqrtP + amount) loses precision but cannot overflow.
		denominator, overflow := new(uint256.Int).AddOverflow(new(uint256.Int).Div(numerator1, sqrtPX96), amount)
		if overflow {
			return nil, ErrPriceOverflow
		}
		return divRoundingUp(numerator1, denominator), nil
	}

	if productOverflow || !numerator1.Gt(product) {
		return nil, ErrPriceUnderflow
	}
	denominator := new(uint256.Int).Sub(numerator1, product)
	next, err := mulDivRoundingUp(numerator1, sqrtPX96, denominator)
	if err != nil {
		return nil, err
	}
	if next.Gt(maxUint160) {
		return nil, ErrPriceOverflow
	}
	return next, nil
}

// GetNextSqrtPriceFromAmount1RoundingDown returns the price after adding (add) or removing amount of token1.
func GetNextSqrtPriceFromAmount1RoundingDown(sqrtPX96, liquidity, amount *uint256.Int, add bool) (*uint256.Int, error) {
	if add {
		quotient, err := mulDiv(amount, Q96, liquidity)
		if err != nil {
			return nil, err
		}
		next, overflow := new(uint256.Int).AddOverflow(sqrtPX96, quotient)
		if overflow || next.Gt(maxUint160) {
			return nil, ErrPriceOverflow
		}
		return next, nil
	}

	quotient, err := mulDivRoundingUp(amount, Q96, liquidity)
	if err != nil {
		return nil, err
	}
	if !sqrtPX96.Gt(quotient) {
		return nil, ErrPriceUnderflow
	}
	return new(uint256.Int).Sub(sqrtPX96, quotient), nil
}

// GetNextSqrtPriceFromInput returns the price after swapping amountIn into the pool.
func GetNextSqrtPriceFromInput(sqrtPX96, liquidity, amountIn *uint256.Int, zeroForOne bool) (*uint256.Int, error) {
	if sqrtPX96.IsZero() {
		return nil, ErrSqrtPriceZero
	}
	if liquidity.IsZero() {
		return nil, ErrLiquidityZero
	}
	if zeroForOne {
		return GetNextSqrtPriceFromAmount0RoundingUp(sqrtPX96, liquidity, amountIn, true)
	}
	return GetNextSqrtPriceFromAmount1RoundingDown(sqrtPX96, liquidity, amountIn, true)
}

// GetNextSqrtPriceFromOutput returns the price after taking amountOut out of the pool.
func GetNextSqrtPriceFromOutput(sqrtPX96, liquidity, amountOut *uint256.Int, zeroForOne bool) (*uint256.Int, error) {
	if sqrtPX96.IsZero() {
		return nil, ErrSqrtPriceZero
	}
	if liquidity.IsZero() {
		return nil, ErrLiquidityZero
	}
	if zeroForOne {
		return GetNextSqrtPriceFromAmount1RoundingDown(sqrtPX96, liquidity, amountOut, false)
	}
	return GetNextSqrtPriceFromAmount0RoundingUp(sqrtPX96, liquidity, amountOut, false)
}

// GetAmount0Delta returns liquidity * (sqrtB - sqrtA) / (sqrtA * sqrtB), the token0 needed to move
// between two prices. The prices may be passed in either order.
func GetAmount0Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity *uint256.Int, roundUp bool) (*uint256.Int, error) {
	if sqrtRatioAX96.Gt(sqrtRatioBX96) {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}
	if sqrtRatioAX96.IsZero() {
		return nil, ErrSqrtPriceZero
	}

	numerator1 := new(uint256.Int).Lsh(liquidity, Resolution)
	numerator2 := new(uint256.Int).Sub(sqrtRatioBX96, sqrtRatioAX96)

	if roundUp {
		term, err := mulDivRoundingUp(numerator1, numerator2, sqrtRatioBX96)
		if err != nil {
			return nil, err
		}
		return divRoundingUp(term, sqrtRatioAX96), nil
	}
	term, err := mulDiv(numerator1, numerator2, sqrtRatioBX96)
	if err != nil {
		return nil, err
	}
	return term.Div(term, sqrtRatioAX96), nil
}

// GetAmount1Delta returns liquidity * (sqrtB - sqrtA), the token1 needed to move between two prices.
func GetAmount1Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity *uint256.Int, roundUp bool) (*uint256.Int, error) {
	if sqrtRatioAX96.Gt(sqrtRatioBX96) {
		sqrtRatioAX96, sqrtRatioBX96 = sqrtRatioBX96, sqrtRatioAX96
	}
	diff := new(uint256.Int).Sub(sqrtRatioBX96, sqrtRatioAX96)
	if roundUp {
		return mulDivRoundingUp(liquidity, diff, Q96)
	}
	return mulDiv(liquidity, diff, Q96)
}
