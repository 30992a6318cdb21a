// Package swapmath computes a single swap step within one initialized-tick range.
package swapmath

import (
	"github.com/defistate/defistate-amm-go/engine"
	"github.com/defistate/defistate-amm-go/protocols/concentrated/sqrtpricemath"
	"github.com/holiman/uint256"
)

var (
	feeDenominator = engine.FeeDenominator.Uint256()
	one            = uint256.NewInt(1)
)

// Step is the outcome of one ComputeSwapStep call.
type Step struct {
	SqrtRatioNextX96 *uint256.Int
	AmountIn         *uint256.Int
	AmountOut        *uint256.Int
	FeeAmount        *uint256.Int
}

// ComputeSwapStep swaps amountRemaining (an input amount when exactIn, an output amount otherwise)
// from sqrtRatioCurrentX96 towards sqrtRatioTargetX96 and reports how far the price moved.
// The swap direction follows from the two prices: a target at or below the current price is zeroForOne.
func ComputeSwapStep(
	sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, amountRemaining *uint256.Int,
	exactIn bool,
	fee engine.Fee,
) (Step, error) {
	if err := fee.Validate(); err != nil {
		return Step{}, err
	}
	zeroForOne := !sqrtRatioCurrentX96.Lt(sqrtRatioTargetX96)
	feeUnits := fee.Uint256()
	feeComplement := new(uint256.Int).Sub(feeDenominator, feeUnits)

	var (
		step = Step{AmountIn: new(uint256.Int), AmountOut: new(uint256.Int), FeeAmount: new(uint256.Int)}
		err  error
	)

	if exactIn {
		amountRemainingLessFee, _ := new(uint256.Int).MulDivOverflow(amountRemaining, feeComplement, feeDenominator)
		if zeroForOne {
			step.AmountIn, err = sqrtpricemath.GetAmount0Delta(sqrtRatioTargetX96, sqrtRatioCurrentX96, liquidity, true)
		} else {
			step.AmountIn, err = sqrtpricemath.GetAmount1Delta(sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, true)
		}
		if err != nil {
			return Step{}, err
		}
		if !amountRemainingLessFee.Lt(step.AmountIn) {
			step.SqrtRatioNextX96 = sqrtRatioTargetX96.Clone()
		} else {
			step.SqrtRatioNextX96, err = sqrtpricemath.GetNextSqrtPriceFromInput(sqrtRatioCurrentX96, liquidity, amountRemainingLessFee, zeroForOne)
		}
	} else {
		if zeroForOne {
			step.AmountOut, err = sqrtpricemath.GetAmount1Delta(sqrtRatioTargetX96, sqrtRatioCurrentX96, liquidity, false)
		} else {
			step.AmountOut, err = sqrtpricemath.GetAmount0Delta(sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, false)
		}
		if err != nil {
			return Step{}, err
		}
		if !amountRemaining.Lt(step.AmountOut) {
			step.SqrtRatioNextX96 = sqrtRatioTargetX96.Clone()
		} else {
			step.SqrtRatioNextX96, err = sqrtpricemath.GetNextSqrtPriceFromOutput(sqrtRatioCurrentX96, liquidity, amountRemaining, zeroForOne)
		}
	}
	if err != nil {
		return Step{}, err
	}

	reachedTarget := sqrtRatioTargetX96.Eq(step.SqrtRatioNextX96)

	// Recompute amounts for the price actually reached.
	if zeroForOne {
		if !(reachedTarget && exactIn) {
			if step.AmountIn, err = sqrtpricemath.GetAmount0Delta(step.SqrtRatioNextX96, sqrtRatioCurrentX96, liquidity, true); err != nil {
				return Step{}, err
			}
		}
		if !(reachedTarget && !exactIn) {
			if step.AmountOut, err = sqrtpricemath.GetAmount1Delta(step.SqrtRatioNextX96, sqrtRatioCurrentX96, liquidity, false); err != nil {
				return Step{}, err
			}
		}
	} else {
		if !(reachedTarget && exactIn) {
			if step.AmountIn, err = sqrtpricemath.GetAmount1Delta(sqrtRatioCurrentX96, step.SqrtRatioNextX96, liquidity, true); err != nil {
				return Step{}, err
			}
		}
		if !(reachedTarget && !exactIn) {
			if step.AmountOut, err = sqrtpricemath.GetAmount0Delta(sqrtRatioCurrentX96, step.SqrtRatioNextX96, liquidity, false); err != nil {
				return Step{}, err
			}
		}
	}

	// The output of an exact-output step never exceeds what was asked for.
	if !exactIn && step.AmountOut.Gt(amountRemaining) {
		step.AmountOut.Set(amountRemaining)
	}

	if exactIn && !reachedTarget {
		// The whole remaining input is consumed; whatever did not move the price is fee.
		step.FeeAmount.Sub(amountRemaining, step.AmountIn)
		return step, nil
	}
	feeAmount, overflow := new(uint256.Int).MulDivOverflow(step.AmountIn, feeUnits, feeComplement)
	if overflow {
		return Step{}, sqrtpricemath.ErrAmountOverflow
	}
	if !new(uint256.Int).MulMod(step.AmountIn, feeUnits, feeComplement).IsZero() {
		feeAmount.Add(feeAmount, one)
	}
	step.FeeAmount = feeAmount
	return step, nil
}
