package concentrated

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/defistate/defistate-amm-go/engine"
	concentrated "github.com/defistate/defistate-amm-go/protocols/concentrated"
	"github.com/defistate/defistate-amm-go/protocols/concentrated/liquiditymath"
	"github.com/defistate/defistate-amm-go/protocols/concentrated/sqrtpricemath"
	"github.com/defistate/defistate-amm-go/protocols/concentrated/swapmath"
	"github.com/defistate/defistate-amm-go/protocols/concentrated/tickmath"
	"github.com/defistate/defistate-amm-go/protocols/fullmath"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	ErrTokenMismatch = errors.New("token mismatch")
	// ErrInsufficientLiquidity is returned when the pool's ticks run out before an unlimited swap is filled.
	ErrInsufficientLiquidity = fmt.Errorf("%w: insufficient liquidity", engine.ErrAmountExceedsReserve)
	ErrInvalidPriceLimit     = errors.New("invalid sqrt price limit")

	q96 = new(big.Float).SetInt(sqrtpricemath.Q96.ToBig())
)

// SwapResult describes a simulated swap. AmountIn includes FeeAmount.
type SwapResult struct {
	AmountIn     *uint256.Int
	AmountOut    *uint256.Int
	FeeAmount    *uint256.Int
	SqrtPriceX96 *uint256.Int
	Tick         int32
	Liquidity    *uint256.Int
	TicksCrossed int
}

func validatePool(pool concentrated.Pool) error {
	if pool.SqrtPriceX96 == nil || pool.Liquidity == nil {
		return fmt.Errorf("%w: pool %d has no price or liquidity", engine.ErrInvalidReserves, pool.ID)
	}
	if pool.SqrtPriceX96.Lt(tickmath.MinSqrtRatio) || !pool.SqrtPriceX96.Lt(tickmath.MaxSqrtRatio) {
		return fmt.Errorf("%w: pool %d sqrt price %s out of range", engine.ErrInvalidReserves, pool.ID, pool.SqrtPriceX96.Dec())
	}
	if err := fullmath.Check("liquidity", pool.Liquidity); err != nil {
		return err
	}
	return pool.Fee().Validate()
}

// direction reports whether tokenIn is the pool's token0.
func direction(tokenIn, tokenOut common.Address, pool concentrated.Pool) (zeroForOne bool, err error) {
	switch {
	case tokenIn == pool.Token0 && tokenOut == pool.Token1:
		return true, nil
	case tokenIn == pool.Token1 && tokenOut == pool.Token0:
		return false, nil
	}
	return false, fmt.Errorf("%w: %s -> %s is not served by pool %d", ErrTokenMismatch, tokenIn.Hex(), tokenOut.Hex(), pool.ID)
}

// Swap simulates a swap of amount against pool, walking initialized ticks until the amount is
// used up or the price reaches sqrtPriceLimitX96. amount is an input amount when exactIn and an
// output amount otherwise. A nil limit means no limit; such a swap must fill completely or it fails
// with ErrInsufficientLiquidity. With an explicit limit a partial fill is returned as is.
// The pool is never mutated.
func Swap(
	amount *uint256.Int,
	exactIn bool,
	sqrtPriceLimitX96 *uint256.Int,
	tokenIn, tokenOut common.Address,
	pool concentrated.Pool,
) (*SwapResult, error) {
	if err := fullmath.Check("amount", amount); err != nil {
		return nil, err
	}
	zeroForOne, err := direction(tokenIn, tokenOut, pool)
	if err != nil {
		return nil, err
	}
	if err := validatePool(pool); err != nil {
		return nil, err
	}

	limit := sqrtPriceLimitX96
	switch {
	case limit == nil && zeroForOne:
		limit = new(uint256.Int).AddUint64(tickmath.MinSqrtRatio, 1)
	case limit == nil:
		limit = new(uint256.Int).SubUint64(tickmath.MaxSqrtRatio, 1)
	case zeroForOne && (!limit.Lt(pool.SqrtPriceX96) || !limit.Gt(tickmath.MinSqrtRatio)),
		!zeroForOne && (!limit.Gt(pool.SqrtPriceX96) || !limit.Lt(tickmath.MaxSqrtRatio)):
		return nil, fmt.Errorf("%w: %s", ErrInvalidPriceLimit, limit.Dec())
	}

	var (
		fee        = pool.Fee()
		remaining  = amount.Clone()
		calculated = new(uint256.Int)
		fees       = new(uint256.Int)
		price      = pool.SqrtPriceX96.Clone()
		liquidity  = pool.Liquidity.Clone()
		tick       = pool.Tick
		crossed    int
	)

	for !remaining.IsZero() && !price.Eq(limit) {
		start := price

		tickNext, initialized := concentrated.NextInitializedTick(pool.Ticks, tick, zeroForOne)
		if !initialized {
			// Past the last initialized tick the swap runs to the edge of the price range.
			tickNext = tickmath.MaxTick
			if zeroForOne {
				tickNext = tickmath.MinTick
			}
		}
		tickNext = max(tickmath.MinTick, min(tickmath.MaxTick, tickNext))

		priceNext := new(uint256.Int)
		if err := tickmath.GetSqrtRatioAtTick(priceNext, tickNext); err != nil {
			return nil, err
		}
		target := priceNext
		if (zeroForOne && priceNext.Lt(limit)) || (!zeroForOne && priceNext.Gt(limit)) {
			target = limit
		}

		step, err := swapmath.ComputeSwapStep(start, target, liquidity, remaining, exactIn, fee)
		if err != nil {
			return nil, fmt.Errorf("pool %d at tick %d: %w", pool.ID, tick, err)
		}
		price = step.SqrtRatioNextX96
		paid := new(uint256.Int).Add(step.AmountIn, step.FeeAmount)
		if exactIn {
			remaining.Sub(remaining, paid)
			calculated.Add(calculated, step.AmountOut)
		} else {
			remaining.Sub(remaining, step.AmountOut)
			calculated.Add(calculated, paid)
		}
		fees.Add(fees, step.FeeAmount)

		switch {
		case price.Eq(priceNext):
			if initialized {
				crossedTick, _ := concentrated.FindTick(pool.Ticks, tickNext)
				net := new(big.Int)
				if crossedTick.LiquidityNet != nil {
					net.Set(crossedTick.LiquidityNet)
				}
				if zeroForOne {
					net.Neg(net)
				}
				if liquidity, err = liquiditymath.AddDelta(liquidity, net); err != nil {
					return nil, fmt.Errorf("pool %d crossing tick %d: %w", pool.ID, tickNext, err)
				}
				crossed++
			}
			tick = tickNext
			if zeroForOne {
				tick = tickNext - 1
			}
		case !price.Eq(start):
			if tick, err = tickmath.GetTickAtSqrtRatio(price); err != nil {
				return nil, err
			}
		}
	}

	if !remaining.IsZero() && sqrtPriceLimitX96 == nil {
		return nil, fmt.Errorf("%w: pool %d left %s of %s unfilled", ErrInsufficientLiquidity, pool.ID, remaining.Dec(), amount.Dec())
	}
	if err := fullmath.Check("calculated amount", calculated); err != nil {
		return nil, err
	}

	result := &SwapResult{
		FeeAmount:    fees,
		SqrtPriceX96: price,
		Tick:         tick,
		Liquidity:    liquidity,
		TicksCrossed: crossed,
	}
	filled := new(uint256.Int).Sub(amount, remaining)
	if exactIn {
		result.AmountIn, result.AmountOut = filled, calculated
	} else {
		result.AmountIn, result.AmountOut = calculated, filled
	}
	return result, nil
}

// GetAmountOut returns the output of an exact-input swap with no price limit.
func GetAmountOut(amountIn *uint256.Int, tokenIn, tokenOut common.Address, pool concentrated.Pool) (*uint256.Int, error) {
	result, err := Swap(amountIn, true, nil, tokenIn, tokenOut, pool)
	if err != nil {
		return nil, err
	}
	return result.AmountOut, nil
}

// GetAmountIn returns the input, fee included, needed to receive exactly amountOut.
func GetAmountIn(amountOut *uint256.Int, tokenIn, tokenOut common.Address, pool concentrated.Pool) (*uint256.Int, error) {
	result, err := Swap(amountOut, false, nil, tokenIn, tokenOut, pool)
	if err != nil {
		return nil, err
	}
	return result.AmountIn, nil
}

// SimulateSwap returns the result of an exact-input swap and the pool state after it.
// The new state has fresh price and liquidity values but shares the read-only Ticks slice.
func SimulateSwap(amountIn *uint256.Int, tokenIn, tokenOut common.Address, pool concentrated.Pool) (*SwapResult, concentrated.Pool, error) {
	result, err := Swap(amountIn, true, nil, tokenIn, tokenOut, pool)
	if err != nil {
		return nil, concentrated.Pool{}, err
	}

	newPoolState := pool
	newPoolState.SqrtPriceX96 = result.SqrtPriceX96.Clone()
	newPoolState.Liquidity = result.Liquidity.Clone()
	newPoolState.Tick = result.Tick
	return result, newPoolState, nil
}

// GetVirtualReserves returns the constant-product reserves equivalent to the pool's in-range liquidity:
// reserve0 = L / sqrtP and reserve1 = L * sqrtP.
func GetVirtualReserves(tokenIn, tokenOut common.Address, pool concentrated.Pool) (reserveIn, reserveOut *uint256.Int, err error) {
	zeroForOne, err := direction(tokenIn, tokenOut, pool)
	if err != nil {
		return nil, nil, err
	}
	if err := validatePool(pool); err != nil {
		return nil, nil, err
	}

	reserve0, overflow := new(uint256.Int).MulDivOverflow(pool.Liquidity, sqrtpricemath.Q96, pool.SqrtPriceX96)
	if overflow {
		return nil, nil, fmt.Errorf("%w: reserve0", engine.ErrArithmeticOverflow)
	}
	reserve1, overflow := new(uint256.Int).MulDivOverflow(pool.Liquidity, pool.SqrtPriceX96, sqrtpricemath.Q96)
	if overflow {
		return nil, nil, fmt.Errorf("%w: reserve1", engine.ErrArithmeticOverflow)
	}

	if zeroForOne {
		return reserve0, reserve1, nil
	}
	return reserve1, reserve0, nil
}

// GetSpotPrice returns the marginal price of tokenIn in units of tokenOut, before fees and
// without decimal adjustment: (sqrtPriceX96 / 2^96)^2 for token0 and its inverse for token1.
func GetSpotPrice(tokenIn, tokenOut common.Address, pool concentrated.Pool) (float64, error) {
	zeroForOne, err := direction(tokenIn, tokenOut, pool)
	if err != nil {
		return 0, err
	}
	if err := validatePool(pool); err != nil {
		return 0, err
	}

	sqrtPrice := new(big.Float).SetPrec(256).SetInt(pool.SqrtPriceX96.ToBig())
	sqrtPrice.Quo(sqrtPrice, q96)
	price := new(big.Float).SetPrec(256).Mul(sqrtPrice, sqrtPrice)
	if !zeroForOne {
		price.Quo(new(big.Float).SetPrec(256).SetInt64(1), price)
	}
	spot, _ := price.Float64()
	return spot, nil
}
