package cpmm

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/defistate/defistate-amm-go/engine"
	cpmm "github.com/defistate/defistate-amm-go/protocols/cpmm"
	"github.com/defistate/defistate-amm-go/protocols/fullmath"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	// feeDenominator is 100% in the ten-billion fee convention.
	feeDenominator = engine.FeeDenominator.Uint256()

	// ErrTokenMismatch is returned when the specified input/output tokens do not match the pool's tokens.
	ErrTokenMismatch = errors.New("token mismatch")
)

func validateReserves(reserveIn, reserveOut *uint256.Int) error {
	if err := fullmath.Check("reserveIn", reserveIn); err != nil {
		return err
	}
	if err := fullmath.Check("reserveOut", reserveOut); err != nil {
		return err
	}
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return fmt.Errorf("%w: reserveIn=%s reserveOut=%s", engine.ErrInvalidReserves, reserveIn.Dec(), reserveOut.Dec())
	}
	return nil
}

// FeeAmount returns floor(amountIn * fee / 1e10), the part of amountIn kept by the pool.
func FeeAmount(amountIn *uint256.Int, fee engine.Fee) (*uint256.Int, error) {
	if err := fullmath.Check("amountIn", amountIn); err != nil {
		return nil, err
	}
	if err := fee.Validate(); err != nil {
		return nil, err
	}
	return fullmath.MulDiv(amountIn, fee.Uint256(), feeDenominator)
}

// QuoteOutput returns the amount received for an exact amountIn.
//
//	amountInAfterFee = amountIn - floor(amountIn * fee / 1e10)
//	amountOut        = floor(reserveOut * amountInAfterFee / (reserveIn + amountInAfterFee))
//
// Flooring the output keeps reserveIn * reserveOut from ever decreasing.
func QuoteOutput(reserveIn, reserveOut, amountIn *uint256.Int, fee engine.Fee) (*uint256.Int, error) {
	if err := validateReserves(reserveIn, reserveOut); err != nil {
		return nil, err
	}
	feeAmount, err := FeeAmount(amountIn, fee)
	if err != nil {
		return nil, err
	}
	amountInAfterFee, err := fullmath.Sub(amountIn, feeAmount)
	if err != nil {
		return nil, err
	}
	denominator, err := fullmath.Add(reserveIn, amountInAfterFee)
	if err != nil {
		return nil, err
	}
	return fullmath.MulDiv(reserveOut, amountInAfterFee, denominator)
}

// QuoteInput returns the amount that must be paid to receive an exact amountOut.
//
//	amountInBeforeFee = ceil(reserveIn * amountOut / (reserveOut - amountOut))
//	amountIn          = ceil(amountInBeforeFee * 1e10 / (1e10 - fee))
//
// Both divisions round up so the pool never receives less than it requires.
func QuoteInput(reserveIn, reserveOut, amountOut *uint256.Int, fee engine.Fee) (*uint256.Int, error) {
	if err := validateReserves(reserveIn, reserveOut); err != nil {
		return nil, err
	}
	if err := fullmath.Check("amountOut", amountOut); err != nil {
		return nil, err
	}
	if err := fee.Validate(); err != nil {
		return nil, err
	}
	if !amountOut.Lt(reserveOut) {
		return nil, fmt.Errorf("%w: requested amountOut (%s) is >= reserveOut (%s)", engine.ErrAmountExceedsReserve, amountOut.Dec(), reserveOut.Dec())
	}

	remaining := new(uint256.Int).Sub(reserveOut, amountOut)
	amountInBeforeFee, err := fullmath.MulDivRoundingUp(reserveIn, amountOut, remaining)
	if err != nil {
		return nil, err
	}
	feeMultiplier := new(uint256.Int).Sub(feeDenominator, fee.Uint256())
	return fullmath.MulDivRoundingUp(amountInBeforeFee, feeDenominator, feeMultiplier)
}

// Price returns reserve1 / reserve0, the price of token0 denominated in token1.
func Price(reserve0, reserve1 *uint256.Int) (float64, error) {
	if err := fullmath.Check("reserve0", reserve0); err != nil {
		return 0, err
	}
	if err := fullmath.Check("reserve1", reserve1); err != nil {
		return 0, err
	}
	if reserve0.IsZero() {
		return 0, fmt.Errorf("%w: reserve0 is zero", engine.ErrInvalidReserves)
	}
	price, _ := new(big.Rat).SetFrac(reserve1.ToBig(), reserve0.ToBig()).Float64()
	return price, nil
}

// Liquidity returns floor(sqrt(reserve0 * reserve1)).
func Liquidity(reserve0, reserve1 *uint256.Int) (*uint256.Int, error) {
	if err := fullmath.Check("reserve0", reserve0); err != nil {
		return nil, err
	}
	if err := fullmath.Check("reserve1", reserve1); err != nil {
		return nil, err
	}
	return fullmath.Sqrt(reserve0, reserve1), nil
}

// GetReserves returns the reserves for the given token pair.
func GetReserves(tokenIn, tokenOut common.Address, pool cpmm.Pool) (reserveIn, reserveOut *uint256.Int, err error) {
	if tokenIn == pool.Token0 && tokenOut == pool.Token1 {
		return pool.Reserve0, pool.Reserve1, nil
	} else if tokenIn == pool.Token1 && tokenOut == pool.Token0 {
		return pool.Reserve1, pool.Reserve0, nil
	}
	return nil, nil, fmt.Errorf("%w: pool %d does not contain the pair %s -> %s", ErrTokenMismatch, pool.ID, tokenIn.Hex(), tokenOut.Hex())
}

// GetAmountOut prices an exact-input swap against a pool snapshot.
func GetAmountOut(amountIn *uint256.Int, tokenIn, tokenOut common.Address, pool cpmm.Pool) (*uint256.Int, error) {
	reserveIn, reserveOut, err := GetReserves(tokenIn, tokenOut, pool)
	if err != nil {
		return nil, err
	}
	return QuoteOutput(reserveIn, reserveOut, amountIn, pool.Fee)
}

// GetAmountIn prices an exact-output swap against a pool snapshot.
func GetAmountIn(amountOut *uint256.Int, tokenIn, tokenOut common.Address, pool cpmm.Pool) (*uint256.Int, error) {
	reserveIn, reserveOut, err := GetReserves(tokenIn, tokenOut, pool)
	if err != nil {
		return nil, err
	}
	return QuoteInput(reserveIn, reserveOut, amountOut, pool.Fee)
}

// GetSpotPrice returns the price of tokenIn denominated in tokenOut before any trade.
func GetSpotPrice(tokenIn, tokenOut common.Address, pool cpmm.Pool) (float64, error) {
	reserveIn, reserveOut, err := GetReserves(tokenIn, tokenOut, pool)
	if err != nil {
		return 0, err
	}
	if err := validateReserves(reserveIn, reserveOut); err != nil {
		return 0, err
	}
	return Price(reserveIn, reserveOut)
}

// SimulateSwap returns the output of a swap and the pool state after it. The fee stays in the pool.
// The input pool is never mutated.
func SimulateSwap(amountIn *uint256.Int, tokenIn, tokenOut common.Address, pool cpmm.Pool) (*uint256.Int, cpmm.Pool, error) {
	amountOut, err := GetAmountOut(amountIn, tokenIn, tokenOut, pool)
	if err != nil {
		return nil, cpmm.Pool{}, err
	}

	reserveIn, reserveOut, _ := GetReserves(tokenIn, tokenOut, pool)
	newReserveIn, err := fullmath.Add(reserveIn, amountIn)
	if err != nil {
		return nil, cpmm.Pool{}, err
	}
	newReserveOut, err := fullmath.Sub(reserveOut, amountOut)
	if err != nil {
		return nil, cpmm.Pool{}, err
	}

	newPoolState := pool
	if tokenIn == pool.Token0 {
		newPoolState.Reserve0, newPoolState.Reserve1 = newReserveIn, newReserveOut
	} else {
		newPoolState.Reserve1, newPoolState.Reserve0 = newReserveIn, newReserveOut
	}
	return amountOut, newPoolState, nil
}
