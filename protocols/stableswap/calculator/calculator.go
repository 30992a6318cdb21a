// Package stableswap prices swaps in pegged-asset pools.
//
// The curve is a deliberately simplified stand-in for the StableSwap invariant: D is the plain
// sum of balances and every swap executes at a 1:1 rate minus the fee. Balances and the
// amplification coefficient are not consulted when pricing; they are only validated.
package stableswap

import (
	"errors"
	"fmt"

	"github.com/defistate/defistate-amm-go/engine"
	"github.com/defistate/defistate-amm-go/protocols/fullmath"
	stableswap "github.com/defistate/defistate-amm-go/protocols/stableswap"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	feeDenominator = engine.FeeDenominator.Uint256()

	// ErrTokenMismatch is returned when the specified input/output tokens do not match the pool's tokens.
	ErrTokenMismatch = errors.New("token mismatch")
)

// Invariant returns the sum of balances.
func Invariant(balances []*uint256.Int) (*uint256.Int, error) {
	if len(balances) == 0 {
		return nil, fmt.Errorf("%w: empty balance set", engine.ErrInvalidReserves)
	}
	sum := new(uint256.Int)
	for i, balance := range balances {
		if err := fullmath.Check(fmt.Sprintf("balances[%d]", i), balance); err != nil {
			return nil, err
		}
		next, err := fullmath.Add(sum, balance)
		if err != nil {
			return nil, err
		}
		sum = next
	}
	return sum, nil
}

// FeeAmount returns floor(amountIn * fee / 1e10).
func FeeAmount(amountIn *uint256.Int, fee engine.Fee) (*uint256.Int, error) {
	if err := fullmath.Check("amountIn", amountIn); err != nil {
		return nil, err
	}
	if err := fee.Validate(); err != nil {
		return nil, err
	}
	return fullmath.MulDiv(amountIn, fee.Uint256(), feeDenominator)
}

// QuoteOutput returns amountIn - floor(amountIn * fee / 1e10).
func QuoteOutput(amountIn *uint256.Int, fee engine.Fee) (*uint256.Int, error) {
	feeAmount, err := FeeAmount(amountIn, fee)
	if err != nil {
		return nil, err
	}
	return fullmath.Sub(amountIn, feeAmount)
}

// QuoteInput returns amountOut + floor(amountOut * fee / (1e10 - fee)), the inverse of QuoteOutput
// up to fee rounding.
func QuoteInput(amountOut *uint256.Int, fee engine.Fee) (*uint256.Int, error) {
	if err := fullmath.Check("amountOut", amountOut); err != nil {
		return nil, err
	}
	if err := fee.Validate(); err != nil {
		return nil, err
	}
	feeMultiplier := new(uint256.Int).Sub(feeDenominator, fee.Uint256())
	feeAmount, err := fullmath.MulDiv(amountOut, fee.Uint256(), feeMultiplier)
	if err != nil {
		return nil, err
	}
	return fullmath.Add(amountOut, feeAmount)
}

// AdminFeeShare returns floor(feeAmount * adminFee / 1e10), the part of a swap fee owed to the admin.
func AdminFeeShare(feeAmount *uint256.Int, adminFee engine.Fee) (*uint256.Int, error) {
	if err := fullmath.Check("feeAmount", feeAmount); err != nil {
		return nil, err
	}
	if adminFee > engine.FeeDenominator {
		return nil, fmt.Errorf("%w: admin fee %d exceeds 100%%", engine.ErrInvalidFee, uint64(adminFee))
	}
	return fullmath.MulDiv(feeAmount, adminFee.Uint256(), feeDenominator)
}

// GetIndices resolves the pool positions of a token pair.
func GetIndices(tokenIn, tokenOut common.Address, pool stableswap.Pool) (in, out int, err error) {
	in, out = pool.IndexOf(tokenIn), pool.IndexOf(tokenOut)
	if in < 0 || out < 0 || in == out {
		return 0, 0, fmt.Errorf("%w: pool %d does not contain the pair %s -> %s", ErrTokenMismatch, pool.ID, tokenIn.Hex(), tokenOut.Hex())
	}
	return in, out, nil
}

// validatePool requires one non-zero balance per token.
func validatePool(pool stableswap.Pool) error {
	if len(pool.Balances) == 0 || len(pool.Balances) != len(pool.Tokens) {
		return fmt.Errorf("%w: pool %d has %d balances for %d tokens", engine.ErrInvalidReserves, pool.ID, len(pool.Balances), len(pool.Tokens))
	}
	for i, balance := range pool.Balances {
		if err := fullmath.Check(fmt.Sprintf("balances[%d]", i), balance); err != nil {
			return err
		}
		if balance.IsZero() {
			return fmt.Errorf("%w: pool %d balance %d is zero", engine.ErrInvalidReserves, pool.ID, i)
		}
	}
	return nil
}

func checkDrain(amountOut *uint256.Int, out int, pool stableswap.Pool) error {
	if !amountOut.Lt(pool.Balances[out]) {
		return fmt.Errorf("%w: amountOut (%s) is >= balance (%s)", engine.ErrAmountExceedsReserve, amountOut.Dec(), pool.Balances[out].Dec())
	}
	return nil
}

// GetAmountOut prices an exact-input swap against a pool snapshot. A result that would drain the
// output balance is refused.
func GetAmountOut(amountIn *uint256.Int, tokenIn, tokenOut common.Address, pool stableswap.Pool) (*uint256.Int, error) {
	_, out, err := GetIndices(tokenIn, tokenOut, pool)
	if err != nil {
		return nil, err
	}
	if err := validatePool(pool); err != nil {
		return nil, err
	}
	amountOut, err := QuoteOutput(amountIn, pool.Fee)
	if err != nil {
		return nil, err
	}
	if err := checkDrain(amountOut, out, pool); err != nil {
		return nil, err
	}
	return amountOut, nil
}

// GetAmountIn prices an exact-output swap against a pool snapshot.
func GetAmountIn(amountOut *uint256.Int, tokenIn, tokenOut common.Address, pool stableswap.Pool) (*uint256.Int, error) {
	_, out, err := GetIndices(tokenIn, tokenOut, pool)
	if err != nil {
		return nil, err
	}
	if err := validatePool(pool); err != nil {
		return nil, err
	}
	if err := fullmath.Check("amountOut", amountOut); err != nil {
		return nil, err
	}
	if err := checkDrain(amountOut, out, pool); err != nil {
		return nil, err
	}
	return QuoteInput(amountOut, pool.Fee)
}
