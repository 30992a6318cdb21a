package swapmath

import (
	"math/rand"
	"testing"

	"github.com/defistate/defistate-amm-go/engine"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	priceOne = uint256.MustFromDecimal("79228162514264337593543950336")
	// sqrt(101/100) and sqrt(1000/100) in Q64.96.
	priceOnePercentUp = uint256.MustFromDecimal("79623317895830914510639640423")
	priceTenfold      = uint256.MustFromDecimal("250541448375047931186413801569")
	// 600 hundredths of a basis point.
	fee6bps = engine.FeeFromBps(6)
)

func e18(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), uint256.NewInt(1e18))
}

func TestComputeSwapStep(t *testing.T) {
	testCases := []struct {
		name      string
		target    *uint256.Int
		amount    *uint256.Int
		exactIn   bool
		nextPrice string
		amountIn  string
		amountOut string
		feeAmount string
	}{
		{
			name:      "exact in capped at target",
			target:    priceOnePercentUp,
			amount:    e18(1),
			exactIn:   true,
			nextPrice: priceOnePercentUp.Dec(),
			amountIn:  "9975124224178055",
			amountOut: "9925619580021728",
			feeAmount: "5988667735148",
		},
		{
			name:      "exact out capped at target",
			target:    priceOnePercentUp,
			amount:    e18(1),
			exactIn:   false,
			nextPrice: priceOnePercentUp.Dec(),
			amountIn:  "9975124224178055",
			amountOut: "9925619580021728",
			feeAmount: "5988667735148",
		},
		{
			name:      "exact in fully spent",
			target:    priceTenfold,
			amount:    e18(1),
			exactIn:   true,
			nextPrice: "118818475322642227089037862318",
			amountIn:  "999400000000000000",
			amountOut: "666399946655997866",
			feeAmount: "600000000000000",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			step, err := ComputeSwapStep(priceOne, tc.target, e18(2), tc.amount, tc.exactIn, fee6bps)
			require.NoError(t, err)
			assert.Equal(t, tc.nextPrice, step.SqrtRatioNextX96.Dec())
			assert.Equal(t, tc.amountIn, step.AmountIn.Dec())
			assert.Equal(t, tc.amountOut, step.AmountOut.Dec())
			assert.Equal(t, tc.feeAmount, step.FeeAmount.Dec())
		})
	}

	t.Run("exact in stopping short charges the remainder as fee", func(t *testing.T) {
		step, err := ComputeSwapStep(priceOne, priceTenfold, e18(2), e18(1), true, fee6bps)
		require.NoError(t, err)
		require.True(t, step.SqrtRatioNextX96.Lt(priceTenfold))

		spent := new(uint256.Int).Add(step.AmountIn, step.FeeAmount)
		assert.Equal(t, e18(1).Dec(), spent.Dec())
	})

	t.Run("invalid fee", func(t *testing.T) {
		_, err := ComputeSwapStep(priceOne, priceTenfold, e18(2), e18(1), true, engine.FeeDenominator)
		assert.ErrorIs(t, err, engine.ErrInvalidFee)
	})
}

func randBits(r *rand.Rand, bits int) *uint256.Int {
	z := new(uint256.Int)
	for i := range z {
		z[i] = r.Uint64()
	}
	if bits < 256 {
		mask := new(uint256.Int).SubUint64(new(uint256.Int).Lsh(uint256.NewInt(1), uint(bits)), 1)
		z.And(z, mask)
	}
	if z.IsZero() {
		z.SetOne()
	}
	return z
}

// TestComputeSwapStep_Invariants runs random inputs through a step and checks the properties
// every step must satisfy regardless of how far it moves the price.
func TestComputeSwapStep_Invariants(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for i := 0; i < 1000; i++ {
		current := randBits(r, 160)
		target := randBits(r, 160)
		liquidity := randBits(r, 128)
		amountRemaining := randBits(r, 1+r.Intn(255))
		exactIn := i%2 == 0
		fee := engine.Fee(1 + r.Int63n(int64(engine.FeeDenominator)-1))

		step, err := ComputeSwapStep(current, target, liquidity, amountRemaining, exactIn, fee)
		if err != nil {
			continue
		}

		sumIn, overflow := new(uint256.Int).AddOverflow(step.AmountIn, step.FeeAmount)
		require.False(t, overflow)

		if exactIn {
			assert.False(t, sumIn.Gt(amountRemaining), "input plus fee exceeds the amount remaining")
		} else {
			assert.False(t, step.AmountOut.Gt(amountRemaining), "output exceeds the amount requested")
		}

		if current.Eq(target) {
			assert.True(t, step.AmountIn.IsZero())
			assert.True(t, step.AmountOut.IsZero())
			assert.True(t, step.FeeAmount.IsZero())
			assert.True(t, step.SqrtRatioNextX96.Eq(target))
		}

		// A step that stops short of the target consumes everything.
		if !step.SqrtRatioNextX96.Eq(target) {
			if exactIn {
				assert.True(t, sumIn.Eq(amountRemaining))
			} else {
				assert.True(t, step.AmountOut.Eq(amountRemaining))
			}
		}

		if !target.Gt(current) {
			assert.False(t, step.SqrtRatioNextX96.Gt(current))
			assert.False(t, step.SqrtRatioNextX96.Lt(target))
		} else {
			assert.False(t, step.SqrtRatioNextX96.Lt(current))
			assert.False(t, step.SqrtRatioNextX96.Gt(target))
		}
	}
}
