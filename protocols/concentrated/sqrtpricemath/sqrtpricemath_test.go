package sqrtpricemath

import (
	"math/rand"
	"testing"

	"github.com/defistate/defistate-amm-go/engine"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sqrt(121/100) in Q64.96.
var priceOnePointOne = uint256.MustFromDecimal("87150978765690771352898345369")

func e18(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), uint256.NewInt(1e18))
}

// randBits returns a random value below 2^bits drawn from r.
func randBits(r *rand.Rand, bits int) *uint256.Int {
	z := new(uint256.Int)
	for i := 0; i < 4; i++ {
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

func TestGetNextSqrtPriceFromInput(t *testing.T) {
	liquidity := e18(1)
	amount := uint256.NewInt(1e17)

	testCases := []struct {
		name       string
		sqrtP      *uint256.Int
		liquidity  *uint256.Int
		amountIn   *uint256.Int
		zeroForOne bool
		expected   string
		expectErr  error
	}{
		{"token1 in moves price up", Q96, liquidity, amount, false, "87150978765690771352898345369", nil},
		{"token0 in moves price down", Q96, liquidity, amount, true, "72025602285694852357767227579", nil},
		{"zero amount keeps price", Q96, liquidity, new(uint256.Int), true, Q96.Dec(), nil},
		{"zero price", new(uint256.Int), liquidity, amount, true, "", ErrSqrtPriceZero},
		{"zero liquidity", Q96, new(uint256.Int), amount, false, "", ErrLiquidityZero},
		{"price overflow", maxUint160, uint256.NewInt(1024), uint256.NewInt(1024), false, "", engine.ErrArithmeticOverflow},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			next, err := GetNextSqrtPriceFromInput(tc.sqrtP, tc.liquidity, tc.amountIn, tc.zeroForOne)
			if tc.expectErr != nil {
				assert.ErrorIs(t, err, tc.expectErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, next.Dec())
		})
	}
}

func TestGetNextSqrtPriceFromOutput(t *testing.T) {
	t.Run("output exceeding reserves fails", func(t *testing.T) {
		// At price 1 with liquidity 1024 the virtual token0 reserve is 1024.
		_, err := GetNextSqrtPriceFromOutput(Q96, uint256.NewInt(1024), uint256.NewInt(1024), false)
		assert.ErrorIs(t, err, ErrPriceUnderflow)
		_, err = GetNextSqrtPriceFromOutput(Q96, uint256.NewInt(1024), uint256.NewInt(1024), true)
		assert.ErrorIs(t, err, ErrPriceUnderflow)
	})

	t.Run("token1 out moves price down", func(t *testing.T) {
		next, err := GetNextSqrtPriceFromOutput(Q96, e18(1), uint256.NewInt(1e17), true)
		require.NoError(t, err)
		assert.True(t, next.Lt(Q96))
	})

	t.Run("token0 out moves price up", func(t *testing.T) {
		next, err := GetNextSqrtPriceFromOutput(Q96, e18(1), uint256.NewInt(1e17), false)
		require.NoError(t, err)
		assert.True(t, next.Gt(Q96))
	})
}

func TestGetAmountDeltas(t *testing.T) {
	liquidity := e18(1)

	up, err := GetAmount0Delta(Q96, priceOnePointOne, liquidity, true)
	require.NoError(t, err)
	down, err := GetAmount0Delta(priceOnePointOne, Q96, liquidity, false)
	require.NoError(t, err)
	assert.Equal(t, "90909090909090910", up.Dec())
	assert.Equal(t, "90909090909090909", down.Dec())

	up, err = GetAmount1Delta(Q96, priceOnePointOne, liquidity, true)
	require.NoError(t, err)
	down, err = GetAmount1Delta(priceOnePointOne, Q96, liquidity, false)
	require.NoError(t, err)
	assert.Equal(t, "100000000000000000", up.Dec())
	assert.Equal(t, "99999999999999999", down.Dec())

	zero, err := GetAmount0Delta(Q96, Q96, liquidity, true)
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	_, err = GetAmount0Delta(new(uint256.Int), Q96, liquidity, true)
	assert.ErrorIs(t, err, ErrSqrtPriceZero)
}

func TestGetAmountDelta_Invariants(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	two := uint256.NewInt(2)

	for i := 0; i < 1000; i++ {
		sqrtP := randBits(r, 160)
		sqrtQ := randBits(r, 160)
		liquidity := randBits(r, 128)

		amount0Down, err := GetAmount0Delta(sqrtP, sqrtQ, liquidity, false)
		require.NoError(t, err)
		amount0Up, err := GetAmount0Delta(sqrtP, sqrtQ, liquidity, true)
		require.NoError(t, err)
		assert.False(t, amount0Down.Gt(amount0Up))
		assert.True(t, new(uint256.Int).Sub(amount0Up, amount0Down).Lt(two))

		amount1Down, err := GetAmount1Delta(sqrtP, sqrtQ, liquidity, false)
		require.NoError(t, err)
		amount1Up, err := GetAmount1Delta(sqrtP, sqrtQ, liquidity, true)
		require.NoError(t, err)
		assert.False(t, amount1Down.Gt(amount1Up))
		assert.True(t, new(uint256.Int).Sub(amount1Up, amount1Down).Lt(two))
	}
}

func TestGetNextSqrtPriceFromInput_Invariants(t *testing.T) {
	r := rand.New(rand.NewSource(11))

	for i := 0; i < 500; i++ {
		sqrtP := randBits(r, 160)
		liquidity := randBits(r, 128)
		amountIn := randBits(r, 1+r.Intn(200))
		zeroForOne := i%2 == 0

		sqrtQ, err := GetNextSqrtPriceFromInput(sqrtP, liquidity, amountIn, zeroForOne)
		if err != nil {
			continue
		}

		if zeroForOne {
			assert.False(t, sqrtQ.Gt(sqrtP))
			if sqrtQ.IsZero() {
				continue
			}
			delta, err := GetAmount0Delta(sqrtQ, sqrtP, liquidity, true)
			if err == nil {
				assert.False(t, amountIn.Lt(delta))
			}
		} else {
			assert.False(t, sqrtQ.Lt(sqrtP))
			delta, err := GetAmount1Delta(sqrtP, sqrtQ, liquidity, true)
			require.NoError(t, err)
			assert.False(t, amountIn.Lt(delta))
		}
	}
}

func TestGetNextSqrtPriceFromOutput_Invariants(t *testing.T) {
	r := rand.New(rand.NewSource(13))

	for i := 0; i < 500; i++ {
		sqrtP := randBits(r, 160)
		liquidity := randBits(r, 128)
		amountOut := randBits(r, 1+r.Intn(128))
		zeroForOne := i%2 == 0

		sqrtQ, err := GetNextSqrtPriceFromOutput(sqrtP, liquidity, amountOut, zeroForOne)
		if err != nil {
			continue
		}

		if zeroForOne {
			assert.False(t, sqrtQ.Gt(sqrtP))
			delta, err := GetAmount1Delta(sqrtQ, sqrtP, liquidity, false)
			require.NoError(t, err)
			assert.False(t, amountOut.Gt(delta))
		} else {
			assert.False(t, sqrtQ.Lt(sqrtP))
			delta, err := GetAmount0Delta(sqrtP, sqrtQ, liquidity, false)
			if err == nil {
				assert.False(t, amountOut.Gt(delta))
			}
		}
	}
}
