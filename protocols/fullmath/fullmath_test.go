package fullmath

import (
	"testing"

	"github.com/defistate/defistate-amm-go/engine"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

func TestCheck(t *testing.T) {
	require.NoError(t, Check("x", MaxUint128))
	assert.ErrorIs(t, Check("x", nil), engine.ErrNilAmount)
	tooWide := new(uint256.Int).AddUint64(MaxUint128, 1)
	assert.ErrorIs(t, Check("x", tooWide), engine.ErrArithmeticOverflow)
}

func TestMulDiv(t *testing.T) {
	testCases := []struct {
		name      string
		a, b, d   *uint256.Int
		floor     *uint256.Int
		ceil      *uint256.Int
		expectErr error
	}{
		{"exact", u(10), u(10), u(5), u(20), u(20), nil},
		{"rounds", u(10), u(10), u(3), u(33), u(34), nil},
		{"max operands", MaxUint128, MaxUint128, MaxUint128, MaxUint128, MaxUint128, nil},
		{"zero divisor", u(1), u(1), u(0), nil, nil, ErrDivisionByZero},
		{"result too wide", MaxUint128, u(2), u(1), nil, nil, engine.ErrArithmeticOverflow},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			floor, err := MulDiv(tc.a, tc.b, tc.d)
			if tc.expectErr != nil {
				assert.ErrorIs(t, err, tc.expectErr)
				_, err = MulDivRoundingUp(tc.a, tc.b, tc.d)
				assert.ErrorIs(t, err, tc.expectErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.floor.Dec(), floor.Dec())

			ceil, err := MulDivRoundingUp(tc.a, tc.b, tc.d)
			require.NoError(t, err)
			assert.Equal(t, tc.ceil.Dec(), ceil.Dec())
		})
	}
}

func TestAddSubMul(t *testing.T) {
	sum, err := Add(u(2), u(3))
	require.NoError(t, err)
	assert.Equal(t, uint64(5), sum.Uint64())

	_, err = Add(MaxUint128, u(1))
	assert.ErrorIs(t, err, engine.ErrArithmeticOverflow)

	_, err = Sub(u(1), u(2))
	assert.ErrorIs(t, err, engine.ErrArithmeticOverflow)

	_, err = Mul(MaxUint128, u(2))
	assert.ErrorIs(t, err, engine.ErrArithmeticOverflow)

	product, err := Mul(u(1<<32), u(1<<32))
	require.NoError(t, err)
	assert.Equal(t, "18446744073709551616", product.Dec())
}

func TestSaturatingAndWrappingSub(t *testing.T) {
	assert.Equal(t, uint64(5000), SaturatingSub(u(10000), u(5000)).Uint64())
	assert.True(t, SaturatingSub(u(5000), u(10000)).IsZero())

	assert.Equal(t, uint64(5000), WrappingSub(u(10000), u(5000)).Uint64())
	// 5000 - 10000 mod 2^128 == 2^128 - 5000
	expected := new(uint256.Int).SubUint64(MaxUint128, 4999)
	assert.Equal(t, expected.Dec(), WrappingSub(u(5000), u(10000)).Dec())
}

func TestSqrt(t *testing.T) {
	assert.Equal(t, uint64(1000), Sqrt(u(1000), u(1000)).Uint64())
	assert.Equal(t, uint64(1414), Sqrt(u(1000), u(2000)).Uint64())
	assert.Equal(t, MaxUint128.Dec(), Sqrt(MaxUint128, MaxUint128).Dec())
}
