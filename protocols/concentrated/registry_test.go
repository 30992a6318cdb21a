package concentrated

import (
	"math/big"
	"testing"

	"github.com/defistate/defistate-amm-go/engine"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickSpacing(t *testing.T) {
	testCases := []struct {
		feeTier  uint32
		expected int32
	}{
		{500, 10},
		{3000, 60},
		{10000, 200},
		{9999, 60},
		{0, 60},
		{100, 60},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, TickSpacing(tc.feeTier), "fee tier %d", tc.feeTier)
	}
}

func TestTick_Clone(t *testing.T) {
	original := Tick{
		Index:                 1000,
		LiquidityGross:        uint256.NewInt(1_000_000),
		LiquidityNet:          big.NewInt(500_000),
		FeeGrowthOutside0X128: uint256.NewInt(1000),
		FeeGrowthOutside1X128: uint256.NewInt(2000),
		Initialized:           true,
	}

	clone := original.Clone()
	assert.Equal(t, original, clone)

	clone.LiquidityGross.AddUint64(clone.LiquidityGross, 1)
	clone.LiquidityNet.Neg(clone.LiquidityNet)
	assert.Equal(t, uint64(1_000_000), original.LiquidityGross.Uint64())
	assert.Equal(t, int64(500_000), original.LiquidityNet.Int64())

	t.Run("nil fields become zero", func(t *testing.T) {
		c := Tick{Index: -5}.Clone()
		require.NotNil(t, c.LiquidityGross)
		require.NotNil(t, c.LiquidityNet)
		assert.True(t, c.FeeGrowthOutside0X128.IsZero())
		assert.True(t, c.FeeGrowthOutside1X128.IsZero())
		assert.False(t, c.Initialized)
	})
}

func testTick(index int32, gross uint64, net int64) Tick {
	tick := NewTick(index)
	tick.LiquidityGross.SetUint64(gross)
	tick.LiquidityNet.SetInt64(net)
	tick.Initialized = gross > 0
	return tick
}

func TestDiff(t *testing.T) {
	old := []Tick{
		testTick(-600, 1000, 1000),
		testTick(0, 500, 500),
		testTick(600, 1000, -1000),
	}

	t.Run("identical sets", func(t *testing.T) {
		diff := Diff(old, []Tick{old[2], old[0], old[1]})
		assert.True(t, diff.IsEmpty())
	})

	t.Run("additions updates and deletions", func(t *testing.T) {
		updated := testTick(600, 1500, -1500)
		fees := testTick(-600, 1000, 1000)
		fees.FeeGrowthOutside0X128.SetUint64(42)

		diff := Diff(old, []Tick{
			fees,
			updated,
			testTick(1200, 10, -10),
			testTick(-1200, 10, 10),
		})

		require.Len(t, diff.Additions, 2)
		assert.Equal(t, int32(-1200), diff.Additions[0].Index)
		assert.Equal(t, int32(1200), diff.Additions[1].Index)

		require.Len(t, diff.Updates, 2)
		assert.Equal(t, int32(-600), diff.Updates[0].Index)
		assert.Equal(t, int32(600), diff.Updates[1].Index)
		assert.Equal(t, uint64(1500), diff.Updates[1].LiquidityGross.Uint64())

		assert.Equal(t, []int32{0}, diff.Deletions)
	})

	t.Run("nil and zero accumulators compare equal", func(t *testing.T) {
		withNil := Tick{Index: 5, LiquidityGross: uint256.NewInt(1), LiquidityNet: big.NewInt(1), Initialized: true}
		withZero := testTick(5, 1, 1)
		assert.True(t, Diff([]Tick{withNil}, []Tick{withZero}).IsEmpty())
	})
}

func TestPool_Fee(t *testing.T) {
	assert.Equal(t, engine.Fee(30_000_000), Pool{FeeTier: 3000}.Fee())
	assert.Equal(t, engine.Fee(5_000_000), Pool{FeeTier: 500}.Fee())
	assert.Equal(t, engine.FeeFromBps(100), Pool{FeeTier: 10000}.Fee())
}

func TestFindTickAndNextInitialized(t *testing.T) {
	ticks := []Tick{NewTick(-60), NewTick(0), NewTick(60)}
	ticks[0].Initialized = true
	ticks[2].Initialized = true

	tick, ok := FindTick(ticks, 0)
	require.True(t, ok)
	assert.Equal(t, int32(0), tick.Index)
	_, ok = FindTick(ticks, 30)
	assert.False(t, ok)
	_, ok = FindTick(nil, 0)
	assert.False(t, ok)

	next, found := NextInitializedTick(ticks, 59, true)
	assert.True(t, found)
	assert.Equal(t, int32(-60), next, "uninitialized tick 0 is skipped")

	next, found = NextInitializedTick(ticks, -60, false)
	assert.True(t, found)
	assert.Equal(t, int32(60), next)

	_, found = NextInitializedTick(ticks, 60, false)
	assert.False(t, found)
	_, found = NextInitializedTick(ticks, -61, true)
	assert.False(t, found)
}
