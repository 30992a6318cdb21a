package concentrated

import (
	"math/big"

	"github.com/defistate/defistate-amm-go/engine"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Pool is the swap-relevant state of a concentrated-liquidity pool.
type Pool struct {
	ID     uint64         `json:"id"`
	Token0 common.Address `json:"token0"`
	Token1 common.Address `json:"token1"`
	// FeeTier is in hundredths of a basis point, i.e 3000 for 0.3%.
	FeeTier      uint32       `json:"feeTier"`
	SqrtPriceX96 *uint256.Int `json:"sqrtPriceX96"`
	// Liquidity is the in-range liquidity at Tick.
	Liquidity *uint256.Int `json:"liquidity"`
	Tick      int32        `json:"tick"`
	// Ticks holds the initialized ticks in ascending index order and is treated as read-only.
	Ticks []Tick `json:"ticks"`
}

// Fee converts the pool's fee tier to the ten-billion convention.
func (p Pool) Fee() engine.Fee {
	return engine.Fee(p.FeeTier) * 10_000
}

// Contains reports whether the pool trades the given token.
func (p Pool) Contains(token common.Address) bool {
	return p.Token0 == token || p.Token1 == token
}

// Tick is a liquidity boundary of a concentrated-liquidity pool.
type Tick struct {
	Index int32 `json:"index"`
	// LiquidityGross is the total liquidity referencing this tick. It fits in 128 bits.
	LiquidityGross *uint256.Int `json:"liquidityGross"`
	// LiquidityNet is the signed change applied when the price crosses the tick left to right.
	LiquidityNet          *big.Int     `json:"liquidityNet"`
	FeeGrowthOutside0X128 *uint256.Int `json:"feeGrowthOutside0X128"`
	FeeGrowthOutside1X128 *uint256.Int `json:"feeGrowthOutside1X128"`
	Initialized           bool         `json:"initialized"`
}

// NewTick returns an uninitialized tick with every accumulator at zero.
func NewTick(index int32) Tick {
	return Tick{
		Index:                 index,
		LiquidityGross:        new(uint256.Int),
		LiquidityNet:          new(big.Int),
		FeeGrowthOutside0X128: new(uint256.Int),
		FeeGrowthOutside1X128: new(uint256.Int),
	}
}

// Clone returns a deep copy of t. Nil fields are replaced with zero values.
func (t Tick) Clone() Tick {
	c := NewTick(t.Index)
	c.Initialized = t.Initialized
	if t.LiquidityGross != nil {
		c.LiquidityGross.Set(t.LiquidityGross)
	}
	if t.LiquidityNet != nil {
		c.LiquidityNet.Set(t.LiquidityNet)
	}
	if t.FeeGrowthOutside0X128 != nil {
		c.FeeGrowthOutside0X128.Set(t.FeeGrowthOutside0X128)
	}
	if t.FeeGrowthOutside1X128 != nil {
		c.FeeGrowthOutside1X128.Set(t.FeeGrowthOutside1X128)
	}
	return c
}

// tickSpacings maps a fee tier in hundredths of a basis point to its tick spacing.
var tickSpacings = map[uint32]int32{
	500:   10,  // 0.05%
	3000:  60,  // 0.3%
	10000: 200, // 1%
}

// DefaultTickSpacing is used for fee tiers outside the standard table.
const DefaultTickSpacing int32 = 60

// TickSpacing returns the tick spacing for a fee tier.
func TickSpacing(feeTier uint32) int32 {
	if spacing, ok := tickSpacings[feeTier]; ok {
		return spacing
	}
	return DefaultTickSpacing
}
