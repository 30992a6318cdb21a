package engine

import (
	"fmt"

	"github.com/holiman/uint256"
)

// Fee is expressed in parts per 10,000,000,000: 30_000_000 is 0.3%, 3_000_000 is 0.03%.
type Fee uint64

// FeeDenominator represents 100%.
const FeeDenominator Fee = 10_000_000_000

// Validate reports ErrInvalidFee unless 0 <= f < FeeDenominator.
func (f Fee) Validate() error {
	if f >= FeeDenominator {
		return fmt.Errorf("%w: %d is not below %d", ErrInvalidFee, uint64(f), uint64(FeeDenominator))
	}
	return nil
}

// Uint256 returns the fee as a fresh *uint256.Int.
func (f Fee) Uint256() *uint256.Int {
	return uint256.NewInt(uint64(f))
}

// Percent returns the fee as a percentage, for display only.
func (f Fee) Percent() float64 {
	return float64(f) / float64(FeeDenominator) * 100
}

// FeeFromBps converts classic basis points (30 = 0.3%) to the ten-billion convention.
func FeeFromBps(bps uint32) Fee {
	return Fee(bps) * 1_000_000
}
