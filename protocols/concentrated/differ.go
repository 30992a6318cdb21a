package concentrated

import (
	"cmp"
	"math/big"
	"slices"

	"github.com/holiman/uint256"
)

// TickDiff describes how to turn one set of ticks into another.
type TickDiff struct {
	Additions []Tick  `json:"additions,omitempty"`
	Updates   []Tick  `json:"updates,omitempty"`
	Deletions []int32 `json:"deletions,omitempty"`
}

// IsEmpty returns true if the diff contains no changes.
func (d TickDiff) IsEmpty() bool {
	return len(d.Additions) == 0 && len(d.Updates) == 0 && len(d.Deletions) == 0
}

func uintEqual(a, b *uint256.Int) bool {
	if a == nil || b == nil {
		return (a == nil || a.IsZero()) && (b == nil || b.IsZero())
	}
	return a.Eq(b)
}

func intEqual(a, b *big.Int) bool {
	if a == nil || b == nil {
		return (a == nil || a.Sign() == 0) && (b == nil || b.Sign() == 0)
	}
	return a.Cmp(b) == 0
}

func tickChanged(old, new Tick) bool {
	return old.Initialized != new.Initialized ||
		!uintEqual(old.LiquidityGross, new.LiquidityGross) ||
		!intEqual(old.LiquidityNet, new.LiquidityNet) ||
		!uintEqual(old.FeeGrowthOutside0X128, new.FeeGrowthOutside0X128) ||
		!uintEqual(old.FeeGrowthOutside1X128, new.FeeGrowthOutside1X128)
}

// Diff computes the changes between two tick sets keyed by index.
// Every slice in the result is sorted by tick index.
func Diff(old, new []Tick) TickDiff {
	oldTicks := make(map[int32]Tick, len(old))
	for _, t := range old {
		oldTicks[t.Index] = t
	}
	newTicks := make(map[int32]Tick, len(new))
	for _, t := range new {
		newTicks[t.Index] = t
	}

	var diff TickDiff
	for index, newTick := range newTicks {
		oldTick, exists := oldTicks[index]
		if !exists {
			diff.Additions = append(diff.Additions, newTick.Clone())
		} else if tickChanged(oldTick, newTick) {
			diff.Updates = append(diff.Updates, newTick.Clone())
		}
	}
	for index := range oldTicks {
		if _, exists := newTicks[index]; !exists {
			diff.Deletions = append(diff.Deletions, index)
		}
	}

	byIndex := func(a, b Tick) int { return cmp.Compare(a.Index, b.Index) }
	slices.SortFunc(diff.Additions, byIndex)
	slices.SortFunc(diff.Updates, byIndex)
	slices.Sort(diff.Deletions)
	return diff
}
