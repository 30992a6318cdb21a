// Package ledger tracks the per-tick liquidity and fee-growth state of one concentrated-liquidity pool.
package ledger

import (
	"cmp"
	"fmt"
	"math/big"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/defistate/defistate-amm-go/engine"
	"github.com/defistate/defistate-amm-go/protocols/concentrated"
	"github.com/defistate/defistate-amm-go/protocols/concentrated/liquiditymath"
	"github.com/defistate/defistate-amm-go/protocols/concentrated/tickmath"
	"github.com/defistate/defistate-amm-go/protocols/fullmath"
	"github.com/holiman/uint256"
)

// Snapshot is an immutable, index-sorted copy of a ledger.
type Snapshot struct {
	Ticks       []concentrated.Tick `json:"ticks"`
	CurrentTick int32               `json:"currentTick"`
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithWrappingFeeGrowth makes FeeGrowthInside subtract modulo 2^128, matching on-chain
// accumulator semantics, instead of saturating at zero.
func WithWrappingFeeGrowth() Option {
	return func(l *Ledger) {
		l.wrapFeeGrowth = true
	}
}

// Ledger is a concurrency-safe tick map with a current-tick cursor.
// Writes take an exclusive lock; reads share it, and View is served lock-free from a cached snapshot.
type Ledger struct {
	mu            sync.RWMutex
	ticks         map[int32]concentrated.Tick
	currentTick   int32
	wrapFeeGrowth bool
	cachedView    atomic.Pointer[Snapshot]
}

// New creates an empty ledger positioned at currentTick.
func New(currentTick int32, opts ...Option) *Ledger {
	l := &Ledger{
		ticks:       make(map[int32]concentrated.Tick),
		currentTick: currentTick,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.updateCachedView()
	return l
}

// NewFromSnapshot rebuilds a ledger from a snapshot.
func NewFromSnapshot(s *Snapshot, opts ...Option) *Ledger {
	l := New(s.CurrentTick, opts...)
	for _, t := range s.Ticks {
		l.ticks[t.Index] = t.Clone()
	}
	l.updateCachedView()
	return l
}

// updateCachedView MUST be called from within a write lock.
func (l *Ledger) updateCachedView() {
	view := &Snapshot{
		Ticks:       make([]concentrated.Tick, 0, len(l.ticks)),
		CurrentTick: l.currentTick,
	}
	for _, t := range l.ticks {
		view.Ticks = append(view.Ticks, t.Clone())
	}
	slices.SortFunc(view.Ticks, func(a, b concentrated.Tick) int {
		return cmp.Compare(a.Index, b.Index)
	})
	l.cachedView.Store(view)
}

// --- Write Methods ---

// Upsert inserts or replaces the tick stored at index. The stored tick's Index is set to index.
func (l *Ledger) Upsert(index int32, tick concentrated.Tick) {
	l.mu.Lock()
	defer l.mu.Unlock()

	stored := tick.Clone()
	stored.Index = index
	l.ticks[index] = stored
	l.updateCachedView()
}

// Remove deletes the tick at index and returns it.
func (l *Ledger) Remove(index int32) (concentrated.Tick, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tick, ok := l.ticks[index]
	if !ok {
		return concentrated.Tick{}, false
	}
	delete(l.ticks, index)
	l.updateCachedView()
	return tick, true
}

// SetCurrentTick moves the cursor. The cursor need not point at a stored tick.
func (l *Ledger) SetCurrentTick(tick int32) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.currentTick = tick
	l.updateCachedView()
}

// SyncToSqrtPrice moves the cursor to the tick containing sqrtPriceX96.
func (l *Ledger) SyncToSqrtPrice(sqrtPriceX96 *uint256.Int) (int32, error) {
	tick, err := tickmath.GetTickAtSqrtRatio(sqrtPriceX96)
	if err != nil {
		return 0, err
	}
	l.SetCurrentTick(tick)
	return tick, nil
}

// UpdateLiquidity applies a position's liquidity delta at one of its boundaries. Gross liquidity
// moves by delta; net liquidity moves by delta on a lower boundary and by -delta on an upper one.
// A missing tick is created and a tick whose gross liquidity returns to zero is removed. flipped
// reports whether the tick went from uninitialized to initialized or back. On error the ledger is
// left unchanged.
func (l *Ledger) UpdateLiquidity(index int32, delta *big.Int, upper bool) (flipped bool, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tick, exists := l.ticks[index]
	if exists {
		tick = tick.Clone()
	} else {
		tick = concentrated.NewTick(index)
	}

	grossAfter, err := liquiditymath.AddDelta(tick.LiquidityGross, delta)
	if err != nil {
		return false, fmt.Errorf("tick %d: %w", index, err)
	}
	netAfter, err := liquiditymath.AddNet(tick.LiquidityNet, delta, upper)
	if err != nil {
		return false, fmt.Errorf("tick %d: %w", index, err)
	}

	flipped = tick.LiquidityGross.IsZero() != grossAfter.IsZero()
	if grossAfter.IsZero() {
		delete(l.ticks, index)
	} else {
		tick.LiquidityGross = grossAfter
		tick.LiquidityNet = netAfter
		tick.Initialized = true
		l.ticks[index] = tick
	}
	l.updateCachedView()
	return flipped, nil
}

// Apply applies a diff under a single write lock: deletions first, then updates and additions.
func (l *Ledger) Apply(diff concentrated.TickDiff) {
	if diff.IsEmpty() {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, index := range diff.Deletions {
		delete(l.ticks, index)
	}
	for _, t := range diff.Updates {
		l.ticks[t.Index] = t.Clone()
	}
	for _, t := range diff.Additions {
		l.ticks[t.Index] = t.Clone()
	}
	l.updateCachedView()
}

// --- Read Methods ---

// Tick returns a copy of the tick at index.
func (l *Ledger) Tick(index int32) (concentrated.Tick, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	tick, ok := l.ticks[index]
	if !ok {
		return concentrated.Tick{}, false
	}
	return tick.Clone(), true
}

// IsInitialized reports whether a tick is stored at index and flagged initialized.
func (l *Ledger) IsInitialized(index int32) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	tick, ok := l.ticks[index]
	return ok && tick.Initialized
}

// Len returns the number of stored ticks.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.ticks)
}

// CurrentTick returns the cursor.
func (l *Ledger) CurrentTick() int32 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.currentTick
}

// CurrentSqrtPriceX96 returns the sqrt price at the lower edge of the current tick.
func (l *Ledger) CurrentSqrtPriceX96() (*uint256.Int, error) {
	sqrtPrice := new(uint256.Int)
	if err := tickmath.GetSqrtRatioAtTick(sqrtPrice, l.CurrentTick()); err != nil {
		return nil, err
	}
	return sqrtPrice, nil
}

// InitializedTicks returns copies of the initialized ticks in ascending index order.
func (l *Ledger) InitializedTicks() []concentrated.Tick {
	return initializedTicks(l.cachedView.Load())
}

func initializedTicks(view *Snapshot) []concentrated.Tick {
	initialized := make([]concentrated.Tick, 0, len(view.Ticks))
	for _, t := range view.Ticks {
		if t.Initialized {
			initialized = append(initialized, t.Clone())
		}
	}
	return initialized
}

// NextInitializedTick finds the nearest initialized tick in the cached snapshot.
// With lte it returns the largest initialized tick <= tick, otherwise the smallest one > tick.
func (l *Ledger) NextInitializedTick(tick int32, lte bool) (next int32, found bool) {
	return concentrated.NextInitializedTick(l.cachedView.Load().Ticks, tick, lte)
}

// Pool returns base with its Tick and Ticks replaced by the ledger's cursor and initialized ticks.
// Price and in-range liquidity are taken from base.
func (l *Ledger) Pool(base concentrated.Pool) concentrated.Pool {
	view := l.cachedView.Load()
	base.Tick = view.CurrentTick
	base.Ticks = initializedTicks(view)
	return base
}

// ActiveLiquidity sums the net liquidity of every initialized tick at or below the cursor, which is
// the liquidity in range at the current tick.
func (l *Ledger) ActiveLiquidity() (*uint256.Int, error) {
	view := l.cachedView.Load()
	sum := new(big.Int)
	for _, t := range view.Ticks {
		if t.Index > view.CurrentTick {
			break
		}
		if t.Initialized && t.LiquidityNet != nil {
			sum.Add(sum, t.LiquidityNet)
		}
	}
	if sum.Sign() < 0 {
		return nil, fmt.Errorf("%w: active liquidity %s at tick %d", liquiditymath.ErrLiquidityUnderflow, sum, view.CurrentTick)
	}
	active, overflow := uint256.FromBig(sum)
	if overflow {
		return nil, fmt.Errorf("%w: active liquidity %s", liquiditymath.ErrLiquidityOverflow, sum)
	}
	if err := fullmath.Check("active liquidity", active); err != nil {
		return nil, err
	}
	return active, nil
}

// FeeGrowthInside returns lower.FeeGrowthOutside - upper.FeeGrowthOutside for both assets.
// Subtraction saturates at zero unless the ledger was built WithWrappingFeeGrowth. An accumulator
// wider than 128 bits fails with ErrArithmeticOverflow.
func (l *Ledger) FeeGrowthInside(lowerIndex, upperIndex int32) (growth0, growth1 *uint256.Int, err error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	lower, ok := l.ticks[lowerIndex]
	if !ok {
		return nil, nil, fmt.Errorf("%w: lower tick %d", engine.ErrTickNotFound, lowerIndex)
	}
	upper, ok := l.ticks[upperIndex]
	if !ok {
		return nil, nil, fmt.Errorf("%w: upper tick %d", engine.ErrTickNotFound, upperIndex)
	}

	accumulators := []struct {
		name string
		v    *uint256.Int
	}{
		{"lower fee growth outside0", orZero(lower.FeeGrowthOutside0X128)},
		{"lower fee growth outside1", orZero(lower.FeeGrowthOutside1X128)},
		{"upper fee growth outside0", orZero(upper.FeeGrowthOutside0X128)},
		{"upper fee growth outside1", orZero(upper.FeeGrowthOutside1X128)},
	}
	for _, a := range accumulators {
		if err := fullmath.Check(a.name, a.v); err != nil {
			return nil, nil, err
		}
	}

	sub := fullmath.SaturatingSub
	if l.wrapFeeGrowth {
		sub = fullmath.WrappingSub
	}
	growth0 = sub(accumulators[0].v, accumulators[2].v)
	growth1 = sub(accumulators[1].v, accumulators[3].v)
	return growth0, growth1, nil
}

// View returns a deep copy of the cached snapshot. It never takes the ledger lock.
func (l *Ledger) View() *Snapshot {
	cached := l.cachedView.Load()
	view := &Snapshot{
		Ticks:       make([]concentrated.Tick, len(cached.Ticks)),
		CurrentTick: cached.CurrentTick,
	}
	for i, t := range cached.Ticks {
		view.Ticks[i] = t.Clone()
	}
	return view
}

func orZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}
