package router

import (
	"context"

	"github.com/defistate/defistate-amm-go/engine"
	"github.com/defistate/defistate-amm-go/protocols/concentrated"
	"github.com/defistate/defistate-amm-go/protocols/cpmm"
	"github.com/defistate/defistate-amm-go/protocols/stableswap"
)

// Logger defines a standard interface for structured, leveled logging.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Executor submits a priced trade somewhere and reports what happened.
// Transaction building, signing and broadcasting all live behind this interface.
type Executor interface {
	Execute(ctx context.Context, req engine.TradeRequest, quote *engine.Quote) (*engine.ExecReceipt, error)
}

// PoolState is a pool snapshot tagged with its pricing model. Exactly the field matching Kind is set.
type PoolState struct {
	Kind         engine.ProtocolKind `json:"kind"`
	CPMM         *cpmm.Pool          `json:"cpmm,omitempty"`
	StableSwap   *stableswap.Pool    `json:"stableSwap,omitempty"`
	Concentrated *concentrated.Pool  `json:"concentrated,omitempty"`
}

// CPMMState wraps a constant-product pool.
func CPMMState(p cpmm.Pool) PoolState {
	return PoolState{Kind: engine.ProtocolCPMM, CPMM: &p}
}

// StableSwapState wraps a stableswap pool.
func StableSwapState(p stableswap.Pool) PoolState {
	return PoolState{Kind: engine.ProtocolStableSwap, StableSwap: &p}
}

// ConcentratedState wraps a concentrated-liquidity pool. Its Ticks must be sorted by index.
func ConcentratedState(p concentrated.Pool) PoolState {
	return PoolState{Kind: engine.ProtocolConcentrated, Concentrated: &p}
}
