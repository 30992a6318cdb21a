package cpmm

import (
	"github.com/defistate/defistate-amm-go/engine"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Pool is a point-in-time snapshot of a two-asset constant-product pool.
type Pool struct {
	ID       uint64         `json:"id"`
	Token0   common.Address `json:"token0"`
	Token1   common.Address `json:"token1"`
	Reserve0 *uint256.Int   `json:"reserve0"`
	Reserve1 *uint256.Int   `json:"reserve1"`
	Fee      engine.Fee     `json:"fee"` // i.e 30_000_000 for 0.3%
}

// Contains reports whether the pool trades the given token.
func (p Pool) Contains(token common.Address) bool {
	return p.Token0 == token || p.Token1 == token
}
