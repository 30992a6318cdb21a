package stableswap

import (
	"github.com/defistate/defistate-amm-go/engine"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Pool is a point-in-time snapshot of a pegged-asset pool with N tokens.
// Balances[i] is the balance of Tokens[i].
type Pool struct {
	ID            uint64           `json:"id"`
	Tokens        []common.Address `json:"tokens"`
	Balances      []*uint256.Int   `json:"balances"`
	Amplification uint64           `json:"amplification"` // carried for completeness, unused by the simplified curve
	Fee           engine.Fee       `json:"fee"`           // i.e 4_000_000 for 0.04%
	AdminFee      engine.Fee       `json:"adminFee"`      // share of Fee kept by the pool admin, i.e 5_000_000_000 for 50%
}

// IndexOf returns the position of token in the pool, or -1.
func (p Pool) IndexOf(token common.Address) int {
	for i, t := range p.Tokens {
		if t == token {
			return i
		}
	}
	return -1
}
