package engine

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ProtocolKind tags the pricing model of a pool.
type ProtocolKind uint8

const (
	ProtocolUnknown ProtocolKind = iota
	// ProtocolCPMM is a Uniswap V2 style x*y=k pool.
	ProtocolCPMM
	// ProtocolStableSwap is a Curve style pegged-asset pool.
	ProtocolStableSwap
	// ProtocolConcentrated is a Uniswap V3 style pool with per-tick liquidity.
	ProtocolConcentrated
)

var protocolNames = map[ProtocolKind]string{
	ProtocolCPMM:         "cpmm",
	ProtocolStableSwap:   "stableswap",
	ProtocolConcentrated: "concentrated",
}

func (k ProtocolKind) String() string {
	if name, ok := protocolNames[k]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint8(k))
}

// ParseProtocolKind maps a protocol tag such as "cpmm" or "univ3" to its kind.
func ParseProtocolKind(tag string) (ProtocolKind, error) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "cpmm", "uniswapv2", "univ2":
		return ProtocolCPMM, nil
	case "stableswap", "curve":
		return ProtocolStableSwap, nil
	case "concentrated", "uniswapv3", "univ3":
		return ProtocolConcentrated, nil
	}
	return ProtocolUnknown, fmt.Errorf("unknown protocol tag %q", tag)
}

// ChainRef identifies the chain a trade is meant for.
type ChainRef struct {
	Name string `json:"name" yaml:"name"`
	ID   uint64 `json:"id" yaml:"id"`
}

// TradeRequest is the protocol-agnostic description of a swap.
// AmountIn drives exact-input quotes, AmountOut drives exact-output quotes.
type TradeRequest struct {
	Chain     ChainRef       `json:"chain"`
	TokenIn   common.Address `json:"tokenIn"`
	TokenOut  common.Address `json:"tokenOut"`
	AmountIn  *uint256.Int   `json:"amountIn,omitempty"`
	AmountOut *uint256.Int   `json:"amountOut,omitempty"`
	MinOut    *uint256.Int   `json:"minOut,omitempty"`
	IdemKey   string         `json:"idemKey,omitempty"`
}

// Quote is produced fresh for every call and shares no memory with the pool it was priced against.
type Quote struct {
	Protocol       ProtocolKind `json:"protocol"`
	PoolID         uint64       `json:"poolId"`
	AmountIn       *uint256.Int `json:"amountIn"`
	AmountOut      *uint256.Int `json:"amountOut"`
	Price          float64      `json:"price"` // spot price of tokenIn in tokenOut before the trade
	PriceImpactPct float64      `json:"priceImpactPct"`
	FeeAmount      *uint256.Int `json:"feeAmount"` // denominated in tokenIn
	GasEstimate    uint64       `json:"gasEstimate"`
}

// ExecReceipt is the shape returned by an execution collaborator. It is not a settlement guarantee.
type ExecReceipt struct {
	TxHash        common.Hash  `json:"txHash"`
	Success       bool         `json:"success"`
	Block         uint64       `json:"block"`
	GasUsed       uint64       `json:"gasUsed"`
	FeesPaidWei   *uint256.Int `json:"feesPaidWei"`
	FailureReason string       `json:"failureReason,omitempty"`
}
