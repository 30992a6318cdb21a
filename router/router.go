// Package router turns a tagged pool snapshot and a trade request into a Quote, and optionally hands
// the priced trade to an execution collaborator.
package router

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/defistate/defistate-amm-go/engine"
	concentratedcalc "github.com/defistate/defistate-amm-go/protocols/concentrated/calculator"
	cpmmcalc "github.com/defistate/defistate-amm-go/protocols/cpmm/calculator"
	stableswapcalc "github.com/defistate/defistate-amm-go/protocols/stableswap/calculator"
	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ErrUnsupportedProtocol is returned for pool kinds the router cannot price.
	ErrUnsupportedProtocol = errors.New("unsupported protocol")
	// ErrMissingPoolState is returned when the variant field matching PoolState.Kind is nil.
	ErrMissingPoolState = errors.New("missing pool state")
	// ErrNoExecutor is returned by Execute when the router was built without an Executor.
	ErrNoExecutor = errors.New("no executor configured")
	// ErrInsufficientOutput is returned by Execute when the quoted output is below the request's MinOut.
	ErrInsufficientOutput = errors.New("quoted output below minimum")
)

// DefaultGasEstimates are reported on quotes when Config.GasEstimates has no entry for a protocol.
var DefaultGasEstimates = map[engine.ProtocolKind]uint64{
	engine.ProtocolCPMM:         120_000,
	engine.ProtocolStableSwap:   150_000,
	engine.ProtocolConcentrated: 150_000,
}

// Config holds the router's dependencies.
type Config struct {
	Logger   Logger                // required
	Registry prometheus.Registerer // required
	// Executor is optional; without it Execute returns ErrNoExecutor.
	Executor Executor
	// GasEstimates overrides DefaultGasEstimates per protocol.
	GasEstimates map[engine.ProtocolKind]uint64
}

func (c *Config) validate() error {
	if c.Registry == nil {
		return errors.New("config: Registry cannot be nil")
	}
	if c.Logger == nil {
		return errors.New("config: Logger cannot be nil")
	}
	return nil
}

// Router dispatches quotes to the protocol calculators. It holds no pool state and is safe for
// concurrent use.
type Router struct {
	metrics      *Metrics
	logger       Logger
	executor     Executor
	gasEstimates map[engine.ProtocolKind]uint64
}

// NewRouter constructs a router from a configuration, returning an error if the config is invalid.
func NewRouter(cfg *Config) (*Router, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	gasEstimates := make(map[engine.ProtocolKind]uint64, len(DefaultGasEstimates))
	for kind, gas := range DefaultGasEstimates {
		gasEstimates[kind] = gas
	}
	for kind, gas := range cfg.GasEstimates {
		gasEstimates[kind] = gas
	}

	return &Router{
		metrics:      NewMetrics(cfg.Registry),
		logger:       cfg.Logger,
		executor:     cfg.Executor,
		gasEstimates: gasEstimates,
	}, nil
}

// GetQuote prices an exact-input swap of req.AmountIn. Calculator errors are returned unchanged
// (wrapped) and never turned into a zero quote.
func (r *Router) GetQuote(pool PoolState, req engine.TradeRequest) (*engine.Quote, error) {
	return r.observe(pool, func() (*engine.Quote, error) {
		return r.quoteExactIn(pool, req)
	})
}

// GetInputQuote prices an exact-output swap of req.AmountOut.
func (r *Router) GetInputQuote(pool PoolState, req engine.TradeRequest) (*engine.Quote, error) {
	return r.observe(pool, func() (*engine.Quote, error) {
		return r.quoteExactOut(pool, req)
	})
}

func (r *Router) observe(pool PoolState, quote func() (*engine.Quote, error)) (*engine.Quote, error) {
	protocol := pool.Kind.String()
	timer := prometheus.NewTimer(r.metrics.quoteDuration.WithLabelValues(protocol))
	defer timer.ObserveDuration()

	q, err := quote()
	r.metrics.quotesTotal.WithLabelValues(protocol, outcome(err)).Inc()
	if err != nil {
		r.logger.Debug("quote failed", "protocol", protocol, "error", err)
		return nil, err
	}
	return q, nil
}

func (r *Router) quoteExactIn(pool PoolState, req engine.TradeRequest) (*engine.Quote, error) {
	var (
		amountOut, feeAmount *uint256.Int
		spot                 float64
		id                   uint64
		err                  error
	)

	switch pool.Kind {
	case engine.ProtocolCPMM:
		if pool.CPMM == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingPoolState, pool.Kind)
		}
		p := *pool.CPMM
		id = p.ID
		if amountOut, err = cpmmcalc.GetAmountOut(req.AmountIn, req.TokenIn, req.TokenOut, p); err != nil {
			return nil, fmt.Errorf("cpmm pool %d: %w", p.ID, err)
		}
		if feeAmount, err = cpmmcalc.FeeAmount(req.AmountIn, p.Fee); err != nil {
			return nil, err
		}
		if spot, err = cpmmcalc.GetSpotPrice(req.TokenIn, req.TokenOut, p); err != nil {
			return nil, err
		}
	case engine.ProtocolStableSwap:
		if pool.StableSwap == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingPoolState, pool.Kind)
		}
		p := *pool.StableSwap
		id = p.ID
		if amountOut, err = stableswapcalc.GetAmountOut(req.AmountIn, req.TokenIn, req.TokenOut, p); err != nil {
			return nil, fmt.Errorf("stableswap pool %d: %w", p.ID, err)
		}
		if feeAmount, err = stableswapcalc.FeeAmount(req.AmountIn, p.Fee); err != nil {
			return nil, err
		}
		spot = 1
	case engine.ProtocolConcentrated:
		if pool.Concentrated == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingPoolState, pool.Kind)
		}
		p := *pool.Concentrated
		id = p.ID
		var result *concentratedcalc.SwapResult
		if result, err = concentratedcalc.Swap(req.AmountIn, true, nil, req.TokenIn, req.TokenOut, p); err != nil {
			return nil, fmt.Errorf("concentrated pool %d: %w", p.ID, err)
		}
		amountOut, feeAmount = result.AmountOut, result.FeeAmount
		if spot, err = concentratedcalc.GetSpotPrice(req.TokenIn, req.TokenOut, p); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProtocol, pool.Kind)
	}

	return &engine.Quote{
		Protocol:       pool.Kind,
		PoolID:         id,
		AmountIn:       req.AmountIn.Clone(),
		AmountOut:      amountOut,
		Price:          spot,
		PriceImpactPct: PriceImpactPct(req.AmountIn, amountOut, spot),
		FeeAmount:      feeAmount,
		GasEstimate:    r.gasEstimates[pool.Kind],
	}, nil
}

func (r *Router) quoteExactOut(pool PoolState, req engine.TradeRequest) (*engine.Quote, error) {
	var (
		amountIn, feeAmount *uint256.Int
		spot                float64
		id                  uint64
		err                 error
	)

	switch pool.Kind {
	case engine.ProtocolCPMM:
		if pool.CPMM == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingPoolState, pool.Kind)
		}
		p := *pool.CPMM
		id = p.ID
		if amountIn, err = cpmmcalc.GetAmountIn(req.AmountOut, req.TokenIn, req.TokenOut, p); err != nil {
			return nil, fmt.Errorf("cpmm pool %d: %w", p.ID, err)
		}
		if feeAmount, err = cpmmcalc.FeeAmount(amountIn, p.Fee); err != nil {
			return nil, err
		}
		if spot, err = cpmmcalc.GetSpotPrice(req.TokenIn, req.TokenOut, p); err != nil {
			return nil, err
		}
	case engine.ProtocolStableSwap:
		if pool.StableSwap == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingPoolState, pool.Kind)
		}
		p := *pool.StableSwap
		id = p.ID
		if amountIn, err = stableswapcalc.GetAmountIn(req.AmountOut, req.TokenIn, req.TokenOut, p); err != nil {
			return nil, fmt.Errorf("stableswap pool %d: %w", p.ID, err)
		}
		if feeAmount, err = stableswapcalc.FeeAmount(amountIn, p.Fee); err != nil {
			return nil, err
		}
		spot = 1
	case engine.ProtocolConcentrated:
		if pool.Concentrated == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingPoolState, pool.Kind)
		}
		p := *pool.Concentrated
		id = p.ID
		var result *concentratedcalc.SwapResult
		if result, err = concentratedcalc.Swap(req.AmountOut, false, nil, req.TokenIn, req.TokenOut, p); err != nil {
			return nil, fmt.Errorf("concentrated pool %d: %w", p.ID, err)
		}
		amountIn, feeAmount = result.AmountIn, result.FeeAmount
		if spot, err = concentratedcalc.GetSpotPrice(req.TokenIn, req.TokenOut, p); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProtocol, pool.Kind)
	}

	return &engine.Quote{
		Protocol:       pool.Kind,
		PoolID:         id,
		AmountIn:       amountIn,
		AmountOut:      req.AmountOut.Clone(),
		Price:          spot,
		PriceImpactPct: PriceImpactPct(amountIn, req.AmountOut, spot),
		FeeAmount:      feeAmount,
		GasEstimate:    r.gasEstimates[pool.Kind],
	}, nil
}

// Execute quotes req against pool, enforces req.MinOut, and delegates to the configured Executor.
// The receipt is whatever the executor reports; the router does not track settlement.
func (r *Router) Execute(ctx context.Context, pool PoolState, req engine.TradeRequest) (*engine.ExecReceipt, error) {
	if r.executor == nil {
		return nil, ErrNoExecutor
	}

	quote, err := r.GetQuote(pool, req)
	if err != nil {
		return nil, err
	}
	if req.MinOut != nil && quote.AmountOut.Lt(req.MinOut) {
		return nil, fmt.Errorf("%w: quoted %s, minimum %s", ErrInsufficientOutput, quote.AmountOut.Dec(), req.MinOut.Dec())
	}

	protocol := pool.Kind.String()
	receipt, err := r.executor.Execute(ctx, req, quote)
	r.metrics.executionsTotal.WithLabelValues(protocol, outcome(err)).Inc()
	if err != nil {
		r.logger.Error("execution failed", "protocol", protocol, "pool", quote.PoolID, "idem_key", req.IdemKey, "error", err)
		return nil, err
	}
	if receipt == nil {
		return nil, fmt.Errorf("executor returned no receipt for pool %d", quote.PoolID)
	}
	if !receipt.Success {
		r.logger.Warn("execution reverted", "protocol", protocol, "pool", quote.PoolID, "tx", receipt.TxHash.Hex(), "reason", receipt.FailureReason)
	} else {
		r.logger.Info("execution settled", "protocol", protocol, "pool", quote.PoolID, "tx", receipt.TxHash.Hex(), "gas_used", receipt.GasUsed)
	}
	return receipt, nil
}

// PriceImpactPct returns |spot - out/in| / spot * 100. It is 0 when spot or amountIn is zero.
func PriceImpactPct(amountIn, amountOut *uint256.Int, spotPrice float64) float64 {
	if spotPrice == 0 || amountIn == nil || amountOut == nil || amountIn.IsZero() {
		return 0
	}
	executed, _ := new(big.Rat).SetFrac(amountOut.ToBig(), amountIn.ToBig()).Float64()
	return math.Abs(spotPrice-executed) / spotPrice * 100
}
