package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/defistate/defistate-amm-go/engine"
	"github.com/defistate/defistate-amm-go/protocols/concentrated"
	"github.com/defistate/defistate-amm-go/protocols/concentrated/ledger"
	"github.com/defistate/defistate-amm-go/protocols/cpmm"
	"github.com/defistate/defistate-amm-go/protocols/stableswap"
	"github.com/defistate/defistate-amm-go/router"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"
)

// QuoterConfig is the on-disk configuration of the quoter CLI.
type QuoterConfig struct {
	LogLevel string          `yaml:"log_level"`
	Chain    engine.ChainRef `yaml:"chain"`
	// Tokens maps a symbol to its address so commands can accept either.
	Tokens map[string]string `yaml:"tokens"`
	// GasEstimates overrides the router's per-protocol defaults, keyed by protocol tag.
	GasEstimates map[string]uint64 `yaml:"gas_estimates"`
	Pools        []PoolConfig      `yaml:"pools"`
}

// PoolConfig describes one pool fixture. Amounts are decimal strings.
type PoolConfig struct {
	Name     string   `yaml:"name"`
	Protocol string   `yaml:"protocol"`
	ID       uint64   `yaml:"id"`
	Tokens   []string `yaml:"tokens"`
	// Balances holds reserves for cpmm pools and balances for stableswap pools, in token order.
	Balances      []string   `yaml:"balances"`
	Fee           uint64     `yaml:"fee"`
	AdminFee      uint64     `yaml:"admin_fee"`
	Amplification uint64     `yaml:"amplification"`
	FeeTier       uint32     `yaml:"fee_tier"`
	CurrentTick   int32      `yaml:"current_tick"`
	WrapFeeGrowth bool       `yaml:"wrap_fee_growth"`
	Ticks         []TickSpec `yaml:"ticks"`
	// SqrtPriceX96 overrides current_tick for concentrated pools. Without it the price is taken
	// at the lower edge of current_tick.
	SqrtPriceX96 string `yaml:"sqrt_price_x96"`
	// Liquidity is the in-range liquidity of a concentrated pool. Without it the net liquidity of
	// the ticks at or below the current tick is used.
	Liquidity string `yaml:"liquidity"`
}

// TickSpec is a concentrated-liquidity tick fixture.
type TickSpec struct {
	Index             int32  `yaml:"index"`
	LiquidityGross    string `yaml:"liquidity_gross"`
	LiquidityNet      string `yaml:"liquidity_net"`
	FeeGrowthOutside0 string `yaml:"fee_growth_outside0"`
	FeeGrowthOutside1 string `yaml:"fee_growth_outside1"`
	Initialized       bool   `yaml:"initialized"`
}

// LoadConfig reads and validates a YAML configuration file.
func LoadConfig(path string) (*QuoterConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates YAML configuration bytes.
func Parse(data []byte) (*QuoterConfig, error) {
	var cfg QuoterConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *QuoterConfig) validate() error {
	seen := make(map[string]struct{}, len(c.Pools))
	for i, p := range c.Pools {
		if p.Name == "" {
			return fmt.Errorf("config: pools[%d] has no name", i)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("config: duplicate pool name %q", p.Name)
		}
		seen[p.Name] = struct{}{}
		if _, err := engine.ParseProtocolKind(p.Protocol); err != nil {
			return fmt.Errorf("config: pool %q: %w", p.Name, err)
		}
	}
	for symbol, addr := range c.Tokens {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("config: token %s has invalid address %q", symbol, addr)
		}
	}
	for tag := range c.GasEstimates {
		if _, err := engine.ParseProtocolKind(tag); err != nil {
			return fmt.Errorf("config: gas_estimates: %w", err)
		}
	}
	return nil
}

// Pool returns the pool fixture with the given name.
func (c *QuoterConfig) Pool(name string) (PoolConfig, error) {
	for _, p := range c.Pools {
		if p.Name == name {
			return p, nil
		}
	}
	return PoolConfig{}, fmt.Errorf("pool %q not found in config", name)
}

// ResolveToken accepts a hex address or a symbol from the tokens table.
func (c *QuoterConfig) ResolveToken(s string) (common.Address, error) {
	if common.IsHexAddress(s) {
		return common.HexToAddress(s), nil
	}
	for symbol, addr := range c.Tokens {
		if strings.EqualFold(symbol, s) {
			return common.HexToAddress(addr), nil
		}
	}
	return common.Address{}, fmt.Errorf("unknown token %q", s)
}

// RouterGasEstimates converts the gas_estimates table to router form.
func (c *QuoterConfig) RouterGasEstimates() map[engine.ProtocolKind]uint64 {
	out := make(map[engine.ProtocolKind]uint64, len(c.GasEstimates))
	for tag, gas := range c.GasEstimates {
		kind, _ := engine.ParseProtocolKind(tag) // checked in validate
		out[kind] = gas
	}
	return out
}

// Kind returns the pool's protocol kind.
func (p PoolConfig) Kind() (engine.ProtocolKind, error) {
	return engine.ParseProtocolKind(p.Protocol)
}

// State converts a pool fixture into a router pool state.
func (p PoolConfig) State() (router.PoolState, error) {
	kind, err := p.Kind()
	if err != nil {
		return router.PoolState{}, err
	}
	tokens, err := parseAddresses(p.Tokens)
	if err != nil {
		return router.PoolState{}, fmt.Errorf("pool %q: %w", p.Name, err)
	}
	if kind == engine.ProtocolConcentrated {
		return p.concentratedState(tokens)
	}

	balances, err := parseAmounts(p.Balances)
	if err != nil {
		return router.PoolState{}, fmt.Errorf("pool %q: %w", p.Name, err)
	}
	if len(tokens) != len(balances) {
		return router.PoolState{}, fmt.Errorf("pool %q: %d tokens but %d balances", p.Name, len(tokens), len(balances))
	}

	switch kind {
	case engine.ProtocolCPMM:
		if len(tokens) != 2 {
			return router.PoolState{}, fmt.Errorf("pool %q: cpmm pools need exactly 2 tokens, got %d", p.Name, len(tokens))
		}
		return router.CPMMState(cpmm.Pool{
			ID:       p.ID,
			Token0:   tokens[0],
			Token1:   tokens[1],
			Reserve0: balances[0],
			Reserve1: balances[1],
			Fee:      engine.Fee(p.Fee),
		}), nil
	case engine.ProtocolStableSwap:
		return router.StableSwapState(stableswap.Pool{
			ID:            p.ID,
			Tokens:        tokens,
			Balances:      balances,
			Amplification: p.Amplification,
			Fee:           engine.Fee(p.Fee),
			AdminFee:      engine.Fee(p.AdminFee),
		}), nil
	}
	return router.PoolState{}, fmt.Errorf("pool %q: %w: %s", p.Name, router.ErrUnsupportedProtocol, kind)
}

func (p PoolConfig) concentratedState(tokens []common.Address) (router.PoolState, error) {
	if len(tokens) != 2 {
		return router.PoolState{}, fmt.Errorf("pool %q: concentrated pools need exactly 2 tokens, got %d", p.Name, len(tokens))
	}
	l, err := p.Ledger()
	if err != nil {
		return router.PoolState{}, err
	}

	var sqrtPrice *uint256.Int
	if p.SqrtPriceX96 != "" {
		if sqrtPrice, err = ParseAmount(p.SqrtPriceX96); err != nil {
			return router.PoolState{}, fmt.Errorf("pool %q sqrt_price_x96: %w", p.Name, err)
		}
		if _, err := l.SyncToSqrtPrice(sqrtPrice); err != nil {
			return router.PoolState{}, fmt.Errorf("pool %q: %w", p.Name, err)
		}
	} else if sqrtPrice, err = l.CurrentSqrtPriceX96(); err != nil {
		return router.PoolState{}, fmt.Errorf("pool %q: %w", p.Name, err)
	}

	var liquidity *uint256.Int
	if p.Liquidity != "" {
		liquidity, err = ParseAmount(p.Liquidity)
	} else {
		liquidity, err = l.ActiveLiquidity()
	}
	if err != nil {
		return router.PoolState{}, fmt.Errorf("pool %q liquidity: %w", p.Name, err)
	}

	return router.ConcentratedState(l.Pool(concentrated.Pool{
		ID:           p.ID,
		Token0:       tokens[0],
		Token1:       tokens[1],
		FeeTier:      p.FeeTier,
		SqrtPriceX96: sqrtPrice,
		Liquidity:    liquidity,
	})), nil
}

// Ledger builds a tick ledger from a concentrated fixture.
func (p PoolConfig) Ledger() (*ledger.Ledger, error) {
	kind, err := p.Kind()
	if err != nil {
		return nil, err
	}
	if kind != engine.ProtocolConcentrated {
		return nil, fmt.Errorf("pool %q is %s, not concentrated", p.Name, kind)
	}

	var opts []ledger.Option
	if p.WrapFeeGrowth {
		opts = append(opts, ledger.WithWrappingFeeGrowth())
	}
	var diff concentrated.TickDiff
	for _, spec := range p.Ticks {
		tick, err := spec.tick()
		if err != nil {
			return nil, fmt.Errorf("pool %q: %w", p.Name, err)
		}
		diff.Additions = append(diff.Additions, tick)
	}
	l := ledger.New(p.CurrentTick, opts...)
	l.Apply(diff)
	return l, nil
}

func (s TickSpec) tick() (concentrated.Tick, error) {
	tick := concentrated.NewTick(s.Index)
	tick.Initialized = s.Initialized

	for _, field := range []struct {
		name  string
		value string
		dest  *uint256.Int
	}{
		{"liquidity_gross", s.LiquidityGross, tick.LiquidityGross},
		{"fee_growth_outside0", s.FeeGrowthOutside0, tick.FeeGrowthOutside0X128},
		{"fee_growth_outside1", s.FeeGrowthOutside1, tick.FeeGrowthOutside1X128},
	} {
		if field.value == "" {
			continue
		}
		v, err := ParseAmount(field.value)
		if err != nil {
			return concentrated.Tick{}, fmt.Errorf("tick %d %s: %w", s.Index, field.name, err)
		}
		field.dest.Set(v)
	}
	if s.LiquidityNet != "" {
		net, err := ParseSigned(s.LiquidityNet)
		if err != nil {
			return concentrated.Tick{}, fmt.Errorf("tick %d liquidity_net: %w", s.Index, err)
		}
		tick.LiquidityNet = net
	}
	return tick, nil
}

func parseAddresses(in []string) ([]common.Address, error) {
	out := make([]common.Address, len(in))
	for i, s := range in {
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("invalid address %q", s)
		}
		out[i] = common.HexToAddress(s)
	}
	return out, nil
}

func parseAmounts(in []string) ([]*uint256.Int, error) {
	out := make([]*uint256.Int, len(in))
	for i, s := range in {
		v, err := ParseAmount(s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// ParseAmount parses a decimal amount string, allowing '_' as a digit separator.
func ParseAmount(s string) (*uint256.Int, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(s), "_", "")
	if clean == "" {
		return nil, errors.New("empty amount")
	}
	v, err := uint256.FromDecimal(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return v, nil
}

// ParseSigned parses a signed decimal integer such as a liquidity delta.
func ParseSigned(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.ReplaceAll(strings.TrimSpace(s), "_", ""), 10)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	return v, nil
}
