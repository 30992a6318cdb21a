package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/defistate/defistate-amm-go/cmd/quoter/config"
	"github.com/defistate/defistate-amm-go/engine"
	"github.com/defistate/defistate-amm-go/protocols/concentrated"
	"github.com/defistate/defistate-amm-go/router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "quoter",
		Short:        "Price swaps and inspect tick state against pool fixtures",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "config.yaml", "Path to the configuration file.")

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote an exact-input swap",
		RunE:  runQuote(false),
	}
	quoteCmd.Flags().String("pool", "", "pool name from the config")
	quoteCmd.Flags().String("in", "", "input token (symbol or address)")
	quoteCmd.Flags().String("out", "", "output token (symbol or address)")
	quoteCmd.Flags().String("amount", "", "exact input amount in base units")
	root.AddCommand(quoteCmd)

	quoteInCmd := &cobra.Command{
		Use:   "quote-in",
		Short: "Quote the input required for an exact output",
		RunE:  runQuote(true),
	}
	quoteInCmd.Flags().String("pool", "", "pool name from the config")
	quoteInCmd.Flags().String("in", "", "input token (symbol or address)")
	quoteInCmd.Flags().String("out", "", "output token (symbol or address)")
	quoteInCmd.Flags().String("amount", "", "exact output amount in base units")
	root.AddCommand(quoteInCmd)

	feeGrowthCmd := &cobra.Command{
		Use:   "fee-growth",
		Short: "Fee growth inside a tick range of a concentrated pool",
		RunE:  runFeeGrowth,
	}
	feeGrowthCmd.Flags().String("pool", "", "concentrated pool name from the config")
	feeGrowthCmd.Flags().Int32("lower", 0, "lower tick index")
	feeGrowthCmd.Flags().Int32("upper", 0, "upper tick index")
	root.AddCommand(feeGrowthCmd)

	ticksCmd := &cobra.Command{
		Use:   "ticks",
		Short: "List the initialized ticks of a concentrated pool",
		RunE:  runTicks,
	}
	ticksCmd.Flags().String("pool", "", "concentrated pool name from the config")
	root.AddCommand(ticksCmd)

	root.AddCommand(&cobra.Command{
		Use:   "spacing FEE_TIER",
		Short: "Tick spacing for a fee tier (500, 3000, 10000)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			feeTier, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid fee tier %q: %w", args[0], err)
			}
			return writeJSON(cmd, map[string]any{
				"feeTier":     feeTier,
				"tickSpacing": concentrated.TickSpacing(uint32(feeTier)),
			})
		},
	})

	return root
}

// setup loads the config and builds the logger the way every subcommand needs them.
func setup(cmd *cobra.Command) (*config.QuoterConfig, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, nil, err
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	logger := slog.New(slog.NewJSONHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return cfg, logger, nil
}

func runQuote(exactOut bool) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}

		poolName, _ := cmd.Flags().GetString("pool")
		tokenIn, _ := cmd.Flags().GetString("in")
		tokenOut, _ := cmd.Flags().GetString("out")
		amount, _ := cmd.Flags().GetString("amount")

		poolCfg, err := cfg.Pool(poolName)
		if err != nil {
			return err
		}
		state, err := poolCfg.State()
		if err != nil {
			return err
		}

		req := engine.TradeRequest{Chain: cfg.Chain}
		if req.TokenIn, err = cfg.ResolveToken(tokenIn); err != nil {
			return err
		}
		if req.TokenOut, err = cfg.ResolveToken(tokenOut); err != nil {
			return err
		}
		value, err := config.ParseAmount(amount)
		if err != nil {
			return err
		}
		if exactOut {
			req.AmountOut = value
		} else {
			req.AmountIn = value
		}

		r, err := router.NewRouter(&router.Config{
			Logger:       logger.With("component", "router"),
			Registry:     prometheus.NewRegistry(),
			GasEstimates: cfg.RouterGasEstimates(),
		})
		if err != nil {
			return err
		}

		var quote *engine.Quote
		if exactOut {
			quote, err = r.GetInputQuote(state, req)
		} else {
			quote, err = r.GetQuote(state, req)
		}
		if err != nil {
			logger.Error("quote failed", "pool", poolName, "error", err)
			return err
		}
		logger.Debug("quote computed", "pool", poolName, "protocol", quote.Protocol.String())
		return writeJSON(cmd, quote)
	}
}

func runFeeGrowth(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup(cmd)
	if err != nil {
		return err
	}
	poolName, _ := cmd.Flags().GetString("pool")
	lower, _ := cmd.Flags().GetInt32("lower")
	upper, _ := cmd.Flags().GetInt32("upper")

	poolCfg, err := cfg.Pool(poolName)
	if err != nil {
		return err
	}
	l, err := poolCfg.Ledger()
	if err != nil {
		return err
	}
	growth0, growth1, err := l.FeeGrowthInside(lower, upper)
	if err != nil {
		logger.Error("fee growth failed", "pool", poolName, "lower", lower, "upper", upper, "error", err)
		return err
	}
	return writeJSON(cmd, map[string]any{
		"lower":                lower,
		"upper":                upper,
		"feeGrowthInside0X128": growth0.Dec(),
		"feeGrowthInside1X128": growth1.Dec(),
	})
}

func runTicks(cmd *cobra.Command, _ []string) error {
	cfg, _, err := setup(cmd)
	if err != nil {
		return err
	}
	poolName, _ := cmd.Flags().GetString("pool")
	poolCfg, err := cfg.Pool(poolName)
	if err != nil {
		return err
	}
	l, err := poolCfg.Ledger()
	if err != nil {
		return err
	}
	return writeJSON(cmd, map[string]any{
		"currentTick": l.CurrentTick(),
		"tickSpacing": concentrated.TickSpacing(poolCfg.FeeTier),
		"ticks":       l.InitializedTicks(),
	})
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
