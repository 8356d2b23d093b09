package cmd

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/pairtrade/config"
	"github.com/rustyeddy/pairtrade/datasource"
	"github.com/rustyeddy/pairtrade/executor"
	"github.com/rustyeddy/pairtrade/portfolio"
	"github.com/rustyeddy/pairtrade/strategy"
)

// loadConfig reads the config file when given, else starts from the
// defaults. Overrides from flags are applied by the caller before
// validation.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.LoadFromFile(path)
}

func buildStrategy(cfg *config.Config, ds datasource.DataSource, log zerolog.Logger) (strategy.Strategy, error) {
	name := cfg.Strategy.Name
	if name == "" {
		name = "ratio"
	}
	return strategy.ByName(name, ds, strategy.RatioConfig{
		SymbolA:         cfg.Strategy.SymbolA,
		SymbolB:         cfg.Strategy.SymbolB,
		LookbackPeriods: cfg.Strategy.LookbackPeriods,
		EntryThreshold:  cfg.Strategy.EntryThreshold,
		ExitThreshold:   cfg.Strategy.ExitThreshold,
	}, log)
}

func buildLedger(cfg *config.Config, log zerolog.Logger) *portfolio.Ledger {
	return portfolio.NewLedger(portfolio.Config{
		InitialCapital: cfg.Account.Capital,
		MaxPositionPct: cfg.Portfolio.MaxPositionSizePct,
		MaxPositions:   cfg.Portfolio.MaxPositions,
		Sizing:         portfolio.SizingMode(cfg.Portfolio.PositionSizing),
		MinOrderSize:   cfg.Portfolio.MinOrderSize,
	}, log)
}

func executorConfig(cfg *config.Config) executor.Config {
	return executor.Config{
		SlippageBps: cfg.Execution.SlippageBps,
		FeeBps:      cfg.Execution.FeeBps,
		FillRate:    cfg.Execution.FillRate,
		UseBidAsk:   cfg.Execution.UseBidAsk,
	}
}

func buildExecutor(cfg *config.Config, replay *datasource.ReplaySource, live datasource.DataSource, log zerolog.Logger) (executor.Executor, error) {
	switch cfg.Execution.ExecutorType {
	case "backtest":
		if replay == nil {
			return nil, fmt.Errorf("backtest executor requires replayed data")
		}
		return executor.NewBacktest(replay, executorConfig(cfg), log), nil
	case "mock":
		ds := live
		if ds == nil {
			ds = replay
		}
		return executor.NewMock(ds, executorConfig(cfg), log), nil
	default:
		return nil, fmt.Errorf("unknown executor type %q", cfg.Execution.ExecutorType)
	}
}
