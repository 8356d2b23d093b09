package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/pairtrade/datasource"
	"github.com/rustyeddy/pairtrade/internal/logging"
	"github.com/rustyeddy/pairtrade/session"
	"github.com/rustyeddy/pairtrade/store"
	"github.com/rustyeddy/pairtrade/strategy"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay historical prices through the pairs strategy",
	Long: `Backtest replays prices from the SQLite store through the ratio
mean-reversion strategy and reports the final portfolio statistics.

Example:
  pairtrade backtest --config sim.yaml --db prices.db --iterations 1000`,
	RunE: runBacktest,
}

var (
	btConfigPath string
	btDBPath     string
	btStart      string
	btEnd        string
	btIterations int
	btCapital    float64
	btSymbolA    string
	btSymbolB    string
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&btConfigPath, "config", "f", "", "path to config file (YAML or JSON)")
	backtestCmd.Flags().StringVar(&btDBPath, "db", "", "SQLite store path (overrides config)")
	backtestCmd.Flags().StringVar(&btStart, "start", "", "replay start time, RFC 3339 (overrides config)")
	backtestCmd.Flags().StringVar(&btEnd, "end", "", "replay end time, RFC 3339 (overrides config)")
	backtestCmd.Flags().IntVarP(&btIterations, "iterations", "n", 0, "iteration limit, 0 for unbounded (overrides config)")
	backtestCmd.Flags().Float64Var(&btCapital, "capital", 0, "starting capital (overrides config)")
	backtestCmd.Flags().StringVar(&btSymbolA, "symbol-a", "", "ratio numerator symbol (overrides config)")
	backtestCmd.Flags().StringVar(&btSymbolB, "symbol-b", "", "ratio denominator symbol (overrides config)")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(btConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if btDBPath != "" {
		cfg.Store.Path = btDBPath
	}
	if btStart != "" {
		cfg.Session.StartTime = btStart
	}
	if btEnd != "" {
		cfg.Session.EndTime = btEnd
	}
	if btIterations > 0 {
		cfg.Session.MaxIterations = btIterations
	}
	if btCapital > 0 {
		cfg.Account.Capital = btCapital
	}
	if btSymbolA != "" {
		cfg.Strategy.SymbolA = btSymbolA
	}
	if btSymbolB != "" {
		cfg.Strategy.SymbolB = btSymbolB
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log := logging.New(cfg.LogLevel)
	ctx := context.Background()

	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	start, err := cfg.Session.ParseStart()
	if err != nil {
		return err
	}
	end, err := cfg.Session.ParseEnd()
	if err != nil {
		return err
	}

	replay, err := datasource.NewReplay(ctx, st, st, start, end, log)
	if err != nil {
		return fmt.Errorf("load replay data: %w", err)
	}

	strat, err := buildStrategy(cfg, replay, log)
	if err != nil {
		return fmt.Errorf("strategy: %w", err)
	}

	ledger := buildLedger(cfg, log)
	if err := ledger.RegisterStrategy(strat.ID(), cfg.Strategy.Allocation); err != nil {
		return err
	}

	exec, err := buildExecutor(cfg, replay, nil, log)
	if err != nil {
		return err
	}

	sess, err := session.New(session.Config{
		Mode:          session.Replay,
		Interval:      cfg.Session.Interval(),
		MaxIterations: cfg.Session.MaxIterations,
		Paper:         true,
		StatusEvery:   cfg.Session.StatusEvery,
	}, replay, []strategy.Strategy{strat}, ledger, exec, log, session.WithTradeLog(st))
	if err != nil {
		return err
	}

	fmt.Printf("Running backtest %s vs %s\n", cfg.Strategy.SymbolA, cfg.Strategy.SymbolB)
	fmt.Printf("  Store: %s\n", cfg.Store.Path)
	fmt.Printf("  Capital: $%.2f\n\n", cfg.Account.Capital)

	if err := sess.Run(ctx); err != nil {
		return fmt.Errorf("backtest: %w", err)
	}

	printReport(sess.Stats())
	return nil
}

func printReport(stats session.Stats) {
	p := stats.Portfolio
	fmt.Printf("\nBacktest Complete!\n")
	fmt.Printf("  Iterations: %d\n", stats.Iterations)
	fmt.Printf("  Final Value: $%.2f\n", p.TotalValue)
	fmt.Printf("  Realized P&L: $%+.2f\n", p.RealizedPnL)
	fmt.Printf("  Unrealized P&L: $%+.2f\n", p.UnrealizedPnL)
	fmt.Printf("  Fees Paid: $%.2f\n", p.FeesPaid)
	fmt.Printf("  Trades: %d (W: %d / L: %d", p.NumTrades, p.WinningTrades, p.LosingTrades)
	if p.WinningTrades+p.LosingTrades > 0 {
		fmt.Printf(", Win Rate: %.1f%%", p.WinRate*100)
	}
	fmt.Printf(")\n")
}
