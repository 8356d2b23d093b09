package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/pairtrade/datasource"
	"github.com/rustyeddy/pairtrade/internal/logging"
	"github.com/rustyeddy/pairtrade/session"
	"github.com/rustyeddy/pairtrade/store"
	"github.com/rustyeddy/pairtrade/strategy"
)

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Paper trade against the latest collected prices",
	Long: `Live runs the pairs strategy against the most recent prices in the
store, simulating fills with the mock executor. No real orders are
placed. Stop with Ctrl-C; final statistics are printed on exit.

Example:
  pairtrade live --config sim.yaml --db prices.db`,
	RunE: runLive,
}

var (
	liveConfigPath string
	liveDBPath     string
	liveIterations int
)

func init() {
	rootCmd.AddCommand(liveCmd)

	liveCmd.Flags().StringVarP(&liveConfigPath, "config", "f", "", "path to config file (YAML or JSON)")
	liveCmd.Flags().StringVar(&liveDBPath, "db", "", "SQLite store path (overrides config)")
	liveCmd.Flags().IntVarP(&liveIterations, "iterations", "n", 0, "iteration limit, 0 for unbounded (overrides config)")
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(liveConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if liveDBPath != "" {
		cfg.Store.Path = liveDBPath
	}
	if liveIterations > 0 {
		cfg.Session.MaxIterations = liveIterations
	}
	// The backtest executor needs a replay clock; live runs always use
	// the mock executor.
	cfg.Execution.ExecutorType = "mock"
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log := logging.New(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ds := datasource.NewLive(st, log)

	strat, err := buildStrategy(cfg, ds, log)
	if err != nil {
		return fmt.Errorf("strategy: %w", err)
	}

	ledger := buildLedger(cfg, log)
	if err := ledger.RegisterStrategy(strat.ID(), cfg.Strategy.Allocation); err != nil {
		return err
	}

	exec, err := buildExecutor(cfg, nil, ds, log)
	if err != nil {
		return err
	}

	sess, err := session.New(session.Config{
		Mode:          session.Live,
		Interval:      cfg.Session.Interval(),
		MaxIterations: cfg.Session.MaxIterations,
		Paper:         true,
		StatusEvery:   cfg.Session.StatusEvery,
	}, ds, []strategy.Strategy{strat}, ledger, exec, log, session.WithTradeLog(st))
	if err != nil {
		return err
	}

	fmt.Printf("Paper trading %s vs %s every %s (Ctrl-C to stop)\n\n",
		cfg.Strategy.SymbolA, cfg.Strategy.SymbolB, cfg.Session.Interval())

	err = sess.Run(ctx)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("live session: %w", err)
	}

	printReport(sess.Stats())
	return nil
}
