// Package session drives the trading loop: strategies produce signals,
// the ledger turns them into orders, the executor fills them, and the
// ledger is marked to the refreshed prices, in that fixed order every
// iteration.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/pairtrade/datasource"
	"github.com/rustyeddy/pairtrade/executor"
	"github.com/rustyeddy/pairtrade/internal/id"
	"github.com/rustyeddy/pairtrade/market"
	"github.com/rustyeddy/pairtrade/portfolio"
	"github.com/rustyeddy/pairtrade/store"
	"github.com/rustyeddy/pairtrade/strategy"
)

// Mode selects how the loop advances time. The orchestrator branches on
// this flag, never on the data source's concrete type.
type Mode string

const (
	Replay Mode = "replay" // advance the simulated clock after each iteration
	Live   Mode = "live"   // sleep for the interval between iterations
)

// Config parametrizes a session.
type Config struct {
	Mode          Mode
	Interval      time.Duration
	MaxIterations int  // 0 means unbounded
	Paper         bool // marks trade records as simulated
	StatusEvery   int  // iterations between status lines, 0 disables
}

// Stats is the end-of-run report.
type Stats struct {
	SessionID  string
	Iterations int
	Portfolio  portfolio.Stats
}

// Session wires the data source, strategies, ledger and executor into
// the iteration loop. It holds its collaborators by reference and owns
// only the iteration counter and clock handling.
type Session struct {
	id  string
	cfg Config
	log zerolog.Logger

	ds         datasource.DataSource
	clock      datasource.Clock // nil in live mode
	strategies []strategy.Strategy
	ledger     *portfolio.Ledger
	exec       executor.Executor
	trades     store.TradeLog // optional

	mu         sync.Mutex
	stop       chan struct{}
	stopOnce   sync.Once
	iterations int
}

// Option customizes a Session at construction.
type Option func(*Session)

// WithTradeLog attaches a sink that receives every signal and trade.
func WithTradeLog(tl store.TradeLog) Option {
	return func(s *Session) { s.trades = tl }
}

// WithClock sets the simulated clock advanced in replay mode. Required
// when cfg.Mode is Replay.
func WithClock(c datasource.Clock) Option {
	return func(s *Session) { s.clock = c }
}

func New(cfg Config, ds datasource.DataSource, strategies []strategy.Strategy,
	ledger *portfolio.Ledger, exec executor.Executor, log zerolog.Logger, opts ...Option) (*Session, error) {

	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %v", cfg.Interval)
	}
	if len(strategies) == 0 {
		return nil, errors.New("session needs at least one strategy")
	}

	s := &Session{
		id:         id.New(),
		cfg:        cfg,
		log:        log,
		ds:         ds,
		strategies: strategies,
		ledger:     ledger,
		exec:       exec,
		stop:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.Mode == Replay {
		if s.clock == nil {
			if c, ok := ds.(datasource.Clock); ok {
				s.clock = c
			} else {
				return nil, errors.New("replay mode requires a clock")
			}
		}
	}

	log.Info().Str("session", s.id).Str("mode", string(cfg.Mode)).
		Dur("interval", cfg.Interval).Int("strategies", len(strategies)).
		Msg("session created")
	return s, nil
}

// ID returns the session identifier stamped on trade records.
func (s *Session) ID() string { return s.id }

// Run executes the loop until the iteration limit, the replay end time,
// a stop request, context cancellation, or an error. Final statistics
// are reported exactly once on every exit path.
func (s *Session) Run(ctx context.Context) (err error) {
	defer s.reportFinal()

	var endTime time.Time
	if s.cfg.Mode == Replay {
		if rs, ok := s.ds.(*datasource.ReplaySource); ok {
			endTime = rs.End()
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopChan():
			s.log.Info().Msg("stop requested")
			return nil
		default:
		}

		done := s.iterCount()
		if s.cfg.MaxIterations > 0 && done >= s.cfg.MaxIterations {
			s.log.Info().Int("iterations", done).Msg("iteration limit reached")
			return nil
		}
		if s.cfg.Mode == Replay && !endTime.IsZero() && s.clock.Now().After(endTime) {
			s.log.Info().Time("end", endTime).Msg("end of replay window")
			return nil
		}

		if err := s.iterate(ctx); err != nil {
			return fmt.Errorf("iteration %d: %w", done, err)
		}

		s.mu.Lock()
		s.iterations++
		done = s.iterations
		s.mu.Unlock()

		if s.cfg.StatusEvery > 0 && done%s.cfg.StatusEvery == 0 {
			s.logStatus(done)
		}

		if s.cfg.Mode == Replay {
			s.clock.Advance(s.cfg.Interval)
		} else {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.stopChan():
				s.log.Info().Msg("stop requested")
				return nil
			case <-time.After(s.cfg.Interval):
			}
		}
	}
}

// iterate runs one full pass: evaluate, order, execute, refresh, mark.
func (s *Session) iterate(ctx context.Context) error {
	var signals []market.Signal
	for _, strat := range s.strategies {
		sigs, err := strat.Evaluate(ctx)
		if err != nil {
			// Data trouble for one strategy skips it this iteration.
			s.log.Warn().Err(err).Str("strategy", strat.ID()).Msg("evaluation failed")
			continue
		}
		for i := range sigs {
			sigs[i].StrategyID = strat.ID()
		}
		signals = append(signals, sigs...)
	}

	orders := s.ledger.ProcessSignals(signals)
	s.recordSignals(ctx, signals, orders)

	for _, order := range orders {
		fill, err := s.exec.ExecuteOrder(ctx, order)
		if err != nil {
			// Dropped, never retried.
			s.log.Warn().Err(err).Str("symbol", order.Symbol).Msg("order failed")
			continue
		}
		if err := s.ledger.ProcessFill(fill); err != nil {
			return err
		}
		s.recordTrade(ctx, fill)
	}

	s.refreshPrices(ctx)
	return nil
}

// refreshPrices marks every open position to the current price.
func (s *Session) refreshPrices(ctx context.Context) {
	positions := s.ledger.Positions()
	if len(positions) == 0 {
		return
	}

	prices := make(map[string]float64, len(positions))
	for symbol := range positions {
		p, ok, err := s.ds.CurrentPrice(ctx, symbol)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("price refresh failed")
			continue
		}
		if ok {
			prices[symbol] = p.Price
		}
	}
	s.ledger.UpdatePrices(prices)
}

// recordSignals writes every signal to the log sink, marking the ones
// the ledger turned into an order.
func (s *Session) recordSignals(ctx context.Context, signals []market.Signal, orders []market.Order) {
	if s.trades == nil || len(signals) == 0 {
		return
	}

	acted := make(map[string]bool, len(orders))
	for _, o := range orders {
		acted[o.StrategyID+"|"+o.Symbol] = true
	}

	for _, sig := range signals {
		rec := store.SignalRecord{
			Symbol:     sig.Symbol,
			Type:       sig.Type,
			Strength:   sig.Strength,
			Price:      sig.Price,
			Reason:     sig.Reason,
			StrategyID: sig.StrategyID,
			SessionID:  s.id,
			Acted:      acted[sig.StrategyID+"|"+sig.Symbol],
			Time:       sig.Time,
		}
		if err := s.trades.RecordSignal(ctx, rec); err != nil {
			s.log.Warn().Err(err).Str("symbol", sig.Symbol).Msg("signal record failed")
		}
	}
}

func (s *Session) recordTrade(ctx context.Context, fill market.Fill) {
	if s.trades == nil {
		return
	}

	rec := store.TradeRecord{
		OrderID:    fill.Order.ID,
		Symbol:     fill.Order.Symbol,
		Side:       fill.Order.Side,
		Price:      fill.ExecutedPrice,
		Amount:     fill.ExecutedSize,
		Fee:        fill.Fees,
		StrategyID: fill.Order.StrategyID,
		SessionID:  s.id,
		Paper:      s.cfg.Paper,
		Time:       fill.Time,
	}
	if err := s.trades.RecordTrade(ctx, rec); err != nil {
		s.log.Warn().Err(err).Str("symbol", rec.Symbol).Msg("trade record failed")
	}
}

func (s *Session) iterCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.iterations
}

func (s *Session) logStatus(iteration int) {
	stats := s.ledger.Stats()
	ev := s.log.Info().
		Int("iteration", iteration).
		Float64("total", stats.TotalValue).
		Float64("cash", stats.Cash).
		Int("positions", stats.NumPositions).
		Float64("pnl", stats.TotalPnL)

	if rs, ok := s.ds.(*datasource.ReplaySource); ok {
		if pct := rs.Progress(); pct >= 0 {
			ev = ev.Float64("progress_pct", pct)
		}
	}
	ev.Msg("portfolio status")
}

func (s *Session) reportFinal() {
	stats := s.Stats()
	s.log.Info().
		Str("session", stats.SessionID).
		Int("iterations", stats.Iterations).
		Float64("final_value", stats.Portfolio.TotalValue).
		Float64("realized_pnl", stats.Portfolio.RealizedPnL).
		Float64("unrealized_pnl", stats.Portfolio.UnrealizedPnL).
		Float64("fees", stats.Portfolio.FeesPaid).
		Int("trades", stats.Portfolio.NumTrades).
		Float64("win_rate", stats.Portfolio.WinRate).
		Msg("session finished")
}

// Stats returns the current aggregate report.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		SessionID:  s.id,
		Iterations: s.iterations,
		Portfolio:  s.ledger.Stats(),
	}
}

// Stop requests a cooperative stop, honored at the next iteration
// boundary. Safe to call more than once and from other goroutines.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		close(s.stop)
	})
}

func (s *Session) stopChan() chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop
}

// Reset rewinds the session for an identical rerun: clock back to
// start, ledger to initial capital, every strategy to NEUTRAL, counters
// cleared. The session ID is kept.
func (s *Session) Reset() {
	s.mu.Lock()
	s.stop = make(chan struct{})
	s.stopOnce = sync.Once{}
	s.iterations = 0
	s.mu.Unlock()

	if s.clock != nil {
		s.clock.Reset()
	}
	s.ledger.Reset()
	for _, strat := range s.strategies {
		strat.Reset()
	}

	s.log.Info().Str("session", s.id).Msg("session reset")
}
