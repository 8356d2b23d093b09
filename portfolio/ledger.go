// Package portfolio owns the cash balance and the positions map. All
// mutation happens through the Ledger, serialized behind one mutex so
// concurrent strategy evaluation cannot break the accounting
// invariants.
package portfolio

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/pairtrade/internal/id"
	"github.com/rustyeddy/pairtrade/market"
)

// SizingMode selects how entry orders are sized.
type SizingMode string

const (
	SizingEqual          SizingMode = "equal"
	SizingSignalStrength SizingMode = "signal_strength"
	SizingVolatility     SizingMode = "volatility" // declared, not yet implemented
)

// SizingImplemented reports whether a mode has a real implementation.
// SizingVolatility is recognized but falls back to equal sizing; keep
// the distinction observable instead of silently aliasing the two.
func SizingImplemented(mode SizingMode) bool {
	switch mode {
	case SizingEqual, SizingSignalStrength:
		return true
	default:
		return false
	}
}

const (
	cashBuffer      = 0.99 // leave 1% of cash unspent when capped
	maxEquityPoints = 10_000
)

// Config parametrizes the ledger.
type Config struct {
	InitialCapital float64
	MaxPositionPct float64 // max position size as fraction of portfolio value
	MaxPositions   int
	Sizing         SizingMode
	MinOrderSize   float64 // orders below this floor are dropped
}

// EquityPoint is one sample of total portfolio value, taken after every
// fill.
type EquityPoint struct {
	Time  time.Time
	Value float64
}

// Stats is derived on demand from cash, open positions and the closed
// position history; it is never stored.
type Stats struct {
	TotalValue     float64
	Cash           float64
	PositionsValue float64
	UnrealizedPnL  float64
	RealizedPnL    float64
	TotalPnL       float64
	FeesPaid       float64
	NumPositions   int
	NumTrades      int
	WinningTrades  int
	LosingTrades   int
	WinRate        float64
	AvgWin         float64
	AvgLoss        float64
}

// Ledger turns signals into sized orders and fills into positions and
// booked P&L. It enforces at most one open position per symbol and the
// configured open-position cap.
type Ledger struct {
	mu  sync.Mutex
	log zerolog.Logger
	cfg Config

	cash      float64
	positions map[string]*market.Position
	closed    []*market.Position

	allocations map[string]float64 // strategy id -> allocation (0,1]

	realizedPnL float64
	feesPaid    float64
	tradeCount  int
	equity      []EquityPoint
}

func NewLedger(cfg Config, log zerolog.Logger) *Ledger {
	if cfg.Sizing == "" {
		cfg.Sizing = SizingEqual
	}
	if cfg.MinOrderSize == 0 {
		cfg.MinOrderSize = 100
	}
	return &Ledger{
		log:         log,
		cfg:         cfg,
		cash:        cfg.InitialCapital,
		positions:   make(map[string]*market.Position),
		allocations: make(map[string]float64),
	}
}

// RegisterStrategy admits a strategy with a capital allocation in
// (0, 1]. Signals from unregistered strategies are dropped.
func (l *Ledger) RegisterStrategy(strategyID string, allocation float64) error {
	if allocation <= 0 || allocation > 1 {
		return fmt.Errorf("allocation must be between 0 and 1, got %v", allocation)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.allocations[strategyID] = allocation

	l.log.Debug().Str("strategy", strategyID).Float64("allocation", allocation).
		Msg("registered strategy")
	return nil
}

// ProcessSignals converts signals into orders. Signals are processed by
// descending strength (stable on ties) so the strongest conviction
// claims scarce position slots first.
func (l *Ledger) ProcessSignals(signals []market.Signal) []market.Order {
	l.mu.Lock()
	defer l.mu.Unlock()

	sorted := make([]market.Signal, len(signals))
	copy(sorted, signals)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Strength > sorted[j].Strength
	})

	var orders []market.Order
	for _, sig := range sorted {
		if sig.Type == market.SignalHold {
			continue
		}
		if _, ok := l.allocations[sig.StrategyID]; !ok {
			l.log.Warn().Str("strategy", sig.StrategyID).Str("symbol", sig.Symbol).
				Msg("signal from unregistered strategy")
			continue
		}

		if pos, ok := l.positions[sig.Symbol]; ok {
			if closesPosition(sig, pos) {
				if order, ok := l.exitOrderLocked(pos); ok {
					orders = append(orders, order)
				}
			} else {
				l.log.Debug().Str("symbol", sig.Symbol).Msg("position already open, signal dropped")
			}
			continue
		}

		if len(l.positions) >= l.cfg.MaxPositions {
			l.log.Warn().Int("max", l.cfg.MaxPositions).Str("symbol", sig.Symbol).
				Msg("position cap reached, signal dropped")
			continue
		}

		if order, ok := l.entryOrderLocked(sig); ok {
			orders = append(orders, order)
		}
	}
	return orders
}

// closesPosition reports whether the signal direction closes the
// position's side: longs close on SELL, shorts on BUY.
func closesPosition(sig market.Signal, pos *market.Position) bool {
	if pos.Side == market.Long && sig.Type == market.SignalSell {
		return true
	}
	if pos.Side == market.Short && sig.Type == market.SignalBuy {
		return true
	}
	return false
}

func (l *Ledger) entryOrderLocked(sig market.Signal) (market.Order, bool) {
	size := l.positionSizeLocked(sig)
	if size <= 0 {
		l.log.Warn().Str("symbol", sig.Symbol).Msg("zero position size, signal dropped")
		return market.Order{}, false
	}

	if size > l.cash {
		size = l.cash * cashBuffer
		if size < l.cfg.MinOrderSize {
			l.log.Warn().Str("symbol", sig.Symbol).Float64("cash", l.cash).
				Msg("insufficient cash for order")
			return market.Order{}, false
		}
	}

	side := market.Sell
	if sig.Type == market.SignalBuy {
		side = market.Buy
	}

	order, err := market.NewOrder(sig.Symbol, side, size, sig.StrategyID)
	if err != nil {
		l.log.Error().Err(err).Str("symbol", sig.Symbol).Msg("entry order rejected")
		return market.Order{}, false
	}
	order.ID = id.New()
	order.Time = sig.Time

	l.log.Debug().Str("symbol", sig.Symbol).Str("side", string(side)).
		Float64("size", size).Float64("strength", sig.Strength).
		Msg("entry order created")
	return order, true
}

func (l *Ledger) exitOrderLocked(pos *market.Position) (market.Order, bool) {
	side := market.Buy
	if pos.Side == market.Long {
		side = market.Sell
	}

	order, err := market.NewOrder(pos.Symbol, side, pos.Size, pos.StrategyID)
	if err != nil {
		l.log.Error().Err(err).Str("symbol", pos.Symbol).Msg("exit order rejected")
		return market.Order{}, false
	}
	order.ID = id.New()

	l.log.Debug().Str("symbol", pos.Symbol).Msg("exit order created")
	return order, true
}

// positionSizeLocked sizes an entry: portfolio value x max position
// fraction x strategy allocation, scaled per sizing mode, rounded to
// cents.
func (l *Ledger) positionSizeLocked(sig market.Signal) float64 {
	total := l.totalValueLocked()
	base := total * l.cfg.MaxPositionPct

	if alloc, ok := l.allocations[sig.StrategyID]; ok {
		base *= alloc
	}

	size := base
	switch l.cfg.Sizing {
	case SizingSignalStrength:
		size = base * sig.Strength
	case SizingVolatility:
		// Not implemented yet; behaves as equal sizing.
		l.log.Warn().Msg("volatility sizing not implemented, using equal sizing")
	}

	if max := total * l.cfg.MaxPositionPct; size > max {
		size = max
	}
	return math.Round(size*100) / 100
}

// ProcessFill applies an executed fill: it either closes the symbol's
// open position and books realized P&L, or opens a new position. Every
// fill bumps the trade counter and samples the equity curve.
func (l *Ledger) ProcessFill(fill market.Fill) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	symbol := fill.Order.Symbol

	if pos, ok := l.positions[symbol]; ok {
		realized := pos.Close(fill.ExecutedPrice, fill.Fees, fill.Time)
		l.realizedPnL += realized
		l.feesPaid += fill.Fees

		l.closed = append(l.closed, pos)
		delete(l.positions, symbol)

		l.cash += fill.NetSize() + realized

		l.log.Debug().Str("symbol", symbol).Str("side", string(pos.Side)).
			Float64("pnl", realized).Msg("closed position")
	} else {
		side := market.Short
		if fill.Order.Side == market.Buy {
			side = market.Long
		}

		pos, err := market.OpenPosition(symbol, fill.Order.StrategyID, side,
			fill.ExecutedPrice, fill.ExecutedSize, fill.Fees, fill.Time)
		if err != nil {
			return fmt.Errorf("open position for %s: %w", symbol, err)
		}

		l.positions[symbol] = pos
		l.cash -= fill.ExecutedSize + fill.Fees
		l.feesPaid += fill.Fees

		l.log.Debug().Str("symbol", symbol).Str("side", string(side)).
			Float64("size", fill.ExecutedSize).Float64("price", fill.ExecutedPrice).
			Msg("opened position")
	}

	l.tradeCount++
	l.sampleEquityLocked(fill.Time)
	return nil
}

// UpdatePrices marks every open position to the given prices.
func (l *Ledger) UpdatePrices(prices map[string]float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for symbol, pos := range l.positions {
		if price, ok := prices[symbol]; ok {
			pos.UpdatePrice(price)
		}
	}
}

// Position returns the open position for a symbol, if any.
func (l *Ledger) Position(symbol string) (*market.Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pos, ok := l.positions[symbol]
	return pos, ok
}

// Positions returns a copy of the open positions map.
func (l *Ledger) Positions() map[string]*market.Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]*market.Position, len(l.positions))
	for sym, pos := range l.positions {
		out[sym] = pos
	}
	return out
}

// StrategyPositions returns the open positions owned by one strategy.
func (l *Ledger) StrategyPositions(strategyID string) []*market.Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []*market.Position
	for _, pos := range l.positions {
		if pos.StrategyID == strategyID {
			out = append(out, pos)
		}
	}
	return out
}

// AvailableCash returns the uncommitted cash balance.
func (l *Ledger) AvailableCash() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cash
}

// CanAfford reports whether cash covers the order size.
func (l *Ledger) CanAfford(order market.Order) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return order.Size <= l.cash
}

// TotalValue is cash plus the market value of open positions.
func (l *Ledger) TotalValue() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalValueLocked()
}

func (l *Ledger) totalValueLocked() float64 {
	total := l.cash
	for _, pos := range l.positions {
		total += pos.CurrentValue()
	}
	return total
}

// UnrealizedPnL sums unrealized P&L over open positions.
func (l *Ledger) UnrealizedPnL() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.unrealizedLocked()
}

func (l *Ledger) unrealizedLocked() float64 {
	var pnl float64
	for _, pos := range l.positions {
		pnl += pos.UnrealizedPnL
	}
	return pnl
}

// EquityCurve returns a copy of the recorded equity samples.
func (l *Ledger) EquityCurve() []EquityPoint {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]EquityPoint, len(l.equity))
	copy(out, l.equity)
	return out
}

func (l *Ledger) sampleEquityLocked(at time.Time) {
	l.equity = append(l.equity, EquityPoint{Time: at, Value: l.totalValueLocked()})
	if len(l.equity) > maxEquityPoints {
		l.equity = l.equity[len(l.equity)-maxEquityPoints:]
	}
}

// Stats derives the portfolio statistics from current state.
func (l *Ledger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	var positionsValue float64
	for _, pos := range l.positions {
		positionsValue += pos.CurrentValue()
	}
	unrealized := l.unrealizedLocked()

	var wins, losses int
	var winSum, lossSum float64
	for _, pos := range l.closed {
		switch {
		case pos.RealizedPnL > 0:
			wins++
			winSum += pos.RealizedPnL
		case pos.RealizedPnL < 0:
			losses++
			lossSum += pos.RealizedPnL
		}
	}

	stats := Stats{
		TotalValue:     l.cash + positionsValue,
		Cash:           l.cash,
		PositionsValue: positionsValue,
		UnrealizedPnL:  unrealized,
		RealizedPnL:    l.realizedPnL,
		TotalPnL:       l.realizedPnL + unrealized,
		FeesPaid:       l.feesPaid,
		NumPositions:   len(l.positions),
		NumTrades:      l.tradeCount,
		WinningTrades:  wins,
		LosingTrades:   losses,
	}
	if total := len(l.closed); total > 0 {
		stats.WinRate = float64(wins) / float64(total)
	}
	if wins > 0 {
		stats.AvgWin = winSum / float64(wins)
	}
	if losses > 0 {
		stats.AvgLoss = lossSum / float64(losses)
	}
	return stats
}

// InitialCapital returns the configured starting cash.
func (l *Ledger) InitialCapital() float64 { return l.cfg.InitialCapital }

// Reset returns the ledger to its initial state. Registered strategies
// survive a reset so an identical scenario can be rerun directly.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cash = l.cfg.InitialCapital
	l.positions = make(map[string]*market.Position)
	l.closed = nil
	l.realizedPnL = 0
	l.feesPaid = 0
	l.tradeCount = 0
	l.equity = nil

	l.log.Debug().Msg("ledger reset")
}
