package datasource

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/pairtrade/market"
	"github.com/rustyeddy/pairtrade/store"
)

// ReplaySource serves historical data as if it were live, bounded by a
// movable simulated clock. The full candidate series is loaded once;
// lookups binary-search the sorted timestamps, and moving the clock is
// a pure pointer move so runs are cheap to repeat.
type ReplaySource struct {
	candles store.CandleReader // optional; nil disables candle queries
	log     zerolog.Logger

	start   time.Time
	end     time.Time
	current time.Time

	series map[string][]market.PricePoint
}

var (
	_ DataSource = (*ReplaySource)(nil)
	_ Clock      = (*ReplaySource)(nil)
)

// NewReplay loads every symbol's price series from the store, bounded
// by [start, end] (zero bounds are open), and positions the clock at
// start.
func NewReplay(ctx context.Context, st store.PriceReader, candles store.CandleReader, start, end time.Time, log zerolog.Logger) (*ReplaySource, error) {
	symbols, err := st.Symbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("load symbols: %w", err)
	}

	series := make(map[string][]market.PricePoint, len(symbols))
	for _, sym := range symbols {
		points, err := st.Prices(ctx, sym, start, end)
		if err != nil {
			return nil, fmt.Errorf("load prices for %s: %w", sym, err)
		}
		if len(points) > 0 {
			series[sym] = points
		}
	}
	log.Info().Int("symbols", len(series)).Msg("loaded replay data")

	return newReplay(series, candles, start, end, log), nil
}

// NewReplayFromSeries builds a replay source from pre-built series,
// useful for synthetic backtests and tests. Series must be ordered by
// timestamp ascending.
func NewReplayFromSeries(series map[string][]market.PricePoint, start, end time.Time, log zerolog.Logger) *ReplaySource {
	return newReplay(series, nil, start, end, log)
}

func newReplay(series map[string][]market.PricePoint, candles store.CandleReader, start, end time.Time, log zerolog.Logger) *ReplaySource {
	if start.IsZero() {
		for _, points := range series {
			if len(points) == 0 {
				continue
			}
			if start.IsZero() || points[0].Time.Before(start) {
				start = points[0].Time
			}
		}
	}
	return &ReplaySource{
		candles: candles,
		log:     log,
		start:   start,
		end:     end,
		current: start,
		series:  series,
	}
}

// Now returns the current simulated time.
func (r *ReplaySource) Now() time.Time { return r.current }

// Advance moves the clock forward by d.
func (r *ReplaySource) Advance(d time.Duration) { r.current = r.current.Add(d) }

// SetTime moves the clock to an absolute time.
func (r *ReplaySource) SetTime(t time.Time) { r.current = t }

// Reset returns the clock to the start time. The loaded series is kept,
// so an identical rerun costs nothing to set up.
func (r *ReplaySource) Reset() { r.current = r.start }

// End returns the configured end bound (zero if open).
func (r *ReplaySource) End() time.Time { return r.end }

// CurrentPrice returns the most recent point with timestamp <= the
// simulated clock, or absent if none exists yet.
func (r *ReplaySource) CurrentPrice(ctx context.Context, symbol string) (market.PricePoint, bool, error) {
	points, ok := r.series[symbol]
	if !ok {
		return market.PricePoint{}, false, nil
	}

	idx := r.latestIndex(points)
	if idx < 0 {
		return market.PricePoint{}, false, nil
	}
	return points[idx], true, nil
}

// latestIndex finds the last point at or before the clock, -1 if none.
func (r *ReplaySource) latestIndex(points []market.PricePoint) int {
	return sort.Search(len(points), func(i int) bool {
		return points[i].Time.After(r.current)
	}) - 1
}

// PriceHistory returns up to limit points ending at the simulated
// clock, oldest first.
func (r *ReplaySource) PriceHistory(ctx context.Context, symbol string, limit int) ([]market.PricePoint, error) {
	points, ok := r.series[symbol]
	if !ok {
		return nil, nil
	}

	idx := r.latestIndex(points)
	if idx < 0 {
		return nil, nil
	}

	lo := idx + 1 - limit
	if lo < 0 {
		lo = 0
	}
	out := make([]market.PricePoint, idx+1-lo)
	copy(out, points[lo:idx+1])
	return out, nil
}

// Candles queries the candle store bounded by the simulated clock.
// Without a candle store the replay has no candle data.
func (r *ReplaySource) Candles(ctx context.Context, symbol, timeframe string, limit int) ([]market.Candle, error) {
	if r.candles == nil {
		return nil, nil
	}
	return r.candles.Candles(ctx, symbol, timeframe, r.current, limit)
}

// OrderBook synthesizes a book around the price at the simulated clock.
func (r *ReplaySource) OrderBook(ctx context.Context, symbol string, depth int) (market.OrderBook, bool, error) {
	p, ok, err := r.CurrentPrice(ctx, symbol)
	if err != nil || !ok {
		return market.OrderBook{}, false, err
	}
	return synthOrderBook(symbol, p.Price, r.current, depth), true, nil
}

// Symbols lists the symbols with loaded data.
func (r *ReplaySource) Symbols() []string {
	symbols := make([]string, 0, len(r.series))
	for sym := range r.series {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols
}

// DataRange returns the earliest and latest loaded timestamps for a
// symbol, false if the symbol has no data.
func (r *ReplaySource) DataRange(symbol string) (earliest, latest time.Time, ok bool) {
	points, found := r.series[symbol]
	if !found || len(points) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return points[0].Time, points[len(points)-1].Time, true
}

// Progress reports how far the clock has walked from start to end as a
// percentage, -1 when the end bound is open.
func (r *ReplaySource) Progress() float64 {
	if r.end.IsZero() || r.start.IsZero() {
		return -1
	}
	total := r.end.Sub(r.start).Seconds()
	if total <= 0 {
		return 100
	}
	done := r.current.Sub(r.start).Seconds() / total * 100
	if done > 100 {
		return 100
	}
	return done
}
