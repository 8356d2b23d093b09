package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/pairtrade/datasource"
	"github.com/rustyeddy/pairtrade/market"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// fixedSource builds a replay source holding a single price point per
// symbol with the clock positioned on it.
func fixedSource(points ...market.PricePoint) *datasource.ReplaySource {
	series := make(map[string][]market.PricePoint)
	for _, p := range points {
		series[p.Symbol] = append(series[p.Symbol], p)
	}
	src := datasource.NewReplayFromSeries(series, t0, time.Time{}, zerolog.Nop())
	src.SetTime(t0)
	return src
}

func TestMockMarketOrderSlippage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		side      market.Side
		slippage  float64
		wantPrice float64
	}{
		{"buy pays up", market.Buy, 10, 100.1},
		{"sell gets hit", market.Sell, 10, 99.9},
		{"zero slippage buy", market.Buy, 0, 100},
		{"zero slippage sell", market.Sell, 0, 100},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := fixedSource(market.PricePoint{Symbol: "BTC", Price: 100, Time: t0})
			ex := NewMock(src, Config{SlippageBps: tt.slippage, FillRate: 1}, zerolog.Nop())

			order, err := market.NewOrder("BTC", tt.side, 1000, "strat")
			require.NoError(t, err)

			fill, err := ex.ExecuteOrder(context.Background(), order)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantPrice, fill.ExecutedPrice, 1e-9)
			assert.Equal(t, 1000.0, fill.ExecutedSize)
			assert.Equal(t, t0, fill.Time)
		})
	}
}

func TestMockBidAsk(t *testing.T) {
	t.Parallel()

	point := market.PricePoint{Symbol: "BTC", Price: 100, Bid: 99.5, Ask: 100.5, Time: t0}

	src := fixedSource(point)
	ex := NewMock(src, Config{UseBidAsk: true, FillRate: 1}, zerolog.Nop())

	buy, err := market.NewOrder("BTC", market.Buy, 500, "strat")
	require.NoError(t, err)
	fill, err := ex.ExecuteOrder(context.Background(), buy)
	require.NoError(t, err)
	assert.InDelta(t, 100.5, fill.ExecutedPrice, 1e-9)

	sell, err := market.NewOrder("BTC", market.Sell, 500, "strat")
	require.NoError(t, err)
	fill, err = ex.ExecuteOrder(context.Background(), sell)
	require.NoError(t, err)
	assert.InDelta(t, 99.5, fill.ExecutedPrice, 1e-9)

	// Without bid/ask enabled the last price is used for both sides.
	ex = NewMock(src, Config{UseBidAsk: false, FillRate: 1}, zerolog.Nop())
	fill, err = ex.ExecuteOrder(context.Background(), buy)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, fill.ExecutedPrice, 1e-9)
}

// A limit order must never cross its limit, no matter how large the
// simulated slippage is.
func TestMockLimitClamp(t *testing.T) {
	t.Parallel()

	slippages := []float64{0, 1, 10, 100, 1000, 5000}
	for _, bps := range slippages {
		src := fixedSource(market.PricePoint{Symbol: "ETH", Price: 2000, Time: t0})
		ex := NewMock(src, Config{SlippageBps: bps, FillRate: 1}, zerolog.Nop())

		buy, err := market.NewLimitOrder("ETH", market.Buy, 1000, 2001, "strat")
		require.NoError(t, err)
		fill, err := ex.ExecuteOrder(context.Background(), buy)
		require.NoError(t, err)
		assert.LessOrEqual(t, fill.ExecutedPrice, 2001.0, "buy crossed its limit at %v bps", bps)

		sell, err := market.NewLimitOrder("ETH", market.Sell, 1000, 1999, "strat")
		require.NoError(t, err)
		fill, err = ex.ExecuteOrder(context.Background(), sell)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, fill.ExecutedPrice, 1999.0, "sell crossed its limit at %v bps", bps)
	}
}

func TestMockNoPrice(t *testing.T) {
	t.Parallel()

	src := fixedSource(market.PricePoint{Symbol: "BTC", Price: 100, Time: t0})
	ex := NewMock(src, Config{FillRate: 1}, zerolog.Nop())

	order, err := market.NewOrder("DOGE", market.Buy, 100, "strat")
	require.NoError(t, err)

	_, err = ex.ExecuteOrder(context.Background(), order)
	require.Error(t, err)

	var execErr *ExecutionError
	require.True(t, errors.As(err, &execErr))
	assert.Equal(t, "DOGE", execErr.Symbol)
}

func TestMockPartialFill(t *testing.T) {
	t.Parallel()

	src := fixedSource(market.PricePoint{Symbol: "BTC", Price: 100, Time: t0})
	ex := NewMock(src, Config{FillRate: 0.5, FeeBps: 10}, zerolog.Nop())

	order, err := market.NewOrder("BTC", market.Buy, 1000, "strat")
	require.NoError(t, err)

	fill, err := ex.ExecuteOrder(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, 500.0, fill.ExecutedSize)
	assert.Equal(t, 0.5, fill.FillRate())
	// Fees apply to the executed size, not the requested size.
	assert.InDelta(t, 0.5, fill.Fees, 1e-9)
	assert.InDelta(t, 499.5, fill.NetSize(), 1e-9)
}

func TestMockEstimateCost(t *testing.T) {
	t.Parallel()

	src := fixedSource(market.PricePoint{Symbol: "BTC", Price: 100, Time: t0})
	ex := NewMock(src, Config{SlippageBps: 10, FeeBps: 20, FillRate: 1}, zerolog.Nop())

	order, err := market.NewOrder("BTC", market.Buy, 1000, "strat")
	require.NoError(t, err)

	est, err := ex.EstimateCost(context.Background(), order)
	require.NoError(t, err)
	assert.InDelta(t, 100.1, est.ExpectedPrice, 1e-9)
	assert.InDelta(t, 1.0, est.SlippageCost, 1e-9)
	assert.InDelta(t, 2.0, est.FeeCost, 1e-9)
	assert.InDelta(t, 3.0, est.TotalCost, 1e-9)
	assert.InDelta(t, 0.3, est.CostPct, 1e-9)
}

// Backtest fills are stamped with the simulated clock, not the price
// point's own timestamp.
func TestBacktestFillTime(t *testing.T) {
	t.Parallel()

	src := fixedSource(market.PricePoint{Symbol: "BTC", Price: 100, Time: t0})
	later := t0.Add(45 * time.Minute)
	src.SetTime(later)

	ex := NewBacktest(src, Config{FillRate: 1}, zerolog.Nop())

	order, err := market.NewOrder("BTC", market.Buy, 100, "strat")
	require.NoError(t, err)

	fill, err := ex.ExecuteOrder(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, later, fill.Time)
	assert.Equal(t, 100.0, fill.ExecutedPrice)
}

func TestBacktestNoFutureData(t *testing.T) {
	t.Parallel()

	series := map[string][]market.PricePoint{
		"BTC": {
			{Symbol: "BTC", Price: 100, Time: t0},
			{Symbol: "BTC", Price: 200, Time: t0.Add(time.Hour)},
		},
	}
	src := datasource.NewReplayFromSeries(series, t0, time.Time{}, zerolog.Nop())
	src.SetTime(t0.Add(30 * time.Minute))

	ex := NewBacktest(src, Config{FillRate: 1}, zerolog.Nop())

	order, err := market.NewOrder("BTC", market.Buy, 100, "strat")
	require.NoError(t, err)

	fill, err := ex.ExecuteOrder(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, 100.0, fill.ExecutedPrice, "fill must not see the future price")
}
