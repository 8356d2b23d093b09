package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/pairtrade/market"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestSQLitePricesOrderedAndBounded(t *testing.T) {
	t.Parallel()

	s := newTestSQLite(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.InsertPrice(ctx, market.PricePoint{
			Symbol: "BTC/USDT",
			Time:   base.Add(time.Duration(i) * time.Minute),
			Price:  50000 + float64(i)*10,
			Bid:    49990 + float64(i)*10,
			Ask:    50010 + float64(i)*10,
		}))
	}

	all, err := s.Prices(ctx, "BTC/USDT", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i := 1; i < len(all); i++ {
		assert.True(t, all[i].Time.After(all[i-1].Time))
	}

	bounded, err := s.Prices(ctx, "BTC/USDT", base.Add(time.Minute), base.Add(3*time.Minute))
	require.NoError(t, err)
	assert.Len(t, bounded, 3)
	assert.InDelta(t, 50010.0, bounded[0].Price, 1e-9)
}

func TestSQLiteDuplicatePriceIgnored(t *testing.T) {
	t.Parallel()

	s := newTestSQLite(t)
	ctx := context.Background()

	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p := market.PricePoint{Symbol: "ETH/USDT", Time: ts, Price: 3000}

	require.NoError(t, s.InsertPrice(ctx, p))
	p.Price = 9999 // same (symbol, timestamp): must not overwrite
	require.NoError(t, s.InsertPrice(ctx, p))

	all, err := s.Prices(ctx, "ETH/USDT", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.InDelta(t, 3000.0, all[0].Price, 1e-9)
}

func TestSQLiteLatestPrice(t *testing.T) {
	t.Parallel()

	s := newTestSQLite(t)
	ctx := context.Background()

	_, ok, err := s.LatestPrice(ctx, "BTC/USDT")
	require.NoError(t, err)
	assert.False(t, ok)

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.InsertPrice(ctx, market.PricePoint{
			Symbol: "BTC/USDT",
			Time:   base.Add(time.Duration(i) * time.Minute),
			Price:  100 + float64(i),
		}))
	}

	latest, ok, err := s.LatestPrice(ctx, "BTC/USDT")
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 102.0, latest.Price, 1e-9)
}

func TestSQLiteCandlesOldestFirstWithBound(t *testing.T) {
	t.Parallel()

	s := newTestSQLite(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 6; i++ {
		require.NoError(t, s.InsertCandle(ctx, market.Candle{
			Symbol:    "BTC/USDT",
			Timeframe: "1h",
			Time:      base.Add(time.Duration(i) * time.Hour),
			Open:      100, High: 110, Low: 90, Close: 100 + float64(i), Volume: 1,
		}))
	}

	got, err := s.Candles(ctx, "BTC/USDT", "1h", base.Add(3*time.Hour), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Most recent two at or before the bound, oldest first.
	assert.InDelta(t, 102.0, got[0].Close, 1e-9)
	assert.InDelta(t, 103.0, got[1].Close, 1e-9)
}

func TestSQLiteTradeAndSignalLog(t *testing.T) {
	t.Parallel()

	s := newTestSQLite(t)
	ctx := context.Background()

	ts := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordTrade(ctx, TradeRecord{
		OrderID:    "O1",
		Symbol:     "BTC/USDT",
		Side:       market.Buy,
		Price:      50000,
		Amount:     1000,
		Fee:        1,
		StrategyID: "ratio",
		SessionID:  "S1",
		Paper:      true,
		Time:       ts,
	}))

	require.NoError(t, s.RecordSignal(ctx, SignalRecord{
		Symbol:     "BTC/USDT",
		Type:       market.SignalBuy,
		Strength:   0.8,
		Price:      50000,
		Reason:     "test",
		StrategyID: "ratio",
		SessionID:  "S1",
		Acted:      true,
		Time:       ts,
	}))

	symbols, err := s.Symbols(ctx)
	require.NoError(t, err)
	assert.Empty(t, symbols) // trades/signals do not feed the price table
}
