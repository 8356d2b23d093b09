package datasource

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/pairtrade/market"
)

func TestPriceRatio(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewReplayFromSeries(map[string][]market.PricePoint{
		"BTC/USDT": seriesAt("BTC/USDT", base, time.Minute, []float64{60000}),
		"ETH/USDT": seriesAt("ETH/USDT", base, time.Minute, []float64{3000}),
	}, base, base.Add(time.Hour), zerolog.Nop())

	ctx := context.Background()

	ratio, ok, err := PriceRatio(ctx, r, "BTC/USDT", "ETH/USDT")
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 20.0, ratio, 1e-9)

	// Missing denominator symbol: absent, not an error.
	_, ok, err = PriceRatio(ctx, r, "BTC/USDT", "SOL/USDT")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPriceRatioZeroDenominator(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewReplayFromSeries(map[string][]market.PricePoint{
		"A": seriesAt("A", base, time.Minute, []float64{10}),
		"B": seriesAt("B", base, time.Minute, []float64{0}),
	}, base, base.Add(time.Hour), zerolog.Nop())

	_, ok, err := PriceRatio(context.Background(), r, "A", "B")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRatioHistoryIntersectsTimestamps(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// A has points at minutes 0..4; B only at 1, 3 and an extra at 5.
	a := seriesAt("A", base, time.Minute, []float64{10, 20, 30, 40, 50})
	b := []market.PricePoint{
		{Symbol: "B", Time: base.Add(1 * time.Minute), Price: 2},
		{Symbol: "B", Time: base.Add(3 * time.Minute), Price: 4},
		{Symbol: "B", Time: base.Add(5 * time.Minute), Price: 5},
	}

	r := NewReplayFromSeries(map[string][]market.PricePoint{"A": a, "B": b},
		base, base.Add(time.Hour), zerolog.Nop())
	r.SetTime(base.Add(10 * time.Minute))

	ratios, err := RatioHistory(context.Background(), r, "A", "B", 100)
	require.NoError(t, err)

	// Only the common timestamps survive.
	require.Len(t, ratios, 2)
	assert.Equal(t, base.Add(1*time.Minute), ratios[0].Time)
	assert.InDelta(t, 10.0, ratios[0].Ratio, 1e-9)
	assert.Equal(t, base.Add(3*time.Minute), ratios[1].Time)
	assert.InDelta(t, 10.0, ratios[1].Ratio, 1e-9)
}

func TestRatioHistoryTrimsToLimit(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	prices := make([]float64, 50)
	for i := range prices {
		prices[i] = float64(i + 1)
	}

	r := NewReplayFromSeries(map[string][]market.PricePoint{
		"A": seriesAt("A", base, time.Minute, prices),
		"B": seriesAt("B", base, time.Minute, prices),
	}, base, base.Add(time.Hour), zerolog.Nop())
	r.SetTime(base.Add(time.Hour))

	ratios, err := RatioHistory(context.Background(), r, "A", "B", 10)
	require.NoError(t, err)
	require.Len(t, ratios, 10)

	// Most recent entries kept, all with ratio 1.
	assert.Equal(t, base.Add(49*time.Minute), ratios[len(ratios)-1].Time)
	for _, rp := range ratios {
		assert.InDelta(t, 1.0, rp.Ratio, 1e-9)
	}
}

func TestRatioHistoryEmptyWhenEitherMissing(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewReplayFromSeries(map[string][]market.PricePoint{
		"A": seriesAt("A", base, time.Minute, []float64{1, 2, 3}),
	}, base, base.Add(time.Hour), zerolog.Nop())
	r.SetTime(base.Add(time.Hour))

	ratios, err := RatioHistory(context.Background(), r, "A", "B", 10)
	require.NoError(t, err)
	assert.Empty(t, ratios)
}
