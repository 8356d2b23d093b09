package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/pairtrade/datasource"
	"github.com/rustyeddy/pairtrade/market"
)

const (
	symA = "BTC/USDT"
	symB = "ETH/USDT"
)

// pairSource builds a replay source where symbol B is pinned to 1 so
// the A series is the ratio series directly.
func pairSource(t *testing.T, base time.Time, ratios []float64) *datasource.ReplaySource {
	t.Helper()

	a := make([]market.PricePoint, len(ratios))
	b := make([]market.PricePoint, len(ratios))
	for i, v := range ratios {
		ts := base.Add(time.Duration(i) * time.Minute)
		a[i] = market.PricePoint{Symbol: symA, Time: ts, Price: v}
		b[i] = market.PricePoint{Symbol: symB, Time: ts, Price: 1}
	}

	return datasource.NewReplayFromSeries(map[string][]market.PricePoint{
		symA: a,
		symB: b,
	}, base, base.Add(time.Duration(len(ratios))*time.Minute), zerolog.Nop())
}

// oscillate returns n ratios alternating around 100 so the trailing
// window has a usable standard deviation.
func oscillate(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = 99
		} else {
			out[i] = 101
		}
	}
	return out
}

func newTestRatio(ds datasource.DataSource) *Ratio {
	return NewRatio(ds, RatioConfig{
		SymbolA:         symA,
		SymbolB:         symB,
		LookbackPeriods: 20,
		EntryThreshold:  2.0,
		ExitThreshold:   0.5,
	}, zerolog.Nop())
}

func TestRatioInsufficientHistoryProducesNoSignal(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	src := pairSource(t, base, oscillate(10))
	src.SetTime(base.Add(9 * time.Minute))

	r := newTestRatio(src)
	signals, err := r.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, signals)
	assert.Equal(t, Neutral, r.State())
}

func TestRatioEntryExitCycle(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// 30 quiet points, a hard spike, then a return to the mean.
	ratios := append(oscillate(30), 150, 100)
	src := pairSource(t, base, ratios)
	r := newTestRatio(src)
	ctx := context.Background()

	// Quiet regime: no signal.
	src.SetTime(base.Add(29 * time.Minute))
	signals, err := r.Evaluate(ctx)
	require.NoError(t, err)
	assert.Empty(t, signals)
	assert.Equal(t, Neutral, r.State())

	// Spike: z-score above the entry threshold, exactly two signals.
	src.SetTime(base.Add(30 * time.Minute))
	signals, err = r.Evaluate(ctx)
	require.NoError(t, err)
	require.Len(t, signals, 2)
	assert.Equal(t, LongBShortA, r.State())

	assert.Equal(t, symB, signals[0].Symbol)
	assert.Equal(t, market.SignalBuy, signals[0].Type)
	assert.Equal(t, symA, signals[1].Symbol)
	assert.Equal(t, market.SignalSell, signals[1].Type)
	for _, s := range signals {
		assert.GreaterOrEqual(t, s.Strength, 0.0)
		assert.LessOrEqual(t, s.Strength, 1.0)
	}

	// While still stretched, holding produces nothing.
	signals, err = r.Evaluate(ctx)
	require.NoError(t, err)
	assert.Empty(t, signals)
	assert.Equal(t, LongBShortA, r.State())

	// Mean reversion: exit pair, back to neutral.
	src.SetTime(base.Add(31 * time.Minute))
	signals, err = r.Evaluate(ctx)
	require.NoError(t, err)
	require.Len(t, signals, 2)
	assert.Equal(t, Neutral, r.State())

	assert.Equal(t, symB, signals[0].Symbol)
	assert.Equal(t, market.SignalSell, signals[0].Type)
	assert.Equal(t, symA, signals[1].Symbol)
	assert.Equal(t, market.SignalBuy, signals[1].Type)
	for _, s := range signals {
		assert.InDelta(t, 0.8, s.Strength, 1e-9)
	}
}

func TestRatioMirroredEntry(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// Crash instead of spike: low z-score, buy A / sell B.
	ratios := append(oscillate(30), 50)
	src := pairSource(t, base, ratios)
	src.SetTime(base.Add(30 * time.Minute))

	r := newTestRatio(src)
	signals, err := r.Evaluate(context.Background())
	require.NoError(t, err)
	require.Len(t, signals, 2)
	assert.Equal(t, LongAShortB, r.State())

	assert.Equal(t, symA, signals[0].Symbol)
	assert.Equal(t, market.SignalBuy, signals[0].Type)
	assert.Equal(t, symB, signals[1].Symbol)
	assert.Equal(t, market.SignalSell, signals[1].Type)
}

func TestRatioMissingPriceIsNotAnError(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	src := datasource.NewReplayFromSeries(map[string][]market.PricePoint{
		symA: {{Symbol: symA, Time: base, Price: 100}},
	}, base, base.Add(time.Hour), zerolog.Nop())

	r := newTestRatio(src)
	signals, err := r.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, signals)
}

func TestRatioResetReturnsToNeutral(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	src := pairSource(t, base, append(oscillate(30), 150))
	src.SetTime(base.Add(30 * time.Minute))

	r := newTestRatio(src)
	_, err := r.Evaluate(context.Background())
	require.NoError(t, err)
	require.Equal(t, LongBShortA, r.State())

	r.Reset()
	assert.Equal(t, Neutral, r.State())
	assert.Equal(t, 0.0, r.Stats().ZScore)
}

func TestRatioStatsSnapshot(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	src := pairSource(t, base, oscillate(30))
	src.SetTime(base.Add(29 * time.Minute))

	r := newTestRatio(src)
	_, err := r.Evaluate(context.Background())
	require.NoError(t, err)

	stats := r.Stats()
	assert.Equal(t, Neutral, stats.State)
	assert.InDelta(t, 100.0, stats.Mean, 1e-9)
	assert.InDelta(t, 1.0, stats.Std, 1e-9)
	assert.Equal(t, 20, stats.Lookback)
	assert.Equal(t, 2.0, stats.EntryThreshold)
}

func TestRatioID(t *testing.T) {
	t.Parallel()

	r := newTestRatio(nil)
	assert.Equal(t, "BTC/ETH ratio", r.ID())
}
