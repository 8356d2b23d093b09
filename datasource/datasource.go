// Package datasource abstracts time-indexed market data access so
// strategies and executors work identically against replayed history
// and the latest persisted data.
package datasource

import (
	"context"
	"sort"
	"time"

	"github.com/rustyeddy/pairtrade/market"
)

// DataSource is the capability set every variant provides. All history
// queries return oldest first. Missing data is reported through the
// boolean / empty slice, not an error (§ missing-data is non-fatal).
type DataSource interface {
	CurrentPrice(ctx context.Context, symbol string) (market.PricePoint, bool, error)
	PriceHistory(ctx context.Context, symbol string, limit int) ([]market.PricePoint, error)
	Candles(ctx context.Context, symbol, timeframe string, limit int) ([]market.Candle, error)
	OrderBook(ctx context.Context, symbol string, depth int) (market.OrderBook, bool, error)
}

// Clock is the movable replay clock. The session and the backtest
// executor hold it explicitly; live runs have no Clock.
type Clock interface {
	Now() time.Time
	Advance(d time.Duration)
	SetTime(t time.Time)
	Reset()
}

// RatioPoint is one historical A/B price ratio.
type RatioPoint struct {
	Time  time.Time
	Ratio float64
}

// PriceRatio returns priceA / priceB at the source's current time.
// Absent if either price is missing or the denominator is not positive.
func PriceRatio(ctx context.Context, ds DataSource, symbolA, symbolB string) (float64, bool, error) {
	a, okA, err := ds.CurrentPrice(ctx, symbolA)
	if err != nil {
		return 0, false, err
	}
	b, okB, err := ds.CurrentPrice(ctx, symbolB)
	if err != nil {
		return 0, false, err
	}
	if !okA || !okB || b.Price <= 0 {
		return 0, false, nil
	}
	return a.Price / b.Price, true, nil
}

// RatioHistory intersects the two symbols' price histories by timestamp
// and returns ratios where both exist, oldest first, trimmed to the
// most recent limit entries.
func RatioHistory(ctx context.Context, ds DataSource, symbolA, symbolB string, limit int) ([]RatioPoint, error) {
	histA, err := ds.PriceHistory(ctx, symbolA, limit)
	if err != nil {
		return nil, err
	}
	histB, err := ds.PriceHistory(ctx, symbolB, limit)
	if err != nil {
		return nil, err
	}
	if len(histA) == 0 || len(histB) == 0 {
		return nil, nil
	}

	pricesB := make(map[time.Time]float64, len(histB))
	for _, p := range histB {
		pricesB[p.Time] = p.Price
	}

	var ratios []RatioPoint
	for _, a := range histA {
		b, ok := pricesB[a.Time]
		if !ok || b <= 0 {
			continue
		}
		ratios = append(ratios, RatioPoint{Time: a.Time, Ratio: a.Price / b})
	}

	sort.Slice(ratios, func(i, j int) bool { return ratios[i].Time.Before(ratios[j].Time) })

	if len(ratios) > limit {
		ratios = ratios[len(ratios)-limit:]
	}
	return ratios, nil
}
