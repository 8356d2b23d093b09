package datasource

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/pairtrade/market"
	"github.com/rustyeddy/pairtrade/store"
)

// LiveSource always resolves to the most recently persisted data. There
// is no simulated clock; "current" means whatever the collectors last
// wrote.
type LiveSource struct {
	store store.Store
	log   zerolog.Logger
}

var _ DataSource = (*LiveSource)(nil)

func NewLive(st store.Store, log zerolog.Logger) *LiveSource {
	return &LiveSource{store: st, log: log}
}

func (l *LiveSource) CurrentPrice(ctx context.Context, symbol string) (market.PricePoint, bool, error) {
	return l.store.LatestPrice(ctx, symbol)
}

func (l *LiveSource) PriceHistory(ctx context.Context, symbol string, limit int) ([]market.PricePoint, error) {
	points, err := l.store.Prices(ctx, symbol, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	if len(points) > limit {
		points = points[len(points)-limit:]
	}
	return points, nil
}

func (l *LiveSource) Candles(ctx context.Context, symbol, timeframe string, limit int) ([]market.Candle, error) {
	return l.store.Candles(ctx, symbol, timeframe, time.Time{}, limit)
}

// OrderBook synthesizes a book around the latest price; real depth
// snapshots are not persisted.
func (l *LiveSource) OrderBook(ctx context.Context, symbol string, depth int) (market.OrderBook, bool, error) {
	p, ok, err := l.store.LatestPrice(ctx, symbol)
	if err != nil || !ok {
		return market.OrderBook{}, false, err
	}
	return synthOrderBook(symbol, p.Price, p.Time, depth), true, nil
}
