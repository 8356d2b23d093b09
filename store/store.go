package store

import (
	"context"
	"time"

	"github.com/rustyeddy/pairtrade/market"
)

// TradeRecord is one executed (or simulated) trade written to the log
// sink. Write-only from the trading core's perspective.
type TradeRecord struct {
	OrderID    string
	Symbol     string
	Side       market.Side
	Price      float64
	Amount     float64 // dollars
	Fee        float64
	StrategyID string
	SessionID  string
	Paper      bool
	Time       time.Time
}

// SignalRecord is one strategy signal written to the log sink, with
// whether the ledger acted on it.
type SignalRecord struct {
	Symbol     string
	Type       market.SignalType
	Strength   float64
	Price      float64
	Reason     string
	StrategyID string
	SessionID  string
	Acted      bool
	Time       time.Time
}

// PriceReader serves recorded price points, ordered by timestamp
// ascending. A zero from/to leaves that bound open.
type PriceReader interface {
	Prices(ctx context.Context, symbol string, from, to time.Time) ([]market.PricePoint, error)
	LatestPrice(ctx context.Context, symbol string) (market.PricePoint, bool, error)
	Symbols(ctx context.Context) ([]string, error)
}

// CandleReader serves OHLCV rows for (symbol, timeframe) with
// timestamp <= before, oldest first, at most limit rows. A zero before
// leaves the bound open.
type CandleReader interface {
	Candles(ctx context.Context, symbol, timeframe string, before time.Time, limit int) ([]market.Candle, error)
}

// TradeLog is the write-only trade/signal sink.
type TradeLog interface {
	RecordTrade(ctx context.Context, rec TradeRecord) error
	RecordSignal(ctx context.Context, rec SignalRecord) error
}

// Store combines every collaborator contract the trading core consumes.
type Store interface {
	PriceReader
	CandleReader
	TradeLog
	Close() error
}
