package market

import "time"

// PricePoint is a single recorded trade price for a symbol. Points are
// immutable once recorded and unique per (symbol, timestamp).
type PricePoint struct {
	Symbol string
	Price  float64
	Time   time.Time

	// Bid/Ask/Volume are zero when the venue did not report them.
	Bid    float64
	Ask    float64
	Volume float64
}

// HasBidAsk reports whether both sides of the book were recorded.
func (p PricePoint) HasBidAsk() bool {
	return p.Bid > 0 && p.Ask > 0
}

// Mid returns the bid/ask midpoint, or the last price when the book
// sides are missing.
func (p PricePoint) Mid() float64 {
	if p.HasBidAsk() {
		return (p.Bid + p.Ask) / 2
	}
	return p.Price
}

// Spread returns ask minus bid, or 0 when unavailable.
func (p PricePoint) Spread() float64 {
	if !p.HasBidAsk() {
		return 0
	}
	return p.Ask - p.Bid
}

// Candle is one OHLCV bar, unique per (symbol, timeframe, timestamp).
type Candle struct {
	Symbol    string
	Timeframe string
	Time      time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// BookLevel is a single order book level.
type BookLevel struct {
	Price    float64
	Quantity float64
}

// OrderBook is a depth snapshot. Bids are ordered by descending price,
// asks by ascending price.
type OrderBook struct {
	Symbol string
	Time   time.Time
	Bids   []BookLevel
	Asks   []BookLevel
}

// BestBid returns the highest bid, or 0 if the book side is empty.
func (b OrderBook) BestBid() float64 {
	if len(b.Bids) == 0 {
		return 0
	}
	return b.Bids[0].Price
}

// BestAsk returns the lowest ask, or 0 if the book side is empty.
func (b OrderBook) BestAsk() float64 {
	if len(b.Asks) == 0 {
		return 0
	}
	return b.Asks[0].Price
}

// Mid returns the midpoint of the best bid and ask, or 0 when either
// side is empty.
func (b OrderBook) Mid() float64 {
	if len(b.Bids) == 0 || len(b.Asks) == 0 {
		return 0
	}
	return (b.Bids[0].Price + b.Asks[0].Price) / 2
}
