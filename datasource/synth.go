package datasource

import (
	"time"

	"github.com/rustyeddy/pairtrade/market"
)

// Historical order book depth is rarely persisted, so both variants
// synthesize a deterministic book around the latest known price.
const (
	synthSpreadPct = 0.001  // relative half-spread around the mid
	synthLevelStep = 0.0001 // relative step between levels
	synthBaseQty   = 100.0
	synthQtyStep   = 10.0
)

// synthOrderBook builds exactly depth levels per side around price.
// Bids descend from just under the mid, asks ascend from just over it;
// the distance from the mid grows monotonically outward.
func synthOrderBook(symbol string, price float64, at time.Time, depth int) market.OrderBook {
	book := market.OrderBook{
		Symbol: symbol,
		Time:   at,
		Bids:   make([]market.BookLevel, 0, depth),
		Asks:   make([]market.BookLevel, 0, depth),
	}

	for i := 0; i < depth; i++ {
		offset := synthSpreadPct/2 + float64(i)*synthLevelStep
		qty := synthBaseQty + float64(i)*synthQtyStep

		book.Bids = append(book.Bids, market.BookLevel{
			Price:    price * (1 - offset),
			Quantity: qty,
		})
		book.Asks = append(book.Asks, market.BookLevel{
			Price:    price * (1 + offset),
			Quantity: qty,
		})
	}
	return book
}
