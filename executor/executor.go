// Package executor simulates order execution against data source
// prices with configurable slippage, fees and partial fills.
package executor

import (
	"context"
	"fmt"

	"github.com/rustyeddy/pairtrade/market"
)

// Executor turns an order into a fill. At most one execution attempt
// per order; a failed order is dropped by the caller, never retried.
type Executor interface {
	ExecuteOrder(ctx context.Context, order market.Order) (market.Fill, error)
}

// ExecutionError reports an order that could not be executed, most
// commonly because no price was resolvable for its symbol.
type ExecutionError struct {
	Symbol string
	Reason string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execute %s: %s", e.Symbol, e.Reason)
}

// CostEstimate is the expected cost breakdown for an order before
// execution.
type CostEstimate struct {
	ExpectedPrice float64
	SlippageCost  float64
	FeeCost       float64
	TotalCost     float64
	CostPct       float64
}

// Config parametrizes the fill model. Basis points: 10 bps = 0.1%.
type Config struct {
	SlippageBps float64
	FeeBps      float64
	FillRate    float64 // fraction of the order that fills, (0, 1]
	UseBidAsk   bool    // fill buys at ask / sells at bid when recorded
}
