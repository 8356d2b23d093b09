package market

import (
	"fmt"
	"time"
)

// SignalType classifies a strategy signal.
type SignalType string

const (
	SignalBuy  SignalType = "BUY"
	SignalSell SignalType = "SELL"
	SignalHold SignalType = "HOLD"
)

// Side is the direction of an order.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// OrderKind distinguishes market and limit orders.
type OrderKind string

const (
	Market OrderKind = "market"
	Limit  OrderKind = "limit"
)

// Signal is a transient trading signal produced by a strategy. Signals
// are created fresh each evaluation and never mutated afterwards,
// except that the session stamps StrategyID before handing them to the
// ledger.
type Signal struct {
	Symbol     string
	Type       SignalType
	Strength   float64 // 0..1
	Price      float64 // reference price at signal time
	Reason     string
	StrategyID string
	Time       time.Time
}

// NewSignal validates and builds a Signal. Strength outside [0,1] is a
// defect in the calling strategy, not a recoverable condition.
func NewSignal(symbol string, typ SignalType, strength, price float64, reason string, at time.Time) (Signal, error) {
	if strength < 0 || strength > 1 {
		return Signal{}, fmt.Errorf("signal strength must be between 0 and 1, got %v", strength)
	}
	return Signal{
		Symbol:   symbol,
		Type:     typ,
		Strength: strength,
		Price:    price,
		Reason:   reason,
		Time:     at,
	}, nil
}

// Order is a dollar-denominated instruction created by the ledger and
// consumed exactly once by an executor.
type Order struct {
	ID         string
	Symbol     string
	Side       Side
	Size       float64 // dollars, > 0
	Kind       OrderKind
	LimitPrice float64 // required for Kind == Limit
	StrategyID string
	Time       time.Time
}

// NewOrder validates and builds a market order.
func NewOrder(symbol string, side Side, size float64, strategyID string) (Order, error) {
	if size <= 0 {
		return Order{}, fmt.Errorf("order size must be positive, got %v", size)
	}
	return Order{
		Symbol:     symbol,
		Side:       side,
		Size:       size,
		Kind:       Market,
		StrategyID: strategyID,
	}, nil
}

// NewLimitOrder validates and builds a limit order.
func NewLimitOrder(symbol string, side Side, size, limit float64, strategyID string) (Order, error) {
	if size <= 0 {
		return Order{}, fmt.Errorf("order size must be positive, got %v", size)
	}
	if limit <= 0 {
		return Order{}, fmt.Errorf("limit orders require a positive limit price, got %v", limit)
	}
	return Order{
		Symbol:     symbol,
		Side:       side,
		Size:       size,
		Kind:       Limit,
		LimitPrice: limit,
		StrategyID: strategyID,
	}, nil
}

// Fill records one execution attempt for an order. Immutable.
type Fill struct {
	Order         Order
	ExecutedPrice float64 // > 0
	ExecutedSize  float64 // dollars actually filled, >= 0
	Fees          float64 // >= 0
	Slippage      float64 // vs limit price, when one exists
	Time          time.Time
}

// NewFill validates and builds a Fill. Slippage relative to a limit
// price is computed here so every Fill carries it consistently: for
// buys it is executed minus limit, for sells limit minus executed.
func NewFill(order Order, price, size, fees float64, at time.Time) (Fill, error) {
	if price <= 0 {
		return Fill{}, fmt.Errorf("executed price must be positive, got %v", price)
	}
	if size < 0 {
		return Fill{}, fmt.Errorf("executed size cannot be negative, got %v", size)
	}
	if fees < 0 {
		return Fill{}, fmt.Errorf("fees cannot be negative, got %v", fees)
	}

	f := Fill{
		Order:         order,
		ExecutedPrice: price,
		ExecutedSize:  size,
		Fees:          fees,
		Time:          at,
	}
	if order.LimitPrice > 0 {
		if order.Side == Buy {
			f.Slippage = price - order.LimitPrice
		} else {
			f.Slippage = order.LimitPrice - price
		}
	}
	return f, nil
}

// NetSize is the executed dollar size after fees.
func (f Fill) NetSize() float64 {
	return f.ExecutedSize - f.Fees
}

// FillRate is the fraction of the order that was filled.
func (f Fill) FillRate() float64 {
	if f.Order.Size == 0 {
		return 0
	}
	return f.ExecutedSize / f.Order.Size
}
