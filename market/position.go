package market

import (
	"fmt"
	"time"
)

// PositionSide is the direction of an open position.
type PositionSide string

const (
	Long  PositionSide = "long"
	Short PositionSide = "short"
)

// Position tracks one open (or closed) position. The ledger enforces at
// most one open position per symbol; closing archives the position and
// frees the slot.
type Position struct {
	Symbol     string
	StrategyID string
	Side       PositionSide
	EntryPrice float64
	Size       float64 // dollars at entry
	Quantity   float64 // units, Size / EntryPrice

	CurrentPrice  float64
	UnrealizedPnL float64
	RealizedPnL   float64 // set once on close

	EntryTime time.Time
	ExitTime  time.Time
	ExitPrice float64
	FeesPaid  float64
}

// OpenPosition builds a new position from an entry fill.
func OpenPosition(symbol, strategyID string, side PositionSide, entryPrice, size, fees float64, at time.Time) (*Position, error) {
	if entryPrice <= 0 {
		return nil, fmt.Errorf("entry price must be positive, got %v", entryPrice)
	}
	if size <= 0 {
		return nil, fmt.Errorf("position size must be positive, got %v", size)
	}

	p := &Position{
		Symbol:       symbol,
		StrategyID:   strategyID,
		Side:         side,
		EntryPrice:   entryPrice,
		Size:         size,
		Quantity:     size / entryPrice,
		CurrentPrice: entryPrice,
		EntryTime:    at,
		FeesPaid:     fees,
	}
	p.UpdatePrice(entryPrice)
	return p, nil
}

// UpdatePrice marks the position to the given price and recomputes
// unrealized P&L from the side-aware percentage move times dollar size.
func (p *Position) UpdatePrice(price float64) {
	p.CurrentPrice = price

	var change float64
	if p.Side == Long {
		change = (price - p.EntryPrice) / p.EntryPrice
	} else {
		change = (p.EntryPrice - price) / p.EntryPrice
	}
	p.UnrealizedPnL = p.Size * change
}

// PnLAt returns the realized P&L the position would book if closed at
// the given price, net of fees paid so far.
func (p *Position) PnLAt(exitPrice float64) float64 {
	var change float64
	if p.Side == Long {
		change = (exitPrice - p.EntryPrice) / p.EntryPrice
	} else {
		change = (p.EntryPrice - exitPrice) / p.EntryPrice
	}
	return p.Size*change - p.FeesPaid
}

// Close books the final P&L at the exit price, adding exit fees to the
// cumulative total. Returns the realized P&L.
func (p *Position) Close(exitPrice, fees float64, at time.Time) float64 {
	p.ExitPrice = exitPrice
	p.ExitTime = at
	p.FeesPaid += fees
	p.RealizedPnL = p.PnLAt(exitPrice)
	p.UnrealizedPnL = 0
	return p.RealizedPnL
}

// IsOpen reports whether the position has not been closed yet.
func (p *Position) IsOpen() bool {
	return p.ExitTime.IsZero()
}

// CurrentValue is the current market value of the position.
func (p *Position) CurrentValue() float64 {
	return p.Quantity * p.CurrentPrice
}

// PnLPercent is P&L as a percentage of entry size; unrealized while the
// position is open, realized after close.
func (p *Position) PnLPercent() float64 {
	if p.Size == 0 {
		return 0
	}
	pnl := p.UnrealizedPnL
	if !p.IsOpen() {
		pnl = p.RealizedPnL
	}
	return pnl / p.Size * 100
}

func (p *Position) String() string {
	status := "OPEN"
	pnl := p.UnrealizedPnL
	if !p.IsOpen() {
		status = "CLOSED"
		pnl = p.RealizedPnL
	}
	return fmt.Sprintf("Position(%s %s %s: $%.2f @ $%.2f, P&L: $%+.2f (%+.2f%%))",
		status, p.Side, p.Symbol, p.Size, p.EntryPrice, pnl, p.PnLPercent())
}
