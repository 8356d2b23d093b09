package executor

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/pairtrade/datasource"
	"github.com/rustyeddy/pairtrade/market"
)

// Mock simulates fills from data source prices without touching a
// venue. Suitable for paper trading against live data and as the base
// of the backtest executor.
type Mock struct {
	ds  datasource.DataSource
	cfg Config
	log zerolog.Logger

	slippagePct float64
	feePct      float64
}

var _ Executor = (*Mock)(nil)

func NewMock(ds datasource.DataSource, cfg Config, log zerolog.Logger) *Mock {
	if cfg.FillRate <= 0 || cfg.FillRate > 1 {
		cfg.FillRate = 1
	}
	m := &Mock{
		ds:          ds,
		cfg:         cfg,
		log:         log,
		slippagePct: cfg.SlippageBps / 10_000,
		feePct:      cfg.FeeBps / 10_000,
	}
	log.Info().Float64("slippage_bps", cfg.SlippageBps).
		Float64("fee_bps", cfg.FeeBps).Float64("fill_rate", cfg.FillRate).
		Msg("mock executor ready")
	return m
}

// ExecuteOrder fills the order at the derived price. Fails with an
// ExecutionError when no price is resolvable for the symbol.
func (m *Mock) ExecuteOrder(ctx context.Context, order market.Order) (market.Fill, error) {
	price, ok, err := m.ds.CurrentPrice(ctx, order.Symbol)
	if err != nil {
		return market.Fill{}, &ExecutionError{Symbol: order.Symbol, Reason: err.Error()}
	}
	if !ok {
		return market.Fill{}, &ExecutionError{Symbol: order.Symbol, Reason: "no price data available"}
	}

	fillPrice := m.fillPrice(order, price)
	executed := order.Size * m.cfg.FillRate
	fees := executed * m.feePct

	fill, err := market.NewFill(order, fillPrice, executed, fees, price.Time)
	if err != nil {
		return market.Fill{}, &ExecutionError{Symbol: order.Symbol, Reason: err.Error()}
	}

	m.log.Debug().Str("symbol", order.Symbol).Str("side", string(order.Side)).
		Float64("size", executed).Float64("price", fillPrice).
		Float64("fees", fees).Msg("executed order")
	return fill, nil
}

// fillPrice derives the execution price: bid/ask side when recorded and
// enabled, else the last price; slippage worsens the price in the
// order's direction; a limit order never crosses its limit.
func (m *Mock) fillPrice(order market.Order, p market.PricePoint) float64 {
	base := p.Price
	if m.cfg.UseBidAsk && p.HasBidAsk() {
		if order.Side == market.Buy {
			base = p.Ask
		} else {
			base = p.Bid
		}
	}

	var price float64
	if order.Side == market.Buy {
		price = base * (1 + m.slippagePct)
	} else {
		price = base * (1 - m.slippagePct)
	}

	if order.Kind == market.Limit && order.LimitPrice > 0 {
		if order.Side == market.Buy && price > order.LimitPrice {
			price = order.LimitPrice
		}
		if order.Side == market.Sell && price < order.LimitPrice {
			price = order.LimitPrice
		}
	}
	return price
}

// EstimateCost computes the expected slippage and fee cost of an order
// without executing it.
func (m *Mock) EstimateCost(ctx context.Context, order market.Order) (CostEstimate, error) {
	price, ok, err := m.ds.CurrentPrice(ctx, order.Symbol)
	if err != nil {
		return CostEstimate{}, err
	}
	if !ok {
		return CostEstimate{}, &ExecutionError{Symbol: order.Symbol, Reason: "no price data available"}
	}

	expected := m.fillPrice(order, price)

	slippageCost := (expected - price.Price) * (order.Size / price.Price)
	if slippageCost < 0 {
		slippageCost = -slippageCost
	}
	feeCost := order.Size * m.feePct
	total := slippageCost + feeCost

	return CostEstimate{
		ExpectedPrice: expected,
		SlippageCost:  slippageCost,
		FeeCost:       feeCost,
		TotalCost:     total,
		CostPct:       total / order.Size * 100,
	}, nil
}
