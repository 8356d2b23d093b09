package executor

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/pairtrade/datasource"
	"github.com/rustyeddy/pairtrade/market"
)

// Backtest executes orders against a replayed data source. Prices come
// from the replay's clock-bounded lookup, so a fill can never see data
// past the simulated time, and the fill timestamp is the simulated
// clock, not the wall clock.
type Backtest struct {
	Mock
	clock datasource.Clock
}

var _ Executor = (*Backtest)(nil)

func NewBacktest(replay *datasource.ReplaySource, cfg Config, log zerolog.Logger) *Backtest {
	return &Backtest{
		Mock:  *NewMock(replay, cfg, log),
		clock: replay,
	}
}

func (b *Backtest) ExecuteOrder(ctx context.Context, order market.Order) (market.Fill, error) {
	fill, err := b.Mock.ExecuteOrder(ctx, order)
	if err != nil {
		return market.Fill{}, err
	}
	fill.Time = b.clock.Now()
	return fill, nil
}
