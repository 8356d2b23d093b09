package strategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/pairtrade/datasource"
	"github.com/rustyeddy/pairtrade/market"
)

// Strategy is evaluated once per session iteration. Evaluate returns
// zero or more signals; it never inspects account state, only market
// data and its own internal phase.
type Strategy interface {
	ID() string
	Evaluate(ctx context.Context) ([]market.Signal, error)
	Reset()
}

// ByName builds a strategy from its config name.
func ByName(name string, ds datasource.DataSource, cfg RatioConfig, log zerolog.Logger) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ratio", "pairs", "ratio-mean-reversion":
		return NewRatio(ds, cfg, log), nil

	default:
		return nil, fmt.Errorf("unknown strategy %q (supported: ratio)", name)
	}
}
