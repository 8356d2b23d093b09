package strategy

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/pairtrade/datasource"
	"github.com/rustyeddy/pairtrade/market"
)

// PairState is the phase of the pairs trade.
type PairState string

const (
	Neutral     PairState = "neutral"
	LongBShortA PairState = "long_b_short_a" // A expensive, high z-score
	LongAShortB PairState = "long_a_short_b" // B expensive, low z-score
)

const exitStrength = 0.8

// RatioConfig parametrizes the ratio mean-reversion strategy.
type RatioConfig struct {
	SymbolA         string  // numerator of the ratio
	SymbolB         string  // denominator of the ratio
	LookbackPeriods int
	EntryThreshold  float64
	ExitThreshold   float64
}

// Ratio trades the A/B price ratio back to its trailing mean. The
// state machine has three phases and every transition emits exactly
// two signals, one per leg; anything else is a bug.
type Ratio struct {
	ds  datasource.DataSource
	cfg RatioConfig
	log zerolog.Logger

	state PairState

	// Last computed statistics, for inspection and logging.
	ratio  float64
	mean   float64
	std    float64
	zScore float64
}

// Stats is a snapshot of the strategy's internal statistics.
type Stats struct {
	State          PairState
	Ratio          float64
	Mean           float64
	Std            float64
	ZScore         float64
	EntryThreshold float64
	ExitThreshold  float64
	Lookback       int
}

func NewRatio(ds datasource.DataSource, cfg RatioConfig, log zerolog.Logger) *Ratio {
	return &Ratio{
		ds:    ds,
		cfg:   cfg,
		log:   log,
		state: Neutral,
	}
}

// ID names the strategy after its pair, e.g. "BTC/ETH ratio".
func (r *Ratio) ID() string {
	baseA := strings.SplitN(r.cfg.SymbolA, "/", 2)[0]
	baseB := strings.SplitN(r.cfg.SymbolB, "/", 2)[0]
	return fmt.Sprintf("%s/%s ratio", baseA, baseB)
}

// State returns the current phase.
func (r *Ratio) State() PairState { return r.state }

// Reset returns the machine to NEUTRAL and clears statistics.
func (r *Ratio) Reset() {
	r.state = Neutral
	r.ratio, r.mean, r.std, r.zScore = 0, 0, 0, 0
}

// Stats returns the last computed statistics.
func (r *Ratio) Stats() Stats {
	return Stats{
		State:          r.state,
		Ratio:          r.ratio,
		Mean:           r.mean,
		Std:            r.std,
		ZScore:         r.zScore,
		EntryThreshold: r.cfg.EntryThreshold,
		ExitThreshold:  r.cfg.ExitThreshold,
		Lookback:       r.cfg.LookbackPeriods,
	}
}

// Evaluate runs one state-machine step. Fewer than LookbackPeriods
// historical ratios is a hard precondition for any signal, not an
// error: the loop simply proceeds without one.
func (r *Ratio) Evaluate(ctx context.Context) ([]market.Signal, error) {
	priceA, okA, err := r.ds.CurrentPrice(ctx, r.cfg.SymbolA)
	if err != nil {
		return nil, err
	}
	priceB, okB, err := r.ds.CurrentPrice(ctx, r.cfg.SymbolB)
	if err != nil {
		return nil, err
	}
	if !okA || !okB || priceB.Price <= 0 {
		r.log.Debug().Str("a", r.cfg.SymbolA).Str("b", r.cfg.SymbolB).
			Msg("missing price data")
		return nil, nil
	}

	ratios, err := r.ratioHistory(ctx)
	if err != nil {
		return nil, err
	}
	if len(ratios) < r.cfg.LookbackPeriods {
		r.log.Debug().
			Int("have", len(ratios)).
			Int("need", r.cfg.LookbackPeriods).
			Msg("insufficient ratio history")
		return nil, nil
	}

	current := priceA.Price / priceB.Price
	z := r.updateZScore(current, ratios)

	r.log.Debug().
		Str("state", string(r.state)).
		Float64("ratio", current).
		Float64("mean", r.mean).
		Float64("std", r.std).
		Float64("z", z).
		Msg("pair evaluation")

	at := priceA.Time
	if priceB.Time.After(at) {
		at = priceB.Time
	}

	switch r.state {
	case LongBShortA, LongAShortB:
		if math.Abs(z) < r.cfg.ExitThreshold {
			return r.exitSignals(z, priceA.Price, priceB.Price, at)
		}
	case Neutral:
		if math.Abs(z) > r.cfg.EntryThreshold {
			return r.entrySignals(z, priceA.Price, priceB.Price, at)
		}
	}
	return nil, nil
}

func (r *Ratio) ratioHistory(ctx context.Context) ([]float64, error) {
	// Fetch extra so intersection gaps still leave a full window.
	points, err := datasource.RatioHistory(ctx, r.ds, r.cfg.SymbolA, r.cfg.SymbolB, r.cfg.LookbackPeriods*2)
	if err != nil {
		return nil, err
	}

	ratios := make([]float64, 0, len(points))
	for _, p := range points {
		ratios = append(ratios, p.Ratio)
	}
	if len(ratios) > r.cfg.LookbackPeriods {
		ratios = ratios[len(ratios)-r.cfg.LookbackPeriods:]
	}
	return ratios, nil
}

// updateZScore computes the z-score of current against the trailing
// window using population mean/std, and records the statistics.
func (r *Ratio) updateZScore(current float64, window []float64) float64 {
	var sum float64
	for _, v := range window {
		sum += v
	}
	mean := sum / float64(len(window))

	var sq float64
	for _, v := range window {
		d := v - mean
		sq += d * d
	}
	std := math.Sqrt(sq / float64(len(window)))

	z := 0.0
	if std > 0 {
		z = (current - mean) / std
	}

	r.ratio = current
	r.mean = mean
	r.std = std
	r.zScore = z
	return z
}

// entrySignals opens the pair: high z-score means A is expensive, so
// buy B and sell A; low z-score is the mirror.
func (r *Ratio) entrySignals(z, priceA, priceB float64, at time.Time) ([]market.Signal, error) {
	strength := math.Min(math.Abs(z)/3, 1)

	if z > 0 {
		reasonB := fmt.Sprintf("pairs entry: z-score %.2f > %.2f (%s undervalued)", z, r.cfg.EntryThreshold, r.cfg.SymbolB)
		reasonA := fmt.Sprintf("pairs entry: z-score %.2f > %.2f (%s overvalued)", z, r.cfg.EntryThreshold, r.cfg.SymbolA)

		buyB, err := market.NewSignal(r.cfg.SymbolB, market.SignalBuy, strength, priceB, reasonB, at)
		if err != nil {
			return nil, err
		}
		sellA, err := market.NewSignal(r.cfg.SymbolA, market.SignalSell, strength, priceA, reasonA, at)
		if err != nil {
			return nil, err
		}

		r.state = LongBShortA
		return []market.Signal{buyB, sellA}, nil
	}

	reasonA := fmt.Sprintf("pairs entry: z-score %.2f < -%.2f (%s undervalued)", z, r.cfg.EntryThreshold, r.cfg.SymbolA)
	reasonB := fmt.Sprintf("pairs entry: z-score %.2f < -%.2f (%s overvalued)", z, r.cfg.EntryThreshold, r.cfg.SymbolB)

	buyA, err := market.NewSignal(r.cfg.SymbolA, market.SignalBuy, strength, priceA, reasonA, at)
	if err != nil {
		return nil, err
	}
	sellB, err := market.NewSignal(r.cfg.SymbolB, market.SignalSell, strength, priceB, reasonB, at)
	if err != nil {
		return nil, err
	}

	r.state = LongAShortB
	return []market.Signal{buyA, sellB}, nil
}

// exitSignals closes both legs and returns to NEUTRAL.
func (r *Ratio) exitSignals(z, priceA, priceB float64, at time.Time) ([]market.Signal, error) {
	reason := fmt.Sprintf("pairs exit: z-score normalized to %.2f", z)

	var first, second market.Signal
	var err error

	switch r.state {
	case LongBShortA:
		first, err = market.NewSignal(r.cfg.SymbolB, market.SignalSell, exitStrength, priceB, reason, at)
		if err != nil {
			return nil, err
		}
		second, err = market.NewSignal(r.cfg.SymbolA, market.SignalBuy, exitStrength, priceA, reason, at)
		if err != nil {
			return nil, err
		}

	case LongAShortB:
		first, err = market.NewSignal(r.cfg.SymbolA, market.SignalSell, exitStrength, priceA, reason, at)
		if err != nil {
			return nil, err
		}
		second, err = market.NewSignal(r.cfg.SymbolB, market.SignalBuy, exitStrength, priceB, reason, at)
		if err != nil {
			return nil, err
		}

	default:
		return nil, nil
	}

	r.state = Neutral
	return []market.Signal{first, second}, nil
}
