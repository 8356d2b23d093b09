// Package config loads and validates the simulator configuration from
// YAML or JSON files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete simulator configuration.
type Config struct {
	Account   AccountConfig   `json:"account" yaml:"account"`
	Strategy  StrategyConfig  `json:"strategy" yaml:"strategy"`
	Portfolio PortfolioConfig `json:"portfolio" yaml:"portfolio"`
	Execution ExecutionConfig `json:"execution" yaml:"execution"`
	Session   SessionConfig   `json:"session" yaml:"session"`
	Store     StoreConfig     `json:"store" yaml:"store"`
	LogLevel  string          `json:"log_level" yaml:"log_level"`
}

// AccountConfig contains starting account parameters.
type AccountConfig struct {
	Capital float64 `json:"capital" yaml:"capital"`
}

// StrategyConfig contains the pair and the z-score parameters.
type StrategyConfig struct {
	Name            string  `json:"name" yaml:"name"`
	SymbolA         string  `json:"symbol_a" yaml:"symbol_a"`
	SymbolB         string  `json:"symbol_b" yaml:"symbol_b"`
	LookbackPeriods int     `json:"lookback_periods" yaml:"lookback_periods"`
	EntryThreshold  float64 `json:"entry_threshold" yaml:"entry_threshold"`
	ExitThreshold   float64 `json:"exit_threshold" yaml:"exit_threshold"`
	Allocation      float64 `json:"allocation" yaml:"allocation"`
}

// PortfolioConfig contains position limits and sizing parameters.
type PortfolioConfig struct {
	MaxPositionSizePct float64 `json:"max_position_size_pct" yaml:"max_position_size_pct"`
	MaxPositions       int     `json:"max_positions" yaml:"max_positions"`
	PositionSizing     string  `json:"position_sizing" yaml:"position_sizing"`
	MinOrderSize       float64 `json:"min_order_size,omitempty" yaml:"min_order_size,omitempty"`
}

// ExecutionConfig contains the fill model parameters.
type ExecutionConfig struct {
	ExecutorType string  `json:"executor_type" yaml:"executor_type"` // "mock" or "backtest"
	SlippageBps  float64 `json:"slippage_bps" yaml:"slippage_bps"`
	FeeBps       float64 `json:"fee_bps" yaml:"fee_bps"`
	FillRate     float64 `json:"fill_rate" yaml:"fill_rate"`
	UseBidAsk    bool    `json:"use_bid_ask" yaml:"use_bid_ask"`
}

// SessionConfig contains the loop parameters. Start and end times apply
// to replay runs only and are RFC 3339, e.g. "2024-03-01T00:00:00Z".
type SessionConfig struct {
	IntervalSeconds int    `json:"interval_seconds" yaml:"interval_seconds"`
	MaxIterations   int    `json:"max_iterations,omitempty" yaml:"max_iterations,omitempty"`
	StartTime       string `json:"start_time,omitempty" yaml:"start_time,omitempty"`
	EndTime         string `json:"end_time,omitempty" yaml:"end_time,omitempty"`
	StatusEvery     int    `json:"status_every,omitempty" yaml:"status_every,omitempty"`
}

// Interval converts interval_seconds to a duration.
func (s SessionConfig) Interval() time.Duration {
	return time.Duration(s.IntervalSeconds) * time.Second
}

// ParseStart parses start_time; zero when unset.
func (s SessionConfig) ParseStart() (time.Time, error) {
	return parseTime(s.StartTime)
}

// ParseEnd parses end_time; zero when unset.
func (s SessionConfig) ParseEnd() (time.Time, error) {
	return parseTime(s.EndTime)
}

func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, v)
}

// StoreConfig contains the SQLite store parameters.
type StoreConfig struct {
	Path string `json:"path" yaml:"path"`
}

// LoadFromFile loads configuration from a file (YAML or JSON).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on
// extension).
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Account.Capital <= 0 {
		return fmt.Errorf("account.capital must be positive")
	}

	if c.Strategy.SymbolA == "" || c.Strategy.SymbolB == "" {
		return fmt.Errorf("strategy.symbol_a and strategy.symbol_b are required")
	}
	if c.Strategy.SymbolA == c.Strategy.SymbolB {
		return fmt.Errorf("strategy symbols must differ")
	}
	if c.Strategy.LookbackPeriods < 2 {
		return fmt.Errorf("strategy.lookback_periods must be at least 2")
	}
	if c.Strategy.EntryThreshold <= 0 {
		return fmt.Errorf("strategy.entry_threshold must be positive")
	}
	if c.Strategy.ExitThreshold < 0 || c.Strategy.ExitThreshold >= c.Strategy.EntryThreshold {
		return fmt.Errorf("strategy.exit_threshold must be at least 0 and under entry_threshold")
	}
	if c.Strategy.Allocation <= 0 || c.Strategy.Allocation > 1 {
		return fmt.Errorf("strategy.allocation must be between 0 and 1")
	}

	if c.Portfolio.MaxPositionSizePct <= 0 || c.Portfolio.MaxPositionSizePct > 1 {
		return fmt.Errorf("portfolio.max_position_size_pct must be between 0 and 1")
	}
	if c.Portfolio.MaxPositions < 1 {
		return fmt.Errorf("portfolio.max_positions must be at least 1")
	}
	switch c.Portfolio.PositionSizing {
	case "equal", "signal_strength", "volatility":
	default:
		return fmt.Errorf("portfolio.position_sizing must be equal, signal_strength or volatility")
	}
	if c.Portfolio.MinOrderSize < 0 {
		return fmt.Errorf("portfolio.min_order_size cannot be negative")
	}

	if c.Execution.ExecutorType != "mock" && c.Execution.ExecutorType != "backtest" {
		return fmt.Errorf("execution.executor_type must be 'mock' or 'backtest'")
	}
	if c.Execution.SlippageBps < 0 || c.Execution.FeeBps < 0 {
		return fmt.Errorf("execution slippage_bps and fee_bps cannot be negative")
	}
	if c.Execution.FillRate <= 0 || c.Execution.FillRate > 1 {
		return fmt.Errorf("execution.fill_rate must be between 0 and 1")
	}

	if c.Session.IntervalSeconds < 1 {
		return fmt.Errorf("session.interval_seconds must be at least 1")
	}
	if _, err := c.Session.ParseStart(); err != nil {
		return fmt.Errorf("session.start_time: %w", err)
	}
	if _, err := c.Session.ParseEnd(); err != nil {
		return fmt.Errorf("session.end_time: %w", err)
	}

	if c.Store.Path == "" {
		return fmt.Errorf("store.path is required")
	}
	return nil
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			Capital: 10000,
		},
		Strategy: StrategyConfig{
			Name:            "ratio",
			SymbolA:         "BTC/USD",
			SymbolB:         "ETH/USD",
			LookbackPeriods: 20,
			EntryThreshold:  2.0,
			ExitThreshold:   0.5,
			Allocation:      1.0,
		},
		Portfolio: PortfolioConfig{
			MaxPositionSizePct: 0.1,
			MaxPositions:       5,
			PositionSizing:     "equal",
		},
		Execution: ExecutionConfig{
			ExecutorType: "backtest",
			SlippageBps:  5,
			FeeBps:       10,
			FillRate:     1.0,
		},
		Session: SessionConfig{
			IntervalSeconds: 60,
			StatusEvery:     60,
		},
		Store: StoreConfig{
			Path: "./pairtrade.db",
		},
		LogLevel: "info",
	}
}
