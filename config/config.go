package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every backtest and risk parameter. The core treats a
// validated Config as immutable; sweep runs clone it before mutating.
type Config struct {
	Start          time.Time `json:"start" yaml:"start"`
	End            time.Time `json:"end" yaml:"end"`
	InitialCapital float64   `json:"initial_capital" yaml:"initial_capital"`

	MaxPositions    int     `json:"max_positions" yaml:"max_positions"`
	MaxPositionFrac float64 `json:"max_position_frac" yaml:"max_position_frac"`
	EntryScore      float64 `json:"entry_score" yaml:"entry_score"`

	StopLossPct     float64 `json:"stop_loss_pct" yaml:"stop_loss_pct"`
	TakeProfitPct   float64 `json:"take_profit_pct" yaml:"take_profit_pct"`
	TrailingPct     float64 `json:"trailing_pct" yaml:"trailing_pct"`
	TrailingEnabled bool    `json:"trailing_enabled" yaml:"trailing_enabled"`
	TechnicalExits  bool    `json:"technical_exits" yaml:"technical_exits"`

	EmergencyLossPct float64 `json:"emergency_loss_pct" yaml:"emergency_loss_pct"`
	ScoreDropMargin  float64 `json:"score_drop_margin" yaml:"score_drop_margin"`
	QualityFloor     float64 `json:"quality_floor" yaml:"quality_floor"`

	SizingMethod string  `json:"sizing_method" yaml:"sizing_method"`
	RiskFraction float64 `json:"risk_fraction" yaml:"risk_fraction"`

	CommissionRate float64 `json:"commission_rate" yaml:"commission_rate"`
	TaxRate        float64 `json:"tax_rate" yaml:"tax_rate"`
	SurchargeRate  float64 `json:"surcharge_rate" yaml:"surcharge_rate"`
	SlippageBps    float64 `json:"slippage_bps" yaml:"slippage_bps"`

	// Universe restricts tradable instruments; empty means everything
	// in the dataset.
	Universe []string `json:"universe,omitempty" yaml:"universe,omitempty"`
}

// LoadFromFile loads a Config from a YAML or JSON file and validates it.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON.
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes the config as YAML (.yaml/.yml) or indented JSON.
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
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

// Validate rejects a Config before any simulation starts. Every failure
// here is a configuration error; nothing downstream re-checks these.
func (c *Config) Validate() error {
	if c.Start.IsZero() || c.End.IsZero() {
		return fmt.Errorf("start and end dates are required")
	}
	if !c.Start.Before(c.End) {
		return fmt.Errorf("start %s must be before end %s",
			c.Start.Format("2006-01-02"), c.End.Format("2006-01-02"))
	}
	if c.InitialCapital <= 0 {
		return fmt.Errorf("initial_capital must be positive")
	}
	if c.MaxPositions <= 0 {
		return fmt.Errorf("max_positions must be positive")
	}
	if c.MaxPositionFrac <= 0 || c.MaxPositionFrac > 1 {
		return fmt.Errorf("max_position_frac must be in (0, 1]")
	}
	if c.StopLossPct <= 0 || c.StopLossPct >= 1 {
		return fmt.Errorf("stop_loss_pct must be in (0, 1)")
	}
	if c.TakeProfitPct <= 0 {
		return fmt.Errorf("take_profit_pct must be positive")
	}
	if c.TrailingEnabled && (c.TrailingPct <= 0 || c.TrailingPct >= 1) {
		return fmt.Errorf("trailing_pct must be in (0, 1) when trailing is enabled")
	}
	if c.EmergencyLossPct <= 0 || c.EmergencyLossPct >= 1 {
		return fmt.Errorf("emergency_loss_pct must be in (0, 1)")
	}
	if c.RiskFraction <= 0 || c.RiskFraction > c.MaxPositionFrac {
		return fmt.Errorf("risk_fraction must be in (0, max_position_frac]")
	}
	if c.CommissionRate < 0 || c.TaxRate < 0 || c.SurchargeRate < 0 {
		return fmt.Errorf("commission, tax and surcharge rates must be non-negative")
	}
	if c.SlippageBps < 0 {
		return fmt.Errorf("slippage_bps must be non-negative")
	}
	if c.SizingMethod == "" {
		return fmt.Errorf("sizing_method is required")
	}
	return nil
}

// Clone returns a deep copy, so sweep combinations can vary parameters
// without touching the shared base config.
func (c *Config) Clone() *Config {
	out := *c
	out.Universe = append([]string(nil), c.Universe...)
	return &out
}

// Default returns a config with sensible research defaults. Start/end
// still have to be supplied by the caller.
func Default() *Config {
	return &Config{
		InitialCapital:   100_000_000,
		MaxPositions:     10,
		MaxPositionFrac:  0.20,
		EntryScore:       60,
		StopLossPct:      0.08,
		TakeProfitPct:    0.25,
		TrailingPct:      0.10,
		TrailingEnabled:  true,
		TechnicalExits:   false,
		EmergencyLossPct: 0.20,
		ScoreDropMargin:  20,
		QualityFloor:     30,
		SizingMethod:     "fixed_risk",
		RiskFraction:     0.02,
		CommissionRate:   0.00015,
		TaxRate:          0.0023,
		SurchargeRate:    0.15,
		SlippageBps:      5,
	}
}
