package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := Default()
	cfg.Start = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg.End = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return cfg
}

func TestValidConfigPasses(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validConfig().Validate())
}

func TestValidateRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing dates", func(c *Config) { c.Start, c.End = time.Time{}, time.Time{} }},
		{"start after end", func(c *Config) { c.Start, c.End = c.End, c.Start }},
		{"start equals end", func(c *Config) { c.End = c.Start }},
		{"zero capital", func(c *Config) { c.InitialCapital = 0 }},
		{"negative capital", func(c *Config) { c.InitialCapital = -1 }},
		{"zero max positions", func(c *Config) { c.MaxPositions = 0 }},
		{"fraction above one", func(c *Config) { c.MaxPositionFrac = 1.5 }},
		{"zero fraction", func(c *Config) { c.MaxPositionFrac = 0 }},
		{"stop loss out of range", func(c *Config) { c.StopLossPct = 1 }},
		{"zero take profit", func(c *Config) { c.TakeProfitPct = 0 }},
		{"bad trailing", func(c *Config) { c.TrailingEnabled = true; c.TrailingPct = 0 }},
		{"bad emergency", func(c *Config) { c.EmergencyLossPct = 0 }},
		{"risk above cap", func(c *Config) { c.RiskFraction = c.MaxPositionFrac * 2 }},
		{"negative commission", func(c *Config) { c.CommissionRate = -0.001 }},
		{"negative slippage", func(c *Config) { c.SlippageBps = -1 }},
		{"missing sizing method", func(c *Config) { c.SizingMethod = "" }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Universe = []string{"005930", "000660"}
	cfg.SizingMethod = "half_kelly"

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, cfg.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, cfg.SizingMethod, loaded.SizingMethod)
	assert.Equal(t, cfg.Universe, loaded.Universe)
	assert.InDelta(t, cfg.InitialCapital, loaded.InitialCapital, 1e-9)
	assert.True(t, cfg.Start.Equal(loaded.Start))
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("initial_capital: -5\n"), 0644))

	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

func TestCloneIsIndependent(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Universe = []string{"005930"}

	clone := cfg.Clone()
	clone.StopLossPct = 0.5
	clone.Universe[0] = "changed"

	assert.InDelta(t, 0.08, cfg.StopLossPct, 1e-9)
	assert.Equal(t, "005930", cfg.Universe[0])
}
