package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Strategy backtesting and portfolio risk engine",
	Long: `Backtest evaluates trading strategies against historical market data
and manages portfolio risk.

It provides tools for:
  - Day-by-day backtesting over merged price/score datasets
  - Risk-adjusted position sizing (fixed-risk, Kelly family, vol-scaled)
  - Stop-loss / trailing-stop / take-profit exit monitoring
  - Performance metrics (Sharpe, Sortino, drawdowns, VaR/CVaR)
  - Parallel parameter sweeps ranked by any metric`,
	SilenceUsage: true,
}

var verbose bool

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
}

// newLogger builds the CLI logger; debug level when --verbose.
func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true
	return cfg.Build()
}
