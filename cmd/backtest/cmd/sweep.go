package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/quantfold/backtest/market"
	"github.com/quantfold/backtest/metrics"
	"github.com/quantfold/backtest/sweep"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a parameter sweep and rank the results",
	Long: `Sweep runs the backtest once per parameter combination across a
worker pool and prints results ranked by the chosen metric.

Axes are comma-separated values; the grid is their cross product:
  backtest sweep -d bars.csv --stops 0.05,0.08,0.10 --takes 0.20,0.30 \
      --methods fixed_risk,half_kelly --rank sharpe --workers 8`,
	RunE: runSweep,
}

var (
	sweepStops   string
	sweepTakes   string
	sweepMethods string
	sweepWorkers int
	sweepRank    string
)

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().StringVarP(&runConfigPath, "config", "c", "", "path to base config YAML/JSON")
	sweepCmd.Flags().StringVarP(&runDataPath, "data", "d", "", "path to bar dataset (required)")
	sweepCmd.Flags().StringVar(&sweepStops, "stops", "", "stop-loss fractions, comma-separated")
	sweepCmd.Flags().StringVar(&sweepTakes, "takes", "", "take-profit fractions, comma-separated")
	sweepCmd.Flags().StringVar(&sweepMethods, "methods", "", "sizing methods, comma-separated")
	sweepCmd.Flags().IntVar(&sweepWorkers, "workers", 0, "worker pool size (0 = GOMAXPROCS)")
	sweepCmd.Flags().StringVar(&sweepRank, "rank", "sharpe", "ranking metric: sharpe, return, calmar, drawdown")

	sweepCmd.MarkFlagRequired("data")
}

func parseFloats(s string) ([]float64, error) {
	if s == "" {
		return nil, nil
	}
	var out []float64
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("bad value %q: %w", part, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func rankKey(name string) (func(*metrics.Report) float64, error) {
	switch name {
	case "sharpe":
		return sweep.BySharpe, nil
	case "return":
		return func(r *metrics.Report) float64 { return r.TotalReturnPct }, nil
	case "calmar":
		return func(r *metrics.Report) float64 { return r.Calmar }, nil
	case "drawdown":
		// Smaller drawdown ranks higher.
		return func(r *metrics.Report) float64 { return -r.MaxDrawdownPct }, nil
	default:
		return nil, fmt.Errorf("unknown rank metric %q", name)
	}
}

func runSweep(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	stops, err := parseFloats(sweepStops)
	if err != nil {
		return fmt.Errorf("--stops: %w", err)
	}
	takes, err := parseFloats(sweepTakes)
	if err != nil {
		return fmt.Errorf("--takes: %w", err)
	}
	var methods []string
	if sweepMethods != "" {
		for _, m := range strings.Split(sweepMethods, ",") {
			methods = append(methods, strings.TrimSpace(m))
		}
	}

	key, err := rankKey(sweepRank)
	if err != nil {
		return err
	}

	data, err := market.Load(runDataPath)
	if err != nil {
		return err
	}

	combos := sweep.Grid(cfg, stops, takes, methods)

	// Ctrl-C abandons queued combinations; in-flight runs finish.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runner := sweep.Runner{Workers: sweepWorkers, Log: log}
	outcomes := runner.Run(ctx, data, combos)
	sweep.SortBy(outcomes, key)

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COMBO\tRETURN%\tSHARPE\tMAXDD%\tTRADES\tERROR")
	for _, o := range outcomes {
		if o.Err != nil {
			fmt.Fprintf(tw, "%s\t\t\t\t\t%v\n", o.Combo.Name, o.Err)
			continue
		}
		m := o.Result.Report
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%d\t\n",
			o.Combo.Name, m.TotalReturnPct, m.Sharpe, m.MaxDrawdownPct, m.Trades)
	}
	return tw.Flush()
}
