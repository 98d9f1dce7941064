package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quantfold/backtest/config"
	"github.com/quantfold/backtest/journal"
	"github.com/quantfold/backtest/market"
	"github.com/quantfold/backtest/sim"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single backtest",
	Long: `Run executes one backtest over a merged bar dataset.

The dataset is a CSV (optionally .csv.xz or a .zip bundle) with columns:
  date,instrument,open,high,low,close,volume[,score,momentum,quality,rsi,ma20,volatility]

Example:
  backtest run -c config.yaml -d bars.csv.xz --db runs.sqlite`,
	RunE: runRun,
}

var (
	runConfigPath string
	runDataPath   string
	runDBPath     string
	runStart      string
	runEnd        string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "", "path to config YAML/JSON")
	runCmd.Flags().StringVarP(&runDataPath, "data", "d", "", "path to bar dataset (.csv, .csv.xz or .zip) (required)")
	runCmd.Flags().StringVar(&runDBPath, "db", "", "SQLite journal path (empty disables journaling)")
	runCmd.Flags().StringVar(&runStart, "start", "", "override start date (YYYY-MM-DD)")
	runCmd.Flags().StringVar(&runEnd, "end", "", "override end date (YYYY-MM-DD)")

	runCmd.MarkFlagRequired("data")
}

func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if runConfigPath != "" {
		loaded, err := config.LoadFromFile(runConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	if runStart != "" {
		t, err := time.Parse("2006-01-02", runStart)
		if err != nil {
			return nil, fmt.Errorf("bad --start: %w", err)
		}
		cfg.Start = t
	}
	if runEnd != "" {
		t, err := time.Parse("2006-01-02", runEnd)
		if err != nil {
			return nil, fmt.Errorf("bad --end: %w", err)
		}
		cfg.End = t
	}
	return cfg, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	data, err := market.Load(runDataPath)
	if err != nil {
		return err
	}
	log.Info("dataset loaded",
		zap.Int("instruments", len(data.Instruments())),
		zap.Int("rows", data.Stats().Rows),
		zap.Int("bad_lines", data.Stats().BadLines),
		zap.Int("duplicates", data.Stats().Duplicates),
	)

	var opts []sim.Option
	if runDBPath != "" {
		j, err := journal.NewSQLite(runDBPath)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer j.Close()
		opts = append(opts, sim.WithJournal(j))
	}

	eng, err := sim.New(cfg, data, opts...)
	if err != nil {
		return err
	}

	res, err := eng.Run()
	if err != nil {
		return err
	}

	sim.PrintResult(os.Stdout, res)
	return nil
}
