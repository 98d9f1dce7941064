package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/quantfold/backtest/risk"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run the risk monitor over a live position book",
	Long: `Check evaluates the exit rules against a position book described in a
YAML file and prints the resulting exit instructions. Nothing is
executed; the output feeds an external order-execution service.

Example:
  backtest check -p positions.yaml`,
	RunE: runCheck,
}

var checkPositionsPath string

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVarP(&checkPositionsPath, "positions", "p", "", "path to position book YAML (required)")
	checkCmd.MarkFlagRequired("positions")
}

// positionBook is the on-disk shape of a live risk check request.
type positionBook struct {
	InitialCapital float64 `yaml:"initial_capital"`
	TotalValue     float64 `yaml:"total_value"`

	Rules risk.Config `yaml:"rules"`

	Positions []struct {
		Instrument   string  `yaml:"instrument"`
		Shares       int64   `yaml:"shares"`
		EntryPrice   float64 `yaml:"entry_price"`
		CurrentPrice float64 `yaml:"current_price"`
		HighestPrice float64 `yaml:"highest_price"`
		EntryScore   float64 `yaml:"entry_score"`

		Score    float64 `yaml:"score"`
		Quality  float64 `yaml:"quality"`
		RSI      float64 `yaml:"rsi"`
		MA20     float64 `yaml:"ma20"`
		Momentum float64 `yaml:"momentum"`
	} `yaml:"positions"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(checkPositionsPath)
	if err != nil {
		return fmt.Errorf("read positions: %w", err)
	}

	var book positionBook
	if err := yaml.Unmarshal(data, &book); err != nil {
		return fmt.Errorf("parse positions: %w", err)
	}

	monitor := risk.NewMonitor(book.Rules)
	tracker := risk.NewTracker(book.InitialCapital)

	var positions []*risk.Position
	obs := make(map[string]risk.Observation)

	for _, in := range book.Positions {
		p := &risk.Position{
			Instrument: in.Instrument,
			Shares:     in.Shares,
			EntryPrice: in.EntryPrice,
			EntryScore: in.EntryScore,
		}
		monitor.Init(p)
		if in.HighestPrice > p.HighestPrice {
			p.HighestPrice = in.HighestPrice
		}
		p.UpdatePrice(in.CurrentPrice, book.Rules.TrailingPct)
		positions = append(positions, p)
		obs[in.Instrument] = risk.Observation{
			Score:    in.Score,
			Quality:  in.Quality,
			RSI:      in.RSI,
			MA20:     in.MA20,
			Momentum: in.Momentum,
		}
	}

	snap := tracker.Update(time.Now().UTC(), book.TotalValue)
	signals := monitor.Evaluate(positions, snap, obs)

	if len(signals) == 0 {
		fmt.Println("no exits triggered")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INSTRUMENT\tREASON\tURGENCY\tPRICE\tSHARES\tDETAIL")
	for _, s := range signals {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%d\t%s\n",
			s.Instrument, s.Reason, s.Urgency, s.Price, s.Shares, s.Detail)
	}
	return tw.Flush()
}
