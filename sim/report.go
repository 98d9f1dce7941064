package sim

import (
	"fmt"
	"io"
)

// PrintResult writes a human-readable summary of a completed run.
func PrintResult(w io.Writer, r *Result) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Result")
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintf(w, "Run ID:        %s\n", r.RunID)

	if len(r.Series) > 0 {
		fmt.Fprintf(w, "Start:         %s\n", r.Series[0].Date.Format("2006-01-02"))
		fmt.Fprintf(w, "End:           %s\n", r.Series[len(r.Series)-1].Date.Format("2006-01-02"))
	}
	if r.Halted {
		fmt.Fprintln(w, "NOTE:          emergency liquidation fired; trading halted")
	}

	m := r.Report
	if m == nil {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Final Value:   %.0f\n", r.FinalValue)
	fmt.Fprintf(w, "Total Return:  %.2f%%\n", m.TotalReturnPct)
	fmt.Fprintf(w, "Annualized:    %.2f%%\n", m.AnnualReturnPct)
	fmt.Fprintf(w, "Volatility:    %.2f%%\n", m.VolatilityPct)
	fmt.Fprintf(w, "Sharpe:        %.2f\n", m.Sharpe)
	fmt.Fprintf(w, "Sortino:       %.2f\n", m.Sortino)
	fmt.Fprintf(w, "Calmar:        %.2f\n", m.Calmar)
	fmt.Fprintf(w, "Max Drawdown:  %.2f%% (%d days)\n", m.MaxDrawdownPct, m.MaxDrawdownDays)
	fmt.Fprintf(w, "VaR 95%%:       %.2f%%\n", m.VaR95Pct)
	fmt.Fprintf(w, "CVaR 95%%:      %.2f%%\n", m.CVaR95Pct)
	fmt.Fprintf(w, "Ulcer Index:   %.2f\n", m.UlcerIndex)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trades")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Trades:        %d (%d wins / %d losses)\n", m.Trades, m.Wins, m.Losses)
	fmt.Fprintf(w, "Win Rate:      %.2f%%\n", m.WinRatePct)
	if m.ProfitFactor > 0 {
		fmt.Fprintf(w, "Profit Factor: %.2f\n", m.ProfitFactor)
	}
	fmt.Fprintf(w, "Avg Trade:     %.0f\n", m.AvgTrade)
	fmt.Fprintf(w, "Best/Worst:    %.0f / %.0f\n", m.BestTrade, m.WorstTrade)
	fmt.Fprintf(w, "Holding Days:  %d / %.1f / %d (min/avg/max)\n",
		m.MinHoldingDays, m.AvgHoldingDays, m.MaxHoldingDays)

	if len(m.Drawdowns) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Largest Drawdowns")
		fmt.Fprintln(w, "--------------------------------------------------")
		for i, d := range m.Drawdowns {
			if i >= 5 {
				break
			}
			fmt.Fprintf(w, "%8.2f%%  %s -> %s (%d days)\n",
				d.MaxDrawdownPct,
				d.Start.Format("2006-01-02"),
				d.End.Format("2006-01-02"),
				d.Days)
		}
	}

	fmt.Fprintln(w)
}
