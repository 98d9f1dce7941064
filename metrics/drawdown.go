package metrics

import (
	"sort"
	"time"
)

// DrawdownPeriod is one peak-to-recovery episode. End is the recovery
// date, or the last series date if the drawdown never recovered.
type DrawdownPeriod struct {
	Start          time.Time // date of the peak preceding the decline
	End            time.Time
	Days           int
	MaxDrawdownPct float64
	Recovered      bool
}

// DrawdownPeriods extracts every drawdown episode from the value
// series using a running maximum, sorted by magnitude descending.
func DrawdownPeriods(series []Point) []DrawdownPeriod {
	if len(series) < 2 {
		return nil
	}

	var periods []DrawdownPeriod

	peak := series[0].Value
	peakDate := series[0].Date
	var cur *DrawdownPeriod

	for _, p := range series {
		if p.Value >= peak {
			if cur != nil {
				cur.End = p.Date
				cur.Days = daysBetween(cur.Start, p.Date)
				cur.Recovered = true
				periods = append(periods, *cur)
				cur = nil
			}
			peak = p.Value
			peakDate = p.Date
			continue
		}

		dd := (peak - p.Value) / peak * 100
		if cur == nil {
			cur = &DrawdownPeriod{Start: peakDate}
		}
		if dd > cur.MaxDrawdownPct {
			cur.MaxDrawdownPct = dd
		}
	}

	if cur != nil {
		last := series[len(series)-1]
		cur.End = last.Date
		cur.Days = daysBetween(cur.Start, last.Date)
		periods = append(periods, *cur)
	}

	sort.SliceStable(periods, func(i, j int) bool {
		return periods[i].MaxDrawdownPct > periods[j].MaxDrawdownPct
	})
	return periods
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
