package market

import (
	"fmt"
	"sort"
	"time"
)

// LoadStats accounts for rows the loader accepted, rejected or collapsed.
// The simulation treats sparse data as normal, so these are diagnostics,
// not errors.
type LoadStats struct {
	Rows       int
	BadLines   int
	Duplicates int
}

// Dataset is the in-memory, read-only historical series the simulator
// runs against. Bars are grouped per instrument and sorted by date;
// after construction nothing mutates it, so a single Dataset is safe to
// share across concurrent sweep runs.
type Dataset struct {
	bars  map[string][]Bar
	days  []time.Time
	stats LoadStats
}

// NewDataset groups, sorts and deduplicates bars into a Dataset.
// Later duplicates of the same (instrument, date) are dropped and
// counted. Dates end up strictly increasing per instrument.
func NewDataset(bars []Bar) (*Dataset, error) {
	ds := &Dataset{bars: make(map[string][]Bar)}

	for _, b := range bars {
		if b.Instrument == "" {
			return nil, fmt.Errorf("dataset: bar with empty instrument")
		}
		if b.Date.IsZero() {
			return nil, fmt.Errorf("dataset: bar for %s with zero date", b.Instrument)
		}
		b.Date = DateKey(b.Date)
		ds.bars[b.Instrument] = append(ds.bars[b.Instrument], b)
	}

	daySet := make(map[time.Time]struct{})

	for instr, series := range ds.bars {
		sort.SliceStable(series, func(i, j int) bool {
			return series[i].Date.Before(series[j].Date)
		})

		out := series[:0]
		var prev time.Time
		for _, b := range series {
			if !prev.IsZero() && b.Date.Equal(prev) {
				ds.stats.Duplicates++
				continue
			}
			prev = b.Date
			out = append(out, b)
			daySet[b.Date] = struct{}{}
		}
		ds.bars[instr] = out
		ds.stats.Rows += len(out)
	}

	ds.days = make([]time.Time, 0, len(daySet))
	for d := range daySet {
		ds.days = append(ds.days, d)
	}
	sort.Slice(ds.days, func(i, j int) bool { return ds.days[i].Before(ds.days[j]) })

	return ds, nil
}

// Instruments returns all instrument ids, sorted.
func (ds *Dataset) Instruments() []string {
	out := make([]string, 0, len(ds.bars))
	for instr := range ds.bars {
		out = append(out, instr)
	}
	sort.Strings(out)
	return out
}

// Bars returns the full date-ascending series for one instrument.
func (ds *Dataset) Bars(instrument string) []Bar {
	return ds.bars[instrument]
}

// Bar looks up one instrument-day. ok is false when the instrument has
// no bar that day, which the simulator treats as expected sparse data.
func (ds *Dataset) Bar(instrument string, day time.Time) (Bar, bool) {
	series := ds.bars[instrument]
	day = DateKey(day)

	i := sort.Search(len(series), func(i int) bool {
		return !series[i].Date.Before(day)
	})
	if i < len(series) && series[i].Date.Equal(day) {
		return series[i], true
	}
	return Bar{}, false
}

// TradingDays returns the union of all bar dates within [start, end],
// ascending. This is the day sequence a simulation iterates.
func (ds *Dataset) TradingDays(start, end time.Time) []time.Time {
	start, end = DateKey(start), DateKey(end)

	var out []time.Time
	for _, d := range ds.days {
		if d.Before(start) || d.After(end) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// BarsOn returns every instrument's bar for one day, sorted by
// instrument id for deterministic iteration.
func (ds *Dataset) BarsOn(day time.Time) []Bar {
	day = DateKey(day)

	var out []Bar
	for _, instr := range ds.Instruments() {
		if b, ok := ds.Bar(instr, day); ok {
			out = append(out, b)
		}
	}
	return out
}

// Stats reports loader/constructor accounting.
func (ds *Dataset) Stats() LoadStats { return ds.stats }
