package risk

import "time"

// Snapshot is a point-in-time view of portfolio-level risk. Snapshots
// are immutable once appended; "current" means most recent.
type Snapshot struct {
	Time           time.Time
	TotalValue     float64
	PeakValue      float64
	InitialCapital float64

	Drawdown        float64 // fraction below peak
	MaxDrawdown     float64 // worst drawdown seen so far
	LossFromInitial float64 // fraction below initial capital, 0 when above

	Halted bool // set once emergency liquidation has fired
}

// Tracker appends snapshots as portfolio value evolves and keeps the
// running peak and max-drawdown figures the emergency check consumes.
type Tracker struct {
	initial float64
	peak    float64
	maxDD   float64
	halted  bool
	history []Snapshot
}

func NewTracker(initialCapital float64) *Tracker {
	return &Tracker{
		initial: initialCapital,
		peak:    initialCapital,
	}
}

// Update records the portfolio value at t and returns the new current
// snapshot.
func (tr *Tracker) Update(t time.Time, totalValue float64) Snapshot {
	if totalValue > tr.peak {
		tr.peak = totalValue
	}

	var dd float64
	if tr.peak > 0 {
		dd = (tr.peak - totalValue) / tr.peak
	}
	if dd > tr.maxDD {
		tr.maxDD = dd
	}

	var loss float64
	if totalValue < tr.initial && tr.initial > 0 {
		loss = (tr.initial - totalValue) / tr.initial
	}

	s := Snapshot{
		Time:            t,
		TotalValue:      totalValue,
		PeakValue:       tr.peak,
		InitialCapital:  tr.initial,
		Drawdown:        dd,
		MaxDrawdown:     tr.maxDD,
		LossFromInitial: loss,
		Halted:          tr.halted,
	}
	tr.history = append(tr.history, s)
	return s
}

// Halt marks the tracker after an emergency liquidation. Subsequent
// snapshots carry the flag so a live consumer stops opening positions.
func (tr *Tracker) Halt() { tr.halted = true }

// Current returns the most recent snapshot. Before the first Update it
// returns a snapshot of the initial capital.
func (tr *Tracker) Current() Snapshot {
	if len(tr.history) == 0 {
		return Snapshot{
			TotalValue:     tr.initial,
			PeakValue:      tr.initial,
			InitialCapital: tr.initial,
			Halted:         tr.halted,
		}
	}
	return tr.history[len(tr.history)-1]
}

// History returns every snapshot recorded so far, oldest first.
func (tr *Tracker) History() []Snapshot { return tr.history }
