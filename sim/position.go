package sim

import (
	"time"

	"github.com/quantfold/backtest/risk"
)

// Position is one open holding. The embedded risk.Position carries the
// price marks and trigger levels the monitor works on; the simulator
// adds what it needs for P/L accounting.
type Position struct {
	risk.Position

	EntryDate time.Time
	CostBasis float64 // cash paid to open, commission included
}

// positions is a dense arena with an instrument → index map. Closes
// are collected while iterating and applied afterwards, so the day
// loop never removes from the slice it is walking.
type positions struct {
	arena []*Position
	index map[string]int
}

func newPositions() *positions {
	return &positions{index: make(map[string]int)}
}

func (ps *positions) add(p *Position) {
	ps.index[p.Instrument] = len(ps.arena)
	ps.arena = append(ps.arena, p)
}

func (ps *positions) get(instrument string) (*Position, bool) {
	i, ok := ps.index[instrument]
	if !ok {
		return nil, false
	}
	return ps.arena[i], true
}

func (ps *positions) has(instrument string) bool {
	_, ok := ps.index[instrument]
	return ok
}

// remove swap-deletes the instrument's position from the arena.
func (ps *positions) remove(instrument string) {
	i, ok := ps.index[instrument]
	if !ok {
		return
	}
	last := len(ps.arena) - 1
	if i != last {
		ps.arena[i] = ps.arena[last]
		ps.index[ps.arena[i].Instrument] = i
	}
	ps.arena = ps.arena[:last]
	delete(ps.index, instrument)
}

func (ps *positions) count() int { return len(ps.arena) }

// value marks the whole book to market.
func (ps *positions) value() float64 {
	var total float64
	for _, p := range ps.arena {
		total += p.Value()
	}
	return total
}

// riskViews exposes the arena to the monitor.
func (ps *positions) riskViews() []*risk.Position {
	out := make([]*risk.Position, len(ps.arena))
	for i, p := range ps.arena {
		out[i] = &p.Position
	}
	return out
}
