// Package sim runs the day-by-day backtest: it owns the simulated
// cash, the open-position book and the trade log, delegating exit
// decisions to the risk monitor, share counts to the sizer and fill
// pricing to the cost model. A single run is strictly sequential; day
// t+1 never starts before day t's state is final.
package sim

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/quantfold/backtest/config"
	"github.com/quantfold/backtest/cost"
	"github.com/quantfold/backtest/journal"
	"github.com/quantfold/backtest/market"
	"github.com/quantfold/backtest/metrics"
	"github.com/quantfold/backtest/pkg/id"
	"github.com/quantfold/backtest/risk"
	"github.com/quantfold/backtest/sizing"
)

var (
	// ErrEmptyUniverse means no instrument passed the universe filter.
	ErrEmptyUniverse = errors.New("sim: no instruments match the configured universe")
	// ErrNoHistoricalData means the dataset has no rows in the
	// configured date range.
	ErrNoHistoricalData = errors.New("sim: no historical data in the configured date range")
)

// Result is the complete output of one run.
type Result struct {
	RunID      string
	Trades     []Trade
	Series     []Snapshot
	Report     *metrics.Report
	FinalValue float64
	Halted     bool // emergency liquidation fired during the run
}

// Engine holds one run's mutable state. Engines are single-use: build,
// Run once, read the Result.
type Engine struct {
	cfg     *config.Config
	data    *market.Dataset
	costs   cost.Model
	sizer   sizing.Sizer
	monitor *risk.Monitor
	tracker *risk.Tracker
	jnl     journal.Journal
	runID   string

	cash   float64
	book   *positions
	trades []Trade
	series []Snapshot
	closed []metrics.ClosedTrade

	// Running closed-trade statistics feeding Kelly sizing.
	wins, losses   int
	winPctSum      float64
	lossPctSum     float64
	halted         bool
	universeFilter map[string]bool
}

type Option func(*Engine)

// WithJournal attaches a journal; every fill and daily snapshot is
// recorded. Nil (the default) records nothing.
func WithJournal(j journal.Journal) Option {
	return func(e *Engine) { e.jnl = j }
}

// New validates the configuration and assembles an engine. Validation
// failures are rejected here, before any simulation starts.
func New(cfg *config.Config, data *market.Dataset, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("sim: %w", err)
	}

	method, err := sizing.ParseMethod(cfg.SizingMethod)
	if err != nil {
		return nil, fmt.Errorf("sim: %w", err)
	}

	e := &Engine{
		cfg:  cfg,
		data: data,
		costs: cost.Model{
			CommissionRate: cfg.CommissionRate,
			TaxRate:        cfg.TaxRate,
			SurchargeRate:  cfg.SurchargeRate,
			SlippageBps:    cfg.SlippageBps,
		},
		sizer: sizing.Sizer{
			Method:          method,
			Fraction:        cfg.MaxPositionFrac,
			RiskFraction:    cfg.RiskFraction,
			MaxPositionFrac: cfg.MaxPositionFrac,
			RefVolatility:   0.20,
			RefFraction:     cfg.MaxPositionFrac / 2,
		},
		monitor: risk.NewMonitor(risk.Config{
			StopLossPct:      cfg.StopLossPct,
			TakeProfitPct:    cfg.TakeProfitPct,
			TrailingPct:      cfg.TrailingPct,
			TrailingEnabled:  cfg.TrailingEnabled,
			TechnicalExits:   cfg.TechnicalExits,
			EmergencyLossPct: cfg.EmergencyLossPct,
			ScoreDropMargin:  cfg.ScoreDropMargin,
			QualityFloor:     cfg.QualityFloor,
		}),
		tracker: risk.NewTracker(cfg.InitialCapital),
		runID:   id.New(),
		cash:    cfg.InitialCapital,
		book:    newPositions(),
	}

	if len(cfg.Universe) > 0 {
		e.universeFilter = make(map[string]bool, len(cfg.Universe))
		for _, instr := range cfg.Universe {
			e.universeFilter[instr] = true
		}
	}

	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// RunID returns the identifier journal records are keyed by.
func (e *Engine) RunID() string { return e.runID }

// Run executes the full backtest and computes the performance report.
func (e *Engine) Run() (*Result, error) {
	if !e.hasUniverse() {
		return nil, ErrEmptyUniverse
	}

	days := e.data.TradingDays(e.cfg.Start, e.cfg.End)
	if len(days) == 0 {
		return nil, ErrNoHistoricalData
	}

	for _, day := range days {
		e.step(day)
	}

	points := make([]metrics.Point, len(e.series))
	for i, s := range e.series {
		points[i] = metrics.Point{Date: s.Date, Value: s.Total}
	}

	report, err := metrics.Compute(points, e.closed, e.cfg.InitialCapital)
	if err != nil {
		return nil, fmt.Errorf("sim: %w", err)
	}

	res := &Result{
		RunID:      e.runID,
		Trades:     e.trades,
		Series:     e.series,
		Report:     report,
		FinalValue: e.series[len(e.series)-1].Total,
		Halted:     e.halted,
	}

	if e.jnl != nil {
		_ = e.jnl.RecordRun(journal.RunRecord{
			RunID:           e.runID,
			Created:         time.Now().UTC(),
			Params:          fmt.Sprintf("method=%s stop=%.2f take=%.2f maxpos=%d", e.cfg.SizingMethod, e.cfg.StopLossPct, e.cfg.TakeProfitPct, e.cfg.MaxPositions),
			FinalValue:      res.FinalValue,
			TotalReturnPct:  report.TotalReturnPct,
			AnnualReturnPct: report.AnnualReturnPct,
			MaxDrawdownPct:  report.MaxDrawdownPct,
			Sharpe:          report.Sharpe,
			Trades:          report.Trades,
			WinRatePct:      report.WinRatePct,
		})
	}

	return res, nil
}

func (e *Engine) hasUniverse() bool {
	for _, instr := range e.data.Instruments() {
		if e.inUniverse(instr) {
			return true
		}
	}
	return false
}

func (e *Engine) inUniverse(instrument string) bool {
	return e.universeFilter == nil || e.universeFilter[instrument]
}

// step advances the simulation by one trading day:
// mark positions, run exits, open entries, snapshot value.
func (e *Engine) step(day time.Time) {
	// 1) Refresh marks and trailing bookkeeping. Instruments missing
	// from today's data keep yesterday's mark; that's sparse data, not
	// an error.
	obs := make(map[string]risk.Observation, e.book.count())
	trailing := 0.0
	if e.cfg.TrailingEnabled {
		trailing = e.cfg.TrailingPct
	}
	for _, p := range e.book.arena {
		bar, ok := e.data.Bar(p.Instrument, day)
		if !ok {
			continue
		}
		p.UpdatePrice(bar.Close, trailing)
		obs[p.Instrument] = risk.Observation{
			Score:    bar.Score,
			Quality:  bar.Quality,
			RSI:      bar.RSI,
			MA20:     bar.MA20,
			Momentum: bar.Momentum,
		}
	}

	// 2) Exits. Evaluate returns the day's signals up front; closes
	// are applied afterwards so the book is never mutated mid-walk.
	// A position with no bar today is skipped (stale mark), unless an
	// emergency liquidation is closing the whole book.
	signals := e.monitor.Evaluate(e.book.riskViews(), e.tracker.Current(), obs)
	for _, sig := range signals {
		if _, marked := obs[sig.Instrument]; !marked && sig.Reason != risk.ReasonEmergency {
			continue
		}
		e.closePosition(sig, day)
		if sig.Reason == risk.ReasonEmergency && !e.halted {
			e.halted = true
			e.tracker.Halt()
		}
	}

	// 3) Entries, unless trading is halted or the book is full.
	if !e.halted && e.book.count() < e.cfg.MaxPositions {
		e.openEntries(day)
	}

	// 4) End-of-day snapshot.
	posValue := e.book.value()
	snap := Snapshot{
		Date:           day,
		Cash:           e.cash,
		PositionsValue: posValue,
		Total:          e.cash + posValue,
	}
	e.series = append(e.series, snap)
	e.tracker.Update(day, snap.Total)

	if e.jnl != nil {
		_ = e.jnl.RecordValue(journal.ValueRecord{
			RunID:          e.runID,
			Date:           day,
			Cash:           snap.Cash,
			PositionsValue: snap.PositionsValue,
			Total:          snap.Total,
		})
	}
}

// openEntries ranks today's eligible instruments by composite score and
// opens positions while capacity and cash allow. A zero-share sizing or
// an unaffordable fill skips the candidate, it does not fail the run.
func (e *Engine) openEntries(day time.Time) {
	var candidates []market.Bar
	for _, bar := range e.data.BarsOn(day) {
		if !e.inUniverse(bar.Instrument) || e.book.has(bar.Instrument) {
			continue
		}
		if bar.Score < e.cfg.EntryScore || bar.Close <= 0 {
			continue
		}
		candidates = append(candidates, bar)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	portfolio := e.cash + e.book.value()
	stats := e.tradeStats()

	for _, bar := range candidates {
		if e.book.count() >= e.cfg.MaxPositions {
			break
		}

		stop := bar.Close * (1 - e.cfg.StopLossPct)
		sized, err := e.sizer.Size(sizing.Input{
			PortfolioValue: portfolio,
			EntryPrice:     bar.Close,
			StopPrice:      stop,
			Volatility:     bar.Volatility,
			Stats:          stats,
		})
		if err != nil || sized.Shares <= 0 {
			continue
		}

		fill, err := e.costs.Buy(sized.Shares, bar.Close)
		if err != nil || -fill.Net > e.cash {
			continue
		}

		e.cash += fill.Net

		p := &Position{
			Position: risk.Position{
				Instrument: bar.Instrument,
				Shares:     fill.Shares,
				EntryPrice: fill.Price,
				EntryScore: bar.Score,
			},
			EntryDate: day,
			CostBasis: -fill.Net,
		}
		e.monitor.Init(&p.Position)
		p.CurrentPrice = bar.Close
		e.book.add(p)

		e.recordTrade(Trade{
			ID:         id.New(),
			Instrument: bar.Instrument,
			Side:       Buy,
			Date:       day,
			Shares:     fill.Shares,
			Price:      fill.Price,
			Commission: fill.Commission,
			Reason:     "entry",
		})
	}
}

// closePosition executes one exit signal through the cost model and
// removes the position from the book.
func (e *Engine) closePosition(sig risk.ExitSignal, day time.Time) {
	p, ok := e.book.get(sig.Instrument)
	if !ok {
		return
	}

	fill, err := e.costs.Sell(p.Shares, sig.Price)
	if err != nil {
		return
	}

	e.cash += fill.Net
	profit := fill.Net - p.CostBasis
	holding := int(day.Sub(p.EntryDate).Hours() / 24)

	e.recordTrade(Trade{
		ID:          id.New(),
		Instrument:  sig.Instrument,
		Side:        Sell,
		Date:        day,
		Shares:      fill.Shares,
		Price:       fill.Price,
		Commission:  fill.Commission,
		Tax:         fill.Tax,
		Profit:      profit,
		HoldingDays: holding,
		Reason:      sig.Reason,
	})

	e.closed = append(e.closed, metrics.ClosedTrade{Profit: profit, HoldingDays: holding})

	if p.CostBasis > 0 {
		pct := profit / p.CostBasis
		if profit > 0 {
			e.wins++
			e.winPctSum += pct
		} else if profit < 0 {
			e.losses++
			e.lossPctSum += -pct
		}
	}

	e.book.remove(sig.Instrument)
}

// tradeStats summarizes closed trades so far for Kelly sizing; nil
// until at least one win and one loss exist.
func (e *Engine) tradeStats() *sizing.TradeStats {
	if e.wins == 0 || e.losses == 0 {
		return nil
	}
	return &sizing.TradeStats{
		WinRate:    float64(e.wins) / float64(e.wins+e.losses),
		AvgWinPct:  e.winPctSum / float64(e.wins),
		AvgLossPct: e.lossPctSum / float64(e.losses),
	}
}

func (e *Engine) recordTrade(t Trade) {
	e.trades = append(e.trades, t)
	if e.jnl != nil {
		_ = e.jnl.RecordTrade(journal.TradeRecord{
			RunID:       e.runID,
			TradeID:     t.ID,
			Instrument:  t.Instrument,
			Side:        string(t.Side),
			Date:        t.Date,
			Shares:      t.Shares,
			Price:       t.Price,
			Commission:  t.Commission,
			Tax:         t.Tax,
			Profit:      t.Profit,
			HoldingDays: t.HoldingDays,
			Reason:      t.Reason,
		})
	}
}
