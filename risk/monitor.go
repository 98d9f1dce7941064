// Package risk owns the per-position exit state machine and the
// portfolio-level loss tracking that can force an emergency
// liquidation. The monitor only decides; execution belongs to the
// caller (the simulator, or a live order-execution service).
package risk

import (
	"fmt"
	"strings"
)

// Urgency orders exit signals for an execution consumer.
type Urgency int

const (
	Normal Urgency = iota
	High
	Critical
)

func (u Urgency) String() string {
	switch u {
	case Critical:
		return "critical"
	case High:
		return "high"
	default:
		return "normal"
	}
}

// Exit reasons, stable strings recorded on trades and journal rows.
const (
	ReasonStopLoss     = "stop_loss"
	ReasonTrailingStop = "trailing_stop"
	ReasonTakeProfit   = "take_profit"
	ReasonScoreExit    = "score_deterioration"
	ReasonQualityExit  = "quality_deterioration"
	ReasonEmergency    = "emergency_liquidation"
)

// ExitSignal instructs the caller to close a position.
type ExitSignal struct {
	Instrument string
	Reason     string
	Urgency    Urgency
	Price      float64 // price that triggered the exit
	Shares     int64
	Detail     string // which signals fired, for the journal
}

// Observation carries the day's external inputs for one position:
// current technicals and scores from the dataset. Zero values mean the
// upstream pipeline supplied nothing, and the dependent checks are
// skipped.
type Observation struct {
	Score    float64
	Quality  float64
	RSI      float64
	MA20     float64
	Momentum float64
}

// Config is the monitor's rule set. YAML tags support the live
// risk-check input file.
type Config struct {
	StopLossPct     float64 `yaml:"stop_loss_pct"`
	TakeProfitPct   float64 `yaml:"take_profit_pct"`
	TrailingPct     float64 `yaml:"trailing_pct"`
	TrailingEnabled bool    `yaml:"trailing_enabled"`

	// TechnicalExits enables the concurrence take-profit: at least two
	// independent technical conditions firing together close a
	// profitable position before the absolute target is reached.
	TechnicalExits bool `yaml:"technical_exits"`

	// EmergencyLossPct is the loss from initial capital, as a
	// fraction, that triggers portfolio-wide liquidation.
	EmergencyLossPct float64 `yaml:"emergency_loss_pct"`

	// ScoreDropMargin closes a position whose composite score fell
	// more than this many points below its entry score. Zero disables.
	ScoreDropMargin float64 `yaml:"score_drop_margin"`

	// QualityFloor closes a position whose quality score drops below
	// it. Zero disables.
	QualityFloor float64 `yaml:"quality_floor"`
}

// Monitor evaluates exit rules. It is stateless apart from its config;
// all per-position state lives on the Position.
type Monitor struct {
	cfg Config
}

func NewMonitor(cfg Config) *Monitor {
	return &Monitor{cfg: cfg}
}

// Init seeds a freshly opened position's trigger levels from its entry
// price: absolute stop-loss and take-profit from the configured
// offsets, and the trailing stop starting at the stop-loss level.
func (m *Monitor) Init(p *Position) {
	p.HighestPrice = p.EntryPrice
	p.StopLoss = p.EntryPrice * (1 - m.cfg.StopLossPct)
	p.TakeProfit = p.EntryPrice * (1 + m.cfg.TakeProfitPct)
	p.TrailingStop = p.StopLoss
}

// Evaluate runs one tick of the state machine over every open position.
// Positions must already have been marked via UpdatePrice for this
// tick. The emergency check runs first and, when it fires, suppresses
// every individual rule: all positions close with reason
// emergency_liquidation at critical urgency.
func (m *Monitor) Evaluate(positions []*Position, snap Snapshot, obs map[string]Observation) []ExitSignal {
	if len(positions) == 0 {
		return nil
	}

	if m.cfg.EmergencyLossPct > 0 && snap.LossFromInitial >= m.cfg.EmergencyLossPct {
		out := make([]ExitSignal, 0, len(positions))
		for _, p := range positions {
			out = append(out, ExitSignal{
				Instrument: p.Instrument,
				Reason:     ReasonEmergency,
				Urgency:    Critical,
				Price:      p.CurrentPrice,
				Shares:     p.Shares,
				Detail: fmt.Sprintf("loss from initial capital %.1f%% >= %.1f%%",
					snap.LossFromInitial*100, m.cfg.EmergencyLossPct*100),
			})
		}
		return out
	}

	var out []ExitSignal
	for _, p := range positions {
		if sig := m.check(p, obs[p.Instrument]); sig != nil {
			out = append(out, *sig)
		}
	}
	return out
}

// check applies the per-position rules in precedence order:
// stop-loss, trailing stop, take-profit, score/quality deterioration.
// The first rule that fires wins; no signal leaves the position open.
func (m *Monitor) check(p *Position, ob Observation) *ExitSignal {
	price := p.CurrentPrice
	if price <= 0 {
		return nil
	}

	if price <= p.StopLoss {
		return &ExitSignal{
			Instrument: p.Instrument,
			Reason:     ReasonStopLoss,
			Urgency:    High,
			Price:      price,
			Shares:     p.Shares,
			Detail:     fmt.Sprintf("price %.2f <= stop %.2f", price, p.StopLoss),
		}
	}

	if m.cfg.TrailingEnabled && p.TrailingStop > 0 && price <= p.TrailingStop {
		return &ExitSignal{
			Instrument: p.Instrument,
			Reason:     ReasonTrailingStop,
			Urgency:    High,
			Price:      price,
			Shares:     p.Shares,
			Detail: fmt.Sprintf("price %.2f <= trailing %.2f (high %.2f)",
				price, p.TrailingStop, p.HighestPrice),
		}
	}

	if price >= p.TakeProfit {
		return &ExitSignal{
			Instrument: p.Instrument,
			Reason:     ReasonTakeProfit,
			Urgency:    Normal,
			Price:      price,
			Shares:     p.Shares,
			Detail:     fmt.Sprintf("price %.2f >= target %.2f", price, p.TakeProfit),
		}
	}

	if m.cfg.TechnicalExits && price > p.EntryPrice {
		if fired := technicalSignals(p, ob); len(fired) >= 2 {
			return &ExitSignal{
				Instrument: p.Instrument,
				Reason:     ReasonTakeProfit,
				Urgency:    Normal,
				Price:      price,
				Shares:     p.Shares,
				Detail:     "technical: " + strings.Join(fired, ","),
			}
		}
	}

	if m.cfg.QualityFloor > 0 && ob.Quality > 0 && ob.Quality < m.cfg.QualityFloor {
		return &ExitSignal{
			Instrument: p.Instrument,
			Reason:     ReasonQualityExit,
			Urgency:    Normal,
			Price:      price,
			Shares:     p.Shares,
			Detail:     fmt.Sprintf("quality %.1f < floor %.1f", ob.Quality, m.cfg.QualityFloor),
		}
	}

	if m.cfg.ScoreDropMargin > 0 && ob.Score > 0 && p.EntryScore > 0 &&
		p.EntryScore-ob.Score > m.cfg.ScoreDropMargin {
		return &ExitSignal{
			Instrument: p.Instrument,
			Reason:     ReasonScoreExit,
			Urgency:    Normal,
			Price:      price,
			Shares:     p.Shares,
			Detail: fmt.Sprintf("score %.1f dropped %.1f below entry %.1f",
				ob.Score, p.EntryScore-ob.Score, p.EntryScore),
		}
	}

	return nil
}

// Concurrence take-profit thresholds. Any two of the three conditions
// firing on the same tick count; all fired signals are reported, none
// has priority over another.
const (
	overboughtRSI = 70.0
	maExtension   = 1.15 // close 15% above the 20-day MA
)

func technicalSignals(p *Position, ob Observation) []string {
	var fired []string
	if ob.RSI >= overboughtRSI {
		fired = append(fired, "momentum_overbought")
	}
	if ob.MA20 > 0 && p.CurrentPrice >= ob.MA20*maExtension {
		fired = append(fired, "ma_extension")
	}
	if ob.Momentum < 0 {
		fired = append(fired, "trend_reversal")
	}
	return fired
}
