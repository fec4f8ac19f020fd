// Package signal runs the full evaluation pipeline: indicators, structure,
// scoring, the decision gate and exit placement.
package signal

import (
	"errors"
	"fmt"
	"math"

	"fx-signal-bot/internal/analysis"
	"fx-signal-bot/internal/exits"
	"fx-signal-bot/internal/instrument"
	"fx-signal-bot/internal/scoring"
	"fx-signal-bot/internal/ta"
	"fx-signal-bot/internal/types"
)

const gateRule = "gate"

// Request is one evaluation input. Price defaults to the last close.
type Request struct {
	Instrument string
	Direction  string
	Price      float64
	Candles    []types.Candle
	External   []types.Contribution
}

// Evaluator is immutable after construction and safe for concurrent use.
type Evaluator struct {
	cfg         Config
	rules       *scoring.RuleSet
	instruments instrument.Table
}

func New(cfg Config) (*Evaluator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rules, err := scoring.NewRuleSet(cfg.RuleSet, cfg.RuleWeights, cfg.SellCap)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	for name, spec := range cfg.Instruments {
		for id := range spec.Boosts {
			if !rules.Has(id) {
				return nil, fmt.Errorf("%w: instrument %s boosts unknown rule %q", ErrConfiguration, name, id)
			}
		}
	}
	return &Evaluator{cfg: cfg, rules: rules, instruments: cfg.Instruments}, nil
}

func (e *Evaluator) Threshold() float64     { return e.cfg.DecisionThreshold }
func (e *Evaluator) RuleSetVersion() string { return e.rules.Version() }

// Instrument resolves the capability record for a pair.
func (e *Evaluator) Instrument(name string) instrument.Spec {
	return e.instruments.Lookup(name)
}

// Evaluate never fails: bad input yields a WAIT with the reason recorded.
func (e *Evaluator) Evaluate(req Request) types.Evaluation {
	ev := types.Evaluation{
		Instrument: req.Instrument,
		Direction:  types.Direction(req.Direction),
		Pattern:    types.PatternNeutral,
		Trend:      types.TrendNeutral,
	}
	dir, ok := types.ParseDirection(req.Direction)
	if !ok {
		ev.Result = wait(fmt.Sprintf("invalid direction %q", req.Direction))
		return ev
	}
	if len(req.Candles) == 0 {
		ev.Result = wait("no candles supplied")
		return ev
	}

	cs := req.Candles
	if e.cfg.Window > 0 && len(cs) > e.cfg.Window {
		cs = cs[len(cs)-e.cfg.Window:]
	}
	last := cs[len(cs)-1]
	entry := req.Price
	if entry <= 0 {
		entry = last.Close
	}
	ev.Entry = entry

	spec := e.instruments.Lookup(req.Instrument)
	snap := ta.Compute(cs, e.cfg.Indicators)
	th := analysis.DeriveThresholds(snap.ATR, spec, e.cfg.Thresholds)

	ev.Snapshot = snap
	ev.Thresholds = th
	ev.Pattern = analysis.Detect(cs)
	ev.Trend = analysis.ClassifyTrend(snap, last.Close)
	ev.Box = analysis.DetectBox(cs, e.cfg.BoxWindow, th)
	ev.Levels = analysis.Locate(cs, entry, snap.ATR, th, e.cfg.SR)

	facts := &scoring.Facts{
		Instrument:         spec,
		Direction:          dir,
		Entry:              entry,
		Snapshot:           snap,
		Pattern:            ev.Pattern,
		Trend:              ev.Trend,
		Levels:             ev.Levels,
		Box:                ev.Box,
		NewExtreme:         analysis.NewExtreme(cs, e.cfg.RangeLookback),
		Thresholds:         th,
		Last:               analysis.Measure(last),
		Flow:               tail(cs, 3),
		AvgVolume:          meanVolume(tail(cs, e.cfg.LiquidityWindow)),
		MinLiquidityVolume: e.cfg.MinLiquidityVolume,
		External:           req.External,
	}
	e.decide(&ev, facts)
	return ev
}

// decide scores f, applies the gate and attaches an exit plan to accepted
// signals.
func (e *Evaluator) decide(ev *types.Evaluation, f *scoring.Facts) {
	ev.Result = e.rules.Score(f)
	ev.Result.Decision = e.gate(&ev.Result, f.Direction, f.Snapshot)
	if ev.Result.Decision == types.Wait {
		return
	}
	plan, err := exits.Structure(f.Direction, f.Entry, f.Levels, f.Snapshot.ATR, f.Thresholds, f.Instrument, e.cfg.Exits)
	if err != nil {
		ev.Result.Note("exit_rejected", err.Error())
		ev.Result.Decision = types.Wait
		return
	}
	ev.Exit = &plan
}

// gate maps the score to a decision. Undefined critical indicators and NaN
// scores never pass.
func (e *Evaluator) gate(res *types.ScoreResult, dir types.Direction, s types.IndicatorSnapshot) types.Direction {
	for _, c := range []struct {
		name string
		ind  types.Indicator
	}{
		{"RSI", s.RSI}, {"MACD", s.MACD}, {"MACD signal", s.MACDSignal}, {"ATR", s.ATR},
	} {
		if !c.ind.Valid {
			res.Note(gateRule, fmt.Sprintf("critical indicator %s undefined", c.name))
			return types.Wait
		}
	}
	if math.IsNaN(res.Score) || math.IsInf(res.Score, 0) {
		res.Note(gateRule, "score is not a finite number")
		return types.Wait
	}
	if res.Score >= e.cfg.DecisionThreshold {
		return dir
	}
	res.Note(gateRule, fmt.Sprintf("score %.2f below threshold %.2f", res.Score, e.cfg.DecisionThreshold))
	return types.Wait
}

func wait(reason string) types.ScoreResult {
	r := types.ScoreResult{Decision: types.Wait}
	r.Note(gateRule, reason)
	return r
}

func tail(cs []types.Candle, n int) []types.Candle {
	if n <= 0 {
		return nil
	}
	if len(cs) <= n {
		return cs
	}
	return cs[len(cs)-n:]
}

func meanVolume(cs []types.Candle) float64 {
	if len(cs) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range cs {
		sum += c.Vol
	}
	return sum / float64(len(cs))
}

// IsConfiguration reports whether err is a configuration failure.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}
