package signal

import (
	"errors"
	"math"
	"strings"
	"testing"

	"fx-signal-bot/internal/analysis"
	"fx-signal-bot/internal/instrument"
	"fx-signal-bot/internal/scoring"
	"fx-signal-bot/internal/types"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.DecisionThreshold = 4
	return cfg
}

func newEvaluator(t *testing.T, cfg Config) *Evaluator {
	t.Helper()
	ev, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create evaluator: %v", err)
	}
	return ev
}

// alternating builds n candles swinging between two closes; odd candles close
// high so the series ends on an up candle.
func alternating(n int, lo, hi, wick float64) []types.Candle {
	cs := make([]types.Candle, n)
	for i := range cs {
		c := types.Candle{Ts: int64(i) * 1800, High: hi + wick, Low: lo - wick}
		if i%2 == 1 {
			c.Open, c.Close = lo, hi
		} else {
			c.Open, c.Close = hi, lo
		}
		cs[i] = c
	}
	return cs
}

func TestNewRequiresThreshold(t *testing.T) {
	_, err := New(DefaultConfig())
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration without threshold, got %v", err)
	}

	cfg := testConfig()
	cfg.DecisionThreshold = -1
	if _, err := New(cfg); !IsConfiguration(err) {
		t.Errorf("Expected ErrConfiguration for negative threshold, got %v", err)
	}
}

func TestNewRejectsUnknownRules(t *testing.T) {
	cfg := testConfig()
	cfg.RuleWeights = map[string]float64{"does_not_exist": 1}
	if _, err := New(cfg); !errors.Is(err, ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration for unknown rule weight, got %v", err)
	}

	cfg = testConfig()
	cfg.Instruments = instrument.Table{"EUR_USD": {Boosts: map[string]float64{"bogus": 1}}}
	if _, err := New(cfg); !errors.Is(err, ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration for unknown boost, got %v", err)
	}

	cfg = testConfig()
	cfg.RuleSet = "v1"
	if _, err := New(cfg); !errors.Is(err, ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration for unknown rule set, got %v", err)
	}
}

func TestFlatMarketWaits(t *testing.T) {
	ev := newEvaluator(t, testConfig())
	cs := alternating(60, 1.1000, 1.1002, 0.0001)

	out := ev.Evaluate(Request{Instrument: "EUR_USD", Direction: "BUY", Candles: cs})
	if out.Result.Decision != types.Wait {
		t.Errorf("Expected WAIT on flat market, got %s (score %.2f, %v)", out.Result.Decision, out.Result.Score, out.Result.Reasons())
	}
	if out.Snapshot.RSI.Value < 49.9 || out.Snapshot.RSI.Value > 50.1 {
		t.Errorf("Expected RSI near 50, got %f", out.Snapshot.RSI.Value)
	}
	if out.Exit != nil {
		t.Error("Expected no exit plan for WAIT")
	}
	if out.Result.Score >= 4 {
		t.Errorf("Expected score below threshold, got %.2f", out.Result.Score)
	}
}

func TestAcceptedSignalHasExitPlan(t *testing.T) {
	cfg := testConfig()
	cfg.RuleWeights = map[string]float64{"rsi50_boundary": 10}
	ev := newEvaluator(t, cfg)
	cs := alternating(60, 1.1000, 1.1002, 0.0008)

	out := ev.Evaluate(Request{Instrument: "EUR_USD", Direction: "BUY", Candles: cs})
	if out.Result.Decision != types.Buy {
		t.Fatalf("Expected BUY, got %s (%v)", out.Result.Decision, out.Result.Reasons())
	}
	if out.Exit == nil {
		t.Fatal("Expected exit plan")
	}
	if !(out.Exit.TakeProfit > out.Entry && out.Entry > out.Exit.StopLoss) {
		t.Errorf("Expected TP > entry > SL, got %+v entry %f", out.Exit, out.Entry)
	}
	if out.Levels.Support.Fallback || out.Levels.Resistance.Fallback {
		t.Errorf("Expected clustered levels, got %+v", out.Levels)
	}
}

func TestRejectedExitDemotesToWait(t *testing.T) {
	cfg := testConfig()
	cfg.RuleWeights = map[string]float64{"rsi50_boundary": 10}
	ev := newEvaluator(t, cfg)
	// ATR of 4 pips caps legs at 6 pips, below the 8 pip minimum
	cs := alternating(60, 1.1000, 1.1002, 0.0001)

	out := ev.Evaluate(Request{Instrument: "EUR_USD", Direction: "BUY", Candles: cs})
	if out.Result.Decision != types.Wait {
		t.Fatalf("Expected WAIT after exit rejection, got %s", out.Result.Decision)
	}
	if !out.Result.Has("exit_rejected") {
		t.Errorf("Expected exit_rejected reason, got %v", out.Result.Reasons())
	}
	for _, c := range out.Result.Contributions {
		if c.Rule == "exit_rejected" && !strings.HasPrefix(c.Reason, "exit plan rejected") {
			t.Errorf("Unexpected reason text %q", c.Reason)
		}
	}
}

func TestShortHistoryWaits(t *testing.T) {
	cfg := testConfig()
	cfg.RuleWeights = map[string]float64{"trend_neutral": 10}
	ev := newEvaluator(t, cfg)
	cs := alternating(12, 1.1000, 1.1002, 0.0008)

	out := ev.Evaluate(Request{Instrument: "EUR_USD", Direction: "BUY", Candles: cs})
	if out.Result.Decision != types.Wait {
		t.Errorf("Expected WAIT with undefined indicators, got %s", out.Result.Decision)
	}
	if out.Snapshot.RSI.Valid || out.Snapshot.MACD.Valid {
		t.Error("Expected RSI and MACD undefined with 12 candles")
	}
	found := false
	for _, r := range out.Result.Reasons() {
		if strings.Contains(r, "undefined") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected undefined-indicator reason, got %v", out.Result.Reasons())
	}
}

func TestInvalidInputWaits(t *testing.T) {
	ev := newEvaluator(t, testConfig())

	out := ev.Evaluate(Request{Instrument: "EUR_USD", Direction: "HOLD", Candles: alternating(60, 1.1, 1.1002, 0.0001)})
	if out.Result.Decision != types.Wait || len(out.Result.Contributions) == 0 {
		t.Errorf("Expected WAIT with reason for invalid direction, got %+v", out.Result)
	}

	out = ev.Evaluate(Request{Instrument: "EUR_USD", Direction: "SELL"})
	if out.Result.Decision != types.Wait {
		t.Errorf("Expected WAIT with no candles, got %s", out.Result.Decision)
	}
}

func TestExternalPenaltyApplied(t *testing.T) {
	cfg := testConfig()
	cfg.RuleWeights = map[string]float64{"rsi50_boundary": 10}
	ev := newEvaluator(t, cfg)
	cs := alternating(60, 1.1000, 1.1002, 0.0008)

	plain := ev.Evaluate(Request{Instrument: "EUR_USD", Direction: "BUY", Candles: cs})
	penalised := ev.Evaluate(Request{
		Instrument: "EUR_USD", Direction: "BUY", Candles: cs,
		External: []types.Contribution{{Rule: "session_liquidity", Weight: -20, Reason: "thin session"}},
	})
	if penalised.Result.Score != plain.Result.Score-20 {
		t.Errorf("Expected score %.2f, got %.2f", plain.Result.Score-20, penalised.Result.Score)
	}
	if penalised.Result.Decision != types.Wait {
		t.Errorf("Expected penalty to force WAIT, got %s", penalised.Result.Decision)
	}
}

func TestEvaluateIsPure(t *testing.T) {
	ev := newEvaluator(t, testConfig())
	cs := alternating(80, 1.2500, 1.2507, 0.0004)
	a := ev.Evaluate(Request{Instrument: "GBP_USD", Direction: "SELL", Candles: cs})
	b := ev.Evaluate(Request{Instrument: "GBP_USD", Direction: "SELL", Candles: cs})
	if a.Result.Score != b.Result.Score || a.Levels.Support != b.Levels.Support || a.Snapshot.RSI != b.Snapshot.RSI {
		t.Error("Expected identical evaluations for identical input")
	}
}

func TestOversoldHammerInUptrendBuys(t *testing.T) {
	cfg := testConfig()
	ev := newEvaluator(t, cfg)
	spec := ev.Instrument("EUR_USD")
	hammer := types.Candle{Open: 1.1000, High: 1.1003, Low: 1.0980, Close: 1.1002}
	snap := types.IndicatorSnapshot{
		RSI:        types.Defined(25),
		StochRSI:   types.Defined(0.05),
		MACD:       types.Defined(-0.0001),
		MACDSignal: types.Defined(-0.0003),
		ATR:        types.Defined(0.0015),
		EMA20:      types.Defined(1.1010),
		EMA50:      types.Defined(1.1000),
		BBMid:      types.Defined(1.0995),
	}
	f := &scoring.Facts{
		Instrument: spec,
		Direction:  types.Buy,
		Entry:      hammer.Close,
		Snapshot:   snap,
		Pattern:    analysis.Classify(hammer),
		Trend:      analysis.ClassifyTrend(snap, hammer.Close),
		Levels: types.Levels{
			Support:    types.PriceLevel{Price: 1.0990, Touches: 3},
			Resistance: types.PriceLevel{Price: 1.1040, Touches: 2},
		},
		Thresholds: analysis.DeriveThresholds(snap.ATR, spec, cfg.Thresholds),
		Last:       analysis.Measure(hammer),
		Flow:       []types.Candle{hammer},
	}
	if f.Pattern != types.PatternHammer || f.Trend != types.Uptrend {
		t.Fatalf("Expected HAMMER in UPTREND, got %s / %s", f.Pattern, f.Trend)
	}

	out := types.Evaluation{Instrument: "EUR_USD", Direction: types.Buy, Entry: f.Entry}
	ev.decide(&out, f)
	if out.Result.Decision != types.Buy {
		t.Fatalf("Expected BUY, got %s (%v)", out.Result.Decision, out.Result.Reasons())
	}
	if out.Result.Score < 5 {
		t.Errorf("Expected score >= 5, got %.2f", out.Result.Score)
	}
	for _, id := range []string{"momentum_oversold_buy", "trend_aligned", "reversal_pattern_aligned"} {
		if !out.Result.Has(id) {
			t.Errorf("Expected %s in reasons, got %v", id, out.Result.Reasons())
		}
	}
	if out.Exit == nil {
		t.Fatal("Expected exit plan")
	}
	if !(out.Exit.TakeProfit > out.Entry && out.Entry > out.Exit.StopLoss) {
		t.Errorf("Expected TP > entry > SL, got %+v", out.Exit)
	}
}

func TestNearResistanceWaits(t *testing.T) {
	cfg := testConfig()
	cfg.RuleWeights = map[string]float64{"rsi50_boundary": 10}
	cs := alternating(60, 1.1000, 1.1002, 0.0008)
	pip := instrument.Derive("EUR_USD").Pip

	plain := newEvaluator(t, cfg).Evaluate(Request{Instrument: "EUR_USD", Direction: "BUY", Candles: cs})
	if plain.Levels.Resistance.Fallback {
		t.Fatalf("Expected clustered resistance, got %+v", plain.Levels.Resistance)
	}
	if plain.Result.Has("near_opposing_level") {
		t.Fatalf("Expected last close clear of resistance, got %v", plain.Result.Reasons())
	}

	// threshold sits between the plain score and the plain score less the penalty
	cfg.DecisionThreshold = plain.Result.Score - 1
	ev := newEvaluator(t, cfg)
	entry := plain.Levels.Resistance.Price - 2*pip

	near := ev.Evaluate(Request{Instrument: "EUR_USD", Direction: "BUY", Price: entry, Candles: cs})
	if near.Box.Aligned(types.Buy) {
		t.Fatalf("Expected no confirmed breakout, got %+v", near.Box)
	}
	if !near.Result.Has("near_opposing_level") {
		t.Fatalf("Expected proximity penalty 2 pips under resistance, got %v", near.Result.Reasons())
	}
	if math.Abs(near.Result.Score-(plain.Result.Score-2)) > 1e-9 {
		t.Errorf("Expected score %.2f, got %.2f", plain.Result.Score-2, near.Result.Score)
	}
	if near.Result.Decision != types.Wait {
		t.Errorf("Expected WAIT near resistance, got %s", near.Result.Decision)
	}
	if near.Exit != nil {
		t.Error("Expected no exit plan for WAIT")
	}
}

func TestUndefinedTrendInputsScoreNothing(t *testing.T) {
	ev := newEvaluator(t, testConfig())
	// 40 candles: MACD signal and ATR defined, EMA50 not
	cs := alternating(40, 1.1000, 1.1002, 0.0008)

	for _, dir := range []string{"BUY", "SELL"} {
		out := ev.Evaluate(Request{Instrument: "EUR_USD", Direction: dir, Candles: cs})
		if out.Snapshot.EMA50.Valid {
			t.Fatal("Expected EMA50 undefined with 40 candles")
		}
		if !out.Snapshot.MACDSignal.Valid {
			t.Fatal("Expected MACD signal defined with 40 candles")
		}
		for _, c := range out.Result.Contributions {
			switch c.Rule {
			case "trend_neutral", "trend_aligned", "range_breakout_neutral", "stoch_fatigue_sell",
				"stoch_overheat_uptrend", "stoch_oversold_downtrend", "macd_strong_trend_cross", "macd_trend_cross",
				"conflict_penalty", "conflict_overridden":
				t.Errorf("%s: Unexpected %s (%.2f) with undefined EMA50", dir, c.Rule, c.Weight)
			}
		}
	}
}
