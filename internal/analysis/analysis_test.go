package analysis

import (
	"math"
	"testing"

	"fx-signal-bot/internal/instrument"
	"fx-signal-bot/internal/types"
)

func candle(o, h, l, c float64) types.Candle {
	return types.Candle{Open: o, High: h, Low: l, Close: c}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		c    types.Candle
		want types.PatternTag
	}{
		{"hammer long lower wick", candle(1.1000, 1.1003, 1.0980, 1.1002), types.PatternHammer},
		{"shooting star", candle(1.1002, 1.1030, 1.0999, 1.1000), types.PatternShootingStar},
		{"long bull", candle(1.1000, 1.1011, 1.0999, 1.1010), types.PatternLongBodyBull},
		{"long bear", candle(1.1010, 1.1011, 1.0999, 1.1000), types.PatternLongBodyBear},
		{"zero range", candle(1.1, 1.1, 1.1, 1.1), types.PatternNeutral},
		{"doji", candle(1.1000, 1.1005, 1.0995, 1.1000), types.PatternNeutral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.c); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestDetectEngulfing(t *testing.T) {
	prev := candle(1.1010, 1.1012, 1.0998, 1.1000)
	last := candle(1.0998, 1.1016, 1.0990, 1.1014)
	if got := Detect([]types.Candle{prev, last}); got != types.PatternBullishEngulfing {
		t.Errorf("Expected BULLISH_ENGULFING, got %s", got)
	}

	prev = candle(1.1000, 1.1012, 1.0998, 1.1010)
	last = candle(1.1012, 1.1020, 1.0990, 1.0996)
	if got := Detect([]types.Candle{prev, last}); got != types.PatternBearishEngulfing {
		t.Errorf("Expected BEARISH_ENGULFING, got %s", got)
	}
}

func TestDetectHammerBeatsEngulfing(t *testing.T) {
	prev := candle(1.1003, 1.1004, 1.1000, 1.1001)
	last := candle(1.1000, 1.1005, 1.0980, 1.1004)
	if got := Detect([]types.Candle{prev, last}); got != types.PatternHammer {
		t.Errorf("Expected HAMMER, got %s", got)
	}
}

func TestClassifyTrend(t *testing.T) {
	s := types.IndicatorSnapshot{
		EMA20: types.Defined(1.2),
		EMA50: types.Defined(1.1),
		BBMid: types.Defined(1.15),
	}
	if got := ClassifyTrend(s, 1.16); got != types.Uptrend {
		t.Errorf("Expected UPTREND, got %s", got)
	}
	if got := ClassifyTrend(s, 1.14); got != types.TrendNeutral {
		t.Errorf("Expected NEUTRAL below mid, got %s", got)
	}
	s.EMA20, s.EMA50 = s.EMA50, s.EMA20
	if got := ClassifyTrend(s, 1.14); got != types.Downtrend {
		t.Errorf("Expected DOWNTREND, got %s", got)
	}
	if !TrendDefined(s) {
		t.Error("Expected trend inputs to be defined")
	}
	s.BBMid = types.Undefined
	if got := ClassifyTrend(s, 1.14); got != types.TrendNeutral {
		t.Errorf("Expected NEUTRAL with undefined mid, got %s", got)
	}
	if TrendDefined(s) {
		t.Error("Expected undefined mid to leave the trend undefined")
	}
}

func TestDeriveThresholds(t *testing.T) {
	cfg := DefaultThresholdConfig()
	eur := instrument.Derive("EUR_USD")

	th := DeriveThresholds(types.Defined(0.0020), eur, cfg)
	if th.ATRPips < 19.999 || th.ATRPips > 20.001 {
		t.Errorf("Expected ATR 20 pips, got %f", th.ATRPips)
	}
	if th.NearPips < 6.999 || th.NearPips > 7.001 {
		t.Errorf("Expected near 7 pips, got %f", th.NearPips)
	}
	if !near(th.BoxThresholdPips, 16) {
		t.Errorf("Expected box 16 pips, got %f", th.BoxThresholdPips)
	}
	if !near(th.BreakoutBufferPips, 2) {
		t.Errorf("Expected buffer 2 pips, got %f", th.BreakoutBufferPips)
	}
	if th.MACDStrong != 20*0.0001 || th.MACDWeak != 10*0.0001 {
		t.Errorf("Unexpected MACD bands %f/%f", th.MACDStrong, th.MACDWeak)
	}

	low := DeriveThresholds(types.Undefined, eur, cfg)
	if low.ATRPips != 6 {
		t.Errorf("Expected ATR floor 6 pips, got %f", low.ATRPips)
	}
	if low.NearPips != eur.MinNearPips {
		t.Errorf("Expected near clamped to instrument minimum %f, got %f", eur.MinNearPips, low.NearPips)
	}
	if low.BoxThresholdPips != 12 || low.BreakoutBufferPips != 1 {
		t.Errorf("Expected box/buffer floors 12/1, got %f/%f", low.BoxThresholdPips, low.BreakoutBufferPips)
	}

	high := DeriveThresholds(types.Defined(0.0100), eur, cfg)
	if high.NearPips != 14 || high.BoxThresholdPips != 30 || high.BreakoutBufferPips != 3 {
		t.Errorf("Expected ceilings 14/30/3, got %f/%f/%f", high.NearPips, high.BoxThresholdPips, high.BreakoutBufferPips)
	}

	jpy := DeriveThresholds(types.Defined(0.20), instrument.Derive("USD_JPY"), cfg)
	if jpy.PipValue != 0.01 || jpy.ATRPips < 19.999 || jpy.ATRPips > 20.001 {
		t.Errorf("Expected JPY pip 0.01 and 20 ATR pips, got %f/%f", jpy.PipValue, jpy.ATRPips)
	}
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func flatBox(n int, lo, hi float64) []types.Candle {
	cs := make([]types.Candle, n)
	for i := range cs {
		cs[i] = candle(lo+0.0002, hi, lo, hi-0.0002)
	}
	return cs
}

func TestDetectBox(t *testing.T) {
	th := types.Thresholds{BoxThresholdPips: 12, BreakoutBufferPips: 1, PipValue: 0.0001}

	cs := append(flatBox(10, 1.1000, 1.1010), candle(1.1008, 1.1025, 1.1007, 1.1020))
	box := DetectBox(cs, 10, th)
	if !box.InBox || box.Breakout != types.BreakoutUp {
		t.Errorf("Expected in-box breakout UP, got %+v", box)
	}
	if !box.Aligned(types.Buy) || box.Aligned(types.Sell) {
		t.Error("Expected UP breakout aligned with BUY only")
	}

	cs = append(flatBox(10, 1.1000, 1.1010), candle(1.1008, 1.1011, 1.0985, 1.0990))
	if box := DetectBox(cs, 10, th); box.Breakout != types.BreakoutDown {
		t.Errorf("Expected breakout DOWN, got %+v", box)
	}

	// Close inside the buffer is not a breakout
	cs = append(flatBox(10, 1.1000, 1.1010), candle(1.1008, 1.1011, 1.1007, 1.10105))
	if box := DetectBox(cs, 10, th); !box.InBox || box.Breakout != types.BreakoutNone {
		t.Errorf("Expected holding box, got %+v", box)
	}
}

func TestDetectBoxWideRangeNeverInBox(t *testing.T) {
	th := types.Thresholds{BoxThresholdPips: 12, BreakoutBufferPips: 1, PipValue: 0.0001}
	for _, c := range []float64{1.0900, 1.1010, 1.1100} {
		cs := append(flatBox(10, 1.1000, 1.1030), candle(1.1010, c+0.0001, c-0.0001, c))
		if box := DetectBox(cs, 10, th); box.InBox || box.Breakout != types.BreakoutNone {
			t.Errorf("Expected not-a-box for close %f, got %+v", c, box)
		}
	}
}

func TestDetectBoxShortHistory(t *testing.T) {
	th := types.Thresholds{BoxThresholdPips: 12, BreakoutBufferPips: 1, PipValue: 0.0001}
	if box := DetectBox(flatBox(5, 1.1, 1.1005), 10, th); box.InBox {
		t.Error("Expected short window to be not-a-box")
	}
}

func TestNewExtreme(t *testing.T) {
	cs := append(flatBox(20, 1.1000, 1.1010), candle(1.1008, 1.1013, 1.1007, 1.1012))
	if got := NewExtreme(cs, 20); got != types.BreakoutUp {
		t.Errorf("Expected new high, got %q", got)
	}
	if got := NewExtreme(cs[:5], 20); got != types.BreakoutNone {
		t.Errorf("Expected none with short history, got %q", got)
	}
}

// oscillating builds a zig-zag between lo and hi with the given period.
func oscillating(n, period int, lo, hi float64) []types.Candle {
	cs := make([]types.Candle, n)
	half := period / 2
	for i := range cs {
		phase := i % period
		var v float64
		if phase <= half {
			v = lo + (hi-lo)*float64(phase)/float64(half)
		} else {
			v = hi - (hi-lo)*float64(phase-half)/float64(period-half)
		}
		cs[i] = candle(v, v+0.0002, v-0.0002, v)
	}
	return cs
}

func TestLocateClusteredLevels(t *testing.T) {
	cs := oscillating(64, 8, 1.1000, 1.1040)
	th := types.Thresholds{NearPips: 5, PipValue: 0.0001}
	price := 1.1020

	lv := Locate(cs, price, types.Defined(0.0010), th, DefaultLevelConfig())
	if lv.Support.Fallback || lv.Resistance.Fallback {
		t.Fatalf("Expected clustered levels, got %+v / %+v", lv.Support, lv.Resistance)
	}
	if !(lv.Resistance.Price >= price && price >= lv.Support.Price) {
		t.Errorf("Expected support <= price <= resistance, got %f %f %f", lv.Support.Price, price, lv.Resistance.Price)
	}
	if lv.Support.Touches < 2 || lv.Resistance.Touches < 2 {
		t.Errorf("Expected at least 2 touches, got %d/%d", lv.Support.Touches, lv.Resistance.Touches)
	}
	if lv.Resistance.Price < 1.1040 || lv.Resistance.Price > 1.1044 {
		t.Errorf("Expected resistance near 1.1042, got %f", lv.Resistance.Price)
	}
	if lv.Support.Price < 1.0996 || lv.Support.Price > 1.1000 {
		t.Errorf("Expected support near 1.0998, got %f", lv.Support.Price)
	}
}

func TestLocateFallback(t *testing.T) {
	// A steady climb has no repeated swing levels
	cs := make([]types.Candle, 40)
	for i := range cs {
		v := 1.1 + float64(i)*0.0010
		cs[i] = candle(v, v+0.0002, v-0.0002, v+0.0001)
	}
	th := types.Thresholds{NearPips: 4, PipValue: 0.0001}
	price := cs[len(cs)-1].Close

	lv := Locate(cs, price, types.Defined(0.0010), th, DefaultLevelConfig())
	if !lv.Support.Fallback || !lv.Resistance.Fallback {
		t.Fatalf("Expected fallback levels, got %+v", lv)
	}
	if d := price - lv.Support.Price; d < 0.00079 || d > 0.00081 {
		t.Errorf("Expected fallback distance 0.8*ATR, got %f", d)
	}

	lv = Locate(cs, price, types.Undefined, th, DefaultLevelConfig())
	if d := lv.Resistance.Price - price; d < 0.00059 || d > 0.00061 {
		t.Errorf("Expected fallback distance 6 pips, got %f", d)
	}
}

func TestLocateDeterministic(t *testing.T) {
	cs := oscillating(80, 10, 1.2500, 1.2560)
	th := types.Thresholds{NearPips: 5, PipValue: 0.0001}
	a := Locate(cs, 1.2530, types.Defined(0.0012), th, DefaultLevelConfig())
	b := Locate(cs, 1.2530, types.Defined(0.0012), th, DefaultLevelConfig())
	if a.Support != b.Support || a.Resistance != b.Resistance {
		t.Error("Expected identical levels for identical input")
	}
}

func TestLocateStableOnExtraCandle(t *testing.T) {
	th := types.Thresholds{NearPips: 5, PipValue: 0.0001}
	step := th.NearPips * th.PipValue
	price := 1.1020
	mid := candle(price, price+0.0002, price-0.0002, price)

	for _, n := range []int{48, 60, 64, 80} {
		cs := oscillating(n, 8, 1.1000, 1.1040)
		before := Locate(cs, price, types.Defined(0.0010), th, DefaultLevelConfig())
		after := Locate(append(cs, mid), price, types.Defined(0.0010), th, DefaultLevelConfig())

		if before.Support.Fallback || before.Resistance.Fallback || after.Support.Fallback || after.Resistance.Fallback {
			t.Errorf("n=%d: Expected clustered levels, got %+v -> %+v", n, before, after)
			continue
		}
		if d := math.Abs(after.Support.Price - before.Support.Price); d > step {
			t.Errorf("n=%d: Expected support to move at most %.5f, got %.5f -> %.5f", n, step, before.Support.Price, after.Support.Price)
		}
		if d := math.Abs(after.Resistance.Price - before.Resistance.Price); d > step {
			t.Errorf("n=%d: Expected resistance to move at most %.5f, got %.5f -> %.5f", n, step, before.Resistance.Price, after.Resistance.Price)
		}
	}
}

func TestCluster(t *testing.T) {
	got := Cluster([]float64{1.1000, 1.1002, 1.1050, 1.1001, 1.1100}, 0.0005, 2)
	if len(got) != 1 {
		t.Fatalf("Expected 1 cluster, got %d: %+v", len(got), got)
	}
	if got[0].Touches != 3 {
		t.Errorf("Expected 3 touches, got %d", got[0].Touches)
	}
	if got[0].Price < 1.10009 || got[0].Price > 1.10011 {
		t.Errorf("Expected cluster average 1.1001, got %f", got[0].Price)
	}
	if Cluster(nil, 0.001, 2) != nil {
		t.Error("Expected nil for no levels")
	}
}
