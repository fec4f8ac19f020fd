// Package scoring turns analysed market structure into a signed score using a
// versioned table of weighted predicates.
package scoring

import (
	"fx-signal-bot/internal/analysis"
	"fx-signal-bot/internal/instrument"
	"fx-signal-bot/internal/types"
)

// Facts is everything a rule may look at. It is built once per evaluation
// and never mutated by rules.
type Facts struct {
	Instrument instrument.Spec
	Direction  types.Direction
	Entry      float64

	Snapshot   types.IndicatorSnapshot
	Pattern    types.PatternTag
	Trend      types.TrendTag
	Levels     types.Levels
	Box        types.BoxBreakout
	NewExtreme types.Breakout
	Thresholds types.Thresholds

	// Last holds the geometry of the latest candle; Flow the most recent
	// candles oldest first.
	Last analysis.Geometry
	Flow []types.Candle

	AvgVolume          float64
	MinLiquidityVolume float64

	// External contributions such as news or session penalties, added
	// before the SELL cap is applied.
	External []types.Contribution
}

func (f *Facts) buy() bool  { return f.Direction == types.Buy }
func (f *Facts) sell() bool { return f.Direction == types.Sell }

func (f *Facts) rsi() (float64, bool) {
	return f.Snapshot.RSI.Value, f.Snapshot.RSI.Valid
}

func (f *Facts) stoch() (float64, bool) {
	return f.Snapshot.StochRSI.Value, f.Snapshot.StochRSI.Valid
}

func (f *Facts) rsiBelow(v float64) bool {
	r, ok := f.rsi()
	return ok && r < v
}

func (f *Facts) rsiAbove(v float64) bool {
	r, ok := f.rsi()
	return ok && r > v
}

func (f *Facts) rsiWithin(lo, hi float64) bool {
	r, ok := f.rsi()
	return ok && r >= lo && r <= hi
}

func (f *Facts) stochBelow(v float64) bool {
	s, ok := f.stoch()
	return ok && s < v
}

func (f *Facts) stochAbove(v float64) bool {
	s, ok := f.stoch()
	return ok && s > v
}

func (f *Facts) stochWithin(lo, hi float64) bool {
	s, ok := f.stoch()
	return ok && s >= lo && s <= hi
}

func (f *Facts) macdUp() bool {
	h, ok := f.Snapshot.MACDHist()
	return ok && h > 0
}

func (f *Facts) macdDown() bool {
	h, ok := f.Snapshot.MACDHist()
	return ok && h < 0
}

// macdWith reports MACD above signal for BUY and below for SELL.
func (f *Facts) macdWith() bool {
	return (f.buy() && f.macdUp()) || (f.sell() && f.macdDown())
}

// trendIs is false whenever the trend was classified from undefined inputs.
func (f *Facts) trendIs(tag types.TrendTag) bool {
	return f.Trend == tag && analysis.TrendDefined(f.Snapshot)
}

func (f *Facts) trendWith() bool {
	return (f.buy() && f.trendIs(types.Uptrend)) || (f.sell() && f.trendIs(types.Downtrend))
}

func (f *Facts) bullishReversal() bool {
	return f.Pattern == types.PatternHammer || f.Pattern == types.PatternBullishEngulfing
}

func (f *Facts) bearishReversal() bool {
	return f.Pattern == types.PatternShootingStar || f.Pattern == types.PatternBearishEngulfing
}

func (f *Facts) pips(d float64) float64 {
	if f.Thresholds.PipValue <= 0 {
		return 0
	}
	return d / f.Thresholds.PipValue
}

// opposingLevel is the level a trade must get through: resistance for BUY,
// support for SELL.
func (f *Facts) opposingLevel() (types.PriceLevel, float64) {
	if f.buy() {
		return f.Levels.Resistance, f.pips(f.Levels.Resistance.Price - f.Entry)
	}
	return f.Levels.Support, f.pips(f.Entry - f.Levels.Support.Price)
}

func (f *Facts) supportingLevel() (types.PriceLevel, float64) {
	if f.buy() {
		return f.Levels.Support, f.pips(f.Entry - f.Levels.Support.Price)
	}
	return f.Levels.Resistance, f.pips(f.Levels.Resistance.Price - f.Entry)
}

func (f *Facts) flowCount(fn func(types.Candle) bool) int {
	n := 0
	for _, c := range f.Flow {
		if fn(c) {
			n++
		}
	}
	return n
}
