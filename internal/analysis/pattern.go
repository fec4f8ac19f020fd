// Package analysis classifies price structure from a candle window: candle
// patterns, trend, volatility-scaled thresholds, box ranges and clustered
// support/resistance levels. Everything here is pure.
package analysis

import "fx-signal-bot/internal/types"

const longBodyRatio = 0.7

// Geometry is the body/wick breakdown of one candle.
type Geometry struct {
	Body      float64
	UpperWick float64
	LowerWick float64
	Range     float64
	BodyRatio float64
}

func Measure(c types.Candle) Geometry {
	hi := max(c.Close, c.Open)
	lo := min(c.Close, c.Open)
	g := Geometry{
		Body:      hi - lo,
		UpperWick: c.High - hi,
		LowerWick: lo - c.Low,
		Range:     c.High - c.Low,
	}
	if g.Range > 0 {
		g.BodyRatio = g.Body / g.Range
	}
	return g
}

func Bullish(c types.Candle) bool { return c.Close > c.Open }
func Bearish(c types.Candle) bool { return c.Close < c.Open }

// Classify tags a single candle, first match wins.
func Classify(c types.Candle) types.PatternTag {
	g := Measure(c)
	if g.Range <= 0 {
		return types.PatternNeutral
	}
	switch {
	case g.LowerWick > 2*g.Body && g.UpperWick < g.Body:
		return types.PatternHammer
	case g.UpperWick > 2*g.Body && g.LowerWick < g.Body:
		return types.PatternShootingStar
	case g.BodyRatio >= longBodyRatio && Bullish(c):
		return types.PatternLongBodyBull
	case g.BodyRatio >= longBodyRatio && Bearish(c):
		return types.PatternLongBodyBear
	}
	return types.PatternNeutral
}

// Detect tags the latest candle, using the prior one for engulfing shapes.
// Hammer and shooting star take precedence over engulfing.
func Detect(cs []types.Candle) types.PatternTag {
	if len(cs) == 0 {
		return types.PatternNeutral
	}
	last := cs[len(cs)-1]
	tag := Classify(last)
	if tag == types.PatternHammer || tag == types.PatternShootingStar || len(cs) < 2 {
		return tag
	}
	prev := cs[len(cs)-2]
	switch {
	case Bearish(prev) && Bullish(last) && last.Open < prev.Close && last.Close > prev.Open:
		return types.PatternBullishEngulfing
	case Bullish(prev) && Bearish(last) && last.Open > prev.Close && last.Close < prev.Open:
		return types.PatternBearishEngulfing
	}
	return tag
}
