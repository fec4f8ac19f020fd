package scoring

import (
	"math"

	"fx-signal-bot/internal/analysis"
	"fx-signal-bot/internal/types"
)

// Rule is one weighted predicate. Rules sharing a Group are exclusive: only
// the first matching rule of a group contributes. A rule whose effective
// weight is zero is recorded as a note.
type Rule struct {
	ID     string
	Group  string
	Weight float64
	Reason string
	When   func(*Facts) bool
	// Scale, when set, multiplies Weight.
	Scale func(*Facts) float64
}

const flowLen = 3

// rulesV3 is the current production table. Order matters within groups.
func rulesV3() []Rule {
	return []Rule{
		// conflict resolution
		{ID: "conflict_overridden", Group: "conflict", Weight: 0,
			Reason: "trend/pattern conflict overridden by extreme counter-evidence",
			When:   func(f *Facts) bool { return Conflict(f) && Override(f) }},
		{ID: "conflict_penalty", Group: "conflict", Weight: -3,
			Reason: "trend/pattern conflict at extreme RSI",
			When:   Conflict},

		// momentum extremes
		{ID: "momentum_oversold_buy", Weight: 2,
			Reason: "RSI oversold with MACD above signal",
			When:   func(f *Facts) bool { return f.buy() && f.rsiBelow(30) && f.macdUp() }},
		{ID: "momentum_overbought_sell", Weight: 2,
			Reason: "RSI overbought with MACD below signal",
			When:   func(f *Facts) bool { return f.sell() && f.rsiAbove(70) && f.macdDown() }},
		{ID: "stoch_extreme_buy", Weight: 1.5,
			Reason: "Stoch RSI below 0.1 with MACD turning up",
			When:   func(f *Facts) bool { return f.buy() && f.stochBelow(0.1) && f.macdUp() }},
		{ID: "stoch_extreme_sell", Weight: 1.5,
			Reason: "Stoch RSI above 0.9 with MACD turning down",
			When:   func(f *Facts) bool { return f.sell() && f.stochAbove(0.9) && f.macdDown() }},
		{ID: "rsi_against_sell", Weight: -2,
			Reason: "selling into oversold RSI",
			When:   func(f *Facts) bool { return f.sell() && f.rsiBelow(30) }},
		{ID: "rsi_against_buy", Weight: -2,
			Reason: "buying into overbought RSI",
			When:   func(f *Facts) bool { return f.buy() && f.rsiAbove(70) }},
		{ID: "stoch_against_sell", Weight: -1.5,
			Reason: "selling with Stoch RSI below 0.1",
			When:   func(f *Facts) bool { return f.sell() && f.stochBelow(0.1) }},
		{ID: "stoch_against_buy", Weight: -1.5,
			Reason: "buying with Stoch RSI above 0.9",
			When:   func(f *Facts) bool { return f.buy() && f.stochAbove(0.9) }},
		{ID: "rsi50_reclaim_buy", Weight: 2,
			Reason: "Stoch RSI washed out while RSI holds above 50 and MACD rises",
			When:   func(f *Facts) bool { return f.buy() && f.stochBelow(0.05) && f.rsiAbove(50) && f.macdUp() }},
		{ID: "rsi50_break_sell", Weight: 2,
			Reason: "Stoch RSI exhausted while RSI holds below 50 and MACD falls",
			When:   func(f *Facts) bool { return f.sell() && f.stochAbove(0.95) && f.rsiBelow(50) && f.macdDown() }},
		{ID: "rsi_neutral_zone_buy", Weight: 1,
			Reason: "RSI in 45-60 rebound zone",
			When:   func(f *Facts) bool { return f.buy() && f.rsiWithin(45, 60) }},
		{ID: "rsi50_boundary", Weight: 0.5,
			Reason: "RSI near 50 boundary",
			When:   func(f *Facts) bool { return f.rsiAbove(48) && f.rsiBelow(52) }},

		// trend
		{ID: "trend_aligned", Weight: 1,
			Reason: "direction matches trend",
			When:   func(f *Facts) bool { return f.trendWith() }},
		{ID: "trend_neutral", Weight: -0.5,
			Reason: "no established trend",
			When:   func(f *Facts) bool { return f.trendIs(types.TrendNeutral) }},

		// breakouts
		{ID: "box_breakout_aligned", Group: "breakout", Weight: 3,
			Reason: "box breakout confirms direction",
			When:   func(f *Facts) bool { return f.Box.Aligned(f.Direction) }},
		{ID: "range_breakout_neutral", Group: "breakout", Weight: 1.5,
			Reason: "new range extreme in direction while trend is neutral",
			When: func(f *Facts) bool {
				return f.trendIs(types.TrendNeutral) &&
					((f.buy() && f.NewExtreme == types.BreakoutUp) || (f.sell() && f.NewExtreme == types.BreakoutDown))
			}},
		{ID: "box_holding", Group: "breakout", Weight: 0,
			Reason: "price holding inside box",
			When:   func(f *Facts) bool { return f.Box.InBox && f.Box.Breakout == types.BreakoutNone }},

		// structure
		{ID: "near_opposing_level", Weight: -2,
			Reason: "entry within near distance of opposing level",
			When: func(f *Facts) bool {
				lvl, d := f.opposingLevel()
				return !lvl.Fallback && d >= 0 && d <= f.Thresholds.NearPips && !f.Box.Aligned(f.Direction)
			}},
		{ID: "near_supporting_level", Weight: 1,
			Reason: "entry close to supporting level",
			When: func(f *Facts) bool {
				lvl, d := f.supportingLevel()
				return !lvl.Fallback && d >= 0 && d <= f.Thresholds.NearPips
			}},

		// MACD cross strength
		{ID: "macd_strong_trend_cross", Group: "macd", Weight: 3,
			Reason: "strong MACD cross with trend",
			When:   func(f *Facts) bool { return macdTrendCross(f, f.Thresholds.MACDStrong) }},
		{ID: "macd_trend_cross", Group: "macd", Weight: 3,
			Reason: "MACD cross with trend",
			When:   func(f *Facts) bool { return macdTrendCross(f, f.Thresholds.MACDWeak) },
			Scale: func(f *Facts) float64 {
				h, _ := f.Snapshot.MACDHist()
				if f.Thresholds.MACDStrong <= 0 {
					return 1
				}
				return max(0.5, min(1, math.Abs(h)/f.Thresholds.MACDStrong))
			}},
		{ID: "macd_any_cross", Group: "macd", Weight: 1,
			Reason: "MACD cross without clear trend",
			When: func(f *Facts) bool {
				h, ok := f.Snapshot.MACDHist()
				return ok && math.Abs(h) >= f.Thresholds.MACDWeak
			}},
		{ID: "macd_noise", Group: "macd", Weight: 0,
			Reason: "MACD spread below noise band",
			When: func(f *Facts) bool {
				_, ok := f.Snapshot.MACDHist()
				return ok
			}},

		// Stoch RSI regimes
		{ID: "stoch_overheat_uptrend", Group: "stoch", Weight: 2,
			Reason: "Stoch RSI hot inside uptrend",
			When: func(f *Facts) bool {
				return f.buy() && f.stochAbove(0.8) && f.trendIs(types.Uptrend) && f.rsiBelow(70)
			}},
		{ID: "stoch_oversold_downtrend", Group: "stoch", Weight: 2,
			Reason: "Stoch RSI washed out inside downtrend",
			When: func(f *Facts) bool {
				return f.sell() && f.stochBelow(0.2) && f.trendIs(types.Downtrend) && f.rsiAbove(30)
			}},
		{ID: "stoch_fatigue_sell", Group: "stoch", Weight: 1,
			Reason: "Stoch RSI fatigue with neutral trend",
			When: func(f *Facts) bool {
				return f.sell() && f.stochAbove(0.8) && f.trendIs(types.TrendNeutral) && f.rsiAbove(60)
			}},

		// candle psychology
		{ID: "long_body_aligned", Weight: 1,
			Reason: "long body candle in direction",
			When: func(f *Facts) bool {
				return f.Last.Range > 0 && f.Last.BodyRatio >= 0.7 &&
					((f.buy() && lastBullish(f)) || (f.sell() && lastBearish(f)))
			}},
		{ID: "reversal_pattern_aligned", Weight: 1.5,
			Reason: "reversal pattern supports direction",
			When: func(f *Facts) bool {
				return (f.buy() && f.bullishReversal()) || (f.sell() && f.bearishReversal())
			}},
		{ID: "reversal_pattern_opposed", Weight: -1.5,
			Reason: "reversal pattern against direction",
			When: func(f *Facts) bool {
				return (f.buy() && f.bearishReversal()) || (f.sell() && f.bullishReversal())
			}},
		{ID: "wick_rejection", Weight: 1,
			Reason: "wick rejection in direction",
			When: func(f *Facts) bool {
				if f.Last.Range <= 0 {
					return false
				}
				return (f.buy() && f.Last.LowerWick > 2*f.Last.Body) || (f.sell() && f.Last.UpperWick > 2*f.Last.Body)
			}},

		// consecutive flow
		{ID: "flow_against", Weight: -1,
			Reason: "three candles against direction without trend support",
			When: func(f *Facts) bool {
				return len(f.Flow) >= flowLen && f.flowCount(against(f.Direction)) >= flowLen && !f.trendWith()
			}},
		{ID: "flow_aligned", Weight: 0.5,
			Reason: "three candles in direction",
			When: func(f *Facts) bool {
				return len(f.Flow) >= flowLen && f.flowCount(with(f.Direction)) >= flowLen
			}},

		// liquidity
		{ID: "liquidity_volume", Weight: 1,
			Reason: "recent volume shows healthy liquidity",
			When: func(f *Facts) bool {
				return f.MinLiquidityVolume > 0 && f.AvgVolume > f.MinLiquidityVolume
			}},

		// pullback buys for instruments flagged pullback_buy
		{ID: "pullback_uptrend", Weight: 1,
			Reason: "pullback buy inside uptrend",
			When:   func(f *Facts) bool { return pullback(f) && f.trendIs(types.Uptrend) }},
		{ID: "pullback_rsi_zone", Weight: 1,
			Reason: "pullback RSI in 40-50",
			When:   func(f *Facts) bool { return pullback(f) && f.rsiWithin(40, 50) }},
		{ID: "pullback_stoch_turn", Weight: 1,
			Reason: "pullback Stoch RSI turning from the floor",
			When:   func(f *Facts) bool { return pullback(f) && f.stochWithin(0.1, 0.3) }},
		{ID: "pullback_bull_candle", Weight: 1,
			Reason: "pullback confirmed by bullish candle",
			When: func(f *Facts) bool {
				return pullback(f) && (f.Pattern == types.PatternHammer || f.Pattern == types.PatternLongBodyBull)
			}},
		{ID: "pullback_macd_positive", Weight: 1,
			Reason: "pullback with MACD above zero",
			When: func(f *Facts) bool {
				return pullback(f) && f.Snapshot.MACD.Valid && f.Snapshot.MACD.Value > 0
			}},
	}
}

func macdTrendCross(f *Facts, band float64) bool {
	h, ok := f.Snapshot.MACDHist()
	if !ok || band <= 0 {
		return false
	}
	return (h >= band && f.trendIs(types.Uptrend)) || (-h >= band && f.trendIs(types.Downtrend))
}

func pullback(f *Facts) bool {
	return f.Instrument.PullbackBuy && f.buy()
}

func lastBullish(f *Facts) bool {
	return len(f.Flow) > 0 && analysis.Bullish(f.Flow[len(f.Flow)-1])
}

func lastBearish(f *Facts) bool {
	return len(f.Flow) > 0 && analysis.Bearish(f.Flow[len(f.Flow)-1])
}

func with(d types.Direction) func(types.Candle) bool {
	if d == types.Buy {
		return analysis.Bullish
	}
	return analysis.Bearish
}

func against(d types.Direction) func(types.Candle) bool {
	return with(d.Opposite())
}
