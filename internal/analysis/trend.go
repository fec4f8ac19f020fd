package analysis

import "fx-signal-bot/internal/types"

// TrendDefined reports whether every input of ClassifyTrend is defined.
func TrendDefined(s types.IndicatorSnapshot) bool {
	return s.EMA20.Valid && s.EMA50.Valid && s.BBMid.Valid
}

// ClassifyTrend compares EMA20/EMA50 and the close against the Bollinger mid.
// Any undefined input yields NEUTRAL; callers scoring on the tag must check
// TrendDefined first.
func ClassifyTrend(s types.IndicatorSnapshot, px float64) types.TrendTag {
	if !TrendDefined(s) {
		return types.TrendNeutral
	}
	switch {
	case s.EMA20.Value > s.EMA50.Value && px > s.BBMid.Value:
		return types.Uptrend
	case s.EMA20.Value < s.EMA50.Value && px < s.BBMid.Value:
		return types.Downtrend
	}
	return types.TrendNeutral
}
