package scoring

import "fx-signal-bot/internal/types"

// Conflict reports a trend/pattern clash at an extreme RSI, or a direction
// fighting an established trend at an extreme RSI. Undefined RSI never
// conflicts.
func Conflict(f *Facts) bool {
	rsi, ok := f.rsi()
	if !ok {
		return false
	}
	switch {
	case rsi > 85 && f.bearishReversal() && f.trendIs(types.Uptrend):
		return true
	case rsi < 15 && f.bullishReversal() && f.trendIs(types.Downtrend):
		return true
	case rsi > 85 && f.sell() && f.trendIs(types.Uptrend):
		return true
	case rsi < 15 && f.buy() && f.trendIs(types.Downtrend):
		return true
	}
	return false
}

// Override reports counter-evidence strong enough to cancel a conflict:
// extreme RSI together with extreme Stoch-RSI, or MACD turning against the trend.
func Override(f *Facts) bool {
	switch {
	case f.buy() && f.rsiBelow(25) && f.stochBelow(0.2):
		return true
	case f.sell() && f.rsiAbove(75) && f.stochAbove(0.8):
		return true
	case f.buy() && f.macdUp() && f.trendIs(types.Downtrend):
		return true
	case f.sell() && f.macdDown() && f.trendIs(types.Uptrend):
		return true
	}
	return false
}
