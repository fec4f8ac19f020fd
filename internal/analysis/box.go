package analysis

import "fx-signal-bot/internal/types"

// DetectBox inspects the window candles before the latest one. When their
// range fits inside the box threshold the latest close is tested against
// the box edges plus the breakout buffer.
func DetectBox(cs []types.Candle, window int, th types.Thresholds) types.BoxBreakout {
	if window <= 0 || len(cs) < window+1 || th.PipValue <= 0 {
		return types.BoxBreakout{}
	}
	box := cs[len(cs)-1-window : len(cs)-1]
	hi, lo := box[0].High, box[0].Low
	for _, c := range box[1:] {
		hi = max(hi, c.High)
		lo = min(lo, c.Low)
	}
	out := types.BoxBreakout{High: hi, Low: lo}
	if (hi-lo)/th.PipValue > th.BoxThresholdPips {
		return out
	}
	out.InBox = true

	buf := th.BreakoutBufferPips * th.PipValue
	px := cs[len(cs)-1].Close
	switch {
	case px > hi+buf:
		out.Breakout = types.BreakoutUp
	case px < lo-buf:
		out.Breakout = types.BreakoutDown
	}
	return out
}

// NewExtreme reports whether the latest close exceeds the highest high (or
// undercuts the lowest low) of the lookback candles before it.
func NewExtreme(cs []types.Candle, lookback int) types.Breakout {
	if lookback <= 0 || len(cs) < lookback+1 {
		return types.BreakoutNone
	}
	prior := cs[len(cs)-1-lookback : len(cs)-1]
	hi, lo := prior[0].High, prior[0].Low
	for _, c := range prior[1:] {
		hi = max(hi, c.High)
		lo = min(lo, c.Low)
	}
	px := cs[len(cs)-1].Close
	switch {
	case px > hi:
		return types.BreakoutUp
	case px < lo:
		return types.BreakoutDown
	}
	return types.BreakoutNone
}
