package ta

import (
	"math"

	"fx-signal-bot/internal/types"

	talib "github.com/markcheno/go-talib"
)

// Params holds indicator window sizes.
type Params struct {
	RSIPeriod   int     `yaml:"rsi_period"`
	MACDFast    int     `yaml:"macd_fast"`
	MACDSlow    int     `yaml:"macd_slow"`
	MACDSignal  int     `yaml:"macd_signal"`
	StochPeriod int     `yaml:"stoch_period"`
	BBWindow    int     `yaml:"bb_window"`
	BBK         float64 `yaml:"bb_k"`
	ATRPeriod   int     `yaml:"atr_period"`
	EMAFast     int     `yaml:"ema_fast"`
	EMASlow     int     `yaml:"ema_slow"`
}

func DefaultParams() Params {
	return Params{
		RSIPeriod:   14,
		MACDFast:    12,
		MACDSlow:    26,
		MACDSignal:  9,
		StochPeriod: 14,
		BBWindow:    20,
		BBK:         2,
		ATRPeriod:   14,
		EMAFast:     20,
		EMASlow:     50,
	}
}

// Largest returns the longest history any indicator needs.
func (p Params) Largest() int {
	n := p.EMASlow
	for _, v := range []int{p.MACDSlow + p.MACDSignal - 1, p.RSIPeriod + p.StochPeriod, p.BBWindow, p.ATRPeriod + 1} {
		if v > n {
			n = v
		}
	}
	return n
}

const rsiTrailLen = 3

// Compute derives the indicator snapshot for the last candle of cs.
func Compute(cs []types.Candle, p Params) types.IndicatorSnapshot {
	cl := make([]float64, len(cs))
	h := make([]float64, len(cs))
	l := make([]float64, len(cs))
	for i, c := range cs {
		cl[i] = c.Close
		h[i] = c.High
		l[i] = c.Low
	}

	var s types.IndicatorSnapshot
	rsi := RSI(cl, p.RSIPeriod)
	s.RSI = types.Defined(last(rsi))
	for i := len(rsi) - 1; i >= 0 && len(s.RSITrail) < rsiTrailLen; i-- {
		if !math.IsNaN(rsi[i]) {
			s.RSITrail = append([]float64{rsi[i]}, s.RSITrail...)
		}
	}
	s.StochRSI = types.Defined(last(StochRSI(rsi, p.StochPeriod)))

	macd, sig := MACD(cl, p.MACDFast, p.MACDSlow, p.MACDSignal)
	s.MACD = types.Defined(last(macd))
	s.MACDSignal = types.Defined(last(sig))

	up, mid, lo := Bollinger(cl, p.BBWindow, p.BBK)
	s.BBUpper, s.BBMid, s.BBLower = types.Defined(last(up)), types.Defined(last(mid)), types.Defined(last(lo))

	s.ATR = types.Defined(last(ATR(h, l, cl, p.ATRPeriod)))
	s.EMA20 = types.Defined(last(EMA(cl, p.EMAFast)))
	s.EMA50 = types.Defined(last(EMA(cl, p.EMASlow)))
	return s
}

func last(v []float64) float64 {
	if len(v) == 0 {
		return math.NaN()
	}
	return v[len(v)-1]
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// ewm applies recursive exponential smoothing seeded with the first value.
func ewm(vals []float64, period int) []float64 {
	out := make([]float64, len(vals))
	if len(vals) == 0 {
		return out
	}
	alpha := 2.0 / float64(period+1)
	out[0] = vals[0]
	for i := 1; i < len(vals); i++ {
		out[i] = alpha*vals[i] + (1-alpha)*out[i-1]
	}
	return out
}

// EMA returns the exponential moving average, NaN before period values exist.
func EMA(vals []float64, period int) []float64 {
	if period <= 0 {
		return nanSeries(len(vals))
	}
	out := ewm(vals, period)
	for i := 0; i < len(out) && i < period-1; i++ {
		out[i] = math.NaN()
	}
	return out
}

// RSI uses a rolling mean of gains and losses. A flat window reads 50.
func RSI(closes []float64, period int) []float64 {
	out := nanSeries(len(closes))
	if period <= 0 || len(closes) < period+1 {
		return out
	}
	for i := period; i < len(closes); i++ {
		gain, loss := 0.0, 0.0
		for j := i - period + 1; j <= i; j++ {
			d := closes[j] - closes[j-1]
			if d > 0 {
				gain += d
			} else {
				loss -= d
			}
		}
		switch {
		case gain == 0 && loss == 0:
			out[i] = 50
		case loss == 0:
			out[i] = 100
		case gain == 0:
			out[i] = 0
		default:
			rs := (gain / float64(period)) / (loss / float64(period))
			out[i] = 100.0 - (100.0 / (1.0 + rs))
		}
	}
	return out
}

// StochRSI normalises RSI into [0,1] over a rolling window; 0.5 when the window is flat.
func StochRSI(rsi []float64, period int) []float64 {
	out := nanSeries(len(rsi))
	if period <= 0 {
		return out
	}
	for i := period - 1; i < len(rsi); i++ {
		lo, hi := math.Inf(1), math.Inf(-1)
		ok := true
		for j := i - period + 1; j <= i; j++ {
			if math.IsNaN(rsi[j]) {
				ok = false
				break
			}
			lo = math.Min(lo, rsi[j])
			hi = math.Max(hi, rsi[j])
		}
		if !ok {
			continue
		}
		if hi == lo {
			out[i] = 0.5
			continue
		}
		out[i] = clamp((rsi[i]-lo)/(hi-lo), 0, 1)
	}
	return out
}

// MACD returns the MACD line and its signal line.
func MACD(closes []float64, fast, slow, signal int) (macd, sig []float64) {
	macd = nanSeries(len(closes))
	sig = nanSeries(len(closes))
	if fast <= 0 || slow <= 0 || signal <= 0 || len(closes) == 0 {
		return
	}
	ef := ewm(closes, fast)
	es := ewm(closes, slow)
	raw := make([]float64, len(closes))
	for i := range closes {
		raw[i] = ef[i] - es[i]
	}
	rs := ewm(raw, signal)
	for i := slow - 1; i < len(closes); i++ {
		macd[i] = raw[i]
	}
	for i := slow + signal - 2; i < len(closes); i++ {
		sig[i] = rs[i]
	}
	return
}

// Bollinger returns upper, middle and lower bands (SMA ± k population stddev).
// Sample stddev would widen the outer bands only; the mid band is unaffected.
func Bollinger(closes []float64, n int, k float64) (up, mid, low []float64) {
	if n <= 1 || len(closes) < n {
		return nanSeries(len(closes)), nanSeries(len(closes)), nanSeries(len(closes))
	}
	up, mid, low = talib.BBands(closes, n, k, k, talib.SMA)
	for i := 0; i < n-1; i++ {
		up[i], mid[i], low[i] = math.NaN(), math.NaN(), math.NaN()
	}
	return
}

// ATR is the rolling mean of the true range.
func ATR(highs, lows, closes []float64, period int) []float64 {
	out := nanSeries(len(closes))
	if len(highs) != len(lows) || len(lows) != len(closes) {
		return out
	}
	if period <= 0 || len(closes) < period+1 {
		return out
	}
	tr := talib.TRange(highs, lows, closes)
	avg := talib.Sma(tr[1:], period)
	for j := period - 1; j < len(avg); j++ {
		out[j+1] = avg[j]
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
