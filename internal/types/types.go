package types

import "math"

type Candle struct {
	Ts                          int64
	Open, High, Low, Close, Vol float64
}

type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
	Wait Direction = "WAIT"
)

func ParseDirection(s string) (Direction, bool) {
	switch Direction(s) {
	case Buy, Sell:
		return Direction(s), true
	}
	return "", false
}

func (d Direction) Opposite() Direction {
	switch d {
	case Buy:
		return Sell
	case Sell:
		return Buy
	}
	return Wait
}

// Indicator is a single indicator value. Valid=false marks an indicator that
// could not be computed from the supplied history.
type Indicator struct {
	Value float64 `json:"value"`
	Valid bool    `json:"valid"`
}

func Defined(v float64) Indicator {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Indicator{}
	}
	return Indicator{Value: v, Valid: true}
}

var Undefined = Indicator{}

type IndicatorSnapshot struct {
	RSI        Indicator `json:"rsi"`
	MACD       Indicator `json:"macd"`
	MACDSignal Indicator `json:"macd_signal"`
	StochRSI   Indicator `json:"stoch_rsi"`
	BBUpper    Indicator `json:"bollinger_upper"`
	BBMid      Indicator `json:"bollinger_mid"`
	BBLower    Indicator `json:"bollinger_lower"`
	ATR        Indicator `json:"atr"`
	EMA20      Indicator `json:"ema20"`
	EMA50      Indicator `json:"ema50"`
	// RSITrail holds the last few defined RSI values, oldest first.
	RSITrail []float64 `json:"rsi_trail,omitempty"`
}

// MACDHist returns MACD minus signal when both are defined.
func (s IndicatorSnapshot) MACDHist() (float64, bool) {
	if !s.MACD.Valid || !s.MACDSignal.Valid {
		return 0, false
	}
	return s.MACD.Value - s.MACDSignal.Value, true
}

type PatternTag string

const (
	PatternNeutral          PatternTag = "NEUTRAL"
	PatternHammer           PatternTag = "HAMMER"
	PatternShootingStar     PatternTag = "SHOOTING_STAR"
	PatternLongBodyBull     PatternTag = "LONG_BODY_BULL"
	PatternLongBodyBear     PatternTag = "LONG_BODY_BEAR"
	PatternBullishEngulfing PatternTag = "BULLISH_ENGULFING"
	PatternBearishEngulfing PatternTag = "BEARISH_ENGULFING"
)

type TrendTag string

const (
	Uptrend      TrendTag = "UPTREND"
	Downtrend    TrendTag = "DOWNTREND"
	TrendNeutral TrendTag = "NEUTRAL"
)

type PriceLevel struct {
	Price    float64 `json:"price"`
	Touches  int     `json:"touches"`
	Fallback bool    `json:"fallback"`
}

type Levels struct {
	Support    PriceLevel   `json:"support"`
	Resistance PriceLevel   `json:"resistance"`
	Supports   []PriceLevel `json:"supports,omitempty"`
	Resists    []PriceLevel `json:"resistances,omitempty"`
	Window     int          `json:"window"`
}

type Thresholds struct {
	NearPips           float64 `json:"near_pips"`
	BoxThresholdPips   float64 `json:"box_threshold_pips"`
	BreakoutBufferPips float64 `json:"breakout_buffer_pips"`
	MACDStrong         float64 `json:"macd_strong"`
	MACDWeak           float64 `json:"macd_weak"`
	PipValue           float64 `json:"pip_value"`
	ATRPips            float64 `json:"atr_pips"`
}

type Breakout string

const (
	BreakoutNone Breakout = ""
	BreakoutUp   Breakout = "UP"
	BreakoutDown Breakout = "DOWN"
)

type BoxBreakout struct {
	InBox    bool     `json:"in_box"`
	Breakout Breakout `json:"breakout,omitempty"`
	High     float64  `json:"high"`
	Low      float64  `json:"low"`
}

// Aligned reports whether the breakout confirms the given direction.
func (b BoxBreakout) Aligned(d Direction) bool {
	if !b.InBox {
		return false
	}
	return (b.Breakout == BreakoutUp && d == Buy) || (b.Breakout == BreakoutDown && d == Sell)
}

type Contribution struct {
	Rule   string  `json:"rule"`
	Weight float64 `json:"weight"`
	Reason string  `json:"reason"`
}

type ScoreResult struct {
	Score         float64        `json:"score"`
	Contributions []Contribution `json:"contributions"`
	Decision      Direction      `json:"decision"`
}

func (r *ScoreResult) Add(rule string, weight float64, reason string) {
	r.Score += weight
	r.Contributions = append(r.Contributions, Contribution{Rule: rule, Weight: weight, Reason: reason})
}

func (r *ScoreResult) Note(rule, reason string) {
	r.Contributions = append(r.Contributions, Contribution{Rule: rule, Reason: reason})
}

func (r ScoreResult) Has(rule string) bool {
	for _, c := range r.Contributions {
		if c.Rule == rule {
			return true
		}
	}
	return false
}

func (r ScoreResult) Reasons() []string {
	out := make([]string, 0, len(r.Contributions))
	for _, c := range r.Contributions {
		out = append(out, c.Reason)
	}
	return out
}

type ExitPlan struct {
	TakeProfit      float64 `json:"take_profit"`
	StopLoss        float64 `json:"stop_loss"`
	RiskRewardRatio float64 `json:"risk_reward_ratio"`
}

type Evaluation struct {
	ID         string            `json:"id"`
	Instrument string            `json:"instrument"`
	Direction  Direction         `json:"direction"`
	Entry      float64           `json:"entry"`
	Result     ScoreResult       `json:"result"`
	Exit       *ExitPlan         `json:"exit,omitempty"`
	Snapshot   IndicatorSnapshot `json:"indicators"`
	Pattern    PatternTag        `json:"pattern"`
	Trend      TrendTag          `json:"trend"`
	Levels     Levels            `json:"levels"`
	Box        BoxBreakout       `json:"box"`
	Thresholds Thresholds        `json:"thresholds"`
}

type Alert struct {
	Pair      string  `json:"pair"`
	Signal    string  `json:"signal"`
	Price     float64 `json:"price"`
	AlertName string  `json:"alert_name,omitempty"`
}

type StepResult struct {
	Instrument string      `json:"instrument"`
	Signal     Direction   `json:"signal"`
	Decision   Direction   `json:"decision"`
	Price      float64     `json:"price"`
	Time       int64       `json:"time"`
	Evaluation *Evaluation `json:"evaluation,omitempty"`
	Verdict    *Verdict    `json:"verdict,omitempty"`
	Order      *OrderResp  `json:"order,omitempty"`
	Reason     string      `json:"reason"`
	AlertName  string      `json:"alert_name,omitempty"`
}

type OrderReq struct {
	Instrument string
	Units      int
	TakeProfit float64
	StopLoss   float64
	Digits     int32
}

type OrderResp struct {
	OrderID string  `json:"order_id"`
	Status  string  `json:"status"`
	Price   float64 `json:"price"`
	Message string  `json:"message,omitempty"`
}

type ReviewRequest struct {
	Evaluation *Evaluation `json:"evaluation"`
	AlertName  string      `json:"alert_name,omitempty"`
}

type Verdict struct {
	Action     string  `json:"action"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
}
