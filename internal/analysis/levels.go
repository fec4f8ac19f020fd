package analysis

import (
	"fmt"
	"math"
	"sort"

	"fx-signal-bot/internal/types"
)

const minLookback = 32

// LevelConfig controls swing-point clustering.
type LevelConfig struct {
	Lookback        int     `yaml:"lookback"`
	MinTouches      int     `yaml:"min_touches"`
	ClusterPips     float64 `yaml:"cluster_pips"` // 0 uses the dynamic near_pips
	FallbackMinPips float64 `yaml:"fallback_min_pips"`
	FallbackATRMult float64 `yaml:"fallback_atr_mult"`
}

func DefaultLevelConfig() LevelConfig {
	return LevelConfig{
		Lookback:        48,
		MinTouches:      2,
		FallbackMinPips: 6,
		FallbackATRMult: 0.8,
	}
}

func (c LevelConfig) Validate() error {
	if c.MinTouches < 1 {
		return fmt.Errorf("sr.min_touches must be at least 1, got %d", c.MinTouches)
	}
	if c.ClusterPips < 0 || c.FallbackMinPips < 0 || c.FallbackATRMult < 0 {
		return fmt.Errorf("sr: negative distance")
	}
	return nil
}

// Locate finds the nearest clustered support below and resistance above price.
// If either side has no cluster the window is doubled once; a side still
// empty after that falls back to price ∓ max(min pips, mult·ATR).
func Locate(cs []types.Candle, price float64, atr types.Indicator, th types.Thresholds, cfg LevelConfig) types.Levels {
	w := max(cfg.Lookback, minLookback)
	tol := cfg.ClusterPips * th.PipValue
	if cfg.ClusterPips <= 0 {
		tol = th.NearPips * th.PipValue
	}

	lv := locateWindow(cs, price, w, tol, cfg.MinTouches)
	if lv.Support.Touches == 0 || lv.Resistance.Touches == 0 {
		lv = locateWindow(cs, price, 2*w, tol, cfg.MinTouches)
	}

	dist := cfg.FallbackMinPips * th.PipValue
	if atr.Valid {
		dist = max(dist, cfg.FallbackATRMult*atr.Value)
	}
	if lv.Support.Touches == 0 {
		lv.Support = types.PriceLevel{Price: price - dist, Fallback: true}
	}
	if lv.Resistance.Touches == 0 {
		lv.Resistance = types.PriceLevel{Price: price + dist, Fallback: true}
	}
	return lv
}

func locateWindow(cs []types.Candle, price float64, w int, tol float64, minTouches int) types.Levels {
	if w > len(cs) {
		w = len(cs)
	}
	win := cs[len(cs)-w:]
	k := swingOrder(w)

	highs, lows := SwingPoints(win, k)
	lv := types.Levels{
		Window:   w,
		Resists:  Cluster(highs, tol, minTouches),
		Supports: Cluster(lows, tol, minTouches),
	}
	for _, l := range lv.Supports {
		if l.Price < price && (lv.Support.Touches == 0 || l.Price > lv.Support.Price) {
			lv.Support = l
		}
	}
	for _, l := range lv.Resists {
		if l.Price > price && (lv.Resistance.Touches == 0 || l.Price < lv.Resistance.Price) {
			lv.Resistance = l
		}
	}
	return lv
}

func swingOrder(w int) int {
	return max(2, min(3, w/10))
}

// SwingPoints returns prices of swing highs and swing lows with symmetric
// order k. Candles closer than k to either edge are never swing points.
func SwingPoints(cs []types.Candle, k int) (highs, lows []float64) {
	for i := k; i+k < len(cs); i++ {
		hi, lo := math.Inf(-1), math.Inf(1)
		for j := i - k; j <= i+k; j++ {
			hi = max(hi, cs[j].High)
			lo = min(lo, cs[j].Low)
		}
		if cs[i].High == hi {
			highs = append(highs, cs[i].High)
		}
		if cs[i].Low == lo {
			lows = append(lows, cs[i].Low)
		}
	}
	return highs, lows
}

// Cluster merges sorted levels within tol of the running cluster average and
// drops clusters touched fewer than minTouches times.
func Cluster(levels []float64, tol float64, minTouches int) []types.PriceLevel {
	if len(levels) == 0 {
		return nil
	}
	sorted := append([]float64(nil), levels...)
	sort.Float64s(sorted)

	var out []types.PriceLevel
	cur := types.PriceLevel{Price: sorted[0], Touches: 1}
	flush := func() {
		if cur.Touches >= minTouches {
			out = append(out, cur)
		}
	}
	for _, v := range sorted[1:] {
		if math.Abs(v-cur.Price) <= tol {
			cur.Price = (cur.Price*float64(cur.Touches) + v) / float64(cur.Touches+1)
			cur.Touches++
			continue
		}
		flush()
		cur = types.PriceLevel{Price: v, Touches: 1}
	}
	flush()
	return out
}
