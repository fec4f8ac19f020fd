// Package exits turns an accepted signal into take-profit and stop-loss
// prices anchored on market structure.
package exits

import (
	"errors"
	"fmt"
	"math"

	"fx-signal-bot/internal/instrument"
	"fx-signal-bot/internal/types"

	"github.com/shopspring/decimal"
)

var ErrRejected = errors.New("exit plan rejected")

// eps absorbs float noise when comparing price distances.
const eps = 1e-9

type Config struct {
	TargetMultiple float64 `yaml:"target_multiple"`
	MinPips        float64 `yaml:"min_pips"`
	MinRR          float64 `yaml:"min_rr"`
	MaxATRMult     float64 `yaml:"max_atr_mult"`
}

func DefaultConfig() Config {
	return Config{
		TargetMultiple: 1.8,
		MinPips:        8,
		MinRR:          1.4,
		MaxATRMult:     1.5,
	}
}

func (c Config) Validate() error {
	if c.TargetMultiple <= 0 {
		return fmt.Errorf("exits.target_multiple must be positive, got %.2f", c.TargetMultiple)
	}
	if c.MinPips < 0 || c.MinRR < 0 || c.MaxATRMult < 0 {
		return errors.New("exits: negative limit")
	}
	if c.MinRR > c.TargetMultiple {
		return fmt.Errorf("exits.min_rr %.2f exceeds target_multiple %.2f", c.MinRR, c.TargetMultiple)
	}
	return nil
}

// Structure places the stop beyond the supporting level (support for BUY,
// resistance for SELL) plus the breakout buffer and widens it to min pips.
// A stop so wide that the ATR-capped target could not reach MinRR is pulled
// in to maxDist/TargetMultiple. The target is TargetMultiple times the risk,
// capped at the ATR multiple. Prices are rounded to instrument digits away
// from entry and validated; any residual violation returns an error wrapping
// ErrRejected.
func Structure(dir types.Direction, entry float64, lv types.Levels, atr types.Indicator, th types.Thresholds, spec instrument.Spec, cfg Config) (types.ExitPlan, error) {
	if dir != types.Buy && dir != types.Sell {
		return types.ExitPlan{}, fmt.Errorf("%w: no direction", ErrRejected)
	}
	pip := spec.Pip
	buffer := th.BreakoutBufferPips * pip
	minDist := cfg.MinPips * pip
	maxDist := math.Inf(1)
	if atr.Valid && cfg.MaxATRMult > 0 {
		maxDist = cfg.MaxATRMult * atr.Value
	}

	var risk float64
	if dir == types.Buy {
		risk = entry - (lv.Support.Price - buffer)
	} else {
		risk = (lv.Resistance.Price + buffer) - entry
	}
	risk = max(risk, minDist)
	if risk > maxRisk(maxDist, cfg) {
		// tighten so the capped target still pays TargetMultiple
		risk = maxDist / cfg.TargetMultiple
	}
	reward := min(risk*cfg.TargetMultiple, maxDist)

	var plan types.ExitPlan
	if dir == types.Buy {
		plan.StopLoss = roundAway(entry, entry-risk, spec.Digits)
		plan.TakeProfit = roundAway(entry, entry+reward, spec.Digits)
	} else {
		plan.StopLoss = roundAway(entry, entry+risk, spec.Digits)
		plan.TakeProfit = roundAway(entry, entry-reward, spec.Digits)
	}

	riskDist := math.Abs(entry - plan.StopLoss)
	rewardDist := math.Abs(plan.TakeProfit - entry)
	if riskDist > 0 {
		plan.RiskRewardRatio = roundHalf(rewardDist/riskDist, 2)
	}

	if err := Validate(dir, entry, plan, maxDist, spec, cfg); err != nil {
		return types.ExitPlan{}, err
	}
	return plan, nil
}

// maxRisk is the widest stop whose ATR-capped target still meets MinRR.
func maxRisk(maxDist float64, cfg Config) float64 {
	if cfg.MinRR <= 0 {
		return maxDist
	}
	return maxDist / cfg.MinRR
}

// Validate checks sides, minimum distances, reward/risk and the ATR cap.
func Validate(dir types.Direction, entry float64, plan types.ExitPlan, maxDist float64, spec instrument.Spec, cfg Config) error {
	switch {
	case dir == types.Buy && !(plan.TakeProfit > entry && entry > plan.StopLoss):
		return fmt.Errorf("%w: BUY needs TP > entry > SL (tp=%g sl=%g entry=%g)", ErrRejected, plan.TakeProfit, plan.StopLoss, entry)
	case dir == types.Sell && !(plan.TakeProfit < entry && entry < plan.StopLoss):
		return fmt.Errorf("%w: SELL needs TP < entry < SL (tp=%g sl=%g entry=%g)", ErrRejected, plan.TakeProfit, plan.StopLoss, entry)
	}

	riskDist := math.Abs(entry - plan.StopLoss)
	rewardDist := math.Abs(plan.TakeProfit - entry)
	minDist := cfg.MinPips * spec.Pip
	if riskDist < minDist-eps || rewardDist < minDist-eps {
		return fmt.Errorf("%w: leg shorter than %.1f pips (risk %.1f, reward %.1f)", ErrRejected,
			cfg.MinPips, riskDist/spec.Pip, rewardDist/spec.Pip)
	}
	if rewardDist/riskDist < cfg.MinRR-eps {
		return fmt.Errorf("%w: reward/risk %.2f below %.2f", ErrRejected, rewardDist/riskDist, cfg.MinRR)
	}
	// one price unit of slack for rounding away from entry
	slack := math.Pow10(-int(spec.Digits))
	if riskDist > maxDist+slack || rewardDist > maxDist+slack {
		return fmt.Errorf("%w: leg beyond %.2fx ATR", ErrRejected, cfg.MaxATRMult)
	}
	return nil
}

// roundAway rounds v to digits, stepping one unit further from entry when
// rounding pulled it closer.
func roundAway(entry, v float64, digits int32) float64 {
	r := decimal.NewFromFloat(v).Round(digits)
	if math.Abs(r.InexactFloat64()-entry) < math.Abs(v-entry)-eps {
		unit := decimal.New(1, -digits)
		if v < entry {
			r = r.Sub(unit)
		} else {
			r = r.Add(unit)
		}
	}
	return r.InexactFloat64()
}

func roundHalf(v float64, digits int32) float64 {
	return decimal.NewFromFloat(v).Round(digits).InexactFloat64()
}
