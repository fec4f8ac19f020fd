package analysis

import (
	"fmt"

	"fx-signal-bot/internal/instrument"
	"fx-signal-bot/internal/types"
)

// ThresholdConfig scales rule sensitivity with ATR measured in pips.
type ThresholdConfig struct {
	MinATRPips     float64 `yaml:"min_atr_pips"`
	NearMult       float64 `yaml:"near_mult"`
	NearMaxPips    float64 `yaml:"near_max_pips"`
	BoxMult        float64 `yaml:"box_mult"`
	BoxMinPips     float64 `yaml:"box_min_pips"`
	BoxMaxPips     float64 `yaml:"box_max_pips"`
	BufferMult     float64 `yaml:"buffer_mult"`
	BufferMinPips  float64 `yaml:"buffer_min_pips"`
	BufferMaxPips  float64 `yaml:"buffer_max_pips"`
	MACDStrongPips float64 `yaml:"macd_strong_pips"`
	MACDWeakPips   float64 `yaml:"macd_weak_pips"`
}

func DefaultThresholdConfig() ThresholdConfig {
	return ThresholdConfig{
		MinATRPips:     6,
		NearMult:       0.35,
		NearMaxPips:    14,
		BoxMult:        0.8,
		BoxMinPips:     12,
		BoxMaxPips:     30,
		BufferMult:     0.1,
		BufferMinPips:  1,
		BufferMaxPips:  3,
		MACDStrongPips: 20,
		MACDWeakPips:   10,
	}
}

func (c ThresholdConfig) Validate() error {
	if c.BoxMinPips > c.BoxMaxPips || c.BufferMinPips > c.BufferMaxPips {
		return fmt.Errorf("thresholds: min above max")
	}
	if c.MACDWeakPips <= 0 || c.MACDStrongPips < c.MACDWeakPips {
		return fmt.Errorf("thresholds: macd_weak_pips must be positive and not above macd_strong_pips")
	}
	if c.MinATRPips <= 0 {
		return fmt.Errorf("thresholds: min_atr_pips must be positive")
	}
	return nil
}

// DeriveThresholds converts ATR into per-instrument thresholds. An undefined
// ATR is treated as the minimum ATR.
func DeriveThresholds(atr types.Indicator, spec instrument.Spec, cfg ThresholdConfig) types.Thresholds {
	atrPips := cfg.MinATRPips
	if atr.Valid && spec.Pip > 0 {
		atrPips = max(cfg.MinATRPips, atr.Value/spec.Pip)
	}
	return types.Thresholds{
		NearPips:           clamp(cfg.NearMult*atrPips, spec.MinNearPips, cfg.NearMaxPips),
		BoxThresholdPips:   clamp(cfg.BoxMult*atrPips, cfg.BoxMinPips, cfg.BoxMaxPips),
		BreakoutBufferPips: clamp(cfg.BufferMult*atrPips, cfg.BufferMinPips, cfg.BufferMaxPips),
		MACDStrong:         cfg.MACDStrongPips * spec.Pip,
		MACDWeak:           cfg.MACDWeakPips * spec.Pip,
		PipValue:           spec.Pip,
		ATRPips:            atrPips,
	}
}

// clamp applies the lower bound last so a configured minimum always wins.
func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}
