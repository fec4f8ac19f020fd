package instrument

import (
	"fmt"
	"strings"
)

// Spec describes per-instrument capabilities consumed by the scoring engine.
type Spec struct {
	Name        string             `yaml:"-" json:"name"`
	Pip         float64            `yaml:"pip" json:"pip"`
	Digits      int32              `yaml:"digits" json:"digits"`
	MinNearPips float64            `yaml:"min_near_pips" json:"min_near_pips"`
	ThinNight   bool               `yaml:"thin_night" json:"thin_night"`
	PullbackBuy bool               `yaml:"pullback_buy" json:"pullback_buy"`
	Boosts      map[string]float64 `yaml:"boosts" json:"boosts,omitempty"`
}

const (
	defaultMinNearPips = 4
	jpyPip             = 0.01
	stdPip             = 0.0001
)

// Boost returns the extra weight configured for a rule, 0 when none.
func (s Spec) Boost(rule string) float64 {
	return s.Boosts[rule]
}

// Base and Quote split a pair like "EUR_USD".
func (s Spec) Base() string {
	b, _, _ := strings.Cut(s.Name, "_")
	return b
}

func (s Spec) Quote() string {
	_, q, _ := strings.Cut(s.Name, "_")
	return q
}

// Derive builds the default Spec from the pair name alone.
func Derive(name string) Spec {
	s := Spec{
		Name:        name,
		Pip:         stdPip,
		Digits:      5,
		MinNearPips: defaultMinNearPips,
	}
	if s.Quote() == "JPY" {
		s.Pip = jpyPip
		s.Digits = 3
	}
	return s
}

// Table is an explicit instrument lookup. Entries override derived defaults
// field by field.
type Table map[string]Spec

// DefaultTable carries the per-pair rule boosts the engine ships with.
func DefaultTable() Table {
	return Table{
		"USD_JPY": {
			Boosts: map[string]float64{
				"macd_strong_trend_cross": 1,
				"stoch_overheat_uptrend":  1,
			},
		},
		"GBP_USD": {ThinNight: true, PullbackBuy: true},
		"EUR_USD": {ThinNight: true},
	}
}

// Merge layers o on top of t and returns a new table.
func (t Table) Merge(o Table) Table {
	out := make(Table, len(t)+len(o))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range o {
		out[k] = v
	}
	return out
}

// Lookup resolves name against the table. Unknown pairs get derived defaults.
func (t Table) Lookup(name string) Spec {
	s := Derive(name)
	o, ok := t[name]
	if !ok {
		return s
	}
	if o.Pip > 0 {
		s.Pip = o.Pip
	}
	if o.Digits > 0 {
		s.Digits = o.Digits
	}
	if o.MinNearPips > 0 {
		s.MinNearPips = o.MinNearPips
	}
	s.ThinNight = o.ThinNight
	s.PullbackBuy = o.PullbackBuy
	s.Boosts = o.Boosts
	return s
}

// Validate checks every entry for usable values.
func (t Table) Validate() error {
	for name, s := range t {
		if !strings.Contains(name, "_") {
			return fmt.Errorf("instrument %q: expected BASE_QUOTE form", name)
		}
		if s.Pip < 0 || s.Digits < 0 || s.MinNearPips < 0 {
			return fmt.Errorf("instrument %q: negative pip, digits or min_near_pips", name)
		}
	}
	return nil
}
