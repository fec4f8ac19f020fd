package scoring

import (
	"errors"
	"fmt"
	"sort"

	"fx-signal-bot/internal/types"
)

var (
	ErrUnknownRuleSet = errors.New("unknown rule set")
	ErrUnknownRule    = errors.New("unknown rule")
)

const (
	DefaultVersion = "v3"
	DefaultSellCap = 5.0

	sellCapRule = "sell_cap"
)

var registry = map[string]func() []Rule{
	"v3": rulesV3,
}

// Versions lists the registered rule table versions.
func Versions() []string {
	out := make([]string, 0, len(registry))
	for v := range registry {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// RuleSet is an immutable, weight-resolved rule table.
type RuleSet struct {
	version string
	rules   []Rule
	sellCap float64
}

// NewRuleSet resolves a registered table and applies weight overrides by
// rule ID. sellCap <= 0 disables the SELL ceiling.
func NewRuleSet(version string, weights map[string]float64, sellCap float64) (*RuleSet, error) {
	if version == "" {
		version = DefaultVersion
	}
	build, ok := registry[version]
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrUnknownRuleSet, version, Versions())
	}
	rules := build()

	index := make(map[string]int, len(rules))
	for i, r := range rules {
		index[r.ID] = i
	}
	for id, w := range weights {
		i, ok := index[id]
		if !ok {
			return nil, fmt.Errorf("%w: %q in rule set %s", ErrUnknownRule, id, version)
		}
		rules[i].Weight = w
	}
	return &RuleSet{version: version, rules: rules, sellCap: sellCap}, nil
}

func (rs *RuleSet) Version() string { return rs.version }

// Has reports whether id names a rule in the table.
func (rs *RuleSet) Has(id string) bool {
	for _, r := range rs.rules {
		if r.ID == id {
			return true
		}
	}
	return false
}

// Score evaluates every rule against f in table order, adds external
// contributions, then applies the SELL cap.
func (rs *RuleSet) Score(f *Facts) types.ScoreResult {
	var res types.ScoreResult
	fired := make(map[string]bool)

	for _, r := range rs.rules {
		if r.Group != "" && fired[r.Group] {
			continue
		}
		if !r.When(f) {
			continue
		}
		if r.Group != "" {
			fired[r.Group] = true
		}

		w := r.Weight
		if r.Scale != nil {
			w *= r.Scale(f)
		}
		w += f.Instrument.Boost(r.ID)

		if w == 0 {
			res.Note(r.ID, r.Reason)
			continue
		}
		res.Add(r.ID, w, r.Reason)
	}

	for _, c := range f.External {
		if c.Weight == 0 {
			res.Note(c.Rule, c.Reason)
			continue
		}
		res.Add(c.Rule, c.Weight, c.Reason)
	}

	if f.Direction == types.Sell && rs.sellCap > 0 && res.Score > rs.sellCap {
		res.Note(sellCapRule, fmt.Sprintf("SELL score %.2f capped at %.2f", res.Score, rs.sellCap))
		res.Score = rs.sellCap
	}
	return res
}
