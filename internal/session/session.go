// Package session flags the thin-liquidity hours around the daily rollover.
package session

import (
	"fmt"
	"time"

	"fx-signal-bot/internal/instrument"
	"fx-signal-bot/internal/types"
)

const Rule = "session_liquidity"

// Window is an hour range in a fixed location. StartHour > EndHour wraps
// past midnight; EndHour is inclusive (22..4 covers 22:00 to 04:59).
type Window struct {
	loc       *time.Location
	startHour int
	endHour   int
	penalty   float64
}

func NewWindow(timezone string, startHour, endHour int, penalty float64) (*Window, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("loading session timezone %q: %w", timezone, err)
	}
	return &Window{loc: loc, startHour: startHour, endHour: endHour, penalty: penalty}, nil
}

// Contains reports whether t falls inside the window.
func (w *Window) Contains(t time.Time) bool {
	h := t.In(w.loc).Hour()
	if w.startHour <= w.endHour {
		return h >= w.startHour && h <= w.endHour
	}
	return h >= w.startHour || h <= w.endHour
}

// Penalty returns the external contribution for spec at t. ok is false when
// the instrument is unaffected or t is outside the window.
func (w *Window) Penalty(spec instrument.Spec, t time.Time) (types.Contribution, bool) {
	if !spec.ThinNight || !w.Contains(t) {
		return types.Contribution{}, false
	}
	local := t.In(w.loc)
	return types.Contribution{
		Rule:   Rule,
		Weight: w.penalty,
		Reason: fmt.Sprintf("thin liquidity for %s at %s %s", spec.Name, local.Format("15:04"), w.loc),
	}, true
}
