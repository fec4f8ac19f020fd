package eod

import (
	"time"

	"fx-signal-bot/internal/interfaces"
)

// DefaultCloseHour is 17:00 New York, the FX daily roll.
const DefaultCloseHour = 17

// NewSummarizer reads trade logs from dir. Days and the close hour follow loc.
func NewSummarizer(dir string, loc *time.Location, closeHour int) interfaces.EodSummarizer {
	return newSummarizer(dir, loc, closeHour, time.Now)
}

func newSummarizer(dir string, loc *time.Location, closeHour int, now func() time.Time) *eodSummarizer {
	if loc == nil {
		loc = time.UTC
	}
	return &eodSummarizer{dir: dir, loc: loc, closeHour: closeHour, now: now}
}
