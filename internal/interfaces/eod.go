package interfaces

import "time"

// EodSummarizer turns a day's trade log into a CSV summary.
type EodSummarizer interface {
	SummarizeDay(t time.Time) (csvPath string, err error)
	SummarizeToday() (csvPath string, err error)
	// ShouldRunNow reports whether the day has closed and its summary is missing.
	ShouldRunNow() (shouldRun bool, csvPath string)
}
