package eod

import (
	"path/filepath"
	"time"
)

func (s *eodSummarizer) tradeFile(t time.Time) string {
	return filepath.Join(s.dir, t.In(s.loc).Format("2006-01-02")+".jsonl")
}

func (s *eodSummarizer) csvPath(t time.Time) string {
	return filepath.Join(s.dir, "eod", t.In(s.loc).Format("2006-01-02")+".csv")
}

// dayClose is the FX daily close in the summarizer's timezone.
func (s *eodSummarizer) dayClose(t time.Time) time.Time {
	t = t.In(s.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), s.closeHour, 0, 0, 0, s.loc)
}
