// Package eod writes a per-instrument CSV summary of the day's decisions
// from the trade log.
package eod

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"
)

const conflictReason = "conflict_with_recent_opposite_signal"

var headers = []string{"instrument", "alerts", "buy", "sell", "wait", "conflicts", "vetoes", "orders", "avg_score"}

type eodSummarizer struct {
	dir       string
	loc       *time.Location
	closeHour int
	now       func() time.Time
}

// SummarizeDay returns "" with no error when the day has no records.
func (s *eodSummarizer) SummarizeDay(t time.Time) (string, error) {
	inPath := s.tradeFile(t)
	f, err := os.Open(inPath)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer f.Close()

	aggs := map[string]*aggRow{}
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		var l decisionLine
		if err := json.Unmarshal(sc.Bytes(), &l); err != nil || l.Instrument == "" {
			continue
		}
		row := aggs[l.Instrument]
		if row == nil {
			row = &aggRow{Instrument: l.Instrument}
			aggs[l.Instrument] = row
		}
		row.add(l)
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("reading %s: %w", inPath, err)
	}
	if len(aggs) == 0 {
		return "", nil
	}

	keys := make([]string, 0, len(aggs))
	for k := range aggs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	outPath := s.csvPath(t)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}
	out, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	w := csv.NewWriter(out)
	if err := w.Write(headers); err != nil {
		return "", err
	}
	total := aggRow{Instrument: "TOTAL"}
	for _, k := range keys {
		r := aggs[k]
		if err := w.Write(record(r)); err != nil {
			return "", err
		}
		total.Alerts += r.Alerts
		total.Buys += r.Buys
		total.Sells += r.Sells
		total.Waits += r.Waits
		total.Conflicts += r.Conflicts
		total.Vetoes += r.Vetoes
		total.Orders += r.Orders
		total.ScoreSum += r.ScoreSum
		total.Scored += r.Scored
	}
	if err := w.Write(record(&total)); err != nil {
		return "", err
	}
	w.Flush()
	return outPath, w.Error()
}

func record(r *aggRow) []string {
	return []string{
		r.Instrument,
		strconv.Itoa(r.Alerts),
		strconv.Itoa(r.Buys),
		strconv.Itoa(r.Sells),
		strconv.Itoa(r.Waits),
		strconv.Itoa(r.Conflicts),
		strconv.Itoa(r.Vetoes),
		strconv.Itoa(r.Orders),
		fmt.Sprintf("%.2f", r.avgScore()),
	}
}

func (s *eodSummarizer) SummarizeToday() (string, error) { return s.SummarizeDay(s.now()) }

// ShouldRunNow is true after the daily close until today's CSV exists.
func (s *eodSummarizer) ShouldRunNow() (bool, string) {
	now := s.now().In(s.loc)
	outPath := s.csvPath(now)
	if now.After(s.dayClose(now)) {
		if _, err := os.Stat(outPath); errors.Is(err, os.ErrNotExist) {
			return true, outPath
		}
	}
	return false, outPath
}
