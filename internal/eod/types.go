package eod

// decisionLine is the subset of a trade log record the summary reads.
type decisionLine struct {
	Instrument string   `json:"instrument"`
	Signal     string   `json:"signal"`
	Decision   string   `json:"decision"`
	Reason     string   `json:"reason"`
	Score      *float64 `json:"score"`
	Review     string   `json:"review"`
	OrderID    string   `json:"order_id"`
}

// aggRow holds the day's counters for one instrument.
type aggRow struct {
	Instrument string
	Alerts     int
	Buys       int
	Sells      int
	Waits      int
	Conflicts  int
	Vetoes     int
	Orders     int
	ScoreSum   float64
	Scored     int
}

func (r *aggRow) add(l decisionLine) {
	r.Alerts++
	switch l.Decision {
	case "BUY":
		r.Buys++
	case "SELL":
		r.Sells++
	default:
		r.Waits++
	}
	if l.Reason == conflictReason {
		r.Conflicts++
	}
	if l.Review == "VETO" {
		r.Vetoes++
	}
	if l.OrderID != "" {
		r.Orders++
	}
	if l.Score != nil {
		r.ScoreSum += *l.Score
		r.Scored++
	}
}

func (r *aggRow) avgScore() float64 {
	if r.Scored == 0 {
		return 0
	}
	return r.ScoreSum / float64(r.Scored)
}
