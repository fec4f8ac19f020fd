package engine

import (
	"context"
	"time"

	"fx-signal-bot/internal/instrument"
	"fx-signal-bot/internal/interfaces"
	"fx-signal-bot/internal/logger"
	"fx-signal-bot/internal/session"
	"fx-signal-bot/internal/types"
)

// riskManager holds the checks around the evaluation: the anti-whipsaw
// window and the external news and session contributions.
type riskManager struct {
	store   interfaces.SignalStore
	window  time.Duration
	news    interfaces.NewsScorer
	session *session.Window
}

// recentOpposite records dir and reports whether the opposite signal was
// seen inside the window. A store failure does not block the signal.
func (rm *riskManager) recentOpposite(ctx context.Context, pair string, dir types.Direction, now time.Time) bool {
	if rm.store == nil {
		return false
	}
	opposite, err := rm.store.CheckAndRecord(ctx, pair, dir, now, rm.window)
	if err != nil {
		logger.ErrorWithErr(ctx, "Anti-whipsaw check failed", err, "instrument", pair)
		return false
	}
	if opposite {
		logger.Risk(ctx, pair, "ANTI_WHIPSAW",
			"signal", dir,
			"window_minutes", rm.window.Minutes(),
		)
	}
	return opposite
}

// externals collects contributions that come from outside the candle window.
func (rm *riskManager) externals(ctx context.Context, spec instrument.Spec, now time.Time) []types.Contribution {
	var out []types.Contribution
	if rm.news != nil {
		c, err := rm.news.Score(ctx, spec.Name)
		if err != nil {
			logger.ErrorWithErr(ctx, "News scoring failed", err, "instrument", spec.Name)
			c = types.Contribution{Rule: "news_risk", Reason: "news check failed"}
		}
		out = append(out, c)
	}
	if rm.session != nil {
		if c, ok := rm.session.Penalty(spec, now); ok {
			logger.Risk(ctx, spec.Name, "THIN_LIQUIDITY_WINDOW", "penalty", c.Weight)
			out = append(out, c)
		}
	}
	return out
}
