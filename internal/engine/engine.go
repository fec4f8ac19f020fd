package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fx-signal-bot/internal/interfaces"
	"fx-signal-bot/internal/llm"
	"fx-signal-bot/internal/logger"
	"fx-signal-bot/internal/signal"
	"fx-signal-bot/internal/types"

	"github.com/google/uuid"
)

// ErrInvalidAlert is returned for alerts without a pair or a BUY/SELL signal.
var ErrInvalidAlert = errors.New("invalid alert")

const (
	reasonConflict = "conflict_with_recent_opposite_signal"
	reviewRule     = "reviewer"
)

type Engine struct {
	eval        *signal.Evaluator
	brk         interfaces.Broker
	reviewer    interfaces.Reviewer
	journals    []interfaces.Journal
	risk        *riskManager
	orders      *orderExecutor
	granularity string
	count       int
	now         func() time.Time
}

func (e *Engine) Step(ctx context.Context, alert types.Alert) (*types.StepResult, error) {
	pair := strings.ToUpper(strings.TrimSpace(alert.Pair))
	dir, ok := types.ParseDirection(strings.ToUpper(strings.TrimSpace(alert.Signal)))
	if pair == "" || !ok {
		return nil, fmt.Errorf("%w: pair=%q signal=%q", ErrInvalidAlert, alert.Pair, alert.Signal)
	}

	now := e.now()
	res := &types.StepResult{
		Instrument: pair,
		Signal:     dir,
		Decision:   types.Wait,
		Price:      alert.Price,
		Time:       now.Unix(),
		AlertName:  alert.AlertName,
	}
	logger.Debug(ctx, "Starting webhook step", "instrument", pair, "signal", dir, "price", alert.Price)

	if e.risk.recentOpposite(ctx, pair, dir, now) {
		res.Reason = reasonConflict
		e.finish(ctx, res)
		return res, nil
	}

	fetchCtx, stage := logger.StartStage(ctx, "engine.fetch_candles", "instrument", pair, "granularity", e.granularity)
	candles, err := e.brk.RecentCandles(fetchCtx, pair, e.granularity, e.count)
	stage.Finish(err, "count", len(candles))
	if err != nil {
		return nil, fmt.Errorf("fetching candles for %s: %w", pair, err)
	}

	external := e.risk.externals(ctx, e.eval.Instrument(pair), now)

	_, stage = logger.StartStage(ctx, "engine.evaluate", "instrument", pair, "signal", dir)
	ev := e.eval.Evaluate(signal.Request{
		Instrument: pair,
		Direction:  string(dir),
		Price:      alert.Price,
		Candles:    candles,
		External:   external,
	})
	stage.Finish(nil, "score", ev.Result.Score, "decision", ev.Result.Decision, "rule_set", e.eval.RuleSetVersion())
	ev.ID = uuid.NewString()
	if logger.IsDebugEnabled() {
		for _, c := range ev.Result.Contributions {
			logger.Debug(ctx, "Rule contribution", "instrument", pair, "rule", c.Rule, "weight", c.Weight, "reason", c.Reason)
		}
	}
	res.Evaluation = &ev
	res.Decision = ev.Result.Decision
	res.Reason = summarize(ev, e.eval.Threshold())

	if res.Decision != types.Wait {
		e.review(ctx, res)
	}

	if res.Decision != types.Wait {
		resp, err := e.orders.place(ctx, pair, res.Decision, &ev)
		if err != nil {
			res.Reason += " | order_err: " + err.Error()
		} else {
			res.Order = &resp
		}
	}

	e.finish(ctx, res)
	return res, nil
}

// review lets the reviewer veto a trade. Errors and rate limiting leave the
// decision as it is.
func (e *Engine) review(ctx context.Context, res *types.StepResult) {
	if e.reviewer == nil {
		return
	}
	v, err := e.reviewer.Review(ctx, types.ReviewRequest{Evaluation: res.Evaluation, AlertName: res.AlertName})
	switch {
	case errors.Is(err, llm.ErrRateLimited):
		res.Evaluation.Result.Note(reviewRule, "review skipped: rate limited")
		return
	case err != nil:
		logger.ErrorWithErr(ctx, "Review failed, keeping engine decision", err, "instrument", res.Instrument)
		res.Evaluation.Result.Note(reviewRule, "review failed")
		return
	}

	res.Verdict = &v
	if v.Action == llm.Veto {
		res.Evaluation.Result.Note(reviewRule, "vetoed: "+v.Reason)
		res.Evaluation.Result.Decision = types.Wait
		res.Evaluation.Exit = nil
		res.Decision = types.Wait
		res.Reason = "reviewer veto: " + v.Reason
		logger.Risk(ctx, res.Instrument, "REVIEWER_VETO", "reason", v.Reason, "confidence", v.Confidence)
	}
}

func (e *Engine) finish(ctx context.Context, res *types.StepResult) {
	score := 0.0
	fields := []any{"signal", res.Signal, "price", res.Price}
	if ev := res.Evaluation; ev != nil {
		score = ev.Result.Score
		fields = append(fields, "evaluation_id", ev.ID, "pattern", ev.Pattern, "trend", ev.Trend)
		if ev.Exit != nil {
			fields = append(fields, "take_profit", ev.Exit.TakeProfit, "stop_loss", ev.Exit.StopLoss, "rr", ev.Exit.RiskRewardRatio)
		}
	}
	logger.Decision(ctx, res.Instrument, string(res.Decision), score, res.Reason, fields...)

	for _, j := range e.journals {
		if err := j.Record(ctx, res); err != nil {
			logger.ErrorWithErr(ctx, "Failed to journal step", err, "instrument", res.Instrument)
		}
	}
}

// summarize gives the one-line reason carried on a step result.
func summarize(ev types.Evaluation, threshold float64) string {
	if ev.Result.Decision != types.Wait {
		return fmt.Sprintf("score %.2f >= %.2f", ev.Result.Score, threshold)
	}
	// The last note explains why the gate or exit check stopped the signal
	for i := len(ev.Result.Contributions) - 1; i >= 0; i-- {
		c := ev.Result.Contributions[i]
		if c.Rule == "gate" || c.Rule == "exit_rejected" {
			return c.Reason
		}
	}
	return fmt.Sprintf("score %.2f below %.2f", ev.Result.Score, threshold)
}
