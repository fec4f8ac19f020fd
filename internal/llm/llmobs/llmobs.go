package llmobs

import (
	"context"
	"errors"

	"fx-signal-bot/internal/interfaces"
	"fx-signal-bot/internal/llm"
	"fx-signal-bot/internal/logger"
	"fx-signal-bot/internal/trace"
	"fx-signal-bot/internal/types"
)

// observableReviewer wraps a Reviewer with observability (logging & tracing)
type observableReviewer struct {
	reviewer interfaces.Reviewer
}

// Compile-time interface check
var _ interfaces.Reviewer = (*observableReviewer)(nil)

// Wrap wraps a reviewer with observability middleware
func Wrap(reviewer interfaces.Reviewer) interfaces.Reviewer {
	return &observableReviewer{reviewer: reviewer}
}

func (or *observableReviewer) Review(ctx context.Context, req types.ReviewRequest) (types.Verdict, error) {
	ctx, span := trace.StartSpan(ctx, "llm.Review")
	defer span.End()

	var instrument string
	var score float64
	if req.Evaluation != nil {
		instrument = req.Evaluation.Instrument
		score = req.Evaluation.Result.Score
	}

	// Skip(1) reports the actual caller, not this wrapper
	logger.DebugSkip(ctx, 1, "Requesting signal review", "instrument", instrument, "score", score)

	verdict, err := or.reviewer.Review(ctx, req)
	if errors.Is(err, llm.ErrRateLimited) {
		logger.WarnSkip(ctx, 1, "Signal review skipped", "instrument", instrument, "reason", err.Error())
		return verdict, err
	}
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to get signal review", err, "instrument", instrument)
		return types.Verdict{}, err
	}

	logger.InfoSkip(ctx, 1, "Signal review received",
		"instrument", instrument,
		"action", verdict.Action,
		"reason", verdict.Reason,
		"confidence", verdict.Confidence,
	)
	return verdict, nil
}
