package noop

import (
	"context"

	"fx-signal-bot/internal/llm"
	"fx-signal-bot/internal/logger"
	"fx-signal-bot/internal/types"
)

// NoopReviewer is used when no LLM is configured. It confirms everything.
type NoopReviewer struct{}

func NewNoopReviewer() *NoopReviewer {
	return &NoopReviewer{}
}

func (r *NoopReviewer) Review(ctx context.Context, req types.ReviewRequest) (types.Verdict, error) {
	logger.Debug(ctx, "Noop reviewer called - always confirms")
	return types.Verdict{Action: llm.Confirm, Reason: "noop_reviewer"}, nil
}
