package engineobs

import (
	"context"
	"time"

	"fx-signal-bot/internal/interfaces"
	"fx-signal-bot/internal/logger"
	"fx-signal-bot/internal/trace"
	"fx-signal-bot/internal/types"

	"go.opentelemetry.io/otel/attribute"
)

type observableEngine struct {
	engine interfaces.Engine
}

var _ interfaces.Engine = (*observableEngine)(nil)

func Wrap(eng interfaces.Engine) interfaces.Engine {
	return &observableEngine{engine: eng}
}

func (oe *observableEngine) Step(ctx context.Context, alert types.Alert) (*types.StepResult, error) {
	ctx, span := trace.StartSpan(ctx, "engine.Step")
	defer span.End()
	if trace.Enabled() {
		span.SetAttributes(attribute.String("pair", alert.Pair), attribute.String("signal", alert.Signal))
	}

	start := time.Now()

	logger.InfoSkip(ctx, 1, "Webhook step started",
		"pair", alert.Pair,
		"signal", alert.Signal,
		"price", alert.Price,
		"alert_name", alert.AlertName,
	)

	result, err := oe.engine.Step(ctx, alert)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Webhook step failed", err,
			"pair", alert.Pair,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	logger.InfoSkip(ctx, 1, "Webhook step completed",
		"pair", result.Instrument,
		"decision", result.Decision,
		"reason", result.Reason,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}
