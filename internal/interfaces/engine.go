package interfaces

import (
	"context"

	"fx-signal-bot/internal/types"
)

type Engine interface {
	Step(ctx context.Context, alert types.Alert) (*types.StepResult, error)
}
