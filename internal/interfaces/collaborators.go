package interfaces

import (
	"context"
	"time"

	"fx-signal-bot/internal/types"
)

// SignalStore remembers the last signal per instrument. CheckAndRecord
// reports whether the opposite direction was seen within the window and
// records dir as the latest signal either way.
type SignalStore interface {
	CheckAndRecord(ctx context.Context, instrument string, dir types.Direction, at time.Time, within time.Duration) (bool, error)
}

type NewsScorer interface {
	Score(ctx context.Context, instrument string) (types.Contribution, error)
}

type Journal interface {
	Record(ctx context.Context, res *types.StepResult) error
}
