package interfaces

import (
	"context"

	"fx-signal-bot/internal/types"
)

// Reviewer gives a second opinion on a non-WAIT evaluation. It may only veto.
type Reviewer interface {
	Review(ctx context.Context, req types.ReviewRequest) (types.Verdict, error)
}
