package interfaces

import (
	"context"

	"fx-signal-bot/internal/types"
)

type Broker interface {
	RecentCandles(ctx context.Context, instrument, granularity string, n int) ([]types.Candle, error)
	PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error)
}
