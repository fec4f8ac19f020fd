package brokerobs

import (
	"context"

	"fx-signal-bot/internal/interfaces"
	"fx-signal-bot/internal/logger"
	"fx-signal-bot/internal/trace"
	"fx-signal-bot/internal/types"

	"go.opentelemetry.io/otel/attribute"
)

// observableBroker wraps a Broker with observability (logging & tracing)
type observableBroker struct {
	broker interfaces.Broker
}

// Compile-time interface check
var _ interfaces.Broker = (*observableBroker)(nil)

// Wrap wraps a broker with observability middleware
func Wrap(broker interfaces.Broker) interfaces.Broker {
	return &observableBroker{broker: broker}
}

// RecentCandles fetches candles with observability
func (ob *observableBroker) RecentCandles(ctx context.Context, instrument, granularity string, n int) ([]types.Candle, error) {
	ctx, span := trace.StartSpan(ctx, "broker.RecentCandles")
	defer span.End()
	if trace.Enabled() {
		span.SetAttributes(attribute.String("instrument", instrument), attribute.String("granularity", granularity))
	}

	logger.DebugSkip(ctx, 1, "Fetching recent candles", "instrument", instrument, "granularity", granularity, "count", n)

	candles, err := ob.broker.RecentCandles(ctx, instrument, granularity, n)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch candles", err, "instrument", instrument, "count", n)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Candles fetched successfully", "instrument", instrument, "count", len(candles))
	return candles, nil
}

// PlaceOrder places an order with observability
func (ob *observableBroker) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	ctx, span := trace.StartSpan(ctx, "broker.PlaceOrder")
	defer span.End()

	logger.InfoSkip(ctx, 1, "Placing order",
		"instrument", req.Instrument,
		"units", req.Units,
		"take_profit", req.TakeProfit,
		"stop_loss", req.StopLoss,
	)

	resp, err := ob.broker.PlaceOrder(ctx, req)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to place order", err,
			"instrument", req.Instrument,
			"units", req.Units,
		)
		return resp, err
	}

	logger.Order(ctx, req.Instrument, req.Units, req.TakeProfit, req.StopLoss, resp.OrderID, "status", resp.Status, "fill_price", resp.Price)
	return resp, nil
}
