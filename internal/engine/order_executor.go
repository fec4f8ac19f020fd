package engine

import (
	"context"
	"errors"

	"fx-signal-bot/internal/interfaces"
	"fx-signal-bot/internal/signal"
	"fx-signal-bot/internal/types"
)

// orderExecutor turns an accepted evaluation into a market order with
// take-profit and stop-loss attached.
type orderExecutor struct {
	broker interfaces.Broker
	eval   *signal.Evaluator
	units  int
}

func (oe *orderExecutor) place(ctx context.Context, pair string, dir types.Direction, ev *types.Evaluation) (types.OrderResp, error) {
	if ev.Exit == nil {
		return types.OrderResp{}, errors.New("no exit plan")
	}
	units := oe.units
	if dir == types.Sell {
		units = -units
	}
	return oe.broker.PlaceOrder(ctx, types.OrderReq{
		Instrument: pair,
		Units:      units,
		TakeProfit: ev.Exit.TakeProfit,
		StopLoss:   ev.Exit.StopLoss,
		Digits:     oe.eval.Instrument(pair).Digits,
	})
}
