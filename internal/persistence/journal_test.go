package persistence

import (
	"encoding/json"
	"testing"

	"fx-signal-bot/internal/types"
)

func TestToRowFull(t *testing.T) {
	res := &types.StepResult{
		Instrument: "GBP_USD",
		Signal:     types.Sell,
		Decision:   types.Sell,
		Price:      1.2650,
		Reason:     "accepted",
		AlertName:  "h1-rsi",
		Evaluation: &types.Evaluation{
			ID:     "e-1",
			Result: types.ScoreResult{Score: 4.5},
			Exit:   &types.ExitPlan{TakeProfit: 1.2610, StopLoss: 1.2675},
		},
		Order: &types.OrderResp{OrderID: "99"},
	}
	r, err := toRow(res)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if r.Signal != "SELL" || r.Decision != "SELL" {
		t.Errorf("Expected SELL/SELL, got %s/%s", r.Signal, r.Decision)
	}
	if r.Score == nil || *r.Score != 4.5 {
		t.Errorf("Expected score 4.5, got %v", r.Score)
	}
	if r.TakeProfit == nil || *r.TakeProfit != 1.2610 || r.StopLoss == nil || *r.StopLoss != 1.2675 {
		t.Errorf("Expected exit prices, got tp=%v sl=%v", r.TakeProfit, r.StopLoss)
	}
	if r.OrderID == nil || *r.OrderID != "99" || r.AlertName == nil || *r.AlertName != "h1-rsi" {
		t.Errorf("Expected order id and alert name, got %v %v", r.OrderID, r.AlertName)
	}

	var ev map[string]any
	if err := json.Unmarshal(r.Evaluation, &ev); err != nil || ev["id"] != "e-1" {
		t.Errorf("Expected evaluation JSON with id, got %s (err=%v)", r.Evaluation, err)
	}
}

func TestToRowWithoutEvaluation(t *testing.T) {
	r, err := toRow(&types.StepResult{Instrument: "EUR_USD", Signal: types.Buy, Decision: types.Wait, Reason: "conflict_with_recent_opposite_signal"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if r.Score != nil || r.Evaluation != nil || r.OrderID != nil || r.AlertName != nil {
		t.Errorf("Expected nullable columns to be nil, got %+v", r)
	}
}
