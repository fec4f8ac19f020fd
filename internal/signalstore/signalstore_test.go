package signalstore

import (
	"context"
	"testing"
	"time"

	"fx-signal-bot/internal/types"
)

func TestMemoryOppositeWithinWindow(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	if opp, _ := m.CheckAndRecord(ctx, "EUR_USD", types.Buy, t0, 12*time.Minute); opp {
		t.Error("Expected no conflict on first signal")
	}
	if opp, _ := m.CheckAndRecord(ctx, "EUR_USD", types.Sell, t0.Add(5*time.Minute), 12*time.Minute); !opp {
		t.Error("Expected conflict for SELL 5 minutes after BUY")
	}
	// SELL was recorded, so a BUY now conflicts with it
	if opp, _ := m.CheckAndRecord(ctx, "EUR_USD", types.Buy, t0.Add(6*time.Minute), 12*time.Minute); !opp {
		t.Error("Expected conflict for BUY 1 minute after SELL")
	}
}

func TestMemoryOutsideWindow(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	m.CheckAndRecord(ctx, "GBP_USD", types.Buy, t0, 12*time.Minute)
	if opp, _ := m.CheckAndRecord(ctx, "GBP_USD", types.Sell, t0.Add(13*time.Minute), 12*time.Minute); opp {
		t.Error("Expected no conflict after the window expired")
	}
}

func TestMemorySameDirectionAndIsolation(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	t0 := time.Now()

	m.CheckAndRecord(ctx, "USD_JPY", types.Buy, t0, time.Hour)
	if opp, _ := m.CheckAndRecord(ctx, "USD_JPY", types.Buy, t0.Add(time.Minute), time.Hour); opp {
		t.Error("Expected no conflict for repeated direction")
	}
	if opp, _ := m.CheckAndRecord(ctx, "EUR_USD", types.Sell, t0.Add(time.Minute), time.Hour); opp {
		t.Error("Expected instruments to be tracked independently")
	}
}

func TestEncodeDecode(t *testing.T) {
	at := time.Unix(0, 1709287200123456789)
	d, got, ok := decode(encode(types.Sell, at))
	if !ok || d != types.Sell || !got.Equal(at) {
		t.Errorf("Expected SELL at %v, got %s at %v (ok=%v)", at, d, got, ok)
	}
	if _, _, ok := decode("garbage"); ok {
		t.Error("Expected decode failure for malformed value")
	}
}

func TestRedisKey(t *testing.T) {
	r := NewRedis("localhost:0", "", 0, "fxsignal")
	defer r.Close()
	if got := r.key("EUR_USD"); got != "fxsignal:last_signal:EUR_USD" {
		t.Errorf("Expected prefixed key, got %s", got)
	}
}
