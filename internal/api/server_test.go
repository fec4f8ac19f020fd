package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fx-signal-bot/internal/engine"
	"fx-signal-bot/internal/persistence"
	"fx-signal-bot/internal/signal"
	"fx-signal-bot/internal/types"
)

type fakeEngine struct {
	err    error
	alerts []types.Alert
}

func (e *fakeEngine) Step(ctx context.Context, alert types.Alert) (*types.StepResult, error) {
	e.alerts = append(e.alerts, alert)
	if e.err != nil {
		return nil, e.err
	}
	return &types.StepResult{Instrument: alert.Pair, Signal: types.Buy, Decision: types.Wait, Reason: "score 1.00 below 4.00"}, nil
}

type fakeHistory struct {
	pair  string
	limit int
	err   error
}

func (h *fakeHistory) Recent(ctx context.Context, instrument string, limit int) ([]persistence.Entry, error) {
	h.pair, h.limit = instrument, limit
	if h.err != nil {
		return nil, h.err
	}
	return []persistence.Entry{{Instrument: instrument, Decision: "WAIT", Reason: "conflict_with_recent_opposite_signal"}}, nil
}

func newTestServer(t *testing.T, d Deps) *httptest.Server {
	t.Helper()
	if d.Evaluator == nil {
		cfg := signal.DefaultConfig()
		cfg.DecisionThreshold = 4
		ev, err := signal.New(cfg)
		if err != nil {
			t.Fatalf("Failed to create evaluator: %v", err)
		}
		d.Evaluator = ev
	}
	if d.Engine == nil {
		d.Engine = &fakeEngine{}
	}
	srv := httptest.NewServer(NewServer(d).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, Deps{})
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
}

func TestWebhookRunsStep(t *testing.T) {
	eng := &fakeEngine{}
	srv := newTestServer(t, Deps{Engine: eng})

	resp := post(t, srv.URL+"/webhook", `{"pair":"EUR_USD","signal":"BUY","price":1.1002,"alert_name":"m30"}`, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var res types.StepResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("Failed to decode result: %v", err)
	}
	if res.Decision != types.Wait || res.Instrument != "EUR_USD" {
		t.Errorf("Expected WAIT for EUR_USD, got %+v", res)
	}
	if len(eng.alerts) != 1 || eng.alerts[0].AlertName != "m30" {
		t.Errorf("Expected alert passed through, got %+v", eng.alerts)
	}
}

func TestWebhookErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		body   string
		status int
	}{
		{"malformed body", nil, `{"pair":`, http.StatusBadRequest},
		{"invalid alert", fmt.Errorf("%w: signal=%q", engine.ErrInvalidAlert, "HOLD"), `{"pair":"EUR_USD","signal":"HOLD"}`, http.StatusBadRequest},
		{"upstream failure", errors.New("fetching candles: timeout"), `{"pair":"EUR_USD","signal":"BUY"}`, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, Deps{Engine: &fakeEngine{err: tt.err}})
			resp := post(t, srv.URL+"/webhook", tt.body, "")
			if resp.StatusCode != tt.status {
				t.Errorf("Expected %d, got %d", tt.status, resp.StatusCode)
			}
		})
	}
}

func TestWebhookRequiresToken(t *testing.T) {
	auth, err := NewAuth("test-secret")
	if err != nil {
		t.Fatal(err)
	}
	eng := &fakeEngine{}
	srv := newTestServer(t, Deps{Engine: eng, Auth: auth})
	body := `{"pair":"EUR_USD","signal":"BUY"}`

	if resp := post(t, srv.URL+"/webhook", body, ""); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", resp.StatusCode)
	}

	other, _ := NewAuth("other-secret")
	bad, _ := other.GenerateToken("tradingview", time.Hour)
	if resp := post(t, srv.URL+"/webhook", body, bad); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 with foreign token, got %d", resp.StatusCode)
	}

	expired, _ := auth.GenerateToken("tradingview", -time.Minute)
	if resp := post(t, srv.URL+"/webhook", body, expired); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 with expired token, got %d", resp.StatusCode)
	}

	good, _ := auth.GenerateToken("tradingview", time.Hour)
	if resp := post(t, srv.URL+"/webhook", body, good); resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 with valid token, got %d", resp.StatusCode)
	}
	if len(eng.alerts) != 1 {
		t.Errorf("Expected only the authorised alert to reach the engine, got %d", len(eng.alerts))
	}

	// evaluate and health stay open
	if resp := post(t, srv.URL+"/evaluate", `{"instrument":"EUR_USD","direction":"BUY"}`, ""); resp.StatusCode != http.StatusOK {
		t.Errorf("Expected open /evaluate, got %d", resp.StatusCode)
	}
}

func TestNewAuthRequiresSecret(t *testing.T) {
	if _, err := NewAuth(""); err == nil {
		t.Error("Expected error for empty secret")
	}
}

func TestEvaluate(t *testing.T) {
	srv := newTestServer(t, Deps{})

	var sb strings.Builder
	sb.WriteString(`{"instrument":"eur_usd","direction":"buy","candles":[`)
	for i := 0; i < 12; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		fmt.Fprintf(&sb, `{"ts":%d,"open":1.1,"high":1.1005,"low":1.0995,"close":1.1002,"volume":150}`, i*1800)
	}
	sb.WriteString("]}")

	resp := post(t, srv.URL+"/evaluate", sb.String(), "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var ev types.Evaluation
	if err := json.NewDecoder(resp.Body).Decode(&ev); err != nil {
		t.Fatalf("Failed to decode evaluation: %v", err)
	}
	if ev.Instrument != "EUR_USD" || ev.Direction != types.Buy {
		t.Errorf("Expected normalised EUR_USD BUY, got %s %s", ev.Instrument, ev.Direction)
	}
	if ev.Result.Decision != types.Wait {
		t.Errorf("Expected WAIT with 12 candles, got %s", ev.Result.Decision)
	}
	if ev.Entry != 1.1002 {
		t.Errorf("Expected entry at last close 1.1002, got %f", ev.Entry)
	}
}

func TestEvaluateRequiresInstrument(t *testing.T) {
	srv := newTestServer(t, Deps{})
	if resp := post(t, srv.URL+"/evaluate", `{"direction":"BUY"}`, ""); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", resp.StatusCode)
	}
}

func TestJournal(t *testing.T) {
	srv := newTestServer(t, Deps{})
	resp, err := http.Get(srv.URL + "/journal/EUR_USD")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 without database, got %d", resp.StatusCode)
	}

	h := &fakeHistory{}
	srv = newTestServer(t, Deps{History: h})
	resp, err = http.Get(srv.URL + "/journal/eur_usd?limit=5")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if h.pair != "EUR_USD" || h.limit != 5 {
		t.Errorf("Expected EUR_USD limit 5, got %s %d", h.pair, h.limit)
	}
	var entries []persistence.Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil || len(entries) != 1 {
		t.Errorf("Expected 1 entry, got %d (%v)", len(entries), err)
	}

	bad, err := http.Get(srv.URL + "/journal/EUR_USD?limit=0")
	if err != nil {
		t.Fatal(err)
	}
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad limit, got %d", bad.StatusCode)
	}
}
