package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const minimalYAML = `
mode: DRY_RUN
engine:
  decision_threshold: 4
`

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := ParseConfig([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Candles.Granularity != "M30" || cfg.Candles.Count != 200 {
		t.Errorf("Expected M30/200 candle defaults, got %s/%d", cfg.Candles.Granularity, cfg.Candles.Count)
	}
	if cfg.AntiWhipsaw() != 12*time.Minute {
		t.Errorf("Expected 12 minute anti-whipsaw window, got %v", cfg.AntiWhipsaw())
	}
	if cfg.Engine.Indicators.RSIPeriod != 14 || cfg.Engine.BoxWindow != 10 {
		t.Errorf("Expected engine defaults to survive, got rsi=%d box=%d", cfg.Engine.Indicators.RSIPeriod, cfg.Engine.BoxWindow)
	}
	if cfg.Session.StartHour != 22 || cfg.Session.EndHour != 4 || cfg.Session.Penalty != -3 {
		t.Errorf("Unexpected session defaults %+v", cfg.Session)
	}
	if cfg.Engine.Instruments.Lookup("USD_JPY").Boost("macd_strong_trend_cross") != 1 {
		t.Error("Expected built-in instrument table")
	}
}

func TestParseConfigRequiresThreshold(t *testing.T) {
	_, err := ParseConfig([]byte("mode: DRY_RUN\n"))
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration, got %v", err)
	}
}

func TestParseConfigInvalidMode(t *testing.T) {
	_, err := ParseConfig([]byte("mode: PAPER\nengine:\n  decision_threshold: 3\n"))
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration for bad mode, got %v", err)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	y := `
mode: LIVE
candles:
  granularity: H1
  count: 300
engine:
  decision_threshold: 3.5
  indicators:
    rsi_period: 10
  rule_weights:
    trend_aligned: 1.5
  instruments:
    EUR_GBP:
      min_near_pips: 5
`
	cfg, err := ParseConfig([]byte(y))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Engine.Indicators.RSIPeriod != 10 || cfg.Engine.Indicators.MACDSlow != 26 {
		t.Errorf("Expected partial indicator override, got %+v", cfg.Engine.Indicators)
	}
	if cfg.Engine.RuleWeights["trend_aligned"] != 1.5 {
		t.Error("Expected rule weight override")
	}
	if cfg.Engine.Instruments.Lookup("EUR_GBP").MinNearPips != 5 {
		t.Error("Expected YAML instrument entry")
	}
	if _, ok := cfg.Engine.Instruments["USD_JPY"]; !ok {
		t.Error("Expected built-in entries to be kept")
	}
}

func TestParseConfigShortCandleCount(t *testing.T) {
	_, err := ParseConfig([]byte("engine:\n  decision_threshold: 4\ncandles:\n  count: 20\n"))
	if !errors.Is(err, ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration for short candle count, got %v", err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(minimalYAML), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestSampleConfig(t *testing.T) {
	if _, err := LoadConfig("../../config.yaml"); err != nil {
		t.Errorf("Expected repository config.yaml to load, got %v", err)
	}
}
