package instrument

import "testing"

func TestDerivePip(t *testing.T) {
	tests := []struct {
		name   string
		pip    float64
		digits int32
	}{
		{"EUR_USD", 0.0001, 5},
		{"USD_JPY", 0.01, 3},
		{"EUR_JPY", 0.01, 3},
		{"GBP_USD", 0.0001, 5},
	}
	for _, tt := range tests {
		s := Derive(tt.name)
		if s.Pip != tt.pip {
			t.Errorf("%s: expected pip %v, got %v", tt.name, tt.pip, s.Pip)
		}
		if s.Digits != tt.digits {
			t.Errorf("%s: expected digits %d, got %d", tt.name, tt.digits, s.Digits)
		}
	}
}

func TestLookupAppliesOverrides(t *testing.T) {
	table := DefaultTable()

	jpy := table.Lookup("USD_JPY")
	if jpy.Boost("macd_strong_trend_cross") != 1 {
		t.Errorf("Expected USD_JPY MACD boost 1, got %v", jpy.Boost("macd_strong_trend_cross"))
	}
	if jpy.Pip != 0.01 {
		t.Errorf("Expected derived JPY pip to survive override, got %v", jpy.Pip)
	}

	gbp := table.Lookup("GBP_USD")
	if !gbp.PullbackBuy || !gbp.ThinNight {
		t.Error("Expected GBP_USD to carry pullback and thin-night flags")
	}

	unknown := table.Lookup("AUD_CAD")
	if unknown.Boost("anything") != 0 || unknown.ThinNight {
		t.Error("Expected unknown pair to use plain defaults")
	}
}

func TestMergeOverridesEntries(t *testing.T) {
	merged := DefaultTable().Merge(Table{"EUR_USD": {MinNearPips: 6}})
	if merged.Lookup("EUR_USD").MinNearPips != 6 {
		t.Errorf("Expected MinNearPips 6, got %v", merged.Lookup("EUR_USD").MinNearPips)
	}
	if _, ok := merged["USD_JPY"]; !ok {
		t.Error("Expected merge to keep existing entries")
	}
}

func TestBaseQuote(t *testing.T) {
	s := Derive("USD_JPY")
	if s.Base() != "USD" || s.Quote() != "JPY" {
		t.Errorf("Expected USD/JPY, got %s/%s", s.Base(), s.Quote())
	}
}

func TestValidate(t *testing.T) {
	if err := (Table{"EURUSD": {}}).Validate(); err == nil {
		t.Error("Expected error for pair without separator")
	}
	if err := DefaultTable().Validate(); err != nil {
		t.Errorf("Expected default table to validate, got %v", err)
	}
}
