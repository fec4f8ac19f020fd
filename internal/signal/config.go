package signal

import (
	"errors"
	"fmt"

	"fx-signal-bot/internal/analysis"
	"fx-signal-bot/internal/exits"
	"fx-signal-bot/internal/instrument"
	"fx-signal-bot/internal/scoring"
	"fx-signal-bot/internal/ta"
)

// ErrConfiguration is the only error the evaluator surfaces.
var ErrConfiguration = errors.New("configuration error")

// Config parameterises the evaluator. DecisionThreshold has no default and
// must be supplied.
type Config struct {
	RuleSet            string                   `yaml:"rule_set"`
	DecisionThreshold  float64                  `yaml:"decision_threshold"`
	Window             int                      `yaml:"window"`
	Indicators         ta.Params                `yaml:"indicators"`
	Thresholds         analysis.ThresholdConfig `yaml:"thresholds"`
	SR                 analysis.LevelConfig     `yaml:"sr"`
	BoxWindow          int                      `yaml:"box_window"`
	RangeLookback      int                      `yaml:"range_lookback"`
	Exits              exits.Config             `yaml:"exits"`
	RuleWeights        map[string]float64       `yaml:"rule_weights"`
	SellCap            float64                  `yaml:"sell_cap"`
	MinLiquidityVolume float64                  `yaml:"min_liquidity_volume"`
	LiquidityWindow    int                      `yaml:"liquidity_window"`
	Instruments        instrument.Table         `yaml:"instruments"`
}

// DefaultConfig returns every default except DecisionThreshold.
func DefaultConfig() Config {
	return Config{
		RuleSet:            scoring.DefaultVersion,
		Window:             200,
		Indicators:         ta.DefaultParams(),
		Thresholds:         analysis.DefaultThresholdConfig(),
		SR:                 analysis.DefaultLevelConfig(),
		BoxWindow:          10,
		RangeLookback:      20,
		Exits:              exits.DefaultConfig(),
		SellCap:            scoring.DefaultSellCap,
		MinLiquidityVolume: 100,
		LiquidityWindow:    10,
		Instruments:        instrument.DefaultTable(),
	}
}

func (c Config) Validate() error {
	if c.DecisionThreshold <= 0 {
		return fmt.Errorf("%w: decision_threshold is required and must be positive, got %.2f", ErrConfiguration, c.DecisionThreshold)
	}
	if c.BoxWindow <= 0 || c.RangeLookback <= 0 || c.LiquidityWindow <= 0 {
		return fmt.Errorf("%w: box_window, range_lookback and liquidity_window must be positive", ErrConfiguration)
	}
	if c.Window > 0 && c.Window < c.Indicators.Largest() {
		return fmt.Errorf("%w: window %d shorter than largest indicator window %d", ErrConfiguration, c.Window, c.Indicators.Largest())
	}
	p := c.Indicators
	if p.RSIPeriod <= 0 || p.MACDFast <= 0 || p.MACDSlow <= p.MACDFast || p.MACDSignal <= 0 ||
		p.StochPeriod <= 0 || p.BBWindow <= 1 || p.ATRPeriod <= 0 || p.EMAFast <= 0 || p.EMASlow <= p.EMAFast {
		return fmt.Errorf("%w: invalid indicator windows %+v", ErrConfiguration, p)
	}
	for _, v := range []interface{ Validate() error }{c.Thresholds, c.SR, c.Exits, c.Instruments} {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
	}
	return nil
}
