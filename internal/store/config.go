package store

import (
	"errors"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"fx-signal-bot/internal/signal"

	"gopkg.in/yaml.v3"
)

// ErrConfiguration marks any config failure; it is the same sentinel the
// evaluator returns.
var ErrConfiguration = signal.ErrConfiguration

type Config struct {
	Mode string `yaml:"mode"`

	Server struct {
		Addr               string `yaml:"addr"`
		ReadTimeoutSeconds int    `yaml:"read_timeout_seconds"`
		RequireJWT         bool   `yaml:"require_jwt"`
	} `yaml:"server"`

	Broker struct {
		BaseURL        string `yaml:"base_url"`
		Units          int    `yaml:"units"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
		MaxRetries     int    `yaml:"max_retries"`
	} `yaml:"broker"`

	Candles struct {
		Granularity string `yaml:"granularity"`
		Count       int    `yaml:"count"`
	} `yaml:"candles"`

	AntiWhipsawMinutes int `yaml:"anti_whipsaw_minutes"`

	Session struct {
		Timezone  string  `yaml:"timezone"`
		StartHour int     `yaml:"start_hour"`
		EndHour   int     `yaml:"end_hour"`
		Penalty   float64 `yaml:"liquidity_window_penalty"`
	} `yaml:"session"`

	Engine signal.Config `yaml:"engine"`

	Advisor struct {
		Enabled        bool    `yaml:"enabled"`
		Provider       string  `yaml:"provider"`
		Model          string  `yaml:"model"`
		MaxTokens      int     `yaml:"max_tokens"`
		Temperature    float32 `yaml:"temperature"`
		System         string  `yaml:"system"`
		RatePerMinute  float64 `yaml:"rate_per_minute"`
		Burst          int     `yaml:"burst"`
		TimeoutSeconds int     `yaml:"timeout_seconds"`
	} `yaml:"advisor"`

	News struct {
		Enabled        bool   `yaml:"enabled"`
		URL            string `yaml:"url"`
		CacheMinutes   int    `yaml:"cache_minutes"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"news"`

	Redis struct {
		Enabled bool   `yaml:"enabled"`
		DB      int    `yaml:"db"`
		Prefix  string `yaml:"prefix"`
	} `yaml:"redis"`

	Database struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"database"`

	TradeLog struct {
		Dir string `yaml:"dir"`
	} `yaml:"tradelog"`
}

// AntiWhipsaw returns the opposite-signal window.
func (c *Config) AntiWhipsaw() time.Duration {
	return time.Duration(c.AntiWhipsawMinutes) * time.Minute
}

func (c *Config) Validate() error {
	if c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return fmt.Errorf("%w: invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", ErrConfiguration, c.Mode)
	}
	if c.Candles.Count < c.Engine.Indicators.Largest() {
		return fmt.Errorf("%w: candles.count %d is below the largest indicator window %d",
			ErrConfiguration, c.Candles.Count, c.Engine.Indicators.Largest())
	}
	if c.Broker.Units <= 0 {
		return fmt.Errorf("%w: broker.units must be positive, got %d", ErrConfiguration, c.Broker.Units)
	}
	if c.Session.StartHour < 0 || c.Session.StartHour > 23 || c.Session.EndHour < 0 || c.Session.EndHour > 23 {
		return fmt.Errorf("%w: session hours must be within 0-23", ErrConfiguration)
	}
	if _, err := time.LoadLocation(c.Session.Timezone); err != nil {
		return fmt.Errorf("%w: session.timezone: %v", ErrConfiguration, err)
	}
	switch c.Advisor.Provider {
	case "OPENAI", "CLAUDE", "NOOP":
	default:
		return fmt.Errorf("%w: advisor.provider must be 'OPENAI', 'CLAUDE' or 'NOOP', got '%s'", ErrConfiguration, c.Advisor.Provider)
	}
	if c.Advisor.RatePerMinute < 0 {
		return errors.Join(ErrConfiguration, errors.New("advisor.rate_per_minute cannot be negative"))
	}
	return c.Engine.Validate()
}

// LoadConfig reads a YAML file, fills defaults and validates.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(b)
}

func ParseConfig(b []byte) (*Config, error) {
	c := Config{Engine: signal.DefaultConfig()}
	// Instrument table from YAML layers over the built-in one
	builtin := c.Engine.Instruments
	c.Engine.Instruments = nil

	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	c.Engine.Instruments = builtin.Merge(c.Engine.Instruments)
	applyDefaults(&c)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}

func applyDefaults(c *Config) {
	if c.Mode == "" {
		c.Mode = "DRY_RUN"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeoutSeconds == 0 {
		c.Server.ReadTimeoutSeconds = 10
	}
	if c.Broker.BaseURL == "" {
		c.Broker.BaseURL = "https://api-fxpractice.oanda.com"
	}
	if c.Broker.Units == 0 {
		c.Broker.Units = 50000
	}
	if c.Broker.TimeoutSeconds == 0 {
		c.Broker.TimeoutSeconds = 10
	}
	if c.Candles.Granularity == "" {
		c.Candles.Granularity = "M30"
	}
	if c.Candles.Count == 0 {
		c.Candles.Count = 200
	}
	if c.AntiWhipsawMinutes == 0 {
		c.AntiWhipsawMinutes = 12
	}
	if c.Session.Timezone == "" {
		c.Session.Timezone = "America/New_York"
	}
	if c.Session.StartHour == 0 && c.Session.EndHour == 0 {
		c.Session.StartHour, c.Session.EndHour = 22, 4
	}
	if c.Session.Penalty == 0 {
		c.Session.Penalty = -3
	}
	if c.Advisor.Provider == "" {
		c.Advisor.Provider = "NOOP"
	}
	if c.Advisor.RatePerMinute == 0 {
		c.Advisor.RatePerMinute = 3
	}
	if c.Advisor.Burst == 0 {
		c.Advisor.Burst = 1
	}
	if c.Advisor.TimeoutSeconds == 0 {
		c.Advisor.TimeoutSeconds = 20
	}
	if c.News.URL == "" {
		c.News.URL = "https://www.forexfactory.com/"
	}
	if c.News.CacheMinutes == 0 {
		c.News.CacheMinutes = 15
	}
	if c.News.TimeoutSeconds == 0 {
		c.News.TimeoutSeconds = 5
	}
	if c.Redis.Prefix == "" {
		c.Redis.Prefix = "fxsignal"
	}
	if c.TradeLog.Dir == "" {
		c.TradeLog.Dir = "logs"
	}
}
