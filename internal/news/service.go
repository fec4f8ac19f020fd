// Package news turns the economic calendar into a risk contribution for
// the signal score.
package news

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"fx-signal-bot/internal/instrument"
	"fx-signal-bot/internal/logger"
	"fx-signal-bot/internal/types"
)

const Rule = "news_risk"

// Service scores news risk per pair with a short cache.
type Service struct {
	scraper     *Scraper
	cache       *riskCache
	instruments instrument.Table
	cfg         *ServiceConfig
}

type ServiceConfig struct {
	URL           string
	CacheDuration time.Duration
	Timeout       time.Duration
	Enabled       bool
}

func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		URL:           "https://www.forexfactory.com/",
		CacheDuration: 15 * time.Minute,
		Timeout:       5 * time.Second,
		Enabled:       true,
	}
}

type riskCache struct {
	mu   sync.RWMutex
	data map[string]*cacheEntry
	ttl  time.Duration
}

type cacheEntry struct {
	risk      types.Contribution
	timestamp time.Time
}

func newRiskCache(ttl time.Duration) *riskCache {
	return &riskCache{
		data: make(map[string]*cacheEntry),
		ttl:  ttl,
	}
}

func (c *riskCache) get(pair string, now time.Time) (types.Contribution, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.data[pair]
	if !exists || now.Sub(entry.timestamp) > c.ttl {
		return types.Contribution{}, false
	}
	return entry.risk, true
}

// set stores a result and drops expired entries.
func (c *riskCache) set(pair string, risk types.Contribution, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, e := range c.data {
		if now.Sub(e.timestamp) > c.ttl {
			delete(c.data, k)
		}
	}
	c.data[pair] = &cacheEntry{risk: risk, timestamp: now}
}

func NewService(cfg *ServiceConfig, instruments instrument.Table) *Service {
	if cfg == nil {
		cfg = DefaultServiceConfig()
	}
	return &Service{
		scraper:     NewScraper(cfg.URL, cfg.Timeout),
		cache:       newRiskCache(cfg.CacheDuration),
		instruments: instruments,
		cfg:         cfg,
	}
}

// Score returns the news contribution for a pair. Fetch failures degrade
// to a zero-weight note and are not cached.
func (s *Service) Score(ctx context.Context, pair string) (types.Contribution, error) {
	if !s.cfg.Enabled {
		return types.Contribution{Rule: Rule, Reason: "news check disabled"}, nil
	}

	now := time.Now()
	if cached, ok := s.cache.get(pair, now); ok {
		logger.Debug(ctx, "Using cached news risk", "pair", pair, "weight", cached.Weight)
		return cached, nil
	}

	page, err := s.scraper.Fetch(ctx)
	if err != nil {
		logger.ErrorWithErr(ctx, "News check failed", err, "pair", pair)
		return types.Contribution{Rule: Rule, Reason: "news check failed"}, nil
	}

	risk := Assess(s.instruments.Lookup(pair), page)
	s.cache.set(pair, risk, now)
	logger.Info(ctx, "News risk scored", "pair", pair, "weight", risk.Weight, "reason", risk.Reason)
	return risk, nil
}

// Assess applies the impact and speaker rules to a fetched page.
func Assess(spec instrument.Spec, p *Page) types.Contribution {
	var (
		weight float64
		notes  []string
	)

	switch {
	case p.Impacts["high"] > 0 || strings.Contains(p.Text, "High Impact Expected"):
		weight -= 2
		notes = append(notes, "high impact news scheduled")
		if len(p.Events) > 0 {
			notes[0] += fmt.Sprintf(" (%s)", strings.Join(p.Events, ", "))
		}
	case p.Impacts["medium"] > 0 || strings.Contains(p.Text, "Medium Impact Expected"):
		weight--
		notes = append(notes, "medium impact news scheduled")
	case p.Impacts["low"] > 0 || strings.Contains(p.Text, "Low Impact Expected"):
		notes = append(notes, "low impact news only")
	}

	if spec.Base() == "USD" && strings.Contains(p.Text, "Fed Chair") {
		weight--
		notes = append(notes, "Fed Chair speaking")
	}
	if spec.Quote() == "JPY" && strings.Contains(p.Text, "BoJ") {
		weight--
		notes = append(notes, "BoJ news")
	}

	if len(notes) == 0 {
		notes = append(notes, "no significant news")
	}
	return types.Contribution{Rule: Rule, Weight: weight, Reason: strings.Join(notes, " | ")}
}
