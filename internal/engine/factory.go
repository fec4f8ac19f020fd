package engine

import (
	"time"

	"fx-signal-bot/internal/interfaces"
	"fx-signal-bot/internal/session"
	"fx-signal-bot/internal/signal"
	"fx-signal-bot/internal/store"
)

// Deps are the collaborators of a step. Reviewer, News, Session and
// Journals may be nil or empty.
type Deps struct {
	Evaluator *signal.Evaluator
	Broker    interfaces.Broker
	Store     interfaces.SignalStore
	Reviewer  interfaces.Reviewer
	News      interfaces.NewsScorer
	Session   *session.Window
	Journals  []interfaces.Journal
	Now       func() time.Time
}

func New(cfg *store.Config, d Deps) interfaces.Engine {
	return newEngine(cfg, d)
}

func newEngine(cfg *store.Config, d Deps) *Engine {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		eval:     d.Evaluator,
		brk:      d.Broker,
		reviewer: d.Reviewer,
		journals: d.Journals,
		risk: &riskManager{
			store:   d.Store,
			window:  cfg.AntiWhipsaw(),
			news:    d.News,
			session: d.Session,
		},
		orders:      &orderExecutor{broker: d.Broker, eval: d.Evaluator, units: cfg.Broker.Units},
		granularity: cfg.Candles.Granularity,
		count:       cfg.Candles.Count,
		now:         now,
	}
}
