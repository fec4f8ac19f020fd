package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"fx-signal-bot/internal/api"
	"fx-signal-bot/internal/broker/brokerobs"
	"fx-signal-bot/internal/broker/oanda"
	"fx-signal-bot/internal/engine"
	"fx-signal-bot/internal/engine/engineobs"
	"fx-signal-bot/internal/eod"
	"fx-signal-bot/internal/eod/eodobs"
	"fx-signal-bot/internal/interfaces"
	"fx-signal-bot/internal/llm"
	"fx-signal-bot/internal/llm/claude"
	"fx-signal-bot/internal/llm/llmobs"
	"fx-signal-bot/internal/llm/noop"
	"fx-signal-bot/internal/llm/openai"
	"fx-signal-bot/internal/logger"
	"fx-signal-bot/internal/news"
	"fx-signal-bot/internal/persistence"
	"fx-signal-bot/internal/ratelimit"
	"fx-signal-bot/internal/scoring"
	"fx-signal-bot/internal/session"
	"fx-signal-bot/internal/signal"
	"fx-signal-bot/internal/signalstore"
	"fx-signal-bot/internal/store"
	"fx-signal-bot/internal/trace"
	"fx-signal-bot/internal/tradelog"

	"github.com/joho/godotenv"
)

// initializeSystem loads .env and sets up the logger and tracer
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init(version); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

func loadConfig(ctx context.Context) (*store.Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := store.LoadConfig(path)
	if signal.IsConfiguration(err) {
		logger.ErrorWithErr(ctx, "Invalid configuration", err, "path", path, "rule_sets", scoring.Versions())
		return nil, err
	}
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

// initializeBroker builds the OANDA gateway with observability
func initializeBroker(ctx context.Context, cfg *store.Config) interfaces.Broker {
	brk := oanda.New(oanda.Config{
		BaseURL:    cfg.Broker.BaseURL,
		APIKey:     os.Getenv("OANDA_API_KEY"),
		AccountID:  os.Getenv("OANDA_ACCOUNT_ID"),
		Timeout:    time.Duration(cfg.Broker.TimeoutSeconds) * time.Second,
		MaxRetries: cfg.Broker.MaxRetries,
		DryRun:     cfg.Mode == "DRY_RUN",
	})

	if cfg.Mode == "DRY_RUN" {
		logger.Warn(ctx, "Running in DRY_RUN mode - orders will be simulated")
	}
	logger.Info(ctx, "Using OANDA candles", "base_url", cfg.Broker.BaseURL, "granularity", cfg.Candles.Granularity)

	return brokerobs.Wrap(brk)
}

// initializeReviewer picks the LLM reviewer. It is rate limited and wrapped
// with observability. Returns nil when review is disabled.
func initializeReviewer(ctx context.Context, cfg *store.Config) interfaces.Reviewer {
	if !cfg.Advisor.Enabled {
		logger.Info(ctx, "LLM review disabled")
		return nil
	}

	timeout := time.Duration(cfg.Advisor.TimeoutSeconds) * time.Second
	var reviewer interfaces.Reviewer
	switch cfg.Advisor.Provider {
	case "OPENAI":
		reviewer = openai.NewOpenAIReviewer(openai.Config{
			Model:       cfg.Advisor.Model,
			System:      cfg.Advisor.System,
			MaxTokens:   cfg.Advisor.MaxTokens,
			Temperature: cfg.Advisor.Temperature,
			Timeout:     timeout,
		})
	case "CLAUDE":
		reviewer = claude.NewClaudeReviewer(claude.Config{
			Model:       cfg.Advisor.Model,
			System:      cfg.Advisor.System,
			MaxTokens:   cfg.Advisor.MaxTokens,
			Temperature: cfg.Advisor.Temperature,
			Timeout:     timeout,
		})
	default:
		reviewer = noop.NewNoopReviewer()
		logger.Warn(ctx, "No LLM provider configured - using Noop reviewer (always CONFIRM)")
	}

	bucket := ratelimit.PerMinute(cfg.Advisor.RatePerMinute, cfg.Advisor.Burst)
	return llmobs.Wrap(llm.Limited(reviewer, bucket))
}

// initializeSignalStore returns the anti-whipsaw store and a close func.
func initializeSignalStore(ctx context.Context, cfg *store.Config) (interfaces.SignalStore, func()) {
	if !cfg.Redis.Enabled {
		logger.Info(ctx, "Using in-memory signal store")
		return signalstore.NewMemory(), func() {}
	}

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	rs := signalstore.NewRedis(addr, os.Getenv("REDIS_PASSWORD"), cfg.Redis.DB, cfg.Redis.Prefix)
	if err := rs.HealthCheck(ctx); err != nil {
		// Signals still flow; CheckAndRecord fails open until Redis is back
		logger.Warn(ctx, "Redis not reachable at startup", "addr", addr, "error", err)
	} else {
		logger.Info(ctx, "Using Redis signal store", "addr", addr, "db", cfg.Redis.DB)
	}
	return rs, func() {
		if err := rs.Close(); err != nil {
			logger.Warn(ctx, "Failed to close redis", "error", err)
		}
	}
}

func initializeNews(cfg *store.Config) interfaces.NewsScorer {
	if !cfg.News.Enabled {
		return nil
	}
	return news.NewService(&news.ServiceConfig{
		URL:           cfg.News.URL,
		CacheDuration: time.Duration(cfg.News.CacheMinutes) * time.Minute,
		Timeout:       time.Duration(cfg.News.TimeoutSeconds) * time.Second,
		Enabled:       true,
	}, cfg.Engine.Instruments)
}

func initializeSession(cfg *store.Config) (*session.Window, error) {
	return session.NewWindow(cfg.Session.Timezone, cfg.Session.StartHour, cfg.Session.EndHour, cfg.Session.Penalty)
}

// journals holds the step sinks and whatever must be closed on shutdown.
type journals struct {
	sinks []interfaces.Journal
	file  *tradelog.Journal
	db    *persistence.Journal
}

func (j *journals) close() {
	if j.file != nil {
		_ = j.file.Close()
	}
	if j.db != nil {
		j.db.Close()
	}
}

// initializeJournals opens the daily trade log and, when enabled, Postgres.
func initializeJournals(ctx context.Context, cfg *store.Config) (*journals, error) {
	loc, err := time.LoadLocation(cfg.Session.Timezone)
	if err != nil {
		return nil, err
	}
	file, err := tradelog.New(cfg.TradeLog.Dir, loc)
	if err != nil {
		return nil, err
	}
	j := &journals{sinks: []interfaces.Journal{file}, file: file}
	compressOldLogs(ctx, file)

	if !cfg.Database.Enabled {
		return j, nil
	}
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Warn(ctx, "database.enabled is set but DATABASE_URL is empty - journaling to files only")
		return j, nil
	}
	db, err := persistence.Open(ctx, dsn)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to open journal database - journaling to files only", err)
		return j, nil
	}
	j.db = db
	j.sinks = append(j.sinks, db)
	logger.Info(ctx, "Journaling evaluations to Postgres")
	return j, nil
}

// compressOldLogs gzips old trade log files if retention is configured
func compressOldLogs(ctx context.Context, file *tradelog.Journal) {
	v := os.Getenv("TRADER_LOG_RETENTION_DAYS")
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Warn(ctx, "Invalid TRADER_LOG_RETENTION_DAYS", "value", v)
		return
	}
	if err := file.CompressOlder(n); err != nil {
		logger.Warn(ctx, "Failed to compress old logs", "error", err)
	}
}

func initializeEngine(cfg *store.Config, d engine.Deps) interfaces.Engine {
	return engineobs.Wrap(engine.New(cfg, d))
}

func initializeAuth(ctx context.Context, cfg *store.Config) (*api.Auth, error) {
	if !cfg.Server.RequireJWT {
		logger.Warn(ctx, "Webhook authentication disabled")
		return nil, nil
	}
	return api.NewAuth(os.Getenv("WEBHOOK_JWT_SECRET"))
}

func initializeEvaluator(ctx context.Context, cfg *store.Config) (*signal.Evaluator, error) {
	eval, err := signal.New(cfg.Engine)
	if err != nil {
		if signal.IsConfiguration(err) {
			logger.ErrorWithErr(ctx, "Evaluator rejected engine config", err, "rule_sets", scoring.Versions())
		}
		return nil, err
	}
	logger.Info(ctx, "Evaluator ready",
		"rule_set", eval.RuleSetVersion(),
		"rule_sets", scoring.Versions(),
		"threshold", eval.Threshold(),
	)
	return eval, nil
}

// initializeEOD builds the daily decision summarizer with observability
func initializeEOD(cfg *store.Config) (interfaces.EodSummarizer, error) {
	loc, err := time.LoadLocation(cfg.Session.Timezone)
	if err != nil {
		return nil, err
	}
	return eodobs.Wrap(eod.NewSummarizer(cfg.TradeLog.Dir, loc, eod.DefaultCloseHour)), nil
}

// runEOD writes the day's summary once the FX day has closed.
func runEOD(ctx context.Context, summarizer interfaces.EodSummarizer) {
	tick := time.NewTicker(time.Minute)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if ok, _ := summarizer.ShouldRunNow(); ok {
				_, _ = summarizer.SummarizeToday()
			}
		}
	}
}
