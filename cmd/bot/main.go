package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fx-signal-bot/internal/api"
	"fx-signal-bot/internal/engine"
	"fx-signal-bot/internal/logger"
	"fx-signal-bot/internal/trace"
)

var version = "dev"

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	must(initializeSystem())

	// "bot token <source>" prints a webhook bearer token and exits
	if len(os.Args) > 2 && os.Args[1] == "token" {
		must(printToken(os.Args[2]))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx)
	must(err)

	eval, err := initializeEvaluator(ctx, cfg)
	must(err)
	win, err := initializeSession(cfg)
	must(err)
	auth, err := initializeAuth(ctx, cfg)
	must(err)

	sigStore, closeStore := initializeSignalStore(ctx, cfg)
	defer closeStore()

	js, err := initializeJournals(ctx, cfg)
	must(err)
	defer js.close()

	summarizer, err := initializeEOD(cfg)
	must(err)
	go runEOD(ctx, summarizer)

	eng := initializeEngine(cfg, engine.Deps{
		Evaluator: eval,
		Broker:    initializeBroker(ctx, cfg),
		Store:     sigStore,
		Reviewer:  initializeReviewer(ctx, cfg),
		News:      initializeNews(cfg),
		Session:   win,
		Journals:  js.sinks,
	})

	deps := api.Deps{Engine: eng, Evaluator: eval, Auth: auth}
	if js.db != nil {
		deps.History = js.db
	}
	srv := api.NewServer(deps).HTTPServer(cfg.Server.Addr, time.Duration(cfg.Server.ReadTimeoutSeconds)*time.Second)

	errc := make(chan error, 1)
	go func() {
		logger.Info(ctx, "Webhook server listening",
			"addr", cfg.Server.Addr,
			"mode", cfg.Mode,
			"rule_set", eval.RuleSetVersion(),
			"threshold", eval.Threshold(),
			"version", version,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info(context.Background(), "Shutting down...")
	case err := <-errc:
		logger.ErrorWithErr(context.Background(), "Server failed", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithErr(shutdownCtx, "Graceful shutdown failed", err)
	}
	if err := trace.Shutdown(shutdownCtx); err != nil {
		logger.ErrorWithErr(shutdownCtx, "Tracer shutdown failed", err)
	}
}

func printToken(source string) error {
	auth, err := api.NewAuth(os.Getenv("WEBHOOK_JWT_SECRET"))
	if err != nil {
		return err
	}
	tok, err := auth.GenerateToken(source, 365*24*time.Hour)
	if err != nil {
		return err
	}
	fmt.Println(tok)
	return nil
}
