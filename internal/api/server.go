// Package api exposes the webhook endpoint and a dry evaluation endpoint
// over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fx-signal-bot/internal/engine"
	"fx-signal-bot/internal/interfaces"
	"fx-signal-bot/internal/logger"
	"fx-signal-bot/internal/persistence"
	"fx-signal-bot/internal/signal"
	"fx-signal-bot/internal/types"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxBodyBytes = 1 << 20

// History serves past journal entries. *persistence.Journal satisfies it.
type History interface {
	Recent(ctx context.Context, instrument string, limit int) ([]persistence.Entry, error)
}

// Deps wires the server. Auth and History are optional.
type Deps struct {
	Engine    interfaces.Engine
	Evaluator *signal.Evaluator
	History   History
	Auth      *Auth
}

type Server struct {
	engine  interfaces.Engine
	eval    *signal.Evaluator
	history History
	router  chi.Router
}

func NewServer(d Deps) *Server {
	s := &Server{engine: d.Engine, eval: d.Evaluator, history: d.History}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/health", s.handleHealth)
	r.Post("/evaluate", s.handleEvaluate)

	r.Group(func(r chi.Router) {
		if d.Auth != nil {
			r.Use(d.Auth.Middleware)
		}
		r.Post("/webhook", s.handleWebhook)
		r.Get("/journal/{pair}", s.handleJournal)
	})

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// HTTPServer builds the listening server with the configured timeouts.
func (s *Server) HTTPServer(addr string, readTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		// Steps wait on the broker and the reviewer
		WriteTimeout: 3 * readTimeout,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var alert types.Alert
	if err := decode(w, r, &alert); err != nil {
		writeError(w, http.StatusBadRequest, "invalid alert body: "+err.Error())
		return
	}

	res, err := s.engine.Step(r.Context(), alert)
	switch {
	case errors.Is(err, engine.ErrInvalidAlert):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		logger.ErrorWithErr(r.Context(), "Webhook step failed", err, "pair", alert.Pair)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type candleJSON struct {
	Ts     int64   `json:"ts"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

type evaluateRequest struct {
	Instrument string               `json:"instrument"`
	Direction  string               `json:"direction"`
	Price      float64              `json:"price"`
	Candles    []candleJSON         `json:"candles"`
	External   []types.Contribution `json:"external,omitempty"`
}

// handleEvaluate runs the evaluator only. No signal is recorded and no
// order is placed.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid evaluate body: "+err.Error())
		return
	}
	if req.Instrument == "" {
		writeError(w, http.StatusBadRequest, "instrument is required")
		return
	}

	cs := make([]types.Candle, len(req.Candles))
	for i, c := range req.Candles {
		cs[i] = types.Candle{Ts: c.Ts, Open: c.Open, High: c.High, Low: c.Low, Close: c.Close, Vol: c.Volume}
	}
	ev := s.eval.Evaluate(signal.Request{
		Instrument: strings.ToUpper(req.Instrument),
		Direction:  strings.ToUpper(req.Direction),
		Price:      req.Price,
		Candles:    cs,
		External:   req.External,
	})
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusNotFound, "journal database is not enabled")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	pair := strings.ToUpper(chi.URLParam(r, "pair"))
	entries, err := s.history.Recent(r.Context(), pair, limit)
	if err != nil {
		logger.ErrorWithErr(r.Context(), "Failed to read journal", err, "pair", pair)
		writeError(w, http.StatusInternalServerError, "failed to read journal")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error(context.Background(), "Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// requestLogger logs each request through the structured logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logger.Info(r.Context(), "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
