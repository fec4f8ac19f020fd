// Package persistence stores step results in Postgres.
package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fx-signal-bot/internal/interfaces"
	"fx-signal-bot/internal/logger"
	"fx-signal-bot/internal/types"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS signal_evaluations (
	id            BIGSERIAL PRIMARY KEY,
	evaluation_id TEXT,
	recorded_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	instrument    TEXT NOT NULL,
	signal        TEXT NOT NULL,
	decision      TEXT NOT NULL,
	price         DOUBLE PRECISION NOT NULL,
	score         DOUBLE PRECISION,
	take_profit   DOUBLE PRECISION,
	stop_loss     DOUBLE PRECISION,
	order_id      TEXT,
	alert_name    TEXT,
	reason        TEXT,
	evaluation    JSONB
);
CREATE INDEX IF NOT EXISTS signal_evaluations_instrument_idx
	ON signal_evaluations (instrument, recorded_at DESC);`

// Journal wraps a pgxpool.Pool.
type Journal struct {
	pool *pgxpool.Pool
}

var _ interfaces.Journal = (*Journal)(nil)

// Open connects, pings and ensures the table exists.
func Open(ctx context.Context, connStr string) (*Journal, error) {
	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}
	config.MaxConns = 4
	config.MinConns = 1
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info(ctx, "Database connection pool established", "max_conns", config.MaxConns)
	return &Journal{pool: pool}, nil
}

func (j *Journal) Close() {
	j.pool.Close()
}

func (j *Journal) HealthCheck(ctx context.Context) error {
	return j.pool.Ping(ctx)
}

// row is the flattened form of a StepResult.
type row struct {
	EvaluationID *string
	Instrument   string
	Signal       string
	Decision     string
	Price        float64
	Score        *float64
	TakeProfit   *float64
	StopLoss     *float64
	OrderID      *string
	AlertName    *string
	Reason       string
	Evaluation   []byte
}

func toRow(res *types.StepResult) (row, error) {
	r := row{
		Instrument: res.Instrument,
		Signal:     string(res.Signal),
		Decision:   string(res.Decision),
		Price:      res.Price,
		Reason:     res.Reason,
	}
	if res.AlertName != "" {
		r.AlertName = &res.AlertName
	}
	if res.Order != nil && res.Order.OrderID != "" {
		r.OrderID = &res.Order.OrderID
	}
	if ev := res.Evaluation; ev != nil {
		r.EvaluationID = &ev.ID
		r.Score = &ev.Result.Score
		if ev.Exit != nil {
			r.TakeProfit = &ev.Exit.TakeProfit
			r.StopLoss = &ev.Exit.StopLoss
		}
		b, err := json.Marshal(ev)
		if err != nil {
			return row{}, fmt.Errorf("encoding evaluation: %w", err)
		}
		r.Evaluation = b
	}
	return r, nil
}

func (j *Journal) Record(ctx context.Context, res *types.StepResult) error {
	r, err := toRow(res)
	if err != nil {
		return err
	}
	_, err = j.pool.Exec(ctx,
		`INSERT INTO signal_evaluations
		 (evaluation_id, instrument, signal, decision, price, score, take_profit, stop_loss, order_id, alert_name, reason, evaluation)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		r.EvaluationID, r.Instrument, r.Signal, r.Decision, r.Price, r.Score,
		r.TakeProfit, r.StopLoss, r.OrderID, r.AlertName, r.Reason, r.Evaluation,
	)
	if err != nil {
		return fmt.Errorf("inserting evaluation for %s: %w", res.Instrument, err)
	}
	return nil
}

// Entry is one journal row as returned by Recent.
type Entry struct {
	RecordedAt time.Time `json:"recorded_at"`
	Instrument string    `json:"instrument"`
	Signal     string    `json:"signal"`
	Decision   string    `json:"decision"`
	Price      float64   `json:"price"`
	Score      *float64  `json:"score,omitempty"`
	Reason     string    `json:"reason"`
}

// Recent returns the latest entries for an instrument, newest first.
func (j *Journal) Recent(ctx context.Context, instrument string, limit int) ([]Entry, error) {
	rows, err := j.pool.Query(ctx,
		`SELECT recorded_at, instrument, signal, decision, price, score, COALESCE(reason, '')
		 FROM signal_evaluations
		 WHERE instrument = $1
		 ORDER BY recorded_at DESC
		 LIMIT $2`,
		instrument, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying evaluations for %s: %w", instrument, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var e Entry
		err := row.Scan(&e.RecordedAt, &e.Instrument, &e.Signal, &e.Decision, &e.Price, &e.Score, &e.Reason)
		return e, err
	})
}
