// Package tradelog writes one JSON line per webhook step into a daily file.
package tradelog

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"fx-signal-bot/internal/interfaces"
	"fx-signal-bot/internal/types"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const ext = ".jsonl"

// Journal appends step results to <dir>/<YYYY-MM-DD>.jsonl.
type Journal struct {
	mu   sync.Mutex
	dir  string
	loc  *time.Location
	now  func() time.Time
	day  string
	file *os.File
	log  *zap.Logger
}

var _ interfaces.Journal = (*Journal)(nil)

// New creates the log directory. Day boundaries follow loc.
func New(dir string, loc *time.Location) (*Journal, error) {
	if loc == nil {
		loc = time.UTC
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating trade log dir: %w", err)
	}
	return &Journal{dir: dir, loc: loc, now: time.Now}, nil
}

// Path returns the file a record written at t goes to.
func (j *Journal) Path(t time.Time) string {
	return filepath.Join(j.dir, t.In(j.loc).Format("2006-01-02")+ext)
}

func (j *Journal) Record(_ context.Context, res *types.StepResult) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now().In(j.loc)
	if err := j.rotate(now); err != nil {
		return err
	}

	fields := []zap.Field{
		zap.String("instrument", res.Instrument),
		zap.String("signal", string(res.Signal)),
		zap.String("decision", string(res.Decision)),
		zap.Float64("price", res.Price),
		zap.Int64("alert_time", res.Time),
		zap.String("reason", res.Reason),
	}
	if res.AlertName != "" {
		fields = append(fields, zap.String("alert_name", res.AlertName))
	}
	if ev := res.Evaluation; ev != nil {
		fields = append(fields,
			zap.String("evaluation_id", ev.ID),
			zap.Float64("score", ev.Result.Score),
			zap.Strings("reasons", ev.Result.Reasons()),
			zap.String("pattern", string(ev.Pattern)),
			zap.String("trend", string(ev.Trend)),
			zap.Any("indicators", ev.Snapshot),
		)
		if ev.Exit != nil {
			fields = append(fields,
				zap.Float64("take_profit", ev.Exit.TakeProfit),
				zap.Float64("stop_loss", ev.Exit.StopLoss),
				zap.Float64("risk_reward", ev.Exit.RiskRewardRatio),
			)
		}
	}
	if res.Verdict != nil {
		fields = append(fields, zap.String("review", res.Verdict.Action), zap.String("review_reason", res.Verdict.Reason))
	}
	if res.Order != nil {
		fields = append(fields, zap.String("order_id", res.Order.OrderID), zap.String("order_status", res.Order.Status))
	}

	j.log.Info("step", fields...)
	return j.log.Sync()
}

// rotate switches files when the day changes.
func (j *Journal) rotate(now time.Time) error {
	day := now.Format("2006-01-02")
	if j.log != nil && j.day == day {
		return nil
	}
	if err := j.closeLocked(); err != nil {
		return err
	}

	f, err := os.OpenFile(j.Path(now), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening trade log: %w", err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.RFC3339TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f), zap.InfoLevel)

	j.file, j.log, j.day = f, zap.New(core), day
	return nil
}

func (j *Journal) closeLocked() error {
	if j.log == nil {
		return nil
	}
	_ = j.log.Sync()
	err := j.file.Close()
	j.log, j.file, j.day = nil, nil, ""
	return err
}

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.closeLocked()
}

// CompressOlder gzips day files older than retentionDays.
func (j *Journal) CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := j.now().AddDate(0, 0, -retentionDays)
	return filepath.WalkDir(j.dir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(p, ext) {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		gz := p + ".gz"
		// a previous run already compressed it
		if _, err := os.Stat(gz); err == nil {
			_ = os.Remove(p)
			return nil
		}
		if err := gzipFile(p, gz); err != nil {
			return nil
		}
		_ = os.Remove(p)
		return nil
	})
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		gw.Close()
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := gw.Close(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
