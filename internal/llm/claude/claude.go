package claude

import (
	"context"
	"errors"
	"os"
	"time"

	"fx-signal-bot/internal/httpclient"
	"fx-signal-bot/internal/interfaces"
	"fx-signal-bot/internal/llm"
	"fx-signal-bot/internal/logger"
	"fx-signal-bot/internal/trace"
	"fx-signal-bot/internal/types"

	"github.com/tidwall/gjson"
)

const (
	defaultEndpoint  = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
)

type Config struct {
	Model       string
	System      string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
	Endpoint    string
}

// ClaudeReviewer calls the Anthropic Messages API.
type ClaudeReviewer struct {
	cfg  Config
	http *httpclient.Client
}

var _ interfaces.Reviewer = (*ClaudeReviewer)(nil)

func NewClaudeReviewer(cfg Config) *ClaudeReviewer {
	// CLAUDE_API_ENDPOINT points at a proxy when set
	if ep := os.Getenv("CLAUDE_API_ENDPOINT"); ep != "" && cfg.Endpoint == "" {
		cfg.Endpoint = ep
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.System == "" {
		cfg.System = llm.DefaultSystem
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 256
	}
	return &ClaudeReviewer{
		cfg: cfg,
		http: httpclient.NewClient(
			httpclient.WithBaseURL(cfg.Endpoint),
			httpclient.WithHeader("x-api-key", os.Getenv("CLAUDE_API_KEY")),
			httpclient.WithHeader("anthropic-version", anthropicVersion),
			httpclient.WithTimeout(cfg.Timeout),
		),
	}
}

func (r *ClaudeReviewer) Review(ctx context.Context, req types.ReviewRequest) (types.Verdict, error) {
	ctx, span := trace.StartSpan(ctx, "claude-review")
	defer span.End()

	if os.Getenv("CLAUDE_API_KEY") == "" {
		err := errors.New("CLAUDE_API_KEY missing")
		logger.ErrorWithErr(ctx, "Claude API key not configured", err)
		return types.Verdict{}, err
	}

	body := map[string]any{
		"model":  r.cfg.Model,
		"system": r.cfg.System,
		"messages": []map[string]string{
			{"role": "user", "content": llm.Prompt(req)},
		},
		"max_tokens":  r.cfg.MaxTokens,
		"temperature": r.cfg.Temperature,
	}

	start := time.Now()
	resp, err := r.http.POST(ctx, "/v1/messages", body)
	if err != nil {
		return types.Verdict{}, err
	}
	logger.Debug(ctx, "Received response from Claude", "latency_ms", time.Since(start).Milliseconds(), "bytes", len(resp.Body))

	// Concatenate the text blocks of the reply
	var text string
	gjson.GetBytes(resp.Body, "content").ForEach(func(_, block gjson.Result) bool {
		if block.Get("type").String() == "text" {
			text += block.Get("text").String()
		}
		return true
	})
	if text == "" {
		logger.Warn(ctx, "Claude reply has no text blocks, parsing raw body")
		text = string(resp.Body)
	}
	return llm.ParseVerdict(text), nil
}
