package openai

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"fx-signal-bot/internal/httpclient"
	"fx-signal-bot/internal/interfaces"
	"fx-signal-bot/internal/llm"
	"fx-signal-bot/internal/trace"
	"fx-signal-bot/internal/types"
)

const defaultEndpoint = "https://api.openai.com"

type Config struct {
	Model       string
	System      string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
	// Endpoint overrides the API base URL.
	Endpoint string
}

type OpenAIReviewer struct {
	cfg  Config
	http *httpclient.Client
}

var _ interfaces.Reviewer = (*OpenAIReviewer)(nil)

func NewOpenAIReviewer(cfg Config) *OpenAIReviewer {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.System == "" {
		cfg.System = llm.DefaultSystem
	}
	return &OpenAIReviewer{
		cfg: cfg,
		http: httpclient.NewClient(
			httpclient.WithBaseURL(cfg.Endpoint),
			httpclient.WithBearer(os.Getenv("OPENAI_API_KEY")),
			httpclient.WithTimeout(cfg.Timeout),
		),
	}
}

func (r *OpenAIReviewer) Review(ctx context.Context, req types.ReviewRequest) (types.Verdict, error) {
	ctx, span := trace.StartSpan(ctx, "openai-api-call")
	defer span.End()

	if os.Getenv("OPENAI_API_KEY") == "" {
		return types.Verdict{}, errors.New("OPENAI_API_KEY missing")
	}

	body := map[string]any{
		"model": r.cfg.Model,
		"messages": []map[string]string{
			{"role": "system", "content": r.cfg.System},
			{"role": "user", "content": llm.Prompt(req)},
		},
		"temperature": r.cfg.Temperature,
		"max_tokens":  r.cfg.MaxTokens,
	}
	resp, err := r.http.POST(ctx, "/v1/chat/completions", body)
	if err != nil {
		return types.Verdict{}, err
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := resp.ParseJSON(&out); err != nil {
		return types.Verdict{}, err
	}
	if len(out.Choices) == 0 {
		return types.Verdict{}, errors.New("no choices")
	}
	return llm.ParseVerdict(strings.TrimSpace(out.Choices[0].Message.Content)), nil
}
