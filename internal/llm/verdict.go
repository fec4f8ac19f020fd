// Package llm holds what the reviewer integrations share: the prompt, the
// verdict format and the rate-limited decorator.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"fx-signal-bot/internal/interfaces"
	"fx-signal-bot/internal/ratelimit"
	"fx-signal-bot/internal/types"
)

const (
	Confirm = "CONFIRM"
	Veto    = "VETO"
)

// ErrRateLimited is returned when the review budget is exhausted.
var ErrRateLimited = errors.New("reviewer rate limited")

const DefaultSystem = "You review FX trade signals produced by a rule-based engine. " +
	"You may confirm the signal or veto it. Output STRICT JSON only."

const schema = `{"action":"CONFIRM|VETO","reason":"short string","confidence":0.0}`

// Prompt renders the evaluation the reviewer sees.
func Prompt(req types.ReviewRequest) string {
	state, _ := json.Marshal(req)
	return fmt.Sprintf("Schema:%s\nState:%s\n\nRespond ONLY with compact JSON matching the schema.", schema, string(state))
}

// ParseVerdict finds the JSON object in a model reply. Anything unparseable
// becomes a veto.
func ParseVerdict(text string) types.Verdict {
	t := strings.TrimSpace(text)
	start := strings.Index(t, "{")
	end := strings.LastIndex(t, "}")
	if start >= 0 && end > start {
		var v types.Verdict
		if err := json.Unmarshal([]byte(t[start:end+1]), &v); err == nil {
			normalize(&v)
			return v
		}
	}
	return types.Verdict{Action: Veto, Reason: "unable_to_parse_reviewer_output"}
}

func normalize(v *types.Verdict) {
	v.Action = strings.ToUpper(strings.TrimSpace(v.Action))
	switch v.Action {
	case Confirm, Veto:
	case "WAIT", "HOLD":
		v.Action = Veto
	default:
		v.Action = Veto
		if v.Reason == "" {
			v.Reason = "invalid_action"
		}
	}
	if v.Confidence < 0 || v.Confidence > 1 {
		v.Confidence = 0
	}
}

type limited struct {
	next   interfaces.Reviewer
	bucket *ratelimit.Bucket
}

// Limited spends one bucket token per review and fails fast with
// ErrRateLimited when none is left.
func Limited(next interfaces.Reviewer, bucket *ratelimit.Bucket) interfaces.Reviewer {
	return &limited{next: next, bucket: bucket}
}

func (l *limited) Review(ctx context.Context, req types.ReviewRequest) (types.Verdict, error) {
	if !l.bucket.Allow() {
		return types.Verdict{}, ErrRateLimited
	}
	return l.next.Review(ctx, req)
}
