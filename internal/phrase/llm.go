package phrase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/abhisek/mathguide/internal/guidance"
	"github.com/abhisek/mathguide/internal/hint"
	"github.com/abhisek/mathguide/internal/llm"
)

// LLM rewrites template drafts through a text-generation provider. Any
// provider failure, and any rewrite that would leak the final answer,
// falls back to the draft.
type LLM struct {
	provider llm.Provider
	draft    *Template
	cfg      Config
	logger   *zap.Logger
}

// NewLLM creates an LLM phraser. A nil logger discards output.
func NewLLM(provider llm.Provider, lookup Lookup, cfg Config, logger *zap.Logger) *LLM {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLM{provider: provider, draft: NewTemplate(lookup), cfg: cfg, logger: logger}
}

type messageOutput struct {
	Message string `json:"message"`
}

func (l *LLM) Phrase(ctx context.Context, rec guidance.DecisionRecord) (string, error) {
	draft, err := l.draft.Phrase(ctx, rec)
	if err != nil {
		return "", err
	}
	v := l.draft.view(rec)

	ctx = llm.WithPurpose(ctx, llm.PurposePhrase)
	if l.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.cfg.Timeout)
		defer cancel()
	}

	req := llm.Request{
		System: systemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: buildUserMessage(rec, v, draft)},
		},
		Schema:      MessageSchema,
		MaxTokens:   l.cfg.MaxTokens,
		Temperature: l.cfg.Temperature,
	}
	resp, err := l.provider.Generate(ctx, req)
	if err != nil {
		l.logger.Warn("phrasing failed, using template", zap.String("action", string(rec.Kind)), zap.Error(err))
		return draft, nil
	}

	var out messageOutput
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		l.logger.Warn("unreadable phrasing response, using template", zap.Error(fmt.Errorf("parse message: %w", err)))
		return draft, nil
	}
	msg := strings.TrimSpace(out.Message)
	if msg == "" {
		return draft, nil
	}
	if v.Problem != nil && !mayShowAnswer(rec) && leaksAnswer(msg, v.Problem.FinalAnswer) {
		l.logger.Warn("rewrite revealed the answer, using template",
			zap.String("problem_id", v.Problem.ID), zap.String("action", string(rec.Kind)))
		return draft, nil
	}
	return msg, nil
}

func mayShowAnswer(rec guidance.DecisionRecord) bool {
	return rec.Kind == hint.ActionConfirmCorrect || rec.Reveal
}

// leaksAnswer reports whether msg contains the final answer, ignoring
// case and whitespace. Single-character answers are not checked.
func leaksAnswer(msg, answer string) bool {
	squash := func(s string) string { return strings.Join(strings.Fields(strings.ToLower(s)), "") }
	a := squash(answer)
	return len(a) > 1 && strings.Contains(squash(msg), a)
}
