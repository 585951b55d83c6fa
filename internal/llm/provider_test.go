package llm

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/abhisek/mathguide/internal/store"
)

type recordingRepo struct {
	mu     sync.Mutex
	events []store.LLMRequestEventData
	err    error
}

func (r *recordingRepo) AppendLLMRequest(_ context.Context, data store.LLMRequestEventData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, data)
	return r.err
}

func TestMockProvider_FIFOAndCalls(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"a":1}`), Usage: Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}},
		MockResponse{Err: &ErrRateLimit{}},
	)

	resp, err := mock.Generate(context.Background(), Request{System: "sys"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(resp.Content) != `{"a":1}` || resp.Usage.InputTokens != 10 || resp.StopReason != "end" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	var rl *ErrRateLimit
	if _, err := mock.Generate(context.Background(), Request{}); !errors.As(err, &rl) {
		t.Fatalf("expected ErrRateLimit, got %T", err)
	}

	var unavail *ErrProviderUnavailable
	if _, err := mock.Generate(context.Background(), Request{}); !errors.As(err, &unavail) {
		t.Fatalf("expected ErrProviderUnavailable from drained queue, got %T", err)
	}

	if mock.CallCount() != 3 || mock.Calls[0].System != "sys" {
		t.Fatalf("unexpected call record: %+v", mock.Calls)
	}
	if mock.ModelID() != "mock" {
		t.Fatalf("expected 'mock', got %q", mock.ModelID())
	}
}

func TestMockProvider_ValidatesStructuredOutput(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{"nope":true}`)})
	_, err := mock.Generate(context.Background(), Request{Schema: &hintSchema})
	var inv *ErrInvalidResponse
	if !errors.As(err, &inv) {
		t.Fatalf("expected ErrInvalidResponse, got %T (%v)", err, err)
	}
}

func TestPurposeContext(t *testing.T) {
	ctx := context.Background()
	if p := PurposeFrom(ctx); p != PurposeUnknown {
		t.Fatalf("expected %q, got %q", PurposeUnknown, p)
	}
	if p := PurposeFrom(WithPurpose(ctx, PurposePhrase)); p != PurposePhrase {
		t.Fatalf("expected %q, got %q", PurposePhrase, p)
	}
}

func TestLoggingProvider_JournalsRequests(t *testing.T) {
	repo := &recordingRepo{}
	mock := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"message":"hi"}`), Usage: Usage{InputTokens: 7, OutputTokens: 3}},
		MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}},
	)
	p := WithLogging(mock, "mock", zaptest.NewLogger(t), repo)
	ctx := WithPurpose(context.Background(), PurposePhrase)

	if _, err := p.Generate(ctx, Request{Messages: []Message{{Role: RoleUser, Content: "x"}}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := p.Generate(ctx, Request{}); err == nil {
		t.Fatal("expected error")
	}

	if len(repo.events) != 2 {
		t.Fatalf("expected 2 journaled events, got %d", len(repo.events))
	}
	ok, failed := repo.events[0], repo.events[1]
	if !ok.Success || ok.Purpose != PurposePhrase || ok.InputTokens != 7 || ok.Provider != "mock" {
		t.Fatalf("unexpected success event: %+v", ok)
	}
	if failed.Success || failed.ErrorMessage == "" {
		t.Fatalf("unexpected failure event: %+v", failed)
	}
}

func TestLoggingProvider_JournalFailureDoesNotFailRequest(t *testing.T) {
	repo := &recordingRepo{err: errors.New("disk full")}
	p := WithLogging(NewMockProvider(okResponse), "mock", nil, repo)
	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewProvider(t *testing.T) {
	if _, err := NewProvider(context.Background(), DefaultConfig(), nil, nil); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}

	cfg := DefaultConfig()
	cfg.Provider = "mock"
	p, err := NewProvider(context.Background(), cfg, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ModelID() != "mock" {
		t.Fatalf("expected mock model, got %q", p.ModelID())
	}

	cfg.Provider = "openai"
	if _, err := NewProvider(context.Background(), cfg, nil, nil); err == nil {
		t.Fatal("expected error for missing openai key")
	}
}

func TestConfig_Validate(t *testing.T) {
	withProvider := func(name string, mut func(*Config)) Config {
		cfg := DefaultConfig()
		cfg.Provider = name
		if mut != nil {
			mut(&cfg)
		}
		return cfg
	}
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"disabled", DefaultConfig(), false},
		{"anthropic without key", withProvider("anthropic", nil), true},
		{"anthropic with key", withProvider("anthropic", func(c *Config) { c.Anthropic.APIKey = "sk" }), false},
		{"openai without key", withProvider("openai", nil), true},
		{"gemini with key", withProvider("gemini", func(c *Config) { c.Gemini.APIKey = "k" }), false},
		{"openrouter without key", withProvider("openrouter", nil), true},
		{"mock needs no key", withProvider("mock", nil), false},
		{"zero retries", withProvider("mock", func(c *Config) { c.Retry.MaxAttempts = 0 }), true},
		{"unknown provider", withProvider("unknown", nil), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("MATHGUIDE_LLM_PROVIDER", "gemini")
	t.Setenv("MATHGUIDE_GEMINI_API_KEY", "g-key")
	t.Setenv("MATHGUIDE_GEMINI_MODEL", "gemini-lite")

	cfg := ConfigFromEnv(DefaultConfig())
	if cfg.Provider != "gemini" || cfg.Gemini.APIKey != "g-key" || cfg.Gemini.Model != "gemini-lite" {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.Anthropic.Model != "claude-haiku" {
		t.Fatalf("unset values should keep defaults, got %q", cfg.Anthropic.Model)
	}
}

func TestDiscoverConfig(t *testing.T) {
	for _, k := range []string{"GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "OPENROUTER_API_KEY"} {
		t.Setenv(k, "")
	}
	if _, ok := DiscoverConfig(DefaultConfig()); ok {
		t.Fatal("expected no provider discovered")
	}

	t.Setenv("ANTHROPIC_API_KEY", "a")
	t.Setenv("OPENAI_API_KEY", "o")
	cfg, ok := DiscoverConfig(DefaultConfig())
	if !ok || cfg.Provider != "openai" || cfg.OpenAI.APIKey != "o" {
		t.Fatalf("expected openai to win over anthropic, got %+v", cfg)
	}
}

func TestEstimateCost(t *testing.T) {
	cost, ok := EstimateCost("gpt-mini", 1_000_000, 1_000_000)
	if !ok || math.Abs(cost-0.75) > 1e-9 {
		t.Fatalf("EstimateCost(gpt-mini) = %v, %v", cost, ok)
	}
	if _, ok := EstimateCost("mock", 10, 10); ok {
		t.Fatal("expected unknown model")
	}
}
