package llm

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/abhisek/mathguide/internal/store"
)

// ErrDisabled is returned by NewProvider when no provider is configured.
var ErrDisabled = errors.New("llm: text generation disabled")

type constructor func(ctx context.Context, cfg Config) (Provider, error)

var constructors = map[string]constructor{
	"anthropic": func(_ context.Context, cfg Config) (Provider, error) {
		return NewAnthropicProvider(cfg.Anthropic)
	},
	"openai": func(_ context.Context, cfg Config) (Provider, error) {
		return NewOpenAIProvider(cfg.OpenAI)
	},
	"gemini": func(ctx context.Context, cfg Config) (Provider, error) {
		return NewGeminiProvider(ctx, cfg.Gemini)
	},
	"openrouter": func(_ context.Context, cfg Config) (Provider, error) {
		return NewOpenRouterProvider(cfg.OpenRouter)
	},
	"mock": func(context.Context, Config) (Provider, error) {
		return NewMockProvider(), nil
	},
}

// NewProvider builds the configured provider. Calls pass through retry
// first, then logging, then reach the provider itself. repo may be nil.
func NewProvider(ctx context.Context, cfg Config, logger *zap.Logger, repo store.EventRepo) (Provider, error) {
	if !cfg.Enabled() {
		return nil, ErrDisabled
	}
	build, ok := constructors[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown LLM provider: %q", cfg.Provider)
	}
	base, err := build(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}
	return WithRetry(WithLogging(base, cfg.Provider, logger, repo), cfg.Retry), nil
}
