package llm

import (
	"fmt"
	"os"
	"time"
)

// Config holds all LLM provider configuration.
type Config struct {
	// Provider selects the backend: "anthropic", "openai", "gemini",
	// "openrouter" or "mock". Empty or "none" disables text generation and
	// callers fall back to templates.
	Provider string `koanf:"provider"`

	Anthropic  AnthropicConfig  `koanf:"anthropic"`
	OpenAI     OpenAIConfig     `koanf:"openai"`
	Gemini     GeminiConfig     `koanf:"gemini"`
	OpenRouter OpenRouterConfig `koanf:"openrouter"`
	Retry      RetryConfig      `koanf:"retry"`

	// Timeout bounds a single request including retries.
	Timeout time.Duration `koanf:"timeout"`
}

// Enabled reports whether a provider is selected.
func (c Config) Enabled() bool {
	return c.Provider != "" && c.Provider != "none"
}

// AnthropicConfig holds Anthropic-specific configuration.
type AnthropicConfig struct {
	APIKey  string `koanf:"api_key"`
	Model   string `koanf:"model"`
	BaseURL string `koanf:"base_url"`
}

// OpenAIConfig holds OpenAI-specific configuration.
type OpenAIConfig struct {
	APIKey  string `koanf:"api_key"`
	Model   string `koanf:"model"`
	BaseURL string `koanf:"base_url"` // any OpenAI-compatible endpoint
}

// GeminiConfig holds Gemini-specific configuration.
type GeminiConfig struct {
	APIKey string `koanf:"api_key"`
	Model  string `koanf:"model"`
}

// OpenRouterConfig holds OpenRouter-specific configuration.
type OpenRouterConfig struct {
	APIKey  string `koanf:"api_key"`
	Model   string `koanf:"model"`
	BaseURL string `koanf:"base_url"`
}

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int           `koanf:"max_attempts"`
	InitialWait time.Duration `koanf:"initial_wait"`
	MaxWait     time.Duration `koanf:"max_wait"`
	Multiplier  float64       `koanf:"multiplier"`
}

// DefaultConfig returns a Config with text generation disabled and
// per-provider model defaults filled in.
func DefaultConfig() Config {
	return Config{
		Provider:   "none",
		Anthropic:  AnthropicConfig{Model: "claude-haiku"},
		OpenAI:     OpenAIConfig{Model: "gpt-mini"},
		Gemini:     GeminiConfig{Model: "gemini-flash"},
		OpenRouter: OpenRouterConfig{Model: "google/gemini-2.0-flash-001"},
		Retry: RetryConfig{
			MaxAttempts: 2,
			InitialWait: 500 * time.Millisecond,
			MaxWait:     4 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 8 * time.Second,
	}
}

// ConfigFromEnv overlays MATHGUIDE_* environment variables on cfg.
func ConfigFromEnv(cfg Config) Config {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set(&cfg.Provider, "MATHGUIDE_LLM_PROVIDER")
	set(&cfg.Anthropic.APIKey, "MATHGUIDE_ANTHROPIC_API_KEY")
	set(&cfg.Anthropic.Model, "MATHGUIDE_ANTHROPIC_MODEL")
	set(&cfg.OpenAI.APIKey, "MATHGUIDE_OPENAI_API_KEY")
	set(&cfg.OpenAI.Model, "MATHGUIDE_OPENAI_MODEL")
	set(&cfg.OpenAI.BaseURL, "MATHGUIDE_OPENAI_BASE_URL")
	set(&cfg.Gemini.APIKey, "MATHGUIDE_GEMINI_API_KEY")
	set(&cfg.Gemini.Model, "MATHGUIDE_GEMINI_MODEL")
	set(&cfg.OpenRouter.APIKey, "MATHGUIDE_OPENROUTER_API_KEY")
	set(&cfg.OpenRouter.Model, "MATHGUIDE_OPENROUTER_MODEL")
	return cfg
}

// DiscoverConfig probes the vendors' standard API key variables in
// priority order (Gemini, OpenAI, Anthropic, OpenRouter) and selects the
// first provider whose key is found. It reports false if none is set.
func DiscoverConfig(cfg Config) (Config, bool) {
	if k := os.Getenv("GEMINI_API_KEY"); k != "" {
		cfg.Provider, cfg.Gemini.APIKey = "gemini", k
		return cfg, true
	}
	if k := os.Getenv("OPENAI_API_KEY"); k != "" {
		cfg.Provider, cfg.OpenAI.APIKey = "openai", k
		return cfg, true
	}
	if k := os.Getenv("ANTHROPIC_API_KEY"); k != "" {
		cfg.Provider, cfg.Anthropic.APIKey = "anthropic", k
		return cfg, true
	}
	if k := os.Getenv("OPENROUTER_API_KEY"); k != "" {
		cfg.Provider, cfg.OpenRouter.APIKey = "openrouter", k
		return cfg, true
	}
	return cfg, false
}

// Validate checks that the selected provider has its required API key set.
func (c Config) Validate() error {
	switch c.Provider {
	case "", "none", "mock":
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("MATHGUIDE_ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	case "openai":
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("MATHGUIDE_OPENAI_API_KEY is required for the openai provider")
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("MATHGUIDE_GEMINI_API_KEY is required for the gemini provider")
		}
	case "openrouter":
		if c.OpenRouter.APIKey == "" {
			return fmt.Errorf("MATHGUIDE_OPENROUTER_API_KEY is required for the openrouter provider")
		}
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("llm retry max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	return nil
}
