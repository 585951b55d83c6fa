// Package embed provides text embedding backends for problem retrieval.
package embed

import (
	"context"
	"errors"
	"fmt"
)

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ErrEmptyText is returned for blank input.
var ErrEmptyText = errors.New("embed: empty text")

// Config selects and configures an embedding backend.
type Config struct {
	// Provider is one of "hash", "openai", "gemini", "langchain".
	Provider   string `koanf:"provider"`
	Model      string `koanf:"model"`
	APIKey     string `koanf:"api_key"`
	BaseURL    string `koanf:"base_url"`
	Dimensions int    `koanf:"dimensions"`
}

// DefaultConfig uses the offline hashing embedder.
func DefaultConfig() Config {
	return Config{
		Provider:   "hash",
		Dimensions: DefaultDimensions,
	}
}

// New creates an Embedder from configuration.
func New(ctx context.Context, cfg Config) (Embedder, error) {
	switch cfg.Provider {
	case "", "hash":
		return NewHash(cfg.Dimensions), nil
	case "openai":
		return NewOpenAI(cfg)
	case "gemini":
		return NewGemini(ctx, cfg)
	case "langchain":
		return NewLangChain(cfg)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", cfg.Provider)
	}
}
