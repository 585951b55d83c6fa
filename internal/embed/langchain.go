package embed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// LangChain embeds text through a langchaingo embedder backed by an
// OpenAI-compatible endpoint.
type LangChain struct {
	embedder embeddings.Embedder
}

// NewLangChain creates a langchaingo-backed embedder.
func NewLangChain(cfg Config) (*LangChain, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("langchain embeddings require an API key")
	}
	opts := []openai.Option{openai.WithToken(cfg.APIKey)}
	if cfg.Model != "" {
		opts = append(opts, openai.WithEmbeddingModel(cfg.Model))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create langchain client: %w", err)
	}
	e, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("create langchain embedder: %w", err)
	}
	return &LangChain{embedder: e}, nil
}

// NewLangChainFrom wraps an existing langchaingo embedder.
func NewLangChainFrom(e embeddings.Embedder) *LangChain {
	return &LangChain{embedder: e}
}

func (l *LangChain) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	vec, err := l.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("langchain embeddings: %w", err)
	}
	return vec, nil
}
