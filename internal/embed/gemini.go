package embed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Gemini embeds text with the Gemini embedding models.
type Gemini struct {
	client *genai.Client
	model  string
	dim    int32
}

// NewGemini creates a Gemini embedder.
func NewGemini(ctx context.Context, cfg Config) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini embeddings require an API key")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = "text-embedding-004"
	}
	return &Gemini{client: client, model: model, dim: int32(cfg.Dimensions)}, nil
}

func (g *Gemini) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	var config *genai.EmbedContentConfig
	if g.dim > 0 {
		config = &genai.EmbedContentConfig{OutputDimensionality: &g.dim}
	}
	resp, err := g.client.Models.EmbedContent(ctx, g.model, genai.Text(text), config)
	if err != nil {
		return nil, fmt.Errorf("gemini embeddings: %w", err)
	}
	if len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, errors.New("gemini embeddings: empty response")
	}
	return resp.Embeddings[0].Values, nil
}
