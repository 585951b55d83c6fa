package guidance

import (
	"fmt"
	"time"
)

// Config bounds the orchestrator's calls to external capabilities.
type Config struct {
	EmbedTimeout time.Duration `koanf:"embed_timeout"`
	IndexTimeout time.Duration `koanf:"index_timeout"`
	// TopK is how many neighbours are fetched before seen problems are
	// filtered out.
	TopK int `koanf:"top_k"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		EmbedTimeout: 2 * time.Second,
		IndexTimeout: 2 * time.Second,
		TopK:         8,
	}
}

// Validate rejects non-positive budgets.
func (c Config) Validate() error {
	if c.EmbedTimeout <= 0 {
		return fmt.Errorf("guidance embed_timeout must be positive, got %s", c.EmbedTimeout)
	}
	if c.IndexTimeout <= 0 {
		return fmt.Errorf("guidance index_timeout must be positive, got %s", c.IndexTimeout)
	}
	if c.TopK < 1 {
		return fmt.Errorf("guidance top_k must be at least 1, got %d", c.TopK)
	}
	return nil
}
