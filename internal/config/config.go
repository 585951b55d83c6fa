// Package config loads mathguide configuration.
//
// Precedence, highest first:
//  1. MATHGUIDE_* environment variables
//  2. the YAML file passed with --config
//  3. built-in defaults
//
// Environment variables map onto section.field, with known subsections
// split off as a further level:
//
//	MATHGUIDE_SERVER_PORT           -> server.port
//	MATHGUIDE_GUIDANCE_EMBED_TIMEOUT -> guidance.embed_timeout
//	MATHGUIDE_INDEX_QDRANT_HOST     -> index.qdrant.host
//	MATHGUIDE_LLM_RETRY_MAX_ATTEMPTS -> llm.retry.max_attempts
package config

import (
	"fmt"

	"github.com/abhisek/mathguide/internal/api"
	"github.com/abhisek/mathguide/internal/embed"
	"github.com/abhisek/mathguide/internal/guidance"
	"github.com/abhisek/mathguide/internal/index"
	"github.com/abhisek/mathguide/internal/llm"
	"github.com/abhisek/mathguide/internal/logging"
	"github.com/abhisek/mathguide/internal/phrase"
)

// Config is the complete application configuration.
type Config struct {
	Server   api.Config      `koanf:"server"`
	Store    StoreConfig     `koanf:"store"`
	Logging  logging.Config  `koanf:"logging"`
	LLM      llm.Config      `koanf:"llm"`
	Embed    embed.Config    `koanf:"embed"`
	Index    index.Config    `koanf:"index"`
	Guidance guidance.Config `koanf:"guidance"`
	Phrase   phrase.Config   `koanf:"phrase"`
}

// StoreConfig controls the SQLite journal.
type StoreConfig struct {
	// Path is the database file. Empty resolves to store.DefaultDBPath.
	Path string `koanf:"path"`
	// Journal records attempts, decisions and archived sessions.
	Journal bool `koanf:"journal"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Server:   api.DefaultConfig(),
		Store:    StoreConfig{Journal: true},
		Logging:  logging.DefaultConfig(),
		LLM:      llm.DefaultConfig(),
		Embed:    embed.DefaultConfig(),
		Index:    index.DefaultConfig(),
		Guidance: guidance.DefaultConfig(),
		Phrase:   phrase.DefaultConfig(),
	}
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := c.Guidance.Validate(); err != nil {
		return err
	}
	if c.Phrase.Timeout <= 0 {
		return fmt.Errorf("phrase timeout must be positive, got %s", c.Phrase.Timeout)
	}
	switch c.Index.Backend {
	case "memory", "chromem", "qdrant", "pinecone":
	default:
		return fmt.Errorf("unknown index backend: %q", c.Index.Backend)
	}
	switch c.Embed.Provider {
	case "", "hash", "openai", "gemini", "langchain":
	default:
		return fmt.Errorf("unknown embedding provider: %q", c.Embed.Provider)
	}
	return nil
}
