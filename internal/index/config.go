package index

import (
	"context"
	"fmt"
)

// DefaultCollection is the collection or namespace used when none is set.
const DefaultCollection = "mathguide"

// Config selects and configures the vector store backend.
type Config struct {
	// Backend is one of "memory", "chromem", "qdrant", "pinecone".
	Backend    string         `koanf:"backend"`
	Collection string         `koanf:"collection"`
	Path       string         `koanf:"path"`
	Compress   bool           `koanf:"compress"`
	Qdrant     QdrantConfig   `koanf:"qdrant"`
	Pinecone   PineconeConfig `koanf:"pinecone"`
}

// DefaultConfig keeps vectors in memory.
func DefaultConfig() Config {
	return Config{
		Backend:    "memory",
		Collection: DefaultCollection,
	}
}

// Open creates the configured vector store.
func Open(ctx context.Context, cfg Config) (VectorStore, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewChromemStore("", cfg.Collection, false)
	case "chromem":
		if cfg.Path == "" {
			return nil, fmt.Errorf("chromem backend requires a path")
		}
		return NewChromemStore(cfg.Path, cfg.Collection, cfg.Compress)
	case "qdrant":
		return NewQdrantStore(cfg.Qdrant, cfg.Collection)
	case "pinecone":
		pc := cfg.Pinecone
		if pc.Namespace == "" {
			pc.Namespace = cfg.Collection
		}
		return NewPineconeStore(ctx, pc)
	default:
		return nil, fmt.Errorf("unknown index backend: %q", cfg.Backend)
	}
}
