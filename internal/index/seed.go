package index

import (
	"context"
	"fmt"
	"strings"

	"github.com/abhisek/mathguide/internal/corpus"
	"github.com/abhisek/mathguide/internal/embed"
)

// ProblemText is the text embedded for a problem.
func ProblemText(p corpus.Problem) string {
	return string(p.Topic) + ". " + p.Statement
}

// ConceptText is the text embedded for a concept.
func ConceptText(c corpus.Concept) string {
	return c.Name + ". " + c.Explanation
}

func problemRecord(p corpus.Problem) Record {
	return Record{
		Kind:       KindProblem,
		ID:         p.ID,
		Topic:      p.Topic,
		Difficulty: p.Difficulty,
		Text:       ProblemText(p),
		Embedding:  p.Embedding,
	}
}

func conceptRecord(c corpus.Concept) Record {
	return Record{
		Kind:      KindConcept,
		ID:        c.ID,
		Text:      ConceptText(c),
		Embedding: c.Embedding,
	}
}

// Seed embeds every entry of cat that has no embedding yet, upserts the
// whole catalog into store and returns the catalog with embeddings filled.
func Seed(ctx context.Context, store VectorStore, cat corpus.Catalog, e embed.Embedder) (corpus.Catalog, error) {
	out := corpus.Catalog{
		Problems: make([]corpus.Problem, len(cat.Problems)),
		Concepts: make([]corpus.Concept, len(cat.Concepts)),
	}
	records := make([]Record, 0, len(cat.Problems)+len(cat.Concepts))

	for i, p := range cat.Problems {
		if len(p.Embedding) == 0 {
			vec, err := e.Embed(ctx, ProblemText(p))
			if err != nil {
				return corpus.Catalog{}, fmt.Errorf("embed problem %s: %w", p.ID, err)
			}
			p.Embedding = vec
		}
		out.Problems[i] = p
		records = append(records, problemRecord(p))
	}
	for i, c := range cat.Concepts {
		if len(c.Embedding) == 0 {
			vec, err := e.Embed(ctx, ConceptText(c))
			if err != nil {
				return corpus.Catalog{}, fmt.Errorf("embed concept %s: %w", c.ID, err)
			}
			c.Embedding = vec
		}
		out.Concepts[i] = c
		records = append(records, conceptRecord(c))
	}

	if err := store.Upsert(ctx, records); err != nil {
		return corpus.Catalog{}, fmt.Errorf("upsert catalog: %w", err)
	}
	return out, nil
}

// Build seeds store with cat and returns an Index over the result.
func Build(ctx context.Context, store VectorStore, cat corpus.Catalog, e embed.Embedder, opts ...Option) (*Index, error) {
	seeded, err := Seed(ctx, store, cat, e)
	if err != nil {
		return nil, err
	}
	return New(seeded, store, opts...), nil
}

func parseKey(key string) (Kind, string, bool) {
	kind, id, ok := strings.Cut(key, ":")
	if !ok {
		return "", "", false
	}
	return Kind(kind), id, true
}
