// Package phrase turns decision records into student-facing messages. The
// template phraser works offline; the LLM phraser rewrites its draft in a
// friendlier voice and falls back to it on any failure.
package phrase

import (
	"context"

	"github.com/abhisek/mathguide/internal/corpus"
	"github.com/abhisek/mathguide/internal/guidance"
)

// Phraser renders a decision as text.
type Phraser interface {
	Phrase(ctx context.Context, rec guidance.DecisionRecord) (string, error)
}

// Lookup resolves the content a decision points at. *index.Index
// satisfies it.
type Lookup interface {
	Problem(id string) (corpus.Problem, bool)
	Concept(id string) (corpus.Concept, bool)
}
