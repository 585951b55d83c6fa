// Package index answers nearest-neighbour queries over the problem and
// concept catalog through a pluggable vector store.
package index

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/abhisek/mathguide/internal/corpus"
)

// ErrIndexUnavailable wraps every failure of the underlying store.
var ErrIndexUnavailable = errors.New("index unavailable")

// Kind distinguishes problem and concept entries.
type Kind string

const (
	KindAny     Kind = ""
	KindProblem Kind = "problem"
	KindConcept Kind = "concept"
)

// Filter narrows a similarity query. Zero fields match everything.
type Filter struct {
	Kind       Kind
	Topic      corpus.Topic
	Difficulty int
}

func (f *Filter) admits(r Record) bool {
	if f == nil {
		return true
	}
	if f.Kind != KindAny && f.Kind != r.Kind {
		return false
	}
	if f.Topic != "" && (r.Kind != KindProblem || f.Topic != r.Topic) {
		return false
	}
	if f.Difficulty != 0 && (r.Kind != KindProblem || f.Difficulty != r.Difficulty) {
		return false
	}
	return true
}

// Record is one stored vector with the metadata filters run against.
type Record struct {
	Kind       Kind
	ID         string
	Topic      corpus.Topic
	Difficulty int
	Text       string
	Embedding  []float32
}

// Key is the store-wide unique key of a record.
func (r Record) Key() string {
	return string(r.Kind) + ":" + r.ID
}

// Match is a raw store result.
type Match struct {
	Kind  Kind
	ID    string
	Score float32
}

// VectorStore is the vector storage capability. Implementations must be
// safe for concurrent queries.
type VectorStore interface {
	Upsert(ctx context.Context, records []Record) error
	Query(ctx context.Context, vec []float32, topK int, filter *Filter) ([]Match, error)
	Close() error
}

// Hit is a resolved query result. Exactly one of Problem and Concept is set.
type Hit struct {
	Problem *corpus.Problem
	Concept *corpus.Concept
	Score   float32
}

// Kind reports which entity the hit refers to.
func (h Hit) Kind() Kind {
	if h.Problem != nil {
		return KindProblem
	}
	return KindConcept
}

// ID returns the id of the referenced entity.
func (h Hit) ID() string {
	if h.Problem != nil {
		return h.Problem.ID
	}
	return h.Concept.ID
}

// Index is the read-only query side of the catalog.
type Index struct {
	store    VectorStore
	problems map[string]corpus.Problem
	concepts map[string]corpus.Concept
	order    []string
	logger   *zap.Logger
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(ix *Index) { ix.logger = l }
}

// New creates an index over cat backed by store. The catalog is assumed to
// be already loaded into the store (see Seed).
func New(cat corpus.Catalog, store VectorStore, opts ...Option) *Index {
	ix := &Index{
		store:    store,
		problems: make(map[string]corpus.Problem, len(cat.Problems)),
		concepts: make(map[string]corpus.Concept, len(cat.Concepts)),
		logger:   zap.NewNop(),
	}
	for _, p := range cat.Problems {
		ix.problems[p.ID] = p
		ix.order = append(ix.order, p.ID)
	}
	for _, c := range cat.Concepts {
		ix.concepts[c.ID] = c
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// FindSimilar returns up to topK entries ordered by descending similarity,
// ties broken by ascending id. Store failures are wrapped in
// ErrIndexUnavailable.
func (ix *Index) FindSimilar(ctx context.Context, query []float32, topK int, filter *Filter) ([]Hit, error) {
	if topK <= 0 {
		return nil, nil
	}
	if len(query) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", ErrIndexUnavailable)
	}
	matches, err := ix.query(ctx, query, topK, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndexUnavailable, err)
	}

	hits := make([]Hit, 0, len(matches))
	for _, m := range matches {
		h, rec, ok := ix.resolve(m)
		if !ok {
			ix.logger.Debug("skipping unknown index entry",
				zap.String("kind", string(m.Kind)), zap.String("id", m.ID))
			continue
		}
		if !filter.admits(rec) {
			continue
		}
		hits = append(hits, h)
	}

	slices.SortFunc(hits, func(a, b Hit) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := cmp.Compare(a.ID(), b.ID()); c != 0 {
			return c
		}
		return cmp.Compare(a.Kind(), b.Kind())
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// maxFetch caps how far query widens to settle ties at the cut.
const maxFetch = 1024

// query asks the store for more than topK matches so that entries tied with
// the topK-th score are all seen before ties are broken by id. It widens
// the request while a full page still ends on that score.
func (ix *Index) query(ctx context.Context, vec []float32, topK int, filter *Filter) ([]Match, error) {
	fetch := topK + 1
	for {
		matches, err := ix.store.Query(ctx, vec, fetch, filter)
		if err != nil {
			return nil, err
		}
		if len(matches) < fetch || fetch >= maxFetch {
			return matches, nil
		}
		scores := make([]float32, len(matches))
		for i, m := range matches {
			scores[i] = m.Score
		}
		slices.SortFunc(scores, func(a, b float32) int { return cmp.Compare(b, a) })
		if scores[len(scores)-1] != scores[topK-1] {
			return matches, nil
		}
		fetch = min(fetch*2, maxFetch)
	}
}

func (ix *Index) resolve(m Match) (Hit, Record, bool) {
	switch m.Kind {
	case KindProblem:
		p, ok := ix.problems[m.ID]
		if !ok {
			return Hit{}, Record{}, false
		}
		return Hit{Problem: &p, Score: m.Score}, problemRecord(p), true
	case KindConcept:
		c, ok := ix.concepts[m.ID]
		if !ok {
			return Hit{}, Record{}, false
		}
		return Hit{Concept: &c, Score: m.Score}, Record{Kind: KindConcept, ID: c.ID}, true
	}
	return Hit{}, Record{}, false
}

// Problem looks up a problem by id.
func (ix *Index) Problem(id string) (corpus.Problem, bool) {
	p, ok := ix.problems[id]
	return p, ok
}

// Concept looks up a concept by id.
func (ix *Index) Concept(id string) (corpus.Concept, bool) {
	c, ok := ix.concepts[id]
	return c, ok
}

// Problems returns every problem in catalog order.
func (ix *Index) Problems() []corpus.Problem {
	out := make([]corpus.Problem, 0, len(ix.order))
	for _, id := range ix.order {
		out = append(out, ix.problems[id])
	}
	return out
}

// Concepts returns every concept sorted by id.
func (ix *Index) Concepts() []corpus.Concept {
	out := make([]corpus.Concept, 0, len(ix.concepts))
	for _, c := range ix.concepts {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b corpus.Concept) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Close releases the underlying store.
func (ix *Index) Close() error {
	return ix.store.Close()
}
