package guidance

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/abhisek/mathguide/internal/corpus"
	"github.com/abhisek/mathguide/internal/index"
	"github.com/abhisek/mathguide/internal/session"
)

// defaultQuery is embedded when a request names nothing to search for.
const defaultQuery = "exam practice problem"

// selection is the outcome of choosing a problem.
type selection struct {
	problem  corpus.Problem
	degraded string
	ok       bool
}

// bounded runs fn under a deadline of d. It returns as soon as the
// deadline passes even if fn ignores its context.
func bounded[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// retrievalQuery is the text embedded for a problem request: the request
// itself, the topic, and the names of the student's weak concepts.
func (o *Orchestrator) retrievalQuery(s session.Session, body string, topic corpus.Topic) string {
	parts := make([]string, 0, 2+len(s.WeakConcepts))
	if body != "" {
		parts = append(parts, body)
	}
	if topic != "" && !strings.Contains(strings.ToLower(body), string(topic)) {
		parts = append(parts, string(topic))
	}
	for _, id := range s.Weak() {
		if c, ok := o.index.Concept(id); ok {
			parts = append(parts, c.Name)
		}
	}
	if len(parts) == 0 {
		return defaultQuery
	}
	return strings.Join(parts, ". ")
}

func (o *Orchestrator) embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	vec, err := bounded(ctx, o.cfg.EmbedTimeout, func(ctx context.Context) ([]float32, error) {
		return o.embedder.Embed(ctx, text)
	})
	o.metrics.EmbedDuration.Observe(time.Since(start).Seconds())
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w after %s: %w", ErrEmbeddingTimeout, o.cfg.EmbedTimeout, err)
	}
	return vec, err
}

func (o *Orchestrator) search(ctx context.Context, vec []float32, topK int, filter *index.Filter) ([]index.Hit, error) {
	hits, err := bounded(ctx, o.cfg.IndexTimeout, func(ctx context.Context) ([]index.Hit, error) {
		return o.index.FindSimilar(ctx, vec, topK, filter)
	})
	if err != nil && !errors.Is(err, index.ErrIndexUnavailable) {
		err = fmt.Errorf("%w: %w", index.ErrIndexUnavailable, err)
	}
	return hits, err
}

// selectProblem picks the next problem for s. Retrieval prefers unseen
// problems touching a weak concept, then any unseen hit in similarity
// order. Any failure along the way falls back to the pinned set.
func (o *Orchestrator) selectProblem(ctx context.Context, s session.Session, body string, topic corpus.Topic, difficulty int) selection {
	log := o.logger.With(zap.String("session_id", s.ID))
	query := o.retrievalQuery(s, body, topic)

	vec, err := o.embed(ctx, query)
	if err != nil {
		reason := DegradedEmbeddingFailed
		if errors.Is(err, ErrEmbeddingTimeout) {
			reason = DegradedEmbeddingTimeout
		}
		o.metrics.FailuresTotal.WithLabelValues("embedder").Inc()
		log.Warn("embedding failed, using pinned fallback", zap.String("query", query), zap.Error(err))
		return o.fallback(s, topic, difficulty, reason)
	}

	filter := &index.Filter{Kind: index.KindProblem, Topic: topic, Difficulty: difficulty}
	hits, err := o.search(ctx, vec, o.cfg.TopK+len(s.SeenProblems), filter)
	if err != nil {
		o.metrics.FailuresTotal.WithLabelValues("index").Inc()
		log.Warn("problem index unavailable, using pinned fallback", zap.Error(err))
		return o.fallback(s, topic, difficulty, DegradedIndexUnavailable)
	}

	unseen := lo.Filter(hits, func(h index.Hit, _ int) bool {
		return h.Problem != nil && !s.SeenProblems[h.Problem.ID]
	})
	if len(unseen) == 0 {
		log.Info("no unseen problem among neighbours",
			zap.String("topic", string(topic)), zap.Int("hits", len(hits)))
		return o.fallback(s, topic, difficulty, DegradedNoUnseenMatch)
	}

	weak, rest := lo.FilterReject(unseen, func(h index.Hit, _ int) bool {
		return lo.SomeBy(h.Problem.ConceptIDs, func(id string) bool { return s.WeakConcepts[id] })
	})
	best := lo.Ternary(len(weak) > 0, weak, rest)[0]
	return selection{problem: *best.Problem, ok: true}
}

// fallback picks a problem without the index. Candidates are tried in
// order: unseen in the topic at the requested difficulty (pinned first),
// pinned and unseen in the topic, unseen in the topic, pinned and unseen,
// any unseen, then pinned problems again once everything has been seen.
// Within a tier the difficulty closest to the requested one wins, lower
// first, ties by id. With no requested difficulty the easiest wins.
func (o *Orchestrator) fallback(s session.Session, topic corpus.Topic, difficulty int, reason string) selection {
	all := o.index.Problems()
	if len(all) == 0 {
		return selection{degraded: DegradedEmptyCorpus}
	}
	unseen := func(p corpus.Problem) bool { return !s.SeenProblems[p.ID] }
	pinned := func(p corpus.Problem) bool { return p.Pinned }
	inTopic := func(p corpus.Problem) bool { return topic == "" || p.Topic == topic }
	atLevel := func(p corpus.Problem) bool { return difficulty == 0 || p.Difficulty == difficulty }

	tiers := []func(corpus.Problem) bool{
		func(p corpus.Problem) bool { return pinned(p) && unseen(p) && inTopic(p) && atLevel(p) },
		func(p corpus.Problem) bool { return unseen(p) && inTopic(p) && atLevel(p) },
		func(p corpus.Problem) bool { return pinned(p) && unseen(p) && inTopic(p) },
		func(p corpus.Problem) bool { return unseen(p) && inTopic(p) },
		func(p corpus.Problem) bool { return pinned(p) && unseen(p) },
		unseen,
	}
	for _, admit := range tiers {
		if p, ok := closest(all, difficulty, admit); ok {
			return selection{problem: p, degraded: reason, ok: true}
		}
	}

	p, ok := closest(all, difficulty, func(p corpus.Problem) bool { return pinned(p) && inTopic(p) })
	if !ok {
		p, _ = closest(all, difficulty, func(corpus.Problem) bool { return true })
	}
	return selection{problem: p, degraded: DegradedCorpusExhausted, ok: true}
}

func closest(problems []corpus.Problem, difficulty int, admit func(corpus.Problem) bool) (corpus.Problem, bool) {
	candidates := lo.Filter(problems, func(p corpus.Problem, _ int) bool { return admit(p) })
	if len(candidates) == 0 {
		return corpus.Problem{}, false
	}
	distance := func(p corpus.Problem) int { return abs(p.Difficulty - difficulty) }
	return slices.MinFunc(candidates, func(a, b corpus.Problem) int {
		return cmp.Or(
			cmp.Compare(distance(a), distance(b)),
			cmp.Compare(a.Difficulty, b.Difficulty),
			cmp.Compare(a.ID, b.ID),
		)
	}), true
}

// nearestConcept resolves an explanation request. Concept names are
// matched textually first; otherwise the term is embedded and the nearest
// concept is taken.
func (o *Orchestrator) nearestConcept(ctx context.Context, term string) (corpus.Concept, error) {
	concepts := o.index.Concepts()
	if c, ok := conceptByName(concepts, term); ok {
		return c, nil
	}
	vec, err := o.embed(ctx, term)
	if err != nil {
		return corpus.Concept{}, err
	}
	hits, err := o.search(ctx, vec, 1, &index.Filter{Kind: index.KindConcept})
	if err != nil {
		return corpus.Concept{}, err
	}
	if len(hits) == 0 || hits[0].Concept == nil {
		return corpus.Concept{}, fmt.Errorf("no concept near %q", term)
	}
	return *hits[0].Concept, nil
}

// conceptByName matches term against concept ids and names, tolerating
// missing letters through fuzzy subsequence ranking.
func conceptByName(concepts []corpus.Concept, term string) (corpus.Concept, bool) {
	t := strings.ToLower(strings.TrimSpace(term))
	if t == "" {
		return corpus.Concept{}, false
	}
	for _, c := range concepts {
		if t == c.ID || t == strings.ToLower(c.Name) || strings.ReplaceAll(t, " ", "-") == c.ID {
			return c, true
		}
	}
	names := lo.Map(concepts, func(c corpus.Concept, _ int) string { return c.Name })
	ranks := fuzzyRank(t, names)
	if len(ranks) == 0 {
		return corpus.Concept{}, false
	}
	return concepts[ranks[0]], true
}
