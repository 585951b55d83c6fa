package guidance

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/mathguide/internal/corpus"
	"github.com/abhisek/mathguide/internal/embed"
	"github.com/abhisek/mathguide/internal/hint"
	"github.com/abhisek/mathguide/internal/index"
	"github.com/abhisek/mathguide/internal/session"
	"github.com/abhisek/mathguide/internal/store"
	"github.com/abhisek/mathguide/internal/verify"
)

// Index is the retrieval capability the orchestrator reads from.
// *index.Index satisfies it.
type Index interface {
	FindSimilar(ctx context.Context, query []float32, topK int, filter *index.Filter) ([]index.Hit, error)
	Problem(id string) (corpus.Problem, bool)
	Concept(id string) (corpus.Concept, bool)
	Problems() []corpus.Problem
	Concepts() []corpus.Concept
}

// Sessions is the session store. *session.Memory satisfies it.
type Sessions interface {
	Get(id string) session.Session
	Peek(id string) (session.Session, bool)
	Apply(id string, muts ...session.Mutation) (session.Session, error)
	Lock(id string) (unlock func())
	Destroy(ctx context.Context, id string) error
}

// Journal receives attempt and decision events after each turn.
// *store.Journal satisfies it.
type Journal interface {
	AppendAttempt(ctx context.Context, data store.AttemptEventData) error
	AppendDecision(ctx context.Context, data store.DecisionEventData) error
}

// Orchestrator turns (session, input) pairs into decisions. It is safe for
// concurrent use; turns for the same session are serialized.
type Orchestrator struct {
	index    Index
	sessions Sessions
	embedder embed.Embedder
	journal  Journal
	cfg      Config
	logger   *zap.Logger
	metrics  *Metrics
	now      func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithConfig sets timeouts and retrieval width.
func WithConfig(cfg Config) Option {
	return func(o *Orchestrator) { o.cfg = cfg }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithJournal records attempts and decisions in j.
func WithJournal(j Journal) Option {
	return func(o *Orchestrator) { o.journal = j }
}

// WithClock overrides the time source for attempt timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// New creates an Orchestrator.
func New(ix Index, sessions Sessions, embedder embed.Embedder, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		index:    ix,
		sessions: sessions,
		embedder: embedder,
		cfg:      DefaultConfig(),
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = NewMetrics(nil)
	}
	return o
}

// HandleTurn processes one user turn. It never fails: every component
// failure resolves to a safe decision.
func (o *Orchestrator) HandleTurn(ctx context.Context, sessionID, input string) DecisionRecord {
	return o.Handle(ctx, Turn{SessionID: sessionID, Input: input})
}

// Handle is HandleTurn with an explicit retrieval filter.
func (o *Orchestrator) Handle(ctx context.Context, t Turn) DecisionRecord {
	start := time.Now()
	unlock := o.sessions.Lock(t.SessionID)
	defer unlock()

	tc := &turn{o: o, id: t.SessionID, s: o.sessions.Get(t.SessionID)}
	in := withFilters(parseIntent(t.Input))
	if t.Topic != "" {
		in.Topic = t.Topic
	}
	if t.Difficulty != 0 {
		in.Difficulty = t.Difficulty
	}

	var rec DecisionRecord
	switch {
	case in.Kind == IntentExplain:
		rec = tc.explain(ctx, in)
	case in.Kind == IntentNewProblem:
		tc.abandon()
		rec = tc.present(ctx, in)
	case !tc.s.HasActiveProblem():
		// Anything else without a problem is read as a request for one.
		rec = tc.present(ctx, in)
	case in.Kind == IntentHint:
		rec = tc.hint(ctx)
	default:
		rec = tc.attempt(ctx, in, t.Input)
	}
	if rec.Degraded == "" && tc.recreated {
		rec.Degraded = DegradedSessionRecreated
	}

	elapsed := time.Since(start)
	o.observe(t.SessionID, in, rec, elapsed)
	o.record(ctx, t.SessionID, in, rec, tc.attempted, elapsed)
	return rec
}

// EndSession is the front end's end-of-life signal. The session moves to
// SessionIdle and is destroyed; its final state goes to the archiver.
// Ending an unknown session is a no-op.
func (o *Orchestrator) EndSession(ctx context.Context, sessionID string) error {
	if _, ok := o.sessions.Peek(sessionID); !ok {
		return nil
	}
	unlock := o.sessions.Lock(sessionID)
	defer unlock()

	s := o.sessions.Get(sessionID)
	out := hint.Decide(s.PolicyState(), hint.SessionEnded{})
	muts := []session.Mutation{session.SetPhase(out.Next.Phase)}
	if out.ClearProblem {
		muts = append([]session.Mutation{session.ClearActiveProblem()}, muts...)
	}
	if _, err := o.sessions.Apply(sessionID, muts...); err != nil {
		o.logger.Warn("failed to mark session idle", zap.String("session_id", sessionID), zap.Error(err))
	}
	if err := o.sessions.Destroy(ctx, sessionID); err != nil {
		o.metrics.FailuresTotal.WithLabelValues("archiver").Inc()
		return err
	}
	o.logger.Info("session ended", zap.String("session_id", sessionID), zap.Int("attempts", len(s.Attempts)))
	return nil
}

// Snapshot returns the current state of a live session.
func (o *Orchestrator) Snapshot(sessionID string) (session.Session, bool) {
	return o.sessions.Peek(sessionID)
}

// turn carries the state of one in-flight turn.
type turn struct {
	o         *Orchestrator
	id        string
	s         session.Session
	recreated bool
	attempted *session.Attempt
}

// apply commits mutations. A session destroyed underneath the turn is
// recreated and the mutations are applied to the fresh session.
func (t *turn) apply(muts ...session.Mutation) {
	s, err := t.o.sessions.Apply(t.id, muts...)
	if errors.Is(err, session.ErrSessionNotFound) {
		t.o.metrics.FailuresTotal.WithLabelValues("session").Inc()
		t.o.logger.Warn("session vanished mid-turn, recreating", zap.String("session_id", t.id), zap.Error(err))
		t.recreated = true
		t.o.sessions.Get(t.id)
		s, err = t.o.sessions.Apply(t.id, muts...)
	}
	if err != nil {
		t.o.logger.Error("failed to update session", zap.String("session_id", t.id), zap.Error(err))
		t.s = t.o.sessions.Get(t.id)
		return
	}
	t.s = s
}

// abandon drops the active problem, if any.
func (t *turn) abandon() {
	out := hint.Decide(t.s.PolicyState(), hint.Abandoned{})
	if !out.ClearProblem {
		return
	}
	t.apply(session.ClearActiveProblem(), session.SetPhase(out.Next.Phase))
}

func (t *turn) present(ctx context.Context, in Intent) DecisionRecord {
	sel := t.o.selectProblem(ctx, t.s, in.Body, in.Topic, in.Difficulty)
	if !sel.ok {
		t.o.logger.Error("no problem available", zap.String("session_id", t.id), zap.String("reason", sel.degraded))
		return DecisionRecord{
			Kind:      hint.ActionRequestNewAttempt,
			Target:    Target{StepIndex: -1},
			Degraded:  sel.degraded,
			Phase:     t.s.Phase,
			HintLevel: t.s.HintLevel,
		}
	}

	p := sel.problem
	out := hint.Decide(t.s.PolicyState(), hint.ProblemSupplied{Problem: p})
	t.apply(session.SetActiveProblem(p.ID, len(p.Steps)), session.SetPhase(out.Next.Phase))
	return DecisionRecord{
		Kind:      out.Action,
		HintLevel: t.s.HintLevel,
		Target:    Target{ProblemID: p.ID, StepIndex: -1},
		Degraded:  sel.degraded,
		Phase:     out.Next.Phase,
	}
}

// activeProblem resolves the session's active problem. A problem missing
// from the index is dropped and a new one presented.
func (t *turn) activeProblem(ctx context.Context, in Intent) (corpus.Problem, *DecisionRecord) {
	p, ok := t.o.index.Problem(t.s.ActiveProblemID)
	if ok {
		return p, nil
	}
	t.o.logger.Warn("active problem not in index", zap.String("session_id", t.id), zap.String("problem_id", t.s.ActiveProblemID))
	t.abandon()
	rec := t.present(ctx, in)
	if rec.Degraded == "" {
		rec.Degraded = DegradedStaleProblem
	}
	return corpus.Problem{}, &rec
}

func (t *turn) attempt(ctx context.Context, in Intent, raw string) DecisionRecord {
	p, replaced := t.activeProblem(ctx, in)
	if replaced != nil {
		return *replaced
	}

	step := min(t.s.StepReached, len(p.Steps)-1)
	if in.Step > 0 {
		step = in.Step - 1
	}
	v := verify.Verify(in.Body, p, step)
	out := hint.Decide(t.s.PolicyState(), hint.AttemptVerified{Problem: p, Verdict: v})

	muts := append([]session.Mutation{session.AppendAttempt(raw, v, t.o.now())}, outcomeMutations(out)...)
	t.apply(muts...)
	if n := len(t.s.Attempts); n > 0 {
		a := t.s.Attempts[n-1]
		t.attempted = &a
	}

	rec := decisionFor(p, out)
	rec.Verdict = &v
	return rec
}

func (t *turn) hint(ctx context.Context) DecisionRecord {
	p, replaced := t.activeProblem(ctx, Intent{})
	if replaced != nil {
		return *replaced
	}
	out := hint.Decide(t.s.PolicyState(), hint.HintRequested{Problem: p})
	t.apply(outcomeMutations(out)...)
	return decisionFor(p, out)
}

// explain targets a concept without touching hint state.
func (t *turn) explain(ctx context.Context, in Intent) DecisionRecord {
	rec := DecisionRecord{
		Kind:      hint.ActionEmitHint,
		HintLevel: t.s.HintLevel,
		Target:    Target{ProblemID: t.s.ActiveProblemID, StepIndex: -1},
		Phase:     t.s.Phase,
	}
	c, err := t.o.nearestConcept(ctx, in.Term)
	if err == nil {
		rec.Target.ConceptID = c.ID
		return rec
	}

	t.o.logger.Info("no concept for explanation request", zap.String("term", in.Term), zap.Error(err))
	rec.Degraded = DegradedNoConcept
	if errors.Is(err, ErrEmbeddingTimeout) {
		rec.Degraded = DegradedEmbeddingTimeout
	} else if errors.Is(err, index.ErrIndexUnavailable) {
		rec.Degraded = DegradedIndexUnavailable
	}
	if p, ok := t.o.index.Problem(t.s.ActiveProblemID); ok {
		step := min(t.s.StepReached, len(p.Steps)-1)
		rec.Target.StepIndex = step
		rec.Target.ConceptID = p.ImplicatedConcept(step)
	}
	return rec
}

// outcomeMutations translates a policy outcome into session mutations.
// The hint level is raised before the problem is cleared so a clear
// always wins. A solved problem is reported as Correct while the session
// itself goes back to awaiting a problem.
func outcomeMutations(out hint.Outcome) []session.Mutation {
	muts := []session.Mutation{
		session.RaiseHintLevel(out.Next.HintLevel),
		session.AdvanceStep(out.Next.StepReached),
		session.SetUnparseableStreak(out.Next.UnparseableStreak),
		session.SetLastCategory(out.Next.LastCategory),
		session.AddWeakConcept(out.WeakConcept),
		session.AddMasteredConcepts(out.Mastered...),
	}
	phase := out.Next.Phase
	if out.ClearProblem {
		muts = append(muts, session.ClearActiveProblem())
		if phase == hint.Correct {
			phase = hint.AwaitingProblem
		}
	}
	return append(muts, session.SetPhase(phase))
}

func decisionFor(p corpus.Problem, out hint.Outcome) DecisionRecord {
	rec := DecisionRecord{
		Kind:      out.Action,
		HintLevel: out.Next.HintLevel,
		Target:    Target{ProblemID: p.ID, StepIndex: out.TargetStep},
		Reveal:    out.Reveal,
		Phase:     out.Next.Phase,
	}
	if out.TargetStep >= 0 && out.Action != hint.ActionConfirmCorrect {
		rec.Target.ConceptID = p.ImplicatedConcept(out.TargetStep)
	}
	return rec
}
