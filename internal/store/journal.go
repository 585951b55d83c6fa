package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/mathguide/internal/session"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("not found")

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit  int       // max results (0 = unlimited)
	After  int64     // sequence > After
	Before int64     // sequence < Before
	From   time.Time // timestamp >= From
	To     time.Time // timestamp <= To
}

func (o QueryOpts) apply(sel *entsql.Selector) *entsql.Selector {
	if o.After > 0 {
		sel.Where(entsql.GT("sequence", o.After))
	}
	if o.Before > 0 {
		sel.Where(entsql.LT("sequence", o.Before))
	}
	if !o.From.IsZero() {
		sel.Where(entsql.GTE("timestamp", o.From.UTC()))
	}
	if !o.To.IsZero() {
		sel.Where(entsql.LTE("timestamp", o.To.UTC()))
	}
	if o.Limit > 0 {
		sel.Limit(o.Limit)
	}
	return sel
}

// AttemptEventData captures one verified submission.
type AttemptEventData struct {
	SessionID    string
	ProblemID    string
	AttemptIndex int
	Input        string
	Status       string
	MatchedStep  int
	Category     string
	Normalized   string
	HintLevel    int
}

// AttemptEvent is a journaled attempt.
type AttemptEvent struct {
	Sequence  int64
	Timestamp time.Time
	AttemptEventData
}

// DecisionEventData captures the decision returned for a turn.
type DecisionEventData struct {
	SessionID string
	Intent    string
	Action    string
	HintLevel int
	ProblemID string
	StepIndex int
	ConceptID string
	Reveal    bool
	Phase     string
	Degraded  string
	LatencyMs int64
}

// DecisionEvent is a journaled decision.
type DecisionEvent struct {
	Sequence  int64
	Timestamp time.Time
	DecisionEventData
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
}

// LLMUsage aggregates LLM requests per provider and model.
type LLMUsage struct {
	Provider     string
	Model        string
	Requests     int
	Failures     int
	InputTokens  int64
	OutputTokens int64
}

// ArchivedSession summarizes an ended session.
type ArchivedSession struct {
	SessionID    string
	ArchivedAt   time.Time
	Attempts     int
	ProblemsSeen int
}

// EventRepo provides append access to LLM request events.
type EventRepo interface {
	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error
}

// Journal appends and reads journal events. It implements EventRepo and
// session.Archiver.
type Journal struct {
	db  *sql.DB
	seq *sequencer
	now func() time.Time
}

var (
	_ EventRepo        = (*Journal)(nil)
	_ session.Archiver = (*Journal)(nil)
)

func builder() *entsql.DialectBuilder {
	return entsql.Dialect(dialect.SQLite)
}

func (j *Journal) timestamp() time.Time {
	if j.now != nil {
		return j.now().UTC()
	}
	return time.Now().UTC()
}

func (j *Journal) insert(ctx context.Context, ins *entsql.InsertBuilder) error {
	query, args := ins.Query()
	if _, err := j.db.ExecContext(ctx, query, args...); err != nil {
		return err
	}
	return nil
}

// AppendAttempt records a verified attempt.
func (j *Journal) AppendAttempt(ctx context.Context, data AttemptEventData) error {
	seqNum, err := j.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}
	ins := builder().Insert(attemptTable).
		Columns("sequence", "timestamp", "session_id", "problem_id", "attempt_index",
			"input", "status", "matched_step", "category", "normalized", "hint_level").
		Values(seqNum, j.timestamp(), data.SessionID, data.ProblemID, data.AttemptIndex,
			data.Input, data.Status, data.MatchedStep, data.Category, data.Normalized, data.HintLevel)
	if err := j.insert(ctx, ins); err != nil {
		return fmt.Errorf("save attempt event: %w", err)
	}
	return nil
}

// AppendDecision records a turn decision.
func (j *Journal) AppendDecision(ctx context.Context, data DecisionEventData) error {
	seqNum, err := j.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}
	ins := builder().Insert(decisionTable).
		Columns("sequence", "timestamp", "session_id", "intent", "action", "hint_level",
			"problem_id", "step_index", "concept_id", "reveal", "phase", "degraded", "latency_ms").
		Values(seqNum, j.timestamp(), data.SessionID, data.Intent, data.Action, data.HintLevel,
			data.ProblemID, data.StepIndex, data.ConceptID, data.Reveal, data.Phase, data.Degraded, data.LatencyMs)
	if err := j.insert(ctx, ins); err != nil {
		return fmt.Errorf("save decision event: %w", err)
	}
	return nil
}

// AppendLLMRequest records an LLM API call event.
func (j *Journal) AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error {
	seqNum, err := j.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}
	ins := builder().Insert(llmTable).
		Columns("sequence", "timestamp", "provider", "model", "purpose", "input_tokens",
			"output_tokens", "latency_ms", "success", "error_message").
		Values(seqNum, j.timestamp(), data.Provider, data.Model, data.Purpose, data.InputTokens,
			data.OutputTokens, data.LatencyMs, data.Success, data.ErrorMessage)
	if err := j.insert(ctx, ins); err != nil {
		return fmt.Errorf("save LLM request event: %w", err)
	}
	return nil
}

// ArchiveSession keeps the final state of an ended session.
func (j *Journal) ArchiveSession(ctx context.Context, s session.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ins := builder().Insert(archiveTable).
		Columns("session_id", "archived_at", "attempts", "problems_seen", "data").
		Values(s.ID, j.timestamp(), len(s.Attempts), len(s.Seen()), string(data))
	if err := j.insert(ctx, ins); err != nil {
		return fmt.Errorf("save session archive: %w", err)
	}
	return nil
}

// Attempts returns the journaled attempts of a session in sequence order.
func (j *Journal) Attempts(ctx context.Context, sessionID string, opts QueryOpts) ([]AttemptEvent, error) {
	sel := builder().Select("sequence", "timestamp", "session_id", "problem_id", "attempt_index",
		"input", "status", "matched_step", "category", "normalized", "hint_level").
		From(entsql.Table(attemptTable)).
		Where(entsql.EQ("session_id", sessionID)).
		OrderBy("sequence")
	query, args := opts.apply(sel).Query()

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []AttemptEvent
	for rows.Next() {
		var e AttemptEvent
		if err := rows.Scan(&e.Sequence, &e.Timestamp, &e.SessionID, &e.ProblemID, &e.AttemptIndex,
			&e.Input, &e.Status, &e.MatchedStep, &e.Category, &e.Normalized, &e.HintLevel); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Decisions returns the journaled decisions of a session in sequence order.
func (j *Journal) Decisions(ctx context.Context, sessionID string, opts QueryOpts) ([]DecisionEvent, error) {
	sel := builder().Select("sequence", "timestamp", "session_id", "intent", "action", "hint_level",
		"problem_id", "step_index", "concept_id", "reveal", "phase", "degraded", "latency_ms").
		From(entsql.Table(decisionTable)).
		Where(entsql.EQ("session_id", sessionID)).
		OrderBy("sequence")
	query, args := opts.apply(sel).Query()

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	var out []DecisionEvent
	for rows.Next() {
		var e DecisionEvent
		if err := rows.Scan(&e.Sequence, &e.Timestamp, &e.SessionID, &e.Intent, &e.Action, &e.HintLevel,
			&e.ProblemID, &e.StepIndex, &e.ConceptID, &e.Reveal, &e.Phase, &e.Degraded, &e.LatencyMs); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CategoryCounts tallies error categories of a session's attempts.
func (j *Journal) CategoryCounts(ctx context.Context, sessionID string) (map[string]int, error) {
	query, args := builder().Select("category", entsql.As(entsql.Count("*"), "n")).
		From(entsql.Table(attemptTable)).
		Where(entsql.And(entsql.EQ("session_id", sessionID), entsql.NEQ("category", ""))).
		GroupBy("category").
		Query()

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var cat string
		var n int
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out[cat] = n
	}
	return out, rows.Err()
}

// LLMUsage aggregates LLM requests per provider and model.
func (j *Journal) LLMUsage(ctx context.Context) ([]LLMUsage, error) {
	query, args := builder().Select("provider", "model",
		entsql.As(entsql.Count("*"), "requests"),
		entsql.As("SUM(CASE WHEN success THEN 0 ELSE 1 END)", "failures"),
		entsql.As(entsql.Sum("input_tokens"), "input_tokens"),
		entsql.As(entsql.Sum("output_tokens"), "output_tokens")).
		From(entsql.Table(llmTable)).
		GroupBy("provider", "model").
		OrderBy("provider", "model").
		Query()

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query llm usage: %w", err)
	}
	defer rows.Close()

	var out []LLMUsage
	for rows.Next() {
		var u LLMUsage
		if err := rows.Scan(&u.Provider, &u.Model, &u.Requests, &u.Failures, &u.InputTokens, &u.OutputTokens); err != nil {
			return nil, fmt.Errorf("scan llm usage: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// ArchivedSessions lists archived sessions, newest first.
func (j *Journal) ArchivedSessions(ctx context.Context, limit int) ([]ArchivedSession, error) {
	sel := builder().Select("session_id", "archived_at", "attempts", "problems_seen").
		From(entsql.Table(archiveTable)).
		OrderBy(entsql.Desc("archived_at"), entsql.Desc("id"))
	if limit > 0 {
		sel.Limit(limit)
	}
	query, args := sel.Query()

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query archived sessions: %w", err)
	}
	defer rows.Close()

	var out []ArchivedSession
	for rows.Next() {
		var a ArchivedSession
		if err := rows.Scan(&a.SessionID, &a.ArchivedAt, &a.Attempts, &a.ProblemsSeen); err != nil {
			return nil, fmt.Errorf("scan archived session: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// LoadArchivedSession returns the most recent archived state of a session.
func (j *Journal) LoadArchivedSession(ctx context.Context, sessionID string) (session.Session, error) {
	query, args := builder().Select("data").
		From(entsql.Table(archiveTable)).
		Where(entsql.EQ("session_id", sessionID)).
		OrderBy(entsql.Desc("id")).
		Limit(1).
		Query()

	var raw string
	err := j.db.QueryRowContext(ctx, query, args...).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Session{}, fmt.Errorf("archived session %q: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return session.Session{}, fmt.Errorf("query archived session: %w", err)
	}

	var s session.Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return session.Session{}, fmt.Errorf("unmarshal archived session: %w", err)
	}
	return s, nil
}
