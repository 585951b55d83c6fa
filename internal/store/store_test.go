package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/abhisek/mathguide/internal/hint"
	"github.com/abhisek/mathguide/internal/session"
	"github.com/abhisek/mathguide/internal/verify"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPragmasApplied(t *testing.T) {
	s := openTestStore(t)
	db := s.DB()

	tests := []struct {
		pragma string
		want   string
	}{
		// WAL mode falls back to "memory" for in-memory databases.
		{"foreign_keys", "1"},
		{"synchronous", "1"}, // NORMAL = 1
	}

	for _, tt := range tests {
		var got string
		err := db.QueryRow("PRAGMA " + tt.pragma).Scan(&got)
		if err != nil {
			t.Errorf("PRAGMA %s: %v", tt.pragma, err)
			continue
		}
		if got != tt.want {
			t.Errorf("PRAGMA %s = %q, want %q", tt.pragma, got, tt.want)
		}
	}
}

func TestTableName(t *testing.T) {
	tests := map[string]string{
		"AttemptEvent":    "attempt_events",
		"LLMRequestEvent": "llm_request_events",
		"SessionArchive":  "session_archives",
	}
	for in, want := range tests {
		if got := tableName(in); got != want {
			t.Errorf("tableName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAutoMigrationCreatesTables(t *testing.T) {
	s := openTestStore(t)
	for _, name := range []string{attemptTable, decisionTable, llmTable, archiveTable} {
		var got string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", name,
		).Scan(&got)
		if err != nil {
			t.Errorf("table %s: %v", name, err)
		}
	}

	tables, err := Tables()
	if err != nil {
		t.Fatalf("tables: %v", err)
	}
	if len(tables) != 4 {
		t.Fatalf("tables = %d, want 4", len(tables))
	}
	if _, ok := tables[0].Column("sequence"); !ok {
		t.Error("attempt table is missing the mixin sequence column")
	}
}

func TestReopenFileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Journal().AppendAttempt(ctx, AttemptEventData{SessionID: "s1", Input: "x = 4", Status: "correct"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	events, err := s.Journal().Attempts(ctx, "s1", QueryOpts{})
	if err != nil {
		t.Fatalf("attempts: %v", err)
	}
	if len(events) != 1 || events[0].Input != "x = 4" {
		t.Fatalf("events = %+v", events)
	}

	if err := s.Journal().AppendAttempt(ctx, AttemptEventData{SessionID: "s1", Input: "x = 5"}); err != nil {
		t.Fatalf("append after reopen: %v", err)
	}
	events, _ = s.Journal().Attempts(ctx, "s1", QueryOpts{})
	if len(events) != 2 || events[1].Sequence <= events[0].Sequence {
		t.Fatalf("sequence must continue after reopen: %+v", events)
	}
}

func TestSequencerStartsAtOne(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sc, err := newSequencer(s.DB())
	if err != nil {
		t.Fatalf("new sequencer: %v", err)
	}

	for i := 0; i < 5; i++ {
		seq, err := sc.Next(ctx)
		if err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
		if want := int64(i + 1); seq != want {
			t.Errorf("seq[%d] = %d, want %d", i, seq, want)
		}
	}
}

func TestAttemptsAndDecisionsShareSequence(t *testing.T) {
	s := openTestStore(t)
	j := s.Journal()
	ctx := context.Background()

	if err := j.AppendAttempt(ctx, AttemptEventData{
		SessionID: "s1", ProblemID: "lin-001", AttemptIndex: 0, Input: "x = 5",
		Status: "incorrect-final-answer", MatchedStep: -1, Category: "arithmetic-slip", HintLevel: 0,
	}); err != nil {
		t.Fatalf("append attempt: %v", err)
	}
	if err := j.AppendDecision(ctx, DecisionEventData{
		SessionID: "s1", Intent: "attempt", Action: "flag-error", HintLevel: 1,
		ProblemID: "lin-001", StepIndex: 0, Phase: "awaiting-attempt",
	}); err != nil {
		t.Fatalf("append decision: %v", err)
	}
	if err := j.AppendAttempt(ctx, AttemptEventData{SessionID: "other", Input: "1"}); err != nil {
		t.Fatalf("append other: %v", err)
	}

	attempts, err := j.Attempts(ctx, "s1", QueryOpts{})
	if err != nil {
		t.Fatalf("attempts: %v", err)
	}
	decisions, err := j.Decisions(ctx, "s1", QueryOpts{})
	if err != nil {
		t.Fatalf("decisions: %v", err)
	}
	if len(attempts) != 1 || len(decisions) != 1 {
		t.Fatalf("attempts = %d, decisions = %d, want 1 each", len(attempts), len(decisions))
	}
	a, d := attempts[0], decisions[0]
	if a.Category != "arithmetic-slip" || a.MatchedStep != -1 || a.ProblemID != "lin-001" {
		t.Errorf("attempt round trip = %+v", a)
	}
	if d.Action != "flag-error" || d.HintLevel != 1 || d.Reveal {
		t.Errorf("decision round trip = %+v", d)
	}
	if d.Sequence <= a.Sequence {
		t.Errorf("decision sequence %d should follow attempt sequence %d", d.Sequence, a.Sequence)
	}
	if a.Timestamp.IsZero() {
		t.Error("timestamp not recorded")
	}
}

func TestQueryOpts(t *testing.T) {
	s := openTestStore(t)
	j := s.Journal()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := j.AppendAttempt(ctx, AttemptEventData{SessionID: "s1", AttemptIndex: i}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	limited, err := j.Attempts(ctx, "s1", QueryOpts{Limit: 2})
	if err != nil {
		t.Fatalf("limit: %v", err)
	}
	if len(limited) != 2 || limited[0].AttemptIndex != 0 {
		t.Errorf("limit = %+v", limited)
	}

	after, err := j.Attempts(ctx, "s1", QueryOpts{After: limited[1].Sequence})
	if err != nil {
		t.Fatalf("after: %v", err)
	}
	if len(after) != 3 || after[0].AttemptIndex != 2 {
		t.Errorf("after = %+v", after)
	}

	window, err := j.Attempts(ctx, "s1", QueryOpts{After: limited[0].Sequence, Before: after[1].Sequence})
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if len(window) != 2 {
		t.Errorf("window = %+v", window)
	}
}

func TestCategoryCounts(t *testing.T) {
	s := openTestStore(t)
	j := s.Journal()
	ctx := context.Background()

	for _, c := range []string{"sign-error", "sign-error", "wrong-formula", ""} {
		if err := j.AppendAttempt(ctx, AttemptEventData{SessionID: "s1", Category: c}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	counts, err := j.CategoryCounts(ctx, "s1")
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts["sign-error"] != 2 || counts["wrong-formula"] != 1 || len(counts) != 2 {
		t.Errorf("counts = %v", counts)
	}
}

func TestLLMUsage(t *testing.T) {
	s := openTestStore(t)
	j := s.Journal()
	ctx := context.Background()

	events := []LLMRequestEventData{
		{Provider: "openai", Model: "gpt-4o-mini", Purpose: "phrase", InputTokens: 100, OutputTokens: 20, Success: true},
		{Provider: "openai", Model: "gpt-4o-mini", Purpose: "phrase", InputTokens: 50, OutputTokens: 0, Success: false, ErrorMessage: "rate limit"},
		{Provider: "anthropic", Model: "claude-sonnet-4-5", Purpose: "phrase", InputTokens: 10, OutputTokens: 5, Success: true},
	}
	for _, e := range events {
		if err := j.AppendLLMRequest(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	usage, err := j.LLMUsage(ctx)
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if len(usage) != 2 {
		t.Fatalf("usage rows = %d, want 2", len(usage))
	}
	if usage[0].Provider != "anthropic" || usage[0].Requests != 1 {
		t.Errorf("usage[0] = %+v", usage[0])
	}
	u := usage[1]
	if u.Requests != 2 || u.Failures != 1 || u.InputTokens != 150 || u.OutputTokens != 20 {
		t.Errorf("usage[1] = %+v", u)
	}
}

func TestArchiveSessionRoundTrip(t *testing.T) {
	s := openTestStore(t)
	j := s.Journal()
	ctx := context.Background()

	mem := session.NewMemory(session.WithArchiver(j))
	_, err := mem.Apply("s1",
		session.SetActiveProblem("quad-001", 3),
		session.RaiseHintLevel(1),
		session.AddWeakConcept("factoring"),
		session.AppendAttempt("x = 2", verify.Verdict{Status: verify.StatusPartiallyCorrect, MatchedStep: 1}, time.Now()),
		session.SetPhase(hint.AwaitingAttempt),
	)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := mem.Destroy(ctx, "s1"); err != nil {
		t.Fatalf("destroy: %v", err)
	}

	list, err := j.ArchivedSessions(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].SessionID != "s1" || list[0].Attempts != 1 || list[0].ProblemsSeen != 1 {
		t.Fatalf("archived = %+v", list)
	}

	got, err := j.LoadArchivedSession(ctx, "s1")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.ActiveProblemID != "quad-001" || got.HintLevel != 1 || got.Phase != hint.AwaitingAttempt {
		t.Errorf("loaded = %+v", got)
	}
	if len(got.Attempts) != 1 || got.Attempts[0].Verdict.Status != verify.StatusPartiallyCorrect {
		t.Errorf("attempts = %+v", got.Attempts)
	}
	if w := got.Weak(); len(w) != 1 || w[0] != "factoring" {
		t.Errorf("weak = %v", w)
	}
}

func TestLoadArchivedSessionNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Journal().LoadArchivedSession(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
