package phrase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/mathguide/internal/corpus"
	"github.com/abhisek/mathguide/internal/guidance"
	"github.com/abhisek/mathguide/internal/hint"
	"github.com/abhisek/mathguide/internal/llm"
	"github.com/abhisek/mathguide/internal/verify"
)

// catalogLookup serves the seed corpus.
type catalogLookup struct {
	problems map[string]corpus.Problem
	concepts map[string]corpus.Concept
}

func seedLookup() catalogLookup {
	cat := corpus.Default()
	l := catalogLookup{problems: map[string]corpus.Problem{}, concepts: map[string]corpus.Concept{}}
	for _, p := range cat.Problems {
		l.problems[p.ID] = p
	}
	for _, c := range cat.Concepts {
		l.concepts[c.ID] = c
	}
	return l
}

func (l catalogLookup) Problem(id string) (corpus.Problem, bool) {
	p, ok := l.problems[id]
	return p, ok
}

func (l catalogLookup) Concept(id string) (corpus.Concept, bool) {
	c, ok := l.concepts[id]
	return c, ok
}

func target(problem string, step int, concept string) guidance.Target {
	return guidance.Target{ProblemID: problem, StepIndex: step, ConceptID: concept}
}

func TestTemplate_Phrase(t *testing.T) {
	tests := []struct {
		name string
		rec  guidance.DecisionRecord
		want string
	}{
		{
			name: "present",
			rec:  guidance.DecisionRecord{Kind: hint.ActionPresentProblem, Target: target("lin-001", -1, "")},
			want: "New linear equations problem (difficulty 1): Solve 2x + 3 = 11.",
		},
		{
			name: "correct",
			rec:  guidance.DecisionRecord{Kind: hint.ActionConfirmCorrect, Target: target("lin-001", 1, "")},
			want: `Correct! The answer is x = 4. Say "new" for another problem.`,
		},
		{
			name: "reveal",
			rec: guidance.DecisionRecord{
				Kind: hint.ActionEmitHint, Reveal: true, HintLevel: 2, Target: target("lin-001", 0, "inverse-operations"),
			},
			want: "Let's work through it. Step 1: Subtract 3 from both sides. That gives 2x = 8.",
		},
		{
			name: "first hint names the concept",
			rec:  guidance.DecisionRecord{Kind: hint.ActionEmitHint, HintLevel: 1, Target: target("quad-001", 0, "factoring")},
			want: "Think about factoring quadratics. x² + bx + c factors as (x + p)(x + q) when p + q = b and pq = c.",
		},
		{
			name: "later hint describes the step",
			rec:  guidance.DecisionRecord{Kind: hint.ActionEmitHint, HintLevel: 2, Target: target("quad-001", 1, "factoring")},
			want: "Hint 2 of 3: Write the factored form.",
		},
		{
			name: "flag error",
			rec: guidance.DecisionRecord{
				Kind: hint.ActionFlagError, HintLevel: 2, Target: target("lin-001", 1, "inverse-operations"),
				Verdict: &verify.Verdict{Status: verify.StatusIncorrectFinalAnswer, Category: verify.CategorySignError},
			},
			want: "Not quite, that looks like a sign error. Hint 2 of 2: Divide both sides by 2.",
		},
		{
			name: "explain",
			rec:  guidance.DecisionRecord{Kind: hint.ActionEmitHint, Target: target("", -1, "zero-product")},
			want: "Zero product property: If a product is zero, at least one of its factors is zero, so each factor gives a solution.",
		},
		{
			name: "unreadable",
			rec: guidance.DecisionRecord{
				Kind: hint.ActionRequestNewAttempt, Target: target("lin-001", 0, "inverse-operations"),
				Verdict: &verify.Verdict{Status: verify.StatusUnparseable, MatchedStep: verify.NoStep},
			},
			want: `I couldn't read that as math. Write an answer like "x = 4" or "x = 2 or x = 3".`,
		},
		{
			name: "continue",
			rec: guidance.DecisionRecord{
				Kind: hint.ActionRequestNewAttempt, Target: target("lin-001", 1, "inverse-operations"),
				Verdict: &verify.Verdict{Status: verify.StatusCorrect},
			},
			want: "Good, that step checks out. Next: Divide both sides by 2.",
		},
		{
			name: "no problem available",
			rec:  guidance.DecisionRecord{Kind: hint.ActionRequestNewAttempt, Target: target("", -1, ""), Degraded: guidance.DegradedEmptyCorpus},
			want: "I don't have a problem ready right now. Try again in a moment.",
		},
	}
	tp := NewTemplate(seedLookup())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tp.Phrase(context.Background(), tt.rec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTemplate_UnknownContent(t *testing.T) {
	tp := NewTemplate(seedLookup())
	_, err := tp.Phrase(context.Background(), guidance.DecisionRecord{
		Kind: hint.ActionPresentProblem, Target: target("missing", -1, ""),
	})
	assert.True(t, errors.Is(err, ErrNothingToSay), "got %v", err)
}

func message(s string) llm.MockResponse {
	b, _ := json.Marshal(map[string]string{"message": s})
	return llm.MockResponse{Content: b}
}

func TestLLM_RewritesDraft(t *testing.T) {
	mock := llm.NewMockProvider(message("Nice start! Try subtracting 3 from both sides first."))
	p := NewLLM(mock, seedLookup(), DefaultConfig(), nil)

	rec := guidance.DecisionRecord{Kind: hint.ActionEmitHint, HintLevel: 1, Target: target("lin-001", 0, "inverse-operations")}
	got, err := p.Phrase(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "Nice start! Try subtracting 3 from both sides first.", got)

	require.Equal(t, 1, mock.CallCount())
	req := mock.Calls[0]
	assert.Equal(t, MessageSchema, req.Schema)
	assert.Equal(t, DefaultConfig().MaxTokens, req.MaxTokens)
	require.Len(t, req.Messages, 1)
	assert.Contains(t, req.Messages[0].Content, "Draft:\nThink about inverse operations.")
	assert.Contains(t, req.Messages[0].Content, "Problem: Solve 2x + 3 = 11.")
}

func TestLLM_FallsBackToDraft(t *testing.T) {
	rec := guidance.DecisionRecord{Kind: hint.ActionEmitHint, HintLevel: 2, Target: target("quad-001", 1, "factoring")}
	draft := "Hint 2 of 3: Write the factored form."

	tests := []struct {
		name string
		resp llm.MockResponse
	}{
		{"provider error", llm.MockResponse{Err: &llm.ErrRateLimit{}}},
		{"schema violation", llm.MockResponse{Content: json.RawMessage(`{"text":"hi"}`)}},
		{"empty message", message("   ")},
		{"leaks final answer", message("Factor it and you get x = 2 or x = 3.")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewLLM(llm.NewMockProvider(tt.resp), seedLookup(), DefaultConfig(), nil)
			got, err := p.Phrase(context.Background(), rec)
			require.NoError(t, err)
			assert.Equal(t, draft, got)
		})
	}
}

func TestLLM_AnswerAllowedWhenConfirming(t *testing.T) {
	mock := llm.NewMockProvider(message("Yes! x = 2 or x = 3 is exactly right."))
	p := NewLLM(mock, seedLookup(), DefaultConfig(), nil)

	got, err := p.Phrase(context.Background(), guidance.DecisionRecord{
		Kind: hint.ActionConfirmCorrect, Target: target("quad-001", 2, ""),
	})
	require.NoError(t, err)
	assert.Equal(t, "Yes! x = 2 or x = 3 is exactly right.", got)
}

func TestLLM_UnknownContentSkipsProvider(t *testing.T) {
	mock := llm.NewMockProvider()
	p := NewLLM(mock, seedLookup(), DefaultConfig(), nil)
	_, err := p.Phrase(context.Background(), guidance.DecisionRecord{
		Kind: hint.ActionPresentProblem, Target: target("missing", -1, ""),
	})
	assert.ErrorIs(t, err, ErrNothingToSay)
	assert.Zero(t, mock.CallCount())
}
