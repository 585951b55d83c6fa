// Package guidance sequences retrieval, session memory, verification and
// the hint policy into one decision per conversation turn.
package guidance

import (
	"errors"

	"github.com/abhisek/mathguide/internal/corpus"
	"github.com/abhisek/mathguide/internal/hint"
	"github.com/abhisek/mathguide/internal/verify"
)

// ErrEmbeddingTimeout is reported when the embedding call exceeds its
// budget. It never leaves the orchestrator; the turn falls back instead.
var ErrEmbeddingTimeout = errors.New("embedding timeout")

// Degradation reasons carried in DecisionRecord.Degraded.
const (
	DegradedIndexUnavailable = "index-unavailable"
	DegradedEmbeddingTimeout = "embedding-timeout"
	DegradedEmbeddingFailed  = "embedding-failed"
	DegradedNoUnseenMatch    = "no-unseen-match"
	DegradedCorpusExhausted  = "corpus-exhausted"
	DegradedStaleProblem     = "stale-problem"
	DegradedSessionRecreated = "session-recreated"
	DegradedNoConcept        = "no-concept-match"
	DegradedEmptyCorpus      = "empty-corpus"
)

// Target references the content a decision is about. StepIndex is -1 when
// the decision is not about a particular step.
type Target struct {
	ProblemID string `json:"problem_id,omitempty"`
	StepIndex int    `json:"step_index"`
	ConceptID string `json:"concept_id,omitempty"`
}

// DecisionRecord is the single output of a turn. It names what to surface
// and never carries student-facing prose.
type DecisionRecord struct {
	Kind      hint.Action     `json:"kind"`
	HintLevel int             `json:"hint_level"`
	Target    Target          `json:"target"`
	Reveal    bool            `json:"reveal,omitempty"`
	Verdict   *verify.Verdict `json:"verdict,omitempty"`
	Degraded  string          `json:"degraded,omitempty"`
	Phase     hint.Phase      `json:"phase"`
}

// Turn is one front-end submission. Topic and Difficulty optionally narrow
// problem retrieval; zero values leave it to the input text.
type Turn struct {
	SessionID  string       `json:"session_id"`
	Input      string       `json:"input"`
	Topic      corpus.Topic `json:"topic,omitempty"`
	Difficulty int          `json:"difficulty,omitempty"`
}
