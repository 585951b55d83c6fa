package session

import (
	"maps"
	"slices"
	"sort"
	"time"

	"github.com/abhisek/mathguide/internal/hint"
	"github.com/abhisek/mathguide/internal/verify"
)

// Attempt is an immutable record of one submission.
type Attempt struct {
	Index     int            `json:"index"`
	Timestamp time.Time      `json:"timestamp"`
	ProblemID string         `json:"problem_id"`
	Input     string         `json:"input"`
	Verdict   verify.Verdict `json:"verdict"`
	HintLevel int            `json:"hint_level"`
}

// Session is the per-conversation state. Values handed out by Memory are
// deep copies and may be read freely.
type Session struct {
	ID              string `json:"id"`
	ActiveProblemID string `json:"active_problem_id,omitempty"`

	Phase                  hint.Phase      `json:"phase"`
	HintLevel              int             `json:"hint_level"`
	StepCount              int             `json:"step_count"`
	StepReached            int             `json:"step_reached"`
	ConsecutiveUnparseable int             `json:"consecutive_unparseable"`
	LastErrorCategory      verify.Category `json:"last_error_category,omitempty"`

	Attempts         []Attempt       `json:"attempts"`
	WeakConcepts     map[string]bool `json:"weak_concepts"`
	MasteredConcepts map[string]bool `json:"mastered_concepts"`
	SeenProblems     map[string]bool `json:"seen_problems"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newSession(id string, now time.Time) Session {
	return Session{
		ID:               id,
		Phase:            hint.AwaitingProblem,
		WeakConcepts:     make(map[string]bool),
		MasteredConcepts: make(map[string]bool),
		SeenProblems:     make(map[string]bool),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Clone returns a deep copy.
func (s Session) Clone() Session {
	out := s
	out.Attempts = slices.Clone(s.Attempts)
	out.WeakConcepts = cloneSet(s.WeakConcepts)
	out.MasteredConcepts = cloneSet(s.MasteredConcepts)
	out.SeenProblems = cloneSet(s.SeenProblems)
	return out
}

// HasActiveProblem reports whether a problem is in progress.
func (s Session) HasActiveProblem() bool {
	return s.ActiveProblemID != ""
}

// PolicyState projects the session onto the hint policy's state.
func (s Session) PolicyState() hint.State {
	return hint.State{
		Phase:             s.Phase,
		HintLevel:         s.HintLevel,
		StepCount:         s.StepCount,
		StepReached:       s.StepReached,
		UnparseableStreak: s.ConsecutiveUnparseable,
		LastCategory:      s.LastErrorCategory,
	}
}

// Weak returns the weak concept IDs in sorted order.
func (s Session) Weak() []string {
	return sortedKeys(s.WeakConcepts)
}

// Mastered returns the mastered concept IDs in sorted order.
func (s Session) Mastered() []string {
	return sortedKeys(s.MasteredConcepts)
}

// Seen returns the IDs of problems presented in this session, sorted.
func (s Session) Seen() []string {
	return sortedKeys(s.SeenProblems)
}

func cloneSet(m map[string]bool) map[string]bool {
	if m == nil {
		return make(map[string]bool)
	}
	return maps.Clone(m)
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k, ok := range m {
		if ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
