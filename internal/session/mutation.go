package session

import (
	"time"

	"github.com/abhisek/mathguide/internal/hint"
	"github.com/abhisek/mathguide/internal/verify"
)

// Mutation is a pure function from one session value to the next.
type Mutation func(Session) Session

// SetActiveProblem makes id the active problem with the given number of
// canonical steps. Hint level, step progress, the unparseable streak and the
// last error category start over; attempts and concept sets are kept.
func SetActiveProblem(id string, steps int) Mutation {
	return func(s Session) Session {
		s.ActiveProblemID = id
		s.StepCount = steps
		s.HintLevel = 0
		s.StepReached = 0
		s.ConsecutiveUnparseable = 0
		s.LastErrorCategory = verify.CategoryNone
		s.Phase = hint.ProblemPresented
		s.SeenProblems = with(s.SeenProblems, id)
		return s
	}
}

// ClearActiveProblem drops the active problem and its hint state.
func ClearActiveProblem() Mutation {
	return func(s Session) Session {
		s.ActiveProblemID = ""
		s.StepCount = 0
		s.HintLevel = 0
		s.StepReached = 0
		s.ConsecutiveUnparseable = 0
		s.LastErrorCategory = verify.CategoryNone
		return s
	}
}

// AppendAttempt records a submission against the active problem at the
// current hint level. Index and timestamp are assigned here.
func AppendAttempt(input string, v verify.Verdict, at time.Time) Mutation {
	return func(s Session) Session {
		a := Attempt{
			Index:     len(s.Attempts),
			Timestamp: at,
			ProblemID: s.ActiveProblemID,
			Input:     input,
			Verdict:   v,
			HintLevel: s.HintLevel,
		}
		s.Attempts = append(s.Attempts[:len(s.Attempts):len(s.Attempts)], a)
		return s
	}
}

// RaiseHintLevel moves the hint level up to level. It never lowers it and
// never exceeds the active problem's step count.
func RaiseHintLevel(level int) Mutation {
	return func(s Session) Session {
		s.HintLevel = max(s.HintLevel, min(level, s.StepCount))
		return s
	}
}

// AdvanceStep moves step progress up to step, capped at the step count.
func AdvanceStep(step int) Mutation {
	return func(s Session) Session {
		s.StepReached = max(s.StepReached, min(step, s.StepCount))
		return s
	}
}

// AddWeakConcept adds a concept to the weak set.
func AddWeakConcept(id string) Mutation {
	return func(s Session) Session {
		if id != "" {
			s.WeakConcepts = with(s.WeakConcepts, id)
		}
		return s
	}
}

// AddMasteredConcepts adds concepts to the mastered set.
func AddMasteredConcepts(ids ...string) Mutation {
	return func(s Session) Session {
		for _, id := range ids {
			s.MasteredConcepts = with(s.MasteredConcepts, id)
		}
		return s
	}
}

// SetPhase records the policy phase.
func SetPhase(p hint.Phase) Mutation {
	return func(s Session) Session {
		s.Phase = p
		return s
	}
}

// SetUnparseableStreak records the number of consecutive unparseable
// attempts.
func SetUnparseableStreak(n int) Mutation {
	return func(s Session) Session {
		s.ConsecutiveUnparseable = n
		return s
	}
}

// SetLastCategory records the error category of the latest verdict.
func SetLastCategory(c verify.Category) Mutation {
	return func(s Session) Session {
		s.LastErrorCategory = c
		return s
	}
}

// with returns a copy of set containing key.
func with(set map[string]bool, key string) map[string]bool {
	if set[key] {
		return set
	}
	out := cloneSet(set)
	out[key] = true
	return out
}
