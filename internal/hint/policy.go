// Package hint implements the pedagogical state machine that turns a
// verification result into the next tutoring action.
package hint

import (
	"fmt"

	"github.com/abhisek/mathguide/internal/corpus"
	"github.com/abhisek/mathguide/internal/verify"
)

// MaxUnparseable is the number of consecutive unparseable attempts after
// which the policy stops re-prompting and reveals the next step.
const MaxUnparseable = 3

// Phase is the policy state of a session.
type Phase int

const (
	AwaitingProblem Phase = iota
	ProblemPresented
	AwaitingAttempt
	Correct
	Stuck
	SessionIdle
)

func (p Phase) String() string {
	switch p {
	case AwaitingProblem:
		return "awaiting-problem"
	case ProblemPresented:
		return "problem-presented"
	case AwaitingAttempt:
		return "awaiting-attempt"
	case Correct:
		return "correct"
	case Stuck:
		return "stuck"
	case SessionIdle:
		return "session-idle"
	default:
		return "unknown"
	}
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(b []byte) error {
	for c := AwaitingProblem; c <= SessionIdle; c++ {
		if c.String() == string(b) {
			*p = c
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", b)
}

// Active reports whether a problem is in progress in this phase.
func (p Phase) Active() bool {
	return p == ProblemPresented || p == AwaitingAttempt || p == Stuck
}

// Action is the kind of decision surfaced to the front end.
type Action string

const (
	ActionNone              Action = ""
	ActionPresentProblem    Action = "present-problem"
	ActionConfirmCorrect    Action = "confirm-correct"
	ActionEmitHint          Action = "emit-hint"
	ActionFlagError         Action = "flag-error"
	ActionRequestNewAttempt Action = "request-new-attempt"
)

// State is the part of a session the policy reads and writes.
type State struct {
	Phase             Phase
	HintLevel         int
	StepCount         int
	StepReached       int
	UnparseableStreak int
	LastCategory      verify.Category
}

// Event is one of ProblemSupplied, AttemptVerified, HintRequested,
// Abandoned or SessionEnded.
type Event interface {
	event()
}

// ProblemSupplied makes p the active problem.
type ProblemSupplied struct {
	Problem corpus.Problem
}

// AttemptVerified carries the verifier's verdict on a submission for the
// active problem.
type AttemptVerified struct {
	Problem corpus.Problem
	Verdict verify.Verdict
}

// HintRequested is an explicit request for help on the active problem.
type HintRequested struct {
	Problem corpus.Problem
}

// Abandoned drops the active problem.
type Abandoned struct{}

// SessionEnded is the front end's end-of-life signal.
type SessionEnded struct{}

func (ProblemSupplied) event() {}
func (AttemptVerified) event() {}
func (HintRequested) event()   {}
func (Abandoned) event()       {}
func (SessionEnded) event()    {}

// Outcome is the result of one transition.
type Outcome struct {
	Next   State
	Action Action
	// TargetStep is the canonical step the action refers to, or -1.
	TargetStep int
	Reveal     bool
	// WeakConcept is set when the attempt flags a concept as weak.
	WeakConcept string
	// Mastered lists concepts completed by solving the problem.
	Mastered     []string
	ClearProblem bool
}

// Decide is the transition function. It is pure and total: every phase
// and event pair yields exactly one outcome.
func Decide(s State, e Event) Outcome {
	switch ev := e.(type) {
	case ProblemSupplied:
		return present(ev.Problem)
	case AttemptVerified:
		if !s.Phase.Active() {
			return unchanged(s)
		}
		return attempt(s, ev)
	case HintRequested:
		if !s.Phase.Active() {
			return unchanged(s)
		}
		return escalate(s, ev.Problem, verify.CategoryNone, false)
	case Abandoned:
		if !s.Phase.Active() {
			return unchanged(s)
		}
		return Outcome{Next: State{Phase: AwaitingProblem}, TargetStep: -1, ClearProblem: true}
	case SessionEnded:
		return Outcome{Next: State{Phase: SessionIdle}, TargetStep: -1, ClearProblem: s.Phase.Active()}
	default:
		panic("hint: unknown event type")
	}
}

func unchanged(s State) Outcome {
	return Outcome{Next: s, TargetStep: -1}
}

func present(p corpus.Problem) Outcome {
	return Outcome{
		Next:       State{Phase: ProblemPresented, StepCount: len(p.Steps)},
		Action:     ActionPresentProblem,
		TargetStep: -1,
	}
}

func attempt(s State, ev AttemptVerified) Outcome {
	v := ev.Verdict
	switch v.Status {
	case verify.StatusUnparseable:
		next := s
		next.UnparseableStreak++
		next.LastCategory = verify.CategoryNone
		if next.UnparseableStreak >= MaxUnparseable {
			next.UnparseableStreak = 0
			return reveal(next)
		}
		next.Phase = AwaitingAttempt
		return Outcome{Next: next, Action: ActionRequestNewAttempt, TargetStep: currentStep(s)}

	case verify.StatusCorrect:
		next := s
		next.UnparseableStreak = 0
		next.LastCategory = verify.CategoryNone
		if v.MatchedStep >= s.StepCount-1 {
			next.Phase = Correct
			next.StepReached = s.StepCount
			return Outcome{
				Next:         next,
				Action:       ActionConfirmCorrect,
				TargetStep:   s.StepCount - 1,
				Mastered:     append([]string(nil), ev.Problem.ConceptIDs...),
				ClearProblem: true,
			}
		}
		next.Phase = AwaitingAttempt
		next.StepReached = max(s.StepReached, v.MatchedStep+1)
		return Outcome{Next: next, Action: ActionRequestNewAttempt, TargetStep: currentStep(next)}

	case verify.StatusPartiallyCorrect, verify.StatusIncorrectStep, verify.StatusIncorrectFinalAnswer:
		next := s
		next.UnparseableStreak = 0
		return escalate(next, ev.Problem, v.Category, true)

	default:
		panic("hint: unknown verdict status")
	}
}

// escalate raises the hint level by one, capped at the step count. At the
// cap the next step is revealed outright.
func escalate(s State, p corpus.Problem, cat verify.Category, fromVerdict bool) Outcome {
	next := s
	next.HintLevel = min(s.HintLevel+1, s.StepCount)
	target := currentStep(s)

	var weak string
	if fromVerdict {
		if cat != verify.CategoryNone && cat == s.LastCategory {
			weak = p.ImplicatedConcept(target)
		}
		next.LastCategory = cat
	}

	if next.HintLevel >= s.StepCount {
		out := reveal(next)
		out.WeakConcept = weak
		return out
	}

	action := ActionEmitHint
	if cat != verify.CategoryNone && cat != verify.CategoryOther {
		action = ActionFlagError
	}
	next.Phase = AwaitingAttempt
	return Outcome{Next: next, Action: action, TargetStep: target, WeakConcept: weak}
}

// reveal shows the step the student is on and moves them past it.
func reveal(s State) Outcome {
	target := currentStep(s)
	next := s
	next.Phase = Stuck
	if target >= 0 {
		next.StepReached = min(target+1, s.StepCount)
	}
	return Outcome{Next: next, Action: ActionEmitHint, TargetStep: target, Reveal: true}
}

// currentStep is the step the student is working on, clamped to the last
// step, or -1 for a problem without steps.
func currentStep(s State) int {
	if s.StepCount == 0 {
		return -1
	}
	return min(max(s.StepReached, 0), s.StepCount-1)
}
