// Package verify compares student answers with canonical solution steps.
//
// Answers are normalized with this grammar:
//
//	answer   := item { sep item } [ sep ]
//	sep      := ";" | "," | "or" | "and"
//	item     := expr [ "=" expr ]
//	expr     := term { ("+"|"-") term }
//	term     := unary { ("*"|"/"|juxtaposition) unary }
//	unary    := ("+"|"-") unary | power
//	power    := postfix [ "^" unary ]
//	postfix  := atom { "%" }
//	atom     := number | letter | "(" expr ")" | "sqrt" postfix
//	number   := digits [ "." digits ] | "." digits
//
// Input is lowercased first. −, ×, ·, ÷, √, ², ³ map to their ASCII forms,
// "$" is dropped, and a single ± (also +/- or +-) expands into the two
// answers it denotes. Variables are single letters. Expressions are
// expanded into polynomials with exact rational coefficients. Square roots
// of non-negative rational constants are simplified to s·√r with r
// square-free, so √12 = 2√3 and √2·√3 = √6. Exponents must be integer
// constants in [0, 16]. Division is only by a non-zero constant term, with
// radical denominators rationalized. A product whose coefficients need more
// than 1024 bits is rejected. Comma is always a separator, never a decimal
// mark or digit grouping: "0,5" is the set {0, 5} and "1,000" is {1, 0}.
//
// Two expressions are equal when their canonical polynomials are equal, so
// 1/2, 0.5 and 2/4 agree, as do x + 1 and 1 + x. Two equations are equal
// when their simplified sides agree in either order: "2x = 8" equals
// "8 = 2x" but not "x = 4". An assignment "v = c" additionally equals the
// bare value c and the zero form "v - c = 0". An answer with several items
// is a set and compares without regard to order or repetition.
package verify

import (
	"fmt"

	"github.com/abhisek/mathguide/internal/corpus"
)

// Status is the outcome of comparing an attempt to a solution.
type Status int

const (
	StatusCorrect Status = iota
	StatusPartiallyCorrect
	StatusIncorrectStep
	StatusIncorrectFinalAnswer
	StatusUnparseable
)

func (s Status) String() string {
	switch s {
	case StatusCorrect:
		return "correct"
	case StatusPartiallyCorrect:
		return "partially-correct"
	case StatusIncorrectStep:
		return "incorrect-step"
	case StatusIncorrectFinalAnswer:
		return "incorrect-final-answer"
	case StatusUnparseable:
		return "unparseable"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name.
func (s *Status) UnmarshalText(b []byte) error {
	for c := StatusCorrect; c <= StatusUnparseable; c++ {
		if c.String() == string(b) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown verdict status %q", b)
}

// AnyStep asks Verify to locate the attempt anywhere in the solution.
const AnyStep = -1

// NoStep marks a verdict that matched no canonical step.
const NoStep = -1

// Verdict is the structured result of Verify.
type Verdict struct {
	Status      Status   `json:"status"`
	MatchedStep int      `json:"matched_step"`
	Category    Category `json:"category,omitempty"`
	Normalized  string   `json:"normalized,omitempty"`
}

// Matched reports whether the verdict points at a canonical step.
func (v Verdict) Matched() bool {
	return v.MatchedStep != NoStep
}

// Verify compares input with the canonical solution of p. stepIndex is the
// step the student is expected to be on, or AnyStep. It is pure: the same
// arguments always give the same verdict.
func Verify(input string, p corpus.Problem, stepIndex int) Verdict {
	student, err := parseAnswer(input)
	if err != nil {
		return Verdict{Status: StatusUnparseable, MatchedStep: NoStep}
	}
	v := compare(student, p, stepIndex)
	v.Normalized = student.String()
	return v
}

func compare(student answer, p corpus.Problem, stepIndex int) Verdict {
	n := len(p.Steps)
	if n == 0 {
		return Verdict{Status: StatusIncorrectFinalAnswer, MatchedStep: NoStep, Category: CategoryOther}
	}
	last := n - 1
	steps := make([]answer, n)
	for i, s := range p.Steps {
		steps[i], _ = parseAnswer(s.Result)
	}
	final, err := parseAnswer(p.FinalAnswer)
	if err != nil {
		final = steps[last]
	}
	matches := func(i int) bool {
		if i == last {
			return final != nil && answersEqual(student, final)
		}
		return steps[i] != nil && answersEqual(student, steps[i])
	}

	if stepIndex < 0 {
		if matches(last) {
			return Verdict{Status: StatusCorrect, MatchedStep: last}
		}
		for j := 0; j < last; j++ {
			if matches(j) {
				return Verdict{Status: StatusPartiallyCorrect, MatchedStep: j}
			}
		}
		return Verdict{Status: StatusIncorrectFinalAnswer, MatchedStep: NoStep, Category: categorize(student, final)}
	}

	i := min(stepIndex, last)
	if matches(i) {
		return Verdict{Status: StatusCorrect, MatchedStep: i}
	}
	if i != last && matches(last) {
		return Verdict{Status: StatusCorrect, MatchedStep: last}
	}
	for j := range n {
		if j == i || !matches(j) {
			continue
		}
		if j < i {
			return Verdict{Status: StatusPartiallyCorrect, MatchedStep: j}
		}
		return Verdict{Status: StatusCorrect, MatchedStep: j}
	}

	expected := steps[i]
	status := StatusIncorrectStep
	if i == last {
		expected, status = final, StatusIncorrectFinalAnswer
	}
	return Verdict{Status: status, MatchedStep: NoStep, Category: categorize(student, expected)}
}

func categorize(student, expected answer) Category {
	if expected == nil {
		return CategoryOther
	}
	return classify(student, expected)
}

// Equivalent reports whether two answers are equal under the grammar. It
// fails when either side does not parse.
func Equivalent(a, b string) (bool, error) {
	x, err := parseAnswer(a)
	if err != nil {
		return false, err
	}
	y, err := parseAnswer(b)
	if err != nil {
		return false, err
	}
	return answersEqual(x, y), nil
}

// Normalize returns the canonical rendering of an answer.
func Normalize(s string) (string, error) {
	a, err := parseAnswer(s)
	if err != nil {
		return "", err
	}
	return a.String(), nil
}
