package phrase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/abhisek/mathguide/internal/corpus"
	"github.com/abhisek/mathguide/internal/guidance"
	"github.com/abhisek/mathguide/internal/hint"
	"github.com/abhisek/mathguide/internal/verify"
)

// ErrNothingToSay is returned when a decision references content the
// lookup cannot resolve.
var ErrNothingToSay = errors.New("phrase: nothing to say")

const messages = `
{{define "present"}}{{with .Problem}}New {{.Topic}} problem (difficulty {{.Difficulty}}): {{.Statement}}{{end}}{{end}}
{{define "correct"}}Correct!{{with .Problem}} The answer is {{.FinalAnswer}}.{{end}} Say "new" for another problem.{{end}}
{{define "reveal"}}{{with .Step}}Let's work through it. Step {{$.StepNumber}}: {{.Description}} That gives {{.Result}}.{{end}}{{end}}
{{define "explain"}}{{with .Concept}}{{.Name}}: {{.Explanation}}{{end}}{{end}}
{{define "hint"}}{{template "nudge" .}}{{end}}
{{define "flag"}}Not quite{{with .Category}}, that looks like a {{.}}{{end}}. {{template "nudge" .}}{{end}}
{{define "nudge"}}{{if le .Level 1}}{{with .Concept}}Think about {{lower .Name}}. {{.Explanation}}{{end}}{{else}}{{with .Step}}Hint {{$.Level}} of {{$.Steps}}: {{.Description}}{{end}}{{end}}{{end}}
{{define "unreadable"}}I couldn't read that as math. Write an answer like "x = 4" or "x = 2 or x = 3".{{end}}
{{define "continue"}}Good, that step checks out.{{with .Step}} Next: {{.Description}}{{end}}{{end}}
{{define "unavailable"}}I don't have a problem ready right now. Try again in a moment.{{end}}
`

var categoryText = map[verify.Category]string{
	verify.CategorySignError:        "sign error",
	verify.CategoryArithmeticSlip:   "arithmetic slip",
	verify.CategoryWrongFormula:     "wrong formula",
	verify.CategoryDomainRestricted: "missed domain restriction",
}

// view is the data a message template renders.
type view struct {
	Problem    *corpus.Problem
	Step       *corpus.Step
	StepNumber int
	Concept    *corpus.Concept
	Category   string
	Level      int
	Steps      int
}

// Template phrases decisions with fixed text templates.
type Template struct {
	lookup Lookup
	tmpl   *template.Template
}

// NewTemplate creates a template phraser reading content from lookup.
func NewTemplate(lookup Lookup) *Template {
	t := template.Must(template.New("messages").
		Funcs(template.FuncMap{"lower": strings.ToLower}).
		Parse(messages))
	return &Template{lookup: lookup, tmpl: t}
}

func (t *Template) Phrase(_ context.Context, rec guidance.DecisionRecord) (string, error) {
	name := templateFor(rec)
	var b strings.Builder
	if err := t.tmpl.ExecuteTemplate(&b, name, t.view(rec)); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	msg := strings.TrimSpace(b.String())
	if msg == "" {
		return "", fmt.Errorf("%w: %s for problem %q concept %q", ErrNothingToSay, rec.Kind, rec.Target.ProblemID, rec.Target.ConceptID)
	}
	return msg, nil
}

func (t *Template) view(rec guidance.DecisionRecord) view {
	v := view{Level: rec.HintLevel, StepNumber: rec.Target.StepIndex + 1}
	if p, ok := t.lookup.Problem(rec.Target.ProblemID); ok {
		v.Problem = &p
		v.Steps = len(p.Steps)
		if i := rec.Target.StepIndex; i >= 0 && i < len(p.Steps) {
			v.Step = &p.Steps[i]
		}
	}
	if c, ok := t.lookup.Concept(rec.Target.ConceptID); ok {
		v.Concept = &c
	}
	if rec.Verdict != nil {
		v.Category = categoryText[rec.Verdict.Category]
	}
	return v
}

func templateFor(rec guidance.DecisionRecord) string {
	switch rec.Kind {
	case hint.ActionPresentProblem:
		return "present"
	case hint.ActionConfirmCorrect:
		return "correct"
	case hint.ActionFlagError:
		return "flag"
	case hint.ActionEmitHint:
		switch {
		case rec.Reveal:
			return "reveal"
		case rec.Target.StepIndex < 0 || rec.Degraded == guidance.DegradedNoConcept:
			return "explain"
		default:
			return "hint"
		}
	default:
		switch {
		case rec.Target.ProblemID == "":
			return "unavailable"
		case rec.Verdict != nil && rec.Verdict.Status == verify.StatusUnparseable:
			return "unreadable"
		default:
			return "continue"
		}
	}
}
