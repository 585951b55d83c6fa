package phrase

import (
	"fmt"
	"strings"

	"github.com/abhisek/mathguide/internal/guidance"
)

const systemPrompt = `You are a patient, encouraging math tutor helping a student prepare for an exam. You rewrite a drafted tutor message so it sounds natural and warm. You never add facts, numbers or steps that are not in the draft.`

func buildUserMessage(rec guidance.DecisionRecord, v view, draft string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Action: %s\n", rec.Kind)
	if v.Problem != nil {
		fmt.Fprintf(&b, "Problem: %s\n", v.Problem.Statement)
	}
	if rec.HintLevel > 0 {
		fmt.Fprintf(&b, "Hint level: %d of %d\n", rec.HintLevel, v.Steps)
	}
	if v.Concept != nil {
		fmt.Fprintf(&b, "Concept: %s\n", v.Concept.Name)
	}
	if v.Category != "" {
		fmt.Fprintf(&b, "Mistake: %s\n", v.Category)
	}
	fmt.Fprintf(&b, "\nDraft:\n%s\n", draft)

	b.WriteString(`
Instructions:
1. Keep every fact, number and step from the draft.
2. Do not solve the problem or give the final answer unless the draft already does.
3. Keep it to 1-3 sentences. Use plain ASCII for math: ^ for powers, sqrt() for roots, / for fractions.`)

	return b.String()
}
