package corpus

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// EquivalenceFunc reports whether two answers in the verifier grammar are
// mathematically equal. Validate uses it to check that a problem's final
// answer agrees with its last step.
type EquivalenceFunc func(a, b string) (bool, error)

var (
	validateOnce sync.Once
	structs      *validator.Validate
)

// Structs returns the shared struct validator. Field names in errors use
// the json tag.
func Structs() *validator.Validate {
	validateOnce.Do(func() {
		structs = validator.New(validator.WithRequiredStructEnabled())
		structs.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return structs
}

// Validate performs all structural checks on a catalog and returns a
// combined error describing every problem found. equiv may be nil, in which
// case final answers are not checked against the last step.
func Validate(c Catalog, equiv EquivalenceFunc) error {
	var errs []string

	conceptIDs := make(map[string]bool, len(c.Concepts))
	for _, con := range c.Concepts {
		for _, msg := range structErrors(con) {
			errs = append(errs, fmt.Sprintf("concept %q: %s", con.ID, msg))
		}
		if conceptIDs[con.ID] {
			errs = append(errs, fmt.Sprintf("duplicate concept ID: %q", con.ID))
		}
		conceptIDs[con.ID] = true
	}

	for _, con := range c.Concepts {
		for _, pre := range con.Prerequisites {
			if !conceptIDs[pre] {
				errs = append(errs, fmt.Sprintf("concept %q references nonexistent prerequisite %q", con.ID, pre))
			}
			if pre == con.ID {
				errs = append(errs, fmt.Sprintf("concept %q lists itself as a prerequisite", con.ID))
			}
		}
	}

	g := NewGraph(c.Concepts)
	if len(g.topoOrder) < g.Len() {
		var cycle []string
		for _, con := range c.Concepts {
			if _, ok := g.topoIndex[con.ID]; !ok {
				cycle = append(cycle, con.ID)
			}
		}
		slices.Sort(cycle)
		cycle = slices.Compact(cycle)
		errs = append(errs, fmt.Sprintf("cycle detected involving concepts: %s", strings.Join(cycle, ", ")))
	}

	if len(c.Concepts) > 0 && len(g.Roots()) == 0 {
		errs = append(errs, "no root concepts found (at least one concept must have no prerequisites)")
	}

	known := make(map[Topic]bool)
	for _, t := range AllTopics() {
		known[t] = true
	}

	problemIDs := make(map[string]bool, len(c.Problems))
	pinned := 0
	for _, p := range c.Problems {
		for _, msg := range structErrors(p) {
			errs = append(errs, fmt.Sprintf("problem %q: %s", p.ID, msg))
		}
		if problemIDs[p.ID] {
			errs = append(errs, fmt.Sprintf("duplicate problem ID: %q", p.ID))
		}
		problemIDs[p.ID] = true
		if p.Pinned {
			pinned++
		}
		if !known[p.Topic] {
			errs = append(errs, fmt.Sprintf("problem %q has unknown topic %q", p.ID, p.Topic))
		}
		for _, cid := range p.ConceptIDs {
			if !conceptIDs[cid] {
				errs = append(errs, fmt.Sprintf("problem %q references nonexistent concept %q", p.ID, cid))
			}
		}
		for i, s := range p.Steps {
			if s.ConceptID != "" && !conceptIDs[s.ConceptID] {
				errs = append(errs, fmt.Sprintf("problem %q step %d references nonexistent concept %q", p.ID, i, s.ConceptID))
			}
		}
		if equiv != nil && len(p.Steps) > 0 {
			ok, err := equiv(p.FinalAnswer, p.Steps[p.LastStep()].Result)
			switch {
			case err != nil:
				errs = append(errs, fmt.Sprintf("problem %q: %v", p.ID, err))
			case !ok:
				errs = append(errs, fmt.Sprintf("problem %q final answer %q does not match last step %q",
					p.ID, p.FinalAnswer, p.Steps[p.LastStep()].Result))
			}
		}
	}

	if len(c.Problems) > 0 && pinned == 0 {
		errs = append(errs, "no pinned problems found (the fallback set must not be empty)")
	}

	if len(errs) > 0 {
		return fmt.Errorf("corpus validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

func structErrors(v any) []string {
	err := Structs().Struct(v)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(ve))
	for _, fe := range ve {
		out = append(out, fmt.Sprintf("field %s failed %q", fe.Namespace(), fe.Tag()))
	}
	return out
}
