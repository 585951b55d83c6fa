package verify

import (
	"sort"
	"strings"
)

// item is one expression or equation of an answer.
type item struct {
	eq       bool
	lhs, rhs poly
}

func (it item) key() string {
	if !it.eq {
		return it.lhs.String()
	}
	l, r := it.lhs.String(), it.rhs.String()
	if r < l {
		l, r = r, l
	}
	return l + " = " + r
}

// assignment reports whether the item reads "v = c" (either way round) with
// c free of variables.
func (it item) assignment() (string, poly, bool) {
	if !it.eq {
		return "", poly{}, false
	}
	if v, ok := it.lhs.variable(); ok && !it.rhs.hasVariables() {
		return v, it.rhs, true
	}
	if v, ok := it.rhs.variable(); ok && !it.lhs.hasVariables() {
		return v, it.lhs, true
	}
	return "", poly{}, false
}

// zeroForm returns the non-zero side of an equation written as "p = 0".
func (it item) zeroForm() (poly, bool) {
	switch {
	case !it.eq:
		return poly{}, false
	case it.rhs.isZero():
		return it.lhs, true
	case it.lhs.isZero():
		return it.rhs, true
	}
	return poly{}, false
}

func (it item) difference() poly {
	return sub(it.lhs, it.rhs)
}

// answer is a deduplicated set of items in canonical order.
type answer []item

func newAnswer(items []item) answer {
	seen := make(map[string]bool, len(items))
	var out answer
	for _, it := range items {
		k := it.key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key() < out[j].key() })
	return out
}

// parseAnswer normalizes raw text into an answer.
func parseAnswer(s string) (answer, error) {
	variants, err := normalizeText(s)
	if err != nil {
		return nil, err
	}
	var items []item
	for _, v := range variants {
		its, err := parse(v)
		if err != nil {
			return nil, err
		}
		items = append(items, its...)
	}
	return newAnswer(items), nil
}

func (a answer) String() string {
	parts := make([]string, len(a))
	for i, it := range a {
		parts[i] = it.key()
	}
	return strings.Join(parts, "; ")
}

// itemsEqual is the equivalence used for matching. Equations compare by
// their simplified sides in either order. An assignment "v = c" also equals
// the bare value c and the zero form "v - c = 0".
func itemsEqual(a, b item) bool {
	if a.key() == b.key() {
		return true
	}
	if !a.eq && !b.eq {
		return false
	}
	if a.eq && b.eq {
		return assignmentMatchesZeroForm(a, b) || assignmentMatchesZeroForm(b, a)
	}
	expr, eq := a, b
	if a.eq {
		expr, eq = b, a
	}
	_, val, ok := eq.assignment()
	return ok && !expr.lhs.hasVariables() && equalPoly(val, expr.lhs)
}

func assignmentMatchesZeroForm(a, b item) bool {
	v, val, ok := a.assignment()
	if !ok {
		return false
	}
	z, ok := b.zeroForm()
	if !ok {
		return false
	}
	d := sub(varPoly(v), val)
	return equalPoly(z, d) || equalPoly(z, neg(d))
}

// matching pairs every item of a with an equal item of b. It returns the
// unmatched items of each side.
func matching(a, b answer) (restA, restB answer) {
	used := make([]bool, len(b))
	for _, x := range a {
		found := false
		for j, y := range b {
			if !used[j] && itemsEqual(x, y) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			restA = append(restA, x)
		}
	}
	for j, y := range b {
		if !used[j] {
			restB = append(restB, y)
		}
	}
	return restA, restB
}

func answersEqual(a, b answer) bool {
	ra, rb := matching(a, b)
	return len(ra) == 0 && len(rb) == 0
}

// strictSuperset reports whether every item of b is matched in a and a
// has extra items.
func strictSuperset(a, b answer) bool {
	ra, rb := matching(a, b)
	return len(rb) == 0 && len(ra) > 0
}
