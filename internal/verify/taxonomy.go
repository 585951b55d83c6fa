package verify

import "math/big"

// Category is an error category from the fixed taxonomy.
type Category string

const (
	CategoryNone             Category = ""
	CategorySignError        Category = "sign-error"
	CategoryArithmeticSlip   Category = "arithmetic-slip"
	CategoryWrongFormula     Category = "wrong-formula"
	CategoryDomainRestricted Category = "domain-restriction-missed"
	CategoryOther            Category = "other"
)

// AllCategories returns every non-empty category.
func AllCategories() []Category {
	return []Category{
		CategorySignError,
		CategoryArithmeticSlip,
		CategoryWrongFormula,
		CategoryDomainRestricted,
		CategoryOther,
	}
}

// rank orders categories from most to least specific.
func (c Category) rank() int {
	switch c {
	case CategorySignError:
		return 0
	case CategoryArithmeticSlip:
		return 1
	case CategoryWrongFormula:
		return 2
	default:
		return 3
	}
}

func worse(a, b Category) Category {
	if b.rank() > a.rank() {
		return b
	}
	return a
}

func better(a, b Category) Category {
	if b.rank() < a.rank() {
		return b
	}
	return a
}

// classify compares a wrong student answer to the expected one by structure.
func classify(student, expected answer) Category {
	if strictSuperset(student, expected) {
		return CategoryDomainRestricted
	}
	restS, restE := matching(student, expected)
	if len(restS) == 0 || len(restS) != len(restE) {
		return CategoryOther
	}

	used := make([]bool, len(restE))
	result := CategorySignError
	for _, s := range restS {
		best, bestJ := CategoryOther, -1
		for j, e := range restE {
			if used[j] {
				continue
			}
			if c := classifyItem(s, e); bestJ < 0 || c.rank() < best.rank() {
				best, bestJ = c, j
			}
		}
		used[bestJ] = true
		result = worse(result, best)
	}
	return result
}

func classifyItem(s, e item) Category {
	if !s.eq && !e.eq {
		return classifyPoly(s.lhs, e.lhs)
	}
	if s.eq != e.eq {
		expr, eq := s, e
		if s.eq {
			expr, eq = e, s
		}
		if _, val, ok := eq.assignment(); ok && !expr.lhs.hasVariables() {
			if s.eq {
				return classifyPoly(val, expr.lhs)
			}
			return classifyPoly(expr.lhs, val)
		}
		return CategoryWrongFormula
	}

	// One side already agrees: judge the other side alone.
	switch {
	case equalPoly(s.lhs, e.lhs):
		return classifyPoly(s.rhs, e.rhs)
	case equalPoly(s.rhs, e.rhs):
		return classifyPoly(s.lhs, e.lhs)
	case equalPoly(s.lhs, e.rhs):
		return classifyPoly(s.rhs, e.lhs)
	case equalPoly(s.rhs, e.lhs):
		return classifyPoly(s.lhs, e.rhs)
	}
	ds, de := s.difference(), e.difference()
	return better(classifyPoly(ds, de), classifyPoly(neg(ds), de))
}

// classifyPoly assumes s and e differ.
func classifyPoly(s, e poly) Category {
	if equalPoly(s, neg(e)) {
		return CategorySignError
	}
	_, sConst := s.rational()
	_, eConst := e.rational()
	if sConst && eConst {
		return CategoryArithmeticSlip
	}
	if !sameStructure(s, e) {
		return CategoryWrongFormula
	}
	for k, ts := range s.terms {
		if new(big.Rat).Abs(ts.coef).Cmp(new(big.Rat).Abs(e.terms[k].coef)) != 0 {
			return CategoryArithmeticSlip
		}
	}
	return CategorySignError
}
