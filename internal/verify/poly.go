package verify

import (
	"math/big"
	"sort"
	"strconv"
	"strings"
)

const (
	maxExponent = 16
	maxTerms    = 256
	// maxCoefBits bounds numerator plus denominator bits of a product.
	maxCoefBits = 1024
	maxRadicand = 1_000_000_000_000
)

// factor is one variable or radical raised to a positive power. Radicals are
// square roots of square-free integers and carry their radicand.
type factor struct {
	name     string
	exp      int
	radicand int64
}

type monomial []factor

func (m monomial) key() string {
	if len(m) == 0 {
		return ""
	}
	parts := make([]string, len(m))
	for i, f := range m {
		if f.exp == 1 {
			parts[i] = f.name
		} else {
			parts[i] = f.name + "^" + strconv.Itoa(f.exp)
		}
	}
	return strings.Join(parts, "*")
}

// degree counts variable exponents only; radicals are constants.
func (m monomial) degree() int {
	d := 0
	for _, f := range m {
		if f.radicand == 0 {
			d += f.exp
		}
	}
	return d
}

func (m monomial) hasVariables() bool {
	for _, f := range m {
		if f.radicand == 0 {
			return true
		}
	}
	return false
}

type term struct {
	mono monomial
	coef *big.Rat
}

// poly is a polynomial over exact rationals in single-letter variables and
// square-root atoms. The zero polynomial has no terms.
type poly struct {
	terms map[string]term
}

func newPoly() poly {
	return poly{terms: make(map[string]term)}
}

func constPoly(r *big.Rat) poly {
	p := newPoly()
	p.addTerm(nil, r)
	return p
}

func intPoly(n int64) poly {
	return constPoly(new(big.Rat).SetInt64(n))
}

func varPoly(name string) poly {
	p := newPoly()
	p.addTerm(monomial{{name: name, exp: 1}}, big.NewRat(1, 1))
	return p
}

func (p poly) addTerm(m monomial, c *big.Rat) {
	if c.Sign() == 0 {
		return
	}
	k := m.key()
	if t, ok := p.terms[k]; ok {
		sum := new(big.Rat).Add(t.coef, c)
		if sum.Sign() == 0 {
			delete(p.terms, k)
			return
		}
		p.terms[k] = term{mono: t.mono, coef: sum}
		return
	}
	p.terms[k] = term{mono: m, coef: new(big.Rat).Set(c)}
	if len(p.terms) > maxTerms {
		fail("expression too large")
	}
}

func (p poly) isZero() bool {
	return len(p.terms) == 0
}

// rational returns the value of a purely rational constant.
func (p poly) rational() (*big.Rat, bool) {
	switch len(p.terms) {
	case 0:
		return new(big.Rat), true
	case 1:
		t, ok := p.terms[""]
		if !ok {
			return nil, false
		}
		return new(big.Rat).Set(t.coef), true
	default:
		return nil, false
	}
}

func (p poly) hasVariables() bool {
	for _, t := range p.terms {
		if t.mono.hasVariables() {
			return true
		}
	}
	return false
}

// variable returns the variable name when p is exactly that variable.
func (p poly) variable() (string, bool) {
	if len(p.terms) != 1 {
		return "", false
	}
	for _, t := range p.terms {
		if len(t.mono) == 1 && t.mono[0].radicand == 0 && t.mono[0].exp == 1 && t.coef.Cmp(big.NewRat(1, 1)) == 0 {
			return t.mono[0].name, true
		}
	}
	return "", false
}

func add(a, b poly) poly {
	out := newPoly()
	for _, t := range a.terms {
		out.addTerm(t.mono, t.coef)
	}
	for _, t := range b.terms {
		out.addTerm(t.mono, t.coef)
	}
	return out
}

func neg(a poly) poly {
	out := newPoly()
	for _, t := range a.terms {
		out.addTerm(t.mono, new(big.Rat).Neg(t.coef))
	}
	return out
}

func sub(a, b poly) poly {
	return add(a, neg(b))
}

func mul(a, b poly) poly {
	out := newPoly()
	for _, ta := range a.terms {
		for _, tb := range b.terms {
			m, c := mulMonomial(ta.mono, tb.mono)
			c.Mul(c, new(big.Rat).Mul(ta.coef, tb.coef))
			if c.Num().BitLen()+c.Denom().BitLen() > maxCoefBits {
				fail("expression too large")
			}
			out.addTerm(m, c)
		}
	}
	return out
}

func pow(a poly, n int) poly {
	out := intPoly(1)
	for range n {
		out = mul(out, a)
	}
	return out
}

// mulMonomial multiplies two monomials and folds radicals so that at most
// one square-free radical remains. The returned rational is the factor
// pulled out of the radicals.
func mulMonomial(a, b monomial) (monomial, *big.Rat) {
	exps := make(map[string]factor, len(a)+len(b))
	for _, f := range append(append(monomial{}, a...), b...) {
		cur, ok := exps[f.name]
		if !ok {
			exps[f.name] = f
			continue
		}
		cur.exp += f.exp
		exps[f.name] = cur
	}

	coef := big.NewRat(1, 1)
	odd := big.NewInt(1)
	var out monomial
	for _, f := range exps {
		if f.radicand == 0 {
			out = append(out, f)
			continue
		}
		k := big.NewInt(f.radicand)
		coef.Mul(coef, new(big.Rat).SetInt(new(big.Int).Exp(k, big.NewInt(int64(f.exp/2)), nil)))
		if f.exp%2 == 1 {
			odd.Mul(odd, k)
		}
	}
	if odd.Cmp(big.NewInt(1)) != 0 {
		s, r := squareFree(odd)
		coef.Mul(coef, new(big.Rat).SetInt64(s))
		if r > 1 {
			out = append(out, radicalFactor(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out, coef
}

func radicalFactor(r int64) factor {
	return factor{name: "√" + strconv.FormatInt(r, 10), exp: 1, radicand: r}
}

// squareFree splits n into s²·r with r square-free.
func squareFree(n *big.Int) (s, r int64) {
	if !n.IsInt64() || n.Int64() > maxRadicand {
		fail("radicand too large")
	}
	v := n.Int64()
	s, r = 1, 1
	for d := int64(2); d*d <= v; d++ {
		for v%(d*d) == 0 {
			v /= d * d
			s *= d
		}
		if v%d == 0 {
			v /= d
			r *= d
		}
	}
	return s, r * v
}

// sqrtPoly takes the principal square root of a non-negative rational.
func sqrtPoly(a poly) poly {
	c, ok := a.rational()
	if !ok {
		fail("square root of a non-constant")
	}
	if c.Sign() < 0 {
		fail("square root of a negative number")
	}
	if c.Sign() == 0 {
		return newPoly()
	}
	m := new(big.Int).Mul(c.Num(), c.Denom())
	s, r := squareFree(m)
	coef := new(big.Rat).SetFrac(big.NewInt(s), c.Denom())
	out := newPoly()
	if r == 1 {
		out.addTerm(nil, coef)
	} else {
		out.addTerm(monomial{radicalFactor(r)}, coef)
	}
	return out
}

// div divides by a single non-zero constant term, rationalizing a radical
// denominator.
func div(a, b poly) poly {
	if b.isZero() {
		fail("division by zero")
	}
	if len(b.terms) != 1 || b.hasVariables() {
		fail("division by a non-constant")
	}
	var t term
	for _, v := range b.terms {
		t = v
	}
	inv := newPoly()
	switch len(t.mono) {
	case 0:
		inv.addTerm(nil, new(big.Rat).Inv(t.coef))
	case 1:
		r := t.mono[0].radicand
		den := new(big.Rat).Mul(t.coef, new(big.Rat).SetInt64(r))
		inv.addTerm(t.mono, den.Inv(den))
	default:
		fail("division by a non-constant")
	}
	return mul(a, inv)
}

func equalPoly(a, b poly) bool {
	return a.String() == b.String()
}

// sameStructure reports whether both polynomials have the same set of
// monomials.
func sameStructure(a, b poly) bool {
	if len(a.terms) != len(b.terms) {
		return false
	}
	for k := range a.terms {
		if _, ok := b.terms[k]; !ok {
			return false
		}
	}
	return true
}

// sortedTerms orders terms by descending degree, then by monomial key.
func (p poly) sortedTerms() []term {
	out := make([]term, 0, len(p.terms))
	for _, t := range p.terms {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		di, dj := out[i].mono.degree(), out[j].mono.degree()
		if di != dj {
			return di > dj
		}
		return out[i].mono.key() < out[j].mono.key()
	})
	return out
}

// String renders the canonical form, e.g. "x^2 - 5x + 6" or "2*√3".
func (p poly) String() string {
	if p.isZero() {
		return "0"
	}
	var b strings.Builder
	for i, t := range p.sortedTerms() {
		c := new(big.Rat).Set(t.coef)
		switch {
		case i == 0 && c.Sign() < 0:
			b.WriteString("-")
			c.Neg(c)
		case i > 0 && c.Sign() < 0:
			b.WriteString(" - ")
			c.Neg(c)
		case i > 0:
			b.WriteString(" + ")
		}
		k := t.mono.key()
		switch {
		case k == "":
			b.WriteString(c.RatString())
		case c.Cmp(big.NewRat(1, 1)) == 0:
			b.WriteString(k)
		default:
			b.WriteString(c.RatString())
			b.WriteString("*")
			b.WriteString(k)
		}
	}
	return b.String()
}
