package verify

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"unicode"
)

// ErrUnparseable is returned when input is not in the answer grammar.
var ErrUnparseable = errors.New("unparseable answer")

const maxInputLen = 256

type parseError struct {
	msg string
}

func fail(format string, args ...any) {
	panic(parseError{msg: fmt.Sprintf(format, args...)})
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNum
	tokIdent
	tokSqrt
	tokSep
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokCaret
	tokPercent
	tokLParen
	tokRParen
	tokEq
)

type token struct {
	kind tokenKind
	text string
	num  *big.Rat
}

var replacer = strings.NewReplacer(
	"−", "-",
	"–", "-",
	"×", "*",
	"·", "*",
	"÷", "/",
	"√", "sqrt",
	"²", "^2",
	"³", "^3",
	"+/-", "±",
	"+-", "±",
	"$", "",
)

// normalizeText lowercases and maps unicode operators to ASCII. It returns
// one variant per sign when the input contains a single ±.
func normalizeText(s string) ([]string, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return nil, fmt.Errorf("%w: empty input", ErrUnparseable)
	}
	if len(s) > maxInputLen {
		return nil, fmt.Errorf("%w: input too long", ErrUnparseable)
	}
	s = replacer.Replace(s)
	s = strings.TrimSuffix(s, ".")

	switch strings.Count(s, "±") {
	case 0:
		return []string{s}, nil
	case 1:
		return []string{strings.Replace(s, "±", "+", 1), strings.Replace(s, "±", "-", 1)}, nil
	default:
		return nil, fmt.Errorf("%w: more than one ±", ErrUnparseable)
	}
}

func lex(s string) ([]token, error) {
	var toks []token
	rs := []rune(s)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case unicode.IsDigit(r) || (r == '.' && i+1 < len(rs) && unicode.IsDigit(rs[i+1])):
			j := i
			for j < len(rs) && unicode.IsDigit(rs[j]) {
				j++
			}
			if j < len(rs) && rs[j] == '.' {
				j++
				if j >= len(rs) || !unicode.IsDigit(rs[j]) {
					return nil, fmt.Errorf("%w: malformed number", ErrUnparseable)
				}
				for j < len(rs) && unicode.IsDigit(rs[j]) {
					j++
				}
			}
			text := string(rs[i:j])
			n, ok := new(big.Rat).SetString(text)
			if !ok {
				return nil, fmt.Errorf("%w: malformed number %q", ErrUnparseable, text)
			}
			toks = append(toks, token{kind: tokNum, text: text, num: n})
			i = j
		case unicode.IsLetter(r):
			j := i
			for j < len(rs) && unicode.IsLetter(rs[j]) {
				j++
			}
			word := string(rs[i:j])
			switch {
			case word == "sqrt":
				toks = append(toks, token{kind: tokSqrt, text: word})
			case word == "or" || word == "and":
				toks = append(toks, token{kind: tokSep, text: word})
			case len([]rune(word)) == 1 && r >= 'a' && r <= 'z':
				toks = append(toks, token{kind: tokIdent, text: word})
			default:
				return nil, fmt.Errorf("%w: unknown word %q", ErrUnparseable, word)
			}
			i = j
		default:
			kind, ok := punct[r]
			if !ok {
				return nil, fmt.Errorf("%w: unexpected character %q", ErrUnparseable, r)
			}
			toks = append(toks, token{kind: kind, text: string(r)})
			i++
		}
	}
	return append(toks, token{kind: tokEOF}), nil
}

var punct = map[rune]tokenKind{
	'+': tokPlus,
	'-': tokMinus,
	'*': tokStar,
	'/': tokSlash,
	'^': tokCaret,
	'%': tokPercent,
	'(': tokLParen,
	')': tokRParen,
	'=': tokEq,
	';': tokSep,
	',': tokSep,
}

type parser struct {
	toks []token
	pos  int
	last tokenKind
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	p.last = t.kind
	return t
}

func (p *parser) expect(k tokenKind, what string) {
	if p.peek().kind != k {
		fail("expected %s", what)
	}
	p.next()
}

// parse turns one normalized string into answer items.
func parse(s string) (items []item, err error) {
	toks, err := lex(s)
	if err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			pe, ok := r.(parseError)
			if !ok {
				panic(r)
			}
			items, err = nil, fmt.Errorf("%w: %s", ErrUnparseable, pe.msg)
		}
	}()

	p := &parser{toks: toks, last: tokEOF}
	items = append(items, p.item())
	for p.peek().kind == tokSep {
		p.next()
		if p.peek().kind == tokEOF {
			break
		}
		items = append(items, p.item())
	}
	if p.peek().kind != tokEOF {
		fail("unexpected %q", p.peek().text)
	}
	return items, nil
}

func (p *parser) item() item {
	lhs := p.expr()
	if p.peek().kind != tokEq {
		return item{lhs: lhs}
	}
	p.next()
	rhs := p.expr()
	if p.peek().kind == tokEq {
		fail("chained equation")
	}
	return item{eq: true, lhs: lhs, rhs: rhs}
}

func (p *parser) expr() poly {
	acc := p.term()
	for {
		switch p.peek().kind {
		case tokPlus:
			p.next()
			acc = add(acc, p.term())
		case tokMinus:
			p.next()
			acc = sub(acc, p.term())
		default:
			return acc
		}
	}
}

func (p *parser) term() poly {
	acc := p.unary()
	for {
		switch k := p.peek().kind; {
		case k == tokStar:
			p.next()
			acc = mul(acc, p.unary())
		case k == tokSlash:
			p.next()
			acc = div(acc, p.unary())
		case p.implicitProduct():
			acc = mul(acc, p.unary())
		default:
			return acc
		}
	}
}

// implicitProduct reports juxtaposition such as 2x, 3(x+1), x sqrt(2) or
// (x-2)(x-3).
func (p *parser) implicitProduct() bool {
	switch p.last {
	case tokNum, tokIdent, tokRParen, tokPercent:
	default:
		return false
	}
	switch p.peek().kind {
	case tokIdent, tokLParen, tokSqrt:
		return true
	}
	return false
}

func (p *parser) unary() poly {
	switch p.peek().kind {
	case tokMinus:
		p.next()
		return neg(p.unary())
	case tokPlus:
		p.next()
		return p.unary()
	}
	return p.power()
}

func (p *parser) power() poly {
	base := p.postfix()
	if p.peek().kind != tokCaret {
		return base
	}
	p.next()
	e, ok := p.unary().rational()
	if !ok || !e.IsInt() || e.Sign() < 0 || !e.Num().IsInt64() || e.Num().Int64() > maxExponent {
		fail("exponent must be an integer between 0 and %d", maxExponent)
	}
	return pow(base, int(e.Num().Int64()))
}

func (p *parser) postfix() poly {
	a := p.atom()
	for p.peek().kind == tokPercent {
		p.next()
		a = div(a, intPoly(100))
	}
	return a
}

func (p *parser) atom() poly {
	t := p.next()
	switch t.kind {
	case tokNum:
		return constPoly(t.num)
	case tokIdent:
		return varPoly(t.text)
	case tokLParen:
		inner := p.expr()
		p.expect(tokRParen, "closing parenthesis")
		return inner
	case tokSqrt:
		return sqrtPoly(p.postfix())
	case tokEOF:
		fail("unexpected end of input")
	default:
		fail("unexpected %q", t.text)
	}
	return poly{}
}
