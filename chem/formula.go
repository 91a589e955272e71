package chem

import (
	"strconv"
	"strings"

	"github.com/YuminosukeSato/matprop/pkg/errors"
)

// ErrMalformedFormula is returned by ParseFormula for text it cannot read.
var ErrMalformedFormula = errors.New("malformed formula")

var closerFor = map[byte]byte{'(': ')', '[': ']', '{': '}'}

// ParseFormula reads a single formula without blend separators or a leading
// coefficient, e.g. "Ba0.85Ca0.15(Ti0.9Zr0.1)O3", and returns the amount of
// every element symbol it names. Symbols outside the vocabulary are kept.
// An empty string yields an empty map.
func ParseFormula(formula string) (map[string]float64, error) {
	p := &formulaParser{src: formula}
	amounts, err := p.group(0)
	if err != nil {
		return nil, err
	}
	return amounts, nil
}

type formulaParser struct {
	src string
	pos int
}

// group parses until closer, or end of input when closer is 0.
func (p *formulaParser) group(closer byte) (map[string]float64, error) {
	out := make(map[string]float64)
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case isUpper(c):
			sym := p.symbol()
			n, err := p.count()
			if err != nil {
				return nil, err
			}
			out[sym] += n
		case c == '(' || c == '[' || c == '{':
			p.pos++
			inner, err := p.group(closerFor[c])
			if err != nil {
				return nil, err
			}
			n, err := p.count()
			if err != nil {
				return nil, err
			}
			for sym, v := range inner {
				out[sym] += v * n
			}
		case c == ')' || c == ']' || c == '}':
			if c != closer {
				return nil, errors.Wrapf(ErrMalformedFormula, "unexpected %q at offset %d", c, p.pos)
			}
			p.pos++
			return out, nil
		default:
			return nil, errors.Wrapf(ErrMalformedFormula, "unexpected %q at offset %d", c, p.pos)
		}
	}
	if closer != 0 {
		return nil, errors.Wrapf(ErrMalformedFormula, "missing %q", closer)
	}
	return out, nil
}

func (p *formulaParser) symbol() string {
	start := p.pos
	p.pos++
	for p.pos < len(p.src) && isLower(p.src[p.pos]) {
		p.pos++
	}
	return cleanSymbol(p.src[start:p.pos])
}

// count reads an optional subscript. A missing subscript counts as 1.
func (p *formulaParser) count() (float64, error) {
	start := p.pos
	for p.pos < len(p.src) && (isDigit(p.src[p.pos]) || p.src[p.pos] == '.') {
		p.pos++
	}
	if start == p.pos {
		return 1, nil
	}
	text := p.src[start:p.pos]
	if !isNumber(text) {
		return 0, errors.Wrapf(ErrMalformedFormula, "bad subscript %q", text)
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrMalformedFormula, "bad subscript %q", text)
	}
	return v, nil
}

// cleanSymbol drops any digits left attached to a symbol.
func cleanSymbol(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return -1
		}
		return r
	}, s)
}

func isUpper(c byte) bool { return c >= 'A' && c <= 'Z' }
func isLower(c byte) bool { return c >= 'a' && c <= 'z' }
func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// isNumber accepts digits with at most one decimal point and at least one digit.
func isNumber(s string) bool {
	digits, dots := 0, 0
	for i := 0; i < len(s); i++ {
		switch {
		case isDigit(s[i]):
			digits++
		case s[i] == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}
