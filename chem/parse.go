package chem

import (
	"strconv"
	"strings"
)

// Term is one component of a blend formula after splitting.
type Term struct {
	// Raw is the term text as split from the normalized formula.
	Raw string
	// Multiplier is the leading coefficient, 1 when absent.
	Multiplier float64
	// Formula is the text left after removing the coefficient and "*" markers.
	Formula string
	// Amounts holds every parsed symbol, already multiplied, including
	// symbols outside the vocabulary.
	Amounts map[string]float64
	// Skipped is set when the term could not be read. Reason says why.
	Skipped bool
	Reason  string
}

// Parse converts a formula into a composition vector. It never fails:
// unreadable terms and unknown elements are ignored, and a formula with no
// recognized elements yields the zero composition.
func Parse(formula string) Composition {
	var c Composition
	for _, t := range ParseTerms(formula) {
		if t.Skipped {
			continue
		}
		for sym, v := range t.Amounts {
			if i, ok := IndexOf(sym); ok {
				c[i] += v
			}
		}
	}
	return c
}

// ParseTerms removes whitespace, splits formula into blend terms and parses
// each one. Empty terms are omitted.
func ParseTerms(formula string) []Term {
	normalized := NormalizeBlend(strings.Join(strings.Fields(formula), ""))
	parts := strings.FieldsFunc(normalized, func(r rune) bool { return r == '-' || r == '+' })

	terms := make([]Term, 0, len(parts))
	for _, raw := range parts {
		terms = append(terms, parseTerm(raw))
	}
	return terms
}

func parseTerm(raw string) Term {
	t := Term{Raw: raw, Multiplier: 1}

	rest := raw
	end := 0
	for end < len(rest) && (isDigit(rest[end]) || rest[end] == '.') {
		end++
	}
	if end > 0 {
		coeff := rest[:end]
		if !isNumber(coeff) {
			t.Skipped, t.Reason = true, "bad coefficient "+strconv.Quote(coeff)
			return t
		}
		v, err := strconv.ParseFloat(coeff, 64)
		if err != nil {
			t.Skipped, t.Reason = true, "bad coefficient "+strconv.Quote(coeff)
			return t
		}
		t.Multiplier = v
		rest = rest[end:]
	}
	t.Formula = strings.TrimLeft(rest, "*")

	amounts, err := ParseFormula(t.Formula)
	if err != nil {
		t.Skipped, t.Reason = true, err.Error()
		return t
	}
	for sym, v := range amounts {
		amounts[sym] = v * t.Multiplier
	}
	t.Amounts = amounts
	return t
}

// NormalizeBlend rewrites dot-separated blends into dash-separated ones.
//
// A dot directly followed by an uppercase letter or "(" separates terms.
// Inside a subscript run containing more than one dot, such as the "3.0.5" in
// "0.5BaTiO3.0.5SrTiO3", the first dot that leaves a valid number on both
// sides is the separator. A run with a single interior dot is a decimal
// subscript and is left alone.
func NormalizeBlend(formula string) string {
	b := []byte(formula)
	for i := 0; i < len(b); {
		if !isDigit(b[i]) && b[i] != '.' {
			i++
			continue
		}
		j := i
		for j < len(b) && (isDigit(b[j]) || b[j] == '.') {
			j++
		}
		if j < len(b) && (isUpper(b[j]) || b[j] == '(') {
			splitRun(b[i:j], i > 0 && isSubscriptOwner(b[i-1]))
		}
		i = j
	}
	return string(b)
}

// isSubscriptOwner reports whether a number following c is a subscript
// rather than a leading coefficient.
func isSubscriptOwner(c byte) bool {
	return isUpper(c) || isLower(c) || c == ')' || c == ']' || c == '}'
}

// splitRun marks the separator dot in a numeric run that precedes a new term.
// Runs in coefficient position are never split so that a malformed
// coefficient such as "1.2.3" stays malformed.
func splitRun(run []byte, subscript bool) {
	last := len(run) - 1
	if run[last] == '.' {
		run[last] = '-'
		return
	}
	dots := 0
	for _, c := range run {
		if c == '.' {
			dots++
		}
	}
	if !subscript || dots == 0 || (dots == 1 && run[0] != '.') {
		return
	}
	for k, c := range run {
		if c != '.' {
			continue
		}
		left, right := string(run[:k]), string(run[k+1:])
		if (left == "" || isNumber(left)) && isNumber(right) {
			run[k] = '-'
			return
		}
	}
}
