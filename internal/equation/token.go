// internal/equation/token.go
//
// Token vocabulary for Math Wordle equations.
// Defines:
//   - Token: canonical display string of a number or operator.
//   - The fixed operator set (+ - * / % **).
//   - ParseToken: normalizes player/config input into canonical tokens.
//
// Tokens compare by their canonical string, so "010" and "10" are the same
// number once parsed, and "^" is accepted as an alias for "**".

package equation

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// Token is a single equation unit in canonical string form.
type Token string

const (
	OpAdd Token = "+"
	OpSub Token = "-"
	OpMul Token = "*"
	OpDiv Token = "/"
	OpMod Token = "%"
	OpPow Token = "**"
)

// ErrUnknownToken is returned by ParseToken for input that is neither a
// known operator nor a finite number.
var ErrUnknownToken = errors.New("unknown token")

var operatorSet = map[Token]struct{}{
	OpAdd: {}, OpSub: {}, OpMul: {}, OpDiv: {}, OpMod: {}, OpPow: {},
}

// aliases accepted from keyboards that lack the canonical symbol.
var aliases = map[string]Token{
	"^": OpPow,
	"×": OpMul,
	"x": OpMul,
	"÷": OpDiv,
	"−": OpSub,
}

// Operators returns the full operator set in display order.
func Operators() []Token {
	return []Token{OpAdd, OpSub, OpMul, OpDiv, OpMod, OpPow}
}

// IsOperator reports whether t is one of the fixed operators.
func (t Token) IsOperator() bool {
	_, ok := operatorSet[t]
	return ok
}

// IsNumber reports whether t is a finite numeric literal.
func (t Token) IsNumber() bool {
	if t.IsOperator() {
		return false
	}
	_, err := t.Value()
	return err == nil
}

// Value returns the numeric value of a number token.
func (t Token) Value() (float64, error) {
	v, err := strconv.ParseFloat(string(t), 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, ErrUnknownToken
	}
	return v, nil
}

// ParseToken trims and canonicalizes s.
// Numbers are reformatted with the shortest exact representation.
func ParseToken(s string) (Token, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrUnknownToken
	}
	if t := Token(s); t.IsOperator() {
		return t, nil
	}
	if t, ok := aliases[s]; ok {
		return t, nil
	}
	v, err := Token(s).Value()
	if err != nil {
		return "", ErrUnknownToken
	}
	return Number(v), nil
}

// MustParse is ParseToken for trusted literals; it panics on bad input.
func MustParse(s string) Token {
	t, err := ParseToken(s)
	if err != nil {
		panic("equation: bad token " + strconv.Quote(s))
	}
	return t
}

// ParseTokens parses every element of ss, stopping at the first failure.
func ParseTokens(ss []string) ([]Token, error) {
	out := make([]Token, 0, len(ss))
	for _, s := range ss {
		t, err := ParseToken(s)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Number returns the canonical token for v.
func Number(v float64) Token {
	if v == 0 {
		v = 0 // drop negative zero
	}
	return Token(strconv.FormatFloat(v, 'f', -1, 64))
}
