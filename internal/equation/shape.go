// internal/equation/shape.go
//
// Shape rules for the NUM OP NUM OP NUM OP NUM equation.
// Responsibilities:
//   - Equation: fixed-width token array, so the length invariant lives in the type.
//   - IsValidShape: full-length alternation check used on submission.
//   - CanAppend: incremental alternation check used while a guess is typed.

package equation

import (
	"errors"
	"strings"
)

// Width is the number of tokens in every equation.
const Width = 7

var (
	ErrMalformed     = errors.New("equation must follow NUM OP NUM OP NUM OP NUM")
	ErrFull          = errors.New("guess already has 7 tokens")
	ErrOperatorFirst = errors.New("guess cannot start with an operator")
	ErrAdjacentKind  = errors.New("numbers and operators must alternate")
)

// Equation is an alternating sequence of exactly Width tokens.
// Positions 0, 2, 4, 6 hold numbers; 1, 3, 5 hold operators.
type Equation [Width]Token

// New copies tokens into an Equation, rejecting anything that is not a
// well-formed 7-token alternation.
func New(tokens []Token) (Equation, error) {
	var e Equation
	if !IsValidShape(tokens) {
		return e, ErrMalformed
	}
	copy(e[:], tokens)
	return e, nil
}

// MustNew is New for literals in tests and fixed tables.
func MustNew(ss ...string) Equation {
	toks := make([]Token, len(ss))
	for i, s := range ss {
		toks[i] = MustParse(s)
	}
	e, err := New(toks)
	if err != nil {
		panic(err)
	}
	return e
}

// IsValidShape reports whether tokens has length Width with numbers at even
// indices and operators at odd indices.
func IsValidShape(tokens []Token) bool {
	if len(tokens) != Width {
		return false
	}
	return alternates(tokens)
}

// alternates checks the NUM OP NUM ... pattern for any length.
func alternates(tokens []Token) bool {
	for i, t := range tokens {
		if i%2 == 0 && !t.IsNumber() {
			return false
		}
		if i%2 == 1 && !t.IsOperator() {
			return false
		}
	}
	return true
}

// CanAppend reports why next may not follow prefix, or nil if it may.
// The rules mirror the on-screen keypad: at most Width tokens, the first
// token is a number, and two tokens of the same kind never touch.
func CanAppend(prefix []Token, next Token) error {
	if len(prefix) >= Width {
		return ErrFull
	}
	if !next.IsOperator() && !next.IsNumber() {
		return ErrUnknownToken
	}
	if len(prefix) == 0 {
		if next.IsOperator() {
			return ErrOperatorFirst
		}
		return nil
	}
	if prefix[len(prefix)-1].IsOperator() == next.IsOperator() {
		return ErrAdjacentKind
	}
	return nil
}

// Tokens returns the equation as a fresh slice.
func (e Equation) Tokens() []Token {
	out := make([]Token, Width)
	copy(out, e[:])
	return out
}

// String renders the equation with single spaces between tokens.
func (e Equation) String() string { return Join(e[:]) }

// Join renders any token slice the way String does.
func Join(tokens []Token) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = string(t)
	}
	return strings.Join(parts, " ")
}
