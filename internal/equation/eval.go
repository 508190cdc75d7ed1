// internal/equation/eval.go
//
// Arithmetic evaluator working directly on token slices.
//
// Grammar (lowest to highest precedence):
//   sum     = product { ("+" | "-") product }
//   product = power   { ("*" | "/" | "%") power }
//   power   = NUMBER  [ "**" power ]            (right-associative)
//
// Failures are reported as *EvalError rather than NaN/Inf values:
//   - division or modulo by zero
//   - any intermediate result that is not finite (overflowing powers,
//     fractional powers of negative numbers)

package equation

import (
	"fmt"
	"math"
	"strconv"
)

// Reason classifies an evaluation failure.
type Reason string

const (
	ReasonDivisionByZero Reason = "division by zero"
	ReasonNonFinite      Reason = "non-finite result"
	ReasonMalformed      Reason = "malformed equation"
)

// EvalError reports why a token sequence has no value.
type EvalError struct {
	Reason Reason
	Pos    int // token index where evaluation failed
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("evaluate: %s at token %d", e.Reason, e.Pos)
}

// Invalid is the display value for equations that cannot be evaluated.
const Invalid = "invalid"

// Evaluate computes the value of an alternating NUM OP NUM ... sequence of
// any odd length.
func Evaluate(tokens []Token) (float64, error) {
	if len(tokens)%2 == 0 || !alternates(tokens) {
		return 0, &EvalError{Reason: ReasonMalformed}
	}
	p := parser{toks: tokens}
	return p.sum()
}

// Value evaluates the equation.
func (e Equation) Value() (float64, error) { return Evaluate(e[:]) }

// Display formats the value of tokens, or Invalid if it has none.
func Display(tokens []Token) string {
	v, err := Evaluate(tokens)
	if err != nil {
		return Invalid
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type parser struct {
	toks []Token
	pos  int
}

func (p *parser) peek() Token {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return ""
}

func (p *parser) sum() (float64, error) {
	v, err := p.product()
	if err != nil {
		return 0, err
	}
	for op := p.peek(); op == OpAdd || op == OpSub; op = p.peek() {
		at := p.pos
		p.pos++
		r, err := p.product()
		if err != nil {
			return 0, err
		}
		if v, err = apply(op, v, r, at); err != nil {
			return 0, err
		}
	}
	return v, nil
}

func (p *parser) product() (float64, error) {
	v, err := p.power()
	if err != nil {
		return 0, err
	}
	for op := p.peek(); op == OpMul || op == OpDiv || op == OpMod; op = p.peek() {
		at := p.pos
		p.pos++
		r, err := p.power()
		if err != nil {
			return 0, err
		}
		if v, err = apply(op, v, r, at); err != nil {
			return 0, err
		}
	}
	return v, nil
}

func (p *parser) power() (float64, error) {
	if p.pos >= len(p.toks) {
		return 0, &EvalError{Reason: ReasonMalformed, Pos: p.pos}
	}
	base, err := p.toks[p.pos].Value()
	if err != nil {
		return 0, &EvalError{Reason: ReasonMalformed, Pos: p.pos}
	}
	p.pos++
	if p.peek() != OpPow {
		return base, nil
	}
	at := p.pos
	p.pos++
	exp, err := p.power()
	if err != nil {
		return 0, err
	}
	return apply(OpPow, base, exp, at)
}

// apply performs one binary operation and rejects non-finite results.
func apply(op Token, a, b float64, at int) (float64, error) {
	var v float64
	switch op {
	case OpAdd:
		v = a + b
	case OpSub:
		v = a - b
	case OpMul:
		v = a * b
	case OpDiv:
		if b == 0 {
			return 0, &EvalError{Reason: ReasonDivisionByZero, Pos: at}
		}
		v = a / b
	case OpMod:
		if b == 0 {
			return 0, &EvalError{Reason: ReasonDivisionByZero, Pos: at}
		}
		v = math.Mod(a, b)
	case OpPow:
		v = math.Pow(a, b)
	default:
		return 0, &EvalError{Reason: ReasonMalformed, Pos: at}
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, &EvalError{Reason: ReasonNonFinite, Pos: at}
	}
	return v, nil
}
