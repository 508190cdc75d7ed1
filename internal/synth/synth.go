// internal/synth/synth.go
//
// Secret equation synthesizer.
// Responsibilities:
//   - Randomly sample NUM OP NUM OP NUM OP NUM equations from a number pool
//     and an operator pool (with replacement) until one evaluates exactly to
//     the target.
//   - Treat evaluation failures (division by zero, non-finite values) as
//     non-matches and keep searching.
//   - After Budget tries, degrade to a fallback equation that always equals
//     the target, so a round can always start.
//
// The random source is injectable: the daily challenge passes a seeded
// generator so every player gets the same secret for the same day.

package synth

import (
	"math/rand/v2"

	"github.com/robalobadob/mathle/internal/equation"
)

// DefaultBudget bounds the search to keep round creation fast.
const DefaultBudget = 50000

// Source picks a uniform index in [0, n).
// *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	IntN(n int) int
}

// FallbackFunc builds an equation that must evaluate to target.
type FallbackFunc func(target int) equation.Equation

// Synthesizer holds the search policy. The zero value is usable: it searches
// DefaultBudget times with the global generator and DefaultFallback.
type Synthesizer struct {
	Budget   int
	Rand     Source
	Fallback FallbackFunc
}

// Result describes one synthesis run.
type Result struct {
	Equation equation.Equation
	Attempts int  // equations evaluated before returning
	Fallback bool // true if the search budget ran out
}

// globalSource adapts the package-level math/rand/v2 functions.
type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// NewSeeded returns a deterministic Source for the given seed pair.
func NewSeeded(seed1, seed2 uint64) Source {
	return rand.New(rand.NewPCG(seed1, seed2))
}

// DefaultFallback returns "target + 1 - 1 * 1", which equals target under
// standard precedence for any finite target.
func DefaultFallback(target int) equation.Equation {
	return equation.Equation{
		equation.Number(float64(target)),
		equation.OpAdd, "1",
		equation.OpSub, "1",
		equation.OpMul, "1",
	}
}

// Source returns the configured random source, or the global generator.
func (s Synthesizer) Source() Source {
	if s.Rand == nil {
		return globalSource{}
	}
	return s.Rand
}

// Synthesize searches for an equation equal to target.
// Empty pools skip straight to the fallback.
func (s Synthesizer) Synthesize(target int, numbers, operators []equation.Token) Result {
	budget := s.Budget
	if budget <= 0 {
		budget = DefaultBudget
	}
	src := s.Source()
	fallback := s.Fallback
	if fallback == nil {
		fallback = DefaultFallback
	}

	want := float64(target)
	attempts := 0
	if len(numbers) > 0 && len(operators) > 0 {
		for attempts < budget {
			attempts++
			var e equation.Equation
			for i := range e {
				if i%2 == 0 {
					e[i] = numbers[src.IntN(len(numbers))]
				} else {
					e[i] = operators[src.IntN(len(operators))]
				}
			}
			v, err := e.Value()
			if err != nil {
				continue
			}
			if v == want {
				return Result{Equation: e, Attempts: attempts}
			}
		}
	}
	return Result{Equation: fallback(target), Attempts: attempts, Fallback: true}
}

// Synthesize runs the default policy with an explicit attempt budget.
func Synthesize(target int, numbers, operators []equation.Token, maxAttempts int) equation.Equation {
	return Synthesizer{Budget: maxAttempts}.Synthesize(target, numbers, operators).Equation
}
