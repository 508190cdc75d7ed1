package feedback

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/robalobadob/mathle/internal/equation"
)

func eq(ss ...string) equation.Equation { return equation.MustNew(ss...) }

func TestCompare(t *testing.T) {
	C, P, A := Correct, Present, Absent
	tests := []struct {
		name   string
		secret equation.Equation
		guess  equation.Equation
		want   Feedback
	}{
		{
			name:   "exact match",
			secret: eq("10", "+", "20", "-", "5", "*", "1"),
			guess:  eq("10", "+", "20", "-", "5", "*", "1"),
			want:   Feedback{C, C, C, C, C, C, C},
		},
		{
			name:   "numbers reordered",
			secret: eq("10", "+", "20", "-", "5", "*", "1"),
			guess:  eq("20", "+", "10", "-", "1", "*", "5"),
			want:   Feedback{P, C, P, C, P, C, P},
		},
		{
			name:   "duplicates are not over-credited",
			secret: eq("2", "+", "2", "-", "2", "*", "2"),
			guess:  eq("2", "+", "3", "-", "2", "*", "3"),
			want:   Feedback{C, C, A, C, C, C, A},
		},
		{
			name:   "guess repeats a token the secret has once",
			secret: eq("5", "+", "1", "-", "2", "*", "3"),
			guess:  eq("1", "*", "1", "+", "1", "-", "1"),
			want:   Feedback{A, P, C, P, A, P, A},
		},
		{
			name:   "correct match consumes before present",
			secret: eq("4", "+", "3", "+", "4", "*", "1"),
			guess:  eq("4", "+", "4", "-", "4", "+", "4"),
			want:   Feedback{C, C, A, A, C, P, A},
		},
		{
			name:   "nothing in common",
			secret: eq("10", "+", "20", "-", "5", "*", "1"),
			guess:  eq("3", "/", "4", "%", "12", "**", "15"),
			want:   Feedback{A, A, A, A, A, A, A},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compare(tt.guess, tt.secret)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.AllCorrect(), tt.guess == tt.secret)
		})
	}
}

func TestCompareIsPure(t *testing.T) {
	secret := eq("2", "+", "2", "-", "2", "*", "2")
	guess := eq("2", "+", "3", "-", "2", "*", "3")
	first := Compare(guess, secret)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Compare(guess, secret))
	}
	assert.Equal(t, eq("2", "+", "2", "-", "2", "*", "2"), secret)
}

// Property check over random equations from a small pool so duplicates are
// common: credited marks per token never exceed min(count in secret, count
// in guess), and all-correct happens only for identical equations.
func TestCompareMultisetSafety(t *testing.T) {
	numbers := []equation.Token{"1", "2", "3"}
	ops := []equation.Token{"+", "-"}
	r := rand.New(rand.NewPCG(1, 2))
	random := func() equation.Equation {
		var e equation.Equation
		for i := range e {
			if i%2 == 0 {
				e[i] = numbers[r.IntN(len(numbers))]
			} else {
				e[i] = ops[r.IntN(len(ops))]
			}
		}
		return e
	}

	for n := 0; n < 2000; n++ {
		secret, guess := random(), random()
		fb := Compare(guess, secret)

		inSecret := map[equation.Token]int{}
		inGuess := map[equation.Token]int{}
		credited := map[equation.Token]int{}
		for i := range secret {
			inSecret[secret[i]]++
			inGuess[guess[i]]++
			if fb[i] != Absent {
				credited[guess[i]]++
			}
			if fb[i] == Correct {
				assert.Equal(t, secret[i], guess[i])
			}
		}
		for tok, c := range credited {
			assert.LessOrEqual(t, c, min(inSecret[tok], inGuess[tok]), "token %s in %s vs %s", tok, guess, secret)
		}
		assert.Equal(t, guess == secret, fb.AllCorrect())
	}
}

func TestMarks(t *testing.T) {
	fb := Compare(eq("1", "+", "1", "+", "1", "+", "1"), eq("1", "+", "1", "+", "1", "+", "1"))
	assert.Len(t, fb.Marks(), equation.Width)
	assert.True(t, fb.AllCorrect())
}
