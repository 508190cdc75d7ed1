// internal/feedback/feedback.go
//
// Wordle-style positional feedback for equation guesses.
//
// Compare uses the classic two-pass algorithm:
//   Pass 1: exact position matches are Correct and consume that secret slot.
//   Pass 2: every other guess token takes the first unconsumed secret slot
//           holding the same token and is marked Present; otherwise Absent.
//
// Consumption is tracked with a boolean mask instead of overwriting secret
// tokens, so no sentinel value can collide with a real token. The number of
// Correct+Present marks for a token never exceeds its count in the secret.

package feedback

import "github.com/robalobadob/mathle/internal/equation"

// Mark is the evaluation result for a single guess position.
type Mark string

const (
	Correct Mark = "correct" // right token, right position
	Present Mark = "present" // token appears elsewhere in the secret
	Absent  Mark = "absent"  // no unconsumed match in the secret
)

// Feedback holds one Mark per equation position.
type Feedback [equation.Width]Mark

// Compare scores guess against secret. It is a pure function of its inputs.
func Compare(guess, secret equation.Equation) Feedback {
	var fb Feedback
	var consumed [equation.Width]bool

	for i := range fb {
		fb[i] = Absent
		if guess[i] == secret[i] {
			fb[i] = Correct
			consumed[i] = true
		}
	}

	for i := range fb {
		if fb[i] == Correct {
			continue
		}
		for j := range secret {
			if !consumed[j] && secret[j] == guess[i] {
				fb[i] = Present
				consumed[j] = true
				break
			}
		}
	}
	return fb
}

// AllCorrect reports whether every position is Correct.
func (f Feedback) AllCorrect() bool {
	for _, m := range f {
		if m != Correct {
			return false
		}
	}
	return true
}

// Marks returns the feedback as a slice, for JSON payloads.
func (f Feedback) Marks() []Mark {
	out := make([]Mark, len(f))
	copy(out, f[:])
	return out
}
