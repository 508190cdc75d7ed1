// internal/game/engine.go
//
// Core round engine for Math Wordle.
// Responsibilities:
//   - Start rounds: pick a target from the tier and synthesize the secret.
//   - Edit the in-progress guess token by token (append/backspace/clear),
//     enforcing NUM OP alternation as tokens arrive.
//   - Validate and score submissions (shape, optional target equality,
//     two-pass feedback).
//   - Track state transitions: playing → won/lost, and points on a win.
//
// Rejected submissions never consume an attempt and leave the round as it was.

package game

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/robalobadob/mathle/internal/equation"
	"github.com/robalobadob/mathle/internal/feedback"
	"github.com/robalobadob/mathle/internal/modes"
	"github.com/robalobadob/mathle/internal/synth"
)

var (
	ErrRoundFinished  = errors.New("round finished")
	ErrMalformedGuess = equation.ErrMalformed
	ErrTargetMismatch = errors.New("guess does not equal target")
	ErrNotOnKeypad    = errors.New("token not on keypad")
)

// New starts a round for mode m: a random target from the tier and a secret
// found by s. The synthesis result is returned for logging and metrics.
func New(m *modes.Mode, s synth.Synthesizer) (*Round, synth.Result) {
	target := m.Targets[s.Source().IntN(len(m.Targets))]
	res := s.Synthesize(target, m.NumberPool(), m.OperatorPool())
	return NewWith(m, target, res.Equation), res
}

// NewWith starts a round with a known target and secret.
func NewWith(m *modes.Mode, target int, secret equation.Equation) *Round {
	return &Round{
		ID:          uuid.NewString(),
		Mode:        m.Name,
		Target:      target,
		Secret:      secret,
		MaxAttempts: m.Attempts,
		BaseScore:   m.BaseScore,
		Strict:      m.Strict,
		Keypad:      keypad(m, secret),
		Attempts:    []Attempt{},
		Current:     []equation.Token{},
		StartedAt:   time.Now().UTC(),
	}
}

// keypad is the tier's number and operator pools plus any token of the
// secret outside them, so a fallback secret can still be typed.
func keypad(m *modes.Mode, secret equation.Equation) []equation.Token {
	keys := append(slices.Clone(m.NumberPool()), m.OperatorPool()...)
	for _, tok := range secret {
		if !slices.Contains(keys, tok) {
			keys = append(keys, tok)
		}
	}
	return keys
}

func (r *Round) checkKeypad(tok equation.Token) error {
	if len(r.Keypad) > 0 && !slices.Contains(r.Keypad, tok) {
		return fmt.Errorf("%w: %s", ErrNotOnKeypad, tok)
	}
	return nil
}

// AppendToken adds tok to the current guess if the alternation rules allow
// it and the key exists on the round's keypad.
func (r *Round) AppendToken(tok equation.Token) error {
	if r.Finished {
		return ErrRoundFinished
	}
	if err := equation.CanAppend(r.Current, tok); err != nil {
		return err
	}
	if err := r.checkKeypad(tok); err != nil {
		return err
	}
	r.Current = append(r.Current, tok)
	return nil
}

// RemoveLastToken drops the last typed token. It is a no-op on an empty guess.
func (r *Round) RemoveLastToken() error {
	if r.Finished {
		return ErrRoundFinished
	}
	if n := len(r.Current); n > 0 {
		r.Current = r.Current[:n-1]
	}
	return nil
}

// ClearGuess empties the current guess.
func (r *Round) ClearGuess() error {
	if r.Finished {
		return ErrRoundFinished
	}
	r.Current = []equation.Token{}
	return nil
}

// SubmitTokens replaces the current guess with tokens and submits it.
// On rejection the round, including the previous current guess, is unchanged.
func (r *Round) SubmitTokens(tokens []equation.Token) (Outcome, error) {
	if r.Finished {
		return Outcome{}, ErrRoundFinished
	}
	prev := r.Current
	r.Current = append([]equation.Token(nil), tokens...)
	out, err := r.Submit()
	if err != nil {
		r.Current = prev
	}
	return out, err
}

// Submit validates and scores the current guess.
//
// Validation order:
//   - Round must not be finished.
//   - Guess must be a full NUM OP NUM OP NUM OP NUM equation.
//   - Every token must be on the round's keypad.
//   - In strict tiers the guess must evaluate exactly to the target.
//
// State transitions:
//   - All seven tiles Correct → Finished, Won, points awarded.
//   - Else if attempts reach MaxAttempts → Finished (loss).
func (r *Round) Submit() (Outcome, error) {
	if r.Finished {
		return Outcome{}, ErrRoundFinished
	}
	guess, err := equation.New(r.Current)
	if err != nil {
		return Outcome{}, ErrMalformedGuess
	}
	for _, tok := range guess {
		if err := r.checkKeypad(tok); err != nil {
			return Outcome{}, err
		}
	}

	display := equation.Display(guess[:])
	if r.Strict {
		v, err := guess.Value()
		if err != nil || v != float64(r.Target) {
			return Outcome{}, fmt.Errorf("%w: %s = %s, want %d", ErrTargetMismatch, guess, display, r.Target)
		}
	}

	fb := feedback.Compare(guess, r.Secret)
	r.Attempts = append(r.Attempts, Attempt{Guess: guess, Feedback: fb, Value: display})
	r.Current = []equation.Token{}

	if fb.AllCorrect() {
		r.Finished, r.Won = true, true
		r.Points = r.BaseScore * (r.MaxAttempts - len(r.Attempts) + 1)
	} else if len(r.Attempts) >= r.MaxAttempts {
		r.Finished = true
	}

	out := Outcome{
		Feedback:  fb.Marks(),
		Value:     display,
		State:     r.State(),
		Attempt:   len(r.Attempts),
		Remaining: r.MaxAttempts - len(r.Attempts),
		Points:    r.Points,
		Target:    r.Target,
	}
	if r.Finished {
		secret := r.Secret
		out.Secret = &secret
	}
	return out, nil
}

// State reports the coarse state of the round.
func (r *Round) State() State {
	if r.Finished {
		if r.Won {
			return StateWon
		}
		return StateLost
	}
	return StatePlaying
}

// View returns the player-facing projection; the secret stays hidden until
// the round is over.
func (r *Round) View() View {
	v := View{
		ID:          r.ID,
		Mode:        r.Mode,
		Target:      r.Target,
		MaxAttempts: r.MaxAttempts,
		Strict:      r.Strict,
		Keypad:      r.Keypad,
		Attempts:    append([]Attempt{}, r.Attempts...),
		Current:     append([]equation.Token{}, r.Current...),
		State:       r.State(),
		Points:      r.Points,
	}
	if r.Finished {
		secret := r.Secret
		v.Secret = &secret
	}
	return v
}

// Clone returns a deep copy, so stores can hand out values that callers may
// mutate without racing other requests.
func (r *Round) Clone() *Round {
	c := *r
	c.Attempts = append([]Attempt{}, r.Attempts...)
	c.Current = append([]equation.Token{}, r.Current...)
	return &c
}
