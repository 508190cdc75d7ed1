// internal/game/types.go
//
// Core type definitions for the Math Wordle round engine.
// Defines:
//   - State: coarse lifecycle state of a round (playing/won/lost).
//   - Attempt: one submitted guess with its feedback.
//   - Round: the lifecycle container for target, secret, and guesses.
//   - Outcome / View: what callers and players get to see.

package game

import (
	"time"

	"github.com/robalobadob/mathle/internal/equation"
	"github.com/robalobadob/mathle/internal/feedback"
)

// State is the coarse lifecycle state of a round.
type State string

const (
	StatePlaying State = "playing"
	StateWon     State = "won"
	StateLost    State = "lost"
)

// Attempt is one submitted guess.
type Attempt struct {
	Guess    equation.Equation `json:"guess"`
	Feedback feedback.Feedback `json:"feedback"`
	Value    string            `json:"value"` // evaluated guess, or "invalid"
}

// Round holds the state of a single round. The secret never changes after
// creation; it is only revealed through Outcome/View once the round ends.
type Round struct {
	ID          string            `json:"id"`
	Owner       string            `json:"owner,omitempty"` // user or guest ID that started the round
	Mode        string            `json:"mode"`
	Target      int               `json:"target"`
	Secret      equation.Equation `json:"secret"`
	MaxAttempts int               `json:"maxAttempts"`
	BaseScore   int               `json:"baseScore"`
	Strict      bool              `json:"strict"`
	Keypad      []equation.Token  `json:"keypad,omitempty"` // tokens a guess may use; empty allows any
	Attempts    []Attempt         `json:"attempts"`
	Current     []equation.Token  `json:"current"` // guess being typed
	Finished    bool              `json:"finished"`
	Won         bool              `json:"won"`
	Points      int               `json:"points"`
	StartedAt   time.Time         `json:"startedAt"`
}

// Outcome is the result of one accepted submission.
type Outcome struct {
	Feedback  []feedback.Mark    `json:"feedback"`
	Value     string             `json:"value"`
	State     State              `json:"state"`
	Attempt   int                `json:"attempt"` // 1-based index of this guess
	Remaining int                `json:"remaining"`
	Points    int                `json:"points,omitempty"`
	Target    int                `json:"target"`
	Secret    *equation.Equation `json:"secret,omitempty"` // set once finished
}

// View is the player-facing projection of a round.
type View struct {
	ID          string             `json:"roundId"`
	Mode        string             `json:"mode"`
	Target      int                `json:"target"`
	MaxAttempts int                `json:"maxAttempts"`
	Strict      bool               `json:"strict"`
	Keypad      []equation.Token   `json:"keypad"`
	Attempts    []Attempt          `json:"attempts"`
	Current     []equation.Token   `json:"current"`
	State       State              `json:"state"`
	Points      int                `json:"points,omitempty"`
	Secret      *equation.Equation `json:"secret,omitempty"`
}
