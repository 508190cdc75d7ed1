package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/mathle/internal/equation"
	"github.com/robalobadob/mathle/internal/feedback"
	"github.com/robalobadob/mathle/internal/modes"
	"github.com/robalobadob/mathle/internal/synth"
)

const testModes = `
modes:
  - name: normal
    targets: [25]
    numbers: ["0", "1", "5", "10", "20"]
    operators: ["+", "-", "*", "/"]
    attempts: 3
    base_score: 100
  - name: strict
    targets: [50]
    numbers: ["1", "2", "5", "10", "20", "25"]
    operators: ["+", "-", "*", "/"]
    attempts: 3
    base_score: 300
    strict: true
`

func mode(t *testing.T, name string) *modes.Mode {
	t.Helper()
	reg, err := modes.Load([]byte(testModes))
	require.NoError(t, err)
	m, err := reg.Get(name)
	require.NoError(t, err)
	return m
}

func toks(ss ...string) []equation.Token {
	out := make([]equation.Token, len(ss))
	for i, s := range ss {
		out[i] = equation.MustParse(s)
	}
	return out
}

func secret() equation.Equation {
	return equation.MustNew("10", "+", "20", "-", "5", "*", "1")
}

func TestWinOnFirstGuess(t *testing.T) {
	r := NewWith(mode(t, "normal"), 25, secret())
	out, err := r.SubmitTokens(toks("10", "+", "20", "-", "5", "*", "1"))
	require.NoError(t, err)

	assert.Equal(t, StateWon, out.State)
	assert.Equal(t, 1, out.Attempt)
	assert.Equal(t, 2, out.Remaining)
	assert.Equal(t, 300, out.Points) // 100 × (3 - 1 + 1)
	assert.Equal(t, "25", out.Value)
	require.NotNil(t, out.Secret)
	assert.Equal(t, secret(), *out.Secret)
	for _, m := range out.Feedback {
		assert.Equal(t, feedback.Correct, m)
	}
	assert.True(t, r.Finished)
	assert.True(t, r.Won)
}

func TestWrongGuessContinues(t *testing.T) {
	r := NewWith(mode(t, "normal"), 25, secret())
	out, err := r.SubmitTokens(toks("20", "+", "10", "-", "1", "*", "5"))
	require.NoError(t, err)

	P, C := feedback.Present, feedback.Correct
	assert.Equal(t, []feedback.Mark{P, C, P, C, P, C, P}, out.Feedback)
	assert.Equal(t, StatePlaying, out.State)
	assert.Equal(t, "25", out.Value)
	assert.Nil(t, out.Secret)
	assert.Zero(t, out.Points)
	assert.Len(t, r.Attempts, 1)
	assert.Empty(t, r.Current)
}

func TestMalformedSubmissionIsRejected(t *testing.T) {
	r := NewWith(mode(t, "normal"), 25, secret())
	require.NoError(t, r.AppendToken("10"))

	_, err := r.SubmitTokens([]equation.Token{"+", "2", "-", "3", "*", "4", "+"})
	assert.ErrorIs(t, err, ErrMalformedGuess)
	assert.Empty(t, r.Attempts)
	assert.Equal(t, []equation.Token{"10"}, r.Current)

	_, err = r.Submit()
	assert.ErrorIs(t, err, ErrMalformedGuess)
	assert.Empty(t, r.Attempts)
}

func TestStrictModeRequiresTarget(t *testing.T) {
	r := NewWith(mode(t, "strict"), 50, equation.MustNew("25", "*", "2", "+", "0", "*", "1"))

	_, err := r.SubmitTokens(toks("20", "+", "20", "+", "5", "+", "1")) // 46
	assert.ErrorIs(t, err, ErrTargetMismatch)
	assert.Empty(t, r.Attempts)

	_, err = r.SubmitTokens(toks("10", "/", "0", "+", "5", "+", "1"))
	assert.ErrorIs(t, err, ErrTargetMismatch)
	assert.Empty(t, r.Attempts)

	out, err := r.SubmitTokens(toks("25", "+", "20", "+", "5", "*", "1"))
	require.NoError(t, err)
	assert.Equal(t, "50", out.Value)
	assert.Equal(t, StatePlaying, out.State)
	assert.Len(t, r.Attempts, 1)
}

func TestInvalidValueAllowedInLenientMode(t *testing.T) {
	r := NewWith(mode(t, "normal"), 25, secret())
	out, err := r.SubmitTokens(toks("10", "/", "0", "+", "5", "*", "1"))
	require.NoError(t, err)
	assert.Equal(t, equation.Invalid, out.Value)
	assert.Equal(t, StatePlaying, out.State)
}

func TestExhaustion(t *testing.T) {
	r := NewWith(mode(t, "normal"), 25, secret())
	wrong := toks("1", "+", "1", "+", "1", "+", "1")

	for i := 1; i <= 2; i++ {
		out, err := r.SubmitTokens(wrong)
		require.NoError(t, err)
		assert.Equal(t, StatePlaying, out.State)
		assert.Equal(t, 3-i, out.Remaining)
	}
	out, err := r.SubmitTokens(wrong)
	require.NoError(t, err)
	assert.Equal(t, StateLost, out.State)
	assert.Zero(t, out.Remaining)
	require.NotNil(t, out.Secret)
	assert.Equal(t, secret(), *out.Secret)
	assert.Equal(t, 25, out.Target)

	_, err = r.SubmitTokens(wrong)
	assert.ErrorIs(t, err, ErrRoundFinished)
	assert.ErrorIs(t, r.AppendToken("1"), ErrRoundFinished)
	assert.ErrorIs(t, r.RemoveLastToken(), ErrRoundFinished)
	assert.ErrorIs(t, r.ClearGuess(), ErrRoundFinished)
	assert.Len(t, r.Attempts, 3)
}

func TestKeypad(t *testing.T) {
	r := NewWith(mode(t, "normal"), 25, secret())
	assert.ErrorIs(t, r.AppendToken("7"), ErrNotOnKeypad)
	assert.ErrorIs(t, r.AppendToken("1e308"), ErrNotOnKeypad)
	assert.Empty(t, r.Current)

	require.NoError(t, r.AppendToken("10"))
	assert.ErrorIs(t, r.AppendToken("**"), ErrNotOnKeypad, "operator outside the tier")

	_, err := r.SubmitTokens(toks("10", "+", "7", "+", "5", "+", "1"))
	assert.ErrorIs(t, err, ErrNotOnKeypad)
	assert.Empty(t, r.Attempts)
	assert.Equal(t, []equation.Token{"10"}, r.Current)
}

func TestKeypadIncludesFallbackSecret(t *testing.T) {
	fallback := synth.DefaultFallback(47)
	r := NewWith(mode(t, "strict"), 47, fallback)
	assert.Contains(t, r.Keypad, equation.Token("47"))
	assert.Equal(t, r.Keypad, r.View().Keypad)

	out, err := r.SubmitTokens(fallback.Tokens())
	require.NoError(t, err)
	assert.Equal(t, StateWon, out.State)
}

func TestEmptyKeypadAllowsAnyNumber(t *testing.T) {
	r := NewWith(mode(t, "normal"), 25, secret())
	r.Keypad = nil
	_, err := r.SubmitTokens(toks("7", "+", "7", "+", "7", "+", "4"))
	require.NoError(t, err)
}

func TestWinOnLastAttemptScoresBase(t *testing.T) {
	r := NewWith(mode(t, "normal"), 25, secret())
	for i := 0; i < 2; i++ {
		_, err := r.SubmitTokens(toks("1", "+", "1", "+", "1", "+", "1"))
		require.NoError(t, err)
	}
	out, err := r.SubmitTokens(secret().Tokens())
	require.NoError(t, err)
	assert.Equal(t, StateWon, out.State)
	assert.Equal(t, 100, out.Points)
}

func TestIncrementalEditing(t *testing.T) {
	r := NewWith(mode(t, "normal"), 25, secret())

	assert.ErrorIs(t, r.AppendToken("+"), equation.ErrOperatorFirst)
	require.NoError(t, r.AppendToken("10"))
	assert.ErrorIs(t, r.AppendToken("20"), equation.ErrAdjacentKind)
	require.NoError(t, r.AppendToken("+"))
	assert.ErrorIs(t, r.AppendToken("-"), equation.ErrAdjacentKind)

	require.NoError(t, r.RemoveLastToken())
	assert.Equal(t, []equation.Token{"10"}, r.Current)
	require.NoError(t, r.ClearGuess())
	assert.Empty(t, r.Current)
	require.NoError(t, r.RemoveLastToken())

	for _, tok := range secret() {
		require.NoError(t, r.AppendToken(tok))
	}
	assert.ErrorIs(t, r.AppendToken("+"), equation.ErrFull)

	out, err := r.Submit()
	require.NoError(t, err)
	assert.Equal(t, StateWon, out.State)
}

func TestViewHidesSecretUntilFinished(t *testing.T) {
	r := NewWith(mode(t, "normal"), 25, secret())
	v := r.View()
	assert.Nil(t, v.Secret)
	assert.Equal(t, StatePlaying, v.State)
	assert.Equal(t, 3, v.MaxAttempts)

	_, err := r.SubmitTokens(secret().Tokens())
	require.NoError(t, err)
	v = r.View()
	require.NotNil(t, v.Secret)
	assert.Equal(t, StateWon, v.State)
}

func TestNewSynthesizesForTierTarget(t *testing.T) {
	m := mode(t, "normal")
	r, res := New(m, synth.Synthesizer{Rand: synth.NewSeeded(3, 4)})

	assert.Equal(t, 25, r.Target)
	assert.Equal(t, res.Equation, r.Secret)
	v, err := r.Secret.Value()
	require.NoError(t, err)
	assert.Equal(t, 25.0, v)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, "normal", r.Mode)
	assert.False(t, r.StartedAt.IsZero())
}

func TestCloneIsIndependent(t *testing.T) {
	r := NewWith(mode(t, "normal"), 25, secret())
	require.NoError(t, r.AppendToken("10"))
	c := r.Clone()
	require.NoError(t, c.AppendToken("+"))
	assert.Len(t, r.Current, 1)
	assert.Len(t, c.Current, 2)
}
