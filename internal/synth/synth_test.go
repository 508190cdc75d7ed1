package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/mathle/internal/equation"
)

func pool(ss ...string) []equation.Token {
	out := make([]equation.Token, len(ss))
	for i, s := range ss {
		out[i] = equation.MustParse(s)
	}
	return out
}

// scripted replays fixed indices, cycling when exhausted.
type scripted struct {
	idx []int
	n   int
}

func (s *scripted) IntN(n int) int {
	v := s.idx[s.n%len(s.idx)] % n
	s.n++
	return v
}

func TestSynthesizeFirstMatch(t *testing.T) {
	res := Synthesizer{Budget: 10}.Synthesize(1, pool("1"), pool("*"))
	assert.False(t, res.Fallback)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, equation.MustNew("1", "*", "1", "*", "1", "*", "1"), res.Equation)
}

func TestSynthesizeScriptedSource(t *testing.T) {
	// numbers: 10 20 5 1, operators: + - *
	src := &scripted{idx: []int{0, 0, 1, 1, 2, 2, 3}}
	s := Synthesizer{Budget: 1, Rand: src}
	res := s.Synthesize(25, pool("10", "20", "5", "1"), pool("+", "-", "*"))
	require.False(t, res.Fallback)
	assert.Equal(t, "10 + 20 - 5 * 1", res.Equation.String())
}

func TestSynthesizeSoundness(t *testing.T) {
	numbers := pool("1", "2", "3", "4", "5", "10", "12", "15", "20", "25", "35", "60", "80", "100", "200")
	operators := equation.Operators()
	for _, target := range []int{10, 20, 40, 50, 60, 80, 100, 150, 200} {
		res := Synthesizer{Rand: NewSeeded(uint64(target), 7)}.Synthesize(target, numbers, operators)
		v, err := res.Equation.Value()
		require.NoError(t, err, res.Equation.String())
		assert.Equal(t, float64(target), v, res.Equation.String())
		assert.True(t, equation.IsValidShape(res.Equation.Tokens()))
	}
}

func TestSynthesizeExhaustion(t *testing.T) {
	res := Synthesizer{Budget: 10}.Synthesize(100, pool("1"), pool("+"))
	assert.True(t, res.Fallback)
	assert.Equal(t, 10, res.Attempts)
	assert.Equal(t, DefaultFallback(100), res.Equation)
}

func TestSynthesizeEvaluationFailuresAreNonMatches(t *testing.T) {
	res := Synthesizer{Budget: 25}.Synthesize(5, pool("0"), pool("/", "%"))
	assert.True(t, res.Fallback)
	assert.Equal(t, 25, res.Attempts)
}

func TestSynthesizeEmptyPools(t *testing.T) {
	res := Synthesizer{Budget: 10}.Synthesize(40, nil, pool("+"))
	assert.True(t, res.Fallback)
	assert.Zero(t, res.Attempts)

	res = Synthesizer{Budget: 10}.Synthesize(40, pool("1"), nil)
	assert.True(t, res.Fallback)
}

func TestSynthesizeCustomFallback(t *testing.T) {
	called := 0
	s := Synthesizer{
		Budget: 3,
		Fallback: func(target int) equation.Equation {
			called++
			return equation.MustNew("5", "*", "2", "+", "0", "*", "1")
		},
	}
	res := s.Synthesize(10, pool("1"), pool("+"))
	assert.Equal(t, 1, called)
	assert.Equal(t, "5 * 2 + 0 * 1", res.Equation.String())
}

func TestSynthesizeSeededIsDeterministic(t *testing.T) {
	numbers := pool("1", "2", "3", "4", "5", "10")
	a := Synthesizer{Rand: NewSeeded(42, 99)}.Synthesize(20, numbers, equation.Operators())
	b := Synthesizer{Rand: NewSeeded(42, 99)}.Synthesize(20, numbers, equation.Operators())
	assert.Equal(t, a, b)
}

func TestDefaultFallbackAlwaysEqualsTarget(t *testing.T) {
	for target := -1000; target <= 1000; target += 7 {
		v, err := DefaultFallback(target).Value()
		require.NoError(t, err)
		assert.Equal(t, float64(target), v, "target %d", target)
	}
}

func TestSynthesizeContract(t *testing.T) {
	e := Synthesize(4, pool("1"), pool("+"), 5)
	v, err := e.Value()
	require.NoError(t, err)
	assert.Equal(t, 4.0, v)
}
