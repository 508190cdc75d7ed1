package modes

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/mathle/internal/equation"
)

func TestEmbedded(t *testing.T) {
	reg, err := Embedded()
	require.NoError(t, err)
	assert.Equal(t, []string{"easy", "hard", "normal"}, reg.Names())
	assert.Len(t, reg.All(), 3)
	assert.Equal(t, "easy", reg.All()[0].Name)

	normal, err := reg.Get("")
	require.NoError(t, err)
	assert.Equal(t, "normal", normal.Name)
	assert.Equal(t, 7, normal.Attempts)
	assert.False(t, normal.Strict)
	assert.Equal(t, equation.Operators(), sortedLike(normal.OperatorPool(), equation.Operators()))
	assert.Len(t, normal.NumberPool(), 15)

	hard, err := reg.Get("hard")
	require.NoError(t, err)
	assert.True(t, hard.Strict)
	assert.Contains(t, hard.NumberPool(), equation.Token("0.25"))
	assert.Contains(t, hard.NumberPool(), equation.Token("-4"))
}

// sortedLike reorders got to follow ref so order differences don't matter.
func sortedLike(got, ref []equation.Token) []equation.Token {
	in := map[equation.Token]bool{}
	for _, t := range got {
		in[t] = true
	}
	var out []equation.Token
	for _, t := range ref {
		if in[t] {
			out = append(out, t)
		}
	}
	return out
}

func TestGetUnknown(t *testing.T) {
	reg, err := Embedded()
	require.NoError(t, err)
	_, err = reg.Get("impossible")
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestLoadCanonicalizesPools(t *testing.T) {
	reg, err := Load([]byte(`
modes:
  - name: tiny
    targets: [4]
    numbers: ["1", "01", "2.50", "-0"]
    operators: ["+", "+", "**"]
    attempts: 3
    base_score: 10
`))
	require.NoError(t, err)
	m, err := reg.Get("tiny")
	require.NoError(t, err)
	assert.Equal(t, []equation.Token{"1", "2.5", "0"}, m.NumberPool())
	assert.Equal(t, []equation.Token{"+", "**"}, m.OperatorPool())
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not yaml", "modes: [::"},
		{"no tiers", "modes: []"},
		{"no targets", `
modes:
  - name: a
    targets: []
    numbers: ["1"]
    operators: ["+"]
    attempts: 3`},
		{"unknown operator", `
modes:
  - name: a
    targets: [1]
    numbers: ["1"]
    operators: ["&"]
    attempts: 3`},
		{"bad number", `
modes:
  - name: a
    targets: [1]
    numbers: ["one"]
    operators: ["+"]
    attempts: 3`},
		{"zero attempts", `
modes:
  - name: a
    targets: [1]
    numbers: ["1"]
    operators: ["+"]
    attempts: 0`},
		{"duplicate names", `
modes:
  - name: a
    targets: [1]
    numbers: ["1"]
    operators: ["+"]
    attempts: 3
  - name: a
    targets: [1]
    numbers: ["1"]
    operators: ["+"]
    attempts: 3`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestInitFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "modes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
modes:
  - name: normal
    targets: [10]
    numbers: ["5"]
    operators: ["+"]
    attempts: 4
    base_score: 1
`), 0o644))

	reg, err := Init(path)
	require.NoError(t, err)
	m, err := reg.Get("normal")
	require.NoError(t, err)
	assert.Equal(t, 4, m.Attempts)

	_, err = Init(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	reg, err = Init("")
	require.NoError(t, err)
	assert.Len(t, reg.All(), 3)
}
