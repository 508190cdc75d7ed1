// internal/modes/modes.go
//
// Difficulty tier management for the game engine.
//
// Responsibilities:
//   - Load tier definitions from a YAML file (MODES_FILE) or fall back to the
//     embedded defaults in assets/modes.yaml.
//   - Validate each tier (non-empty pools, known operators, positive attempts).
//   - Canonicalize number and operator pools into equation tokens once, so the
//     synthesizer and the keypad see identical token strings.
//
// Tiers:
//   - "easy":   small numbers, + - * only, lenient.
//   - "normal": the classic pools, all six operators.
//   - "hard":   fractions and negatives; guesses must equal the target.

package modes

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/robalobadob/mathle/assets"
	"github.com/robalobadob/mathle/internal/equation"
)

// DefaultName is used when a request does not name a tier.
const DefaultName = "normal"

// ErrUnknownMode is returned by Registry.Get for names that are not loaded.
var ErrUnknownMode = errors.New("unknown mode")

// Mode is one difficulty tier.
type Mode struct {
	Name      string   `yaml:"name" json:"name" validate:"required,alphanum"`
	Label     string   `yaml:"label" json:"label"`
	Targets   []int    `yaml:"targets" json:"targets" validate:"min=1"`
	Numbers   []string `yaml:"numbers" json:"numbers" validate:"min=1,dive,required"`
	Operators []string `yaml:"operators" json:"operators" validate:"min=1,dive,oneof=+ - * / % **"`
	Attempts  int      `yaml:"attempts" json:"attempts" validate:"min=1,max=20"`
	BaseScore int      `yaml:"base_score" json:"baseScore" validate:"min=0"`
	Strict    bool     `yaml:"strict" json:"strict"`

	numberPool   []equation.Token
	operatorPool []equation.Token
}

// NumberPool returns the canonical number tokens.
func (m *Mode) NumberPool() []equation.Token { return m.numberPool }

// OperatorPool returns the canonical operator tokens.
func (m *Mode) OperatorPool() []equation.Token { return m.operatorPool }

// Registry holds the loaded tiers keyed by name.
type Registry struct {
	byName map[string]*Mode
	order  []string
}

type file struct {
	Modes []*Mode `yaml:"modes"`
}

var validate = validator.New()

// Load parses a YAML document with a top-level "modes" list.
func Load(data []byte) (*Registry, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse modes: %w", err)
	}
	if len(f.Modes) == 0 {
		return nil, errors.New("modes: no tiers defined")
	}

	reg := &Registry{byName: make(map[string]*Mode, len(f.Modes))}
	for _, m := range f.Modes {
		if err := validate.Struct(m); err != nil {
			return nil, fmt.Errorf("mode %q: %w", m.Name, err)
		}
		if _, dup := reg.byName[m.Name]; dup {
			return nil, fmt.Errorf("mode %q defined twice", m.Name)
		}
		var err error
		if m.numberPool, err = parsePool(m.Numbers, equation.Token.IsNumber); err != nil {
			return nil, fmt.Errorf("mode %q numbers: %w", m.Name, err)
		}
		if m.operatorPool, err = parsePool(m.Operators, equation.Token.IsOperator); err != nil {
			return nil, fmt.Errorf("mode %q operators: %w", m.Name, err)
		}
		reg.byName[m.Name] = m
		reg.order = append(reg.order, m.Name)
	}
	return reg, nil
}

// LoadFile reads tiers from path.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read modes file: %w", err)
	}
	return Load(data)
}

// Embedded loads the tiers compiled into the binary.
func Embedded() (*Registry, error) {
	data, err := assets.Modes()
	if err != nil {
		return nil, err
	}
	return Load(data)
}

// Init loads from path when set, otherwise from the embedded defaults.
func Init(path string) (*Registry, error) {
	if path != "" {
		return LoadFile(path)
	}
	return Embedded()
}

// parsePool canonicalizes and de-duplicates a pool, keeping first-seen order.
func parsePool(raw []string, ok func(equation.Token) bool) ([]equation.Token, error) {
	seen := make(map[equation.Token]struct{}, len(raw))
	out := make([]equation.Token, 0, len(raw))
	for _, s := range raw {
		t, err := equation.ParseToken(s)
		if err != nil || !ok(t) {
			return nil, fmt.Errorf("bad token %q", s)
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out, nil
}

// Get looks a tier up by name. An empty name selects DefaultName.
func (r *Registry) Get(name string) (*Mode, error) {
	if name == "" {
		name = DefaultName
	}
	if m, ok := r.byName[name]; ok {
		return m, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMode, name)
}

// All returns tiers in file order.
func (r *Registry) All() []*Mode {
	out := make([]*Mode, 0, len(r.order))
	for _, n := range r.order {
		out = append(out, r.byName[n])
	}
	return out
}

// Names returns the sorted tier names.
func (r *Registry) Names() []string {
	out := append([]string(nil), r.order...)
	sort.Strings(out)
	return out
}
