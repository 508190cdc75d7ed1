// internal/daily/daily.go
//
// Deterministic daily challenge.
//
// Everything about a day's round is derived from HMAC-SHA256(salt, date):
//   - bytes 0..7   pick the target index within the tier's target pool
//   - bytes 8..23  seed the synthesizer's PCG generator
//
// so every player gets the same target and the same secret for a date,
// without storing the secret anywhere.

package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"

	"github.com/robalobadob/mathle/internal/game"
	"github.com/robalobadob/mathle/internal/modes"
	"github.com/robalobadob/mathle/internal/synth"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func digest(date time.Time, salt string) []byte {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(date)))
	return h.Sum(nil)
}

// TargetIndex returns a deterministic index in [0, n) for a date.
func TargetIndex(date time.Time, salt string, n int) int {
	if n <= 0 {
		return 0
	}
	sum := digest(date, salt)
	return int(binary.BigEndian.Uint64(sum[:8]) % uint64(n))
}

// Seed returns the PCG seed pair for a date.
func Seed(date time.Time, salt string) (uint64, uint64) {
	sum := digest(date, salt)
	return binary.BigEndian.Uint64(sum[8:16]), binary.BigEndian.Uint64(sum[16:24])
}

// NewRound builds the daily round for date in tier m. Two calls with the same
// date, salt, tier and budget produce the same target and secret.
func NewRound(m *modes.Mode, date time.Time, salt string, budget int) (*game.Round, synth.Result) {
	target := m.Targets[TargetIndex(date, salt, len(m.Targets))]
	s1, s2 := Seed(date, salt)
	s := synth.Synthesizer{Budget: budget, Rand: synth.NewSeeded(s1, s2)}
	res := s.Synthesize(target, m.NumberPool(), m.OperatorPool())
	return game.NewWith(m, target, res.Equation), res
}
