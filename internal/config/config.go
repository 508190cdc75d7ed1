// internal/config/config.go
//
// Runtime configuration, read from the environment (optionally seeded from a
// .env file by main). Every setting has a development default; FromEnv
// validates the final values and reports all problems at once.
//
// Environment variables:
//   PORT, DB_PATH, SCORES_DIR, SCORES_IN_MEMORY, REDIS_URL, JWT_SECRET,
//   JWT_EXPIRES_DAYS, COOKIE_NAME, CLIENT_ORIGIN, DAILY_SALT, DAILY_MODE,
//   MODES_FILE, SYNTH_BUDGET, NEW_ROUND_RPS, NEW_ROUND_BURST, NODE_ENV,
//   LOG_LEVEL, LOG_FORMAT

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/robalobadob/mathle/internal/synth"
)

// DevJWTSecret is the development signing key; refused in production.
const DevJWTSecret = "dev_secret_change_me"

// Config holds the server's runtime configuration.
type Config struct {
	Port           string  `validate:"required,numeric"`
	DBPath         string  `validate:"required"`
	ScoresDir      string  `validate:"required_if=ScoresInMemory false"`
	RedisURL       string  `validate:"omitempty,url"`
	JWTSecret      string  `validate:"required"`
	JWTExpiresDays int     `validate:"min=1,max=365"`
	CookieName     string  `validate:"required"`
	ClientOrigin   string  `validate:"required,url"`
	DailySalt      string  `validate:"required"`
	DailyMode      string  `validate:"required"`
	ModesFile      string  `validate:"omitempty,file"`
	SynthBudget    int     `validate:"min=1,max=10000000"`
	NewRoundRPS    float64 `validate:"gt=0"`
	NewRoundBurst  int     `validate:"min=1"`
	LogLevel       string  `validate:"oneof=trace debug info warn error fatal panic disabled"`
	LogFormat      string  `validate:"oneof=json console"`
	ScoresInMemory bool
	Production     bool
}

var validate = validator.New()

// FromEnv builds a Config from the process environment.
func FromEnv() (*Config, error) {
	var problems []string
	num := func(key string, def int) int {
		v, err := envInt(key, def)
		if err != nil {
			problems = append(problems, err.Error())
		}
		return v
	}

	rps, err := envFloat("NEW_ROUND_RPS", 2)
	if err != nil {
		problems = append(problems, err.Error())
	}

	cfg := &Config{
		Port:           getEnv("PORT", "5175"),
		DBPath:         getEnv("DB_PATH", "./data/app.db"),
		ScoresDir:      getEnv("SCORES_DIR", "./data/scores"),
		ScoresInMemory: envBool("SCORES_IN_MEMORY"),
		RedisURL:       os.Getenv("REDIS_URL"),
		JWTSecret:      getEnv("JWT_SECRET", DevJWTSecret),
		JWTExpiresDays: num("JWT_EXPIRES_DAYS", 14),
		CookieName:     getEnv("COOKIE_NAME", "mathle_token"),
		ClientOrigin:   getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		DailySalt:      getEnv("DAILY_SALT", "local_dev_salt"),
		DailyMode:      getEnv("DAILY_MODE", "normal"),
		ModesFile:      os.Getenv("MODES_FILE"),
		SynthBudget:    num("SYNTH_BUDGET", synth.DefaultBudget),
		NewRoundRPS:    rps,
		NewRoundBurst:  num("NEW_ROUND_BURST", 5),
		Production:     os.Getenv("NODE_ENV") == "production",
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:      strings.ToLower(getEnv("LOG_FORMAT", "json")),
	}

	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				problems = append(problems, fmt.Sprintf("%s: failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
			}
		} else {
			problems = append(problems, err.Error())
		}
	}
	if cfg.Production && cfg.JWTSecret == DevJWTSecret {
		problems = append(problems, "JWT_SECRET must be set in production")
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string { return ":" + c.Port }

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s: not an integer: %q", k, v)
	}
	return n, nil
}

func envFloat(k string, def float64) (float64, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, fmt.Errorf("%s: not a number: %q", k, v)
	}
	return f, nil
}

func envBool(k string) bool {
	b, _ := strconv.ParseBool(os.Getenv(k))
	return b
}
