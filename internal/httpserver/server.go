// internal/httpserver/server.go
//
// HTTP server wiring for the Math Wordle backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/metrics", "/modes".
//   - Round endpoints (optional auth): mounted under /round (routes_round.go).
//   - Daily Challenge endpoints (optional auth): mounted under /daily.
//   - Auth + profile/stat endpoints: /auth/*, /stats/me, /rounds/mine (auth.go).
//   - Score records: /scores/me (routes_scores.go).
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Errors are JSON bodies of the form {"error":"<code>"}.

package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/mathle/internal/config"
	"github.com/robalobadob/mathle/internal/equation"
	"github.com/robalobadob/mathle/internal/game"
	"github.com/robalobadob/mathle/internal/modes"
	"github.com/robalobadob/mathle/internal/scores"
	"github.com/robalobadob/mathle/internal/store"
)

// Deps are the collaborators a Server needs.
type Deps struct {
	Config *config.Config
	Store  store.Store
	DB     *sql.DB
	Modes  *modes.Registry
	Scores *scores.Tracker
}

// Server bundles router, round store, and DB handle.
type Server struct {
	r       *chi.Mux
	cfg     *config.Config
	store   store.Store
	db      *sql.DB
	modes   *modes.Registry
	scores  *scores.Tracker
	locks   *roundLocks
	limiter *ipLimiter
	daily   *dailyServer
	now     func() time.Time
}

// New constructs a Server, installs middleware, and registers routes.
func New(d Deps) *Server {
	s := &Server{
		r:       chi.NewRouter(),
		cfg:     d.Config,
		store:   d.Store,
		db:      d.DB,
		modes:   d.Modes,
		scores:  d.Scores,
		locks:   newRoundLocks(),
		limiter: newIPLimiter(d.Config.NewRoundRPS, d.Config.NewRoundBurst),
		now:     time.Now,
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(jsonContentType)                 // default JSON responses
	s.r.Use(cors(s.cfg.ClientOrigin))        // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"mathle","endpoints":["/health","/modes","POST /round/new","POST /round/guess","/daily/*","/auth/*"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	s.r.Handle("/metrics", promhttp.Handler())
	s.r.Get("/modes", s.handleModes)

	// Rounds: OPTIONAL AUTH (guests can play)
	s.mountRounds(s.r.With(s.withOptionalAuth))

	// Daily Challenge: OPTIONAL AUTH (guests can play once per day)
	s.mountDaily(s.r.With(s.withOptionalAuth))

	// Score records for the current player (account or guest)
	s.mountScores(s.r.With(s.withOptionalAuth))

	// Auth + profile/stats
	s.mountAuthRoutes()

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// handleModes lists the loaded difficulty tiers.
func (s *Server) handleModes(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"default": modes.DefaultName,
		"modes":   s.modes.All(),
	})
}

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for a single origin.
func cors(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ------------------------------ responses ----------------------------------

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, errorBody{Error: code})
}

// writeErr maps domain errors to a status and error code.
// Player input errors are 400, unknown rounds 404, finished rounds 409.
func writeErr(w http.ResponseWriter, err error) {
	status, code := http.StatusBadRequest, ""
	switch {
	case errors.Is(err, store.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, game.ErrRoundFinished):
		status, code = http.StatusConflict, "round_finished"
	case errors.Is(err, game.ErrTargetMismatch):
		code = "target_mismatch"
	case errors.Is(err, game.ErrNotOnKeypad):
		code = "not_on_keypad"
	case errors.Is(err, equation.ErrMalformed):
		code = "malformed_guess"
	case errors.Is(err, equation.ErrFull):
		code = "guess_full"
	case errors.Is(err, equation.ErrOperatorFirst):
		code = "operator_first"
	case errors.Is(err, equation.ErrAdjacentKind):
		code = "adjacent_kind"
	case errors.Is(err, equation.ErrUnknownToken):
		code = "unknown_token"
	case errors.Is(err, modes.ErrUnknownMode):
		code = "unknown_mode"
	default:
		log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	detail := ""
	if code == "target_mismatch" {
		detail = err.Error()
	}
	writeJSON(w, status, errorBody{Error: code, Detail: detail})
}

var validate = validator.New()

// decode reads a JSON body into v and validates its struct tags.
// An empty body is allowed when emptyOK is set. On failure it writes a 400
// and returns false.
func decode(w http.ResponseWriter, r *http.Request, v any, emptyOK bool) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if !(emptyOK && errors.Is(err, io.EOF)) {
			writeError(w, http.StatusBadRequest, "bad_json")
			return false
		}
	}
	if err := validate.Struct(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_request", Detail: err.Error()})
		return false
	}
	return true
}
