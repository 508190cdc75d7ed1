// internal/httpserver/routes_round.go
//
// HTTP routes for free-play rounds.
//   - POST /round/new            → start a round in a tier (rate limited)
//   - GET  /round/{id}           → player view (secret hidden until finished)
//   - POST /round/{id}/token     → append one token to the current guess
//   - POST /round/{id}/backspace → drop the last token
//   - POST /round/{id}/clear     → empty the current guess
//   - POST /round/{id}/submit    → submit the current guess
//   - POST /round/guess          → submit a full token list in one call
//
// Live rounds are held in the round store; an owner row in the rounds table
// and the player's score record follow each round for history and stats.

package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/mathle/internal/equation"
	"github.com/robalobadob/mathle/internal/game"
	"github.com/robalobadob/mathle/internal/metrics"
	"github.com/robalobadob/mathle/internal/store"
	"github.com/robalobadob/mathle/internal/synth"
)

// mountRounds registers all /round routes.
func (s *Server) mountRounds(r chi.Router) {
	r.Route("/round", func(r chi.Router) {
		r.With(s.limiter.middleware).Post("/new", s.handleNewRound)
		r.Post("/guess", s.handleGuess)
		r.Get("/{id}", s.handleGetRound)
		r.Post("/{id}/token", s.handleToken)
		r.Post("/{id}/backspace", s.handleBackspace)
		r.Post("/{id}/clear", s.handleClear)
		r.Post("/{id}/submit", s.handleSubmit)
	})
}

// roundLocks serializes mutations of the same round across requests.
type roundLocks struct {
	mu    sync.Mutex
	locks map[string]*roundLock
}

type roundLock struct {
	sync.Mutex
	refs int
}

func newRoundLocks() *roundLocks {
	return &roundLocks{locks: make(map[string]*roundLock)}
}

// lock acquires the lock for id and returns its release func.
func (l *roundLocks) lock(id string) func() {
	l.mu.Lock()
	rl, ok := l.locks[id]
	if !ok {
		rl = &roundLock{}
		l.locks[id] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.Lock()
	return func() {
		rl.Unlock()
		l.mu.Lock()
		rl.refs--
		if rl.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

// loadOwned fetches round id for the caller. Rounds started by someone else
// read as missing.
func (s *Server) loadOwned(r *http.Request, id string) (*game.Round, error) {
	rd, err := s.store.Get(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if !callerOwns(r, rd.Owner) {
		return nil, store.ErrNotFound
	}
	return rd, nil
}

// callerOwns matches owner against the logged-in user and the guest cookie,
// so a round started as a guest stays playable after signing in.
func callerOwns(r *http.Request, owner string) bool {
	if owner == "" {
		return true
	}
	if me := currentUser(r); me != nil && me.ID == owner {
		return true
	}
	c, err := r.Cookie(anonCookieName)
	return err == nil && c.Value == owner
}

// mutate loads the caller's round id, applies fn, and saves the round if fn
// succeeded.
func (s *Server) mutate(r *http.Request, id string, fn func(*game.Round) error) (*game.Round, error) {
	release := s.locks.lock(id)
	defer release()

	rd, err := s.loadOwned(r, id)
	if err != nil {
		return nil, err
	}
	if err := fn(rd); err != nil {
		return rd, err
	}
	if err := s.store.Save(r.Context(), rd); err != nil {
		return rd, fmt.Errorf("save round %s: %w", id, err)
	}
	return rd, nil
}

// ------------------------------ new round ----------------------------------

type newRoundReq struct {
	Mode string `json:"mode" validate:"omitempty,max=32"`
}

type newRoundRes struct {
	RoundID     string           `json:"roundId"`
	Mode        string           `json:"mode"`
	Target      int              `json:"target"`
	MaxAttempts int              `json:"maxAttempts"`
	Strict      bool             `json:"strict"`
	Keypad      []equation.Token `json:"keypad"`
}

// handleNewRound picks a target, synthesizes the secret, stores the round,
// and records an owner row (user_id or anonymous_id).
func (s *Server) handleNewRound(w http.ResponseWriter, r *http.Request) {
	var req newRoundReq
	if !decode(w, r, &req, true) {
		return
	}
	m, err := s.modes.Get(req.Mode)
	if err != nil {
		writeErr(w, err)
		return
	}

	owner, me := s.owner(w, r)
	rd, res := game.New(m, synth.Synthesizer{Budget: s.cfg.SynthBudget})
	rd.Owner = owner
	log.Debug().
		Str("roundId", rd.ID).
		Str("mode", m.Name).
		Int("target", rd.Target).
		Int("attempts", res.Attempts).
		Bool("fallback", res.Fallback).
		Str("secret", rd.Secret.String()).
		Msg("synthesized secret")
	metrics.ObserveSynthesis(m.Name, rd.Target, res)

	if err := s.store.Save(r.Context(), rd); err != nil {
		log.Error().Err(err).Msg("save round")
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	metrics.RoundsStarted.WithLabelValues(m.Name, "free").Inc()

	col := "anonymous_id"
	if me != nil {
		col = "user_id"
	}
	if _, err := s.db.ExecContext(r.Context(),
		`INSERT INTO rounds (id, `+col+`, mode, target, started_at, status, guesses)
		 VALUES (?,?,?,?,?,?,0)`,
		rd.ID, owner, rd.Mode, rd.Target, rd.StartedAt.Format(time.RFC3339), string(game.StatePlaying),
	); err != nil {
		log.Warn().Err(err).Str("roundId", rd.ID).Msg("insert round row")
	}

	_ = json.NewEncoder(w).Encode(newRoundRes{
		RoundID:     rd.ID,
		Mode:        rd.Mode,
		Target:      rd.Target,
		MaxAttempts: rd.MaxAttempts,
		Strict:      rd.Strict,
		Keypad:      rd.Keypad,
	})
}

// ------------------------------ view / edit --------------------------------

func (s *Server) handleGetRound(w http.ResponseWriter, r *http.Request) {
	rd, err := s.loadOwned(r, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = json.NewEncoder(w).Encode(rd.View())
}

type tokenReq struct {
	Token string `json:"token" validate:"required"`
}

// currentRes is returned by the editing endpoints.
type currentRes struct {
	Current  []equation.Token `json:"current"`
	Complete bool             `json:"complete"` // current guess is a full equation
}

func writeCurrent(w http.ResponseWriter, rd *game.Round) {
	_ = json.NewEncoder(w).Encode(currentRes{
		Current:  rd.Current,
		Complete: equation.IsValidShape(rd.Current),
	})
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenReq
	if !decode(w, r, &req, false) {
		return
	}
	tok, err := equation.ParseToken(req.Token)
	if err != nil {
		writeErr(w, err)
		return
	}
	rd, err := s.mutate(r, chi.URLParam(r, "id"), func(rd *game.Round) error {
		return rd.AppendToken(tok)
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeCurrent(w, rd)
}

func (s *Server) handleBackspace(w http.ResponseWriter, r *http.Request) {
	rd, err := s.mutate(r, chi.URLParam(r, "id"), (*game.Round).RemoveLastToken)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeCurrent(w, rd)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	rd, err := s.mutate(r, chi.URLParam(r, "id"), (*game.Round).ClearGuess)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeCurrent(w, rd)
}

// ------------------------------- submit ------------------------------------

// guessReq is the request payload for POST /round/guess.
type guessReq struct {
	RoundID string   `json:"roundId" validate:"required"`
	Tokens  []string `json:"tokens" validate:"required"`
}

// handleSubmit submits the round's current guess.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, chi.URLParam(r, "id"), func(rd *game.Round) (game.Outcome, error) {
		return rd.Submit()
	})
}

// handleGuess submits a full token list in one call.
func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req guessReq
	if !decode(w, r, &req, false) {
		return
	}
	tokens, err := equation.ParseTokens(req.Tokens)
	if err != nil {
		metrics.Guesses.WithLabelValues("malformed").Inc()
		writeErr(w, err)
		return
	}
	s.submit(w, r, req.RoundID, func(rd *game.Round) (game.Outcome, error) {
		return rd.SubmitTokens(tokens)
	})
}

// submit applies fn to round id, then persists counters/history and score
// records. Persistence after the round store is best effort.
func (s *Server) submit(w http.ResponseWriter, r *http.Request, id string, fn func(*game.Round) (game.Outcome, error)) {
	var out game.Outcome
	rd, err := s.mutate(r, id, func(rd *game.Round) error {
		var err error
		out, err = fn(rd)
		return err
	})
	metrics.Guesses.WithLabelValues(guessResult(err)).Inc()
	if err != nil {
		writeErr(w, err)
		return
	}

	owner, me := s.owner(w, r)
	s.recordSubmission(r.Context(), rd, owner, me)
	if rd.Finished {
		s.recordFinish(owner, rd, "free")
	}
	_ = json.NewEncoder(w).Encode(out)
}

// recordSubmission bumps the rounds row and, on a finished round, the
// account's stats in one transaction.
func (s *Server) recordSubmission(ctx context.Context, rd *game.Round, owner string, me *authUser) {
	ownerClause := `anonymous_id=?`
	if me != nil {
		ownerClause = `user_id=?`
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Warn().Err(err).Str("roundId", rd.ID).Msg("begin round tx")
		return
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`UPDATE rounds SET guesses=? WHERE id=? AND `+ownerClause,
		len(rd.Attempts), rd.ID, owner); err != nil {
		log.Warn().Err(err).Str("roundId", rd.ID).Msg("update guesses")
	}
	if rd.Finished {
		if _, err := tx.Exec(`UPDATE rounds SET status=?, finished_at=?, points=? WHERE id=? AND `+ownerClause,
			string(rd.State()), s.now().UTC().Format(time.RFC3339), rd.Points, rd.ID, owner); err != nil {
			log.Warn().Err(err).Str("roundId", rd.ID).Msg("finish round")
		}
		if me != nil {
			if err := bumpStats(tx, me.ID, rd.Won); err != nil {
				log.Warn().Err(err).Str("user", me.ID).Msg("bump stats")
			}
		}
	}
	if err := tx.Commit(); err != nil {
		log.Warn().Err(err).Str("roundId", rd.ID).Msg("commit round tx")
	}
}

// recordFinish emits the end-of-round signals: the metric and the owner's
// score record (a win with its points, or a loss).
func (s *Server) recordFinish(owner string, rd *game.Round, kind string) {
	metrics.RoundsFinished.WithLabelValues(rd.Mode, string(rd.State())).Inc()
	if rd.Won {
		s.scores.RecordWin(owner, rd.Points)
	} else {
		s.scores.RecordLoss(owner)
	}
	log.Debug().Str("roundId", rd.ID).Str("kind", kind).Str("state", string(rd.State())).
		Int("points", rd.Points).Msg("round finished")
}

// updateStats runs bumpStats in its own transaction.
func (s *Server) updateStats(ctx context.Context, userID string, won bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := bumpStats(tx, userID, won); err != nil {
		return err
	}
	return tx.Commit()
}

// bumpStats increments games played; updates wins and streak based on result (within tx).
func bumpStats(tx *sql.Tx, userID string, won bool) error {
	var gp, wins, streak int
	row := tx.QueryRow(`SELECT games_played, wins, streak FROM users WHERE id=?`, userID)
	if err := row.Scan(&gp, &wins, &streak); err != nil {
		return err
	}
	gp++
	if won {
		wins++
		streak++
	} else {
		streak = 0
	}
	_, err := tx.Exec(`UPDATE users SET games_played=?, wins=?, streak=? WHERE id=?`, gp, wins, streak, userID)
	return err
}

// guessResult labels a submission for metrics.
func guessResult(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, game.ErrRoundFinished):
		return "finished"
	case errors.Is(err, game.ErrTargetMismatch):
		return "mismatch"
	case errors.Is(err, game.ErrNotOnKeypad):
		return "off_keypad"
	case errors.Is(err, equation.ErrMalformed):
		return "malformed"
	default:
		return "error"
	}
}
