// internal/httpserver/routes_daily.go
//
// HTTP routes for the "Daily Challenge" mode.
// Exposes three endpoints under /daily:
//   - POST /daily/new         → start a daily round (creates or reuses session)
//   - POST /daily/guess       → submit a guess for today's daily round
//   - GET  /daily/leaderboard → fetch top 20 winners for today (or a given date)
//
// Each player can play once per day (enforced by DB + in-memory session).
// Sessions are held in memory for active play and persisted to DB once the
// round is finished, won or lost. Target and secret are derived from
// date + salt, so every player gets the same equation.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/mathle/internal/daily"
	"github.com/robalobadob/mathle/internal/equation"
	"github.com/robalobadob/mathle/internal/game"
	"github.com/robalobadob/mathle/internal/metrics"
)

// dailyServer wraps dependencies for /daily endpoints.
type dailyServer struct {
	srv      *Server
	store    *daily.Store
	salt     string
	mode     string
	sessions map[string]*dailySession // active sessions keyed by userID|date
	puzzle   dailyPuzzle              // cached target + secret for one date
	mu       sync.Mutex               // guards sessions, puzzle, and session rounds
}

// dailyPuzzle is the shared target and secret of one date.
type dailyPuzzle struct {
	date   string
	target int
	secret equation.Equation
}

// dailySession holds transient in-memory state for an in-progress daily round.
type dailySession struct {
	UserID string
	Date   string
	Round  *game.Round
	Start  time.Time
}

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	s.daily = &dailyServer{
		srv:      s,
		store:    daily.NewStore(s.db),
		salt:     s.cfg.DailySalt,
		mode:     s.cfg.DailyMode,
		sessions: make(map[string]*dailySession),
	}
	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", s.daily.handleNew)
		r.Post("/guess", s.daily.handleGuess)
		r.Get("/leaderboard", s.daily.handleLeaderboard)
	})
}

// today returns the current date key.
func (d *dailyServer) today() (time.Time, string) {
	now := d.srv.now().UTC()
	return now, daily.DateKey(now)
}

// -----------------------------------------------------------------------------
// /daily/new

// dailyNewRes is returned by /daily/new.
type dailyNewRes struct {
	RoundID     string           `json:"roundId"`
	Date        string           `json:"date"`
	Played      bool             `json:"played"`
	Mode        string           `json:"mode,omitempty"`
	Target      int              `json:"target,omitempty"`
	MaxAttempts int              `json:"maxAttempts,omitempty"`
	Strict      bool             `json:"strict,omitempty"`
	Keypad      []equation.Token `json:"keypad,omitempty"`
}

// handleNew creates or reuses a daily session for the current date.
//   - If the player already has a DB row for today → Played=true.
//   - Otherwise create/reuse an in-memory session and return its round.
func (d *dailyServer) handleNew(w http.ResponseWriter, r *http.Request) {
	uid, _ := d.srv.owner(w, r)
	now, date := d.today()

	if played, err := d.store.AlreadyPlayed(r.Context(), uid, date); err != nil {
		log.Warn().Err(err).Str("user", uid).Msg("daily already played")
	} else if played {
		_ = json.NewEncoder(w).Encode(dailyNewRes{Date: date, Played: true})
		return
	}

	m, err := d.srv.modes.Get(d.mode)
	if err != nil {
		writeErr(w, err)
		return
	}

	key := uid + "|" + date
	d.mu.Lock()
	defer d.mu.Unlock()

	sess, ok := d.sessions[key]
	if !ok {
		if d.puzzle.date != date {
			rd, res := daily.NewRound(m, now, d.salt, d.srv.cfg.SynthBudget)
			metrics.ObserveSynthesis(m.Name, rd.Target, res)
			d.puzzle = dailyPuzzle{date: date, target: rd.Target, secret: rd.Secret}
			d.sweep(date)
		}
		sess = &dailySession{
			UserID: uid,
			Date:   date,
			Round:  game.NewWith(m, d.puzzle.target, d.puzzle.secret),
			Start:  d.srv.now(),
		}
		d.sessions[key] = sess
		metrics.RoundsStarted.WithLabelValues(m.Name, "daily").Inc()
	}

	rd := sess.Round
	_ = json.NewEncoder(w).Encode(dailyNewRes{
		RoundID:     rd.ID,
		Date:        date,
		Mode:        rd.Mode,
		Target:      rd.Target,
		MaxAttempts: rd.MaxAttempts,
		Strict:      rd.Strict,
		Keypad:      rd.Keypad,
	})
}

// sweep drops sessions from other dates. Caller holds d.mu.
func (d *dailyServer) sweep(date string) {
	for k, sess := range d.sessions {
		if sess.Date != date {
			delete(d.sessions, k)
		}
	}
}

// -----------------------------------------------------------------------------
// /daily/guess

// dailyGuessRes is the response payload for /daily/guess.
type dailyGuessRes struct {
	game.Outcome
	Date string `json:"date"`
}

// handleGuess validates and applies a guess for today's daily session.
//   - Rejects if there is no session for the round or it already finished.
//   - Scores the guess with the round engine.
//   - Once the round is finished, persists the result and updates the score
//     record and account stats like a free-play round.
func (d *dailyServer) handleGuess(w http.ResponseWriter, r *http.Request) {
	uid, me := d.srv.owner(w, r)

	var p guessReq
	if !decode(w, r, &p, false) {
		return
	}
	tokens, err := equation.ParseTokens(p.Tokens)
	if err != nil {
		writeErr(w, err)
		return
	}

	_, date := d.today()
	key := uid + "|" + date

	d.mu.Lock()
	sess, ok := d.sessions[key]
	if !ok || sess.Round.ID != p.RoundID {
		d.mu.Unlock()
		writeError(w, http.StatusConflict, "no_session")
		return
	}
	rd := sess.Round
	out, err := rd.SubmitTokens(tokens)
	metrics.Guesses.WithLabelValues(guessResult(err)).Inc()
	if err != nil {
		d.mu.Unlock()
		if errors.Is(err, game.ErrRoundFinished) {
			writeError(w, http.StatusConflict, "already_played")
			return
		}
		writeErr(w, err)
		return
	}
	finished := rd.Finished
	result := daily.Result{
		UserID:    uid,
		Date:      date,
		Target:    rd.Target,
		Guesses:   len(rd.Attempts),
		Won:       rd.Won,
		ElapsedMs: int(d.srv.now().Sub(sess.Start).Milliseconds()),
	}
	d.mu.Unlock()

	if finished {
		d.srv.recordFinish(uid, rd, "daily")
		if me != nil {
			if err := d.srv.updateStats(r.Context(), me.ID, result.Won); err != nil {
				log.Warn().Err(err).Str("user", me.ID).Msg("bump stats")
			}
		}
		if err := d.store.InsertResult(r.Context(), result); err != nil {
			log.Warn().Err(err).Str("user", uid).Str("date", date).Msg("insert daily result")
		} else {
			d.mu.Lock()
			delete(d.sessions, key)
			d.mu.Unlock()
		}
	}
	_ = json.NewEncoder(w).Encode(dailyGuessRes{Outcome: out, Date: date})
}

// -----------------------------------------------------------------------------
// /daily/leaderboard

// lbRes is returned by /daily/leaderboard.
type lbRes struct {
	Date string        `json:"date"`
	Top  []daily.LBRow `json:"top"`
}

// handleLeaderboard returns the leaderboard for the given date (default today).
func (d *dailyServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		_, date = d.today()
	} else if err := validate.Var(date, "datetime=2006-01-02"); err != nil {
		writeError(w, http.StatusBadRequest, "bad_date")
		return
	}
	rows, err := d.store.Leaderboard(r.Context(), date, 20)
	if err != nil {
		log.Error().Err(err).Str("date", date).Msg("daily leaderboard")
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if rows == nil {
		rows = []daily.LBRow{}
	}
	_ = json.NewEncoder(w).Encode(lbRes{Date: date, Top: rows})
}
