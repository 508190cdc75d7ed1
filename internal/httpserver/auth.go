// internal/httpserver/auth.go
//
// Sessions for players:
//   - POST /auth/signup, /auth/login, /auth/logout; GET /auth/me.
//   - GET /stats/me and GET /rounds/mine need a valid token.
//   - Everything else runs with optional auth. Guests get a long-lived
//     anonymous cookie, and their history is claimed on signup or login.
//
// Tokens are HS256 JWTs read from "Authorization: Bearer" or the auth cookie.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	anonCookieName = "mathle_anon"
	anonCookieTTL  = 180 * 24 * time.Hour
)

type credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// authUser is the logged-in player attached to the request context.
type authUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type ctxUserKey struct{}

func currentUser(r *http.Request) *authUser {
	me, _ := r.Context().Value(ctxUserKey{}).(*authUser)
	return me
}

func withUser(r *http.Request, u *authUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), ctxUserKey{}, u))
}

// sessionClaims is the JWT payload.
type sessionClaims struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func (s *Server) mountAuthRoutes() {
	s.r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", s.handleSignup)
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)
		r.With(s.requireAuth).Get("/me", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(currentUser(r))
		})
	})
	s.r.With(s.requireAuth).Get("/stats/me", s.handleStats)
	s.r.With(s.requireAuth).Get("/rounds/mine", s.handleMyRounds)
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if !decode(w, r, &body, false) {
		return
	}
	a, err := s.createAccount(r.Context(), body.Username, body.Password)
	switch {
	case errors.Is(err, errUsernameTaken):
		writeError(w, http.StatusConflict, "username_taken")
		return
	case err != nil:
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid_signup", Detail: err.Error()})
		return
	}
	if s.startSession(w, r, a) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": a.ID, "username": a.Username, "createdAt": a.CreatedAt})
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if !decode(w, r, &body, false) {
		return
	}
	a, err := s.accountByName(r.Context(), strings.TrimSpace(body.Username))
	if err != nil || !a.passwordMatches(body.Password) {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}
	if s.startSession(w, r, a) {
		_ = json.NewEncoder(w).Encode(authUser{ID: a.ID, Username: a.Username})
	}
}

// startSession issues the auth cookie and claims any guest history the
// browser carries. It writes the error response itself and reports success.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request, a *account) bool {
	tok, exp, err := s.issueToken(a)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "sign_failed")
		return false
	}
	s.setCookie(w, s.cfg.CookieName, tok, exp)
	if c, err := r.Cookie(anonCookieName); err == nil {
		s.claimGuest(r.Context(), c.Value, a.ID)
	}
	return true
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.setCookie(w, s.cfg.CookieName, "", time.Time{})
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	a, err := s.accountByID(r.Context(), currentUser(r).ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "not_found")
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":          a.ID,
		"gamesPlayed": a.GamesPlayed,
		"wins":        a.Wins,
		"streak":      a.Streak,
	})
}

// roundRow is one entry of GET /rounds/mine.
type roundRow struct {
	ID         string `json:"id"`
	Mode       string `json:"mode"`
	Target     int    `json:"target"`
	Status     string `json:"status"`
	Guesses    int    `json:"guesses"`
	Points     int    `json:"points"`
	StartedAt  string `json:"startedAt"`
	FinishedAt string `json:"finishedAt,omitempty"`
}

// handleMyRounds lists the player's 50 most recent rounds.
func (s *Server) handleMyRounds(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.QueryContext(r.Context(),
		`SELECT id, mode, target, status, guesses, points, started_at, COALESCE(finished_at,'')
		 FROM rounds WHERE user_id=? ORDER BY started_at DESC LIMIT 50`, currentUser(r).ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	defer rows.Close()

	out := []roundRow{}
	for rows.Next() {
		var rr roundRow
		if err := rows.Scan(&rr.ID, &rr.Mode, &rr.Target, &rr.Status, &rr.Guesses, &rr.Points, &rr.StartedAt, &rr.FinishedAt); err == nil {
			out = append(out, rr)
		}
	}
	_ = json.NewEncoder(w).Encode(out)
}

// ------------------------------- tokens ------------------------------------

func (s *Server) issueToken(a *account) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(time.Duration(s.cfg.JWTExpiresDays) * 24 * time.Hour)
	claims := sessionClaims{
		ID:       a.ID,
		Username: a.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	return signed, exp, err
}

// userFromRequest resolves the request's token to a live account. It
// returns the auth error code to report when there is no usable session.
func (s *Server) userFromRequest(r *http.Request) (*authUser, string) {
	raw := s.tokenFromRequest(r)
	if raw == "" {
		return nil, "unauthorized"
	}
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil || claims.ID == "" {
		return nil, "invalid_token"
	}
	a, err := s.accountByID(r.Context(), claims.ID)
	if err != nil {
		return nil, "invalid_token"
	}
	return &authUser{ID: a.ID, Username: a.Username}, ""
}

func (s *Server) tokenFromRequest(r *http.Request) string {
	const prefix = "bearer "
	if h := r.Header.Get("Authorization"); len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	if c, err := r.Cookie(s.cfg.CookieName); err == nil {
		return c.Value
	}
	return ""
}

// withOptionalAuth attaches the user when the token checks out and lets
// everyone else through as a guest.
func (s *Server) withOptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u, _ := s.userFromRequest(r); u != nil {
			r = withUser(r, u)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, code := s.userFromRequest(r)
		if u == nil {
			writeError(w, http.StatusUnauthorized, code)
			return
		}
		next.ServeHTTP(w, withUser(r, u))
	})
}

// ------------------------------- guests ------------------------------------

// owner names whoever the request acts for: the account when logged in,
// otherwise the guest cookie, which is issued on first use.
func (s *Server) owner(w http.ResponseWriter, r *http.Request) (string, *authUser) {
	if me := currentUser(r); me != nil {
		return me.ID, me
	}
	if c, err := r.Cookie(anonCookieName); err == nil && c.Value != "" {
		return c.Value, nil
	}
	id := uuid.NewString()
	s.setCookie(w, anonCookieName, id, s.now().Add(anonCookieTTL))
	return id, nil
}

// setCookie writes an HttpOnly cookie; a zero exp deletes it.
func (s *Server) setCookie(w http.ResponseWriter, name, value string, exp time.Time) {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Production,
		SameSite: http.SameSiteLaxMode,
		Expires:  exp,
	}
	if s.cfg.Production {
		c.SameSite = http.SameSiteNoneMode
	}
	if exp.IsZero() {
		c.MaxAge = -1
	}
	http.SetCookie(w, c)
}
