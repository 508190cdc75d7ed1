// internal/httpserver/accounts.go
//
// Account rows in SQLite: creation with a bcrypt hash, lookup by ID or
// case-insensitive username, and handover of guest history on login.

package httpserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

var errUsernameTaken = errors.New("username taken")

// account mirrors a users row.
type account struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	GamesPlayed  int
	Wins         int
	Streak       int
}

// signupForm carries the rules new accounts must meet.
type signupForm struct {
	Username string `validate:"min=3,max=24,handle"`
	Password string `validate:"min=8,max=100"`
}

func init() {
	_ = validate.RegisterValidation("handle", func(fl validator.FieldLevel) bool {
		for _, r := range fl.Field().String() {
			if r != '_' && (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
				return false
			}
		}
		return true
	})
}

// signupProblem turns a validation failure into a message for the client.
func signupProblem(err error) error {
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return err
	}
	switch f := fields[0]; {
	case f.Field() == "Password":
		return errors.New("password must be 8-100 chars")
	case f.Tag() == "handle":
		return errors.New("username: letters, numbers, underscore only")
	default:
		return errors.New("username must be 3-24 chars")
	}
}

const accountColumns = `id, username, password_hash, created_at, games_played, wins, streak`

func (s *Server) createAccount(ctx context.Context, username, password string) (*account, error) {
	form := signupForm{Username: strings.TrimSpace(username), Password: password}
	if err := validate.Struct(form); err != nil {
		return nil, signupProblem(err)
	}
	if _, err := s.accountByName(ctx, form.Username); err == nil {
		return nil, errUsernameTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	a := &account{
		ID:           uuid.NewString(),
		Username:     form.Username,
		PasswordHash: string(hash),
		CreatedAt:    s.now().UTC().Truncate(time.Second),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, created_at) VALUES (?,?,?,?)`,
		a.ID, a.Username, a.PasswordHash, a.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Server) accountByName(ctx context.Context, username string) (*account, error) {
	return scanAccount(s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM users WHERE lower(username)=lower(?)`, username))
}

func (s *Server) accountByID(ctx context.Context, id string) (*account, error) {
	return scanAccount(s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM users WHERE id=?`, id))
}

func scanAccount(row *sql.Row) (*account, error) {
	var (
		a       account
		created string
	)
	if err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &created, &a.GamesPlayed, &a.Wins, &a.Streak); err != nil {
		return nil, err
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &a, nil
}

func (a *account) passwordMatches(pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(pw)) == nil
}

// claimGuest moves a guest's rounds, daily results and score record onto
// userID. Failures are logged; login still succeeds.
func (s *Server) claimGuest(ctx context.Context, guestID, userID string) {
	if guestID == "" || userID == "" {
		return
	}
	steps := []struct {
		what  string
		query string
	}{
		{"rounds", `UPDATE rounds SET user_id=?, anonymous_id=NULL WHERE anonymous_id=?`},
		{"daily results", `UPDATE OR IGNORE daily_results SET user_id=? WHERE user_id=?`},
	}
	for _, st := range steps {
		if _, err := s.db.ExecContext(ctx, st.query, userID, guestID); err != nil {
			log.Warn().Err(err).Str("user", userID).Msgf("claim guest %s", st.what)
		}
	}
	if _, err := s.scores.Merge(guestID, userID); err != nil {
		log.Warn().Err(err).Str("user", userID).Msg("claim guest scores")
	}
}
