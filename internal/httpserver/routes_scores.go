// internal/httpserver/routes_scores.go
//
// Score record endpoints for the current player (account or guest):
//   - GET  /scores/me          → highscore, wins, tries, autosave
//   - POST /scores/me/autosave → toggle autosave {enabled}
//   - POST /scores/me/save     → write the record now
//
// The response also reports whether the in-memory record has been saved.

package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/mathle/internal/scores"
)

func (s *Server) mountScores(r chi.Router) {
	r.Route("/scores/me", func(r chi.Router) {
		r.Get("/", s.handleScores)
		r.Post("/autosave", s.handleAutosave)
		r.Post("/save", s.handleSaveScores)
	})
}

type scoresRes struct {
	scores.Record
	Saved bool `json:"saved"` // stored copy matches the live record
}

func (s *Server) writeScores(w http.ResponseWriter, owner string, rec scores.Record) {
	stored, ok, err := s.scores.Stored(owner)
	if err != nil {
		log.Warn().Err(err).Str("owner", owner).Msg("read stored scores")
	}
	_ = json.NewEncoder(w).Encode(scoresRes{Record: rec, Saved: ok && stored == rec})
}

func (s *Server) handleScores(w http.ResponseWriter, r *http.Request) {
	owner, _ := s.owner(w, r)
	s.writeScores(w, owner, s.scores.Get(owner))
}

type autosaveReq struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

func (s *Server) handleAutosave(w http.ResponseWriter, r *http.Request) {
	var req autosaveReq
	if !decode(w, r, &req, false) {
		return
	}
	owner, _ := s.owner(w, r)
	rec, err := s.scores.SetAutosave(owner, *req.Enabled)
	if err != nil {
		log.Error().Err(err).Str("owner", owner).Msg("set autosave")
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	s.writeScores(w, owner, rec)
}

func (s *Server) handleSaveScores(w http.ResponseWriter, r *http.Request) {
	owner, _ := s.owner(w, r)
	rec, err := s.scores.Save(owner)
	if err != nil {
		log.Error().Err(err).Str("owner", owner).Msg("save scores")
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	s.writeScores(w, owner, rec)
}
