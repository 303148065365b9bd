package api

import (
	"net/http"
)

type attackingThirdRequest struct {
	Enabled *bool `json:"enabled"`
}

func (s *Server) handleStartMatch(w http.ResponseWriter, r *http.Request) {
	if _, err := s.deps.StartMatch(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.deps.Snapshot())
}

func (s *Server) handleEndMatch(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.EndMatch(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Snapshot())
}

// handleAttackingThird toggles the modifier, or sets it when "enabled" is given.
func (s *Server) handleAttackingThird(w http.ResponseWriter, r *http.Request) {
	var req attackingThirdRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	var err error
	if req.Enabled != nil {
		err = s.deps.SetAttackingThird(*req.Enabled)
	} else {
		_, err = s.deps.ToggleAttackingThird()
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Snapshot())
}
