package api

import (
	"errors"
	"net/http"
	"strings"
)

type loginRequest struct {
	AnalystID string `json:"analyst_id"`
	Password  string `json:"password"`
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Snapshot())
}

// handleLogin handles POST /api/session/login.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	const op = "api.login"
	var req loginRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if strings.TrimSpace(req.AnalystID) == "" {
		s.fail(w, r, WrapKind(op, ErrBadRequest, errors.New("analyst_id is required")))
		return
	}
	if err := s.deps.Login(r.Context(), req.AnalystID, req.Password); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Snapshot())
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.deps.Logout(r.Context())
	writeJSON(w, http.StatusOK, s.deps.Snapshot())
}
