package api

import (
	"net/http"
)

type selectRequest struct {
	ID string `json:"id"`
}

type detailsRequest struct {
	Details string `json:"details"`
}

func (s *Server) handleRoster(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Roster())
}

// handleRefreshRoster re-reads tournaments and teams. A half that fails to
// load keeps its cached value, so the response is always the current roster.
func (s *Server) handleRefreshRoster(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.RefreshRoster(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Roster())
}

func (s *Server) handleCandidates(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Candidates())
}

func (s *Server) handleSelectTournament(w http.ResponseWriter, r *http.Request) {
	s.selectWith(w, r, s.deps.SelectTournament)
}

func (s *Server) handleSelectTeamA(w http.ResponseWriter, r *http.Request) {
	s.selectWith(w, r, s.deps.SelectTeamA)
}

func (s *Server) handleSelectTeamB(w http.ResponseWriter, r *http.Request) {
	s.selectWith(w, r, s.deps.SelectTeamB)
}

func (s *Server) selectWith(w http.ResponseWriter, r *http.Request, apply func(string) error) {
	var req selectRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := apply(req.ID); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Snapshot())
}

func (s *Server) handleSetDetails(w http.ResponseWriter, r *http.Request) {
	var req detailsRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.deps.SetDetails(req.Details); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Snapshot())
}
