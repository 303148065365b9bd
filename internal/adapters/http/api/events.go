package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/okian/quicktagger/internal/domain/model"
	"github.com/okian/quicktagger/internal/domain/recorder"
)

type eventRequest struct {
	TeamID    string `json:"team_id"`
	EventType string `json:"event_type"`
	EventID   string `json:"event_id,omitempty"`
}

func (r eventRequest) validate() (model.EventType, error) {
	if strings.TrimSpace(r.TeamID) == "" {
		return 0, errors.New("team_id is required")
	}
	return model.ParseEventType(r.EventType)
}

type eventTypeResponse struct {
	Name     string         `json:"name"`
	Label    string         `json:"label"`
	Category model.Category `json:"category"`
}

// handleRecordEvent handles POST /api/match/events. The write happens in the
// background; 202 means the tap was accepted, not that it was stored.
func (s *Server) handleRecordEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.record_event"
	var req eventRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	et, err := req.validate()
	if err != nil {
		if !errors.Is(err, model.ErrUnknownEventType) {
			err = WrapKind(op, ErrBadRequest, err)
		}
		s.fail(w, r, err)
		return
	}
	receipt, err := s.deps.Record(r.Context(), req.TeamID, et, req.EventID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, eventResponse(receipt))
}

type recordResponse struct {
	Status string      `json:"status"`
	Event  model.Event `json:"event"`
}

func eventResponse(rc recorder.Receipt) recordResponse {
	status := "accepted"
	switch {
	case rc.Duplicate:
		status = "duplicate"
	case rc.Dropped:
		status = "dropped"
	}
	return recordResponse{Status: status, Event: rc.Event}
}

func (s *Server) handleEventTypes(w http.ResponseWriter, _ *http.Request) {
	types := model.EventTypes()
	out := make([]eventTypeResponse, 0, len(types))
	for _, t := range types {
		out = append(out, eventTypeResponse{Name: t.String(), Label: t.Label(), Category: t.Category()})
	}
	writeJSON(w, http.StatusOK, out)
}
