package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/quicktagger/internal/domain/model"
	"github.com/okian/quicktagger/internal/domain/session"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
)

// WrapKind tags err with kind so callers can branch with errors.Is on both.
func WrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// classify maps domain errors to HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, model.ErrUnknownEventType):
		return http.StatusBadRequest, "unknown_event_type"
	case errors.Is(err, session.ErrAuthentication):
		return http.StatusUnauthorized, "authentication_failed"
	case errors.Is(err, session.ErrMatchCreation):
		return http.StatusBadGateway, "match_creation_failed"
	case errors.Is(err, session.ErrNotReady):
		return http.StatusConflict, "not_ready"
	case errors.Is(err, session.ErrMatchStarting):
		return http.StatusConflict, "match_starting"
	case errors.Is(err, session.ErrSessionChanged):
		return http.StatusConflict, "session_changed"
	case errors.Is(err, session.ErrNoActiveMatch):
		return http.StatusConflict, "no_active_match"
	case errors.Is(err, session.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, session.ErrInvalidSelection):
		return http.StatusUnprocessableEntity, "invalid_selection"
	case errors.Is(err, session.ErrUnknownTeam):
		return http.StatusUnprocessableEntity, "unknown_team"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
