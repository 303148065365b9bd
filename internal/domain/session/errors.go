package session

import "errors"

// Sentinel errors. Only ErrAuthentication and ErrMatchCreation describe
// failures of the persistence service; the rest reject a trigger that is not
// valid in the current state, leaving the session unchanged.
var (
	ErrAuthentication    = errors.New("invalid credentials")
	ErrMatchCreation     = errors.New("failed to start match")
	ErrInvalidTransition = errors.New("invalid transition for current screen")
	ErrNotReady          = errors.New("match setup incomplete")
	ErrMatchStarting     = errors.New("match start already in progress")
	ErrInvalidSelection  = errors.New("invalid selection")
	ErrNoActiveMatch     = errors.New("no active match")
	ErrUnknownTeam       = errors.New("team is not playing in the active match")
	ErrSessionChanged    = errors.New("session changed while request was in flight")
)
