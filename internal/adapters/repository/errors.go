package repository

import "errors"

// Sentinel kinds for persistence errors.
var (
	ErrNotFound    = errors.New("record not found")
	ErrUnavailable = errors.New("persistence service unavailable")
	ErrRejected    = errors.New("persistence service rejected the request")
)
