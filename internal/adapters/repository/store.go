// Package repository defines the persistence service contract used by the
// tagging engine. Implementations live in subpackages: memory, postgrest,
// postgres and sqlite.
package repository

import (
	"context"

	"github.com/okian/quicktagger/internal/domain/model"
)

// Store provides the reads and writes the tagging engine needs. All methods
// are safe for concurrent use.
type Store interface {
	// VerifyAnalyst returns the analyst whose id and password both match
	// exactly. Returns ErrNotFound when none does.
	VerifyAnalyst(ctx context.Context, analystID, password string) (model.Analyst, error)

	ListTournaments(ctx context.Context) ([]model.Tournament, error)
	ListTeams(ctx context.Context) ([]model.Team, error)

	// CreateMatch inserts a match and returns it with the id the store assigned.
	CreateMatch(ctx context.Context, m model.NewMatch) (model.Match, error)

	// UpdateMatchStatus sets the status of one match. Returns ErrNotFound
	// when the id is unknown.
	UpdateMatchStatus(ctx context.Context, matchID string, status model.MatchStatus) error

	// InsertEvent appends one event.
	InsertEvent(ctx context.Context, e model.Event) error

	Close() error
}
