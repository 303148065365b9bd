package memory

import (
	"github.com/okian/quicktagger/internal/domain/model"
	"github.com/okian/quicktagger/pkg/logger"
)

// Option configures a Store.
type Option func(*Store)

// WithAnalyst adds an analyst credential.
func WithAnalyst(id, password string) Option {
	return func(s *Store) { s.analysts[id] = password }
}

// WithTournament adds a tournament.
func WithTournament(t model.Tournament) Option {
	return func(s *Store) { s.tournaments = append(s.tournaments, t) }
}

// WithTeam adds a team.
func WithTeam(t model.Team) Option {
	return func(s *Store) { s.teams = append(s.teams, t) }
}

// WithIDGenerator replaces the uuid match id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// WithLogger sets the store logger. The default discards everything.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}
