package memory

import (
	"context"
	_ "embed"
	"io"

	"github.com/okian/quicktagger/internal/adapters/repository"
	"github.com/okian/quicktagger/internal/domain/model"
	"github.com/okian/quicktagger/pkg/logger"
)

//go:embed demo_seed.yaml
var demoSeed []byte

// LoadSeed adds the analysts, tournaments and teams in r.
func (s *Store) LoadSeed(r io.Reader) error {
	seed, err := repository.DecodeSeed(r)
	if err != nil {
		return err
	}
	s.ApplySeed(seed)
	return nil
}

// ApplySeed adds a decoded seed.
func (s *Store) ApplySeed(seed repository.Seed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range seed.Analysts {
		s.analysts[a.ID] = a.Password
	}
	for _, t := range seed.Tournaments {
		s.tournaments = append(s.tournaments, model.Tournament{ID: t.ID, Name: t.Name})
	}
	for _, t := range seed.Teams {
		s.teams = append(s.teams, model.Team{ID: t.ID, Name: t.Name, TournamentID: t.TournamentID})
	}
	s.logger.Info(context.Background(), "seed applied",
		logger.Int("analysts", len(seed.Analysts)),
		logger.Int("tournaments", len(seed.Tournaments)),
		logger.Int("teams", len(seed.Teams)))
}

// DemoSeed returns the built-in demo roster.
func DemoSeed() []byte {
	return append([]byte(nil), demoSeed...)
}
