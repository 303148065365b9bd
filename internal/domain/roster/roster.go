// Package roster caches the tournaments and teams offered during match setup.
package roster

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/okian/quicktagger/internal/domain/model"
	"github.com/okian/quicktagger/pkg/logger"
	"github.com/okian/quicktagger/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// Source reads the roster from the persistence service.
type Source interface {
	ListTournaments(ctx context.Context) ([]model.Tournament, error)
	ListTeams(ctx context.Context) ([]model.Team, error)
}

// Snapshot is a copy of the cached roster.
type Snapshot struct {
	Tournaments []model.Tournament `json:"tournaments"`
	Teams       []model.Team       `json:"teams"`
}

// Cache holds the last successfully fetched tournaments and teams. The two
// halves are refreshed independently.
type Cache struct {
	src    Source
	logger logger.Logger

	mu          sync.RWMutex
	tournaments []model.Tournament
	teams       []model.Team
}

// New creates an empty cache over src.
func New(src Source, opts ...Option) *Cache {
	c := &Cache{src: src}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("roster")
	}
	return c
}

// Refresh fetches both halves concurrently. A half that fails keeps its
// previous value; the returned error joins the failures.
func (c *Cache) Refresh(ctx context.Context) error {
	metrics.RecordRosterRefresh()

	var (
		g            errgroup.Group
		tournaments  []model.Tournament
		teams        []model.Team
		tErr, teaErr error
	)
	g.Go(func() error {
		tournaments, tErr = c.src.ListTournaments(ctx)
		return nil
	})
	g.Go(func() error {
		teams, teaErr = c.src.ListTeams(ctx)
		return nil
	})
	_ = g.Wait()

	c.mu.Lock()
	if tErr == nil {
		c.tournaments = tournaments
	}
	if teaErr == nil {
		c.teams = teams
	}
	c.mu.Unlock()

	if tErr != nil {
		tErr = fmt.Errorf("tournaments: %w", tErr)
		metrics.RecordRosterFetchFailure("tournaments")
		c.logger.Warn(ctx, "roster fetch failed, keeping cached tournaments", logger.Error(tErr))
	}
	if teaErr != nil {
		teaErr = fmt.Errorf("teams: %w", teaErr)
		metrics.RecordRosterFetchFailure("teams")
		c.logger.Warn(ctx, "roster fetch failed, keeping cached teams", logger.Error(teaErr))
	}
	return errors.Join(tErr, teaErr)
}

// Snapshot copies the cached roster.
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		Tournaments: append([]model.Tournament(nil), c.tournaments...),
		Teams:       append([]model.Team(nil), c.teams...),
	}
}

// Tournaments returns the cached tournaments.
func (c *Cache) Tournaments() []model.Tournament {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.Tournament(nil), c.tournaments...)
}

// Tournament looks up one cached tournament.
func (c *Cache) Tournament(id string) (model.Tournament, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, t := range c.tournaments {
		if t.ID == id {
			return t, true
		}
	}
	return model.Tournament{}, false
}

// Team looks up one cached team.
func (c *Cache) Team(id string) (model.Team, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, t := range c.teams {
		if t.ID == id {
			return t, true
		}
	}
	return model.Team{}, false
}

// TeamsIn returns the teams whose tournament is tournamentID, excluding the
// given team ids.
func (c *Cache) TeamsIn(tournamentID string, exclude ...string) []model.Team {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.Team, 0)
	if tournamentID == "" {
		return out
	}
next:
	for _, t := range c.teams {
		if t.TournamentID != tournamentID {
			continue
		}
		for _, id := range exclude {
			if id != "" && t.ID == id {
				continue next
			}
		}
		out = append(out, t)
	}
	return out
}
