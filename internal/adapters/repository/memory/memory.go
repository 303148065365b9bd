// Package memory is an in-process Store used for demos and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/okian/quicktagger/internal/adapters/repository"
	"github.com/okian/quicktagger/internal/domain/model"
	"github.com/okian/quicktagger/pkg/logger"
)

// Op names a Store method for failure injection.
type Op string

const (
	OpVerifyAnalyst     Op = "verify_analyst"
	OpListTournaments   Op = "list_tournaments"
	OpListTeams         Op = "list_teams"
	OpCreateMatch       Op = "create_match"
	OpUpdateMatchStatus Op = "update_match_status"
	OpInsertEvent       Op = "insert_event"
)

// Store keeps every table in maps guarded by one lock.
type Store struct {
	mu          sync.RWMutex
	analysts    map[string]string // id -> password
	tournaments []model.Tournament
	teams       []model.Team
	matches     map[string]model.Match
	matchOrder  []string
	events      []model.Event
	failures    map[Op]error
	newID       func() string
	logger      logger.Logger
}

var _ repository.Store = (*Store)(nil)

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		analysts: make(map[string]string),
		matches:  make(map[string]model.Match),
		failures: make(map[Op]error),
		newID:    uuid.NewString,
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fail makes every call of op return err until Fail(op, nil) is called.
func (s *Store) Fail(op Op, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

func (s *Store) failure(ctx context.Context, op Op) error {
	if err := s.failures[op]; err != nil {
		s.logger.Warn(ctx, "injected store failure", logger.String("op", string(op)), logger.Error(err))
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Store) VerifyAnalyst(ctx context.Context, analystID, password string) (model.Analyst, error) {
	if err := ctx.Err(); err != nil {
		return model.Analyst{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure(ctx, OpVerifyAnalyst); err != nil {
		return model.Analyst{}, err
	}
	if pw, ok := s.analysts[analystID]; !ok || pw != password {
		return model.Analyst{}, repository.ErrNotFound
	}
	return model.Analyst{ID: analystID}, nil
}

func (s *Store) ListTournaments(ctx context.Context) ([]model.Tournament, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure(ctx, OpListTournaments); err != nil {
		return nil, err
	}
	return append([]model.Tournament(nil), s.tournaments...), nil
}

func (s *Store) ListTeams(ctx context.Context) ([]model.Team, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.failure(ctx, OpListTeams); err != nil {
		return nil, err
	}
	return append([]model.Team(nil), s.teams...), nil
}

func (s *Store) CreateMatch(ctx context.Context, m model.NewMatch) (model.Match, error) {
	if err := ctx.Err(); err != nil {
		return model.Match{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure(ctx, OpCreateMatch); err != nil {
		return model.Match{}, err
	}
	created := model.Match{ID: s.newID(), NewMatch: m}
	s.matches[created.ID] = created
	s.matchOrder = append(s.matchOrder, created.ID)
	s.logger.Debug(ctx, "match created", logger.String("match_id", created.ID))
	return created, nil
}

func (s *Store) UpdateMatchStatus(ctx context.Context, matchID string, status model.MatchStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure(ctx, OpUpdateMatchStatus); err != nil {
		return err
	}
	m, ok := s.matches[matchID]
	if !ok {
		return fmt.Errorf("match %s: %w", matchID, repository.ErrNotFound)
	}
	m.Status = status
	s.matches[matchID] = m
	return nil
}

func (s *Store) InsertEvent(ctx context.Context, e model.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure(ctx, OpInsertEvent); err != nil {
		return err
	}
	if _, ok := s.matches[e.MatchID]; !ok {
		return fmt.Errorf("match %s: %w", e.MatchID, repository.ErrNotFound)
	}
	s.events = append(s.events, e)
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// Match returns a stored match.
func (s *Store) Match(id string) (model.Match, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.matches[id]
	return m, ok
}

// Matches returns all matches in creation order.
func (s *Store) Matches() []model.Match {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Match, 0, len(s.matchOrder))
	for _, id := range s.matchOrder {
		out = append(out, s.matches[id])
	}
	return out
}

// Events returns the written events in write order.
func (s *Store) Events() []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Event(nil), s.events...)
}
