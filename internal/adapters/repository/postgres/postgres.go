// Package postgres implements repository.Store on a pgx connection pool.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/okian/quicktagger/internal/adapters/repository"
	"github.com/okian/quicktagger/internal/domain/model"
	"github.com/okian/quicktagger/pkg/logger"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Store persists the tagging tables in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
	cfg  repository.Settings
}

var _ repository.Store = (*Store)(nil)

// Open connects to dsn, checks the connection and applies the embedded
// migrations.
func Open(ctx context.Context, dsn string, opts ...repository.Option) (*Store, error) {
	cfg := repository.NewSettings("postgres", opts...)

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping postgres: %v", repository.ErrUnavailable, err)
	}

	migrations, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		pool.Close()
		return nil, err
	}
	db := stdlib.OpenDBFromPool(pool)
	err = repository.Migrate(ctx, goose.DialectPostgres, db, migrations, cfg.Logger)
	_ = db.Close()
	if err != nil {
		pool.Close()
		return nil, err
	}

	cfg.Logger.Info(ctx, "postgres store ready",
		logger.String("database", pool.Config().ConnConfig.Database))
	return &Store{pool: pool, cfg: cfg}, nil
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.Timeout)
}

func (s *Store) VerifyAnalyst(ctx context.Context, analystID, password string) (model.Analyst, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var a model.Analyst
	err := s.pool.QueryRow(ctx,
		`SELECT analyst_id FROM analysts WHERE analyst_id = $1 AND password = $2`,
		analystID, password,
	).Scan(&a.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Analyst{}, repository.ErrNotFound
	}
	if err != nil {
		return model.Analyst{}, fmt.Errorf("verify analyst: %w", err)
	}
	return a, nil
}

func (s *Store) ListTournaments(ctx context.Context) ([]model.Tournament, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `SELECT id, name FROM tournaments ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list tournaments: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[tournamentRow])
	if err != nil {
		return nil, fmt.Errorf("scan tournaments: %w", err)
	}
	tournaments := make([]model.Tournament, 0, len(out))
	for _, r := range out {
		tournaments = append(tournaments, model.Tournament{ID: r.ID, Name: r.Name})
	}
	return tournaments, nil
}

func (s *Store) ListTeams(ctx context.Context) ([]model.Team, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `SELECT id, name, tournament_id FROM teams ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[teamRow])
	if err != nil {
		return nil, fmt.Errorf("scan teams: %w", err)
	}
	teams := make([]model.Team, 0, len(out))
	for _, r := range out {
		teams = append(teams, model.Team{ID: r.ID, Name: r.Name, TournamentID: r.TournamentID})
	}
	return teams, nil
}

type tournamentRow struct {
	ID   string `db:"id"`
	Name string `db:"name"`
}

type teamRow struct {
	ID           string `db:"id"`
	Name         string `db:"name"`
	TournamentID string `db:"tournament_id"`
}

func (s *Store) CreateMatch(ctx context.Context, m model.NewMatch) (model.Match, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	created := model.Match{ID: uuid.NewString(), NewMatch: m}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO matches (id, tournament_id, team_a_id, team_b_id, details, start_time, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING start_time`,
		created.ID, m.TournamentID, m.TeamAID, m.TeamBID, m.Details, m.StartTime, string(m.Status),
	).Scan(&created.StartTime)
	if err != nil {
		return model.Match{}, fmt.Errorf("create match: %w: %v", repository.ErrRejected, err)
	}
	created.StartTime = created.StartTime.UTC()
	return created, nil
}

func (s *Store) UpdateMatchStatus(ctx context.Context, matchID string, status model.MatchStatus) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `UPDATE matches SET status = $1 WHERE id = $2`, string(status), matchID)
	if err != nil {
		return fmt.Errorf("update match status: %w: %v", repository.ErrRejected, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("match %s: %w", matchID, repository.ErrNotFound)
	}
	return nil
}

func (s *Store) InsertEvent(ctx context.Context, e model.Event) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO events (match_id, team_id, event_type, is_attacking_3rd, match_minute)
		 VALUES ($1, $2, $3, $4, $5)`,
		e.MatchID, e.TeamID, e.Type.String(), e.AttackingThird, e.MatchMinute,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w: %v", repository.ErrRejected, err)
	}
	return nil
}

// ApplySeed upserts the seed rows.
func (s *Store) ApplySeed(ctx context.Context, seed repository.Seed) error {
	batch := &pgx.Batch{}
	for _, a := range seed.Analysts {
		batch.Queue(`INSERT INTO analysts (analyst_id, password) VALUES ($1, $2)
			ON CONFLICT (analyst_id) DO NOTHING`, a.ID, a.Password)
	}
	for _, t := range seed.Tournaments {
		batch.Queue(`INSERT INTO tournaments (id, name) VALUES ($1, $2)
			ON CONFLICT (id) DO NOTHING`, t.ID, t.Name)
	}
	for _, t := range seed.Teams {
		batch.Queue(`INSERT INTO teams (id, name, tournament_id) VALUES ($1, $2, $3)
			ON CONFLICT (id) DO NOTHING`, t.ID, t.Name, t.TournamentID)
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("apply seed: %w", err)
	}
	return nil
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
