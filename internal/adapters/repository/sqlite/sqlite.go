// Package sqlite implements repository.Store in a single SQLite file, for
// running the tagger without a remote persistence service.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/okian/quicktagger/internal/adapters/repository"
	"github.com/okian/quicktagger/internal/domain/model"
	"github.com/okian/quicktagger/pkg/logger"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const (
	matchIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	matchIDLength   = 16
	maxOpenConns    = 4
)

// Store persists the tagging tables in SQLite.
type Store struct {
	db    *sql.DB
	cfg   repository.Settings
	newID func() (string, error)
	now   func() time.Time
}

var _ repository.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path and applies the
// embedded migrations. ":memory:" opens a private in-memory database.
func Open(ctx context.Context, path string, opts ...repository.Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}
	cfg := repository.NewSettings("sqlite", opts...)

	dsn := path
	if path != ":memory:" {
		dsn = "file:" + filepath.Clean(path)
	}
	dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)" +
		"&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == ":memory:" {
		// every connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	migrations, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := repository.Migrate(ctx, goose.DialectSQLite3, db, migrations, cfg.Logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	cfg.Logger.Info(ctx, "sqlite store ready", logger.String("path", path))
	return &Store{
		db:  db,
		cfg: cfg,
		newID: func() (string, error) {
			return gonanoid.Generate(matchIDAlphabet, matchIDLength)
		},
		now: time.Now,
	}, nil
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.Timeout)
}

func (s *Store) VerifyAnalyst(ctx context.Context, analystID, password string) (model.Analyst, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT analyst_id FROM analysts WHERE analyst_id = ? AND password = ?`,
		analystID, password,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Analyst{}, repository.ErrNotFound
	}
	if err != nil {
		return model.Analyst{}, fmt.Errorf("verify analyst: %w", err)
	}
	return model.Analyst{ID: id}, nil
}

func (s *Store) ListTournaments(ctx context.Context) ([]model.Tournament, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM tournaments ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list tournaments: %w", err)
	}
	defer rows.Close()

	out := []model.Tournament{}
	for rows.Next() {
		var t model.Tournament
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan tournament: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) ListTeams(ctx context.Context) ([]model.Team, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, tournament_id FROM teams ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	out := []model.Team{}
	for rows.Next() {
		var t model.Team
		if err := rows.Scan(&t.ID, &t.Name, &t.TournamentID); err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) CreateMatch(ctx context.Context, m model.NewMatch) (model.Match, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	id, err := s.newID()
	if err != nil {
		return model.Match{}, fmt.Errorf("generate match id: %w", err)
	}
	start := m.StartTime
	if start.IsZero() {
		start = s.now()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO matches (id, tournament_id, team_a_id, team_b_id, details, start_time, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, m.TournamentID, m.TeamAID, m.TeamBID, m.Details, toMillis(start), string(m.Status),
	)
	if err != nil {
		return model.Match{}, fmt.Errorf("create match: %w: %v", repository.ErrRejected, err)
	}
	m.StartTime = fromMillis(toMillis(start))
	return model.Match{ID: id, NewMatch: m}, nil
}

func (s *Store) UpdateMatchStatus(ctx context.Context, matchID string, status model.MatchStatus) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `UPDATE matches SET status = ? WHERE id = ?`, string(status), matchID)
	if err != nil {
		return fmt.Errorf("update match status: %w: %v", repository.ErrRejected, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update match status: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("match %s: %w", matchID, repository.ErrNotFound)
	}
	return nil
}

func (s *Store) InsertEvent(ctx context.Context, e model.Event) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (match_id, team_id, event_type, is_attacking_3rd, match_minute, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.MatchID, e.TeamID, e.Type.String(), e.AttackingThird, e.MatchMinute, toMillis(s.now()),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w: %v", repository.ErrRejected, err)
	}
	return nil
}

// Match reads one match row.
func (s *Store) Match(ctx context.Context, id string) (model.Match, error) {
	var (
		m     model.Match
		start int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, tournament_id, team_a_id, team_b_id, details, start_time, status
		 FROM matches WHERE id = ?`, id,
	).Scan(&m.ID, &m.TournamentID, &m.TeamAID, &m.TeamBID, &m.Details, &start, &m.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Match{}, repository.ErrNotFound
	}
	if err != nil {
		return model.Match{}, fmt.Errorf("read match: %w", err)
	}
	m.StartTime = fromMillis(start)
	return m, nil
}

// Events lists the events of a match in insertion order.
func (s *Store) Events(ctx context.Context, matchID string) ([]model.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT match_id, team_id, event_type, is_attacking_3rd, match_minute
		 FROM events WHERE match_id = ? ORDER BY id`, matchID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	out := []model.Event{}
	for rows.Next() {
		var (
			e   model.Event
			typ string
		)
		if err := rows.Scan(&e.MatchID, &e.TeamID, &typ, &e.AttackingThird, &e.MatchMinute); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if e.Type, err = model.ParseEventType(typ); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ApplySeed inserts the seed rows, leaving existing ids untouched.
func (s *Store) ApplySeed(ctx context.Context, seed repository.Seed) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, a := range seed.Analysts {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO analysts (analyst_id, password) VALUES (?, ?)`, a.ID, a.Password); err != nil {
			return fmt.Errorf("seed analyst %s: %w", a.ID, err)
		}
	}
	for _, t := range seed.Tournaments {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO tournaments (id, name) VALUES (?, ?)`, t.ID, t.Name); err != nil {
			return fmt.Errorf("seed tournament %s: %w", t.ID, err)
		}
	}
	for _, t := range seed.Teams {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO teams (id, name, tournament_id) VALUES (?, ?, ?)`,
			t.ID, t.Name, t.TournamentID); err != nil {
			return fmt.Errorf("seed team %s: %w", t.ID, err)
		}
	}
	return tx.Commit()
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
