// Package postgrest implements repository.Store against a PostgREST
// endpoint such as a Supabase project.
package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/okian/quicktagger/internal/adapters/repository"
	"github.com/okian/quicktagger/internal/domain/model"
	"github.com/okian/quicktagger/pkg/logger"
	"github.com/valyala/fasthttp"
)

const (
	restPath      = "/rest/v1/"
	contentJSON   = "application/json"
	acceptSingle  = "application/vnd.pgrst.object+json"
	preferReturn  = "return=representation"
	preferMinimal = "return=minimal"
	maxErrorBody  = 512
)

// Store talks to PostgREST over fasthttp.
type Store struct {
	base   string
	apiKey string
	client *fasthttp.Client
	cfg    repository.Settings
}

var _ repository.Store = (*Store)(nil)

// New creates a store for the project at baseURL, e.g.
// https://xyz.supabase.co. apiKey is sent both as apikey and bearer token.
func New(baseURL, apiKey string, opts ...repository.Option) (*Store, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("postgrest: invalid base url %q", baseURL)
	}
	cfg := repository.NewSettings("postgrest", opts...)
	return &Store{
		base:   u.String() + restPath,
		apiKey: apiKey,
		client: &fasthttp.Client{
			MaxConnsPerHost:     64,
			ReadTimeout:         cfg.Timeout,
			WriteTimeout:        cfg.Timeout,
			MaxIdleConnDuration: time.Minute,
		},
		cfg: cfg,
	}, nil
}

type request struct {
	method string
	table  string
	query  url.Values
	body   any
	single bool
	prefer string
}

// do sends r and decodes the response body into out when out is non-nil.
func (s *Store) do(ctx context.Context, r request, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	uri := s.base + r.table
	if len(r.query) > 0 {
		uri += "?" + r.query.Encode()
	}
	req.SetRequestURI(uri)
	req.Header.SetMethod(r.method)
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	if r.single {
		req.Header.Set("Accept", acceptSingle)
	} else {
		req.Header.Set("Accept", contentJSON)
	}
	if r.prefer != "" {
		req.Header.Set("Prefer", r.prefer)
	}
	if r.body != nil {
		b, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", r.table, err)
		}
		req.Header.SetContentType(contentJSON)
		req.SetBody(b)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(s.cfg.Timeout)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.client.DoDeadline(req, resp, deadline); err != nil {
		return fmt.Errorf("%s %s: %w: %v", r.method, r.table, repository.ErrUnavailable, err)
	}

	status := resp.StatusCode()
	switch {
	case status == fasthttp.StatusNotAcceptable && r.single:
		// PostgREST answers 406 when a single-object request matched no row
		return repository.ErrNotFound
	case status >= fasthttp.StatusInternalServerError:
		return fmt.Errorf("%s %s: %w: status %d: %s", r.method, r.table,
			repository.ErrUnavailable, status, snippet(resp.Body()))
	case status >= fasthttp.StatusBadRequest:
		return fmt.Errorf("%s %s: %w: status %d: %s", r.method, r.table,
			repository.ErrRejected, status, snippet(resp.Body()))
	}

	if out == nil {
		return nil
	}
	body := resp.Body()
	if len(bytes.TrimSpace(body)) == 0 {
		return repository.ErrNotFound
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", r.table, err)
	}
	return nil
}

func snippet(b []byte) string {
	if len(b) > maxErrorBody {
		b = b[:maxErrorBody]
	}
	return string(bytes.TrimSpace(b))
}

func eq(v string) string { return "eq." + v }

func (s *Store) VerifyAnalyst(ctx context.Context, analystID, password string) (model.Analyst, error) {
	var row struct {
		AnalystID flexID `json:"analyst_id"`
	}
	err := s.do(ctx, request{
		method: fasthttp.MethodGet,
		table:  "analysts",
		query: url.Values{
			"select":     {"analyst_id"},
			"analyst_id": {eq(analystID)},
			"password":   {eq(password)},
		},
		single: true,
	}, &row)
	if err != nil {
		return model.Analyst{}, err
	}
	return model.Analyst{ID: string(row.AnalystID)}, nil
}

func (s *Store) ListTournaments(ctx context.Context) ([]model.Tournament, error) {
	var rows []struct {
		ID   flexID `json:"id"`
		Name string `json:"name"`
	}
	err := s.do(ctx, request{
		method: fasthttp.MethodGet,
		table:  "tournaments",
		query:  url.Values{"select": {"*"}},
	}, &rows)
	if err != nil {
		return nil, err
	}
	out := make([]model.Tournament, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Tournament{ID: string(r.ID), Name: r.Name})
	}
	return out, nil
}

func (s *Store) ListTeams(ctx context.Context) ([]model.Team, error) {
	var rows []struct {
		ID           flexID `json:"id"`
		Name         string `json:"name"`
		TournamentID flexID `json:"tournament_id"`
	}
	err := s.do(ctx, request{
		method: fasthttp.MethodGet,
		table:  "teams",
		query:  url.Values{"select": {"*"}},
	}, &rows)
	if err != nil {
		return nil, err
	}
	out := make([]model.Team, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Team{ID: string(r.ID), Name: r.Name, TournamentID: string(r.TournamentID)})
	}
	return out, nil
}

type matchRow struct {
	ID           flexID            `json:"id"`
	TournamentID flexID            `json:"tournament_id"`
	TeamAID      flexID            `json:"team_a_id"`
	TeamBID      flexID            `json:"team_b_id"`
	Details      string            `json:"details"`
	StartTime    time.Time         `json:"start_time"`
	Status       model.MatchStatus `json:"status"`
}

func (s *Store) CreateMatch(ctx context.Context, m model.NewMatch) (model.Match, error) {
	var row matchRow
	err := s.do(ctx, request{
		method: fasthttp.MethodPost,
		table:  "matches",
		body:   m,
		single: true,
		prefer: preferReturn,
	}, &row)
	if err != nil {
		return model.Match{}, err
	}
	if row.ID == "" {
		return model.Match{}, fmt.Errorf("create match: %w: no id returned", repository.ErrRejected)
	}
	return model.Match{
		ID: string(row.ID),
		NewMatch: model.NewMatch{
			TournamentID: string(row.TournamentID),
			TeamAID:      string(row.TeamAID),
			TeamBID:      string(row.TeamBID),
			Details:      row.Details,
			StartTime:    row.StartTime,
			Status:       row.Status,
		},
	}, nil
}

func (s *Store) UpdateMatchStatus(ctx context.Context, matchID string, status model.MatchStatus) error {
	var rows []struct {
		ID flexID `json:"id"`
	}
	err := s.do(ctx, request{
		method: fasthttp.MethodPatch,
		table:  "matches",
		query:  url.Values{"id": {eq(matchID)}, "select": {"id"}},
		body:   map[string]model.MatchStatus{"status": status},
		prefer: preferReturn,
	}, &rows)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("match %s: %w", matchID, repository.ErrNotFound)
	}
	return nil
}

func (s *Store) InsertEvent(ctx context.Context, e model.Event) error {
	return s.do(ctx, request{
		method: fasthttp.MethodPost,
		table:  "events",
		body:   e,
		prefer: preferMinimal,
	}, nil)
}

// Close releases idle connections.
func (s *Store) Close() error {
	s.client.CloseIdleConnections()
	s.cfg.Logger.Debug(context.Background(), "postgrest client closed", logger.String("base", s.base))
	return nil
}
