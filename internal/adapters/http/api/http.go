// Package api exposes the tagging session to an operator client over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/okian/quicktagger/internal/domain/model"
	"github.com/okian/quicktagger/internal/domain/recorder"
	"github.com/okian/quicktagger/internal/domain/roster"
	"github.com/okian/quicktagger/internal/domain/session"
	"github.com/okian/quicktagger/pkg/logger"
	"github.com/rs/cors"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Snapshot() session.Snapshot
	Login(ctx context.Context, analystID, password string) error
	Logout(ctx context.Context)

	Roster() roster.Snapshot
	RefreshRoster(ctx context.Context) error
	Candidates() session.Candidates
	SelectTournament(id string) error
	SelectTeamA(id string) error
	SelectTeamB(id string) error
	SetDetails(details string) error

	StartMatch(ctx context.Context) (model.Match, error)
	EndMatch(ctx context.Context) error
	ToggleAttackingThird() (bool, error)
	SetAttackingThird(on bool) error

	Record(ctx context.Context, teamID string, et model.EventType, key string) (recorder.Receipt, error)
}

// Server wires HTTP routes for the operator API.
type Server struct {
	deps    Dependencies
	stats   StatsProvider
	logger  logger.Logger
	origins []string
	live    http.Handler
	docs    func(*mux.Router)

	health *HealthHandler
	statsH *StatsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, stats StatsProvider, opts ...Option) *Server {
	s := &Server{
		deps:    deps,
		stats:   stats,
		origins: []string{"*"},
		health:  NewHealthHandler(),
		statsH:  NewStatsHandler(stats),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("api")
	}
	return s
}

// Router returns the routes without the outer CORS and request id layers.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(MetricsMiddleware)

	r.Handle("/healthz", http.HandlerFunc(s.health.HandleHealth)).Methods(http.MethodGet)
	r.HandleFunc("/stats", s.statsH.HandleStats).Methods(http.MethodGet)

	a := r.PathPrefix("/api").Subrouter()
	a.HandleFunc("/session", s.handleSession).Methods(http.MethodGet)
	a.HandleFunc("/session/login", s.handleLogin).Methods(http.MethodPost)
	a.HandleFunc("/session/logout", s.handleLogout).Methods(http.MethodPost)

	a.HandleFunc("/roster", s.handleRoster).Methods(http.MethodGet)
	a.HandleFunc("/roster/refresh", s.handleRefreshRoster).Methods(http.MethodPost)
	a.HandleFunc("/setup/candidates", s.handleCandidates).Methods(http.MethodGet)
	a.HandleFunc("/setup/tournament", s.handleSelectTournament).Methods(http.MethodPut)
	a.HandleFunc("/setup/team-a", s.handleSelectTeamA).Methods(http.MethodPut)
	a.HandleFunc("/setup/team-b", s.handleSelectTeamB).Methods(http.MethodPut)
	a.HandleFunc("/setup/details", s.handleSetDetails).Methods(http.MethodPut)

	a.HandleFunc("/match/start", s.handleStartMatch).Methods(http.MethodPost)
	a.HandleFunc("/match/end", s.handleEndMatch).Methods(http.MethodPost)
	a.HandleFunc("/match/attacking-third", s.handleAttackingThird).Methods(http.MethodPost)
	a.HandleFunc("/match/events", s.handleRecordEvent).Methods(http.MethodPost)
	a.HandleFunc("/event-types", s.handleEventTypes).Methods(http.MethodGet)

	if s.live != nil {
		r.Handle("/ws", s.live).Methods(http.MethodGet)
	}
	if s.docs != nil {
		s.docs(r)
	}

	// Subrouters answer their own mismatches, so both levels need the JSON handlers.
	for _, rt := range []*mux.Router{r, a} {
		rt.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
		rt.NotFoundHandler = http.HandlerFunc(notFound)
	}
	return r
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "not_found", nil)
}

// Handler returns the full HTTP handler: CORS, request ids and routes.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions,
		},
		AllowedHeaders: []string{"Content-Type", "Authorization", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	})
	return c.Handler(RequestIDMiddleware(s.Router()))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return WrapKind("decode body", ErrBadRequest, err)
	}
	return nil
}

// fail maps err to a status and writes it, logging server side failures.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.Int("status", status),
			logger.Error(err),
		)
	}
	writeError(w, status, code, err)
}
