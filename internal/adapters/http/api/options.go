package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/okian/quicktagger/pkg/logger"
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAllowedOrigins sets the CORS origins; "*" allows any.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.origins = origins
		}
	}
}

// WithLive mounts the snapshot stream at /ws.
func WithLive(h http.Handler) Option {
	return func(s *Server) { s.live = h }
}

// WithDocs lets register add documentation routes.
func WithDocs(register func(*mux.Router)) Option {
	return func(s *Server) { s.docs = register }
}
