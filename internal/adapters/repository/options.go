package repository

import (
	"time"

	"github.com/okian/quicktagger/pkg/logger"
)

// Settings holds options shared by the store implementations.
type Settings struct {
	Logger  logger.Logger
	Timeout time.Duration
}

// Option applies a shared store option.
type Option func(*Settings)

// DefaultTimeout bounds a single store call when the caller's context has no
// deadline.
const DefaultTimeout = 10 * time.Second

// NewSettings applies opts over the defaults.
func NewSettings(name string, opts ...Option) Settings {
	s := Settings{Timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&s)
	}
	if s.Logger == nil {
		s.Logger = logger.Get().Named(name)
	}
	return s
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Settings) {
		if l != nil {
			s.Logger = l
		}
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Settings) {
		if d > 0 {
			s.Timeout = d
		}
	}
}
