package service

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/okian/quicktagger/internal/adapters/publish"
	repository "github.com/okian/quicktagger/internal/adapters/repository"
	"github.com/okian/quicktagger/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the persistence backend. The service closes it on Stop.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithPublisher mirrors written events to a message bus. The service closes
// it on Stop.
func WithPublisher(p publish.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithTimeSource replaces the wall clock, mainly for tests.
func WithTimeSource(clk clockwork.Clock) Option {
	return func(s *Service) {
		if clk != nil {
			s.clk = clk
		}
	}
}

// WithWorkerCount sets the number of event writer goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the event dispatch queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the idempotency key cache size. Zero disables keys.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size >= 0 {
			s.dedupeSize = size
		}
	}
}

// WithTickInterval sets the match clock period.
func WithTickInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.tickInterval = d
		}
	}
}

// WithFeedbackTTL sets how long a toast stays visible.
func WithFeedbackTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.feedbackTTL = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
