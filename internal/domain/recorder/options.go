package recorder

import (
	"github.com/okian/quicktagger/internal/domain/dedupe"
	"github.com/okian/quicktagger/pkg/logger"
)

// Option configures a Recorder.
type Option func(*Recorder)

// WithLogger sets the recorder's logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Recorder) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithDeduper enables idempotency keys.
func WithDeduper(d dedupe.Deduper) Option {
	return func(r *Recorder) { r.deduper = d }
}

// WithPublisher mirrors written events to p.
func WithPublisher(p Publisher) Option {
	return func(r *Recorder) { r.publisher = p }
}
