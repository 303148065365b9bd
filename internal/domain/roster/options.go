package roster

import "github.com/okian/quicktagger/pkg/logger"

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used for swallowed fetch failures.
func WithLogger(l logger.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}
