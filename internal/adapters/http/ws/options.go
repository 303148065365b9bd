package ws

import "github.com/okian/quicktagger/pkg/logger"

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the hub logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithConfig replaces the connection settings. Zero fields keep defaults.
func WithConfig(cfg Config) Option {
	return func(h *Hub) {
		d := DefaultConfig()
		if cfg.WriteTimeout <= 0 {
			cfg.WriteTimeout = d.WriteTimeout
		}
		if cfg.ReadTimeout <= 0 {
			cfg.ReadTimeout = d.ReadTimeout
		}
		if cfg.PingInterval <= 0 {
			cfg.PingInterval = d.PingInterval
		}
		if cfg.MaxMessageSize <= 0 {
			cfg.MaxMessageSize = d.MaxMessageSize
		}
		if cfg.SendBuffer <= 0 {
			cfg.SendBuffer = d.SendBuffer
		}
		if cfg.CheckOrigin == nil {
			cfg.CheckOrigin = d.CheckOrigin
		}
		h.cfg = cfg
	}
}
