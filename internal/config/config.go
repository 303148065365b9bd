// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers a YAML file and QTAG_* environment variables on top.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Persistence backends.
const (
	StoreMemory    = "memory"
	StorePostgREST = "postgrest"
	StorePostgres  = "postgres"
	StoreSQLite    = "sqlite"
)

// Event publishers.
const (
	PublisherNone = "none"
	PublisherNATS = "nats"
	PublisherAMQP = "amqp"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects json (default) or console output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Store selects the persistence backend: memory, postgrest, postgres, sqlite.
	Store string `koanf:"store"`

	// PostgRESTURL is the project base URL (e.g. https://xyz.supabase.co).
	PostgRESTURL string `koanf:"postgrest_url"`

	// PostgRESTKey is sent as both apikey and bearer token.
	PostgRESTKey string `koanf:"postgrest_key"`

	// PostgresDSN is used by the postgres store.
	PostgresDSN string `koanf:"postgres_dsn"`

	// SQLitePath is the database file of the sqlite store.
	SQLitePath string `koanf:"sqlite_path"`

	// SeedFile is a YAML file of analysts, tournaments and teams applied to
	// the memory, postgres and sqlite stores at startup.
	SeedFile string `koanf:"seed_file"`

	// EventQueueSize bounds the in-memory event dispatch queue.
	EventQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of event writer workers.
	WorkerCount int `koanf:"worker_count"`

	// TickIntervalMS is the match clock period.
	TickIntervalMS int `koanf:"tick_interval_ms"`

	// FeedbackTTLMS is how long a toast stays visible.
	FeedbackTTLMS int `koanf:"feedback_ttl_ms"`

	// DedupeSize sets the size of the idempotency key cache. Zero disables it.
	DedupeSize int `koanf:"dedupe_size"`

	// Publisher mirrors written events to a message bus: none, nats, amqp.
	Publisher string `koanf:"publisher"`

	NATSURL      string `koanf:"nats_url"`
	NATSSubject  string `koanf:"nats_subject"`
	AMQPURL      string `koanf:"amqp_url"`
	AMQPExchange string `koanf:"amqp_exchange"`

	// AllowedOrigins is a comma separated CORS allow list; "*" allows all.
	AllowedOrigins string `koanf:"allowed_origins"`
}

// New creates a Config with defaults. Context is accepted first to satisfy the
// project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:       "info",
		LogFormat:      "json",
		Addr:           ":9080",
		Store:          StoreMemory,
		SQLitePath:     "quicktagger.db",
		EventQueueSize: 1024,
		WorkerCount:    runtime.NumCPU(),
		TickIntervalMS: 1000,
		FeedbackTTLMS:  2000,
		DedupeSize:     10_000,
		Publisher:      PublisherNone,
		NATSSubject:    "quicktagger.events",
		AMQPExchange:   "quicktagger.events",
		AllowedOrigins: "*",
	}
}

// TickInterval returns the clock period as a duration.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}

// FeedbackTTL returns the toast lifetime as a duration.
func (c *Config) FeedbackTTL() time.Duration {
	return time.Duration(c.FeedbackTTLMS) * time.Millisecond
}

// Origins splits AllowedOrigins into a list.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Validate checks the fields that must be present for the selected backends.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.TickIntervalMS <= 0 {
		return fmt.Errorf("%w: tick_interval_ms must be positive", ErrInvalidConfig)
	}
	if c.FeedbackTTLMS <= 0 {
		return fmt.Errorf("%w: feedback_ttl_ms must be positive", ErrInvalidConfig)
	}
	if c.EventQueueSize <= 0 {
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	}

	switch c.Store {
	case StoreMemory:
	case StorePostgREST:
		if c.PostgRESTURL == "" {
			return fmt.Errorf("%w: postgrest_url is required for the postgrest store", ErrInvalidConfig)
		}
	case StorePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("%w: postgres_dsn is required for the postgres store", ErrInvalidConfig)
		}
	case StoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("%w: sqlite_path is required for the sqlite store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	}

	switch c.Publisher {
	case "", PublisherNone:
	case PublisherNATS:
		if c.NATSURL == "" {
			return fmt.Errorf("%w: nats_url is required for the nats publisher", ErrInvalidConfig)
		}
	case PublisherAMQP:
		if c.AMQPURL == "" {
			return fmt.Errorf("%w: amqp_url is required for the amqp publisher", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown publisher %q", ErrInvalidConfig, c.Publisher)
	}
	return nil
}
