package main

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/okian/quicktagger/internal/adapters/publish"
	repository "github.com/okian/quicktagger/internal/adapters/repository"
	"github.com/okian/quicktagger/internal/adapters/repository/memory"
	"github.com/okian/quicktagger/internal/adapters/repository/postgres"
	"github.com/okian/quicktagger/internal/adapters/repository/postgrest"
	"github.com/okian/quicktagger/internal/adapters/repository/sqlite"
	"github.com/okian/quicktagger/internal/config"
	"github.com/okian/quicktagger/pkg/logger"
)

// seeder is implemented by the stores that own their schema.
type seeder interface {
	ApplySeed(ctx context.Context, seed repository.Seed) error
}

// openStore builds the configured persistence backend and applies the seed
// file when one is set.
func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (repository.Store, error) {
	storeLog := log.Named("store")
	opts := []repository.Option{repository.WithLogger(storeLog)}

	switch cfg.Store {
	case config.StoreMemory:
		st := memory.New(memory.WithLogger(storeLog))
		seed := memory.DemoSeed()
		if cfg.SeedFile != "" {
			b, err := os.ReadFile(cfg.SeedFile)
			if err != nil {
				return nil, fmt.Errorf("read seed file: %w", err)
			}
			seed = b
		}
		if err := st.LoadSeed(bytes.NewReader(seed)); err != nil {
			return nil, fmt.Errorf("load seed: %w", err)
		}
		return st, nil

	case config.StorePostgREST:
		if cfg.SeedFile != "" {
			log.Warn(ctx, "seed_file is ignored by the postgrest store", logger.String("seed_file", cfg.SeedFile))
		}
		return postgrest.New(cfg.PostgRESTURL, cfg.PostgRESTKey, opts...)

	case config.StorePostgres:
		st, err := postgres.Open(ctx, cfg.PostgresDSN, opts...)
		if err != nil {
			return nil, err
		}
		return st, applySeedFile(ctx, cfg.SeedFile, st)

	case config.StoreSQLite:
		st, err := sqlite.Open(ctx, cfg.SQLitePath, opts...)
		if err != nil {
			return nil, err
		}
		return st, applySeedFile(ctx, cfg.SeedFile, st)

	default:
		return nil, fmt.Errorf("%w: unknown store %q", config.ErrInvalidConfig, cfg.Store)
	}
}

func applySeedFile(ctx context.Context, path string, st interface {
	seeder
	Close() error
}) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		_ = st.Close()
		return fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	seed, err := repository.DecodeSeed(f)
	if err == nil {
		err = st.ApplySeed(ctx, seed)
	}
	if err != nil {
		_ = st.Close()
		return fmt.Errorf("apply seed file: %w", err)
	}
	return nil
}

// openPublisher connects the configured message bus. It returns nil when
// publishing is disabled.
func openPublisher(cfg *config.Config, log logger.Logger) (publish.Publisher, error) {
	switch cfg.Publisher {
	case "", config.PublisherNone:
		return nil, nil
	case config.PublisherNATS:
		nc := publish.DefaultNATSConfig()
		nc.URL = cfg.NATSURL
		if cfg.NATSSubject != "" {
			nc.Subject = cfg.NATSSubject
		}
		return publish.NewNATS(nc, log.Named("nats"))
	case config.PublisherAMQP:
		ac := publish.DefaultAMQPConfig()
		ac.URL = cfg.AMQPURL
		if cfg.AMQPExchange != "" {
			ac.Exchange = cfg.AMQPExchange
		}
		return publish.NewAMQP(ac, log.Named("amqp"))
	default:
		return nil, fmt.Errorf("%w: unknown publisher %q", config.ErrInvalidConfig, cfg.Publisher)
	}
}
