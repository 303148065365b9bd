package repository

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"

	"github.com/okian/quicktagger/pkg/logger"
	"github.com/pressly/goose/v3"
)

// Migrate applies every pending goose migration found at the root of fsys.
func Migrate(ctx context.Context, dialect goose.Dialect, db *sql.DB, fsys fs.FS, log logger.Logger) error {
	provider, err := goose.NewProvider(dialect, db, fsys,
		goose.WithLogger(gooseLogger{log: log}),
	)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}
	// provider.Close would close db, which the caller owns

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	for _, r := range results {
		log.Info(ctx, "migration applied",
			logger.String("source", r.Source.Path),
			logger.Duration("duration", r.Duration),
		)
	}
	return nil
}

// gooseLogger routes goose output through our logger.
type gooseLogger struct {
	log logger.Logger
}

func (g gooseLogger) Printf(format string, v ...interface{}) {
	g.log.Debug(context.Background(), strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (g gooseLogger) Fatalf(format string, v ...interface{}) {
	g.log.Error(context.Background(), strings.TrimSpace(fmt.Sprintf(format, v...)))
}
