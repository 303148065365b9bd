package config_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/okian/quicktagger/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.Store, convey.ShouldEqual, config.StoreMemory)
				convey.So(cfg.TickIntervalMS, convey.ShouldEqual, 1000)
				convey.So(cfg.FeedbackTTLMS, convey.ShouldEqual, 2000)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("QTAG_ADDR", ":8080")
			_ = os.Setenv("QTAG_QUEUE_SIZE", "64")
			_ = os.Setenv("QTAG_WORKER_COUNT", "2")
			_ = os.Setenv("QTAG_STORE", "postgrest")
			_ = os.Setenv("QTAG_POSTGREST_URL", "https://project.supabase.co")
			_ = os.Setenv("QTAG_POSTGREST_KEY", "anon-key")
			_ = os.Setenv("QTAG_FEEDBACK_TTL_MS", "1500")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.EventQueueSize, convey.ShouldEqual, 64)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 2)
				convey.So(cfg.Store, convey.ShouldEqual, config.StorePostgREST)
				convey.So(cfg.PostgRESTURL, convey.ShouldEqual, "https://project.supabase.co")
				convey.So(cfg.PostgRESTKey, convey.ShouldEqual, "anon-key")
				convey.So(cfg.FeedbackTTL(), convey.ShouldEqual, 1500*time.Millisecond)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
queue_size: 256
worker_count: 4
store: sqlite
sqlite_path: /tmp/tagging.db
seed_file: /etc/quicktagger/seed.yaml
publisher: nats
nats_url: nats://localhost:4222
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("QTAG_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.EventQueueSize, convey.ShouldEqual, 256)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
				convey.So(cfg.Store, convey.ShouldEqual, config.StoreSQLite)
				convey.So(cfg.SQLitePath, convey.ShouldEqual, "/tmp/tagging.db")
				convey.So(cfg.SeedFile, convey.ShouldEqual, "/etc/quicktagger/seed.yaml")
				convey.So(cfg.Publisher, convey.ShouldEqual, config.PublisherNATS)
				convey.So(cfg.NATSSubject, convey.ShouldEqual, "quicktagger.events") // default
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
queue_size: 256
worker_count: 4
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("QTAG_CONFIG", tmpFile)
			_ = os.Setenv("QTAG_ADDR", ":8080")      // overrides the file
			_ = os.Setenv("QTAG_WORKER_COUNT", "8") // overrides the file
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.EventQueueSize, convey.ShouldEqual, 256)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 8)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("QTAG_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("QTAG_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("QTAG_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("QTAG_QUEUE_SIZE", "invalid")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When a .env file is present", func() {
			dir := t.TempDir()
			_ = os.WriteFile(dir+"/.env", []byte("QTAG_ADDR=:7070\n"), 0o600)
			wd, _ := os.Getwd()
			_ = os.Chdir(dir)
			defer func() { _ = os.Chdir(wd) }()
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then its values should be applied", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"QTAG_CONFIG",
		"QTAG_ADDR",
		"QTAG_QUEUE_SIZE",
		"QTAG_WORKER_COUNT",
		"QTAG_STORE",
		"QTAG_POSTGREST_URL",
		"QTAG_POSTGREST_KEY",
		"QTAG_FEEDBACK_TTL_MS",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "quicktagger-config-*.yaml")
	if err != nil {
		panic(err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}

	if err := tmpFile.Close(); err != nil {
		panic(err)
	}

	return tmpFile.Name()
}
