package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/quicktagger/internal/adapters/http/ws"
	app "github.com/okian/quicktagger/internal/app"
	"github.com/okian/quicktagger/internal/config"
	"github.com/okian/quicktagger/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

const testSeed = `
analysts:
  - analyst_id: ops
    password: secret
tournaments:
  - id: "7"
    name: Winter Cup
teams:
  - id: "71"
    name: Frost
    tournament_id: "7"
  - id: "72"
    name: Thaw
    tournament_id: "7"
`

func writeSeed(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(testSeed), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	log := logger.Nop()

	convey.Convey("Given the default configuration", t, func() {
		cfg := config.New(ctx)

		convey.Convey("Then the memory store carries the demo analyst", func() {
			st, err := openStore(ctx, cfg, log)
			convey.So(err, convey.ShouldBeNil)
			defer st.Close()
			_, err = st.VerifyAnalyst(ctx, "demo", "demo")
			convey.So(err, convey.ShouldBeNil)
		})

		convey.Convey("And its diagnostics carry the store component", func() {
			var buf bytes.Buffer
			_ = logger.Init(logger.WithWriter(&buf))
			defer func() { _ = logger.Init(logger.WithWriter(io.Discard)) }()

			st, err := openStore(ctx, cfg, logger.Get())
			convey.So(err, convey.ShouldBeNil)
			defer st.Close()
			convey.So(buf.String(), convey.ShouldContainSubstring, `"component":"store"`)
			convey.So(buf.String(), convey.ShouldContainSubstring, `"message":"seed applied"`)
		})

		convey.Convey("And a seed file replaces the demo data", func() {
			cfg.SeedFile = writeSeed(t)
			st, err := openStore(ctx, cfg, log)
			convey.So(err, convey.ShouldBeNil)
			defer st.Close()
			_, err = st.VerifyAnalyst(ctx, "ops", "secret")
			convey.So(err, convey.ShouldBeNil)
			teams, err := st.ListTeams(ctx)
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(teams), convey.ShouldEqual, 2)
		})

		convey.Convey("And a missing seed file fails", func() {
			cfg.SeedFile = filepath.Join(t.TempDir(), "missing.yaml")
			_, err := openStore(ctx, cfg, log)
			convey.So(err, convey.ShouldNotBeNil)
		})
	})

	convey.Convey("Given the sqlite store with a seed file", t, func() {
		cfg := config.New(ctx)
		cfg.Store = config.StoreSQLite
		cfg.SQLitePath = filepath.Join(t.TempDir(), "tagger.db")
		cfg.SeedFile = writeSeed(t)

		st, err := openStore(ctx, cfg, log)
		convey.So(err, convey.ShouldBeNil)
		defer st.Close()

		convey.Convey("Then the seed is applied", func() {
			tournaments, err := st.ListTournaments(ctx)
			convey.So(err, convey.ShouldBeNil)
			convey.So(len(tournaments), convey.ShouldEqual, 1)
			convey.So(tournaments[0].Name, convey.ShouldEqual, "Winter Cup")
		})
	})

	convey.Convey("Given the postgrest store", t, func() {
		cfg := config.New(ctx)
		cfg.Store = config.StorePostgREST
		cfg.PostgRESTURL = "https://project.example.co"

		st, err := openStore(ctx, cfg, log)
		convey.So(err, convey.ShouldBeNil)
		convey.So(st.Close(), convey.ShouldBeNil)
	})

	convey.Convey("Given an unknown store", t, func() {
		cfg := config.New(ctx)
		cfg.Store = "redis"
		_, err := openStore(ctx, cfg, log)
		convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
	})
}

func TestOpenPublisher(t *testing.T) {
	convey.Convey("Given publisher settings", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("None disables publishing", func() {
			pub, err := openPublisher(cfg, logger.Nop())
			convey.So(err, convey.ShouldBeNil)
			convey.So(pub, convey.ShouldBeNil)
		})

		convey.Convey("An unreachable NATS server fails", func() {
			cfg.Publisher = config.PublisherNATS
			cfg.NATSURL = "nats://127.0.0.1:1"
			_, err := openPublisher(cfg, logger.Nop())
			convey.So(err, convey.ShouldNotBeNil)
		})

		convey.Convey("An unknown publisher fails", func() {
			cfg.Publisher = "kafka"
			_, err := openPublisher(cfg, logger.Nop())
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})
	})
}

func TestHandler(t *testing.T) {
	convey.Convey("Given the assembled handler", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)
		svc := app.New(app.WithLogger(logger.Nop()), app.WithWorkerCount(1))
		defer svc.Stop()
		hub := ws.NewHub(ws.WithLogger(logger.Nop()))
		defer hub.Close()
		h := newHandler(ctx, cfg, svc, hub)

		for _, path := range []string{"/healthz", "/stats", "/api/session", "/api/event-types", "/api-docs", "/openapi.yaml"} {
			req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
		}
	})
}

func TestOriginChecker(t *testing.T) {
	convey.Convey("Given an allow list", t, func() {
		check := originChecker([]string{"http://pad.local"})
		req := httptest.NewRequest(http.MethodGet, "/ws", http.NoBody)

		convey.So(check(req), convey.ShouldBeTrue)
		req.Header.Set("Origin", "http://pad.local")
		convey.So(check(req), convey.ShouldBeTrue)
		req.Header.Set("Origin", "http://other.local")
		convey.So(check(req), convey.ShouldBeFalse)

		convey.So(originChecker([]string{"*"})(req), convey.ShouldBeTrue)
	})
}

func TestServiceMetricsUpdater(t *testing.T) {
	convey.Convey("Given a service", t, func() {
		svc := app.New(app.WithLogger(logger.Nop()))
		defer svc.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		convey.So(func() {
			updateServiceMetrics(svc)
			startServiceMetricsUpdater(ctx, svc)
		}, convey.ShouldNotPanic)
	})
}
