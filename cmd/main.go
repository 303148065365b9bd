package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/okian/quicktagger/internal/adapters/http/api"
	"github.com/okian/quicktagger/internal/adapters/http/swagger"
	"github.com/okian/quicktagger/internal/adapters/http/ws"
	app "github.com/okian/quicktagger/internal/app"
	"github.com/okian/quicktagger/internal/config"
	"github.com/okian/quicktagger/internal/domain/session"
	"github.com/okian/quicktagger/pkg/logger"
	"github.com/okian/quicktagger/pkg/metrics"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		// Use fmt for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Get().Error(ctx, "quicktagger exited", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if cfg.LogFormat == "console" {
		_ = logger.Init(logger.WithConsole(true))
	}
	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	pub, err := openPublisher(cfg, log)
	if err != nil {
		_ = store.Close()
		return err
	}

	svc := app.New(
		app.WithLogger(log),
		app.WithStore(store),
		app.WithPublisher(pub),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.EventQueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithTickInterval(cfg.TickInterval()),
		app.WithFeedbackTTL(cfg.FeedbackTTL()),
	)
	if err := svc.Start(ctx); err != nil {
		svc.Stop()
		return err
	}
	defer svc.Stop()

	hub := ws.NewHub(
		ws.WithLogger(log.Named("ws")),
		ws.WithConfig(ws.Config{CheckOrigin: originChecker(cfg.Origins())}),
	)
	defer hub.Close()
	hub.Broadcast(svc.Snapshot())
	svc.Observe(func(s session.Snapshot) { hub.Broadcast(s) })

	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h2c.NewHandler(newHandler(ctx, cfg, svc, hub), &http2.Server{}),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("store", cfg.Store),
			logger.String("publisher", cfg.Publisher),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for shutdown signal
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// newHandler assembles the operator API, the live stream and the docs.
func newHandler(ctx context.Context, cfg *config.Config, svc *app.Service, hub http.Handler) http.Handler {
	server := api.NewServer(svc, svc,
		api.WithLogger(logger.Get().Named("api")),
		api.WithAllowedOrigins(cfg.Origins()),
		api.WithLive(hub),
		api.WithDocs(func(r *mux.Router) { swagger.Register(ctx, r) }),
	)
	return server.Handler()
}

// originChecker accepts websocket upgrades from the CORS allow list.
func originChecker(origins []string) func(*http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}

// startServiceMetricsUpdater refreshes queue and worker gauges.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()
	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if started, _ := stats["started"].(bool); started {
		if workerCount, ok := stats["workerCount"].(int); ok {
			metrics.UpdateWorkerCount(workerCount)
		}
	}
}
