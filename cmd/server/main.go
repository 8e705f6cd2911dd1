/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the call tracker server. Handles configuration,
  dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (flags, env, JSON file)
  2. Open the logger
  3. Open the settings store and the shared document store
  4. Start anonymous sign-in in the background
  5. Restore the timer and roll over to today
  6. Configure HTTP router and the rollover scheduler
  7. Start server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the rollover scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Persist the timer state and close the stores

  A call still running at shutdown is lost; its start time is not stored.

EXAMPLES:
  # Local SQLite files
  ./server --db=./data/calltracker.db

  # Shared Postgres document store
  CALLTRACKER_STORE=postgres CALLTRACKER_POSTGRES_DSN=postgres://... ./server

  # Timer settings in Postgres too
  ./server --store=postgres --settings-store=postgres --postgres-dsn=postgres://...

  # Throwaway in-memory documents on another port
  ./server --store=memory --port=3000

SEE ALSO:
  - config/config.go: All settings and their environment variables
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/warp/calltracker/api"
	"github.com/warp/calltracker/cloud"
	"github.com/warp/calltracker/config"
	"github.com/warp/calltracker/generic"
	"github.com/warp/calltracker/generic/store"
	"github.com/warp/calltracker/identity"
	"github.com/warp/calltracker/logger"
	"github.com/warp/calltracker/store/postgres"
	"github.com/warp/calltracker/store/sqlite"
	"github.com/warp/calltracker/timer"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	l, err := logger.New(logger.Config{Debug: cfg.Debug, LogDir: cfg.LogDir, Stderr: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open log: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, l); err != nil {
		l.Fatal("server failed", "err", err)
	}
}

func run(cfg *config.Config, l *log.Logger) error {
	ctx := context.Background()
	loc, _ := cfg.Location()
	anchor, _ := cfg.AnchorDate()
	rate, _ := cfg.Rate()

	// Timer settings
	settings, settingsCloser, err := openSettings(ctx, cfg)
	if err != nil {
		return err
	}
	defer settingsCloser.Close()

	// Shared documents
	docs, closer, err := openDocuments(ctx, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	// Identity
	ident := identity.NewAnonymous(settings)
	ident.SignIn(ctx)

	// Timer
	state, err := timer.LoadState(ctx, settings)
	if err != nil {
		return err
	}
	if _, ok, _ := settings.Get(ctx, timer.KeyRatePerMinute); !ok {
		state.RatePerMinute = rate
	}
	engine := timer.NewEngine(state, loc)

	clock := generic.SystemClock{}
	client := cloud.NewClient(docs, ident, clock, l)
	client.IdentityWait = cfg.IdentityWait

	handler := api.NewHandler(engine, settings, client, clock, l)
	handler.Anchor = anchor
	handler.Status = cloud.NewStatusTracker(clock, cfg.StatusWindow)

	if _, err := handler.Rollover(ctx); err != nil {
		l.Warn("initial rollover not saved", "err", err)
	}

	scheduler := api.NewRolloverScheduler(handler, cfg.RolloverInterval)
	scheduler.Start()

	router := api.NewRouter(handler, cfg.CORSOrigins)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		l.Info("server starting", "addr", fmt.Sprintf("http://localhost:%d", cfg.Port), "store", cfg.Store, "tz", loc.String())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		scheduler.Stop()
		return err
	}

	l.Info("shutting down server")
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	if err := timer.SaveState(ctx, settings, engine.Snapshot()); err != nil {
		l.Error("final save failed", "err", err)
	}
	l.Info("server stopped")
	return nil
}

// openSettings opens the timer settings store selected by cfg.SettingsStore.
func openSettings(ctx context.Context, cfg *config.Config) (generic.Settings, io.Closer, error) {
	if cfg.SettingsStore == config.StorePostgres {
		s, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres settings: %w", err)
		}
		return s.Settings(), s, nil
	}
	s, err := sqlite.New(cfg.SettingsDB)
	if err != nil {
		return nil, nil, fmt.Errorf("open settings: %w", err)
	}
	return s.Settings(), s, nil
}

// openDocuments opens the shared document store selected by cfg.Store.
func openDocuments(ctx context.Context, cfg *config.Config) (generic.DocumentStore, io.Closer, error) {
	switch cfg.Store {
	case config.StorePostgres:
		s, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		return s, s, nil
	case config.StoreMemory:
		return store.NewMemory(), io.NopCloser(nil), nil
	default:
		s, err := sqlite.New(cfg.DB)
		if err != nil {
			return nil, nil, fmt.Errorf("open documents: %w", err)
		}
		return s, s, nil
	}
}
