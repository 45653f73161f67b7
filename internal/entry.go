// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/fieldwork/internal/api"
	"github.com/starford/fieldwork/internal/datawatch"
	"github.com/starford/fieldwork/internal/mcpserver"
	"github.com/starford/fieldwork/internal/notify"
	"github.com/starford/fieldwork/internal/sse"
	"github.com/starford/fieldwork/internal/storage"
	"github.com/starford/fieldwork/internal/store"
)

// stores bundles the hydrated entity stores.
type stores struct {
	contacts      *store.ContactStore
	conversations *store.ConversationStore
	reports       *store.ReportStore
}

// buildStores opens the configured backend, constructs the stores, and
// hydrates them. The returned provider must be closed by the caller.
func buildStores(cfg *Config, scheduler notify.Scheduler) (storage.Provider, *stores, error) {
	var provider storage.Provider
	switch cfg.Data.Backend {
	case DataBackendSQLite:
		p, err := storage.NewSQLite(cfg.Data.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("init storage: %w", err)
		}
		provider = p
	default:
		if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create data dir: %w", err)
		}
		p, err := storage.NewFS(cfg.Data.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("init storage: %w", err)
		}
		provider = p
	}

	s := &stores{
		contacts:      store.NewContactStore(provider),
		conversations: store.NewConversationStore(provider, scheduler),
		reports:       store.NewReportStore(provider),
	}
	if err := s.contacts.Hydrate(); err != nil {
		provider.Close()
		return nil, nil, err
	}
	if err := s.conversations.Hydrate(); err != nil {
		provider.Close()
		return nil, nil, err
	}
	if err := s.reports.Hydrate(); err != nil {
		provider.Close()
		return nil, nil, err
	}
	return provider, s, nil
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("data_backend", cfg.Data.Backend),
		slog.String("log_level", cfg.App.LogLevel.String()))

	scheduler := app.scheduler
	if scheduler == nil {
		scheduler = &notify.LogScheduler{Logger: logger}
	}

	provider, s, err := buildStores(cfg, scheduler)
	if err != nil {
		return err
	}
	defer provider.Close()

	// Expired dismissals are swept once at startup; afterwards the derived
	// predicate handles visibility on its own.
	s.contacts.CleanupExpiredDismissals(time.Now())

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	s.contacts.SetOnChange(broker.PublishEntityEvent)
	s.conversations.SetOnChange(broker.PublishEntityEvent)
	s.reports.SetOnChange(broker.PublishEntityEvent)

	// Build API router.
	apiRouter := api.NewRouter(s.contacts, s.conversations, s.reports, scheduler,
		cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the data directory for external changes (file backend only).
	if fs, ok := provider.(*storage.FS); ok {
		targets := []datawatch.Target{
			{Key: store.ContactsKey, Hydrate: s.contacts.Hydrate, PersistedChecksum: s.contacts.PersistedChecksum},
			{Key: store.ConversationsKey, Hydrate: s.conversations.Hydrate, PersistedChecksum: s.conversations.PersistedChecksum},
			{Key: store.ReportsKey, Hydrate: s.reports.Hydrate, PersistedChecksum: s.reports.PersistedChecksum},
		}
		g.Go(func() error {
			if err := datawatch.Watch(gCtx, fs, targets, logger, func(key string) {
				broker.PublishEntityEvent(key+"_reloaded", "")
			}); err != nil {
				logger.Warn("datawatch unavailable", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		broker.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the tracker tools over MCP stdio instead of HTTP. Logs go to
// stderr so stdout stays clean for the protocol.
func RunMCP(_ context.Context, opts ...Option) error {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: app.config.App.LogLevel,
	}))
	slog.SetDefault(logger)

	scheduler := app.scheduler
	if scheduler == nil {
		scheduler = &notify.LogScheduler{Logger: logger}
	}

	provider, s, err := buildStores(app.config, scheduler)
	if err != nil {
		return err
	}
	defer provider.Close()

	s.contacts.CleanupExpiredDismissals(time.Now())

	return mcpserver.New(s.contacts, s.conversations).ServeStdio()
}
