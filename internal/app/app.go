// Package app wires the application together: configuration, logging,
// telemetry, the persisted store, the license session and the HTTP router.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"zapcatalog/internal/config"
	"zapcatalog/internal/exporter"
	"zapcatalog/internal/infrastructure"
	"zapcatalog/internal/license"
	custommw "zapcatalog/internal/middleware"
	"zapcatalog/internal/store"
	transporthttp "zapcatalog/internal/transport/http"
)

// Application is the assembled service.
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders

	store    *store.Store
	sessions *license.SessionManager
	metrics  *infrastructure.AppMetrics
}

// New builds the application from the environment configuration.
func New() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return NewWithConfig(cfg)
}

// NewWithConfig builds the application from an explicit configuration.
func NewWithConfig(cfg *config.Config) (*Application, error) {
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	logger.Info("application starting",
		slog.String("service", infrastructure.ServiceName),
		slog.String("version", infrastructure.ServiceVersion))

	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.ExportDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("initialize telemetry: %w", err)
	}

	var metrics *infrastructure.AppMetrics
	if otelProviders.Meter != nil {
		metrics, err = infrastructure.CreateAppMetrics(otelProviders.Meter)
		if err != nil {
			return nil, fmt.Errorf("create metrics: %w", err)
		}
	}

	st, err := store.New(cfg.Paths.DataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	authority := license.NewAuthority(cfg.Security.SecretSalt, logger)
	sessions, err := license.NewSessionManager(authority, st, cfg.Security.StorePassphrase, logger)
	if err != nil {
		return nil, fmt.Errorf("load license session: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		store:         st,
		sessions:      sessions,
		metrics:       metrics,
	}

	app.setupRouter(authority)
	app.Server = &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      app.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return app, nil
}

// setupRouter assembles the middleware chain and mounts the handlers.
//
// The public surface (health, metrics, the catalog decoder) sits outside the
// license guard; everything the merchant edits sits behind it; the issuing
// endpoints sit behind the master password instead.
func (a *Application) setupRouter(authority *license.Authority) {
	cfg := a.Config

	licenseHandler := transporthttp.NewLicenseHandler(a.sessions, a.metrics, a.Logger)
	catalogHandler := transporthttp.NewCatalogHandler(a.store,
		cfg.Catalog.BaseURL, cfg.Catalog.MaxProducts, cfg.Catalog.QRSize,
		a.metrics, a.Logger)
	adminHandler := transporthttp.NewAdminHandler(authority, a.store,
		exporter.NewHistoryExporter(cfg.Paths.ExportDir, a.Logger), a.metrics, a.Logger)
	healthHandler := transporthttp.NewHealthHandler()

	r := chi.NewRouter()
	r.Use(custommw.RequestID)
	r.Use(custommw.RealIP)
	r.Use(custommw.Telemetry(a.OTelProviders.Tracer, a.metrics))
	r.Use(custommw.StructuredLogger(a.Logger))
	r.Use(custommw.Recoverer(a.Logger))
	r.Use(custommw.SecurityHeaders)
	r.Use(custommw.Compress(5))

	if cfg.Security.EnableCORS {
		r.Use(custommw.CORS(custommw.CORSConfig{
			AllowedOrigins: cfg.Security.AllowedOrigins,
		}))
	}

	var throttle func(http.Handler) http.Handler
	if cfg.Security.RateLimit.Enabled {
		throttle = custommw.NewRateLimiter(
			cfg.Security.RateLimit.RPS,
			cfg.Security.RateLimit.Burst,
			a.Logger,
		).Handler
	} else {
		throttle = func(next http.Handler) http.Handler { return next }
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Get("/health", healthHandler.Health)

		// Activation is throttled: keys are short enough that unthrottled
		// guessing would be rude to allow.
		r.With(throttle).Mount("/license", licenseHandler.Routes())

		// The customer-side decoder is public and throttled.
		r.With(throttle).Get("/catalog/decode", catalogHandler.Decode)

		// The editing surface requires an active license on every request.
		r.With(custommw.LicenseGuard(a.sessions, a.Logger)).
			Mount("/catalog", catalogHandler.Routes())

		r.With(custommw.MasterGuard(cfg.Security.MasterPassword, a.Logger)).
			Mount("/admin", adminHandler.Routes())
	})

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// Run starts the server and blocks until the context is cancelled or an
// interrupt arrives, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("http server listening",
			slog.String("addr", a.Server.Addr),
			slog.String("base_url", a.Config.Catalog.BaseURL))
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		return a.Stop(context.Background())
	})

	return g.Wait()
}

// Stop shuts the server and telemetry down within the configured timeout.
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "shutdown complete")
	return nil
}
