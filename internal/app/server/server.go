package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"perfdash/internal/auth"
	"perfdash/internal/domain/audit"
	"perfdash/internal/domain/hierarchy"
	"perfdash/internal/platform/config"
	"perfdash/internal/platform/crypto"
	"perfdash/internal/platform/metrics"
	"perfdash/internal/platform/odoo"
	"perfdash/internal/transport/http/api"
	audithandler "perfdash/internal/transport/http/handlers/audit"
	authhandler "perfdash/internal/transport/http/handlers/auth"
	dashboardhandler "perfdash/internal/transport/http/handlers/dashboard"
	hierarchyhandler "perfdash/internal/transport/http/handlers/hierarchy"
	"perfdash/internal/transport/http/middleware"
)

type App struct {
	Config  config.Config
	Odoo    *odoo.Client
	Metrics *metrics.Collector
	Audit   *audit.Log
	Router  http.Handler

	trustedProxies []netip.Prefix
}

// New wires the service from cfg. It does not contact Odoo.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	sealer, err := crypto.New(cfg.DataEncryptionKey)
	if err != nil {
		return nil, err
	}
	apiKey, err := sealer.Resolve(cfg.OdooAPIKey)
	if err != nil {
		return nil, fmt.Errorf("resolve ODOO_API_KEY: %w", err)
	}

	trustedProxies, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}

	client := odoo.New(odoo.Options{
		URL:      cfg.OdooURL,
		Database: cfg.OdooDB,
		Login:    cfg.OdooLogin,
		APIKey:   apiKey,
		Timeout:  cfg.OdooTimeout,
	})
	collector := metrics.New()
	slog.DebugContext(ctx, "odoo client configured", "url", cfg.OdooURL, "db", cfg.OdooDB, "sealedKey", apiKey != cfg.OdooAPIKey)

	app := &App{
		Config:         cfg,
		Odoo:           client,
		Metrics:        collector,
		Audit:          audit.New(cfg.AuditCapacity),
		trustedProxies: trustedProxies,
	}
	app.Router = app.routes()
	return app, nil
}

func (a *App) Close() {
	a.Odoo.Close()
}

func (a *App) routes() http.Handler {
	cfg := a.Config

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP(a.trustedProxies))
	router.Use(middleware.Logger(a.Metrics))
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))
	if len(cfg.CORSAllowedOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if _, err := a.Odoo.Version(ctx); err != nil {
			slog.Warn("odoo not reachable", "err", err)
			http.Error(w, "odoo not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.With(middleware.RequireOperator(cfg.AuthEnabled())).Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, a.Metrics.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	dashboardHandler := dashboardhandler.NewHandler(a.Odoo, cfg.OdooURL, a.Metrics, a.Audit)
	hierarchyHandler := hierarchyhandler.NewHandler(hierarchy.NewService(a.Odoo), a.Metrics, a.Audit)
	auditHandler := audithandler.NewHandler(a.Audit)
	authHandler := authhandler.NewHandler(auth.Operator{
		Login:        cfg.OperatorLogin,
		PasswordHash: cfg.OperatorPasswordHash,
	}, cfg.JWTSecret, cfg.TokenTTL, a.Audit)
	authHandler.SecureCookie = cfg.IsProduction()

	router.Get("/login", authHandler.HandleLoginPage)
	router.With(middleware.LoginRateLimit(10, time.Minute)).Post("/login", authHandler.HandleLogin)
	router.Post("/logout", authHandler.HandleLogout)

	router.Group(func(r chi.Router) {
		r.Use(middleware.RequirePageOperator(cfg.AuthEnabled(), "/login"))
		dashboardHandler.RegisterPages(r)
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.With(middleware.LoginRateLimit(10, time.Minute)).Post("/auth/token", authHandler.HandleToken)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireOperator(cfg.AuthEnabled()))
			r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
			dashboardHandler.RegisterRoutes(r)
			hierarchyHandler.RegisterRoutes(r)
			auditHandler.RegisterRoutes(r)
		})
	})

	return router
}

func Run() {
	cfg, err := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	if !cfg.AuthEnabled() {
		slog.Warn("JWT_SECRET not set, dashboard API is open")
	}

	app, err := New(context.Background(), cfg)
	if err != nil {
		slog.Error("server setup failed", "err", err)
		os.Exit(1)
	}
	defer app.Close()

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("performance dashboard listening", "addr", cfg.Addr, "odoo", cfg.OdooURL, "db", cfg.OdooDB)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown failed", "err", err)
	}
}
