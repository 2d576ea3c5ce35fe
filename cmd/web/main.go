package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"olist-dashboard/internal/config"
	"olist-dashboard/internal/dataset"
	"olist-dashboard/internal/middleware"
	"olist-dashboard/internal/models"
	"olist-dashboard/internal/observability"
	"olist-dashboard/internal/profiles"
	"olist-dashboard/internal/server"
	"olist-dashboard/internal/services"
	"olist-dashboard/internal/ui/templates"
)

const (
	renderTimeout = 10 * time.Second
	loadTimeout   = 2 * time.Minute
)

func newDashboardHandler(profile *profiles.Profile, defaults models.Thresholds, monetaryMax float64) http.HandlerFunc {
	page := templates.Dashboard(profile, defaults, monetaryMax)
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=300")
		if err := page.Render(ctx, w); err != nil {
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"dataset_dir", cfg.Dataset.Dir,
		"dataset_format", cfg.Dataset.Format,
		"profile", cfg.Profile.Name,
	)

	profile, err := profiles.Load(cfg.Profile.Name, cfg.Profile.File)
	if err != nil {
		logger.Error("failed to load presentation profile", "error", err)
		os.Exit(1)
	}

	analytics := services.NewAnalytics(services.BuildOptions{
		DelayPolicy: cfg.Pipeline.DelayPolicy,
		Grades: services.GradeBands{
			Cuts:  profile.Tiers.Cuts,
			Names: profile.Tiers.Names,
		},
	}, cfg.Dataset.CacheDir, logger)

	loader := dataset.NewLoader(cfg.Dataset, logger)

	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	start := time.Now()
	if err := analytics.Load(ctx, loader); err != nil {
		// No partial render: a failed load is terminal for the session.
		logger.Error("failed to load dataset", "error", err)
		os.Exit(1)
	}
	logger.Info("dataset ready", "duration", time.Since(start))

	table, err := analytics.Table()
	if err != nil {
		logger.Error("aggregate unavailable after load", "error", err)
		os.Exit(1)
	}
	defaults := analytics.DefaultThresholds(profile.DefaultThresholds)

	templateHandlers := &server.TemplateHandlers{
		Dashboard: newDashboardHandler(profile, defaults, table.MonetaryP95),
	}

	srv := server.NewServer(analytics, profile, cfg.Pipeline.SampleSize, logger, templateHandlers)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	handler := middlewareChain(srv)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook("analytics", func(ctx context.Context) error {
		logger.Info("analytics service stopped", "stats", analytics.Stats())
		return nil
	})

	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
