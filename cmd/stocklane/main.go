package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/stocklane/stocklane/internal/analytics"
	"github.com/stocklane/stocklane/internal/app"
	"github.com/stocklane/stocklane/internal/auth"
	"github.com/stocklane/stocklane/internal/catalog"
	"github.com/stocklane/stocklane/internal/dashboard"
	"github.com/stocklane/stocklane/internal/ledger"
	"github.com/stocklane/stocklane/internal/platform/cache"
	"github.com/stocklane/stocklane/internal/platform/db"
	"github.com/stocklane/stocklane/internal/report"
	"github.com/stocklane/stocklane/internal/shared"
	"github.com/stocklane/stocklane/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		// Caching and job inspection degrade; the ledger keeps working.
		logger.Warn("redis unavailable", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	versionedCache := cache.NewVersioned(redisClient, cfg.CacheTTL)
	if err := versionedCache.ListenForInvalidation(ctx, ""); err != nil {
		logger.Warn("cache invalidation listener", slog.Any("error", err))
	}

	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(authService, logger)

	catalogRepo := catalog.NewRepository(dbpool)
	catalogService := catalog.NewService(catalogRepo)
	catalogHandler := catalog.NewHandler(catalogService, logger)

	ledgerRepo := ledger.NewRepository(dbpool)
	ledgerService := ledger.NewService(ledgerRepo, idempotencyStore, versionedCache, logger)
	ledgerHandler := ledger.NewHandler(ledgerService, logger)

	dashboardRepo := dashboard.NewRepository(dbpool)
	dashboardService := dashboard.NewService(dashboardRepo)
	dashboardHandler := dashboard.NewHandler(dashboardService, logger)

	analyticsRepo := analytics.NewRepository(dbpool)
	analyticsService := analytics.NewService(analyticsRepo, versionedCache)
	analyticsHandler := analytics.NewHandler(analyticsService, logger)

	reportRepo := report.NewRepository(dbpool)
	reportService := report.NewService(reportRepo, versionedCache)
	reportHandler := report.NewHandler(reportService, logger)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		AuthService:      authService,
		AuthHandler:      authHandler,
		CatalogHandler:   catalogHandler,
		LedgerHandler:    ledgerHandler,
		DashboardHandler: dashboardHandler,
		AnalyticsHandler: analyticsHandler,
		ReportHandler:    reportHandler,
		JobHandler:       jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
