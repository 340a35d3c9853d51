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
	"github.com/joho/godotenv"

	"github.com/colmado-pos/colmado-pos/internal/app"
	"github.com/colmado-pos/colmado-pos/internal/catalog"
	"github.com/colmado-pos/colmado-pos/internal/customers"
	"github.com/colmado-pos/colmado-pos/internal/observability"
	"github.com/colmado-pos/colmado-pos/internal/platform/cache"
	"github.com/colmado-pos/colmado-pos/internal/platform/db"
	"github.com/colmado-pos/colmado-pos/internal/reports"
	"github.com/colmado-pos/colmado-pos/internal/sales"
	"github.com/colmado-pos/colmado-pos/internal/settings"
	"github.com/colmado-pos/colmado-pos/internal/shared"
	"github.com/colmado-pos/colmado-pos/internal/users"
	"github.com/colmado-pos/colmado-pos/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, degrading caches", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	loc, err := time.LoadLocation(cfg.BusinessTimezone)
	if err != nil {
		logger.Error("load business timezone", "tz", cfg.BusinessTimezone, slog.Any("error", err))
		os.Exit(1)
	}
	calendar := sales.NewBusinessCalendar(loc)

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool, logger)

	settingsRepo := settings.NewRepository(pool)
	settingsService := settings.NewService(settingsRepo, auditLogger)
	settingsHandler := settings.NewHandler(logger, settingsService)

	catalogRepo := catalog.NewRepository(pool)
	catalogService := catalog.NewService(catalogRepo, auditLogger)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	customersRepo := customers.NewRepository(pool)
	customersService := customers.NewService(customersRepo, redisClient, auditLogger)
	customersHandler := customers.NewHandler(logger, customersService)

	salesRepo := sales.NewRepository(pool)
	salesService := sales.NewService(salesRepo, catalogService, settingsService, calendar, auditLogger)
	salesHandler := sales.NewHandler(logger, salesService, customersService, settingsService)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo, auditLogger)
	usersHandler := users.NewHandler(logger, usersService)

	reportsCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	reportsRepo := reports.NewRepository(pool)
	reportsService := reports.NewService(reportsRepo, reportsCache, catalogService)
	reportsHandler := reports.NewHandler(logger, reportsService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() { _ = inspector.Close() }()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		CatalogHandler:   catalogHandler,
		SalesHandler:     salesHandler,
		CustomersHandler: customersHandler,
		UsersHandler:     usersHandler,
		SettingsHandler:  settingsHandler,
		ReportsHandler:   reportsHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("pos api listening", "addr", cfg.AppAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", slog.Any("error", err))
	}
	logger.Info("pos api stopped")
}
