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

	"github.com/helios-hr/helios/internal/app"
	"github.com/helios-hr/helios/internal/auth"
	"github.com/helios-hr/helios/internal/departments"
	"github.com/helios-hr/helios/internal/observability"
	"github.com/helios-hr/helios/internal/platform/cache"
	"github.com/helios-hr/helios/internal/platform/db"
	"github.com/helios-hr/helios/internal/positions"
	"github.com/helios-hr/helios/internal/ratelimit"
	"github.com/helios-hr/helios/internal/rbac"
	"github.com/helios-hr/helios/internal/tenancy"
	"github.com/helios-hr/helios/internal/tenants"
	"github.com/helios-hr/helios/internal/token"
	"github.com/helios-hr/helios/internal/users"
	"github.com/helios-hr/helios/jobs"
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
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	tokenService := token.NewService(cfg.JWTSecret, cfg.JWTTTL, redisClient, logger)
	limiter := ratelimit.NewLimiter(redisClient, cfg.LoginMaxAttempts, cfg.LoginWindow)
	guard := tenancy.NewGuard(logger)
	executor := tenancy.NewExecutor(dbpool)

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("connect job queue", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, tokenService, metrics)

	tenantsRepo := tenants.NewRepository(dbpool)
	tenantsService := tenants.NewService(tenantsRepo, jobsClient, logger)
	tenantsHandler := tenants.NewHandler(logger, tenantsService)

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo, tenantsRepo, guard, executor, logger)
	usersHandler := users.NewHandler(logger, usersService)

	departmentsRepo := departments.NewRepository(dbpool)
	departmentsService := departments.NewService(departmentsRepo, guard)
	departmentsHandler := departments.NewHandler(logger, departmentsService)

	positionsRepo := positions.NewRepository(dbpool)
	positionsService := positions.NewService(positionsRepo, departmentsRepo, guard)
	positionsHandler := positions.NewHandler(logger, positionsService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Tokens:             tokenService,
		Limiter:            limiter,
		Principals:         authService,
		Roles:              rbac.Middleware{Logger: logger},
		AuthHandler:        authHandler,
		TenantsHandler:     tenantsHandler,
		UsersHandler:       usersHandler,
		DepartmentsHandler: departmentsHandler,
		PositionsHandler:   positionsHandler,
		JobsHandler:        jobsHandler,
		Metrics:            metrics,
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
