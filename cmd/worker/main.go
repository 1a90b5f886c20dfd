package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/helios-hr/helios/internal/app"
	"github.com/helios-hr/helios/internal/auth"
	"github.com/helios-hr/helios/internal/platform/db"
	"github.com/helios-hr/helios/internal/tenancy"
	"github.com/helios-hr/helios/internal/tenants"
	"github.com/helios-hr/helios/internal/users"
	"github.com/helios-hr/helios/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}

	mailer, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("connect job queue", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := mailer.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	guard := tenancy.NewGuard(logger)
	executor := tenancy.NewExecutor(pool)

	authService := auth.NewService(auth.NewRepository(pool))
	tenantsRepo := tenants.NewRepository(pool)
	usersService := users.NewService(users.NewRepository(pool), tenantsRepo, guard, executor, logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeTenantProvision, Handler: jobs.TenantProvisionHandler(usersService, mailer, logger)},
			{Type: jobs.TaskTypeSessionSweep, Handler: jobs.SessionSweepHandler(authService, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "@hourly", Task: jobs.NewSessionSweepTask()},
		},
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started")
	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
