package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/halcyon-erp/halcyon/internal/app"
	"github.com/halcyon-erp/halcyon/internal/ledger/accounts"
	"github.com/halcyon-erp/halcyon/internal/ledger/categories"
	"github.com/halcyon-erp/halcyon/internal/ledger/documents"
	"github.com/halcyon-erp/halcyon/internal/ledger/fx"
	"github.com/halcyon-erp/halcyon/internal/ledger/journals"
	"github.com/halcyon-erp/halcyon/internal/ledger/mappings"
	"github.com/halcyon-erp/halcyon/internal/ledger/periods"
	"github.com/halcyon-erp/halcyon/internal/ledger/posting"
	"github.com/halcyon-erp/halcyon/internal/platform/cache"
	"github.com/halcyon-erp/halcyon/internal/platform/db"
	"github.com/halcyon-erp/halcyon/internal/shared"
	"github.com/halcyon-erp/halcyon/jobs"
)

func main() {
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
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	locker := shared.NewLocker(redisClient, cfg.PostingLockTTL)

	accountsRepo := accounts.NewRepository(pool)
	postingService := posting.NewService(
		logger,
		posting.NewRepository(pool),
		posting.NewSnapshotReader(accountsRepo, categories.NewRepository(pool), mappings.NewRepository(pool)),
		documents.NewRepository(pool),
		periods.NewRepository(pool),
		journals.NewRepository(pool),
		fx.NewRateService(pool, cfg.BaseCurrency),
		locker,
		documents.DefaultProfiles(),
	)

	integrity := jobs.NewGLIntegrityChecker(pool, logger)

	sweepTask, err := jobs.NewPostUnpostedTask(jobs.PostUnpostedPayload{DocumentType: documents.DocTypeInvoice})
	if err != nil {
		logger.Error("build posting sweep task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskGLIntegrity, Handler: integrity.Handle},
			{Type: jobs.TaskPostUnposted, Handler: jobs.PostUnpostedHandler(postingService)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 1 * * *", Task: jobs.NewGLIntegrityTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 1 * * *", Task: sweepTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
