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

	"github.com/halcyon-erp/halcyon/internal/app"
	"github.com/halcyon-erp/halcyon/internal/ledger/accounts"
	"github.com/halcyon-erp/halcyon/internal/ledger/categories"
	"github.com/halcyon-erp/halcyon/internal/ledger/documents"
	"github.com/halcyon-erp/halcyon/internal/ledger/fx"
	"github.com/halcyon-erp/halcyon/internal/ledger/journals"
	"github.com/halcyon-erp/halcyon/internal/ledger/mappings"
	"github.com/halcyon-erp/halcyon/internal/ledger/periods"
	"github.com/halcyon-erp/halcyon/internal/ledger/posting"
	"github.com/halcyon-erp/halcyon/internal/ledger/reports"
	"github.com/halcyon-erp/halcyon/internal/ledger/trialbalance"
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
	auditLogger := shared.NewAuditLogger(pool)

	accountsRepo := accounts.NewRepository(pool)
	categoriesRepo := categories.NewRepository(pool)
	mappingsRepo := mappings.NewRepository(pool)
	journalsRepo := journals.NewRepository(pool)
	documentsRepo := documents.NewRepository(pool)
	trialBalanceRepo := trialbalance.NewRepository(pool)
	periodsRepo := periods.NewRepository(pool)

	rateService := fx.NewRateService(pool, cfg.BaseCurrency)

	accountsHandler := accounts.NewHandler(logger, accounts.NewService(accountsRepo))

	periodsService := periods.NewService(periodsRepo, accountsRepo).WithAudit(auditLogger)
	periodsHandler := periods.NewHandler(logger, periodsService)

	postingService := posting.NewService(
		logger,
		posting.NewRepository(pool),
		posting.NewSnapshotReader(accountsRepo, categoriesRepo, mappingsRepo),
		documentsRepo,
		periodsRepo,
		journalsRepo,
		rateService,
		locker,
		documents.DefaultProfiles(),
	)
	postingHandler := posting.NewHandler(logger, postingService)

	reportsService := reports.NewService(trialBalanceRepo, accountsRepo)
	reportsHandler := reports.NewHandler(logger, reportsService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, jobsClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		AccountsHandler: accountsHandler,
		PeriodsHandler:  periodsHandler,
		PostingHandler:  postingHandler,
		ReportsHandler:  reportsHandler,
		JobsHandler:     jobsHandler,
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
