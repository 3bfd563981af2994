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
	"golang.org/x/sync/errgroup"

	"github.com/meridian-dms/meridian/internal/accounting/accounts"
	"github.com/meridian-dms/meridian/internal/accounting/journals"
	"github.com/meridian-dms/meridian/internal/accounting/ledger"
	"github.com/meridian-dms/meridian/internal/accounting/reports"
	"github.com/meridian-dms/meridian/internal/ap"
	"github.com/meridian-dms/meridian/internal/app"
	"github.com/meridian-dms/meridian/internal/ar"
	"github.com/meridian-dms/meridian/internal/inventory"
	"github.com/meridian-dms/meridian/internal/observability"
	"github.com/meridian-dms/meridian/internal/platform/cache"
	"github.com/meridian-dms/meridian/internal/platform/db"
	"github.com/meridian-dms/meridian/internal/shared"
	"github.com/meridian-dms/meridian/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, report caching disabled", slog.Any("error", err))
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)
	sequences := shared.NewSequenceStore(pool)
	metrics := observability.NewMetrics()

	accountsRepo := accounts.NewRepository(pool)
	accountsService := accounts.NewService(accountsRepo, logger)
	if err := accountsService.Seed(ctx); err != nil {
		logger.Error("seed chart of accounts", slog.Any("error", err))
		os.Exit(1)
	}

	ledgerRepo := ledger.NewRepository(pool)
	poster := ledger.NewPoster()

	journalsRepo := journals.NewRepository(pool)
	journalsService := journals.NewService(journalsRepo, poster, auditLogger, metrics)

	inventoryRepo := inventory.NewRepository(pool)
	inventoryService := inventory.NewService(inventoryRepo, auditLogger, metrics)

	arRepo := ar.NewRepository(pool)
	arService := ar.NewService(arRepo, accountsRepo, journalsService, ledgerRepo, sequences, ar.ServiceConfig{
		ReturnCostRatio: cfg.ReturnCostRatio,
	})

	apRepo := ap.NewRepository(pool)
	apService := ap.NewService(apRepo, accountsRepo, journalsService, ledgerRepo, sequences)

	reportsRepo := reports.NewRepository(pool)
	reportsCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	reportsService := reports.NewService(accountsRepo, arRepo, apRepo, inventoryRepo, reportsRepo, reportsCache, logger)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		AccountsHandler:  accounts.NewHandler(logger, accountsService),
		JournalsHandler:  journals.NewHandler(logger, journalsService),
		LedgerHandler:    ledger.NewHandler(logger, ledgerRepo),
		InventoryHandler: inventory.NewHandler(logger, inventoryService),
		ARHandler:        ar.NewHandler(logger, arService),
		APHandler:        ap.NewHandler(logger, apService),
		ReportsHandler:   reports.NewHandler(logger, reportsService),
		JobHandler:       jobs.NewHandler(inspector, logger),
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
}
