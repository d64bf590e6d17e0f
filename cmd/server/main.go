package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hostelhub/feeledger/internal/config"
	"github.com/hostelhub/feeledger/internal/repository/mongodb"
	redisrepo "github.com/hostelhub/feeledger/internal/repository/redis"
	"github.com/hostelhub/feeledger/internal/repository/sheets"
	"github.com/hostelhub/feeledger/internal/scheduler"
	"github.com/hostelhub/feeledger/internal/server/handlers"
	"github.com/hostelhub/feeledger/internal/server/router"
	ledgersvc "github.com/hostelhub/feeledger/internal/service/ledger"
	"github.com/hostelhub/feeledger/internal/service/notify"
	reportingsvc "github.com/hostelhub/feeledger/internal/service/reporting"
	whatsappclient "github.com/hostelhub/feeledger/pkg/clients/whatsapp"
	"github.com/hostelhub/feeledger/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()

	mongoRepo, err := mongodb.NewMongoDBRepository(startupCtx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
	if err != nil {
		baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
	}
	defer func() {
		if err := mongoRepo.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()

	if err := mongoRepo.EnsureIndexes(startupCtx); err != nil {
		baseLogger.Fatal("failed to create mongodb indexes", zap.Error(err))
	}
	if err := mongoRepo.SeedPaymentModes(startupCtx, ledgersvc.DefaultPaymentModes); err != nil {
		baseLogger.Fatal("failed to seed payment modes", zap.Error(err))
	}

	var idem redisrepo.IdempotencyStore
	if cfg.Redis.Enabled() {
		store, err := redisrepo.NewStore(startupCtx, cfg.Redis, baseLogger.Named("repo.redis"))
		if err != nil {
			baseLogger.Fatal("failed to init redis idempotency store", zap.Error(err))
		}
		defer func() { _ = store.Close() }()
		idem = store
		baseLogger.Info("redis idempotency store enabled", zap.String("addr", cfg.Redis.Addr))
	} else {
		baseLogger.Warn("REDIS_ADDR missing, duplicate submissions rely on the mongodb index only")
	}

	var journal ledgersvc.PaymentJournal
	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(startupCtx, cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		journal = sheets.NewJournal(sheetsRepo)
		baseLogger.Info("google sheets payment journal enabled")
	}

	var whatsClient whatsappclient.Client
	if cfg.WhatsApp.Enabled() {
		whatsClient = whatsappclient.NewClient(cfg.WhatsApp)
		baseLogger.Info("whatsapp notifications enabled")
	} else {
		baseLogger.Warn("whatsapp credentials missing, receipts and reports will not be sent")
	}
	notifier := notify.NewNotifier(whatsClient, cfg.WhatsApp.WardenPhone, baseLogger.Named("svc.notify"))

	ledgerSvc := ledgersvc.NewService(mongoRepo, idem, journal, notifier, baseLogger.Named("svc.ledger"))
	reportingSvc := reportingsvc.NewService(mongoRepo, notifier, baseLogger.Named("svc.reporting"))

	feeHandler := handlers.NewFeeHandler(ledgerSvc, baseLogger.Named("handlers.fees"))
	engine := router.New(feeHandler, cfg.Server.APIToken, baseLogger.Named("router"))

	sched := scheduler.NewScheduler(cfg.Reporting, ledgerSvc, reportingSvc, baseLogger.Named("scheduler"))
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
