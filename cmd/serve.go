package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"payskill/internal/auth"
	"payskill/internal/config"
	"payskill/internal/database"
	"payskill/internal/httpapi"
	"payskill/internal/levels"
	"payskill/internal/logging"
	"payskill/internal/metrics"
	"payskill/internal/qrcheck"
	"payskill/internal/repository"
	"payskill/internal/tasks"
	"payskill/internal/upload"

	"github.com/getsentry/sentry-go"
)

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func connect(ctx context.Context, cfg *config.Config) (*database.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return database.Connect(ctx, cfg.MongoURI, cfg.MongoDBName)
}

func newStorage(ctx context.Context, cfg *config.Config) (upload.Storage, error) {
	if cfg.StorageBackend == config.StorageS3 {
		return upload.NewS3Storage(ctx, cfg.S3, cfg.PublicUploadsPath)
	}
	return upload.NewDiskStorage(cfg.UploadsDir, cfg.PublicUploadsPath), nil
}

func serve(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.LogLevel)

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
			Release:          "payskill@" + Version,
		}); err != nil {
			logger.Error("sentry init failed", "error", err)
			cfg.SentryDSN = ""
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	store, err := connect(rootCtx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Disconnect(ctx); err != nil {
			logger.Error("Error disconnecting from DB", "error", err)
		}
	}()
	if err := store.EnsureIndexes(rootCtx); err != nil {
		logger.Warn("index creation failed", "error", err)
	}

	m := metrics.New()

	attemptLog := auth.NewAttemptLog(repository.NewAttemptRepository(store.Attempts()))
	gate := auth.NewGate(repository.NewUserRepository(store.Users()), attemptLog, cfg.Auth, logger)
	ledger := tasks.NewLedger(repository.NewCompletionRepository(store.Completions()), tasks.DefaultCatalog(), cfg.FirstTaskID, logger).
		WithQRPasses(repository.NewQRPassRepository(store.QRPasses()))

	storage, err := newStorage(rootCtx, cfg)
	if err != nil {
		return err
	}
	intake := upload.NewIntake(storage, logger)

	levelStore := levels.NewStore(cfg.LevelsPath)
	if err := levelStore.Load(); err != nil {
		logger.Warn("failed to load levels", "path", cfg.LevelsPath, "error", err)
	}
	levelStore.OnReload(m.LevelsReloads.Inc)
	if err := levelStore.Watch(rootCtx, levels.DefaultDebounce, logger); err != nil {
		logger.Warn("levels watcher disabled", "error", err)
	}

	qr, err := qrcheck.NewChecker(cfg.QR, cfg.Auth.DesignatedPhone, auth.AttemptZone)
	if err != nil {
		return err
	}

	opts := httpapi.Options{
		AdminToken:        cfg.AdminToken,
		CORSOrigins:       splitList(cfg.CORSOrigins),
		PublicUploadsPath: cfg.PublicUploadsPath,
		AccessLog:         os.Stdout,
		Sentry:            cfg.SentryDSN != "",
		UploadTimeout:     cfg.UploadTimeout,
	}
	if cfg.StorageBackend == config.StorageDisk {
		opts.UploadsDir = cfg.UploadsDir
	}
	server := httpapi.NewServer(httpapi.Deps{
		Gate:     gate,
		Attempts: attemptLog,
		Ledger:   ledger,
		Intake:   intake,
		Levels:   levelStore,
		QR:       qr,
		Metrics:  m,
		DB:       store,
		Logger:   logger,
	}, opts)

	addr := ":" + cfg.Port
	// Video uploads set their own deadlines; see httpapi.Options.UploadTimeout.
	srv := &http.Server{
		Handler:      server.Handler(),
		Addr:         addr,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server running", "addr", addr, "env", cfg.AppEnv, "storage", cfg.StorageBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
			stop()
		}
	}()

	// Wait for interrupt signals for graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
	case <-rootCtx.Done():
	}
	logger.Info("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("Server exiting gracefully.")
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
