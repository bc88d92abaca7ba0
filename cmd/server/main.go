package main

import (
	"CardKeeper/internal/bootstrap"
	"CardKeeper/internal/config"
	"CardKeeper/internal/handlers"
	"CardKeeper/internal/metrics"
	"CardKeeper/internal/middleware"
	"CardKeeper/internal/repo"
	"CardKeeper/internal/service"
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.NewConfig()

	// создаём предустановленный регистратор zap
	var logger *zap.Logger
	var err error
	if cfg.LogFormat == "json" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}

	// делаем регистратор SugaredLogger
	sugar := logger.Sugar()
	middleware.SetLogger(sugar) // передаём логгер в middleware
	//сброс буфера логгера
	defer func() {
		if err := logger.Sync(); err != nil {
			sugar.Errorw("Failed to sync logger", "error", err)
		}
	}()

	// без ключа бэкапа сервер не стартует
	if err := cfg.Validate(); err != nil {
		sugar.Fatalw("invalid configuration", "error", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	metrics.Init()

	store, err := repo.OpenStore(cfg.DatabasePath)
	if err != nil {
		sugar.Fatalw("failed to initialize database", "error", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			sugar.Errorw("Failed to close database", "error", err)
		}
	}()

	userRepo := repo.NewUserRepository(store)
	userService := service.NewUserService(userRepo, service.WithAdminUsername(cfg.AdminUsername))

	backupService, err := bootstrap.NewBackupService(ctx, cfg, sugar, store)
	if err != nil {
		sugar.Fatalw("failed to initialize backups", "error", err)
	}

	h := handlers.NewHandler(userService, backupService, sugar, cfg)

	addr := cfg.BaseURL

	sugar.Infow("Config",
		"BaseURL", cfg.BaseURL,
		"EnableHTTPS", cfg.EnableHTTPS,
		"DatabasePath", cfg.DatabasePath,
		"BackupDir", cfg.BackupDir,
		"BackupPrefix", cfg.BackupPrefix,
		"BackupKeySet", cfg.BackupKey != "",
		"BackupInterval", cfg.BackupInterval,
		"MirrorEnabled", cfg.MirrorEnabled(),
	)

	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sugar.Infow("Starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if cfg.BackupInterval > 0 {
		g.Go(func() error {
			return backupService.RunPeriodic(gctx, cfg.BackupInterval)
		})
	}

	if err := g.Wait(); err != nil {
		sugar.Errorw("Server failed", "error", err)
	}
	sugar.Infow("Server stopped")
}
