package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/pushbridge/pushbridge/config"
	"github.com/pushbridge/pushbridge/handlers"
	"github.com/pushbridge/pushbridge/internal/iid"
	"github.com/pushbridge/pushbridge/logger"
	"github.com/pushbridge/pushbridge/router"
	"github.com/pushbridge/pushbridge/services"
)

func main() {
	// Initialize logger
	logger.InitLogger()
	log := logger.GetLogger()
	defer logger.Close()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Exchange client. NewClient panics on incomplete credentials; config
	// validation has already guaranteed the API key is present.
	client := iid.NewClient(
		iid.Credentials{
			APIKey:      cfg.FCM.APIKey,
			Environment: iid.Environment(cfg.Server.Environment),
		},
		iid.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.FCM.TimeoutSeconds) * time.Second,
		}),
		iid.WithAppInfo(iid.AppInfo{
			BundleID: cfg.App.BundleID,
			Name:     cfg.App.Name,
			Version:  cfg.App.Version,
			Build:    cfg.App.Build,
		}),
	)

	// Worker pool for async exchange callbacks
	pool := services.NewWorkerPool(cfg.WorkerPool)
	pool.Start()

	// Services and handlers
	exchangeService := services.NewTokenExchangeService(client, pool)
	healthService := services.NewHealthService(pool, cfg.WorkerPool.QueueSize, cfg.Server.Version)

	r := router.SetupRouter(router.Dependencies{
		Config:               cfg,
		TokenExchangeHandler: handlers.NewTokenExchangeHandler(exchangeService),
		HealthHandler:        handlers.NewHealthHandler(healthService),
		Logger:               log,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Infof("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutdown signal received")

	shutdownTimeout := time.Duration(cfg.WorkerPool.ShutdownTimeoutSeconds) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Server shutdown failed", "error", err)
	}

	if err := pool.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Worker pool shutdown failed", "error", err)
	}

	log.Info("Server stopped")
}
