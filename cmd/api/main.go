package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/timmy/surrogates/internal/api"
	"github.com/timmy/surrogates/internal/app"
	"github.com/timmy/surrogates/internal/config"
	"github.com/timmy/surrogates/internal/logger"
	"github.com/timmy/surrogates/internal/repository"
)

func main() {
	// Support CONFIG_PATH environment variable for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(logger.ConfigFromEnv())
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	rootCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()

	application, err := app.New(rootCtx, cfg)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize application")
	}
	defer application.Close()

	go repository.RunSweeper(rootCtx, application.Registry, cfg.Jobs.SweepInterval, cfg.Jobs.Retention)

	deps := api.Dependencies{
		Jobs:         application.Jobs,
		Progress:     application.Bus,
		Storage:      application.Storage,
		Providers:    application.Sources.Names,
		Results:      application.Results,
		Inspiration:  application.Inspiration,
		UploadsDir:   cfg.Storage.UploadsDir,
		PingInterval: cfg.Progress.PingInterval,
	}
	// Leave the interface nil rather than holding a typed nil pointer.
	if application.History != nil {
		deps.History = application.History
	}

	router := api.SetupRouter(&cfg.Server, deps)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port":      cfg.Server.Port,
			"mode":      cfg.Server.Mode,
			"providers": application.Sources.Names(),
			"storage":   cfg.Storage.Type,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server forced to shutdown")
	}

	// Running jobs fail with a cancellation error and publish their final event.
	cancelJobs()
	application.Jobs.Wait()

	appLogger.Info("Server exited")
}
