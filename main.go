package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"pagetree/config"
	"pagetree/config/database"
	"pagetree/internal/document/repository"
	"pagetree/pkg/logger"
	"pagetree/router"
	"pagetree/socket"
)

func main() {
	// 1. Load configuration from .env and the OS environment, then start the logger.
	cfg, foundEnv, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logger.Init(cfg.LogLevel)
	defer logger.Sync()
	if !foundEnv {
		logger.Sugar.Info("No .env file found, using environment variables from OS")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Pick the document store. Postgres is the default; memory is for local runs.
	var (
		store  repository.Store
		health router.HealthCheck
	)
	switch cfg.Store {
	case config.StoreMemory:
		logger.Sugar.Warn("Using in-memory document store; data is lost on exit")
		store = repository.NewMemoryRepository()
	default:
		db := database.Connect(cfg.DatabaseURL)
		defer db.Close()
		if err := database.EnsureSchema(ctx, db); err != nil {
			logger.Sugar.Fatalf("Failed to prepare schema: %v", err)
		}
		store = repository.NewDocumentRepository(db)
		health = db.PingContext
	}

	// 3. The hub fans document events out to each owner's websocket connections.
	hub := socket.NewHub()
	go hub.Run(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.Setup(store, hub, cfg, health),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Sugar.Infof("Document service listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Sugar.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Sugar.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar.Errorf("Graceful shutdown failed: %v", err)
	}
}
