package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"adjust-consumer/internal/adjust"
	"adjust-consumer/internal/analytics"
	"adjust-consumer/internal/api"
	"adjust-consumer/internal/config"
	"adjust-consumer/internal/database"
	"adjust-consumer/internal/dlq"
	"adjust-consumer/internal/forwarder"
	"adjust-consumer/internal/logger"
	"adjust-consumer/internal/settings"
)

func main() {
	logger.Log.Info("Starting Adjust forwarder...")

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.SetLevel(cfg.Host.LogLevel)

	installType, err := analytics.ParseInstallType(cfg.Host.InstallType)
	if err != nil {
		logger.Log.Fatalf("Invalid INSTALL_TYPE: %v", err)
	}

	store, err := settings.NewRedisStore(&cfg.Redis)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to settings store: %v", err)
	}
	defer store.Close()

	adjustConsumer, err := adjust.NewConsumerFromConfig(&cfg.Adjust)
	if err != nil {
		logger.Log.Fatalf("Failed to configure Adjust consumer: %v", err)
	}

	orchestrator := analytics.NewOrchestrator(store, adjustConsumer)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 10*time.Second)
	err = orchestrator.Start(startCtx, installType)
	cancelStart()
	if err != nil {
		logger.Log.Fatalf("Failed to start analytics consumers: %v", err)
	}

	db, err := database.New(&cfg.MSSQL)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	schemaCtx, cancelSchema := context.WithTimeout(context.Background(), 10*time.Second)
	err = db.EnsureSchema(schemaCtx)
	cancelSchema()
	if err != nil {
		logger.Log.Fatalf("Failed to prepare database: %v", err)
	}

	dlqClient, err := dlq.New(&cfg.Redis)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer dlqClient.Close()

	handler := forwarder.NewHandler(orchestrator, db)
	fwd, err := forwarder.New(&cfg.Kafka, handler, dlqClient)
	if err != nil {
		logger.Log.Fatalf("Failed to create forwarder: %v", err)
	}

	apiServer := api.New(&cfg.API, orchestrator, db, dlqClient)

	go fwd.Start()

	go func() {
		if err := apiServer.Start(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatalf("API server error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Log.Info("Shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := apiServer.Stop(ctx); err != nil {
		logger.Log.Errorf("Error stopping API server: %v", err)
	}

	fwd.Stop()

	if err := adjustConsumer.Client().Close(ctx); err != nil {
		logger.Log.Errorf("Error draining Adjust client: %v", err)
	}

	logger.Log.Info("Shutdown complete")
}
