package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/config"
	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/service"
	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "stardust-listener")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting stardust listener service",
		zap.String("broker", cfg.MQTT.Broker),
		zap.String("database", cfg.Mongo.Database),
		zap.Bool("fhir_projection", cfg.FHIR.Enabled),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listener, err := service.NewListenerService(ctx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to create listener service", zap.Error(err))
	}

	if err := listener.Start(ctx); err != nil {
		zapLogger.Fatal("Failed to start listener service", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	zapLogger.Info("Received signal, shutting down", zap.String("signal", sig.String()))

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := listener.Stop(shutdownCtx); err != nil {
		zapLogger.Error("Error during shutdown", zap.Error(err))
	}

	zapLogger.Info("Service stopped")
}
