// Package service owns construction and lifecycle of the listener: every
// dependency is built here in order (mongo, redis, repositories, pipeline
// stages, consumer) and torn down in reverse on Stop.
package service

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/config"
	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/consumer"
	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/fhir"
	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/normalizer"
	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/pipeline"
	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/repository"
	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/resolver"
	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/store"
	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/trace"
	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/tracker"
	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/pkg/mongodb"
	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/pkg/mqtt"
	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/pkg/rediscache"
)

// ListenerService is the device message listener.
type ListenerService struct {
	config *config.Config
	logger *zap.Logger

	mongoClient *mongo.Client
	redisClient *redis.Client
	mqttClient  *mqtt.Client

	historyRepo *repository.HistoryRepository
	emitter     *trace.Emitter
	consumer    *consumer.MQTTConsumer
}

// NewListenerService builds the full dependency graph. Nothing subscribes or
// consumes until Start.
func NewListenerService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*ListenerService, error) {
	mongoClient, db, err := mongodb.Connect(ctx, &cfg.Mongo)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	redisClient := rediscache.NewClient(&cfg.Redis)
	if err := rediscache.Ping(ctx, redisClient); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	patientRepo := repository.NewPatientRepository(db, logger)
	registryRepo := repository.NewRegistryRepository(db, logger)
	cachedRegistry := repository.NewCachedRegistry(registryRepo, redisClient, cfg.Cache.RegistryTTL, logger)
	historyRepo := repository.NewHistoryRepository(db, logger)
	statusRepo := repository.NewStatusRepository(db, logger)

	emitter := trace.New(trace.Config{
		SinkURL:     cfg.Trace.SinkURL,
		QueueSize:   cfg.Trace.QueueSize,
		HTTPTimeout: cfg.Trace.HTTPTimeout,
	}, logger)

	statusTracker := tracker.New(statusRepo, tracker.Thresholds{
		LowBatteryPercent: cfg.Thresholds.LowBatteryPercent,
		PoorSignalPercent: cfg.Thresholds.PoorSignalPercent,
	}, logger)

	var projector pipeline.Projector
	if cfg.FHIR.Enabled {
		projector = fhir.NewPublisher(cfg.FHIR.EndpointURL, cfg.FHIR.HTTPTimeout, logger)
	}

	pipe := pipeline.New(
		resolver.New(patientRepo, cachedRegistry, logger),
		normalizer.New(logger),
		store.New(patientRepo, historyRepo, statusTracker, logger),
		statusTracker,
		projector,
		emitter,
		cfg.Pipeline.StoreTimeout,
		logger,
	)

	mqttClient, err := mqtt.NewClient(&cfg.MQTT, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mqtt broker: %w", err)
	}

	return &ListenerService{
		config:      cfg,
		logger:      logger,
		mongoClient: mongoClient,
		redisClient: redisClient,
		mqttClient:  mqttClient,
		historyRepo: historyRepo,
		emitter:     emitter,
		consumer:    consumer.New(mqttClient, pipe, cfg.MQTT.QoS, cfg.Pipeline.ProcessTimeout, logger),
	}, nil
}

// Start ensures the history indexes and subscribes the device topics.
func (s *ListenerService) Start(ctx context.Context) error {
	if err := s.historyRepo.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("failed to ensure history indexes: %w", err)
	}

	if err := s.consumer.Start(); err != nil {
		return fmt.Errorf("failed to start consumer: %w", err)
	}

	s.logger.Info("Listener service started",
		zap.String("broker", s.config.MQTT.Broker),
		zap.String("database", s.config.Mongo.Database),
	)
	return nil
}

// Stop tears down in reverse order: stop intake first, then drain the trace
// queue, then close the clients.
func (s *ListenerService) Stop(ctx context.Context) error {
	s.consumer.Stop()
	s.mqttClient.Disconnect()
	s.emitter.Close()

	if err := rediscache.Close(s.redisClient); err != nil {
		s.logger.Warn("Failed to close redis client", zap.Error(err))
	}
	if err := mongodb.Close(ctx, s.mongoClient); err != nil {
		return fmt.Errorf("failed to close mongodb client: %w", err)
	}

	s.logger.Info("Listener service stopped")
	return nil
}
