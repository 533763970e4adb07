// Package consumer binds the MQTT subscriptions to the processing pipeline.
package consumer

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/models"
	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/pkg/mqtt"
)

// watchTopicFilter covers every iMEDE_watch push topic with one subscription.
const watchTopicFilter = "iMEDE_watch/#"

// MessageProcessor is the pipeline entry point.
type MessageProcessor interface {
	Process(ctx context.Context, topic string, payload []byte) error
}

// MQTTConsumer subscribes the device topics and feeds each message to the
// pipeline. Handler failures never break the subscription: non-retryable
// outcomes are absorbed by the pipeline, store failures are returned to the
// broker client for redelivery, and panics are fatal only to the message.
type MQTTConsumer struct {
	client         *mqtt.Client
	pipeline       MessageProcessor
	qos            byte
	processTimeout time.Duration
	logger         *zap.Logger
}

// New creates a consumer over a connected MQTT client.
func New(client *mqtt.Client, pipeline MessageProcessor, qos byte, processTimeout time.Duration, logger *zap.Logger) *MQTTConsumer {
	if processTimeout <= 0 {
		processTimeout = 30 * time.Second
	}
	return &MQTTConsumer{
		client:         client,
		pipeline:       pipeline,
		qos:            qos,
		processTimeout: processTimeout,
		logger:         logger,
	}
}

// topics returns every subscription filter the listener needs.
func topics() []string {
	return []string{
		models.TopicHubStatus,
		models.TopicHubData,
		models.TopicQube,
		watchTopicFilter,
	}
}

// Start subscribes all device topics.
func (c *MQTTConsumer) Start() error {
	for _, topic := range topics() {
		if err := c.client.Subscribe(topic, c.qos, c.handle); err != nil {
			return fmt.Errorf("failed to subscribe %s: %w", topic, err)
		}
		c.logger.Info("Subscribed", zap.String("topic", topic))
	}
	return nil
}

// Stop unsubscribes the topic set. The MQTT client itself is owned and
// disconnected by the service.
func (c *MQTTConsumer) Stop() {
	if err := c.client.Unsubscribe(topics()...); err != nil {
		c.logger.Warn("Failed to unsubscribe", zap.Error(err))
	}
}

func (c *MQTTConsumer) handle(topic string, payload []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.processTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Panic while processing message",
				zap.String("topic", topic),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()

	if err := c.pipeline.Process(ctx, topic, payload); err != nil {
		// only store failures reach here; log and let the broker redeliver
		c.logger.Error("Failed to process message",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return err
	}
	return nil
}
