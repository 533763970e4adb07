package config

import (
	"os"
	"strconv"
	"time"

	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/pkg/mongodb"
	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/pkg/mqtt"
	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/pkg/rediscache"
)

// Config is the listener service configuration, loaded from environment variables.
type Config struct {
	MQTT  mqtt.Config
	Mongo mongodb.Config
	Redis rediscache.Config

	// Trace sink (fire-and-forget pipeline trace events)
	Trace struct {
		SinkURL     string
		QueueSize   int
		HTTPTimeout time.Duration
	}

	// FHIR projection endpoint
	FHIR struct {
		Enabled     bool
		EndpointURL string
		HTTPTimeout time.Duration
	}

	// Alert thresholds used by the device status tracker.
	Thresholds struct {
		LowBatteryPercent int
		PoorSignalPercent int
	}

	Pipeline struct {
		ProcessTimeout time.Duration // budget for one message end to end
		StoreTimeout   time.Duration // per external store call
	}

	Cache struct {
		RegistryTTL time.Duration // read-through registry cache TTL
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "stardust-listener")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = byte(getEnvInt("MQTT_QOS", 1))

	cfg.Mongo.URI = getEnv("MONGO_URI", "mongodb://localhost:27017")
	cfg.Mongo.Database = getEnv("MONGO_DATABASE", "amy")
	cfg.Mongo.Timeout = getEnvDuration("MONGO_TIMEOUT", 10*time.Second)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.Trace.SinkURL = getEnv("TRACE_SINK_URL", "")
	cfg.Trace.QueueSize = getEnvInt("TRACE_QUEUE_SIZE", 256)
	cfg.Trace.HTTPTimeout = getEnvDuration("TRACE_HTTP_TIMEOUT", 2*time.Second)

	cfg.FHIR.EndpointURL = getEnv("FHIR_ENDPOINT_URL", "")
	cfg.FHIR.Enabled = cfg.FHIR.EndpointURL != ""
	cfg.FHIR.HTTPTimeout = getEnvDuration("FHIR_HTTP_TIMEOUT", 5*time.Second)

	cfg.Thresholds.LowBatteryPercent = getEnvInt("THRESHOLD_LOW_BATTERY", 20)
	cfg.Thresholds.PoorSignalPercent = getEnvInt("THRESHOLD_POOR_SIGNAL", 30)

	cfg.Pipeline.ProcessTimeout = getEnvDuration("PIPELINE_PROCESS_TIMEOUT", 30*time.Second)
	cfg.Pipeline.StoreTimeout = getEnvDuration("PIPELINE_STORE_TIMEOUT", 5*time.Second)

	cfg.Cache.RegistryTTL = getEnvDuration("CACHE_REGISTRY_TTL", 5*time.Minute)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
