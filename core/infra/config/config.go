package config

import "os"

const (
	defaultNATSURL     = "nats://localhost:4222"
	defaultRedisURL    = "redis://localhost:6379"
	defaultServicePath = "config/service.yaml"
	defaultMetricsAddr = ":9105"

	envNATSURL     = "NATS_URL"
	envRedisURL    = "REDIS_URL"
	envServicePath = "SERVICE_CONFIG_PATH"
	envMetricsAddr = "METRICS_ADDR"
)

// Config holds runtime configuration shared by the service binaries.
type Config struct {
	NatsURL     string
	RedisURL    string
	ServicePath string
	MetricsAddr string
}

// Load returns configuration using environment variables with sane defaults.
func Load() *Config {
	natsURL := os.Getenv(envNATSURL)
	if natsURL == "" {
		natsURL = defaultNATSURL
	}

	redisURL := os.Getenv(envRedisURL)
	if redisURL == "" {
		redisURL = defaultRedisURL
	}

	servicePath := os.Getenv(envServicePath)
	if servicePath == "" {
		servicePath = defaultServicePath
	}

	metricsAddr := os.Getenv(envMetricsAddr)
	if metricsAddr == "" {
		metricsAddr = defaultMetricsAddr
	}

	return &Config{
		NatsURL:     natsURL,
		RedisURL:    redisURL,
		ServicePath: servicePath,
		MetricsAddr: metricsAddr,
	}
}
