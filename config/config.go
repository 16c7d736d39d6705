package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	MarketBox MarketBoxConfig `yaml:"marketbox"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type KafkaConfig struct {
	Host                        string `yaml:"host"`
	Port                        int    `yaml:"port"`
	OrderStatusUpdatedTopicName string `yaml:"order_status_updated_topic_name"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type MarketBoxConfig struct {
	HTTPAddr           string `yaml:"http_addr"`
	KafkaConsumerGroup string `yaml:"kafka_consumer_group"`

	OrderCacheTTLSeconds int `yaml:"order_cache_ttl_seconds"`
	TaxRatePercent       int `yaml:"tax_rate_percent"`

	SlotReservationTTLHours int `yaml:"slot_reservation_ttl_hours"`

	WorkerPollIntervalSeconds int    `yaml:"worker_poll_interval_seconds"`
	WorkerBatchSize           int    `yaml:"worker_batch_size"`
	WorkerConcurrency         int    `yaml:"worker_concurrency"`
	WorkerLeaseSeconds        int    `yaml:"worker_lease_seconds"`
	WorkerRateLimitPerMinute  int    `yaml:"worker_rate_limit_per_minute"`
	WorkerHTTPAddr            string `yaml:"worker_http_addr"`

	// Worker scheduling (optional). If not set, defaults are "prod-like":
	// moving orders: 20..60 minutes, idle orders: 90 minutes,
	// backoff: 5/15/30/60 minutes.
	WorkerNextCheckMovingMinSeconds int `yaml:"worker_next_check_moving_min_seconds"`
	WorkerNextCheckMovingMaxSeconds int `yaml:"worker_next_check_moving_max_seconds"`
	WorkerNextCheckIdleSeconds      int `yaml:"worker_next_check_idle_seconds"`
	WorkerBackoff1Seconds           int `yaml:"worker_backoff_1_seconds"`
	WorkerBackoff2Seconds           int `yaml:"worker_backoff_2_seconds"`
	WorkerBackoff3Seconds           int `yaml:"worker_backoff_3_seconds"`
	WorkerBackoff4Seconds           int `yaml:"worker_backoff_4_seconds"`

	PaymentGatewayBaseURL string `yaml:"payment_gateway_base_url"`
	PaymentGatewayAPIKey  string `yaml:"payment_gateway_api_key"`

	GeocoderBaseURL string `yaml:"geocoder_base_url"`
	GeocoderAPIKey  string `yaml:"geocoder_api_key"`
	GeocoderCountry string `yaml:"geocoder_country"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}
