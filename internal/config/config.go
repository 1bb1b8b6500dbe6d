package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/couchcryptid/forecast-normalizer/internal/domain"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Sink names accepted by SINK.
const (
	SinkKafka  = "kafka"
	SinkSQLite = "sqlite"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Normalization defaults, overridable per message or request.
	DefaultProfile      string
	ErrorMode           domain.ErrorMode
	DirectionConvention domain.DirectionConvention
	Horizon             time.Duration // 0 keeps the profile horizon
	DatasetCacheSize    int           // 0 disables the cache

	Sink       string
	SQLitePath string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	mode, err := domain.ParseErrorMode(os.Getenv("ERROR_MODE"))
	if err != nil {
		return nil, fmt.Errorf("invalid ERROR_MODE: %w", err)
	}

	conv, err := domain.ParseDirectionConvention(os.Getenv("DIRECTION_CONVENTION"))
	if err != nil {
		return nil, fmt.Errorf("invalid DIRECTION_CONVENTION: %w", err)
	}

	horizon, err := parseHorizon()
	if err != nil {
		return nil, err
	}

	cacheSize, err := parseCacheSize()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "raw-forecast-loads"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "normalized-forecasts"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "forecast-normalizer"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		DefaultProfile:      sharedcfg.EnvOrDefault("DEFAULT_PROFILE", domain.ProfileWavegramCSV),
		ErrorMode:           mode,
		DirectionConvention: conv,
		Horizon:             horizon,
		DatasetCacheSize:    cacheSize,

		Sink:       sharedcfg.EnvOrDefault("SINK", SinkKafka),
		SQLitePath: os.Getenv("SQLITE_PATH"),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if _, err := domain.LookupProfile(cfg.DefaultProfile, conv); err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_PROFILE: %w", err)
	}

	switch cfg.Sink {
	case SinkKafka:
		if cfg.KafkaSinkTopic == "" {
			return nil, errors.New("KAFKA_SINK_TOPIC is required")
		}
	case SinkSQLite:
		if cfg.SQLitePath == "" {
			return nil, errors.New("SINK=sqlite requires SQLITE_PATH")
		}
	default:
		return nil, fmt.Errorf("invalid SINK %q: want kafka or sqlite", cfg.Sink)
	}

	return cfg, nil
}

func parseHorizon() (time.Duration, error) {
	s := os.Getenv("HORIZON")
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, errors.New("invalid HORIZON")
	}
	return d, nil
}

func parseCacheSize() (int, error) {
	s := os.Getenv("DATASET_CACHE_SIZE")
	if s == "" {
		return 100, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.New("invalid DATASET_CACHE_SIZE")
	}
	return n, nil
}
