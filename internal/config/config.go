// Package config centralises configuration parsing for the gym store binaries.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures runtime configuration values.
type Config struct {
	HTTPAddress            string        `yaml:"http_address"`
	CORSOrigin             string        `yaml:"cors_origin"`
	StoreDSN               string        `yaml:"store_dsn"`
	KeyPrefix              string        `yaml:"key_prefix"`
	JWTSecret              string        `yaml:"jwt_secret"`
	JWTIssuer              string        `yaml:"jwt_issuer"`
	HTTPTimeout            time.Duration `yaml:"http_timeout"`
	CacheInvalidationURL   string        `yaml:"cache_invalidation_url"`
	CacheInvalidationToken string        `yaml:"cache_invalidation_token"`
	KafkaBrokers           []string      `yaml:"kafka_brokers"`
	BackupTopic            string        `yaml:"backup_topic"`
	DeadLetterTopic        string        `yaml:"dead_letter_topic"`
	ConsumerGroupID        string        `yaml:"consumer_group_id"`
	MetricsAddress         string        `yaml:"metrics_address"`
	LogLevel               string        `yaml:"log_level"`
	MigrateOnStart         bool          `yaml:"migrate_on_start"`
	WatchStore             bool          `yaml:"watch_store"`
}

// Defaults returns the configuration used for local development.
func Defaults() Config {
	return Config{
		HTTPAddress:     ":8080",
		CORSOrigin:      "http://localhost:5173",
		StoreDSN:        "file://./data",
		JWTSecret:       "dev-secret-change-me",
		JWTIssuer:       "gymstore.identity",
		HTTPTimeout:     5 * time.Second,
		KafkaBrokers:    []string{"kafka:9092"},
		BackupTopic:     "gymstore_backups",
		DeadLetterTopic: "gymstore_backups_dlq",
		ConsumerGroupID: "gymstore-restore",
		MetricsAddress:  ":9102",
		LogLevel:        "info",
		MigrateOnStart:  true,
	}
}

// Load reads the optional YAML file named by CONFIG_FILE and then applies
// environment variables, which take precedence.
func Load() (Config, error) {
	cfg := Defaults()
	if path := getEnv("CONFIG_FILE", ""); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.HTTPAddress = getEnv("HTTP_ADDRESS", cfg.HTTPAddress)
	cfg.CORSOrigin = getEnv("CORS_ORIGIN", cfg.CORSOrigin)
	cfg.StoreDSN = getEnv("STORE_DSN", cfg.StoreDSN)
	cfg.KeyPrefix = getEnv("KEY_PREFIX", cfg.KeyPrefix)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTIssuer = getEnv("JWT_ISSUER", cfg.JWTIssuer)
	cfg.HTTPTimeout = getDurationEnv("HTTP_TIMEOUT", cfg.HTTPTimeout)
	cfg.CacheInvalidationURL = getEnv("CACHE_INVALIDATION_URL", cfg.CacheInvalidationURL)
	cfg.CacheInvalidationToken = getEnv("CACHE_INVALIDATION_TOKEN", cfg.CacheInvalidationToken)
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	cfg.BackupTopic = getEnv("BACKUP_TOPIC", cfg.BackupTopic)
	cfg.DeadLetterTopic = getEnv("DEAD_LETTER_TOPIC", cfg.DeadLetterTopic)
	cfg.ConsumerGroupID = getEnv("CONSUMER_GROUP_ID", cfg.ConsumerGroupID)
	cfg.MetricsAddress = getEnv("METRICS_ADDRESS", cfg.MetricsAddress)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.MigrateOnStart = getBoolEnv("MIGRATE_ON_START", cfg.MigrateOnStart)
	cfg.WatchStore = getBoolEnv("WATCH_STORE", cfg.WatchStore)
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
