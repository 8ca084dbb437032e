package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	NATS        NATSConfig
	Trend       TrendConfig
	Storage     StorageConfig
	Pipeline    PipelineConfig
	Twitter     TwitterConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	CorsOrigins     []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	SSLMode      string
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	URL            string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
}

// TrendConfig holds trend detection configuration
type TrendConfig struct {
	GrowthFactor float64
	MinVolume    int
	TopN         int
	EventsTopic  string
}

// StorageConfig holds raw envelope storage configuration
type StorageConfig struct {
	Path          string
	RetentionDays int
	PurgeInterval time.Duration
}

// PipelineConfig holds pipeline scheduling configuration
type PipelineConfig struct {
	ScanInterval     time.Duration
	ScanQuery        string
	FetchBatchSize   int
	NormalizeWorkers int
}

// TwitterConfig holds Twitter API configuration
type TwitterConfig struct {
	BearerToken string
}

// Load loads configuration from environment variables
func Load() (Config, error) {
	config := Config{
		Environment: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			CorsOrigins:     getEnvAsSlice("SERVER_CORS_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Database:     getEnv("DB_NAME", "trendpulse"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 5*time.Minute),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
		},
		NATS: NATSConfig{
			URL:            getEnv("NATS_URL", "nats://localhost:4222"),
			MaxReconnects:  getEnvAsInt("NATS_MAX_RECONNECTS", 10),
			ReconnectWait:  getEnvAsDuration("NATS_RECONNECT_WAIT", 1*time.Second),
			ConnectTimeout: getEnvAsDuration("NATS_CONNECT_TIMEOUT", 2*time.Second),
		},
		Trend: TrendConfig{
			GrowthFactor: getEnvAsFloat("TREND_GROWTH_FACTOR", 2.0),
			MinVolume:    getEnvAsInt("TREND_MIN_VOLUME", 5),
			TopN:         getEnvAsInt("TREND_TOP_N", 20),
			EventsTopic:  getEnv("TREND_EVENTS_TOPIC", "trend"),
		},
		Storage: StorageConfig{
			Path:          getEnv("STORAGE_PATH", "./scraped_data"),
			RetentionDays: getEnvAsInt("STORAGE_RETENTION_DAYS", 30),
			PurgeInterval: getEnvAsDuration("STORAGE_PURGE_INTERVAL", 1*time.Hour),
		},
		Pipeline: PipelineConfig{
			ScanInterval:     getEnvAsDuration("PIPELINE_SCAN_INTERVAL", 2*time.Minute),
			ScanQuery:        getEnv("PIPELINE_SCAN_QUERY", "#trending"),
			FetchBatchSize:   getEnvAsInt("PIPELINE_FETCH_BATCH_SIZE", 50),
			NormalizeWorkers: getEnvAsInt("PIPELINE_NORMALIZE_WORKERS", 4),
		},
		Twitter: TwitterConfig{
			BearerToken: getEnv("TWITTER_BEARER_TOKEN", ""),
		},
	}

	return config, validate(config)
}

// validate checks if config is valid
func validate(config Config) error {
	if config.Storage.RetentionDays <= 0 {
		return fmt.Errorf("storage retention must be at least one day")
	}

	if config.Trend.TopN <= 0 {
		return fmt.Errorf("trend top-n must be positive")
	}

	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return strings.Split(valueStr, ",")
}
