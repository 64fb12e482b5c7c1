package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"eeg-workload-be/pkg/eeg"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Ingest      IngestConfig
	Persistence PersistenceConfig
	Pipeline    eeg.Config
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	GatewayLogFilePath string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	// JWTSecret protects the /api group. Empty leaves it open.
	JWTSecret      string
	CacheTTL       time.Duration
	ShutdownWindow time.Duration
}

type DatabaseConfig struct {
	// Connection is a postgres DSN. Empty selects the in-memory store.
	Connection   string
	MaxOpenConns int
	LogSQL       bool
}

type IngestConfig struct {
	APISecret       string
	MaxConnections  int
	AuthTimeout     time.Duration
	BufferCapacity  int
	PersistRaw      bool
	PersistFeatures bool
	StreamName      string
}

type PersistenceConfig struct {
	BatchSize     int
	FlushInterval time.Duration
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	pipeline, err := LoadPipeline(getEnv("PIPELINE_CONFIG_PATH", ""), getEnvAsFloat("EEG_SAMPLING_RATE", 250))
	if err != nil {
		return nil, err
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8765"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.json"),
			GatewayLogFilePath: getEnv("GATEWAY_LOG_FILE_PATH", "gateway.log.json"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
			JWTSecret:          getEnv("JWT_SECRET", ""),
			CacheTTL:           getEnvAsDuration("WORKLOAD_CACHE_TTL", 5*time.Minute),
			ShutdownWindow:     getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Connection:   getEnv("DB_CONNECTION_STRING", ""),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 50),
			LogSQL:       getEnvAsBool("DB_LOG_SQL", false),
		},
		Ingest: IngestConfig{
			APISecret:       getEnv("INGEST_API_SECRET", ""),
			MaxConnections:  getEnvAsInt("INGEST_MAX_CONNECTIONS", 100),
			AuthTimeout:     getEnvAsDuration("INGEST_AUTH_TIMEOUT", 10*time.Second),
			BufferCapacity:  getEnvAsInt("BUFFER_CAPACITY", 1000),
			PersistRaw:      getEnvAsBool("PERSIST_RAW", true),
			PersistFeatures: getEnvAsBool("PERSIST_FEATURES", true),
			StreamName:      getEnv("INGEST_STREAM_NAME", "edge_relay"),
		},
		Persistence: PersistenceConfig{
			BatchSize:     getEnvAsInt("PERSIST_BATCH_SIZE", 50),
			FlushInterval: getEnvAsDuration("PERSIST_FLUSH_INTERVAL", 5*time.Second),
		},
		Pipeline: pipeline,
	}, nil
}

// LoadPipeline returns the signal pipeline configuration. Fields present in
// the YAML file override the defaults for the given sampling rate; an empty
// path keeps the defaults.
func LoadPipeline(path string, samplingRate float64) (eeg.Config, error) {
	cfg := eeg.DefaultConfig(samplingRate)
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read pipeline config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse pipeline config %s: %w", path, err)
		}
	}
	if err := cfg.Check(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("5s") or plain seconds ("5").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if d, err := time.ParseDuration(strValue); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(strValue, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return fallback
}
