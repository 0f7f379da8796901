package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Storage  StorageConfig
	STT      STTConfig
	LLM      LLMConfig
	Pipeline PipelineConfig
}

// DatabaseConfig holds report-store configuration.
type DatabaseConfig struct {
	Driver          string // "postgres" or "sqlite"
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	HTTPAddr string
}

// StorageConfig holds audio object-store configuration.
type StorageConfig struct {
	Bucket          string
	CredentialsJSON string
	UploadURLTTL    time.Duration
}

// STTConfig holds speech-to-text configuration.
type STTConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// LLMConfig holds structured-extraction model configuration.
type LLMConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// PipelineConfig holds worker-queue configuration.
type PipelineConfig struct {
	Workers        int
	QueueSize      int
	ProcessTimeout time.Duration
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "postgres"),
			DSN:             getEnv("DB_URL", ""),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Server: ServerConfig{
			HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		},
		Storage: StorageConfig{
			Bucket:          getEnv("GCS_BUCKET", ""),
			CredentialsJSON: getEnv("GCS_CREDENTIALS_JSON", ""),
			UploadURLTTL:    getEnvAsDuration("UPLOAD_URL_TTL", 15*time.Minute),
		},
		STT: STTConfig{
			BaseURL: getEnv("STT_BASE_URL", "https://api.openai.com/v1"),
			APIKey:  getEnv("OPENAI_API_KEY", ""),
			Model:   getEnv("STT_MODEL", "whisper-1"),
			Timeout: getEnvAsDuration("STT_TIMEOUT", 120*time.Second),
		},
		LLM: LLMConfig{
			BaseURL:     getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			Model:       getEnv("LLM_MODEL", "gpt-4o-mini"),
			Temperature: getEnvAsFloat32("LLM_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("LLM_TIMEOUT", 45*time.Second),
		},
		Pipeline: PipelineConfig{
			Workers:        int(getEnvAsInt32("PIPELINE_WORKERS", 4)),
			QueueSize:      int(getEnvAsInt32("PIPELINE_QUEUE_SIZE", 256)),
			ProcessTimeout: getEnvAsDuration("PIPELINE_PROCESS_TIMEOUT", 3*time.Minute),
		},
	}
}

// Validate validates the loaded configuration.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return Tagf(ErrInvalidInput, "DB_URL is required")
	}
	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return Tagf(ErrInvalidInput, "DB_DRIVER must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Storage.Bucket == "" {
		return Tagf(ErrInvalidInput, "GCS_BUCKET is required")
	}
	if c.STT.APIKey == "" && c.LLM.APIKey == "" {
		return Tagf(ErrInvalidInput, "OPENAI_API_KEY is required")
	}
	if c.Server.HTTPAddr == "" {
		return Tagf(ErrInvalidInput, "HTTP_ADDR is required")
	}
	return nil
}

// Helper functions for environment variable parsing.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
