package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Realtime drivers for the external vote update channel
const (
	RealtimePostgres = "postgres"
	RealtimeNATS     = "nats"
	RealtimeNone     = "none"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Boundary  BoundaryConfig
	Identity  IdentityConfig
	Realtime  RealtimeConfig
	AWS       AWSConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	App       AppConfig
	Log       LogConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host         string
	Port         string
	TimeoutRead  time.Duration
	TimeoutWrite time.Duration
	TimeoutIdle  time.Duration
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

// BoundaryConfig configures where the country polygon comes from
type BoundaryConfig struct {
	// Source is "bundled", a file path, an http(s) URL or s3://bucket/key
	Source      string
	LoadTimeout time.Duration
}

// IdentityConfig configures device-local storage
type IdentityConfig struct {
	StorePath string
}

// RealtimeConfig configures the external vote update channel
type RealtimeConfig struct {
	Driver            string
	PGChannel         string
	MinReconnect      time.Duration
	MaxReconnect      time.Duration
	NATSURL           string
	NATSName          string
	NATSSubject       string
	NATSMaxReconnect  int
	NATSReconnectWait time.Duration
	EventBuffer       int
}

// AWSConfig holds settings for the S3 boundary source
type AWSConfig struct {
	Region   string
	Endpoint string
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled  bool
	Requests int
	Duration time.Duration
}

// AppConfig holds general application configuration
type AppConfig struct {
	Env     string
	Name    string
	Version string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "localhost"),
			Port:         getEnv("SERVER_PORT", "8080"),
			TimeoutRead:  getDurationEnv("SERVER_TIMEOUT_READ", 15*time.Second),
			TimeoutWrite: getDurationEnv("SERVER_TIMEOUT_WRITE", 15*time.Second),
			TimeoutIdle:  getDurationEnv("SERVER_TIMEOUT_IDLE", 60*time.Second),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "potholes"),
			Password:        getEnv("DB_PASSWORD", ""),
			Name:            getEnv("DB_NAME", "potholes"),
			SSLMode:         getEnv("DB_SSLMODE", "prefer"),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			AutoMigrate:     getBoolEnv("DB_AUTO_MIGRATE", true),
		},
		Boundary: BoundaryConfig{
			Source:      getEnv("BOUNDARY_SOURCE", "bundled"),
			LoadTimeout: getDurationEnv("BOUNDARY_LOAD_TIMEOUT", 30*time.Second),
		},
		Identity: IdentityConfig{
			StorePath: getEnv("IDENTITY_STORE_PATH", defaultIdentityPath()),
		},
		Realtime: RealtimeConfig{
			Driver:            strings.ToLower(getEnv("REALTIME_DRIVER", RealtimePostgres)),
			PGChannel:         getEnv("REALTIME_PG_CHANNEL", "vote_changes"),
			MinReconnect:      getDurationEnv("REALTIME_PG_MIN_RECONNECT", 10*time.Second),
			MaxReconnect:      getDurationEnv("REALTIME_PG_MAX_RECONNECT", time.Minute),
			NATSURL:           getEnv("NATS_URL", "nats://localhost:4222"),
			NATSName:          getEnv("NATS_NAME", "pothole-map"),
			NATSSubject:       getEnv("NATS_SUBJECT", "potholes.votes.changed"),
			NATSMaxReconnect:  getIntEnv("NATS_MAX_RECONNECT", 60),
			NATSReconnectWait: getDurationEnv("NATS_RECONNECT_WAIT", 2*time.Second),
			EventBuffer:       getIntEnv("REALTIME_EVENT_BUFFER", 64),
		},
		AWS: AWSConfig{
			Region:   getEnv("AWS_REGION", "eu-central-1"),
			Endpoint: getEnv("AWS_ENDPOINT_URL", ""),
		},
		CORS: CORSConfig{
			AllowedOrigins:   getSliceEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			AllowedMethods:   getSliceEnv("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders:   getSliceEnv("CORS_ALLOWED_HEADERS", []string{"Accept", "Content-Type", "X-Voter-ID"}),
			ExposedHeaders:   getSliceEnv("CORS_EXPOSED_HEADERS", []string{"Link"}),
			AllowCredentials: getBoolEnv("CORS_ALLOW_CREDENTIALS", false),
			MaxAge:           getIntEnv("CORS_MAX_AGE", 300),
		},
		RateLimit: RateLimitConfig{
			Enabled:  getBoolEnv("RATE_LIMIT_ENABLED", true),
			Requests: getIntEnv("RATE_LIMIT_REQUESTS", 120),
			Duration: getDurationEnv("RATE_LIMIT_DURATION", 1*time.Minute),
		},
		App: AppConfig{
			Env:     getEnv("APP_ENV", "development"),
			Name:    getEnv("APP_NAME", "PotholeMap"),
			Version: getEnv("APP_VERSION", "1.0.0"),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Boundary.Source) == "" {
		return fmt.Errorf("BOUNDARY_SOURCE is required")
	}
	switch c.Realtime.Driver {
	case RealtimePostgres, RealtimeNATS, RealtimeNone:
	default:
		return fmt.Errorf("REALTIME_DRIVER must be one of %s, %s, %s (got %q)",
			RealtimePostgres, RealtimeNATS, RealtimeNone, c.Realtime.Driver)
	}
	if c.Realtime.Driver == RealtimeNATS && c.Realtime.NATSSubject == "" {
		return fmt.Errorf("NATS_SUBJECT is required for the nats realtime driver")
	}
	if c.Database.Password == "" && c.App.Env == "production" {
		return fmt.Errorf("DB_PASSWORD is required in production")
	}
	return nil
}

// IsProduction reports whether the app runs in production
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

func defaultIdentityPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "identity.json"
	}
	return filepath.Join(dir, "pothole-map", "identity.json")
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var result []string
		for _, v := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}
