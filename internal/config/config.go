package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	BackendPostgres = "postgres"
	BackendDynamo   = "dynamo"
	BackendMemory   = "memory"

	OTPStoreMemory = "memory"
	OTPStoreRedis  = "redis"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	OTP       OTPConfig
	Session   SessionConfig
	WhatsApp  WhatsAppConfig
	TestMode  TestModeConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	// Backend selects the persistence backend explicitly at startup:
	// postgres, dynamo or memory.
	Backend          string
	FallbackToMemory bool
	Postgres         PostgresConfig
	DynamoDB         DynamoDBConfig
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int
}

type DynamoDBConfig struct {
	Endpoint  string
	Region    string
	TableName string
}

type RedisConfig struct {
	Endpoint string
	Password string
	DB       int
}

type OTPConfig struct {
	// Store selects where live OTP records are held: memory or redis.
	Store         string
	Expiry        time.Duration
	MaxAttempts   int
	SweepInterval time.Duration
}

type SessionConfig struct {
	TTL         time.Duration
	TokenLength int
}

type WhatsAppConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

type TestModeConfig struct {
	// Enabled gates the bypass phone/code pair. It must never be set in
	// production deployments.
	Enabled     bool
	BypassPhone string
	BypassCode  string
}

type RateLimitConfig struct {
	// VerifyOTP is a ulule/limiter formatted rate, e.g. "10-M".
	VerifyOTP string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "3001"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Backend:          getEnv("DB_BACKEND", BackendPostgres),
			FallbackToMemory: getEnvAsBool("DB_FALLBACK_MEMORY", false),
			Postgres: PostgresConfig{
				Host:     getEnv("DB_HOST", "localhost"),
				Port:     getEnvAsInt("DB_PORT", 5432),
				User:     getEnv("DB_USER", "postgres"),
				Password: getEnv("DB_PASSWORD", ""),
				Name:     getEnv("DB_NAME", "image_editor_app"),
				SSLMode:  getEnv("DB_SSLMODE", "disable"),
				MaxConns: getEnvAsInt("DB_MAX_CONNS", 10),
			},
			DynamoDB: DynamoDBConfig{
				Endpoint:  getEnv("DYNAMODB_ENDPOINT", ""),
				Region:    getEnv("DYNAMODB_REGION", "ap-south-1"),
				TableName: getEnv("DYNAMODB_TABLE_NAME", "AuthTable"),
			},
		},
		Redis: RedisConfig{
			Endpoint: getEnv("REDIS_ENDPOINT", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		OTP: OTPConfig{
			Store:         getEnv("OTP_STORE", OTPStoreMemory),
			Expiry:        getEnvAsDuration("OTP_EXPIRY", 10*time.Minute),
			MaxAttempts:   getEnvAsInt("OTP_MAX_ATTEMPTS", 5),
			SweepInterval: getEnvAsDuration("OTP_SWEEP_INTERVAL", 5*time.Minute),
		},
		Session: SessionConfig{
			TTL:         getEnvAsDuration("SESSION_TTL", 30*24*time.Hour),
			TokenLength: getEnvAsInt("SESSION_TOKEN_LENGTH", 32),
		},
		WhatsApp: WhatsAppConfig{
			AccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
			AuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
			FromNumber: getEnv("TWILIO_WHATSAPP_NUMBER", ""),
		},
		TestMode: TestModeConfig{
			Enabled:     getEnvAsBool("TEST_MODE", false),
			BypassPhone: getEnv("TEST_BYPASS_PHONE", "9167767684"),
			BypassCode:  getEnv("TEST_BYPASS_CODE", "2308"),
		},
		RateLimit: RateLimitConfig{
			VerifyOTP: getEnv("RATE_LIMIT_VERIFY_OTP", "10-M"),
		},
	}

	switch cfg.Database.Backend {
	case BackendPostgres, BackendDynamo, BackendMemory:
	default:
		return nil, fmt.Errorf("invalid DB_BACKEND %q: must be postgres, dynamo or memory", cfg.Database.Backend)
	}

	switch cfg.OTP.Store {
	case OTPStoreMemory, OTPStoreRedis:
	default:
		return nil, fmt.Errorf("invalid OTP_STORE %q: must be memory or redis", cfg.OTP.Store)
	}

	if cfg.Session.TokenLength < 32 {
		return nil, fmt.Errorf("SESSION_TOKEN_LENGTH must be at least 32 bytes")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
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
