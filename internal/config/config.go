package config

import (
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NewRelic NewRelicConfig
	Dispatch DispatchConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// DispatchConfig holds matching, pricing and escalation tunables.
type DispatchConfig struct {
	SearchRadiusKm            float64
	MaxRadiusKm               float64
	MaxCandidates             int
	MaxEscalationSteps        int
	MaxOffersBeforeEscalation int
	OfferTTL                  time.Duration
	SweepInterval             time.Duration
	FreshnessWindow           time.Duration
	SurgeRadiusKm             float64
	SurgeRecencyWindow        time.Duration
	PerKmRate                 decimal.Decimal
	PerMinuteRate             decimal.Decimal
	AvgSpeedKmh               float64
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "dispatch"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "dispatch-engine"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Dispatch: DispatchConfig{
			SearchRadiusKm:            getFloatEnv("DISPATCH_SEARCH_RADIUS_KM", 5.0),
			MaxRadiusKm:               getFloatEnv("DISPATCH_MAX_RADIUS_KM", 20.0),
			MaxCandidates:             getIntEnv("DISPATCH_MAX_CANDIDATES", 10),
			MaxEscalationSteps:        getIntEnv("DISPATCH_MAX_ESCALATION_STEPS", 5),
			MaxOffersBeforeEscalation: getIntEnv("DISPATCH_MAX_OFFERS_BEFORE_ESCALATION", 5),
			OfferTTL:                  getDurationEnv("DISPATCH_OFFER_TTL", 5*time.Minute),
			SweepInterval:             getDurationEnv("DISPATCH_SWEEP_INTERVAL", 30*time.Second),
			FreshnessWindow:           getDurationEnv("DISPATCH_FRESHNESS_WINDOW", 10*time.Minute),
			SurgeRadiusKm:             getFloatEnv("SURGE_RADIUS_KM", 5.0),
			SurgeRecencyWindow:        getDurationEnv("SURGE_RECENCY_WINDOW", 30*time.Minute),
			PerKmRate:                 getDecimalEnv("PRICING_PER_KM_RATE", "1.00"),
			PerMinuteRate:             getDecimalEnv("PRICING_PER_MINUTE_RATE", "0.10"),
			AvgSpeedKmh:               getFloatEnv("PRICING_AVG_SPEED_KMH", 20.0),
		},
	}
}

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

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
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

func getDecimalEnv(key, defaultValue string) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return decimal.RequireFromString(defaultValue)
}
