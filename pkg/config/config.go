package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the process-wide configuration. It is loaded exactly once at
// startup and passed explicitly to every component that needs it; nothing in
// the codebase reads the environment at call time.
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Cleanup  CleanupConfig
}

// AppConfig configures the HTTP server surface.
type AppConfig struct {
	Name        string
	Port        int
	Environment string
	CORSOrigins string
}

// DatabaseConfig configures the PostgreSQL connection pool.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN renders the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// RedisConfig configures the Redis client used by the rate limiter.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (r RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// AuthConfig holds every secret and knob the IAM module needs. Access and
// refresh tokens use distinct signing secrets so neither can be substituted
// for the other.
type AuthConfig struct {
	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	Issuer             string
	BcryptCost         int

	// Login abuse protection (fixed window per email+IP).
	LoginMaxAttempts int
	LoginWindow      time.Duration
}

// CleanupConfig configures the expired-session sweep.
type CleanupConfig struct {
	// Schedule is a cron expression understood by robfig/cron.
	Schedule string
}

// Load reads the full configuration from the environment. Missing secrets are
// a startup error, not a runtime one.
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "FlagForge API"),
			Port:        getEnvInt("PORT", 8080),
			Environment: getEnv("APP_ENV", "development"),
			CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Name:            getEnv("DB_NAME", "flagforge"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			AccessTokenSecret:  os.Getenv("ACCESS_TOKEN_SECRET"),
			RefreshTokenSecret: os.Getenv("REFRESH_TOKEN_SECRET"),
			AccessTokenTTL:     getEnvDuration("JWT_ACCESS_EXPIRES", 15*time.Minute),
			RefreshTokenTTL:    getEnvDuration("JWT_REFRESH_EXPIRES", 7*24*time.Hour),
			Issuer:             getEnv("JWT_ISSUER", "flagforge"),
			BcryptCost:         getEnvInt("BCRYPT_COST", 10),
			LoginMaxAttempts:   getEnvInt("LOGIN_MAX_ATTEMPTS", 10),
			LoginWindow:        getEnvDuration("LOGIN_WINDOW", time.Minute),
		},
		Cleanup: CleanupConfig{
			Schedule: getEnv("SESSION_CLEANUP_SCHEDULE", "@every 1h"),
		},
	}

	if cfg.Auth.AccessTokenSecret == "" {
		return nil, fmt.Errorf("ACCESS_TOKEN_SECRET missing")
	}
	if cfg.Auth.RefreshTokenSecret == "" {
		return nil, fmt.Errorf("REFRESH_TOKEN_SECRET missing")
	}
	if cfg.Auth.AccessTokenSecret == cfg.Auth.RefreshTokenSecret {
		return nil, fmt.Errorf("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func getEnvStringSlice(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
