package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Cache        CacheConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines token and password parameters.
//
// JWTSecret is the base64 encoding of the HMAC signing key.
type AuthConfig struct {
	JWTSecret       string
	JWTExpirationMs int64
	JWTLeewayMs     int64
	BcryptCost      int

	ManagerUsername string
	ManagerEmail    string
	ManagerPassword string
}

// CacheConfig controls Redis-backed read caches.
type CacheConfig struct {
	DashboardTTLSeconds int
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	expirationMs, err := strconv.ParseInt(getEnv("AUTH_JWT_EXPIRATION_MS", "86400000"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid AUTH_JWT_EXPIRATION_MS: %w", err)
	}
	leewayMs, err := strconv.ParseInt(getEnv("AUTH_JWT_LEEWAY_MS", "0"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid AUTH_JWT_LEEWAY_MS: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "deposit-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:       os.Getenv("AUTH_JWT_SECRET"),
			JWTExpirationMs: expirationMs,
			JWTLeewayMs:     leewayMs,
			BcryptCost:      getEnvAsInt("AUTH_BCRYPT_COST", 12),
			ManagerUsername: os.Getenv("AUTH_MANAGER_USERNAME"),
			ManagerEmail:    os.Getenv("AUTH_MANAGER_EMAIL"),
			ManagerPassword: os.Getenv("AUTH_MANAGER_PASSWORD"),
		},
		Cache: CacheConfig{
			DashboardTTLSeconds: getEnvAsInt("DASHBOARD_CACHE_TTL_SECONDS", 60),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// maxDurationMs is the largest millisecond count a time.Duration can hold.
const maxDurationMs = math.MaxInt64 / int64(time.Millisecond)

// Validate reports every invalid setting, naming the environment variable.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.App.Port) == "" {
		errs = append(errs, errors.New("APP_PORT is required"))
	}

	switch secret := strings.TrimSpace(c.Auth.JWTSecret); {
	case secret == "":
		errs = append(errs, errors.New("AUTH_JWT_SECRET is required"))
	default:
		if _, err := base64.StdEncoding.DecodeString(secret); err != nil {
			errs = append(errs, fmt.Errorf("AUTH_JWT_SECRET must be base64: %w", err))
		}
	}
	switch {
	case c.Auth.JWTExpirationMs <= 0:
		errs = append(errs, errors.New("AUTH_JWT_EXPIRATION_MS must be positive"))
	case c.Auth.JWTExpirationMs > maxDurationMs:
		errs = append(errs, fmt.Errorf("AUTH_JWT_EXPIRATION_MS must not exceed %d", maxDurationMs))
	}
	switch {
	case c.Auth.JWTLeewayMs < 0:
		errs = append(errs, errors.New("AUTH_JWT_LEEWAY_MS must not be negative"))
	case c.Auth.JWTLeewayMs > maxDurationMs:
		errs = append(errs, fmt.Errorf("AUTH_JWT_LEEWAY_MS must not exceed %d", maxDurationMs))
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		errs = append(errs, errors.New("AUTH_BCRYPT_COST must be between 4 and 31"))
	}
	if c.Auth.ManagerUsername != "" && c.Auth.ManagerPassword == "" {
		errs = append(errs, errors.New("AUTH_MANAGER_PASSWORD is required when AUTH_MANAGER_USERNAME is set"))
	}
	if c.Cache.DashboardTTLSeconds < 0 {
		errs = append(errs, errors.New("DASHBOARD_CACHE_TTL_SECONDS must not be negative"))
	}

	return errors.Join(errs...)
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Expiration is the token expiry window.
func (a AuthConfig) Expiration() time.Duration {
	return time.Duration(a.JWTExpirationMs) * time.Millisecond
}

// Leeway is the clock-skew tolerance applied to token expiry.
func (a AuthConfig) Leeway() time.Duration {
	return time.Duration(a.JWTLeewayMs) * time.Millisecond
}

// BootstrapManager reports whether a manager account should be seeded at start-up.
func (a AuthConfig) BootstrapManager() bool {
	return a.ManagerUsername != ""
}

// DashboardTTL is how long a customer dashboard stays cached.
func (c CacheConfig) DashboardTTL() time.Duration {
	return time.Duration(c.DashboardTTLSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
