package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds runtime configuration sourced from env vars and an optional .env file.
type Config struct {
	Port           string
	DatabaseDriver string
	DatabaseURL    string
	SQLitePath     string
	StorageTimeout time.Duration

	JWTSecret   string
	JWTIssuer   string
	JWTTTL      time.Duration
	CORSOrigins []string

	RabbitMQURL   string
	EventExchange string

	RedisURL                  string
	RedisRateLimitPrefix      string
	RequestRateLimitPerMinute int
}

// Load reads configuration from the environment, falling back to a .env file
// in dir when present, and performs minimal validation.
func Load(dir string) (Config, error) {
	v := viper.New()
	v.AddConfigPath(dir)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("PORT", "8080")
	v.SetDefault("DATABASE_DRIVER", DriverPostgres)
	v.SetDefault("SQLITE_PATH", "cashjet.db")
	v.SetDefault("STORAGE_TIMEOUT", "5s")
	v.SetDefault("JWT_ISSUER", "cashjet-auth")
	v.SetDefault("JWT_TTL_MINUTES", 60)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("EVENT_EXCHANGE", "cashjet.ledger")
	v.SetDefault("REDIS_RATE_LIMIT_PREFIX", "cashjet:rate_limit")
	v.SetDefault("REQUEST_RATE_LIMIT_PER_MINUTE", 30)

	for _, key := range []string{"DATABASE_URL", "JWT_SECRET", "RABBITMQ_URL", "REDIS_URL"} {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			zap.L().Warn("failed to read config file; using environment values", zap.Error(err))
		}
	}

	cfg := Config{
		Port:           fallback(v.GetString("PORT"), "8080"),
		DatabaseDriver: strings.ToLower(fallback(v.GetString("DATABASE_DRIVER"), DriverPostgres)),
		DatabaseURL:    strings.TrimSpace(v.GetString("DATABASE_URL")),
		SQLitePath:     fallback(v.GetString("SQLITE_PATH"), "cashjet.db"),
		StorageTimeout: v.GetDuration("STORAGE_TIMEOUT"),

		JWTSecret:   strings.TrimSpace(v.GetString("JWT_SECRET")),
		JWTIssuer:   fallback(v.GetString("JWT_ISSUER"), "cashjet-auth"),
		CORSOrigins: parseCSV(v.GetString("CORS_ALLOWED_ORIGINS")),

		RabbitMQURL:   strings.TrimSpace(v.GetString("RABBITMQ_URL")),
		EventExchange: fallback(v.GetString("EVENT_EXCHANGE"), "cashjet.ledger"),

		RedisURL:                  strings.TrimSpace(v.GetString("REDIS_URL")),
		RedisRateLimitPrefix:      fallback(v.GetString("REDIS_RATE_LIMIT_PREFIX"), "cashjet:rate_limit"),
		RequestRateLimitPerMinute: v.GetInt("REQUEST_RATE_LIMIT_PER_MINUTE"),
	}

	if ttlMinutes := v.GetInt("JWT_TTL_MINUTES"); ttlMinutes > 0 {
		cfg.JWTTTL = time.Duration(ttlMinutes) * time.Minute
	} else {
		cfg.JWTTTL = 60 * time.Minute
	}
	if cfg.StorageTimeout <= 0 {
		cfg.StorageTimeout = 5 * time.Second
	}
	if cfg.RequestRateLimitPerMinute <= 0 {
		cfg.RequestRateLimitPerMinute = 30
	}

	switch cfg.DatabaseDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, errors.New("DATABASE_URL is required")
		}
	case DriverSQLite:
	default:
		return Config{}, fmt.Errorf("unsupported DATABASE_DRIVER %q", cfg.DatabaseDriver)
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
