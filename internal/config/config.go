// Package config loads and validates the process configuration from the
// environment.
package config

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/env"
)

type Config struct {
	Primary    Primary          `koanf:"primary"`
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Redis      RedisConfig      `koanf:"redis"`
	Wire       WireConfig       `koanf:"wire"`
	Lock       LockConfig       `koanf:"lock"`
	Logger     LoggerConfig     `koanf:"logger"`
	Worker     WorkerConfig     `koanf:"worker"`
	Analytics  AnalyticsConfig  `koanf:"analytics"`
	Connectors ConnectorsConfig `koanf:"connectors"`
}

type ConnectorsConfig struct {
	AtlaspayBaseURL  string `koanf:"atlaspay_base_url" validate:"required"`
	ZenithpayBaseURL string `koanf:"zenithpay_base_url" validate:"required"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port         string        `koanf:"port" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"required"`
}

type DatabaseConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"required"`
	User            string        `koanf:"user" validate:"required"`
	Password        string        `koanf:"password" validate:"required"`
	Name            string        `koanf:"name" validate:"required"`
	SSLMode         string        `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time" validate:"required"`
}

type RedisConfig struct {
	Addr     string        `koanf:"addr" validate:"required"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	TokenTTL time.Duration `koanf:"token_ttl"`
}

type WireConfig struct {
	Timeout         time.Duration `koanf:"timeout" validate:"required"`
	BreakerMaxFails uint32        `koanf:"breaker_max_fails"`
	BreakerInterval time.Duration `koanf:"breaker_interval"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"`
}

type LockConfig struct {
	TTL        time.Duration `koanf:"ttl"`
	RetryDelay time.Duration `koanf:"retry_delay"`
	MaxRetries int           `koanf:"max_retries"`
}

type WorkerConfig struct {
	Interval  time.Duration `koanf:"interval" validate:"required"`
	BatchSize int           `koanf:"batch_size" validate:"required"`
}

const (
	AnalyticsSourcePostgres = "postgres"
	AnalyticsSourceCombined = "combined"
)

// AnalyticsConfig selects where metric queries run. The default source is the
// primary postgres database; "combined" additionally queries a secondary
// database and compares the results, serving the primary.
type AnalyticsConfig struct {
	Source       string          `koanf:"source" validate:"omitempty,oneof=postgres combined"`
	QueryTimeout time.Duration   `koanf:"query_timeout"`
	Secondary    *DatabaseConfig `koanf:"secondary"`
}

type LoggerConfig struct {
	Level string `koanf:"level"`
}

func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	err := k.Load(env.Provider("ROUTER_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "ROUTER_")),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := &Config{}

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	validate := validator.New()

	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	if mainConfig.Analytics.Source == AnalyticsSourceCombined && mainConfig.Analytics.Secondary == nil {
		err = errors.New("analytics source \"combined\" requires a secondary database")
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	return mainConfig, nil
}
