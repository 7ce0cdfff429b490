package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/senyabanana/organ-match-service/internal/matching"

	"github.com/spf13/viper"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"

	LockLocal = "local"
	LockRedis = "redis"
)

// Config - структура для хранения конфигураций приложения
type Config struct {
	ServerAddress  string        `mapstructure:"SERVER_ADDRESS"`
	PostgresConn   string        `mapstructure:"POSTGRES_CONN"`
	PostgresUser   string        `mapstructure:"POSTGRES_USERNAME"`
	PostgresPass   string        `mapstructure:"POSTGRES_PASSWORD"`
	PostgresHost   string        `mapstructure:"POSTGRES_HOST"`
	PostgresPort   string        `mapstructure:"POSTGRES_PORT"`
	PostgresDB     string        `mapstructure:"POSTGRES_DATABASE"`
	MigrationURL   string        `mapstructure:"MIGRATION_URL"`
	StorageBackend string        `mapstructure:"STORAGE_BACKEND"`
	RedisAddr      string        `mapstructure:"REDIS_ADDR"`
	RedisPassword  string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB        int           `mapstructure:"REDIS_DB"`
	LockBackend    string        `mapstructure:"LOCK_BACKEND"`
	LockKey        string        `mapstructure:"LOCK_KEY"`
	LockTTL        time.Duration `mapstructure:"LOCK_TTL"`
	EventsChannel  string        `mapstructure:"EVENTS_CHANNEL"`
	MatchInterval  time.Duration `mapstructure:"MATCH_INTERVAL"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	LogFormat      string        `mapstructure:"LOG_FORMAT"`

	Weights matching.Weights `mapstructure:",squash"`
}

// LoadConfig загружает конфигурацию из файла app.env в каталоге path.
// Переменные окружения имеют приоритет над файлом, отсутствующий файл не является ошибкой.
func LoadConfig(path string) (cfg Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AutomaticEnv()

	setDefaults(v)

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}
	if err = v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, cfg.Validate()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_ADDRESS", "0.0.0.0:8080")
	v.SetDefault("POSTGRES_CONN", "")
	v.SetDefault("POSTGRES_USERNAME", "")
	v.SetDefault("POSTGRES_PASSWORD", "")
	v.SetDefault("POSTGRES_HOST", "")
	v.SetDefault("POSTGRES_PORT", "5432")
	v.SetDefault("POSTGRES_DATABASE", "")
	v.SetDefault("MIGRATION_URL", "file://migrations")
	v.SetDefault("STORAGE_BACKEND", StoragePostgres)
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("LOCK_BACKEND", LockLocal)
	v.SetDefault("LOCK_KEY", "organ-match:pass-lock")
	v.SetDefault("LOCK_TTL", 5*time.Minute)
	v.SetDefault("EVENTS_CHANNEL", "organ-match:events")
	v.SetDefault("MATCH_INTERVAL", time.Duration(0))
	v.SetDefault("REQUEST_TIMEOUT", 5*time.Second)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	w := matching.DefaultWeights()
	v.SetDefault("WEIGHT_BLOOD_EXACT", w.BloodExact)
	v.SetDefault("WEIGHT_BLOOD_COMPATIBLE", w.BloodCompatible)
	v.SetDefault("WEIGHT_SAME_CITY", w.SameCity)
	v.SetDefault("WEIGHT_SAME_REGION", w.SameRegion)
	v.SetDefault("WEIGHT_DISTANT", w.Distant)
	v.SetDefault("WEIGHT_URGENCY_CRITICAL", w.UrgencyCritical)
	v.SetDefault("WEIGHT_URGENCY_HIGH", w.UrgencyHigh)
	v.SetDefault("WEIGHT_URGENCY_MEDIUM", w.UrgencyMedium)
	v.SetDefault("WEIGHT_URGENCY_LOW", w.UrgencyLow)
	v.SetDefault("WEIGHT_EMERGENCY", w.Emergency)
}

// Validate проверяет согласованность конфигурации.
func (c Config) Validate() error {
	switch c.StorageBackend {
	case StoragePostgres:
		if c.PostgresConn == "" {
			return fmt.Errorf("POSTGRES_CONN is required for the %s storage backend", StoragePostgres)
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}

	switch c.LockBackend {
	case LockLocal:
	case LockRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the %s lock backend", LockRedis)
		}
		if c.LockTTL <= 0 {
			return fmt.Errorf("LOCK_TTL must be positive")
		}
	default:
		return fmt.Errorf("unknown LOCK_BACKEND %q", c.LockBackend)
	}

	if c.MatchInterval < 0 {
		return fmt.Errorf("MATCH_INTERVAL must not be negative")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	if err := c.Weights.Validate(); err != nil {
		return fmt.Errorf("invalid scoring weights: %w", err)
	}
	return nil
}
