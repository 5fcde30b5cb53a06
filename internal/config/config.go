// Package config loads service configuration from fuelops.yaml, .env and
// FUELOPS_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns host:port for http.Server.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type RateLimitConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Limit   int           `mapstructure:"limit"`
	Window  time.Duration `mapstructure:"window"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type WorkerConfig struct {
	GapReplayInterval time.Duration `mapstructure:"gap_replay_interval"`
	GapBatchSize      int           `mapstructure:"gap_batch_size"`
	GapMaxRetries     int           `mapstructure:"gap_max_retries"`
	OutboxInterval    time.Duration `mapstructure:"outbox_interval"`
	OutboxBatchSize   int           `mapstructure:"outbox_batch_size"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
	MetricsAddr       string        `mapstructure:"metrics_addr"`
}

type Config struct {
	Env            string          `mapstructure:"env"`
	LogLevel       string          `mapstructure:"log_level"`
	MetricsPath    string          `mapstructure:"metrics_path"`
	IdempotencyTTL time.Duration   `mapstructure:"idempotency_ttl"`
	HTTP           HTTPConfig      `mapstructure:"http"`
	DB             DBConfig        `mapstructure:"db"`
	Auth           AuthConfig      `mapstructure:"auth"`
	Redis          RedisConfig     `mapstructure:"redis"`
	RateLimit      RateLimitConfig `mapstructure:"rate_limit"`
	Kafka          KafkaConfig     `mapstructure:"kafka"`
	Worker         WorkerConfig    `mapstructure:"worker"`
}

// IsDevelopment reports a local environment.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	var errs []error
	if c.DB.DSN == "" {
		errs = append(errs, errors.New("db.dsn is required (FUELOPS_DB_DSN)"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required (FUELOPS_AUTH_JWT_SECRET)"))
	}
	if c.RateLimit.Enabled && c.RateLimit.Limit <= 0 {
		errs = append(errs, errors.New("rate_limit.limit must be positive"))
	}
	return errors.Join(errs...)
}

// Load reads configuration. dir is searched for fuelops.yaml; empty means the working directory.
func Load(dir string) (*Config, error) {
	// a missing .env is normal outside development
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("FUELOPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if dir == "" {
		dir = "."
	}
	v.SetConfigName("fuelops")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// setDefaults also registers every key, which AutomaticEnv needs for Unmarshal to see env overrides.
func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("metrics_path", "/metrics")
	v.SetDefault("idempotency_ttl", "24h")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", "15s")
	v.SetDefault("http.write_timeout", "15s")
	v.SetDefault("http.idle_timeout", "60s")
	v.SetDefault("http.shutdown_timeout", "30s")

	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_conns", 25)
	v.SetDefault("db.min_conns", 2)
	v.SetDefault("db.max_conn_lifetime", "1h")
	v.SetDefault("db.max_conn_idle_time", "30m")
	v.SetDefault("db.auto_migrate", true)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.limit", 30)
	v.SetDefault("rate_limit.window", "1m")

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "fuelops.consumption-records")

	v.SetDefault("worker.gap_replay_interval", "30s")
	v.SetDefault("worker.gap_batch_size", 50)
	v.SetDefault("worker.gap_max_retries", 5)
	v.SetDefault("worker.outbox_interval", "5s")
	v.SetDefault("worker.outbox_batch_size", 100)
	v.SetDefault("worker.cleanup_interval", "1h")
	v.SetDefault("worker.metrics_addr", ":9091")
}
