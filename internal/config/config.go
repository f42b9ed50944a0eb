package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/vedran77/courier/pkg/log"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Bus       BusConfig       `mapstructure:"bus"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	History   HistoryConfig   `mapstructure:"history"`
	Log       log.Config      `mapstructure:"log"`
}

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// AllowedOrigins gates CORS and websocket origins; empty allows any.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

type RedisConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	URL               string        `mapstructure:"url"`
	PresenceTTL       time.Duration `mapstructure:"presence_ttl"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type BusConfig struct {
	Capacity int `mapstructure:"capacity"`
}

type SchedulerConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	BatchSize int           `mapstructure:"batch_size"`
}

type HistoryConfig struct {
	Limit int `mapstructure:"limit"`
}

// env names kept flat for compose files
var envBindings = map[string]string{
	"server.port":              "SERVER_PORT",
	"server.shutdown_timeout":  "SERVER_SHUTDOWN_TIMEOUT",
	"server.allowed_origins":   "ALLOWED_ORIGINS",
	"database.host":            "DB_HOST",
	"database.port":            "DB_PORT",
	"database.user":            "DB_USER",
	"database.password":        "DB_PASSWORD",
	"database.name":            "DB_NAME",
	"database.sslmode":         "DB_SSLMODE",
	"database.max_conns":       "DB_MAX_CONNS",
	"redis.enabled":            "REDIS_ENABLED",
	"redis.url":                "REDIS_URL",
	"redis.presence_ttl":       "REDIS_PRESENCE_TTL",
	"redis.heartbeat_interval": "REDIS_HEARTBEAT_INTERVAL",
	"auth.jwt_secret":          "JWT_SECRET",
	"auth.token_ttl":           "JWT_TTL",
	"bus.capacity":             "BUS_CAPACITY",
	"scheduler.interval":       "SCHEDULER_INTERVAL",
	"scheduler.batch_size":     "SCHEDULER_BATCH_SIZE",
	"history.limit":            "HISTORY_LIMIT",
	"log.level":                "LOG_LEVEL",
	"log.pretty":               "LOG_PRETTY",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.allowed_origins", []string{})

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "courier")
	v.SetDefault("database.password", "courier_dev_password")
	v.SetDefault("database.name", "courier")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.presence_ttl", 90*time.Second)
	v.SetDefault("redis.heartbeat_interval", 30*time.Second)

	v.SetDefault("auth.jwt_secret", "dev-secret-change-me")
	v.SetDefault("auth.token_ttl", 24*time.Hour)

	v.SetDefault("bus.capacity", 100)
	v.SetDefault("scheduler.interval", time.Second)
	v.SetDefault("scheduler.batch_size", 20)
	v.SetDefault("history.limit", 50)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("log.service_name", "courier")
}

// Load reads .env, an optional config.yaml and the environment, in increasing priority.
func Load() (*Config, error) {
	// a missing .env is the normal case outside development
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("config: auth.jwt_secret must be set")
	}
	if c.Bus.Capacity <= 0 {
		return fmt.Errorf("config: bus.capacity must be positive, got %d", c.Bus.Capacity)
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("config: scheduler.interval must be positive, got %s", c.Scheduler.Interval)
	}
	if c.Scheduler.BatchSize <= 0 {
		return fmt.Errorf("config: scheduler.batch_size must be positive, got %d", c.Scheduler.BatchSize)
	}
	if c.History.Limit <= 0 {
		c.History.Limit = 50
	}
	return nil
}

// DSN returns the postgres connection URL.
func (c DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     c.Name,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}
