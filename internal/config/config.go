package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Stream     StreamConfig     `mapstructure:"stream"`
	Reminders  ReminderConfig   `mapstructure:"reminders"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Email      EmailConfig      `mapstructure:"email"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	Issuer      string `mapstructure:"issuer"`
	ExpiryHours int    `mapstructure:"expiry_hours"`
}

// RedisConfig enables cross-instance fan-out when URL is set.
type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	Channel      string        `mapstructure:"channel"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type StreamConfig struct {
	PingInterval time.Duration `mapstructure:"ping_interval"`
	QueueSize    int           `mapstructure:"queue_size"`
}

type ReminderConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool   `mapstructure:"prometheus_enabled"`
	MetricsPath       string `mapstructure:"metrics_path"`
	Namespace         string `mapstructure:"namespace"`
}

type LogConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
}

// secrets are read from CRM_* variables and win over the file.
type secrets struct {
	JWTSecret        string `envconfig:"JWT_SECRET"`
	DatabaseDSN      string `envconfig:"DATABASE_DSN"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD"`
	RedisURL         string `envconfig:"REDIS_URL"`
	EmailPassword    string `envconfig:"EMAIL_PASSWORD"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.max_header_bytes", 1<<20)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "crm")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "crm-api")
	v.SetDefault("jwt.expiry_hours", 24)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.channel", "notifications")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 500*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)

	v.SetDefault("stream.ping_interval", 30*time.Second)
	v.SetDefault("stream.queue_size", 100)

	v.SetDefault("reminders.poll_interval", time.Minute)
	v.SetDefault("reminders.batch_size", 100)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 20.0)
	v.SetDefault("rate_limit.burst", 40)

	v.SetDefault("cors.allowed_origins", []string{"*"})

	v.SetDefault("email.enabled", false)
	v.SetDefault("email.host", "")
	v.SetDefault("email.port", 587)
	v.SetDefault("email.username", "")
	v.SetDefault("email.password", "")
	v.SetDefault("email.from", "")

	v.SetDefault("monitoring.prometheus_enabled", true)
	v.SetDefault("monitoring.metrics_path", "/metrics")
	v.SetDefault("monitoring.namespace", "crm")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.console", false)
}

// LoadConfig reads config.yaml from the usual locations, or path when set,
// then applies SECTION_KEY environment overrides and CRM_* secrets.
// A missing config file is not an error when no explicit path is given.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/app/config")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var s secrets
	if err := envconfig.Process("crm", &s); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	cfg.applySecrets(s)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applySecrets(s secrets) {
	if s.JWTSecret != "" {
		c.JWT.Secret = s.JWTSecret
	}
	if s.DatabaseDSN != "" {
		c.Database.DSN = s.DatabaseDSN
	}
	if s.DatabasePassword != "" {
		c.Database.Password = s.DatabasePassword
	}
	if s.RedisURL != "" {
		c.Redis.URL = s.RedisURL
	}
	if s.EmailPassword != "" {
		c.Email.Password = s.EmailPassword
	}
}

func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt secret is required")
	}
	switch c.Database.Driver {
	case "postgres":
	case "sqlite":
		if c.Database.DSN == "" {
			return errors.New("sqlite driver requires database.dsn")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	if c.Stream.PingInterval <= 0 {
		return errors.New("stream ping interval must be positive")
	}
	if c.Stream.QueueSize <= 0 {
		c.Stream.QueueSize = 100
	}
	if c.Reminders.BatchSize <= 0 {
		c.Reminders.BatchSize = 100
	}
	if c.Email.Enabled && (c.Email.Host == "" || c.Email.From == "") {
		return errors.New("email host and from are required when email is enabled")
	}
	return nil
}

// ConnectionString returns the DSN handed to the database driver.
func (d DatabaseConfig) ConnectionString() string {
	if d.DSN != "" {
		return d.DSN
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

func (j JWTConfig) Expiry() time.Duration {
	return time.Duration(j.ExpiryHours) * time.Hour
}

func (c ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
