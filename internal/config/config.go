package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	defaultDSN = "host=localhost user=postgres password=postgres dbname=creche port=5432 sslmode=disable"
)

type Config struct {
	HTTPPort       string        `yaml:"httpPort" envconfig:"HTTP_PORT"`
	DatabaseDriver string        `yaml:"databaseDriver" envconfig:"DATABASE_DRIVER"`
	DatabaseDSN    string        `yaml:"databaseDSN" envconfig:"DATABASE_DSN"`
	JWTSecret      string        `yaml:"jwtSecret" envconfig:"JWT_SECRET"`
	JWTTTL         time.Duration `yaml:"jwtTTL" envconfig:"JWT_TTL"`
	CORSOrigins    string        `yaml:"corsAllowedOrigins" envconfig:"CORS_ALLOWED_ORIGINS"`
	RedisAddr      string        `yaml:"redisAddr" envconfig:"REDIS_ADDR"`
	RedisPassword  string        `yaml:"redisPassword" envconfig:"REDIS_PASSWORD"`
	AuthRateLimit  int           `yaml:"authRateLimit" envconfig:"AUTH_RATE_LIMIT"`
	AuthRateWindow time.Duration `yaml:"authRateWindow" envconfig:"AUTH_RATE_WINDOW"`
	LogLevel       string        `yaml:"logLevel" envconfig:"LOG_LEVEL"`
}

func defaults() *Config {
	return &Config{
		HTTPPort:       "8080",
		DatabaseDriver: DriverPostgres,
		DatabaseDSN:    defaultDSN,
		JWTTTL:         7 * 24 * time.Hour,
		CORSOrigins:    "http://localhost:8081",
		AuthRateLimit:  20,
		AuthRateWindow: time.Minute,
		LogLevel:       "info",
	}
}

// Load builds the config from defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("parse env vars: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("config: JWT_SECRET must be at least 32 characters")
	}
	if c.JWTTTL <= 0 {
		return errors.New("config: JWT_TTL must be positive")
	}
	switch c.DatabaseDriver {
	case DriverPostgres:
		if c.DatabaseDSN == "" {
			return errors.New("config: DATABASE_DSN is required for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("config: unknown DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	if c.RedisAddr != "" && (c.AuthRateLimit <= 0 || c.AuthRateWindow <= 0) {
		return errors.New("config: AUTH_RATE_LIMIT and AUTH_RATE_WINDOW must be positive")
	}
	return nil
}

// Warnings lists settings that are fine for development only.
func (c *Config) Warnings() []string {
	var out []string
	if c.DatabaseDriver == DriverPostgres && c.DatabaseDSN == defaultDSN {
		out = append(out, "DATABASE_DSN uses the default value, set your own Postgres connection for production")
	}
	if c.DatabaseDriver == DriverMemory {
		out = append(out, "DATABASE_DRIVER=memory keeps all data in process memory")
	}
	if c.RedisAddr == "" {
		out = append(out, "REDIS_ADDR not set: token revocation is per-process and auth rate limiting is off")
	}
	return out
}

func (c *Config) AllowedOrigins() string {
	parts := strings.Split(c.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ",")
}
