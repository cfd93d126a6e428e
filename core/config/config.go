package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// GatewayConfig holds settings for the USSD gateway callback listener.
type GatewayConfig struct {
	Listen string `yaml:"listen" envconfig:"GATEWAY_LISTEN"`
	Port   int    `yaml:"port" envconfig:"GATEWAY_PORT"`
	// MaxPayloadRunes caps the rendered reply length; longer prompts are
	// truncated with an explicit indicator.
	MaxPayloadRunes int `yaml:"max_payload_runes" envconfig:"GATEWAY_MAX_PAYLOAD_RUNES"`
	// DependencyTimeoutMS bounds session store and listing repository calls
	// made while serving one callback.
	DependencyTimeoutMS int `yaml:"dependency_timeout_ms" envconfig:"GATEWAY_DEPENDENCY_TIMEOUT_MS"`
}

// SessionConfig controls session persistence and conversation limits.
type SessionConfig struct {
	// StoreDriver selects the session store backend: memory, postgres or redis.
	StoreDriver        string `yaml:"store_driver" envconfig:"SESSION_STORE_DRIVER"`
	IdleTimeoutSeconds int    `yaml:"idle_timeout_seconds" envconfig:"SESSION_IDLE_TIMEOUT_SECONDS"`
	// MaxRetries is the number of invalid inputs tolerated on a single node
	// before the session is abandoned.
	MaxRetries    int    `yaml:"max_retries" envconfig:"SESSION_MAX_RETRIES"`
	SweepSchedule string `yaml:"sweep_schedule" envconfig:"SESSION_SWEEP_SCHEDULE"`
	RedisAddr     string `yaml:"redis_addr" envconfig:"SESSION_REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" envconfig:"SESSION_REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" envconfig:"SESSION_REDIS_DB"`
}

// MenuConfig points at the declarative menu tree definition.
// An empty path selects the embedded default tree.
type MenuConfig struct {
	Path string `yaml:"path" envconfig:"MENU_PATH"`
}

// DatabaseConfig holds Postgres connection settings for the durable stores.
type DatabaseConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Stacks      string `yaml:"stacks"`
	Dir         string `yaml:"dir"`
	File        string `yaml:"file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

// RateLimitConfig holds settings for per-caller rate limiting on the
// gateway callback endpoint.
type RateLimitConfig struct {
	IntervalMS int `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
}

const (
	// StoreMemory selects the in-memory session store.
	StoreMemory = "memory"
	// StorePostgres selects the Postgres-backed session store.
	StorePostgres = "postgres"
	// StoreRedis selects the Redis-backed session store.
	StoreRedis = "redis"
)

// Config aggregates the service configuration.
type Config struct {
	Gateway   GatewayConfig   `yaml:"gateway"`
	Session   SessionConfig   `yaml:"session"`
	Menu      MenuConfig      `yaml:"menu"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if strings.TrimSpace(cfg.Gateway.Listen) == "" {
		cfg.Gateway.Listen = "0.0.0.0"
	}
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = 8080
	}
	if cfg.Gateway.Port < 0 {
		return fmt.Errorf("gateway.port must be > 0")
	}
	if cfg.Gateway.MaxPayloadRunes == 0 {
		cfg.Gateway.MaxPayloadRunes = 400
	}
	if cfg.Gateway.MaxPayloadRunes < 16 {
		return fmt.Errorf("gateway.max_payload_runes must be >= 16")
	}
	if cfg.Gateway.DependencyTimeoutMS == 0 {
		cfg.Gateway.DependencyTimeoutMS = 3000
	}
	if cfg.Gateway.DependencyTimeoutMS < 0 {
		return fmt.Errorf("gateway.dependency_timeout_ms must be >= 0")
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.Session.StoreDriver))
	if driver == "" {
		driver = StoreMemory
	}
	switch driver {
	case StoreMemory:
	case StorePostgres:
		if strings.TrimSpace(cfg.Database.Host) == "" {
			return fmt.Errorf("database.host is required when session.store_driver is 'postgres'")
		}
	case StoreRedis:
		if strings.TrimSpace(cfg.Session.RedisAddr) == "" {
			return fmt.Errorf("session.redis_addr is required when session.store_driver is 'redis'")
		}
	default:
		return fmt.Errorf("invalid session.store_driver %q; allowed: memory, postgres, redis", cfg.Session.StoreDriver)
	}
	cfg.Session.StoreDriver = driver

	if cfg.Session.IdleTimeoutSeconds == 0 {
		cfg.Session.IdleTimeoutSeconds = 120
	}
	if cfg.Session.IdleTimeoutSeconds < 0 {
		return fmt.Errorf("session.idle_timeout_seconds must be > 0")
	}
	if cfg.Session.MaxRetries == 0 {
		cfg.Session.MaxRetries = 3
	}
	if cfg.Session.MaxRetries < 0 {
		return fmt.Errorf("session.max_retries must be > 0")
	}
	if strings.TrimSpace(cfg.Session.SweepSchedule) == "" {
		cfg.Session.SweepSchedule = "@every 1m"
	}

	if cfg.RateLimit.IntervalMS < 0 {
		return fmt.Errorf("rate_limit.interval_ms must be >= 0")
	}

	return nil
}
