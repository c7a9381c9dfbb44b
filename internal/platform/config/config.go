// Package config loads server configuration.
//
// Values are resolved in three layers: built-in defaults, then an optional YAML
// file (--config flag or SMARTGN_CONFIG), then environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment names the deployment type.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// DefaultJWTSecret is only acceptable outside production.
const DefaultJWTSecret = "smartgn-secret-key"

// Config is the complete server configuration.
type Config struct {
	Environment Environment `yaml:"environment"`
	LogLevel    string      `yaml:"log_level"`
	Server      Server      `yaml:"server"`
	Auth        Auth        `yaml:"auth"`
	Database    Database    `yaml:"database"`
	Redis       Redis       `yaml:"redis"`
	Kafka       Kafka       `yaml:"kafka"`
	Uploads     Uploads     `yaml:"uploads"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `yaml:"addr"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	TrustedProxies  []string      `yaml:"trusted_proxies"`
}

// Auth configures token issuance and login lockout.
type Auth struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	Issuer     string        `yaml:"issuer"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
	AdminToken string        `yaml:"admin_token"`
	Lockout    Lockout       `yaml:"lockout"`
}

// Lockout bounds failed logins per email and client. Zero Threshold disables it.
type Lockout struct {
	Threshold int           `yaml:"threshold"`
	Window    time.Duration `yaml:"window"`
	LockFor   time.Duration `yaml:"lock_for"`
}

// Database configures the Postgres pool. An empty URL selects in-memory stores.
type Database struct {
	URL             string        `yaml:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// Redis configures the revocation list backend. An empty URL selects the in-memory list.
type Redis struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Kafka configures the outbox publisher. Empty Brokers disables publishing.
type Kafka struct {
	Brokers      string        `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	Acks         string        `yaml:"acks"`
	Retries      int           `yaml:"retries"`
	PollInterval time.Duration `yaml:"poll_interval"`
	BatchSize    int           `yaml:"batch_size"`
}

// Uploads configures local certificate and document storage.
type Uploads struct {
	Dir      string `yaml:"dir"`
	MaxBytes int64  `yaml:"max_bytes"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Environment: Development,
		LogLevel:    "info",
		Server: Server{
			Addr:            ":8080",
			RequestTimeout:  30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Auth: Auth{
			JWTSecret: DefaultJWTSecret,
			Issuer:    "smartgn",
			TokenTTL:  7 * 24 * time.Hour,
			Lockout: Lockout{
				Threshold: 5,
				Window:    15 * time.Minute,
				LockFor:   15 * time.Minute,
			},
		},
		Database: Database{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: Redis{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: Kafka{
			Topic:        "smartgn.request.events",
			Acks:         "all",
			Retries:      3,
			PollInterval: 100 * time.Millisecond,
			BatchSize:    100,
		},
		Uploads: Uploads{
			Dir:      "./uploads",
			MaxBytes: 10 << 20,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (or
// SMARTGN_CONFIG when path is empty), and the process environment.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path == "" {
		path, _ = lookup("SMARTGN_CONFIG")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("SMARTGN_ADDR", &c.Server.Addr)
	str("JWT_SECRET", &c.Auth.JWTSecret)
	str("ADMIN_TOKEN", &c.Auth.AdminToken)
	str("DATABASE_URL", &c.Database.URL)
	str("REDIS_URL", &c.Redis.URL)
	str("KAFKA_BROKERS", &c.Kafka.Brokers)
	str("KAFKA_TOPIC", &c.Kafka.Topic)
	str("UPLOAD_DIR", &c.Uploads.Dir)
	str("LOG_LEVEL", &c.LogLevel)

	if v, ok := lookup("ENVIRONMENT"); ok && v != "" {
		c.Environment = Environment(strings.ToLower(v))
	}
	if v, ok := lookup("TOKEN_TTL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TOKEN_TTL: %w", err)
		}
		c.Auth.TokenTTL = d
	}
	if v, ok := lookup("LOGIN_LOCKOUT_THRESHOLD"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("LOGIN_LOCKOUT_THRESHOLD: %w", err)
		}
		c.Auth.Lockout.Threshold = n
	}
	if v, ok := lookup("UPLOAD_MAX_BYTES"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("UPLOAD_MAX_BYTES: %w", err)
		}
		c.Uploads.MaxBytes = n
	}
	return nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	if c.Environment == Production && c.Auth.JWTSecret == DefaultJWTSecret {
		errs = append(errs, errors.New("auth.jwt_secret must be set in production"))
	}
	if l := c.Auth.Lockout; l.Threshold > 0 && (l.Window <= 0 || l.LockFor <= 0) {
		errs = append(errs, errors.New("auth.lockout window and lock_for must be positive when threshold is set"))
	}
	if c.Uploads.Dir == "" {
		errs = append(errs, errors.New("uploads.dir is required"))
	}
	if c.Kafka.Brokers != "" && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka.topic is required when brokers are set"))
	}
	return errors.Join(errs...)
}

// BrokerList splits the comma separated broker string.
func (k Kafka) BrokerList() []string {
	var out []string
	for _, b := range strings.Split(k.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
