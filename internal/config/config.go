// Package config loads the service configuration from YAML, .env files
// and HC_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/evcraddock/house-calendar/internal/feed"
	"github.com/evcraddock/house-calendar/internal/house"
)

const (
	DefaultListen   = "127.0.0.1:8080"
	DefaultSchedule = "*/15 * * * *"
	DefaultQueue    = "calendar.synced"
	DefaultCacheTTL = 5 * time.Minute
)

// FeedConfig locates the booking feed.
type FeedConfig struct {
	URL     string        `yaml:"url" validate:"omitempty,url"`
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`
}

// SyncConfig controls periodic feed sync.
type SyncConfig struct {
	// Schedule is a standard 5-field cron expression. Empty disables the
	// periodic trigger; on-demand runs still work.
	Schedule string `yaml:"schedule" validate:"omitempty,cron"`
	// Workers is how many houses merge concurrently.
	Workers int `yaml:"workers" validate:"gte=0,lte=64"`
	// OnStart runs one sync when the server starts.
	OnStart bool `yaml:"on_start"`
}

// HouseDefaults applies to houses created by sync or import.
type HouseDefaults struct {
	Capacity int `yaml:"capacity" validate:"gte=1"`
}

// RedisConfig enables the availability cache when Addr is set.
type RedisConfig struct {
	Addr     string        `yaml:"addr,omitempty" validate:"omitempty,hostname_port"`
	Password string        `yaml:"password,omitempty"`
	DB       int           `yaml:"db,omitempty" validate:"gte=0"`
	TTL      time.Duration `yaml:"ttl" validate:"gte=0"`
}

// AMQPConfig enables sync notifications when URL is set.
type AMQPConfig struct {
	URL   string `yaml:"url,omitempty" validate:"omitempty,url"`
	Queue string `yaml:"queue" validate:"required"`
}

// Config is the top-level application configuration.
type Config struct {
	DBPath  string        `yaml:"db_path,omitempty"`
	Listen  string        `yaml:"listen" validate:"required,hostname_port"`
	DevMode bool          `yaml:"dev_mode"`
	Feed    FeedConfig    `yaml:"feed"`
	Sync    SyncConfig    `yaml:"sync"`
	Houses  HouseDefaults `yaml:"houses"`
	Redis   RedisConfig   `yaml:"redis"`
	AMQP    AMQPConfig    `yaml:"amqp"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Listen: DefaultListen,
		Feed: FeedConfig{
			URL:     feed.DefaultURL,
			Timeout: feed.DefaultTimeout,
		},
		Sync: SyncConfig{
			Schedule: DefaultSchedule,
			Workers:  1,
		},
		Houses: HouseDefaults{Capacity: house.DefaultCapacity},
		Redis:  RedisConfig{TTL: DefaultCacheTTL},
		AMQP:   AMQPConfig{Queue: DefaultQueue},
	}
}

// Normalize fills zero values with defaults.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.Feed.Timeout <= 0 {
		c.Feed.Timeout = feed.DefaultTimeout
	}
	if c.Sync.Workers <= 0 {
		c.Sync.Workers = 1
	}
	if c.Houses.Capacity <= 0 {
		c.Houses.Capacity = house.DefaultCapacity
	}
	if c.Redis.TTL <= 0 {
		c.Redis.TTL = DefaultCacheTTL
	}
	if c.AMQP.Queue == "" {
		c.AMQP.Queue = DefaultQueue
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("cron", func(fl validator.FieldLevel) bool {
		_, err := cron.ParseStandard(fl.Field().String())
		return err == nil
	}); err != nil {
		panic(err)
	}
	return v
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s fails %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// DefaultPath returns ~/.config/hc/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "hc", "config.yaml"), nil
}

// Load reads the YAML file at path. A missing file yields the defaults
// and is written out so it can be edited.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg := Default()
		if err := Save(path, cfg); err != nil {
			return cfg, fmt.Errorf("writing default config: %w", err)
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes cfg to path atomically with 0600 permissions.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".hc-config-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing config: %w", err)
	}
	return nil
}

// LoadDotEnv loads variables from .env files into the process
// environment without overriding variables already set. Missing files
// are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides fields from HC_* environment variables.
func (c *Config) ApplyEnv() error {
	str := map[string]*string{
		"HC_DB":             &c.DBPath,
		"HC_LISTEN":         &c.Listen,
		"HC_FEED_URL":       &c.Feed.URL,
		"HC_SYNC_SCHEDULE":  &c.Sync.Schedule,
		"HC_REDIS_ADDR":     &c.Redis.Addr,
		"HC_REDIS_PASSWORD": &c.Redis.Password,
		"HC_AMQP_URL":       &c.AMQP.URL,
		"HC_AMQP_QUEUE":     &c.AMQP.Queue,
	}
	for key, dst := range str {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	if v := os.Getenv("HC_DEV_MODE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("HC_DEV_MODE: %w", err)
		}
		c.DevMode = b
	}
	if v := os.Getenv("HC_SYNC_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HC_SYNC_WORKERS: %w", err)
		}
		c.Sync.Workers = n
	}
	if v := os.Getenv("HC_FEED_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("HC_FEED_TIMEOUT: %w", err)
		}
		c.Feed.Timeout = d
	}
	return nil
}
