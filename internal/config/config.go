// Package config loads the imgdedup server and CLI configuration from TOML.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/hupe1980/imgdedup/blobstore"
	"github.com/hupe1980/imgdedup/fingerprint"
	"github.com/hupe1980/imgdedup/persistence"
)

// EnvFile names the environment variable that points at the config file.
const EnvFile = "IMGDEDUP_CONFIG"

// Config represents the imgdedup configuration.
type Config struct {
	Server   Server   `toml:"server"`
	Storage  Storage  `toml:"storage"`
	Lock     Lock     `toml:"lock"`
	Retry    Retry    `toml:"retry"`
	Log      Log      `toml:"log"`
	Defaults Defaults `toml:"defaults"`
}

// Server configures the HTTP intake.
type Server struct {
	Listen            string   `toml:"listen"`
	MaxUploadBytes    int64    `toml:"max_upload_bytes"`
	MaxInFlight       int64    `toml:"max_in_flight"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	Burst             int      `toml:"burst"`
	MemoryLimitBytes  int64    `toml:"memory_limit_bytes"`
	Codec             string   `toml:"codec"`
	ReadTimeout       Duration `toml:"read_timeout"`
	WriteTimeout      Duration `toml:"write_timeout"`
	ShutdownTimeout   Duration `toml:"shutdown_timeout"`
}

// Storage selects and configures the blob backend.
type Storage struct {
	Backend     string `toml:"backend"` // local, memory, s3, minio, redis
	Root        string `toml:"root"`
	Bucket      string `toml:"bucket"`
	Prefix      string `toml:"prefix"`
	Region      string `toml:"region"`
	Endpoint    string `toml:"endpoint"`
	AccessKey   string `toml:"access_key"`
	SecretKey   string `toml:"secret_key"`
	UseSSL      bool   `toml:"use_ssl"`
	RedisAddr   string `toml:"redis_addr"`
	RedisDB     int    `toml:"redis_db"`
	Compression string `toml:"compression"` // none, lz4, zstd
}

// Lock selects the cross-process locker.
type Lock struct {
	Backend string   `toml:"backend"` // auto, local, file, redis, dynamodb
	Dir     string   `toml:"dir"`
	Table   string   `toml:"table"`
	TTL     Duration `toml:"ttl"`
}

// Retry configures backend retries.
type Retry struct {
	MaxRetries     int      `toml:"max_retries"`
	InitialBackoff Duration `toml:"initial_backoff"`
	MaxBackoff     Duration `toml:"max_backoff"`
	Jitter         float64  `toml:"jitter"`
}

// Log configures structured logging.
type Log struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // text, json
}

// Defaults are applied to uploads that leave a parameter unset.
type Defaults struct {
	HashSize    int    `toml:"hash_size"`
	Collection  string `toml:"collection"`
	MaxParallel int    `toml:"max_parallel"`
}

// Duration is a time.Duration written as a string such as "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration: a local store under
// ./data with in-process locking.
func Default() *Config {
	return &Config{
		Server: Server{
			Listen:           "127.0.0.1:8000",
			MaxUploadBytes:   64 << 20,
			MaxInFlight:      16,
			MemoryLimitBytes: 512 << 20,
			Codec:            "go-json",
			ReadTimeout:      Duration{30 * time.Second},
			WriteTimeout:     Duration{2 * time.Minute},
			ShutdownTimeout:  Duration{30 * time.Second},
		},
		Storage: Storage{
			Backend:     "local",
			Root:        "data",
			Prefix:      "imgdedup/",
			RedisAddr:   "localhost:6379",
			Compression: "zstd",
		},
		Lock: Lock{
			Backend: "auto",
			TTL:     Duration{30 * time.Second},
		},
		Retry: Retry{
			MaxRetries:     3,
			InitialBackoff: Duration{100 * time.Millisecond},
			MaxBackoff:     Duration{5 * time.Second},
			Jitter:         0.25,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		Defaults: Defaults{
			HashSize:   16,
			Collection: "faiss_index",
		},
	}
}

// Load reads path over the defaults. An empty path falls back to $IMGDEDUP_CONFIG
// and then to the defaults alone.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvFile)
	}
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes TOML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to path.
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Backend {
	case "local":
		if c.Storage.Root == "" {
			errs = append(errs, errors.New("storage.root is required for the local backend"))
		}
	case "memory", "redis":
	case "s3", "minio":
		if c.Storage.Bucket == "" {
			errs = append(errs, fmt.Errorf("storage.bucket is required for the %s backend", c.Storage.Backend))
		}
		if c.Storage.Backend == "minio" && c.Storage.Endpoint == "" {
			errs = append(errs, errors.New("storage.endpoint is required for the minio backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.backend %q", c.Storage.Backend))
	}
	if _, err := persistence.ParseCompression(c.Storage.Compression); err != nil {
		errs = append(errs, fmt.Errorf("storage.compression: %w", err))
	}

	switch c.Lock.Backend {
	case "auto", "local", "redis":
	case "file":
		if c.Lock.Dir == "" && c.Storage.Backend != "local" {
			errs = append(errs, errors.New("lock.dir is required for file locks without local storage"))
		}
	case "dynamodb":
		if c.Lock.Table == "" {
			errs = append(errs, errors.New("lock.table is required for the dynamodb backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown lock.backend %q", c.Lock.Backend))
	}

	if c.Retry.MaxRetries < 0 {
		errs = append(errs, errors.New("retry.max_retries must not be negative"))
	}
	if c.Retry.Jitter < 0 || c.Retry.Jitter > 1 {
		errs = append(errs, errors.New("retry.jitter must be within [0, 1]"))
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if f := c.Log.Format; f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("unknown log.format %q", f))
	}

	switch hs := c.Defaults.HashSize; {
	case hs < 2 || hs > fingerprint.MaxHashSize:
		errs = append(errs, fmt.Errorf("defaults.hash_size must be within [2, %d], got %d", fingerprint.MaxHashSize, hs))
	case hs*hs == fingerprint.ContentBits:
		errs = append(errs, fmt.Errorf("defaults.hash_size %d collides with the %d-bit content collection", hs, fingerprint.ContentBits))
	}
	if err := blobstore.ValidateName(c.Defaults.Collection); err != nil {
		errs = append(errs, fmt.Errorf("defaults.collection: %w", err))
	}

	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("server.max_upload_bytes must be positive"))
	}
	switch c.Server.Codec {
	case "", "json", "go-json":
	default:
		errs = append(errs, fmt.Errorf("unknown server.codec %q", c.Server.Codec))
	}

	return errors.Join(errs...)
}

// SlogLevel parses the log level.
func (l Log) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log.level %q", l.Level)
	}
}

// LockDir returns the directory for file locks.
func (c *Config) LockDir() string {
	if c.Lock.Dir != "" {
		return c.Lock.Dir
	}
	return c.Storage.Root
}
