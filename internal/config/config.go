// Package config loads runtime configuration from a yaml file, a .env file and the environment
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix prefixes environment overrides, e.g. GOTUBE_POOL__SIZE=16
const DefaultEnvPrefix = "GOTUBE_"

// Pool kinds
const (
	PoolFixed   = "fixed"
	PoolDynamic = "dynamic"
)

// Config is the root configuration
type Config struct {
	Engine  EngineConfig  `koanf:"engine"`
	Pool    PoolConfig    `koanf:"pool"`
	Log     LogConfig     `koanf:"log"`
	Tracing TracingConfig `koanf:"tracing"`
	Server  ServerConfig  `koanf:"server"`
}

// EngineConfig configures the fiber engine
type EngineConfig struct {
	ID             string        `koanf:"id"`
	Container      string        `koanf:"container"` // container name exposed to stages
	SubmitAttempts int           `koanf:"submit_attempts"`
	Backoff        BackoffConfig `koanf:"backoff"`
}

// BackoffConfig configures the wait between submissions to a full pool
type BackoffConfig struct {
	Kind     string        `koanf:"kind"` // exponential, fixed, linear
	Base     time.Duration `koanf:"base"` // duration string like "1ms"
	MaxDelay time.Duration `koanf:"max_delay"`
}

// PoolConfig configures the worker pool backing the engine
type PoolConfig struct {
	Kind          string        `koanf:"kind"` // fixed, dynamic
	Size          int           `koanf:"size"` // fixed pools
	MinWorkers    int           `koanf:"min_workers"`
	MaxWorkers    int           `koanf:"max_workers"`
	QueueSize     int           `koanf:"queue_size"`
	SubmitTimeout time.Duration `koanf:"submit_timeout"`
}

// LogConfig configures the slog logger
type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json, text
}

// TracingConfig configures span export
type TracingConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
	PrettyPrint bool   `koanf:"pretty_print"`
}

// ServerConfig configures the HTTP example front end
type ServerConfig struct {
	Addr           string        `koanf:"addr"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// Default returns the configuration used for keys absent from every source
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Container:      "gotube",
			SubmitAttempts: 3,
			Backoff: BackoffConfig{
				Kind:     "exponential",
				Base:     time.Millisecond,
				MaxDelay: 20 * time.Millisecond,
			},
		},
		Pool: PoolConfig{
			Kind:          PoolFixed,
			Size:          8,
			MinWorkers:    2,
			MaxWorkers:    16,
			QueueSize:     256,
			SubmitTimeout: time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			ServiceName: "gotube",
		},
		Server: ServerConfig{
			Addr:           ":8080",
			RequestTimeout: 10 * time.Second,
		},
	}
}

// LoadOptions selects the configuration sources
type LoadOptions struct {
	// Path is the yaml file (optional, a missing file is ignored)
	Path string

	// DotEnv lists .env files loaded into the process environment first (optional, missing files are ignored)
	DotEnv []string

	// EnvPrefix selects the environment overrides (defaults to DefaultEnvPrefix)
	EnvPrefix string
}

// Load layers defaults, the yaml file and environment variables, in that order
func Load(opts LoadOptions) (*Config, error) {
	for _, name := range opts.DotEnv {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
	}

	k := koanf.New(".")

	if opts.Path != "" {
		if err := k.Load(file.Provider(opts.Path), yaml.Parser()); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("load %s: %w", opts.Path, err)
			}
		}
	}

	prefix := opts.EnvPrefix
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	if err := k.Load(env.Provider(prefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, prefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that the builders rely on
func (c *Config) Validate() error {
	switch c.Pool.Kind {
	case PoolFixed:
		if c.Pool.Size <= 0 {
			return fmt.Errorf("pool.size must be positive, got %d", c.Pool.Size)
		}
	case PoolDynamic:
		if c.Pool.MinWorkers <= 0 || c.Pool.MaxWorkers < c.Pool.MinWorkers {
			return fmt.Errorf("pool workers must satisfy 0 < min <= max, got %d..%d",
				c.Pool.MinWorkers, c.Pool.MaxWorkers)
		}
	default:
		return fmt.Errorf("unknown pool.kind %q", c.Pool.Kind)
	}
	if c.Pool.QueueSize <= 0 {
		return fmt.Errorf("pool.queue_size must be positive, got %d", c.Pool.QueueSize)
	}
	if c.Engine.SubmitAttempts < 0 {
		return fmt.Errorf("engine.submit_attempts must not be negative, got %d", c.Engine.SubmitAttempts)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown log.format %q", c.Log.Format)
	}
	return nil
}

// NewLogger builds the slog logger described by c, writing to w (stdout when nil)
func (c LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return slog.New(slog.NewJSONHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log.level %q: %w", s, err)
	}
	return level, nil
}
