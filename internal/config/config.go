// Package config loads the lattice process configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/lattice/internal/runtime"
	"github.com/aretw0/lattice/pkg/persistence/middleware"
)

const (
	DriverMemory = "memory"
	DriverRedis  = "redis"

	// EnvStateKey supplies state.encryption_key when the file leaves it empty.
	EnvStateKey = "LATTICE_STATE_KEY"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the whole process configuration.
type Config struct {
	LogLevel   string         `mapstructure:"log_level" yaml:"log_level"`
	ScriptsDir string         `mapstructure:"scripts_dir" yaml:"scripts_dir"`
	Fold       bool           `mapstructure:"fold" yaml:"fold"`
	Quotas     runtime.Quotas `mapstructure:"quotas" yaml:"quotas"`
	State      StateConfig    `mapstructure:"state" yaml:"state"`
	HTTP       HTTPConfig     `mapstructure:"http" yaml:"http"`
	// MaxInputSize bounds every string of trigger inputs, in bytes.
	MaxInputSize int `mapstructure:"max_input_size" yaml:"max_input_size"`
}

type StateConfig struct {
	Driver string      `mapstructure:"driver" yaml:"driver"`
	Redis  RedisConfig `mapstructure:"redis" yaml:"redis"`
	// EncryptionKey is a base64 AES-256 key. When set every state value is encrypted at rest.
	EncryptionKey string   `mapstructure:"encryption_key" yaml:"encryption_key"`
	FallbackKeys  []string `mapstructure:"fallback_keys" yaml:"fallback_keys"`
	// Redact lists regular expressions; matching state keys are masked before they are stored.
	Redact []string `mapstructure:"redact" yaml:"redact"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr" yaml:"addr"`
	Password string        `mapstructure:"password" yaml:"password"`
	DB       int           `mapstructure:"db" yaml:"db"`
	Prefix   string        `mapstructure:"prefix" yaml:"prefix"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		LogLevel: "info",
		Fold:     true,
		Quotas:   runtime.DefaultQuotas(),
		State: StateConfig{
			Driver: DriverMemory,
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "lattice:state:",
			},
		},
		HTTP:         HTTPConfig{Addr: ":8080"},
		MaxInputSize: 4096,
	}
}

// Load reads a YAML or JSON file over the defaults. An empty path returns Default().
// Relative scripts_dir values are resolved against the file's directory.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		applyEnv(&cfg)
		return cfg, cfg.Validate()
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml", ".json":
	default:
		return cfg, fmt.Errorf("%w: unsupported config extension %q", ErrInvalidConfig, ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err = Parse(data)
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	if cfg.ScriptsDir != "" && !filepath.IsAbs(cfg.ScriptsDir) {
		cfg.ScriptsDir = filepath.Join(filepath.Dir(path), cfg.ScriptsDir)
	}
	applyEnv(&cfg)
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) {
	if cfg.State.EncryptionKey == "" {
		cfg.State.EncryptionKey = os.Getenv(EnvStateKey)
	}
}

// Parse decodes YAML (and therefore JSON) over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &cfg,
	})
	if err != nil {
		return cfg, err
	}
	if err := decoder.Decode(raw); err != nil {
		return Default(), fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return Default(), err
	}
	cfg.Quotas = cfg.Quotas.Normalize()
	return cfg, nil
}

// Validate checks the values Load cannot check structurally.
func (c Config) Validate() error {
	switch c.State.Driver {
	case DriverMemory:
	case DriverRedis:
		if c.State.Redis.Addr == "" {
			return fmt.Errorf("%w: state.redis.addr is required", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown state driver %q", ErrInvalidConfig, c.State.Driver)
	}
	if c.State.Redis.TTL < 0 {
		return fmt.Errorf("%w: state.redis.ttl is negative", ErrInvalidConfig)
	}
	if c.MaxInputSize < 0 {
		return fmt.Errorf("%w: max_input_size is negative", ErrInvalidConfig)
	}
	for _, k := range append([]string{c.State.EncryptionKey}, c.State.FallbackKeys...) {
		if k == "" {
			continue
		}
		if _, err := middleware.DecodeKey(k); err != nil {
			return fmt.Errorf("%w: state encryption key: %v", ErrInvalidConfig, err)
		}
	}
	if len(c.State.FallbackKeys) > 0 && c.State.EncryptionKey == "" {
		return fmt.Errorf("%w: state.fallback_keys need state.encryption_key", ErrInvalidConfig)
	}
	if _, err := middleware.NewPIIMiddleware(c.State.Redact); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.Quotas.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
