package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all coordinator configuration.
type Config struct {
	Backend    BackendConfig    `toml:"backend" yaml:"backend"`
	Channel    ChannelConfig    `toml:"channel" yaml:"channel"`
	Processing ProcessingConfig `toml:"processing" yaml:"processing"`
	Observer   ObserverConfig   `toml:"observer" yaml:"observer"`
	Logging    LogConfig        `toml:"logging" yaml:"logging"`
	RateLimit  RateLimitConfig  `toml:"rate_limit" yaml:"rate_limit"`
}

// BackendConfig holds the processing backend connection settings.
type BackendConfig struct {
	URL               string   `envconfig:"BACKEND_URL" toml:"url" yaml:"url"`
	Timeout           Duration `envconfig:"BACKEND_TIMEOUT" toml:"timeout" yaml:"timeout"`
	Retries           int      `envconfig:"BACKEND_RETRIES" toml:"retries" yaml:"retries"`
	RequestsPerSecond float64  `envconfig:"BACKEND_RPS" toml:"requests_per_second" yaml:"requests_per_second"`
}

// ChannelConfig holds push channel timing.
type ChannelConfig struct {
	KeepaliveInterval Duration `envconfig:"CHANNEL_KEEPALIVE" toml:"keepalive_interval" yaml:"keepalive_interval"`
	ReconnectDelay    Duration `envconfig:"CHANNEL_RECONNECT_DELAY" toml:"reconnect_delay" yaml:"reconnect_delay"`
	HandshakeTimeout  Duration `envconfig:"CHANNEL_HANDSHAKE_TIMEOUT" toml:"handshake_timeout" yaml:"handshake_timeout"`
}

// ProcessingConfig holds job defaults.
type ProcessingConfig struct {
	StepSize int    `envconfig:"STEP_SIZE" toml:"step_size" yaml:"step_size"`
	Prompt   string `envconfig:"PROMPT" toml:"prompt" yaml:"prompt"`
	// Decision answers the startup checkpoint prompt: "ask", "resume" or "restart".
	Decision string `envconfig:"CHECKPOINT_DECISION" toml:"decision" yaml:"decision"`
}

// ObserverConfig holds the local observer API settings.
type ObserverConfig struct {
	Host         string   `envconfig:"OBSERVER_HOST" toml:"host" yaml:"host"`
	Port         string   `envconfig:"OBSERVER_PORT" toml:"port" yaml:"port"`
	AllowOrigins []string `envconfig:"CORS_ORIGINS" toml:"allow_origins" yaml:"allow_origins"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string   `envconfig:"LOG_LEVEL" toml:"level" yaml:"level"`
	Development bool     `envconfig:"LOG_DEV" toml:"development" yaml:"development"`
	OutputPaths []string `envconfig:"LOG_OUTPUT" toml:"output_paths" yaml:"output_paths"`
}

// RateLimitConfig holds observer API rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" toml:"requests_per_second" yaml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" toml:"burst" yaml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" toml:"enabled" yaml:"enabled"`
}

// Addr returns the observer listen address.
func (o ObserverConfig) Addr() string {
	return o.Host + ":" + o.Port
}

// Load loads configuration from environment variables over the defaults.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads defaults, then the optional file at path, then environment
// variables. Unset variables leave earlier layers untouched.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Backend: BackendConfig{
			URL:     "http://127.0.0.1:8765",
			Timeout: Duration{30 * time.Second},
			Retries: 3,
		},
		Channel: ChannelConfig{
			KeepaliveInterval: Duration{30 * time.Second},
			ReconnectDelay:    Duration{3 * time.Second},
			HandshakeTimeout:  Duration{10 * time.Second},
		},
		Processing: ProcessingConfig{
			StepSize: 10,
			Decision: "ask",
		},
		Observer: ObserverConfig{
			Host:         "127.0.0.1",
			Port:         "8780",
			AllowOrigins: []string{"*"},
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("unsupported config file extension %q", ext)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Duration is a time.Duration that decodes from strings such as "30s" in
// environment variables, TOML and YAML alike.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}
