package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"chronicles/gateway/middleware"
	"chronicles/observability/logging"
	telemetry "chronicles/observability/otel"
)

// Duration wraps time.Duration to support YAML unmarshalling.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses human readable duration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be string")
	}
	raw := value.Value
	if raw == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// Config captures runtime configuration for issuanced.
type Config struct {
	Environment     string   `yaml:"environment" env:"CHRONICLES_ENV"`
	ListenAddress   string   `yaml:"listen" env:"CHRONICLES_LISTEN"`
	DataDir         string   `yaml:"dataDir" env:"CHRONICLES_DATA_DIR"`
	Deployment      string   `yaml:"deployment" env:"CHRONICLES_DEPLOYMENT"`
	ShutdownTimeout Duration `yaml:"shutdownTimeout"`

	Auth          middleware.AuthConfig           `yaml:"auth"`
	RateLimits    map[string]middleware.RateLimit `yaml:"rateLimits"`
	CORS          middleware.CORSConfig           `yaml:"cors"`
	Observability middleware.ObservabilityConfig  `yaml:"observability"`
	Telemetry     telemetry.Config                `yaml:"telemetry"`
	Logging       LoggingConfig                   `yaml:"logging"`
	Broker        BrokerConfig                    `yaml:"broker"`
	Index         IndexConfig                     `yaml:"index"`
	Stream        StreamConfig                    `yaml:"stream"`
}

// LoggingConfig selects level and optional file rotation.
type LoggingConfig struct {
	Level string               `yaml:"level" env:"CHRONICLES_LOG_LEVEL"`
	File  *logging.FileOptions `yaml:"file"`
}

// BrokerConfig enables NATS fan-out of committed events. An empty URL
// disables the broker.
type BrokerConfig struct {
	URL           string `yaml:"url" env:"CHRONICLES_NATS_URL"`
	SubjectPrefix string `yaml:"subjectPrefix"`
}

// IndexConfig configures the mint projection database. Driver is "sqlite"
// or "postgres"; an empty DSN disables the projection.
type IndexConfig struct {
	Driver string `yaml:"driver" env:"CHRONICLES_INDEX_DRIVER"`
	DSN    string `yaml:"dsn" env:"CHRONICLES_INDEX_DSN"`
}

// StreamConfig bounds the websocket event stream.
type StreamConfig struct {
	Buffer       int      `yaml:"buffer"`
	WriteTimeout Duration `yaml:"writeTimeout"`
}

// Load reads configuration from the supplied path and applies environment
// overrides on top.
func Load(path string) (Config, error) {
	cfg := Config{}
	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()
	dec := yaml.NewDecoder(file)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	applyDefaults(&cfg)
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":7090"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "/var/data/issuanced"
	}
	if cfg.ShutdownTimeout.Duration == 0 {
		cfg.ShutdownTimeout.Duration = 5 * time.Second
	}
	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = "issuanced"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.Observability.ServiceName
	}
	if cfg.Telemetry.Environment == "" {
		cfg.Telemetry.Environment = cfg.Environment
	}
	if cfg.Broker.SubjectPrefix == "" {
		cfg.Broker.SubjectPrefix = "chronicles"
	}
	if cfg.Index.Driver == "" {
		cfg.Index.Driver = "sqlite"
	}
	if cfg.Stream.Buffer <= 0 {
		cfg.Stream.Buffer = 64
	}
	if cfg.Stream.WriteTimeout.Duration == 0 {
		cfg.Stream.WriteTimeout.Duration = 10 * time.Second
	}
}

func validate(cfg Config) error {
	if strings.TrimSpace(cfg.Deployment) == "" {
		return fmt.Errorf("deployment file must be configured")
	}
	if cfg.Auth.Enabled && strings.TrimSpace(cfg.Auth.HMACSecret) == "" {
		return fmt.Errorf("auth enabled without hmacSecret")
	}
	switch cfg.Index.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported index driver %q", cfg.Index.Driver)
	}
	for name, limit := range cfg.RateLimits {
		if limit.RatePerSecond <= 0 || limit.Burst <= 0 {
			return fmt.Errorf("rate limit %q requires positive ratePerSecond and burst", name)
		}
	}
	return nil
}
