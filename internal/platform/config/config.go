// Package config loads Maestro configuration from environment variables, an
// optional config file, and defaults, using github.com/spf13/viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every configuration section.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Events  EventsConfig  `mapstructure:"events"`
	Digest  DigestConfig  `mapstructure:"digest"`
	Spawn   SpawnConfig   `mapstructure:"spawn"`
	Logging LoggingConfig `mapstructure:"logging"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

// ServerConfig holds HTTP + WebSocket server configuration.
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"readTimeout"`  // seconds
	WriteTimeout int    `mapstructure:"writeTimeout"` // seconds
}

func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// StorageConfig configures the repository layer. The core only ships an
// in-memory implementation (persistence is an external collaborator per
// spec.md §1/§4.2); Driver is retained so an out-of-tree repository
// implementation has somewhere to read its selection from.
type StorageConfig struct {
	Driver string `mapstructure:"driver"` // "memory" (only supported value today)
}

// EventsConfig configures the event bus.
type EventsConfig struct {
	// HandlerTimeoutMS is loaded from configuration but not read by the event
	// bus; MemoryBus runs each handler to completion with no time bound.
	HandlerTimeoutMS int `mapstructure:"handlerTimeoutMs"`
}

// DigestConfig holds the Log Digest settings (spec.md §4.8). digest.New takes
// no configuration, so these values are loaded and defaulted here but the
// digest service does not apply them.
type DigestConfig struct {
	ClaudeProjectsRoot  string `mapstructure:"claudeProjectsRoot"`
	CodexSessionsRoot   string `mapstructure:"codexSessionsRoot"`
	PathCacheTTLSeconds int    `mapstructure:"pathCacheTtlSeconds"`
	DefaultMaxLength    int    `mapstructure:"defaultMaxLength"`
	WorkerConcurrency   int    `mapstructure:"workerConcurrency"`
}

func (d *DigestConfig) PathCacheTTL() time.Duration {
	return time.Duration(d.PathCacheTTLSeconds) * time.Second
}

// SpawnConfig configures the Spawn Orchestrator (spec.md §4.11).
type SpawnConfig struct {
	ManifestRoot string `mapstructure:"manifestRoot"` // e.g. ~/.maestro/sessions
	ServerURL    string `mapstructure:"serverUrl"`    // value of MAESTRO_SERVER_URL
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"outputPath"`
}

// TracingConfig configures the OTel tracer provider.
type TracingConfig struct {
	OTLPEndpoint string `mapstructure:"otlpEndpoint"` // empty = tracing disabled (no-op provider)
	ServiceName  string `mapstructure:"serviceName"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)

	v.SetDefault("storage.driver", "memory")

	v.SetDefault("events.handlerTimeoutMs", 5000)

	v.SetDefault("digest.claudeProjectsRoot", "~/.claude/projects")
	v.SetDefault("digest.codexSessionsRoot", "~/.codex/sessions")
	v.SetDefault("digest.pathCacheTtlSeconds", 60)
	v.SetDefault("digest.defaultMaxLength", 150)
	v.SetDefault("digest.workerConcurrency", 8)

	v.SetDefault("spawn.manifestRoot", "~/.maestro/sessions")
	v.SetDefault("spawn.serverUrl", "http://localhost:8080")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.outputPath", "stdout")

	v.SetDefault("tracing.otlpEndpoint", "")
	v.SetDefault("tracing.serviceName", "maestro")
}

// Load reads configuration from environment variables (prefix MAESTRO_), an
// optional ./config.yaml or /etc/maestro/config.yaml, and the defaults above.
func Load() (*Config, error) {
	return LoadWithPath("")
}

func LoadWithPath(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("MAESTRO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("logging.level", "MAESTRO_LOG_LEVEL")
	_ = v.BindEnv("tracing.otlpEndpoint", "MAESTRO_OTEL_ENDPOINT")
	_ = v.BindEnv("spawn.serverUrl", "MAESTRO_SERVER_URL")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/maestro/")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	var errs []string

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}

	if cfg.Storage.Driver != "memory" {
		errs = append(errs, "storage.driver must be \"memory\"")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, "logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errs = append(errs, "logging.format must be one of: json, text")
	}

	if cfg.Digest.PathCacheTTLSeconds <= 0 {
		errs = append(errs, "digest.pathCacheTtlSeconds must be positive")
	}
	if cfg.Digest.WorkerConcurrency <= 0 {
		errs = append(errs, "digest.workerConcurrency must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}
