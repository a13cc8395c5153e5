// Package config loads and validates the wirecall configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (WIRECALL_*)
//  2. Configuration file (YAML)
//  3. Default values (lowest priority)
//
// Environment variables override only keys that the loaded configuration
// file sets. When no configuration file is found, the defaults are used as
// they are and environment variables are not consulted.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/marmos91/wirecall/internal/bytesize"
)

// Config represents the wirecall configuration.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Server configures the RPC server
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Client configures client-side call behavior
	Client ClientConfig `mapstructure:"client" yaml:"client"`

	// Metrics contains Prometheus metrics server configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// ServerConfig configures the RPC server.
type ServerConfig struct {
	// BindAddress is the IP address to bind to.
	// Empty string or "0.0.0.0" binds to all interfaces.
	BindAddress string `mapstructure:"bind_address" yaml:"bind_address"`

	// Port is the TCP port to listen on.
	Port int `mapstructure:"port" validate:"required,min=1,max=65535" yaml:"port"`

	// IngressCapacity is the capacity of the single ingress queue feeding
	// the worker pool. Queries arriving while it is full are answered with
	// an overload failure.
	IngressCapacity int `mapstructure:"ingress_capacity" validate:"required,gt=0" yaml:"ingress_capacity"`

	// Workers is the number of goroutines invoking handlers.
	Workers int `mapstructure:"workers" validate:"required,gt=0" yaml:"workers"`

	// OutgoingCapacity is the per-connection response queue capacity.
	OutgoingCapacity int `mapstructure:"outgoing_capacity" validate:"required,gt=0" yaml:"outgoing_capacity"`

	// ReaperInterval is how often dead client managers are swept.
	ReaperInterval time.Duration `mapstructure:"reaper_interval" validate:"required,gt=0" yaml:"reaper_interval"`

	// MaxFrameSize caps the declared size of inbound frames.
	// Accepts human-readable values like "16Mi" or "8MB".
	MaxFrameSize bytesize.ByteSize `mapstructure:"max_frame_size" yaml:"max_frame_size"`

	// ShutdownTimeout is the maximum duration to wait for active connections
	// to complete during graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`
}

// ClientConfig configures client-side call behavior.
type ClientConfig struct {
	// HardQueryTimeout is the maximum time a caller waits for a response
	// before a timeout is synthesized locally.
	HardQueryTimeout time.Duration `mapstructure:"hard_query_timeout" validate:"required,gt=0" yaml:"hard_query_timeout"`

	// OutgoingCapacity is the client outgoing query queue capacity.
	OutgoingCapacity int `mapstructure:"outgoing_capacity" validate:"required,gt=0" yaml:"outgoing_capacity"`

	// DialTimeout bounds connection establishment.
	DialTimeout time.Duration `mapstructure:"dial_timeout" validate:"required,gt=0" yaml:"dial_timeout"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
// When Enabled is false, no metrics are collected (zero overhead).
type MetricsConfig struct {
	// Enabled controls whether metrics collection and HTTP server are enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the metrics endpoint
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// Load reads configuration from configPath (or the default search path when
// empty), layers environment variables on top of the keys the file sets,
// applies defaults and validates the result. When no file is found it
// returns Default() without reading environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	// If no config file was found, use defaults
	if !configFileFound {
		return Default(), nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration against its struct tags.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return err
	}
	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the WIRECALL_ prefix and underscores.
	// Example: WIRECALL_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("WIRECALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(DefaultConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the config file, reporting whether one was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// configDecodeHooks composes the decode hooks for config unmarshaling.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

// byteSizeDecodeHook converts config file values into bytesize.ByteSize.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			// Parse human-readable string like "16Mi", "8MB"
			return bytesize.Parse(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook converts config file values into time.Duration.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			// Parse duration string like "30s", "5m", "1h"
			return time.ParseDuration(v)
		case int:
			// Assume nanoseconds for raw integers
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// DefaultConfigDir returns the default configuration directory:
// $XDG_CONFIG_HOME/wirecall, falling back to ~/.config/wirecall.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "wirecall")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "wirecall")
}
