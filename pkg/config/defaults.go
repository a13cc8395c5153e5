package config

import (
	"strings"
	"time"

	"github.com/marmos91/wirecall/internal/bytesize"
	"github.com/marmos91/wirecall/pkg/wire"
)

// Default configuration values.
const (
	DefaultPort             = 7343
	DefaultIngressCapacity  = 2000
	DefaultWorkers          = 8
	DefaultOutgoingCapacity = 256
	DefaultReaperInterval   = 2 * time.Second
	DefaultShutdownTimeout  = 30 * time.Second
	DefaultHardQueryTimeout = 5 * time.Second
	DefaultDialTimeout      = 10 * time.Second
	DefaultMetricsPort      = 9343
)

// Default returns a fully populated configuration with default values.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets default values for any unspecified configuration fields.
// Zero values are replaced; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyClientDefaults(&cfg.Client)
	applyMetricsDefaults(&cfg.Metrics)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.BindAddress == "" {
		cfg.BindAddress = "0.0.0.0"
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.IngressCapacity == 0 {
		cfg.IngressCapacity = DefaultIngressCapacity
	}
	if cfg.Workers == 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.OutgoingCapacity == 0 {
		cfg.OutgoingCapacity = DefaultOutgoingCapacity
	}
	if cfg.ReaperInterval == 0 {
		cfg.ReaperInterval = DefaultReaperInterval
	}
	if cfg.MaxFrameSize == 0 {
		cfg.MaxFrameSize = bytesize.ByteSize(wire.DefaultMaxFrameSize)
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
}

func applyClientDefaults(cfg *ClientConfig) {
	if cfg.HardQueryTimeout == 0 {
		cfg.HardQueryTimeout = DefaultHardQueryTimeout
	}
	if cfg.OutgoingCapacity == 0 {
		cfg.OutgoingCapacity = DefaultOutgoingCapacity
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = DefaultMetricsPort
	}
}
