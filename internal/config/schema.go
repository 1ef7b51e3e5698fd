package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Keys shared by the config file, ROUTESCOPE_* environment variables and flags
const (
	KeyConfig        = "config"
	KeyAddress       = "address"
	KeyLogLevel      = "log_level"
	KeyService       = "service"
	KeyCommunity     = "community"
	KeyPort          = "port"
	KeyVersion       = "version"
	KeyTimeout       = "timeout"
	KeyRetries       = "retries"
	KeyBatchSize     = "batch_size"
	KeyMaxConcurrent = "max_concurrent"
	KeyFormat        = "format"
	KeyInterval      = "interval"
	KeyMetricsAddr   = "metrics_addr"
	KeyVerifyHosts   = "verify_hosts"
	KeyHostFilter    = "host_filter"
	KeyLogFile       = "log_file"
)

// Config is the complete routescope configuration
type Config struct {
	// Address is the IPv4 address of the first router to query
	Address  string `mapstructure:"address" yaml:"address,omitempty"`
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	// Service runs discovery periodically as a background service
	Service bool `mapstructure:"service" yaml:"service"`

	Community string   `mapstructure:"community" yaml:"community"`
	Port      int      `mapstructure:"port" yaml:"port"`
	Version   string   `mapstructure:"version" yaml:"version"`
	Timeout   Duration `mapstructure:"timeout" yaml:"timeout"`
	Retries   int      `mapstructure:"retries" yaml:"retries"`
	BatchSize int      `mapstructure:"batch_size" yaml:"batch_size"`

	// MaxConcurrent bounds router assemblies in flight during one run
	MaxConcurrent int    `mapstructure:"max_concurrent" yaml:"max_concurrent"`
	Format        string `mapstructure:"format" yaml:"format"`
	// Interval is the re-discovery period in service mode
	Interval    Duration `mapstructure:"interval" yaml:"interval"`
	MetricsAddr string   `mapstructure:"metrics_addr" yaml:"metrics_addr,omitempty"`
	VerifyHosts bool     `mapstructure:"verify_hosts" yaml:"verify_hosts"`
	// HostFilter selects which ARP records become hosts: pc-mac or any
	HostFilter string `mapstructure:"host_filter" yaml:"host_filter"`
	LogFile    string `mapstructure:"log_file" yaml:"log_file,omitempty"`
}

// Duration wraps time.Duration so the config file holds "2s" rather than nanoseconds
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}
