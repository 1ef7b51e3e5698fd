// Package config provides configuration management for routescope.
//
// Values are merged, lowest to highest precedence, from built-in defaults,
// the config file, ROUTESCOPE_* environment variables and command-line flags.
//
// Config file locations (priority order):
//  1. $ROUTESCOPE_CONFIG
//  2. ./routescope.yaml
//  3. $XDG_CONFIG_HOME/routescope/config.yaml
//  4. ~/.config/routescope/config.yaml
//  5. /etc/routescope/config.yaml
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"routescope/internal/snmp"
)

// EnvPrefix prefixes every environment variable read by Load
const EnvPrefix = "ROUTESCOPE"

var (
	// ErrInvalidAddress is returned for a seed that is not a usable IPv4 address
	ErrInvalidAddress = errors.New("invalid IPv4 address")

	formats     = []string{"text", "json", "yaml", "yml"}
	hostFilters = []string{"pc-mac", "any"}
	versions    = []string{string(snmp.Version1), string(snmp.Version2c)}
)

// Load merges defaults, the config file, environment and any flags already
// bound to v. The file is the one named by the "config" key when set,
// otherwise the first found by FindConfigPath. Returns the file used, if any.
func Load(v *viper.Viper) (*Config, string, error) {
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	path := v.GetString(KeyConfig)
	if path == "" {
		path = FindConfigPath()
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, path, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	hook := mapstructure.ComposeDecodeHookFunc(
		durationHook,
		mapstructure.StringToSliceHookFunc(","),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(hook)); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, path, nil
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns the settings used when nothing else is configured
func DefaultConfig() *Config {
	return &Config{
		LogLevel:      "error",
		Community:     "public",
		Port:          161,
		Version:       string(snmp.Version2c),
		Timeout:       Duration(2 * time.Second),
		Retries:       0,
		BatchSize:     snmp.DefaultBatchSize,
		MaxConcurrent: 16,
		Format:        "text",
		Interval:      Duration(10 * time.Minute),
		HostFilter:    "pc-mac",
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault(KeyAddress, d.Address)
	v.SetDefault(KeyLogLevel, d.LogLevel)
	v.SetDefault(KeyService, d.Service)
	v.SetDefault(KeyCommunity, d.Community)
	v.SetDefault(KeyPort, d.Port)
	v.SetDefault(KeyVersion, d.Version)
	v.SetDefault(KeyTimeout, d.Timeout.String())
	v.SetDefault(KeyRetries, d.Retries)
	v.SetDefault(KeyBatchSize, d.BatchSize)
	v.SetDefault(KeyMaxConcurrent, d.MaxConcurrent)
	v.SetDefault(KeyFormat, d.Format)
	v.SetDefault(KeyInterval, d.Interval.String())
	v.SetDefault(KeyMetricsAddr, d.MetricsAddr)
	v.SetDefault(KeyVerifyHosts, d.VerifyHosts)
	v.SetDefault(KeyHostFilter, d.HostFilter)
	v.SetDefault(KeyLogFile, d.LogFile)
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.Community == "" {
		c.Community = d.Community
	}
	if c.Port == 0 {
		c.Port = d.Port
	}
	if c.Version == "" {
		c.Version = d.Version
	}
	if c.Timeout == 0 {
		c.Timeout = d.Timeout
	}
	if c.BatchSize == 0 {
		c.BatchSize = d.BatchSize
	}
	if c.MaxConcurrent == 0 {
		c.MaxConcurrent = d.MaxConcurrent
	}
	if c.Format == "" {
		c.Format = d.Format
	}
	if c.Interval == 0 {
		c.Interval = d.Interval
	}
	if c.HostFilter == "" {
		c.HostFilter = d.HostFilter
	}
}

// Validate reports every setting that cannot be used. An empty address is
// accepted; the caller decides whether to prompt for one.
func (c *Config) Validate() error {
	var errs []error
	if c.Address != "" {
		if _, err := ParseAddress(c.Address); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("batch_size must be at least 1, got %d", c.BatchSize))
	}
	if c.MaxConcurrent < 1 {
		errs = append(errs, fmt.Errorf("max_concurrent must be at least 1, got %d", c.MaxConcurrent))
	}
	if c.Retries < 0 {
		errs = append(errs, fmt.Errorf("retries must not be negative, got %d", c.Retries))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.Service && c.Interval <= 0 {
		errs = append(errs, fmt.Errorf("interval must be positive, got %s", c.Interval))
	}
	if !slices.Contains(versions, c.Version) {
		errs = append(errs, fmt.Errorf("unknown SNMP version %q", c.Version))
	}
	if !slices.Contains(formats, c.Format) {
		errs = append(errs, fmt.Errorf("unknown output format %q", c.Format))
	}
	if !slices.Contains(hostFilters, c.HostFilter) {
		errs = append(errs, fmt.Errorf("unknown host filter %q", c.HostFilter))
	}
	return errors.Join(errs...)
}

// Seed returns the configured first router address
func (c *Config) Seed() (netip.Addr, error) {
	return ParseAddress(c.Address)
}

// Target returns the SNMP settings for addr
func (c *Config) Target(addr netip.Addr) snmp.Target {
	return snmp.Target{
		Address:   addr,
		Port:      uint16(c.Port),
		Community: c.Community,
		Version:   snmp.Version(c.Version),
		Timeout:   c.Timeout.Duration(),
		Retries:   c.Retries,
	}
}

// ResolvedLogFile returns log_file, or the default location when unset
func (c *Config) ResolvedLogFile() string {
	if c.LogFile != "" {
		return c.LogFile
	}
	return DefaultLogFile()
}

// ParseAddress accepts a dotted-quad IPv4 address other than 0.0.0.0
func ParseAddress(s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil || !addr.Is4() || addr.IsUnspecified() {
		return netip.Addr{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return addr, nil
}

// durationHook decodes "10m" style strings from files, env and flags into Duration
func durationHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != reflect.TypeOf(Duration(0)) {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, err
		}
		return Duration(d), nil
	case time.Duration:
		return Duration(v), nil
	case int:
		return Duration(time.Duration(v) * time.Second), nil
	}
	return data, nil
}
