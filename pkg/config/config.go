package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config represents the complete cephtool configuration.
//
// This structure captures all configurable aspects of cephtool:
//   - Logging configuration
//   - Cluster connection (target, identity, secret, mount root)
//   - Remote filesystem backend selection and configuration (backend-specific)
//   - Transfer tuning
//   - Metrics export
//   - Location of the persisted CLI state
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (CEPHTOOL_*)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
//
// Backend Configuration Pattern:
// Each backend defines its own option set. The Backend section contains
// type-specific maps (e.g., backend.badger, backend.s3) and only the map
// matching the selected type is decoded.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Cluster identifies the cluster and the client identity
	Cluster ClusterConfig `mapstructure:"cluster" yaml:"cluster"`

	// Backend selects the remote filesystem implementation
	Backend BackendConfig `mapstructure:"backend" yaml:"backend"`

	// Transfer tunes the transfer engine and tree walks
	Transfer TransferConfig `mapstructure:"transfer" yaml:"transfer"`

	// Metrics controls Prometheus metrics collection
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// State locates the CLI state directory
	State StateConfig `mapstructure:"state" yaml:"state"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, a file path, or a directory (gets cephtool.log)
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// ClusterConfig describes how to reach and authenticate against the cluster.
//
// ConfFile and MonHost are alternative connection targets; when both are
// set, MonHost wins. Key and KeyFile are alternative secrets; Key wins.
type ClusterConfig struct {
	// ConfFile is a ceph.conf style file
	ConfFile string `mapstructure:"conf_file" yaml:"conf_file"`

	// MonHost is a monitor address list (e.g., "10.0.0.1:6789,10.0.0.2:6789")
	MonHost string `mapstructure:"mon_host" yaml:"mon_host"`

	// User is the client identity, without the "client." prefix
	User string `mapstructure:"user" yaml:"user" validate:"required"`

	// Key is the client secret
	Key string `mapstructure:"key" yaml:"key,omitempty"`

	// KeyFile is a file containing the client secret
	KeyFile string `mapstructure:"key_file" yaml:"key_file,omitempty"`

	// Root is the directory of the remote namespace to mount
	Root string `mapstructure:"root" yaml:"root" validate:"required,startswith=/"`
}

// BackendConfig selects the remote filesystem implementation.
//
// The Type field determines which backend is used.
// Only the corresponding type-specific configuration section is used.
type BackendConfig struct {
	// Type specifies which backend to use
	// Valid values: ceph, memory, badger, sqlite, s3
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=ceph memory badger sqlite s3"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger" yaml:"badger,omitempty"`

	// SQLite contains SQLite-specific configuration
	// Only used when Type = "sqlite"
	SQLite map[string]any `mapstructure:"sqlite" yaml:"sqlite,omitempty"`

	// S3 contains S3-specific configuration
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3" yaml:"s3,omitempty"`

	// Keyring maps client identities to keys for the emulated backends.
	// Empty disables authentication. Ignored by the ceph backend.
	Keyring map[string]string `mapstructure:"keyring" yaml:"keyring,omitempty"`

	// MaxIOSize caps single writes on the emulated backends
	// (0 = no cap). Ignored by the ceph backend.
	MaxIOSize int `mapstructure:"max_io_size" yaml:"max_io_size,omitempty" validate:"gte=0"`
}

// TransferConfig tunes the transfer engine.
type TransferConfig struct {
	// RateLimit caps transfer throughput, as a human-readable size per
	// second (e.g., "10MiB", "500KB"). Empty or "0" means unlimited.
	RateLimit string `mapstructure:"rate_limit" yaml:"rate_limit"`

	// MaxDepth bounds recursive tree walks
	MaxDepth int `mapstructure:"max_depth" yaml:"max_depth" validate:"gt=0"`
}

// MetricsConfig controls metrics collection.
type MetricsConfig struct {
	// Enabled turns on Prometheus metrics collection
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Textfile is where the metrics are written when a command exits, in
	// the node_exporter textfile format. Required when Enabled.
	Textfile string `mapstructure:"textfile" yaml:"textfile,omitempty"`
}

// StateConfig locates the persisted CLI state (login info, working directory).
type StateConfig struct {
	// Dir is the state directory
	Dir string `mapstructure:"dir" yaml:"dir" validate:"required"`
}

// envKeys are bound explicitly so that environment variables override them
// even when the configuration file does not mention them.
var envKeys = []string{
	"logging.level", "logging.format", "logging.output",
	"cluster.conf_file", "cluster.mon_host", "cluster.user",
	"cluster.key", "cluster.key_file", "cluster.root",
	"backend.type", "backend.max_io_size",
	"transfer.rate_limit", "transfer.max_depth",
	"metrics.enabled", "metrics.textfile",
	"state.dir",
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (CEPHTOOL_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	return LoadWithFlags(configPath, nil)
}

// LoadWithFlags is Load with command-line flags layered on top.
//
// flags maps configuration keys (e.g., "cluster.root") to the flag that
// overrides them. A flag only takes effect when it was set explicitly.
func LoadWithFlags(configPath string, flags map[string]*pflag.Flag) (*Config, error) {
	v := viper.New()

	// Configure viper
	setupViper(v, configPath)

	for key, flag := range flags {
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", flag.Name, err)
		}
	}

	// Read configuration file if it exists
	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	// Unmarshal into config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply defaults for any missing values
	ApplyDefaults(&cfg)

	// Validate configuration
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use CEPHTOOL_ prefix and underscores
	// Example: CEPHTOOL_CLUSTER_MON_HOST=10.0.0.1
	v.SetEnvPrefix("CEPHTOOL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/cephtool/config.{yaml,toml}
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - use defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "cephtool")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "cephtool")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// GetConfigDir returns the directory searched for config.yaml.
func GetConfigDir() string {
	return getConfigDir()
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}
