package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/marmos91/cephtool/pkg/remotefs/ceph"
	"github.com/marmos91/cephtool/pkg/session"
)

// DefaultConfFile is the ceph.conf read when no monitor address is given.
const DefaultConfFile = "/usr/local/cephtool/conf/ceph.conf"

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
//   - Backend-specific defaults are handled by the backend factories
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyStateDefaults(&cfg.State)
	applyBackendDefaults(&cfg.Backend, &cfg.State)
	applyClusterDefaults(&cfg.Cluster, &cfg.Backend)
	applyTransferDefaults(&cfg.Transfer)
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
		cfg.Output = "stderr"
	}
}

// applyStateDefaults places the state directory under the user's home.
func applyStateDefaults(cfg *StateConfig) {
	if cfg.Dir != "" {
		return
	}
	home, err := os.UserHomeDir()
	if err != nil {
		cfg.Dir = ".cephtool"
		return
	}
	cfg.Dir = filepath.Join(home, ".cephtool")
}

// applyBackendDefaults picks CephFS when the binary supports it, and an
// on-disk badger emulation under the state directory otherwise.
func applyBackendDefaults(cfg *BackendConfig, state *StateConfig) {
	if cfg.Type == "" {
		if ceph.Available {
			cfg.Type = "ceph"
		} else {
			cfg.Type = "badger"
		}
	}

	// Initialize maps if nil
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
	if cfg.SQLite == nil {
		cfg.SQLite = make(map[string]any)
	}
	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}

	if _, ok := cfg.Badger["path"]; !ok {
		cfg.Badger["path"] = filepath.Join(state.Dir, "badger")
	}
	if _, ok := cfg.SQLite["path"]; !ok {
		cfg.SQLite["path"] = filepath.Join(state.Dir, "fs.db")
	}
}

// applyClusterDefaults fills the identity and mount root, and points a
// CephFS backend at the default ceph.conf when no monitor is configured.
func applyClusterDefaults(cfg *ClusterConfig, backend *BackendConfig) {
	if cfg.User == "" {
		cfg.User = session.DefaultUser
	}
	if cfg.Root == "" {
		cfg.Root = session.DefaultRoot
	}
	if cfg.ConfFile == "" && cfg.MonHost == "" && backend.Type == "ceph" {
		cfg.ConfFile = DefaultConfFile
	}
}

// applyTransferDefaults sets transfer defaults.
func applyTransferDefaults(cfg *TransferConfig) {
	if cfg.MaxDepth == 0 {
		cfg.MaxDepth = session.DefaultMaxDepth
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
