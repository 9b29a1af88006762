package config

import (
	"strings"
	"testing"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "INVALID"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Format = "xml"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for invalid log format")
	}
}

func TestValidate_InvalidBackendType(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Backend.Type = "nfs"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid backend type")
	}
	if !strings.Contains(err.Error(), "Backend.Type") {
		t.Errorf("Expected error to name the field, got: %v", err)
	}
}

func TestValidate_RootMustBeAbsolute(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Cluster.Root = "volumes"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for relative root")
	}
	if !strings.Contains(err.Error(), "startswith") {
		t.Errorf("Expected 'startswith' validation error, got: %v", err)
	}
}

func TestValidate_EmptyUser(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Cluster.User = ""

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for empty user")
	}
}

func TestValidate_MaxDepth(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Transfer.MaxDepth = 0

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for zero max_depth")
	}
}

func TestValidate_NegativeMaxIOSize(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Backend.MaxIOSize = -1

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for negative max_io_size")
	}
}

func TestValidate_RateLimit(t *testing.T) {
	for _, limit := range []string{"", "0", "10MiB", "500 KB", "1048576"} {
		cfg := GetDefaultConfig()
		cfg.Transfer.RateLimit = limit
		if err := Validate(cfg); err != nil {
			t.Errorf("Expected rate limit %q to be valid, got: %v", limit, err)
		}
	}

	cfg := GetDefaultConfig()
	cfg.Transfer.RateLimit = "fast"
	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for unparsable rate limit")
	}
	if !strings.Contains(err.Error(), "rate_limit") {
		t.Errorf("Expected error to mention rate_limit, got: %v", err)
	}
}

func TestValidate_MetricsTextfileRequired(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Metrics.Enabled = true

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for metrics without textfile")
	}

	cfg.Metrics.Textfile = "/var/lib/node_exporter/cephtool.prom"
	if err := Validate(cfg); err != nil {
		t.Errorf("Expected metrics with textfile to be valid, got: %v", err)
	}
}

func TestValidate_CephNeedsTarget(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Backend.Type = "ceph"
	cfg.Cluster.ConfFile = ""
	cfg.Cluster.MonHost = ""

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for ceph backend without a target")
	}

	cfg.Cluster.MonHost = "10.0.0.1:6789"
	if err := Validate(cfg); err != nil {
		t.Errorf("Expected mon_host to satisfy the ceph backend, got: %v", err)
	}
}

func TestValidate_S3NeedsBucket(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Backend.Type = "s3"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for s3 backend without bucket")
	}

	cfg.Backend.S3["bucket"] = "cephtool"
	if err := Validate(cfg); err != nil {
		t.Errorf("Expected s3 backend with bucket to be valid, got: %v", err)
	}
}

func TestValidate_LogLevelNormalization(t *testing.T) {
	// Validation accepts both cases and leaves the value alone
	testCases := []string{"info", "INFO", "debug", "DEBUG", "warn", "WARN", "error", "ERROR"}

	for _, level := range testCases {
		cfg := GetDefaultConfig()
		cfg.Logging.Level = level

		if err := Validate(cfg); err != nil {
			t.Errorf("Validation failed for level %q: %v", level, err)
		}
		if cfg.Logging.Level != level {
			t.Errorf("Expected level to remain %q after validation, got %q", level, cfg.Logging.Level)
		}
	}

	cfg := &Config{Logging: LoggingConfig{Level: "info"}}
	ApplyDefaults(cfg)
	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected ApplyDefaults to normalize 'info' to 'INFO', got %q", cfg.Logging.Level)
	}
}
