package config

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for complex rules
// that cannot be expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	// Run struct tag validation
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	// Custom validation rules that can't be expressed in tags
	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	if cfg.Transfer.RateLimit != "" {
		if _, err := humanize.ParseBytes(cfg.Transfer.RateLimit); err != nil {
			return fmt.Errorf("transfer.rate_limit: invalid size %q: %w", cfg.Transfer.RateLimit, err)
		}
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Textfile == "" {
		return fmt.Errorf("metrics: textfile is required when metrics are enabled")
	}

	// The CephFS backend needs somewhere to find its monitors
	if cfg.Backend.Type == "ceph" && cfg.Cluster.ConfFile == "" && cfg.Cluster.MonHost == "" {
		return fmt.Errorf("cluster: one of conf_file or mon_host is required for the ceph backend")
	}

	if cfg.Backend.Type == "s3" {
		if bucket, _ := cfg.Backend.S3["bucket"].(string); bucket == "" {
			return fmt.Errorf("backend.s3: bucket is required")
		}
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		// Return the first validation error with context
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
