package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// sectionComments documents the top-level sections of a generated file.
var sectionComments = map[string]string{
	"logging":  "# Logging: level (DEBUG, INFO, WARN, ERROR), format (text, json),\n# output (stdout, stderr, a file, or a directory)",
	"cluster":  "# Cluster connection. mon_host takes precedence over conf_file,\n# key over key_file. root is the remote directory to mount.",
	"backend":  "# Remote filesystem backend: ceph, memory, badger, sqlite, s3.\n# Only the section matching type is used.",
	"transfer": "# Transfer tuning. rate_limit accepts sizes such as 10MiB (per second);\n# empty means unlimited.",
	"metrics":  "# Prometheus metrics, written to textfile when a command exits",
	"state":    "# Where login info and the working directory are remembered",
}

// InitConfig writes a default configuration file to the default location.
//
// Returns the path of the written file. An existing file is only replaced
// when force is true.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a default configuration file to path.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use force to overwrite)", path)
		}
	}

	content, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// generateYAMLWithComments renders cfg as YAML with a comment above each
// top-level section.
func generateYAMLWithComments(cfg *Config) (string, error) {
	var doc yaml.Node
	if err := doc.Encode(cfg); err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}

	// Mapping content alternates key and value nodes
	for i := 0; i+1 < len(doc.Content); i += 2 {
		if comment, ok := sectionComments[doc.Content[i].Value]; ok {
			doc.Content[i].HeadComment = comment
		}
	}

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}

	var b strings.Builder
	b.WriteString("# cephtool configuration file\n")
	b.WriteString("# Environment variables (CEPHTOOL_SECTION_KEY) override these values.\n\n")
	b.Write(out)
	return b.String(), nil
}
