// Package metrics provides Prometheus metrics collection for cephtool sessions.
//
// All metrics are optional - if not initialized, sessions use no-op
// implementations that have zero overhead.
//
// Usage:
//
//	// Initialize global registry (typically in main.go)
//	metrics.InitRegistry()
//
//	// Create metrics instances for sessions
//	m := prometheus.NewSessionMetrics()
//	s := session.New(driver, session.WithMetrics(m))
//
//	// Persist for node_exporter's textfile collector at exit
//	metrics.WriteTextfile("/var/lib/node_exporter/cephtool.prom")
package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// registry is the global Prometheus registry for all cephtool metrics
	// Protected by registryOnce for write-once, read-many pattern
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry initializes the global Prometheus registry.
//
// It's safe to call multiple times - subsequent calls are ignored. If not
// called, GetRegistry() returns nil and metrics constructors return no-op
// implementations.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
	})
}

// GetRegistry returns the global Prometheus registry, or nil when metrics
// are disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled returns true if InitRegistry() has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}

// WriteTextfile writes the current value of every registered metric to path
// in the Prometheus text exposition format. The file is replaced atomically.
//
// A one-shot CLI exits before any scraper could reach an HTTP endpoint, so
// metrics are handed over through a file instead.
func WriteTextfile(path string) error {
	reg := GetRegistry()
	if reg == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
