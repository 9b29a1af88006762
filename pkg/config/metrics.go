package config

import (
	"github.com/marmos91/cephtool/pkg/metrics"
	promMetrics "github.com/marmos91/cephtool/pkg/metrics/prometheus"
)

// MetricsResult contains all metrics-related components created from configuration.
type MetricsResult struct {
	// SessionMetrics is the collector handed to sessions (never nil, uses noop if disabled)
	SessionMetrics metrics.SessionMetrics

	// Textfile is where Flush writes the registry ("" if disabled)
	Textfile string
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates Prometheus-backed session metrics
//
// If metrics are disabled:
//   - Returns no-op metrics implementations (zero overhead)
func InitializeMetrics(cfg *MetricsConfig) *MetricsResult {
	if !cfg.Enabled {
		return &MetricsResult{
			SessionMetrics: metrics.NewNoopSessionMetrics(),
		}
	}

	metrics.InitRegistry()

	return &MetricsResult{
		SessionMetrics: promMetrics.NewSessionMetrics(),
		Textfile:       cfg.Textfile,
	}
}

// Flush writes the collected metrics to the textfile. It does nothing when
// metrics are disabled.
func (r *MetricsResult) Flush() error {
	if r.Textfile == "" {
		return nil
	}
	return metrics.WriteTextfile(r.Textfile)
}
