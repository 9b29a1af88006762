package config

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dustin/go-humanize"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/marmos91/cephtool/internal/ratelimiter"
	"github.com/marmos91/cephtool/pkg/metrics"
	"github.com/marmos91/cephtool/pkg/remotefs"
	"github.com/marmos91/cephtool/pkg/remotefs/badger"
	"github.com/marmos91/cephtool/pkg/remotefs/ceph"
	"github.com/marmos91/cephtool/pkg/remotefs/kvfs"
	"github.com/marmos91/cephtool/pkg/remotefs/memory"
	remotefsS3 "github.com/marmos91/cephtool/pkg/remotefs/s3"
	"github.com/marmos91/cephtool/pkg/remotefs/sqlite"
	"github.com/marmos91/cephtool/pkg/session"
)

// CreateDriver creates a remote filesystem driver based on configuration.
//
// This factory function uses the Type field to determine which backend
// to create, then decodes the type-specific configuration from the
// corresponding map and passes it to the backend's constructor.
//
// Supported types:
//   - "ceph": Uses pkg/remotefs/ceph (libcephfs, requires the ceph build tag)
//   - "memory": Uses pkg/remotefs/memory (in-process, ephemeral)
//   - "badger": Uses pkg/remotefs/badger (BadgerDB, persistent)
//   - "sqlite": Uses pkg/remotefs/sqlite (SQLite, persistent)
//   - "s3": Uses pkg/remotefs/s3 (one object per record)
//
// The kvfs-backed drivers hold resources; callers should close them when
// the returned driver implements io.Closer.
func CreateDriver(ctx context.Context, cfg *BackendConfig) (remotefs.Driver, error) {
	opts := kvfsOptions(cfg)

	switch cfg.Type {
	case "ceph":
		return ceph.New()
	case "memory":
		d, err := memory.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create memory backend: %w", err)
		}
		return d, nil
	case "badger":
		return createBadgerDriver(ctx, cfg.Badger, opts)
	case "sqlite":
		return createSQLiteDriver(ctx, cfg.SQLite, opts)
	case "s3":
		return createS3Driver(ctx, cfg.S3, opts)
	default:
		return nil, fmt.Errorf("unknown backend type: %q", cfg.Type)
	}
}

// kvfsOptions translates the settings shared by the emulated backends.
func kvfsOptions(cfg *BackendConfig) []kvfs.Option {
	var opts []kvfs.Option
	if len(cfg.Keyring) > 0 {
		opts = append(opts, kvfs.WithKeyring(cfg.Keyring))
	}
	if cfg.MaxIOSize > 0 {
		opts = append(opts, kvfs.WithMaxIOSize(cfg.MaxIOSize))
	}
	return opts
}

// createBadgerDriver creates a BadgerDB-backed driver.
func createBadgerDriver(ctx context.Context, options map[string]any, opts []kvfs.Option) (remotefs.Driver, error) {
	var storeCfg struct {
		Path             string `mapstructure:"path"`
		InMemory         bool   `mapstructure:"in_memory"`
		BlockCacheSizeMB int64  `mapstructure:"block_cache_mb"`
		IndexCacheSizeMB int64  `mapstructure:"index_cache_mb"`
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &storeCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(options); err != nil {
		return nil, fmt.Errorf("failed to decode badger backend config: %w", err)
	}

	if storeCfg.Path == "" && !storeCfg.InMemory {
		return nil, fmt.Errorf("badger backend: path is required")
	}
	if storeCfg.Path != "" {
		if err := os.MkdirAll(storeCfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create badger directory: %w", err)
		}
	}

	d, err := badger.New(ctx, badger.StoreConfig{
		DBPath:           storeCfg.Path,
		InMemory:         storeCfg.InMemory,
		BlockCacheSizeMB: storeCfg.BlockCacheSizeMB,
		IndexCacheSizeMB: storeCfg.IndexCacheSizeMB,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create badger backend: %w", err)
	}
	return d, nil
}

// createSQLiteDriver creates a SQLite-backed driver.
func createSQLiteDriver(ctx context.Context, options map[string]any, opts []kvfs.Option) (remotefs.Driver, error) {
	var storeCfg struct {
		Path string `mapstructure:"path"`
	}
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode sqlite backend config: %w", err)
	}
	if storeCfg.Path == "" {
		return nil, fmt.Errorf("sqlite backend: path is required")
	}

	d, err := sqlite.New(ctx, storeCfg.Path, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite backend: %w", err)
	}
	return d, nil
}

// s3BackendConfig is the decoded form of backend.s3.
type s3BackendConfig struct {
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	KeyPrefix       string `mapstructure:"prefix"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`
	MaxRetries      int    `mapstructure:"max_retries"`
}

// createS3Driver creates an S3-backed driver.
func createS3Driver(ctx context.Context, options map[string]any, opts []kvfs.Option) (remotefs.Driver, error) {
	var storeCfg s3BackendConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &storeCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(options); err != nil {
		return nil, fmt.Errorf("failed to decode s3 backend config: %w", err)
	}

	if storeCfg.Bucket == "" {
		return nil, fmt.Errorf("s3 backend: bucket is required")
	}
	if storeCfg.Region == "" {
		storeCfg.Region = "us-east-1"
	}

	client, err := newS3Client(ctx, storeCfg)
	if err != nil {
		return nil, err
	}

	d, err := remotefsS3.New(ctx, remotefsS3.StoreConfig{
		Client:    client,
		Bucket:    storeCfg.Bucket,
		KeyPrefix: storeCfg.KeyPrefix,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 backend: %w", err)
	}
	return d, nil
}

// newS3Client builds an S3 client with static credentials when given and
// the default credential chain otherwise.
func newS3Client(ctx context.Context, storeCfg s3BackendConfig) (*s3.Client, error) {
	var configOptions []func(*awsConfig.LoadOptions) error

	configOptions = append(configOptions, awsConfig.WithRegion(storeCfg.Region))

	if storeCfg.AccessKeyID != "" && storeCfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			storeCfg.AccessKeyID,
			storeCfg.SecretAccessKey,
			"",
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	maxRetries := storeCfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	cfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		// MinIO and Localstack need path-style addressing
		if storeCfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(storeCfg.Endpoint)
			o.UsePathStyle = true
		}
		if storeCfg.ForcePathStyle {
			o.UsePathStyle = true
		}
	}), nil
}

// CreateLimiter creates the transfer throttle.
//
// Returns nil when no rate limit is configured.
func CreateLimiter(cfg *TransferConfig) (*ratelimiter.RateLimiter, error) {
	if cfg.RateLimit == "" {
		return nil, nil
	}
	bps, err := humanize.ParseBytes(cfg.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit %q: %w", cfg.RateLimit, err)
	}
	if bps == 0 {
		return nil, nil
	}
	return ratelimiter.New(bps), nil
}

// SessionOptions assembles the session options implied by the configuration.
//
// The connection target and secret are only set for what the configuration
// actually names, so that callers can layer persisted login info below it.
func SessionOptions(cfg *Config, log *zap.Logger, m metrics.SessionMetrics) ([]session.Option, error) {
	limiter, err := CreateLimiter(&cfg.Transfer)
	if err != nil {
		return nil, err
	}

	opts := []session.Option{
		session.WithLogger(log),
		session.WithMetrics(m),
		session.WithMaxDepth(cfg.Transfer.MaxDepth),
	}
	if limiter != nil {
		opts = append(opts, session.WithLimiter(limiter))
	}

	switch {
	case cfg.Cluster.MonHost != "":
		opts = append(opts, session.WithTarget(session.MonitorTarget{Addr: cfg.Cluster.MonHost}))
	case cfg.Cluster.ConfFile != "":
		opts = append(opts, session.WithTarget(session.ConfigFileTarget{Path: cfg.Cluster.ConfFile}))
	}

	if cfg.Cluster.Key != "" || cfg.Cluster.KeyFile != "" {
		opts = append(opts, session.WithCredentials(session.Credentials{
			Key:     cfg.Cluster.Key,
			KeyFile: cfg.Cluster.KeyFile,
		}))
	}

	return opts, nil
}
