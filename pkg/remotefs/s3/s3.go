// Package s3 provides a remote filesystem whose keys live as objects in an
// S3 bucket (AWS S3, MinIO, Localstack, Ceph RGW).
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/marmos91/cephtool/pkg/remotefs/kvfs"
)

// StoreConfig contains configuration for the S3 store.
type StoreConfig struct {
	// Client is the configured S3 client
	Client *s3.Client

	// Bucket is the S3 bucket name
	Bucket string

	// KeyPrefix is prepended to every object key (e.g. "cephtool/")
	KeyPrefix string
}

// Store implements kvfs.Store on an S3 bucket.
//
// S3 has no multi-key transactions. Update buffers its writes and applies
// them after the transaction function succeeds, so a failed operation leaves
// the bucket untouched, but a crash in the middle of a commit can leave a
// subset applied. The kvfs driver serializes all operations of one process.
type Store struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
}

// NewStore creates an S3 store and checks that the bucket is reachable.
func NewStore(ctx context.Context, cfg StoreConfig) (*Store, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("s3 store: client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 store: bucket is required")
	}

	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %s: %w", cfg.Bucket, err)
	}

	return &Store{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

// New creates an S3 store and wraps it in a remote filesystem driver.
func New(ctx context.Context, cfg StoreConfig, opts ...kvfs.Option) (*kvfs.Driver, error) {
	store, err := NewStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return kvfs.NewDriver(ctx, "s3", store, opts...)
}

func (s *Store) objectKey(key string) string {
	return s.keyPrefix + key
}

func (s *Store) View(ctx context.Context, fn func(txn kvfs.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&txn{ctx: ctx, store: s})
}

func (s *Store) Update(ctx context.Context, fn func(txn kvfs.Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := &txn{ctx: ctx, store: s, pending: make(map[string][]byte), writable: true}
	if err := fn(t); err != nil {
		return err
	}
	return t.commit()
}

func (s *Store) Close() error { return nil }

type txn struct {
	ctx      context.Context
	store    *Store
	pending  map[string][]byte
	writable bool
}

func (t *txn) Get(key string) ([]byte, error) {
	if v, ok := t.pending[key]; ok {
		if v == nil {
			return nil, kvfs.ErrKeyNotFound
		}
		return bytes.Clone(v), nil
	}

	result, err := t.store.client.GetObject(t.ctx, &s3.GetObjectInput{
		Bucket: aws.String(t.store.bucket),
		Key:    aws.String(t.store.objectKey(key)),
	})
	if err != nil {
		var notFound *types.NoSuchKey
		if errors.As(err, &notFound) {
			return nil, kvfs.ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return data, nil
}

func (t *txn) Put(key string, value []byte) error {
	if !t.writable {
		return errReadOnly
	}
	v := bytes.Clone(value)
	if v == nil {
		v = []byte{}
	}
	t.pending[key] = v
	return nil
}

func (t *txn) Delete(key string) error {
	if !t.writable {
		return errReadOnly
	}
	t.pending[key] = nil
	return nil
}

func (t *txn) Keys(prefix string) ([]string, error) {
	paginator := s3.NewListObjectsV2Paginator(t.store.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(t.store.bucket),
		Prefix: aws.String(t.store.objectKey(prefix)),
	})

	seen := make(map[string]bool)
	var keys []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(t.ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range page.Contents {
			key := strings.TrimPrefix(aws.ToString(obj.Key), t.store.keyPrefix)
			seen[key] = true
			if v, ok := t.pending[key]; ok && v == nil {
				continue
			}
			keys = append(keys, key)
		}
	}
	for key, v := range t.pending {
		if v != nil && !seen[key] && strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// commit applies buffered writes in key order.
func (t *txn) commit() error {
	keys := make([]string, 0, len(t.pending))
	for k := range t.pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := t.pending[k]
		if v == nil {
			_, err := t.store.client.DeleteObject(t.ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(t.store.bucket),
				Key:    aws.String(t.store.objectKey(k)),
			})
			if err != nil {
				return fmt.Errorf("failed to delete object %s: %w", k, err)
			}
			continue
		}
		_, err := t.store.client.PutObject(t.ctx, &s3.PutObjectInput{
			Bucket:        aws.String(t.store.bucket),
			Key:           aws.String(t.store.objectKey(k)),
			Body:          bytes.NewReader(v),
			ContentLength: aws.Int64(int64(len(v))),
		})
		if err != nil {
			return fmt.Errorf("failed to put object %s: %w", k, err)
		}
	}
	return nil
}

var errReadOnly = errors.New("s3: write in read-only transaction")
