package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/justapithecus/lode/lode"
	lodes3 "github.com/justapithecus/lode/lode/s3"
)

// GCSEndpoint is the S3-compatible XML API endpoint of Google Cloud Storage.
// Requests are signed with HMAC keys supplied through the AWS credential chain.
const GCSEndpoint = "https://storage.googleapis.com"

// Backend names accepted by OpenStore.
const (
	BackendFS = "fs"
	BackendS3 = "s3"
)

// S3Config holds configuration for S3-compatible storage.
type S3Config struct {
	// Bucket is the bucket name (required for OpenStore with the s3 backend).
	Bucket string
	// Prefix is the key prefix within the bucket (optional).
	Prefix string
	// Region is the region (optional, uses default chain if empty).
	Region string
	// Endpoint is a custom endpoint URL for S3-compatible providers
	// (GCS, MinIO, R2). Empty uses the default AWS endpoint.
	Endpoint string
	// UsePathStyle forces path-style addressing (bucket in path, not subdomain).
	UsePathStyle bool
}

// Validate checks that required S3 configuration is present.
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("S3 bucket is required")
	}
	return nil
}

// GCSConfig returns an S3Config pointed at the GCS interoperability endpoint.
// Endpoint and region may be overridden (e.g. for a local emulator).
func GCSConfig(endpoint, region string) S3Config {
	if endpoint == "" {
		endpoint = GCSEndpoint
	}
	if region == "" {
		region = "auto"
	}
	return S3Config{Endpoint: endpoint, Region: region, UsePathStyle: true}
}

// ParseS3Path parses a path in format "bucket/prefix" or "bucket".
func ParseS3Path(path string) (bucket, prefix string) {
	parts := strings.SplitN(strings.TrimPrefix(path, "/"), "/", 2)
	bucket = parts[0]
	if len(parts) > 1 {
		prefix = parts[1]
	}
	return bucket, prefix
}

// NewS3Client builds an S3 client using the AWS SDK default credential
// chain (env vars, shared config, IAM role) with optional endpoint and
// path-style overrides.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	return s3.NewFromConfig(awsConfig, s3Opts...), nil
}

// S3Factory returns a lode StoreFactory for one bucket/prefix.
func S3Factory(client *s3.Client, bucket, prefix string) lode.StoreFactory {
	return func() (lode.Store, error) {
		return lodes3.New(client, lodes3.Config{
			Bucket: bucket,
			Prefix: prefix,
		})
	}
}

// OpenStore opens a lode Store for a backend and path.
// fs: path is a directory. s3: path is "bucket/prefix".
func OpenStore(ctx context.Context, backend, path string, s3cfg S3Config) (lode.Store, error) {
	if path == "" {
		return nil, errors.New("store path is required")
	}

	var factory lode.StoreFactory
	switch backend {
	case BackendFS, "":
		factory = lode.NewFSFactory(path)
	case BackendS3:
		s3cfg.Bucket, s3cfg.Prefix = ParseS3Path(path)
		if err := s3cfg.Validate(); err != nil {
			return nil, err
		}
		client, err := NewS3Client(ctx, s3cfg)
		if err != nil {
			return nil, Wrap(err, "open", path)
		}
		factory = S3Factory(client, s3cfg.Bucket, s3cfg.Prefix)
	default:
		return nil, fmt.Errorf("unknown backend: %s (must be fs or s3)", backend)
	}

	st, err := factory()
	if err != nil {
		return nil, Wrap(err, "open", path)
	}
	return st, nil
}

// BucketOpener returns the Store serving one bucket.
type BucketOpener func(bucket string) (lode.Store, error)

// S3BucketOpener opens buckets through a shared S3-compatible client.
func S3BucketOpener(client *s3.Client) BucketOpener {
	return func(bucket string) (lode.Store, error) {
		return S3Factory(client, bucket, "")()
	}
}

// FSBucketOpener maps each bucket to a subdirectory of root.
// Useful for mirrors and tests.
func FSBucketOpener(root string) BucketOpener {
	return func(bucket string) (lode.Store, error) {
		if bucket == "" || strings.ContainsAny(bucket, `/\`) || bucket == "." || bucket == ".." {
			return nil, fmt.Errorf("invalid bucket name %q", bucket)
		}
		return lode.NewFSFactory(filepath.Join(root, bucket))()
	}
}

// StaticBucketOpener serves a fixed set of stores; unknown buckets fail
// with ErrNotFound.
func StaticBucketOpener(stores map[string]lode.Store) BucketOpener {
	return func(bucket string) (lode.Store, error) {
		st, ok := stores[bucket]
		if !ok {
			return nil, &Error{Kind: ErrNotFound, Op: "open", Path: bucket, Err: fmt.Errorf("no such bucket %q", bucket)}
		}
		return st, nil
	}
}

// CachedBucketOpener memoizes successful opens per bucket.
// Safe for concurrent use.
func CachedBucketOpener(open BucketOpener) BucketOpener {
	var mu sync.Mutex
	cache := make(map[string]lode.Store)
	return func(bucket string) (lode.Store, error) {
		mu.Lock()
		defer mu.Unlock()
		if st, ok := cache[bucket]; ok {
			return st, nil
		}
		st, err := open(bucket)
		if err != nil {
			return nil, err
		}
		cache[bucket] = st
		return st, nil
	}
}
