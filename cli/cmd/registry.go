package cmd

import (
	"context"
	"fmt"

	"github.com/justapithecus/hostside/cli/config"
	"github.com/justapithecus/hostside/resolver"
	"github.com/justapithecus/hostside/store"
	"github.com/justapithecus/hostside/types"
)

// buildRegistry registers file, plus http and gs unless switched off,
// plus https and s3 when switched on.
func buildRegistry(ctx context.Context, s *session, tempDir string) (*resolver.Registry, error) {
	rc := s.cfg.Resolvers
	if tempDir == "" {
		tempDir = rc.TempDir
	}

	resolvers := []resolver.Resolver{resolver.NewLocalResolver()}

	if config.IsEnabled(rc.HTTP.Enabled, true) {
		resolvers = append(resolvers, resolver.NewHTTPResolver(resolver.HTTPConfig{
			Headers: rc.HTTP.Headers,
			TempDir: tempDir,
			Metrics: s.metrics,
		}))
	}

	if config.IsEnabled(rc.HTTPS.Enabled, false) {
		resolvers = append(resolvers, resolver.NewHTTPResolver(resolver.HTTPConfig{
			Scheme:  types.SchemeHTTPS,
			Headers: rc.HTTPS.Headers,
			TempDir: tempDir,
			Metrics: s.metrics,
		}))
	}

	if config.IsEnabled(rc.GS.Enabled, true) {
		open, err := bucketOpener(ctx, rc.GS, store.GCSConfig(rc.GS.Endpoint, rc.GS.Region))
		if err != nil {
			return nil, fmt.Errorf("gs resolver: %w", err)
		}
		gs, err := resolver.NewObjectResolver(resolver.ObjectConfig{
			Scheme:  types.SchemeGS,
			Open:    open,
			TempDir: tempDir,
			Metrics: s.metrics,
		})
		if err != nil {
			return nil, err
		}
		resolvers = append(resolvers, gs)
	}

	if config.IsEnabled(rc.S3.Enabled, false) {
		open, err := bucketOpener(ctx, rc.S3, store.S3Config{
			Region:   rc.S3.Region,
			Endpoint: rc.S3.Endpoint,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 resolver: %w", err)
		}
		s3r, err := resolver.NewObjectResolver(resolver.ObjectConfig{
			Scheme:  types.SchemeS3,
			Open:    open,
			TempDir: tempDir,
			Metrics: s.metrics,
		})
		if err != nil {
			return nil, err
		}
		resolvers = append(resolvers, s3r)
	}

	reg, err := resolver.NewRegistry(resolvers...)
	if err != nil {
		return nil, err
	}
	reg.SetLogger(s.logger)
	reg.SetMetrics(s.metrics)
	return reg, nil
}

// bucketOpener serves buckets from a local mirror when configured,
// otherwise through an S3-compatible client. Opened stores are cached.
func bucketOpener(ctx context.Context, oc config.ObjectStoreConfig, base store.S3Config) (store.BucketOpener, error) {
	if oc.Mirror != "" {
		return store.CachedBucketOpener(store.FSBucketOpener(oc.Mirror)), nil
	}
	if oc.S3PathStyle {
		base.UsePathStyle = true
	}
	client, err := store.NewS3Client(ctx, base)
	if err != nil {
		return nil, err
	}
	return store.CachedBucketOpener(store.S3BucketOpener(client)), nil
}
