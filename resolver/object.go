package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/justapithecus/hostside/iox"
	"github.com/justapithecus/hostside/metrics"
	"github.com/justapithecus/hostside/store"
	"github.com/justapithecus/hostside/types"
)

// ObjectConfig configures an ObjectResolver.
type ObjectConfig struct {
	// Scheme is the served scheme (default "gs").
	Scheme string
	// Open returns the store for a bucket (required). Wrap it with
	// store.CachedBucketOpener to reuse stores across resolutions.
	Open store.BucketOpener
	// TempDir is where downloads are written (default os.TempDir()).
	TempDir string
	// Metrics receives byte counts (optional).
	Metrics *metrics.Collector
}

// ObjectResolver downloads objects from bucket storage.
// Identifier paths have the form /bucket/key or //bucket/key.
type ObjectResolver struct {
	scheme  string
	open    store.BucketOpener
	tempDir string
	metrics *metrics.Collector
}

// NewObjectResolver creates an object resolver.
func NewObjectResolver(cfg ObjectConfig) (*ObjectResolver, error) {
	if cfg.Open == nil {
		return nil, errors.New("object resolver requires a bucket opener")
	}
	if cfg.Scheme == "" {
		cfg.Scheme = types.SchemeGS
	}
	return &ObjectResolver{
		scheme:  cfg.Scheme,
		open:    cfg.Open,
		tempDir: cfg.TempDir,
		metrics: cfg.Metrics,
	}, nil
}

// Scheme implements Resolver.
func (o *ObjectResolver) Scheme() string { return o.scheme }

// Resolve streams the object into a temp file.
func (o *ObjectResolver) Resolve(ctx context.Context, ref *types.ArtifactReference) (*types.ResolvedArtifact, error) {
	bucket, key, err := SplitObjectPath(ref.Path())
	if err != nil {
		return nil, &Error{Kind: ErrInvalidIdentifier, Scheme: ref.Scheme(), Path: ref.Raw(), Err: err}
	}

	st, err := o.open(bucket)
	if err != nil {
		return nil, downloadError(ref.Scheme(), ref.Raw(), store.Wrap(err, "open", bucket))
	}

	rc, err := st.Get(ctx, key)
	if err != nil {
		return nil, downloadError(ref.Scheme(), ref.Raw(), store.Wrap(err, "get", key))
	}
	defer iox.DiscardClose(rc)

	tmp, n, err := downloadToTemp(o.tempDir, key, rc)
	o.metrics.AddBytesDownloaded(n)
	if err != nil {
		return nil, downloadError(ref.Scheme(), ref.Raw(), store.Wrap(err, "copy", key))
	}
	return &types.ResolvedArtifact{Path: tmp, Temporary: true}, nil
}

// SplitObjectPath splits /bucket/key (or //bucket/key) into its parts.
func SplitObjectPath(p string) (bucket, key string, err error) {
	trimmed := strings.TrimLeft(p, "/")
	bucket, key, ok := strings.Cut(trimmed, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("object path %q must be /bucket/key", p)
	}
	return bucket, key, nil
}
