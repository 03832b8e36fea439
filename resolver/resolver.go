// Package resolver turns artifact identifiers into local files.
//
// An identifier has the form <scheme>:<path>[?<query>]. The Registry
// dispatches on the scheme to a registered Resolver, then applies
// post-processing (the unzip option) to artifacts the resolver downloaded.
package resolver

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/justapithecus/hostside/log"
	"github.com/justapithecus/hostside/metrics"
	"github.com/justapithecus/hostside/store"
	"github.com/justapithecus/hostside/types"
	"github.com/justapithecus/hostside/unpack"
)

// Resolver materializes one scheme's artifacts on the local filesystem.
type Resolver interface {
	// Scheme returns the identifier scheme this resolver serves.
	Scheme() string
	// Resolve fetches or locates the referenced artifact.
	// A returned artifact with Temporary set is owned by the caller.
	Resolve(ctx context.Context, ref *types.ArtifactReference) (*types.ResolvedArtifact, error)
}

// Registry maps schemes to resolvers.
// Resolve is safe for concurrent use once registration is complete.
type Registry struct {
	mu        sync.RWMutex
	resolvers map[string]Resolver
	logger    *log.Logger
	metrics   *metrics.Collector
}

// NewRegistry builds a registry from the given resolvers.
// Returns ErrDuplicateScheme if two resolvers claim the same scheme.
func NewRegistry(resolvers ...Resolver) (*Registry, error) {
	r := &Registry{
		resolvers: make(map[string]Resolver, len(resolvers)),
		logger:    log.NewNop(),
	}
	for _, res := range resolvers {
		if err := r.Register(res); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a resolver under its scheme. An existing registration is
// never overridden.
func (r *Registry) Register(res Resolver) error {
	if res == nil {
		return fmt.Errorf("register: nil resolver")
	}
	scheme := res.Scheme()
	if scheme == "" {
		return fmt.Errorf("register: resolver %T has an empty scheme", res)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.resolvers[scheme]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateScheme, scheme)
	}
	r.resolvers[scheme] = res
	return nil
}

// SetLogger sets the logger used for resolution events.
func (r *Registry) SetLogger(l *log.Logger) {
	if l != nil {
		r.logger = l
	}
}

// SetMetrics sets the collector for resolution counters. Nil disables metrics.
func (r *Registry) SetMetrics(c *metrics.Collector) {
	r.metrics = c
}

// Schemes returns the registered schemes, sorted.
func (r *Registry) Schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.resolvers))
}

// ResolveString parses the identifier and resolves it.
func (r *Registry) ResolveString(ctx context.Context, identifier string) (*types.ResolvedArtifact, error) {
	ref, err := Parse(identifier)
	if err != nil {
		r.metrics.IncResolutionStarted()
		r.fail(identifier, err, nil)
		return nil, err
	}
	return r.Resolve(ctx, ref)
}

// Resolve dispatches the reference to the resolver registered for its
// scheme. Downloaded artifacts are unpacked when the unzip option is set;
// on extraction failure the download is removed and ErrDownload returned.
func (r *Registry) Resolve(ctx context.Context, ref *types.ArtifactReference) (*types.ResolvedArtifact, error) {
	r.metrics.IncResolutionStarted()

	r.mu.RLock()
	res, ok := r.resolvers[ref.Scheme()]
	r.mu.RUnlock()
	if !ok {
		err := &Error{Kind: ErrUnsupportedScheme, Scheme: ref.Scheme(), Path: ref.Raw()}
		r.fail(ref.Raw(), err, map[string]any{"registered": r.Schemes()})
		return nil, err
	}

	r.logger.Debug("resolving artifact", map[string]any{
		"identifier": ref.Raw(),
		"scheme":     ref.Scheme(),
	})

	artifact, err := res.Resolve(ctx, ref)
	if err != nil {
		r.fail(ref.Raw(), err, nil)
		return nil, err
	}

	if artifact.Temporary {
		artifact, err = r.postProcess(ref, artifact)
		if err != nil {
			r.fail(ref.Raw(), err, nil)
			return nil, err
		}
	}

	r.metrics.IncResolutionSucceeded()
	r.logger.Info("artifact resolved", map[string]any{
		"identifier": ref.Raw(),
		"path":       artifact.Path,
		"is_dir":     artifact.IsDir,
		"temporary":  artifact.Temporary,
	})
	return artifact, nil
}

// postProcess applies the unzip option. Only temporary artifacts are
// eligible, so local files are never extracted in place or deleted.
func (r *Registry) postProcess(ref *types.ArtifactReference, artifact *types.ResolvedArtifact) (*types.ResolvedArtifact, error) {
	out, err := unpack.Apply(artifact.Path, unpack.WantUnzip(ref.Options()))
	if err != nil {
		_ = artifact.Cleanup()
		return nil, downloadError(ref.Scheme(), ref.Raw(), err)
	}
	if out.Unpacked {
		r.metrics.IncArchiveUnpacked()
	}
	return &types.ResolvedArtifact{
		Path:      out.Path,
		IsDir:     out.IsDir,
		Temporary: true,
	}, nil
}

// fail counts and logs a failed resolution; extra adds log fields.
func (r *Registry) fail(identifier string, err error, extra map[string]any) {
	kind := KindName(err)
	r.metrics.IncResolutionFailed(kind)
	fields := map[string]any{
		"identifier": identifier,
		"kind":       kind,
		"class":      store.ClassName(err),
		"error":      err.Error(),
	}
	maps.Copy(fields, extra)
	r.logger.Warn("artifact resolution failed", fields)
}
