package resolver

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/justapithecus/hostside/types"
)

// LocalResolver serves file: identifiers. The path is returned as is;
// nothing is copied and the result is never temporary.
type LocalResolver struct{}

// NewLocalResolver creates a local resolver.
func NewLocalResolver() *LocalResolver { return &LocalResolver{} }

// Scheme implements Resolver.
func (*LocalResolver) Scheme() string { return types.SchemeFile }

// Resolve checks that the path exists.
func (*LocalResolver) Resolve(_ context.Context, ref *types.ArtifactReference) (*types.ResolvedArtifact, error) {
	p := LocalPath(ref.Path())
	info, err := os.Stat(p)
	if err != nil {
		abs, absErr := filepath.Abs(p)
		if absErr != nil {
			abs = p
		}
		return nil, &Error{Kind: ErrArtifactNotFound, Scheme: ref.Scheme(), Path: abs, Err: err}
	}
	return &types.ResolvedArtifact{Path: p, IsDir: info.IsDir()}, nil
}

// LocalPath strips an empty or localhost authority, so that file:///abs
// and file://localhost/abs both name /abs. Other paths are unchanged.
func LocalPath(p string) string {
	if !strings.HasPrefix(p, "//") {
		return p
	}
	rest := p[2:]
	i := strings.IndexByte(rest, '/')
	if i < 0 {
		return p
	}
	if host := rest[:i]; host == "" || host == "localhost" {
		return rest[i:]
	}
	return p
}
