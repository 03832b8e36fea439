// Package types defines the artifact identifiers and results shared by
// resolvers, the collector and the CLI.
//
//nolint:revive // types is a common Go package naming convention
package types

import (
	"maps"
	"os"
	"strings"
)

// Recognized identifier schemes.
const (
	SchemeGS    = "gs"
	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
	SchemeFile  = "file"
	SchemeS3    = "s3"
)

// ArtifactReference is a parsed artifact identifier of the form
// <scheme>:<path>[?<query>]. It is immutable after construction.
type ArtifactReference struct {
	raw     string
	scheme  string
	path    string
	options map[string]string
}

// NewArtifactReference builds a reference from already-split parts.
// The options map is copied.
func NewArtifactReference(raw, scheme, path string, options map[string]string) *ArtifactReference {
	opts := make(map[string]string, len(options))
	maps.Copy(opts, options)
	return &ArtifactReference{
		raw:     raw,
		scheme:  scheme,
		path:    path,
		options: opts,
	}
}

// Raw returns the identifier the reference was parsed from.
func (r *ArtifactReference) Raw() string { return r.raw }

// Scheme returns the scheme token (e.g. "gs", "http", "file").
func (r *ArtifactReference) Scheme() string { return r.scheme }

// Path returns the scheme-specific path, without the query string.
func (r *ArtifactReference) Path() string { return r.path }

// Query returns the undecoded query of the raw identifier, without the
// leading '?'. Empty when there is none.
func (r *ArtifactReference) Query() string {
	_, q, _ := strings.Cut(r.raw, "?")
	return q
}

// Option returns the value of a query option and whether it was present.
func (r *ArtifactReference) Option(key string) (string, bool) {
	v, ok := r.options[key]
	return v, ok
}

// Options returns a copy of all query options.
func (r *ArtifactReference) Options() map[string]string {
	opts := make(map[string]string, len(r.options))
	maps.Copy(opts, r.options)
	return opts
}

// ResolvedArtifact is the local result of a resolution.
// Ownership passes to the caller, who must call Cleanup when done.
type ResolvedArtifact struct {
	// Path is the local file or directory.
	Path string `json:"path"`
	// IsDir is true when Path is a directory (e.g. an extracted archive).
	IsDir bool `json:"is_dir"`
	// Temporary is true when Path was created by the resolver and is
	// owned by the caller. Local artifacts are never temporary.
	Temporary bool `json:"temporary"`
}

// Cleanup removes the artifact if it is temporary.
// Non-temporary artifacts are left untouched.
func (a *ResolvedArtifact) Cleanup() error {
	if a == nil || !a.Temporary || a.Path == "" {
		return nil
	}
	return os.RemoveAll(a.Path)
}
