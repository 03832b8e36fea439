package collector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/justapithecus/hostside/iox"
	"github.com/justapithecus/hostside/store"
	"github.com/justapithecus/lode/lode"
)

// Entry is one top-level item produced by a run.
type Entry struct {
	// Key is the entry name relative to the bridge root.
	Key string
	// IsDir is true for directory-shaped entries.
	IsDir bool
}

// Bridge gives the puller access to a run's produced files.
type Bridge interface {
	// List returns the top-level entries, sorted by key.
	List(ctx context.Context) ([]Entry, error)
	// PullFile copies a file entry into destDir and returns the local path.
	PullFile(ctx context.Context, key, destDir string) (string, error)
	// PullDir copies a directory entry into destDir and returns the local
	// directory.
	PullDir(ctx context.Context, key, destDir string) (string, error)
}

// StoreBridge exposes the objects under a prefix of a lode.Store.
// Keys without a slash are file entries; the first segment of nested keys
// forms a directory entry.
type StoreBridge struct {
	store  lode.Store
	prefix string
}

// NewStoreBridge creates a bridge rooted at prefix ("" for the whole store).
func NewStoreBridge(st lode.Store, prefix string) *StoreBridge {
	prefix = strings.Trim(prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &StoreBridge{store: st, prefix: prefix}
}

// List implements Bridge.
func (b *StoreBridge) List(ctx context.Context) ([]Entry, error) {
	keys, err := b.store.List(ctx, b.prefix)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var entries []Entry
	for _, k := range keys {
		rel, ok := b.relative(k)
		if !ok {
			continue
		}
		name, _, nested := strings.Cut(rel, "/")
		if seen[name] {
			continue
		}
		seen[name] = true
		entries = append(entries, Entry{Key: name, IsDir: nested})
	}
	slices.SortFunc(entries, func(a, b Entry) int { return strings.Compare(a.Key, b.Key) })
	return entries, nil
}

// PullFile implements Bridge.
func (b *StoreBridge) PullFile(ctx context.Context, key, destDir string) (string, error) {
	if !filepath.IsLocal(key) {
		return "", fmt.Errorf("unsafe key %q", key)
	}
	target := filepath.Join(destDir, filepath.FromSlash(key))
	if err := b.copyObject(ctx, b.prefix+key, target); err != nil {
		return "", err
	}
	return target, nil
}

// PullDir implements Bridge.
func (b *StoreBridge) PullDir(ctx context.Context, key, destDir string) (string, error) {
	if !filepath.IsLocal(key) {
		return "", fmt.Errorf("unsafe key %q", key)
	}
	dirPrefix := b.prefix + key + "/"
	keys, err := b.store.List(ctx, dirPrefix)
	if err != nil {
		return "", err
	}

	root := filepath.Join(destDir, filepath.FromSlash(key))
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", err
	}

	copied := 0
	for _, k := range keys {
		k = strings.TrimPrefix(k, "/")
		rel, ok := strings.CutPrefix(k, dirPrefix)
		if !ok || rel == "" || strings.HasSuffix(rel, "/") {
			continue
		}
		rel = path.Clean(rel)
		if !filepath.IsLocal(rel) {
			_ = os.RemoveAll(root)
			return "", fmt.Errorf("unsafe key %q", k)
		}
		if err := b.copyObject(ctx, k, filepath.Join(root, filepath.FromSlash(rel))); err != nil {
			_ = os.RemoveAll(root)
			return "", err
		}
		copied++
	}
	if copied == 0 {
		_ = os.RemoveAll(root)
		return "", &store.Error{Kind: store.ErrNotFound, Op: "pull", Path: dirPrefix, Err: errors.New("empty directory")}
	}
	return root, nil
}

func (b *StoreBridge) relative(key string) (string, bool) {
	key = strings.TrimPrefix(key, "/")
	rel, ok := strings.CutPrefix(key, b.prefix)
	if !ok || rel == "" || strings.HasPrefix(rel, "/") {
		return "", false
	}
	return rel, true
}

func (b *StoreBridge) copyObject(ctx context.Context, key, target string) (err error) {
	rc, err := b.store.Get(ctx, key)
	if err != nil {
		return store.Wrap(err, "get", key)
	}
	defer iox.DiscardClose(rc)

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer iox.RemoveOnError(&err, target)

	if _, err := io.Copy(f, rc); err != nil {
		iox.DiscardClose(f)
		return store.Wrap(err, "copy", key)
	}
	return f.Close()
}
