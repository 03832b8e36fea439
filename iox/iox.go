// Package iox provides I/O helpers for resource cleanup.
package iox

import (
	"io"
	"os"
)

// DiscardClose closes c and discards the error.
// Use in defer statements where close errors are unactionable:
//
//	defer iox.DiscardClose(f)
func DiscardClose(c io.Closer) { _ = c.Close() }

// CloseFunc returns a cleanup function that closes c.
// Designed for t.Cleanup registration:
//
//	t.Cleanup(iox.CloseFunc(client))
func CloseFunc(c io.Closer) func() {
	return func() { _ = c.Close() }
}

// DiscardErr calls fn and discards the returned error.
//
//	defer iox.DiscardErr(w.Flush)
func DiscardErr(fn func() error) { _ = fn() }

// RemoveOnError removes path (file or directory tree) when *errp is
// non-nil at the time the deferred call runs:
//
//	defer iox.RemoveOnError(&err, tmp.Name())
func RemoveOnError(errp *error, path string) {
	if errp == nil || *errp == nil || path == "" {
		return
	}
	_ = os.RemoveAll(path)
}
