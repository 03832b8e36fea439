package resolver

import (
	"io"
	"os"
	"path"
	"strings"

	"github.com/justapithecus/hostside/iox"
)

// downloadToTemp streams r into a new file in dir named after name's base
// and extension. The file is removed if anything fails.
func downloadToTemp(dir, name string, r io.Reader) (_ string, _ int64, err error) {
	f, err := os.CreateTemp(dir, tempPattern(name))
	if err != nil {
		return "", 0, err
	}
	tmp := f.Name()
	defer iox.RemoveOnError(&err, tmp)

	n, err := io.Copy(f, r)
	if err != nil {
		iox.DiscardClose(f)
		return "", n, err
	}
	if err := f.Close(); err != nil {
		return "", n, err
	}
	return tmp, n, nil
}

// tempPattern returns an os.CreateTemp pattern <base>-*<ext>.
func tempPattern(name string) string {
	base := path.Base(strings.TrimRight(name, "/"))
	if base == "" || base == "." || base == "/" {
		base = "artifact"
	}
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" {
		stem = "artifact"
	}
	return stem + "-*" + ext
}
