// Package unpack implements the post-processing step applied to resolved
// artifacts: optional extraction of archives into a sibling directory.
//
// Recognised formats are detected by magic bytes, not by file extension.
// Compressed streams (gzip, zstd, lz4) holding a tar archive are extracted
// as a tree; any other compressed payload is written as a single file.
package unpack

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/justapithecus/hostside/iox"
)

// OptionUnzip is the query option that requests extraction.
const OptionUnzip = "unzip"

// Format identifies a recognised archive or compression format.
type Format string

// Recognised formats. FormatNone means the file is not an archive.
const (
	FormatNone Format = ""
	FormatZip  Format = "zip"
	FormatTar  Format = "tar"
	FormatGzip Format = "gzip"
	FormatZstd Format = "zstd"
	FormatLZ4  Format = "lz4"
)

// ErrUnsafePath is returned when an archive entry would be written
// outside the extraction directory.
var ErrUnsafePath = errors.New("archive entry escapes destination")

var (
	magicZip      = []byte("PK\x03\x04")
	magicZipEmpty = []byte("PK\x05\x06")
	magicGzip     = []byte{0x1f, 0x8b}
	magicZstd     = []byte{0x28, 0xb5, 0x2f, 0xfd}
	magicLZ4      = []byte{0x04, 0x22, 0x4d, 0x18}
	magicUstar    = []byte("ustar")
)

// tarMagicOffset is where the "ustar" magic lives in a tar header block.
const tarMagicOffset = 257

// knownExts are stripped (longest first) to name the extraction directory.
var knownExts = []string{".tar.gz", ".tar.zst", ".tar.lz4", ".tgz", ".zip", ".tar", ".gz", ".zst", ".lz4"}

// Result is the outcome of Apply.
type Result struct {
	// Path is the file or directory to hand to the caller.
	Path string
	// IsDir is true when Path is a directory.
	IsDir bool
	// Unpacked is true when an archive was extracted (and removed).
	Unpacked bool
}

// WantUnzip reports whether the options request extraction
// (unzip=true, case-insensitive).
func WantUnzip(options map[string]string) bool {
	return strings.EqualFold(options[OptionUnzip], "true")
}

// Apply post-processes a resolved local path.
//
// With unzip set and a recognised archive, the archive is extracted into a
// new sibling directory and then deleted; the directory is returned. With
// unzip set and anything else, or with unzip unset, the path is returned
// unchanged. On extraction failure the partial directory is removed and
// the archive is left in place.
func Apply(path string, unzip bool) (Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Result{}, err
	}
	if !unzip || info.IsDir() {
		return Result{Path: path, IsDir: info.IsDir()}, nil
	}

	format, err := Detect(path)
	if err != nil {
		return Result{}, err
	}
	if format == FormatNone {
		return Result{Path: path}, nil
	}

	dest, err := os.MkdirTemp(filepath.Dir(path), stem(path)+"-")
	if err != nil {
		return Result{}, fmt.Errorf("unpack %s: create directory: %w", path, err)
	}
	if err := Extract(path, format, dest); err != nil {
		_ = os.RemoveAll(dest)
		return Result{}, fmt.Errorf("unpack %s: %w", path, err)
	}
	if err := os.Remove(path); err != nil {
		_ = os.RemoveAll(dest)
		return Result{}, fmt.Errorf("unpack %s: remove archive: %w", path, err)
	}

	return Result{Path: dest, IsDir: true, Unpacked: true}, nil
}

// Detect sniffs the leading bytes of path.
func Detect(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatNone, err
	}
	defer iox.DiscardClose(f)

	head := make([]byte, tarMagicOffset+len(magicUstar))
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return FormatNone, err
	}
	return detectBytes(head[:n]), nil
}

func detectBytes(head []byte) Format {
	switch {
	case bytes.HasPrefix(head, magicZip), bytes.HasPrefix(head, magicZipEmpty):
		return FormatZip
	case bytes.HasPrefix(head, magicGzip):
		return FormatGzip
	case bytes.HasPrefix(head, magicZstd):
		return FormatZstd
	case bytes.HasPrefix(head, magicLZ4):
		return FormatLZ4
	case isTar(head):
		return FormatTar
	default:
		return FormatNone
	}
}

func isTar(head []byte) bool {
	end := tarMagicOffset + len(magicUstar)
	return len(head) >= end && bytes.Equal(head[tarMagicOffset:end], magicUstar)
}

// Extract unpacks path (of the given format) into dest, which must exist.
func Extract(path string, format Format, dest string) error {
	if format == FormatZip {
		return extractZip(path, dest)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer iox.DiscardClose(f)

	var r io.Reader
	switch format {
	case FormatTar:
		return extractTar(f, dest)
	case FormatGzip:
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("gzip: %w", err)
		}
		defer iox.DiscardClose(gz)
		r = gz
	case FormatZstd:
		dec, err := zstd.NewReader(f)
		if err != nil {
			return fmt.Errorf("zstd: %w", err)
		}
		defer dec.Close()
		r = dec
	case FormatLZ4:
		r = lz4.NewReader(f)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}

	br := bufio.NewReaderSize(r, 4096)
	head, err := br.Peek(tarMagicOffset + len(magicUstar))
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%s: %w", format, err)
	}
	if isTar(head) {
		return extractTar(br, dest)
	}
	return writeFile(filepath.Join(dest, stem(path)), br, 0o644)
}

// stem strips directory and a known archive extension from path.
func stem(path string) string {
	base := filepath.Base(path)
	lower := strings.ToLower(base)
	for _, ext := range knownExts {
		if strings.HasSuffix(lower, ext) && len(base) > len(ext) {
			return base[:len(base)-len(ext)]
		}
	}
	return base
}

// safeJoin joins an archive entry name onto dest, rejecting absolute
// names and names that climb out of dest.
func safeJoin(dest, name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return filepath.Join(dest, clean), nil
}

func writeFile(target string, r io.Reader, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm|0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
