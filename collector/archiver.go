package collector

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"

	"github.com/justapithecus/hostside/iox"
)

// ContentTypeDirectory is recorded for directory artifacts.
const ContentTypeDirectory = "inode/directory"

// Archiver is a Processor that moves pulled entries into an output
// directory and records their size, content type and BLAKE3 digest.
// The staging copy is consumed by the move.
type Archiver struct {
	outDir string
}

// NewArchiver creates an archiver writing into outDir, creating it if needed.
// outDir should be on the same filesystem as the puller's staging directory.
func NewArchiver(outDir string) (*Archiver, error) {
	if outDir == "" {
		return nil, errors.New("archiver requires an output directory")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}
	return &Archiver{outDir: outDir}, nil
}

// ProcessMetricFile implements Processor.
func (a *Archiver) ProcessMetricFile(_ context.Context, key, localPath string, data *RunData) error {
	contentType, err := sniff(localPath)
	if err != nil {
		return err
	}
	h := blake3.New()
	size, err := hashFile(h, localPath)
	if err != nil {
		return err
	}

	dest, err := a.move(localPath)
	if err != nil {
		return err
	}

	digest := hex.EncodeToString(h.Sum(nil))
	data.AddArtifact(PulledArtifact{
		Key:         key,
		Name:        filepath.Base(dest),
		Path:        dest,
		SizeBytes:   size,
		ContentType: contentType,
		Digest:      digest,
	})
	data.AddMetric(key, digest)
	return nil
}

// ProcessMetricDirectory implements Processor. The digest covers each
// file's relative path and content in lexical order.
func (a *Archiver) ProcessMetricDirectory(_ context.Context, key, localDir string, data *RunData) error {
	h := blake3.New()
	var total int64
	err := filepath.WalkDir(localDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(localDir, p)
		if err != nil {
			return err
		}
		_, _ = io.WriteString(h, filepath.ToSlash(rel))
		_, _ = h.Write([]byte{0})
		n, err := hashFile(h, p)
		total += n
		return err
	})
	if err != nil {
		return fmt.Errorf("digest %s: %w", localDir, err)
	}

	dest, err := a.move(localDir)
	if err != nil {
		return err
	}

	digest := hex.EncodeToString(h.Sum(nil))
	data.AddArtifact(PulledArtifact{
		Key:         key,
		Name:        filepath.Base(dest),
		Path:        dest,
		IsDir:       true,
		SizeBytes:   total,
		ContentType: ContentTypeDirectory,
		Digest:      digest,
	})
	data.AddMetric(key, digest)
	return nil
}

// move renames src into the output directory. Existing outputs are never
// overwritten.
func (a *Archiver) move(src string) (string, error) {
	dest := filepath.Join(a.outDir, filepath.Base(src))
	if _, err := os.Lstat(dest); err == nil {
		return "", fmt.Errorf("output %s already exists", dest)
	}
	if err := os.Rename(src, dest); err != nil {
		return "", fmt.Errorf("move %s: %w", src, err)
	}
	return dest, nil
}

// sniff detects the MIME type from the first 512 bytes.
func sniff(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer iox.DiscardClose(f)

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	return http.DetectContentType(head[:n]), nil
}

func hashFile(w io.Writer, path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer iox.DiscardClose(f)
	return io.Copy(w, f)
}
